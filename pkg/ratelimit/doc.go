// Package ratelimit paces successive requests of a single history walk.
//
// It never throttles across walks: how many walks run at once is the
// concurrency governor's job, and "slow down" responses are handled by
// package retry.
package ratelimit
