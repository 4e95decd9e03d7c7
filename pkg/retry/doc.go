// Package retry implements the rate-limit backoff controller.
//
// Platform clients report "slow down" responses as errors.RateLimitError.
// Do re-issues the same operation after sleeping for the server-mandated
// duration, or DefaultWait when none was given. Every other error is fatal
// and returned immediately. Attempts are unbounded unless MaxAttempts is set.
//
//	msgs, err := retry.DoWithResult(ctx, func() ([]models.Message, error) {
//		return history.FetchPage(ctx, 100, before)
//	}, retry.DefaultConfig())
package retry
