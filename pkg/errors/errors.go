package errors

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies failures surfaced by the crawler and its collaborators
type Kind string

const (
	KindResolution  Kind = "resolution"
	KindFetch       Kind = "fetch"
	KindRateLimit   Kind = "rate_limit"
	KindValidation  Kind = "validation"
	KindPersistence Kind = "persistence"
)

// ErrPeerNotFound is wrapped by resolution errors when the platform has no such entity
var ErrPeerNotFound = errors.New("peer not found")

// Error is a classified failure. Subject names the offending input:
// a target id, a file path or a malformed value.
type Error struct {
	Kind    Kind
	Subject string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = msg + ": " + e.Err.Error()
		}
	}
	if e.Subject == "" {
		return fmt.Sprintf("%s error: %s", e.Kind, msg)
	}
	return fmt.Sprintf("%s error: %s: %s", e.Kind, e.Subject, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// PeerNotFound reports that target does not exist on the platform
func PeerNotFound(target string) *Error {
	return &Error{Kind: KindResolution, Subject: target, Err: ErrPeerNotFound}
}

// ResolutionFailed wraps any other remote failure during resolution
func ResolutionFailed(target string, cause error) *Error {
	return &Error{Kind: KindResolution, Subject: target, Message: "resolution failed", Err: cause}
}

// FetchFailed wraps an unrecoverable failure while paging history
func FetchFailed(target string, cause error) *Error {
	return &Error{Kind: KindFetch, Subject: target, Message: "fetch failed", Err: cause}
}

// Validation reports malformed user input
func Validation(subject, format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Subject: subject, Message: fmt.Sprintf(format, args...)}
}

// Persistence wraps a failure writing an artifact
func Persistence(path string, cause error) *Error {
	return &Error{Kind: KindPersistence, Subject: path, Message: "write failed", Err: cause}
}

// RateLimitError is the recoverable "slow down" signal. RetryAfter is zero
// when the platform did not say how long to wait.
type RateLimitError struct {
	Platform   string
	RetryAfter time.Duration
	Err        error
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s rate limited, retry after %s", e.Platform, e.RetryAfter)
	}
	return fmt.Sprintf("%s rate limited", e.Platform)
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first classified error in err's chain
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return KindRateLimit, true
	}
	return "", false
}

// IsKind reports whether err carries the given kind
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// AsRateLimit extracts a rate-limit signal from err
func AsRateLimit(err error) (*RateLimitError, bool) {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return rl, true
	}
	return nil, false
}
