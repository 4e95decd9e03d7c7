package telegram

import (
	"time"

	"github.com/gotd/td/tgerr"

	errs "chatdump/pkg/errors"
)

// Platform is the name used in logs, metrics and errors
const Platform = "telegram"

const floodWaitCode = 420

// translate turns FLOOD_WAIT_X and any other 420 (SLOWMODE_WAIT_X and
// friends) into a rate-limit signal. A 420 without an argument carries no
// wait so the backoff controller falls back to its default.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if d, ok := tgerr.AsFloodWait(err); ok {
		return &errs.RateLimitError{Platform: Platform, RetryAfter: d, Err: err}
	}
	if rpcErr, ok := tgerr.As(err); ok && rpcErr.Code == floodWaitCode {
		return &errs.RateLimitError{
			Platform:   Platform,
			RetryAfter: time.Duration(rpcErr.Argument) * time.Second,
			Err:        err,
		}
	}
	return err
}

// isUnknownUsername reports the RPC errors Telegram returns for names
// that do not belong to anyone
func isUnknownUsername(err error) bool {
	return tgerr.Is(err, "USERNAME_NOT_OCCUPIED", "USERNAME_INVALID")
}
