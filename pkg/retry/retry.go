package retry

import (
	"context"
	"fmt"
	"time"

	errs "chatdump/pkg/errors"
	"chatdump/pkg/logger"
)

// Operation is a function that performs an operation that might need retrying
type Operation func() error

// OperationWithResult is a function that returns a result and might need retrying
type OperationWithResult[T any] func() (T, error)

// Classifier decides whether err is a rate-limit signal. wait is the
// server-mandated pause, or zero when the signal carried none.
type Classifier func(err error) (wait time.Duration, limited bool)

// Config holds backoff configuration
type Config struct {
	// MaxAttempts is the maximum number of attempts (0 means unlimited)
	MaxAttempts int
	// Fallback supplies the pause when the signal names no duration
	Fallback BackoffStrategy
	// Classify separates rate-limit signals from fatal errors
	Classify Classifier
	// OnWait is called before each pause
	OnWait func(attempt int, wait time.Duration, err error)
	// Sleep pauses; tests replace it to avoid real waits
	Sleep func(ctx context.Context, d time.Duration) error
	// Logger for backoff events
	Logger logger.Logger
}

// DefaultConfig waits out every rate-limit signal, forever
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts: 0,
		Fallback:    &ConstantBackoff{Delay: DefaultWait},
		Classify:    ClassifyRateLimit,
		Sleep:       Wait,
		Logger:      logger.GetLogger(),
	}
}

// ClassifyRateLimit recognises errs.RateLimitError anywhere in the chain.
// Platform clients translate their own signals into that type.
func ClassifyRateLimit(err error) (time.Duration, bool) {
	rl, ok := errs.AsRateLimit(err)
	if !ok {
		return 0, false
	}
	return rl.RetryAfter, true
}

func (c *Config) withDefaults() *Config {
	out := *c
	if out.Fallback == nil {
		out.Fallback = &ConstantBackoff{Delay: DefaultWait}
	}
	if out.Classify == nil {
		out.Classify = ClassifyRateLimit
	}
	if out.Sleep == nil {
		out.Sleep = Wait
	}
	if out.Logger == nil {
		out.Logger = logger.NewNopLogger()
	}
	return &out
}

// Do runs op, re-issuing it after every rate-limit signal. Any other error
// is returned as is. The context is checked before every attempt, so a
// cancelled batch issues no further requests.
func Do(ctx context.Context, op Operation, cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg = cfg.withDefaults()

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := op()
		if err == nil {
			if attempt > 1 {
				cfg.Logger.DebugWithFields("operation succeeded after backoff", map[string]interface{}{
					"attempt": attempt,
				})
			}
			return nil
		}

		wait, limited := cfg.Classify(err)
		if !limited {
			return err
		}

		if cfg.MaxAttempts > 0 && attempt >= cfg.MaxAttempts {
			cfg.Logger.ErrorWithFields("rate limit outlasted max attempts", map[string]interface{}{
				"attempts": attempt,
			})
			return fmt.Errorf("rate limit persisted after %d attempts: %w", attempt, err)
		}

		if wait <= 0 {
			wait = cfg.Fallback.NextDelay(attempt)
		}

		if cfg.OnWait != nil {
			cfg.OnWait(attempt, wait, err)
		}

		cfg.Logger.WarnWithFields("rate limited, waiting before retry", map[string]interface{}{
			"attempt": attempt,
			"wait":    wait,
		})

		if err := cfg.Sleep(ctx, wait); err != nil {
			return fmt.Errorf("backoff interrupted: %w", err)
		}
	}
}

// DoWithResult is Do for operations that return a value
func DoWithResult[T any](ctx context.Context, op OperationWithResult[T], cfg *Config) (T, error) {
	var result T

	err := Do(ctx, func() error {
		var opErr error
		result, opErr = op()
		return opErr
	}, cfg)

	return result, err
}
