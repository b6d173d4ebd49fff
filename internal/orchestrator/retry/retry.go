// Package retry executes round-level operations with bounded retries
// and exponential backoff. Only failures the error package classifies
// as recoverable are retried; everything else surfaces immediately.
package retry

import (
	"context"
	"time"

	"github.com/Iron-Ham/quorum/internal/errors"
	"github.com/Iron-Ham/quorum/internal/logging"
)

// Policy bounds the retry behavior for one operation class.
type Policy struct {
	// MaxRetries is the number of re-attempts after the first failure.
	MaxRetries int
	// BaseDelay is the first backoff delay; it doubles per attempt.
	BaseDelay time.Duration
	// OnRetry, when set, observes each retryable failure before the
	// backoff sleep.
	OnRetry func(attempt int, delay time.Duration, err error)

	Logger *logging.Logger
}

// Do runs fn, retrying recoverable failures with exponential backoff
// until it succeeds, exhausts the retry bound, hits a non-recoverable
// error, or the context ends. The returned error is the last attempt's.
func (p Policy) Do(ctx context.Context, label string, fn func(ctx context.Context) error) error {
	logger := p.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}

	var err error
	for attempt := 0; ; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return err
		}
		if !errors.IsRetryable(err) || attempt >= p.MaxRetries {
			return err
		}

		delay := p.BaseDelay << attempt
		logger.Warn("retrying after recoverable failure",
			"operation", label,
			"attempt", attempt+1,
			"max_retries", p.MaxRetries,
			"delay", delay.String(),
			"error", err)
		if p.OnRetry != nil {
			p.OnRetry(attempt+1, delay, err)
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return err
		}
	}
}
