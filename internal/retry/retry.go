package retry

import (
	"context"
	"time"

	"github.com/jpillora/backoff"

	er "github.com/customeros/mailmigrate/internal/errors"
	"github.com/customeros/mailmigrate/internal/logger"
)

// Executor retries a single IMAP operation with exponential backoff:
// after attempt k (0-indexed) it sleeps baseDelay * 2^k. It wraps one
// operation at a time, never a pipeline stage boundary.
type Executor struct {
	maxRetries int
	baseDelay  time.Duration
	log        logger.Logger
}

func NewExecutor(maxRetries int, baseDelay time.Duration, log logger.Logger) *Executor {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Executor{
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		log:        log,
	}
}

// Do runs fn up to maxRetries times. The last error is returned unchanged so
// its kind survives. A context cancellation during the backoff sleep surfaces
// as an interrupted error immediately.
func (e *Executor) Do(ctx context.Context, op string, fn func() error) error {
	b := &backoff.Backoff{
		Min:    e.baseDelay,
		Max:    e.baseDelay * time.Duration(1<<uint(e.maxRetries)),
		Factor: 2,
		Jitter: false,
	}

	var lastErr error
	for attempt := 0; attempt < e.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return er.Wrap(er.KindInterrupted, op, "", err)
		}

		lastErr = fn()
		if lastErr == nil {
			if attempt > 0 {
				e.log.Debugf("%s succeeded on attempt %d/%d", op, attempt+1, e.maxRetries)
			}
			return nil
		}

		if er.IsFatal(lastErr) || !er.IsRetryable(lastErr) {
			return lastErr
		}

		if attempt < e.maxRetries-1 {
			wait := b.Duration()
			e.log.Warnf("Attempt %d/%d failed: %v. Retrying in %s...",
				attempt+1, e.maxRetries, lastErr, wait)

			select {
			case <-ctx.Done():
				return er.Wrap(er.KindInterrupted, op, "", ctx.Err())
			case <-time.After(wait):
			}
		}
	}

	e.log.Errorf("All %d attempts failed. Last error: %v", e.maxRetries, lastErr)
	return lastErr
}
