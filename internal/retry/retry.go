package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/amishk599/jobwatch/internal/model"
)

// Attempt performs one try of an idempotent operation and reports whether it
// succeeded. A false result with a nil error is a plain "not yet".
type Attempt func(ctx context.Context) (bool, error)

// Rearmer retries an idempotent activation a bounded number of times with a
// fixed delay between tries.
type Rearmer struct {
	attempts int
	delay    time.Duration
	logger   *slog.Logger
}

// NewRearmer returns a Rearmer. attempts below one are treated as one.
func NewRearmer(attempts int, delay time.Duration, logger *slog.Logger) *Rearmer {
	if attempts < 1 {
		attempts = 1
	}
	return &Rearmer{
		attempts: attempts,
		delay:    delay,
		logger:   logger,
	}
}

// Do runs fn until it succeeds or attempts are exhausted. Exhaustion returns
// an error wrapping model.ErrInjectionFailed; callers treat it as soft.
func (r *Rearmer) Do(ctx context.Context, fn Attempt) error {
	var lastErr error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		ok, err := fn(ctx)
		if ok {
			if attempt > 1 {
				r.logger.Info("capture hook armed", "attempt", attempt)
			}
			return nil
		}
		lastErr = err

		r.logger.Warn("capture hook not active",
			"attempt", attempt,
			"max_attempts", r.attempts,
			"error", err,
		)

		if attempt == r.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("rearm cancelled: %w", ctx.Err())
		case <-time.After(r.delay):
		}
	}

	if lastErr != nil {
		return fmt.Errorf("%w after %d attempts: %w", model.ErrInjectionFailed, r.attempts, lastErr)
	}
	return fmt.Errorf("%w after %d attempts", model.ErrInjectionFailed, r.attempts)
}
