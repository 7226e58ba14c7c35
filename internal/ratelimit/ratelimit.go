package ratelimit

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/amishk599/jobwatch/internal/model"
)

// OracleLimiter caps how many oracle calls the worker pool issues per second.
// One limiter is shared by every worker.
type OracleLimiter struct {
	lim *rate.Limiter
}

// NewOracleLimiter allows perSecond calls per second with a burst of one.
// A non-positive perSecond means no limit.
func NewOracleLimiter(perSecond float64) *OracleLimiter {
	if perSecond <= 0 {
		return &OracleLimiter{lim: rate.NewLimiter(rate.Inf, 0)}
	}
	return &OracleLimiter{lim: rate.NewLimiter(rate.Limit(perSecond), 1)}
}

// Wait blocks until the next call may proceed or ctx is done.
func (l *OracleLimiter) Wait(ctx context.Context) error {
	if err := l.lim.Wait(ctx); err != nil {
		return fmt.Errorf("oracle rate limiter wait: %w", err)
	}
	return nil
}

// RateLimitedClassifier is a decorator that waits on the shared limiter
// before delegating to the wrapped Classifier.
type RateLimitedClassifier struct {
	inner   model.Classifier
	limiter *OracleLimiter
}

// NewRateLimitedClassifier wraps a Classifier with call-rate limiting.
func NewRateLimitedClassifier(inner model.Classifier, limiter *OracleLimiter) *RateLimitedClassifier {
	return &RateLimitedClassifier{
		inner:   inner,
		limiter: limiter,
	}
}

// Classify waits for the limiter to allow a request, then delegates.
func (c *RateLimitedClassifier) Classify(ctx context.Context, capture model.JobCapture) (model.Verdict, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return model.Verdict{}, err
	}
	return c.inner.Classify(ctx, capture)
}
