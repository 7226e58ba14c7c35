package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/amishk599/jobwatch/internal/fingerprint"
	"github.com/amishk599/jobwatch/internal/identity"
	"github.com/amishk599/jobwatch/internal/model"
	"github.com/amishk599/jobwatch/internal/queue"
	"github.com/amishk599/jobwatch/internal/retry"
)

// Loop is the single producer: every tick it follows the browsing context,
// drains the capture source and enqueues stamped captures.
type Loop struct {
	source   model.CaptureSource
	tracker  *fingerprint.Tracker
	resolver *identity.Resolver
	rearmer  *retry.Rearmer
	queue    *queue.Queue
	interval time.Duration
	logger   *slog.Logger

	lastFP string
}

// NewLoop creates an ingestion loop ticking every interval.
func NewLoop(
	source model.CaptureSource,
	tracker *fingerprint.Tracker,
	resolver *identity.Resolver,
	rearmer *retry.Rearmer,
	q *queue.Queue,
	interval time.Duration,
	logger *slog.Logger,
) *Loop {
	return &Loop{
		source:   source,
		tracker:  tracker,
		resolver: resolver,
		rearmer:  rearmer,
		queue:    q,
		interval: interval,
		logger:   logger,
	}
}

// Prime arms the capture hook and records the initial fingerprint. Called
// once before workers start.
func (l *Loop) Prime(ctx context.Context) {
	l.arm(ctx)

	url, err := l.source.CurrentURL(ctx)
	if err != nil {
		l.logger.Warn("reading initial page url", "error", err)
	}
	l.lastFP = l.tracker.Compute(url)
	l.tracker.Update(l.lastFP)
	l.logger.Info("initial fingerprint", "fp", l.lastFP, "url", url)
}

// Run ticks until ctx is cancelled. It returns nil on cancellation (graceful
// shutdown).
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info("starting ingestion loop", "interval", l.interval.String())

	for {
		l.Tick(ctx)

		select {
		case <-ctx.Done():
			l.logger.Info("shutting down ingestion loop")
			return nil
		case <-time.After(l.interval):
		}
	}
}

// Tick runs one cycle: context check, drain, normalize, stamp, enqueue.
// Errors from the source are logged and retried on the next tick.
func (l *Loop) Tick(ctx context.Context) int {
	if ctx.Err() != nil {
		return 0
	}

	l.followContext(ctx)

	batch, err := l.source.Drain(ctx)
	if err != nil {
		l.logger.Warn("draining capture queue", "error", err)
		return 0
	}
	if len(batch) == 0 {
		return 0
	}
	l.logger.Info("captures received", "count", len(batch))

	now := time.Now()
	for _, raw := range batch {
		c := Normalize(raw, now)
		c.OriginFP = l.lastFP
		c.ID = l.resolver.Resolve(c)

		l.logger.Info("enqueued",
			"job_id", c.ID,
			"title", truncateForLog(c.Title),
			"company", c.Company,
			"origin_fp", c.OriginFP,
		)
		l.queue.Push(queue.Data(c))
	}
	return len(batch)
}

// followContext publishes a new fingerprint and re-arms the capture hook when
// the user navigated to a different search.
func (l *Loop) followContext(ctx context.Context) {
	url, err := l.source.CurrentURL(ctx)
	if err != nil {
		l.logger.Warn("reading page url", "error", err)
		return
	}

	fp := l.tracker.Compute(url)
	if fp == l.lastFP {
		return
	}

	l.logger.Info("search context changed", "from", l.lastFP, "to", fp)
	l.lastFP = fp
	l.tracker.Update(fp)
	l.arm(ctx)
}

func (l *Loop) arm(ctx context.Context) {
	err := l.rearmer.Do(ctx, l.source.EnsureActive)
	if err != nil {
		l.logger.Error("capture hook unavailable until next context change", "error", err)
	}
}

// Normalize turns a raw capture into a pipeline record. Missing strings are
// already empty after decoding; a missing timestamp becomes now.
func Normalize(raw model.RawCapture, now time.Time) model.JobCapture {
	captured := now
	if raw.CapturedAtMS > 0 {
		captured = time.UnixMilli(raw.CapturedAtMS)
	}
	return model.JobCapture{
		Title:           raw.Title,
		Company:         raw.Company,
		Location:        raw.Location,
		DescriptionHTML: raw.DescriptionHTML,
		Link:            raw.Link,
		PlatformID:      raw.PlatformID,
		CapturedAt:      captured,
	}
}
