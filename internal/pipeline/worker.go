package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/amishk599/jobwatch/internal/fingerprint"
	"github.com/amishk599/jobwatch/internal/markup"
	"github.com/amishk599/jobwatch/internal/model"
	"github.com/amishk599/jobwatch/internal/queue"
	"github.com/amishk599/jobwatch/internal/stats"
)

// Outcome is what a worker did with one capture.
type Outcome int

const (
	OutcomeIncomplete Outcome = iota
	OutcomeStale
	OutcomeFiltered
	OutcomeOracleFailed
	OutcomeRejected
	OutcomeRetained
	OutcomeDuplicate
	OutcomeStoreFailed
)

var outcomeNames = [...]string{
	OutcomeIncomplete:   "incomplete",
	OutcomeStale:        "stale",
	OutcomeFiltered:     "filtered",
	OutcomeOracleFailed: "oracle_failed",
	OutcomeRejected:     "rejected",
	OutcomeRetained:     "retained",
	OutcomeDuplicate:    "duplicate",
	OutcomeStoreFailed:  "store_failed",
}

func (o Outcome) String() string {
	if int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return "unknown"
}

// PoolDeps are the collaborators shared by every worker.
type PoolDeps struct {
	Queue      *queue.Queue
	Tracker    *fingerprint.Tracker
	Complete   model.CaptureFilter // completeness gate
	Filter     model.CaptureFilter // optional prefilter, nil = pass all
	Classifier model.Classifier
	Store      model.ResultStore
	Stats      *stats.Aggregator
	Notifier   model.Notifier // optional
	Logger     *slog.Logger
}

// Pool runs the classification workers. Each worker pops captures until it
// receives a shutdown message.
type Pool struct {
	PoolDeps
	source         string
	descriptionMax int
	now            func() time.Time
}

// NewPool creates a worker pool. source tags stored results (e.g. "linkedin")
// and descriptionMax bounds the stored description excerpt in runes.
func NewPool(deps PoolDeps, source string, descriptionMax int) *Pool {
	return &Pool{
		PoolDeps:       deps,
		source:         source,
		descriptionMax: descriptionMax,
		now:            time.Now,
	}
}

// Work is the loop of worker id. It returns when a shutdown message is popped.
// ctx bounds oracle calls only; cancelling it does not stop the loop.
func (p *Pool) Work(ctx context.Context, id int) {
	logger := p.Logger.With("worker", id)
	logger.Debug("worker started")

	for {
		msg := p.Queue.Pop()
		if msg.IsShutdown() {
			logger.Debug("worker stopping")
			return
		}
		p.process(ctx, logger, msg.Capture)
	}
}

// process runs one capture through gating, classification and persistence.
func (p *Pool) process(ctx context.Context, logger *slog.Logger, c model.JobCapture) Outcome {
	logger = logger.With("job_id", c.ID)

	if !p.Complete.Match(c) {
		logger.Debug("skipping incomplete capture", "content_length", c.ContentLength())
		return OutcomeIncomplete
	}

	if live := p.Tracker.Current(); c.OriginFP != live {
		logger.Info("skipping capture from previous search",
			"origin_fp", c.OriginFP,
			"current_fp", live,
		)
		return OutcomeStale
	}

	if p.Filter != nil && !p.Filter.Match(c) {
		logger.Info("capture filtered out", "title", c.Title)
		return OutcomeFiltered
	}

	logger.Info("analyzing capture", "title", truncateForLog(c.Title), "company", c.Company)
	verdict, err := p.Classifier.Classify(ctx, c)
	if err != nil {
		logger.Error("oracle call failed, dropping capture", "error", err)
		return OutcomeOracleFailed
	}
	p.Stats.RecordAnalyzed()

	if !verdict.Retain {
		logger.Info("not recommended", "verdict", verdict.Analysis.FirstLine)
		return OutcomeRejected
	}

	result := p.buildResult(c, verdict)
	outcome, err := p.Store.Insert(result)
	if err != nil {
		logger.Error("store insert failed", "error", err)
		return OutcomeStoreFailed
	}
	if outcome == model.AlreadyPresent {
		logger.Info("already stored, skipping")
		return OutcomeDuplicate
	}

	p.Stats.RecordRetained()
	logger.Info("capture retained", "title", truncateForLog(c.Title))

	if p.Notifier != nil {
		if err := p.Notifier.Notify([]model.AnalysisResult{result}); err != nil {
			logger.Error("notification failed", "error", err)
		}
	}
	return OutcomeRetained
}

func (p *Pool) buildResult(c model.JobCapture, v model.Verdict) model.AnalysisResult {
	return model.AnalysisResult{
		JobID:              c.ID,
		Link:               c.Link,
		Title:              c.Title,
		Company:            c.Company,
		Location:           c.Location,
		DescriptionSnippet: markup.Excerpt(c.DescriptionHTML, p.descriptionMax),
		Analysis:           v.Analysis,
		ShouldSave:         v.Retain,
		AnalyzedAt:         p.now().UTC(),
		Applied:            false,
		Source:             p.source,
		ApplicationResult:  model.ResultNoResponse,
	}
}

func truncateForLog(s string) string {
	return markup.Truncate(s, 120)
}
