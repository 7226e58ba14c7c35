package model

import (
	"context"
	"time"
)

// RawCapture is a job-detail snapshot exactly as the in-page watcher queued it.
// Any field may be missing; the ingestion loop normalizes it into a JobCapture.
type RawCapture struct {
	Title           string `json:"title"`
	Company         string `json:"company"`
	CompanyMethod   string `json:"company_method,omitempty"`
	Location        string `json:"location"`
	DescriptionHTML string `json:"description_html"`
	Link            string `json:"link"`
	PlatformID      string `json:"job_id"`
	CapturedAtMS    int64  `json:"ts"`
}

// JobCapture is one normalized snapshot travelling through the pipeline.
// ID and OriginFP are stamped by the ingestion loop before enqueueing.
type JobCapture struct {
	ID              string    `json:"job_id"`
	Title           string    `json:"title"`
	Company         string    `json:"company"`
	Location        string    `json:"location"`
	DescriptionHTML string    `json:"description_html"`
	Link            string    `json:"link"`
	PlatformID      string    `json:"-"`
	CapturedAt      time.Time `json:"captured_at"`
	OriginFP        string    `json:"origin_fp"`
}

// ContentLength is the combined size of the fields the completeness check looks at.
func (c JobCapture) ContentLength() int {
	return len(c.Title) + len(c.Company) + len(c.DescriptionHTML)
}

// Application lifecycle values for AnalysisResult.ApplicationResult.
const (
	ResultNoResponse = "no_response"
	ResultAccepted   = "accepted"
	ResultRejected   = "rejected"
)

// Analysis holds the oracle's answer for one capture.
type Analysis struct {
	RawOutput string         `json:"raw_output"`
	FirstLine string         `json:"first_line"`
	Parsed    map[string]any `json:"parsed"`
}

// AnalysisResult is the document persisted for a retained capture.
type AnalysisResult struct {
	JobID              string    `json:"job_id"`
	Link               string    `json:"link"`
	Title              string    `json:"title"`
	Company            string    `json:"company"`
	Location           string    `json:"location"`
	DescriptionSnippet string    `json:"description_html_snippet"`
	Analysis           Analysis  `json:"analysis"`
	ShouldSave         bool      `json:"should_save"`
	AnalyzedAt         time.Time `json:"analyzed_at"`
	Applied            bool      `json:"applied"`
	Source             string    `json:"source"`
	ApplicationResult  string    `json:"application_result"`
}

// Verdict is the parsed classification of one capture.
type Verdict struct {
	Retain   bool
	Analysis Analysis
}

// InsertOutcome reports what a store insert did.
type InsertOutcome int

const (
	Inserted InsertOutcome = iota
	AlreadyPresent
)

func (o InsertOutcome) String() string {
	if o == AlreadyPresent {
		return "already_present"
	}
	return "inserted"
}

// CaptureSource is the live browsing session jobs are captured from.
type CaptureSource interface {
	// EnsureActive installs the capture hook if it is not already present and
	// reports whether it is active afterwards. Safe to call repeatedly.
	EnsureActive(ctx context.Context) (bool, error)
	// Drain returns and clears every capture queued since the last call.
	Drain(ctx context.Context) ([]RawCapture, error)
	// CurrentURL returns the address of the page being browsed.
	CurrentURL(ctx context.Context) (string, error)
	Close() error
}

// Classifier asks the oracle whether a capture is worth keeping.
type Classifier interface {
	Classify(ctx context.Context, capture JobCapture) (Verdict, error)
}

// ResultStore persists retained analysis results, first write wins.
type ResultStore interface {
	Insert(result AnalysisResult) (InsertOutcome, error)
	Get(jobID string) (AnalysisResult, bool, error)
	List() ([]AnalysisResult, error)
	SetApplied(jobID string, applied bool) error
	SetApplicationResult(jobID string, result string) error
}

// Notifier sends notifications for newly retained jobs.
type Notifier interface {
	Notify(results []AnalysisResult) error
}

// CaptureFilter decides whether a capture should be sent to the oracle.
type CaptureFilter interface {
	Match(capture JobCapture) bool
}
