package notifier

import (
	"log/slog"

	"github.com/amishk599/jobwatch/internal/model"
)

// Ensure LogNotifier implements model.Notifier.
var _ model.Notifier = (*LogNotifier)(nil)

// LogNotifier writes newly retained jobs to the given logger as structured messages.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier that logs each result via slog.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs each result with company, title, location, link and verdict.
// Returns nil (stdout logging does not fail).
func (n *LogNotifier) Notify(results []model.AnalysisResult) error {
	for _, r := range results {
		args := []any{
			"job_id", r.JobID,
			"company", r.Company,
			"title", r.Title,
			"location", r.Location,
			"link", r.Link,
			"verdict", r.Analysis.FirstLine,
		}
		if score, ok := r.Analysis.Parsed["relevance_score"]; ok {
			args = append(args, "relevance_score", score)
		}
		n.logger.Info("job retained", args...)
	}
	return nil
}
