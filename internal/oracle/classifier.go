package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"text/template"
	"time"

	"github.com/amishk599/jobwatch/internal/model"
)

// Ensure LLMClassifier implements model.Classifier.
var _ model.Classifier = (*LLMClassifier)(nil)

// LLMClassifier implements model.Classifier by prompting an LLM with the
// user's context and the full capture record.
type LLMClassifier struct {
	provider    LLMProvider
	tmpl        *template.Template
	userContext string
	tokens      []string
	timeout     time.Duration
	logger      *slog.Logger
}

// Option configures an LLMClassifier.
type Option func(*LLMClassifier)

// WithAffirmativeTokens overrides the line-1 tokens that mean "retain".
func WithAffirmativeTokens(tokens []string) Option {
	return func(c *LLMClassifier) {
		if len(tokens) > 0 {
			c.tokens = tokens
		}
	}
}

// WithTimeout bounds every oracle call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *LLMClassifier) { c.timeout = d }
}

// NewLLMClassifier creates a classifier. userContext is prepended to every
// prompt and usually describes the candidate's profile.
func NewLLMClassifier(provider LLMProvider, tmpl *template.Template, userContext string, logger *slog.Logger, opts ...Option) *LLMClassifier {
	c := &LLMClassifier{
		provider:    provider,
		tmpl:        tmpl,
		userContext: userContext,
		tokens:      DefaultAffirmativeTokens,
		logger:      logger,
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify asks the LLM about capture. Any call failure is returned as an
// error and the caller drops the record.
func (c *LLMClassifier) Classify(ctx context.Context, capture model.JobCapture) (model.Verdict, error) {
	record, err := json.MarshalIndent(capture, "", "  ")
	if err != nil {
		return model.Verdict{}, fmt.Errorf("encode capture %s: %w", capture.ID, err)
	}

	var promptBuf bytes.Buffer
	if err := c.tmpl.Execute(&promptBuf, struct {
		UserContext string
		Record      string
	}{
		UserContext: c.userContext,
		Record:      string(record),
	}); err != nil {
		return model.Verdict{}, fmt.Errorf("render prompt: %w", err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	raw, err := c.provider.Complete(ctx, promptBuf.String())
	if err != nil {
		return model.Verdict{}, fmt.Errorf("llm complete: %w", err)
	}

	v := ParseVerdict(raw, c.tokens)
	c.logger.Debug("oracle answered",
		"job_id", capture.ID,
		"first_line", v.Analysis.FirstLine,
		"retain", v.Retain,
		"took", time.Since(start).Round(time.Millisecond),
	)
	return v, nil
}
