package filter

import (
	"strings"

	"github.com/amishk599/jobwatch/internal/model"
)

// Ensure the filters implement model.CaptureFilter.
var (
	_ model.CaptureFilter = (*CompletenessFilter)(nil)
	_ model.CaptureFilter = (*KeywordFilter)(nil)
	_ model.CaptureFilter = All(nil)
)

// CompletenessFilter matches captures carrying enough text to be worth
// classifying. Partially rendered panes usually fail it.
type CompletenessFilter struct {
	min int
}

// NewCompletenessFilter requires len(title)+len(company)+len(description) >= min.
func NewCompletenessFilter(min int) *CompletenessFilter {
	return &CompletenessFilter{min: min}
}

// Match reports whether the capture meets the minimum content length.
func (f *CompletenessFilter) Match(c model.JobCapture) bool {
	return c.ContentLength() >= f.min
}

// KeywordFilter matches captures whose title contains any of the title
// keywords, contains none of the excluded keywords, and whose location
// contains any of the location keywords. Matching is case-insensitive.
// Empty include lists are treated as "match all".
type KeywordFilter struct {
	titleKeywords []string
	excluded      []string
	locations     []string
}

// NewKeywordFilter returns a filter over title and location keywords
// (case-insensitive substring).
func NewKeywordFilter(titleKeywords, excluded, locations []string) *KeywordFilter {
	return &KeywordFilter{
		titleKeywords: lowerAll(titleKeywords),
		excluded:      lowerAll(excluded),
		locations:     lowerAll(locations),
	}
}

// Match applies the include, exclude and location rules in that order.
func (f *KeywordFilter) Match(c model.JobCapture) bool {
	titleLower := strings.ToLower(c.Title)

	if len(f.titleKeywords) > 0 && !containsAny(titleLower, f.titleKeywords) {
		return false
	}
	if containsAny(titleLower, f.excluded) {
		return false
	}
	if len(f.locations) > 0 && !containsAny(strings.ToLower(c.Location), f.locations) {
		return false
	}
	return true
}

// All matches a capture only when every filter matches it.
type All []model.CaptureFilter

// Match reports whether every filter in the chain matches.
func (a All) Match(c model.JobCapture) bool {
	for _, f := range a {
		if !f.Match(c) {
			return false
		}
	}
	return true
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
