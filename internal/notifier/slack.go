package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/amishk599/jobwatch/internal/model"
)

// Ensure SlackNotifier implements model.Notifier.
var _ model.Notifier = (*SlackNotifier)(nil)

// SlackNotifier sends retained-job alerts to a Slack channel via Incoming Webhooks.
type SlackNotifier struct {
	webhookURL string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewSlackNotifier returns a notifier that posts each result to Slack via webhook.
func NewSlackNotifier(webhookURL string, httpClient *http.Client, logger *slog.Logger) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Notify sends each result as a separate Slack message using Block Kit.
// Returns an error only if ALL messages fail. Individual failures are logged.
func (s *SlackNotifier) Notify(results []model.AnalysisResult) error {
	if len(results) == 0 {
		return nil
	}

	failures := 0
	for i, r := range results {
		if i > 0 {
			time.Sleep(500 * time.Millisecond)
		}

		if err := s.sendMessage(r); err != nil {
			s.logger.Error("slack notification failed", "job_id", r.JobID, "title", r.Title, "error", err)
			failures++
		}
	}

	if failures == len(results) {
		return fmt.Errorf("all %d slack notifications failed", failures)
	}
	s.logger.Debug("slack notifications complete", "sent", len(results)-failures, "failed", failures)
	return nil
}

func (s *SlackNotifier) sendMessage(r model.AnalysisResult) error {
	body, err := json.Marshal(buildPayload(r))
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	resp, err := s.httpClient.Post(s.webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("post to slack: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		secs, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
		if secs <= 0 {
			secs = 1
		}
		s.logger.Warn("slack rate limited, retrying", "retry_after_secs", secs)
		time.Sleep(time.Duration(secs) * time.Second)

		resp2, err := s.httpClient.Post(s.webhookURL, "application/json", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("post to slack (retry): %w", err)
		}
		defer resp2.Body.Close()

		if resp2.StatusCode != http.StatusOK {
			return fmt.Errorf("slack returned %d on retry", resp2.StatusCode)
		}
		return nil
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack returned %d", resp.StatusCode)
	}
	return nil
}

// Block Kit payload types.

type slackPayload struct {
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type     string         `json:"type"`
	Text     *slackText     `json:"text,omitempty"`
	Fields   []slackText    `json:"fields,omitempty"`
	Elements []slackElement `json:"elements,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackElement struct {
	Type  string    `json:"type"`
	Text  slackText `json:"text"`
	URL   string    `json:"url"`
	Style string    `json:"style"`
}

// SendTestMessage sends a dummy result to verify the integration works.
func SendTestMessage(n model.Notifier) error {
	test := model.AnalysisResult{
		JobID:    "test-001",
		Company:  "jobwatch",
		Title:    "Test notification",
		Location: "Everywhere",
		Link:     "https://www.linkedin.com/jobs/",
		Analysis: model.Analysis{
			FirstLine: "OUI",
			Parsed:    map[string]any{"relevance_score": 10, "reasons": []any{"integration verified"}},
		},
		ShouldSave:        true,
		AnalyzedAt:        time.Now().UTC(),
		Source:            "test",
		ApplicationResult: model.ResultNoResponse,
	}
	return n.Notify([]model.AnalysisResult{test})
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func buildPayload(r model.AnalysisResult) slackPayload {
	analyzed := "Just now"
	if !r.AnalyzedAt.IsZero() {
		analyzed = r.AnalyzedAt.Local().Format(time.RFC1123)
	}

	company := capitalize(r.Company)

	blocks := []slackBlock{
		{
			Type: "header",
			Text: &slackText{Type: "plain_text", Text: "✅ " + company + ": " + r.Title},
		},
		{
			Type: "section",
			Fields: []slackText{
				{Type: "mrkdwn", Text: "*Company:*\n" + company},
				{Type: "mrkdwn", Text: "*Location:*\n" + r.Location},
			},
		},
		{
			Type: "section",
			Fields: []slackText{
				{Type: "mrkdwn", Text: "*Analyzed:*\n" + analyzed},
				{Type: "mrkdwn", Text: "*Source:*\n" + capitalize(r.Source)},
			},
		},
	}

	if summary := analysisSummary(r.Analysis); summary != "" {
		blocks = append(blocks, slackBlock{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: summary},
		})
	}

	blocks = append(blocks,
		slackBlock{
			Type: "actions",
			Elements: []slackElement{
				{
					Type:  "button",
					Text:  slackText{Type: "plain_text", Text: "Open posting"},
					URL:   r.Link,
					Style: "primary",
				},
			},
		},
		slackBlock{Type: "divider"},
	)

	return slackPayload{Blocks: blocks}
}

// analysisSummary renders the verdict line and the parsed payload keys in
// sorted order, at most five of them.
func analysisSummary(a model.Analysis) string {
	if a.FirstLine == "" && len(a.Parsed) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("*Verdict:* " + a.FirstLine)

	keys := make([]string, 0, len(a.Parsed))
	for k := range a.Parsed {
		if k == "should_save" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > 5 {
		keys = keys[:5]
	}
	for _, k := range keys {
		fmt.Fprintf(&b, "\n• *%s:* %s", k, formatValue(a.Parsed[k]))
	}
	return b.String()
}

func formatValue(v any) string {
	switch x := v.(type) {
	case []any:
		parts := make([]string, 0, len(x))
		for _, e := range x {
			parts = append(parts, fmt.Sprint(e))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(x)
	}
}
