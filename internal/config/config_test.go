package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
search_url: "https://www.linkedin.com/jobs/search/?keywords=go"
poll_interval: 500ms
workers: 4
data_dir: /var/lib/jobwatch
fingerprint:
  params: [keywords, geoId]
store:
  backend: sqlite
oracle:
  model: qwen2.5-7b
  affirmative_tokens: [KEEP]
  max_per_second: 1.5
filters:
  title_exclude_keywords:
    - intern
notification:
  type: slack
  webhook_url: https://hooks.slack.com/services/T/B/X
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PollInterval != 500*time.Millisecond {
		t.Errorf("PollInterval = %v, want 500ms", cfg.PollInterval)
	}
	if cfg.Workers != 4 {
		t.Errorf("Workers = %d, want 4", cfg.Workers)
	}
	if len(cfg.Fingerprint.Params) != 2 || cfg.Fingerprint.Params[1] != "geoId" {
		t.Errorf("Fingerprint.Params = %v", cfg.Fingerprint.Params)
	}
	if cfg.Store.Backend != "sqlite" || cfg.Store.Path != "/var/lib/jobwatch/jobs.db" {
		t.Errorf("Store = %+v", cfg.Store)
	}
	if cfg.Store.StatsPath != "/var/lib/jobwatch/stats.json" {
		t.Errorf("StatsPath = %q", cfg.Store.StatsPath)
	}
	if cfg.Oracle.Model != "qwen2.5-7b" || cfg.Oracle.AffirmativeTokens[0] != "KEEP" || cfg.Oracle.MaxPerSecond != 1.5 {
		t.Errorf("Oracle = %+v", cfg.Oracle)
	}
	if len(cfg.Filters.TitleExcludeKeywords) != 1 || cfg.Filters.TitleExcludeKeywords[0] != "intern" {
		t.Errorf("TitleExcludeKeywords = %v", cfg.Filters.TitleExcludeKeywords)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `search_url: "https://www.linkedin.com/jobs/search/"`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.PollInterval != 800*time.Millisecond {
		t.Errorf("PollInterval = %v, want 800ms", cfg.PollInterval)
	}
	if cfg.Workers != 2 || cfg.MinContentLength != 10 {
		t.Errorf("Workers/MinContentLength = %d/%d, want 2/10", cfg.Workers, cfg.MinContentLength)
	}
	if cfg.ShutdownTimeout != 2*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 2s", cfg.ShutdownTimeout)
	}
	if cfg.Source != "linkedin" {
		t.Errorf("Source = %q", cfg.Source)
	}
	if cfg.Browser.RearmAttempts != 3 || cfg.Browser.RearmDelay != 800*time.Millisecond || cfg.Browser.StartupDelay != 2*time.Second {
		t.Errorf("Browser = %+v", cfg.Browser)
	}
	if cfg.Store.Backend != "json" || cfg.Store.Path != "jobs_db.json" || cfg.Store.DescriptionMax != 4000 {
		t.Errorf("Store = %+v", cfg.Store)
	}
	if cfg.Oracle.BaseURL != "http://localhost:1234/v1" || cfg.Oracle.Model != "google/gemma-3n-e4b" {
		t.Errorf("Oracle = %+v", cfg.Oracle)
	}
	if cfg.Oracle.Timeout != 120*time.Second {
		t.Errorf("Oracle.Timeout = %v, want 120s", cfg.Oracle.Timeout)
	}
	if cfg.Oracle.ContextFile != "user_context.txt" {
		t.Errorf("ContextFile = %q", cfg.Oracle.ContextFile)
	}
	if cfg.Notification.Type != "log" {
		t.Errorf("Notification.Type = %q, want log", cfg.Notification.Type)
	}
}

func TestLoad_ZeroMinContentLengthIsKept(t *testing.T) {
	cfg, err := Load(writeConfig(t, "min_content_length: 0\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MinContentLength != 0 {
		t.Errorf("MinContentLength = %d, want 0", cfg.MinContentLength)
	}
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("JOBWATCH_TEST_KEY", "sk-secret")
	cfg, err := Load(writeConfig(t, "oracle:\n  api_key: ${JOBWATCH_TEST_KEY}\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Oracle.APIKey != "sk-secret" {
		t.Errorf("APIKey = %q", cfg.Oracle.APIKey)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml")); err == nil {
		t.Fatal("Load: expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "poll_interval: [broken")); err == nil {
		t.Fatal("Load: expected error for invalid YAML")
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"bad duration", "poll_interval: soon\n", "poll_interval"},
		{"negative interval", "poll_interval: -1s\n", "poll_interval must be positive"},
		{"too many workers", "workers: 100\n", "workers must be between"},
		{"unknown backend", "store:\n  backend: mongo\n", "store.backend"},
		{"slack without webhook", "notification:\n  type: slack\n", "webhook_url is required"},
		{"slack wrong host", "notification:\n  type: slack\n  webhook_url: https://example.com/hook\n", "must start with"},
		{"unknown notifier", "notification:\n  type: email\n", "notification.type"},
		{"negative rate", "oracle:\n  max_per_second: -1\n", "max_per_second"},
		{"bad oracle timeout", "oracle:\n  timeout: forever\n", "oracle.timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestUserContext(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{Oracle: OracleConfig{ContextFile: filepath.Join(dir, "ctx.txt")}}

	got, err := cfg.UserContext()
	if err != nil || got != "" {
		t.Fatalf("missing file: got %q, %v", got, err)
	}

	if err := os.WriteFile(cfg.Oracle.ContextFile, []byte("  Go developer in Brussels\n"), 0644); err != nil {
		t.Fatal(err)
	}
	got, err = cfg.UserContext()
	if err != nil || got != "Go developer in Brussels" {
		t.Fatalf("got %q, %v", got, err)
	}
}

func TestRequireSearchURL(t *testing.T) {
	if err := (&Config{}).RequireSearchURL(); err == nil {
		t.Error("expected error for empty search_url")
	}
	if err := (&Config{SearchURL: "https://x"}).RequireSearchURL(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
