package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for jobwatch.
type Config struct {
	SearchURL        string
	Source           string
	PollInterval     time.Duration
	Workers          int
	MinContentLength int
	ShutdownTimeout  time.Duration
	DataDir          string
	Fingerprint      FingerprintConfig
	Identity         IdentityConfig
	Browser          BrowserConfig
	Store            StoreConfig
	Oracle           OracleConfig
	Filters          FilterConfig
	Notification     NotificationConfig
}

// FingerprintConfig lists the query parameters that identify a search.
type FingerprintConfig struct {
	Params []string `yaml:"params"`
}

// IdentityConfig lists the link patterns tried, in order, to extract a job id.
type IdentityConfig struct {
	LinkPatterns []string `yaml:"link_patterns"`
}

// BrowserConfig controls the capture browser session.
type BrowserConfig struct {
	Headless      bool
	UserDataDir   string
	RemoteURL     string
	StartupDelay  time.Duration
	RearmAttempts int
	RearmDelay    time.Duration
}

// StoreConfig selects the result store backend and file locations.
type StoreConfig struct {
	Backend        string // "json" or "sqlite"
	Path           string // resolved against DataDir
	StatsPath      string // resolved against DataDir
	DescriptionMax int
}

// OracleConfig controls the classification LLM endpoint.
type OracleConfig struct {
	BaseURL           string
	Model             string
	APIKey            string // expanded from env var by Load
	Timeout           time.Duration
	ContextFile       string // resolved against DataDir
	AffirmativeTokens []string
	MaxPerSecond      float64 // 0 = unlimited
}

// FilterConfig holds keyword and location prefilter settings.
type FilterConfig struct {
	TitleKeywords        []string `yaml:"title_keywords"`
	TitleExcludeKeywords []string `yaml:"title_exclude_keywords"`
	Locations            []string `yaml:"locations"`
}

// NotificationConfig controls which notifier is used and its settings.
type NotificationConfig struct {
	Type       string `yaml:"type"`        // "log" or "slack"
	WebhookURL string `yaml:"webhook_url"` // required if type is "slack"
}

// rawConfig is used for YAML unmarshaling (snake_case fields and durations as strings).
type rawConfig struct {
	SearchURL        string             `yaml:"search_url"`
	Source           string             `yaml:"source"`
	PollInterval     string             `yaml:"poll_interval"`
	Workers          int                `yaml:"workers"`
	MinContentLength *int               `yaml:"min_content_length"`
	ShutdownTimeout  string             `yaml:"shutdown_timeout"`
	DataDir          string             `yaml:"data_dir"`
	Fingerprint      FingerprintConfig  `yaml:"fingerprint"`
	Identity         IdentityConfig     `yaml:"identity"`
	Browser          rawBrowserConfig   `yaml:"browser"`
	Store            rawStoreConfig     `yaml:"store"`
	Oracle           rawOracleConfig    `yaml:"oracle"`
	Filters          FilterConfig       `yaml:"filters"`
	Notification     NotificationConfig `yaml:"notification"`
}

type rawBrowserConfig struct {
	Headless      bool   `yaml:"headless"`
	UserDataDir   string `yaml:"user_data_dir"`
	RemoteURL     string `yaml:"remote_url"`
	StartupDelay  string `yaml:"startup_delay"`
	RearmAttempts int    `yaml:"rearm_attempts"`
	RearmDelay    string `yaml:"rearm_delay"`
}

type rawStoreConfig struct {
	Backend        string `yaml:"backend"`
	Path           string `yaml:"path"`
	StatsPath      string `yaml:"stats_path"`
	DescriptionMax int    `yaml:"description_max"`
}

type rawOracleConfig struct {
	BaseURL           string   `yaml:"base_url"`
	Model             string   `yaml:"model"`
	APIKey            string   `yaml:"api_key"`
	Timeout           string   `yaml:"timeout"`
	ContextFile       string   `yaml:"context_file"`
	AffirmativeTokens []string `yaml:"affirmative_tokens"`
	MaxPerSecond      float64  `yaml:"max_per_second"`
}

const (
	defaultSource          = "linkedin"
	defaultWorkers         = 2
	defaultMinContent      = 10
	defaultRearmAttempts   = 3
	defaultDescriptionMax  = 4000
	defaultOracleBaseURL   = "http://localhost:1234/v1"
	defaultOracleModel     = "google/gemma-3n-e4b"
	defaultContextFile     = "user_context.txt"
	defaultJSONStorePath   = "jobs_db.json"
	defaultSQLiteStorePath = "jobs.db"
	defaultStatsPath       = "stats.json"
	slackWebhookPrefix     = "https://hooks.slack.com/"
)

// Load reads and parses the YAML config file at path, validates it, and returns Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	pollInterval, err := parseDuration("poll_interval", raw.PollInterval, 800*time.Millisecond)
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := parseDuration("shutdown_timeout", raw.ShutdownTimeout, 2*time.Second)
	if err != nil {
		return nil, err
	}
	startupDelay, err := parseDuration("browser.startup_delay", raw.Browser.StartupDelay, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rearmDelay, err := parseDuration("browser.rearm_delay", raw.Browser.RearmDelay, 800*time.Millisecond)
	if err != nil {
		return nil, err
	}
	oracleTimeout, err := parseDuration("oracle.timeout", raw.Oracle.Timeout, 120*time.Second)
	if err != nil {
		return nil, err
	}

	dataDir := raw.DataDir
	if dataDir == "" {
		dataDir = "."
	}

	backend := strings.ToLower(raw.Store.Backend)
	if backend == "" {
		backend = "json"
	}
	storePath := raw.Store.Path
	if storePath == "" {
		storePath = defaultJSONStorePath
		if backend == "sqlite" {
			storePath = defaultSQLiteStorePath
		}
	}

	minContent := defaultMinContent
	if raw.MinContentLength != nil {
		minContent = *raw.MinContentLength
	}

	cfg := &Config{
		SearchURL:        raw.SearchURL,
		Source:           orDefault(raw.Source, defaultSource),
		PollInterval:     pollInterval,
		Workers:          orDefaultInt(raw.Workers, defaultWorkers),
		MinContentLength: minContent,
		ShutdownTimeout:  shutdownTimeout,
		DataDir:          dataDir,
		Fingerprint:      raw.Fingerprint,
		Identity:         raw.Identity,
		Browser: BrowserConfig{
			Headless:      raw.Browser.Headless,
			UserDataDir:   raw.Browser.UserDataDir,
			RemoteURL:     raw.Browser.RemoteURL,
			StartupDelay:  startupDelay,
			RearmAttempts: orDefaultInt(raw.Browser.RearmAttempts, defaultRearmAttempts),
			RearmDelay:    rearmDelay,
		},
		Store: StoreConfig{
			Backend:        backend,
			Path:           resolve(dataDir, storePath),
			StatsPath:      resolve(dataDir, orDefault(raw.Store.StatsPath, defaultStatsPath)),
			DescriptionMax: orDefaultInt(raw.Store.DescriptionMax, defaultDescriptionMax),
		},
		Oracle: OracleConfig{
			BaseURL:           strings.TrimRight(orDefault(raw.Oracle.BaseURL, defaultOracleBaseURL), "/"),
			Model:             orDefault(raw.Oracle.Model, defaultOracleModel),
			APIKey:            raw.Oracle.APIKey,
			Timeout:           oracleTimeout,
			ContextFile:       resolve(dataDir, orDefault(raw.Oracle.ContextFile, defaultContextFile)),
			AffirmativeTokens: raw.Oracle.AffirmativeTokens,
			MaxPerSecond:      raw.Oracle.MaxPerSecond,
		},
		Filters:      raw.Filters,
		Notification: raw.Notification,
	}
	if cfg.Notification.Type == "" {
		cfg.Notification.Type = "log"
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// UserContext reads the oracle context file. A missing file yields an empty
// context and no error.
func (c *Config) UserContext() (string, error) {
	data, err := os.ReadFile(c.Oracle.ContextFile)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read oracle context: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// RequireSearchURL reports an error when no start page is configured.
func (c *Config) RequireSearchURL() error {
	if c.SearchURL == "" {
		return fmt.Errorf("search_url is required to start watching")
	}
	return nil
}

func validate(cfg *Config) error {
	if cfg.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %v", cfg.PollInterval)
	}
	if cfg.Workers < 1 || cfg.Workers > 64 {
		return fmt.Errorf("workers must be between 1 and 64, got %d", cfg.Workers)
	}
	if cfg.MinContentLength < 0 {
		return fmt.Errorf("min_content_length must not be negative, got %d", cfg.MinContentLength)
	}
	if cfg.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown_timeout must be positive, got %v", cfg.ShutdownTimeout)
	}

	switch cfg.Store.Backend {
	case "json", "sqlite":
	default:
		return fmt.Errorf("store.backend must be \"json\" or \"sqlite\", got %q", cfg.Store.Backend)
	}

	switch cfg.Notification.Type {
	case "log":
	case "slack":
		if cfg.Notification.WebhookURL == "" {
			return fmt.Errorf("notification.webhook_url is required when type is \"slack\"")
		}
		if !strings.HasPrefix(cfg.Notification.WebhookURL, slackWebhookPrefix) {
			return fmt.Errorf("notification.webhook_url must start with %s", slackWebhookPrefix)
		}
	default:
		return fmt.Errorf("notification.type must be \"log\" or \"slack\", got %q", cfg.Notification.Type)
	}

	if cfg.Oracle.Timeout <= 0 {
		return fmt.Errorf("oracle.timeout must be positive, got %v", cfg.Oracle.Timeout)
	}
	if cfg.Oracle.MaxPerSecond < 0 {
		return fmt.Errorf("oracle.max_per_second must not be negative")
	}

	return nil
}

func parseDuration(field, value string, def time.Duration) (time.Duration, error) {
	if value == "" {
		return def, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", field, value, err)
	}
	return d, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func orDefaultInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func resolve(dir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}
