package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobwatch/internal/config"
	"github.com/amishk599/jobwatch/internal/model"
	"github.com/amishk599/jobwatch/internal/notifier"
	"github.com/amishk599/jobwatch/internal/oracle"
	"github.com/amishk599/jobwatch/internal/ratelimit"
	"github.com/amishk599/jobwatch/internal/secrets"
	"github.com/amishk599/jobwatch/internal/store"
)

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "jobwatch",
	Short: "Watch a job search while you browse",
	Long:  "jobwatch captures the postings you open in the browser, asks an LLM whether each one is worth keeping, and stores the keepers.",
	// Default to `start` so that `jobwatch` with no args runs the watcher.
	RunE:         runStart,
	SilenceUsage:  true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: JOBWATCH_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig resolves the config path and parses it.
// Priority: explicit path arg > JOBWATCH_CONFIG env var > "./config.yaml"
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if env := os.Getenv("JOBWATCH_CONFIG"); env != "" {
			path = env
		} else {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

func setupNotifier(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) model.Notifier {
	switch cfg.Notification.Type {
	case "slack":
		logger.Info("using slack notifier")
		return notifier.NewSlackNotifier(cfg.Notification.WebhookURL, httpClient, logger)
	default:
		return notifier.NewLogNotifier(logger)
	}
}

// setupClassifier builds the oracle chain: OpenAI-compatible provider, prompt
// classifier, then the optional request rate limit.
func setupClassifier(cfg *config.Config, logger *slog.Logger) (model.Classifier, error) {
	userContext, err := cfg.UserContext()
	if err != nil {
		return nil, err
	}
	if userContext == "" {
		logger.Warn("oracle context file missing or empty", "path", cfg.Oracle.ContextFile)
	}

	// The per-call deadline comes from the classifier; the client timeout is
	// a backstop slightly above it.
	apiKey := cfg.Oracle.APIKey
	if apiKey == "" {
		if apiKey, err = secrets.Lookup("oracle"); err != nil {
			logger.Warn("keychain unavailable, calling oracle without api key", "error", err)
		}
	}

	httpClient := &http.Client{Timeout: cfg.Oracle.Timeout + 5*time.Second}
	provider := oracle.NewOpenAIProvider(cfg.Oracle.BaseURL, apiKey, cfg.Oracle.Model, httpClient)

	var c model.Classifier = oracle.NewLLMClassifier(provider, oracle.ClassifyTemplate, userContext, logger,
		oracle.WithAffirmativeTokens(cfg.Oracle.AffirmativeTokens),
		oracle.WithTimeout(cfg.Oracle.Timeout),
	)
	if cfg.Oracle.MaxPerSecond > 0 {
		c = ratelimit.NewRateLimitedClassifier(c, ratelimit.NewOracleLimiter(cfg.Oracle.MaxPerSecond))
		logger.Info("oracle rate limit configured", "max_per_second", cfg.Oracle.MaxPerSecond)
	}

	logger.Info("oracle configured", "base_url", cfg.Oracle.BaseURL, "model", cfg.Oracle.Model)
	return c, nil
}

// openStore opens the configured result store. The returned func closes it.
func openStore(cfg *config.Config) (model.ResultStore, func(), error) {
	s, closer, err := store.Open(cfg.Store.Backend, cfg.Store.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s store %s: %w", cfg.Store.Backend, cfg.Store.Path, err)
	}
	return s, func() { _ = closer.Close() }, nil
}
