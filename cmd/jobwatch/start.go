package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/amishk599/jobwatch/internal/browser"
	"github.com/amishk599/jobwatch/internal/config"
	"github.com/amishk599/jobwatch/internal/filter"
	"github.com/amishk599/jobwatch/internal/fingerprint"
	"github.com/amishk599/jobwatch/internal/identity"
	"github.com/amishk599/jobwatch/internal/model"
	"github.com/amishk599/jobwatch/internal/pipeline"
	"github.com/amishk599/jobwatch/internal/queue"
	"github.com/amishk599/jobwatch/internal/retry"
	"github.com/amishk599/jobwatch/internal/stats"
	"github.com/amishk599/jobwatch/internal/store"
)

const lockFileName = "jobwatch.lock"

var dryRun bool

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Open the browser and start watching",
	Long:  "Launches the capture browser on search_url and classifies every posting you open; blocks until SIGINT/SIGTERM.",
	RunE:  runStart,
}

func init() {
	startCmd.Flags().BoolVar(&dryRun, "dry-run", false, "classify captures but do not persist results or stats")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "classify captures but do not persist results or stats")
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug).With("session", uuid.NewString())

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.RequireSearchURL(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger.Info("config loaded",
		"search_url", cfg.SearchURL,
		"workers", cfg.Workers,
		"poll_interval", cfg.PollInterval.String(),
		"store", cfg.Store.Backend,
		"data_dir", cfg.DataDir,
	)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	lock := flock.New(filepath.Join(cfg.DataDir, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another jobwatch is already running on %s", cfg.DataDir)
	}
	defer func() { _ = lock.Unlock() }()

	var (
		resultStore model.ResultStore
		statsPath   = cfg.Store.StatsPath
	)
	if dryRun {
		logger.Info("dry-run mode enabled, nothing will be persisted")
		resultStore = store.NewNopStore()
		statsPath = ""
	} else {
		s, closeStore, err := openStore(cfg)
		if err != nil {
			logger.Error("failed to open store", "error", err)
			os.Exit(1)
		}
		defer closeStore()
		resultStore = s
	}

	classifier, err := setupClassifier(cfg, logger)
	if err != nil {
		logger.Error("failed to set up oracle", "error", err)
		os.Exit(1)
	}
	n := setupNotifier(cfg, &http.Client{Timeout: 30 * time.Second}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sup, err := buildSupervisor(ctx, cfg, resultStore, stats.Load(statsPath, logger), classifier, n, logger)
	if err != nil {
		logger.Error("failed to start capture browser", "error", err)
		os.Exit(1)
	}

	if err := sup.Run(ctx); err != nil {
		logger.Error("pipeline error", "error", err)
		os.Exit(1)
	}

	logger.Info("goodbye")
	return nil
}

// buildSupervisor launches the browser and assembles the loop, the queue and
// the worker pool around it.
func buildSupervisor(
	ctx context.Context,
	cfg *config.Config,
	resultStore model.ResultStore,
	agg *stats.Aggregator,
	classifier model.Classifier,
	n model.Notifier,
	logger *slog.Logger,
) (*pipeline.Supervisor, error) {
	patterns := cfg.Identity.LinkPatterns
	if len(patterns) == 0 {
		patterns = identity.DefaultLinkPatterns
	}
	resolver, err := identity.NewResolver(patterns)
	if err != nil {
		return nil, fmt.Errorf("identity.link_patterns: %w", err)
	}

	src, err := browser.Launch(ctx, browser.Config{
		StartURL:     cfg.SearchURL,
		Headless:     cfg.Browser.Headless,
		UserDataDir:  cfg.Browser.UserDataDir,
		RemoteURL:    cfg.Browser.RemoteURL,
		StartupDelay: cfg.Browser.StartupDelay,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}

	tracker := fingerprint.NewTracker(cfg.Fingerprint.Params)
	q := queue.New()
	rearmer := retry.NewRearmer(cfg.Browser.RearmAttempts, cfg.Browser.RearmDelay, logger)

	var prefilter model.CaptureFilter
	if f := cfg.Filters; len(f.TitleKeywords)+len(f.TitleExcludeKeywords)+len(f.Locations) > 0 {
		prefilter = filter.NewKeywordFilter(f.TitleKeywords, f.TitleExcludeKeywords, f.Locations)
	}

	pool := pipeline.NewPool(pipeline.PoolDeps{
		Queue:      q,
		Tracker:    tracker,
		Complete:   filter.NewCompletenessFilter(cfg.MinContentLength),
		Filter:     prefilter,
		Classifier: classifier,
		Store:      resultStore,
		Stats:      agg,
		Notifier:   n,
		Logger:     logger,
	}, cfg.Source, cfg.Store.DescriptionMax)

	loop := pipeline.NewLoop(src, tracker, resolver, rearmer, q, cfg.PollInterval, logger)

	return pipeline.NewSupervisor(loop, pool, src, cfg.Workers, cfg.ShutdownTimeout, logger), nil
}
