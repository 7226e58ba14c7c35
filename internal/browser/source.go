// Package browser drives the Chromium session jobs are captured from. An
// in-page watcher script queues the job detail pane on every click or
// navigation; the source drains that queue on demand.
package browser

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"

	"github.com/amishk599/jobwatch/internal/model"
)

//go:embed watcher.js
var watcherJS string

const (
	activeJS = `() => !!window.__jobWatcherInjectedV3`
	drainJS  = `() => { const q = window.__jobQueue || []; window.__jobQueue = []; return q; }`
)

// Ensure Source implements model.CaptureSource.
var _ model.CaptureSource = (*Source)(nil)

// Config configures the browser session.
type Config struct {
	// StartURL is opened once the browser is up.
	StartURL string
	// Headless hides the window. Captures need user clicks, so the default
	// is a visible browser.
	Headless bool
	// UserDataDir keeps cookies and the login between runs.
	UserDataDir string
	// RemoteURL is the DevTools WebSocket URL of an already running Chrome.
	// Empty = launch a local Chrome.
	RemoteURL string
	// StartupDelay is waited after the first page load.
	StartupDelay time.Duration

	Logger *slog.Logger
}

// page is the slice of a browser tab the source needs.
type page interface {
	// Eval runs a JS function and returns its JSON-encoded result.
	Eval(ctx context.Context, js string) ([]byte, error)
	URL(ctx context.Context) (string, error)
	Close() error
}

// Source is a model.CaptureSource backed by one browser tab.
type Source struct {
	mu     sync.Mutex
	page   page
	closed bool
	logger *slog.Logger
}

// Launch starts (or connects to) Chrome, opens cfg.StartURL in a stealth tab
// and returns the capture source. Any failure here is fatal for the caller.
func Launch(ctx context.Context, cfg Config) (*Source, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	log := cfg.Logger

	var (
		wsURL string
		lnch  *launcher.Launcher
	)
	if cfg.RemoteURL != "" {
		wsURL = cfg.RemoteURL
		log.Info("browser: connecting to remote", "url", wsURL)
	} else {
		lnch = launcher.New().Headless(cfg.Headless).Leakless(true)
		if cfg.UserDataDir != "" {
			lnch = lnch.UserDataDir(cfg.UserDataDir)
		}
		// Anti-detection flags.
		lnch = lnch.Set("disable-blink-features", "AutomationControlled")

		u, err := lnch.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		log.Info("browser: launched local chrome", "headless", cfg.Headless)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		if lnch != nil {
			lnch.Cleanup()
		}
		return nil, fmt.Errorf("browser: connect: %w", err)
	}

	p, err := stealth.Page(b)
	if err != nil {
		closeBrowser(b, lnch)
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}

	navCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()
	if err := p.Context(navCtx).Navigate(cfg.StartURL); err != nil {
		closeBrowser(b, lnch)
		return nil, fmt.Errorf("browser: navigate %s: %w", cfg.StartURL, err)
	}
	if err := p.Context(navCtx).WaitLoad(); err != nil {
		log.Warn("browser: wait load timeout", "url", cfg.StartURL, "error", err)
	}

	if cfg.StartupDelay > 0 {
		select {
		case <-ctx.Done():
			closeBrowser(b, lnch)
			return nil, ctx.Err()
		case <-time.After(cfg.StartupDelay):
		}
	}

	return newSource(&rodPage{page: p, browser: b, launcher: lnch}, log), nil
}

func newSource(p page, logger *slog.Logger) *Source {
	return &Source{page: p, logger: logger}
}

// EnsureActive injects the watcher unless the page already carries it.
func (s *Source) EnsureActive(ctx context.Context) (bool, error) {
	p, err := s.tab()
	if err != nil {
		return false, err
	}

	active, err := evalBool(ctx, p, activeJS)
	if err != nil {
		return false, fmt.Errorf("checking watcher: %w", err)
	}
	if active {
		return true, nil
	}

	if _, err := p.Eval(ctx, watcherJS); err != nil {
		return false, fmt.Errorf("injecting watcher: %w", err)
	}
	active, err = evalBool(ctx, p, activeJS)
	if err != nil {
		return false, fmt.Errorf("checking watcher: %w", err)
	}
	if active {
		s.logger.Info("browser: watcher injected")
	}
	return active, nil
}

// Drain returns and clears the page's capture queue.
func (s *Source) Drain(ctx context.Context) ([]model.RawCapture, error) {
	p, err := s.tab()
	if err != nil {
		return nil, err
	}
	data, err := p.Eval(ctx, drainJS)
	if err != nil {
		return nil, fmt.Errorf("draining page queue: %w", err)
	}

	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var items []model.RawCapture
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decoding page queue: %w", err)
	}
	return items, nil
}

// CurrentURL returns the address of the tab.
func (s *Source) CurrentURL(ctx context.Context) (string, error) {
	p, err := s.tab()
	if err != nil {
		return "", err
	}
	return p.URL(ctx)
}

// Close shuts the tab and the browser. Safe to call twice.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.page.Close()
}

func (s *Source) tab() (page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, model.ErrSourceClosed
	}
	return s.page, nil
}

func evalBool(ctx context.Context, p page, js string) (bool, error) {
	data, err := p.Eval(ctx, js)
	if err != nil {
		return false, err
	}
	var v bool
	if err := json.Unmarshal(data, &v); err != nil {
		return false, fmt.Errorf("decoding %s: %w", data, err)
	}
	return v, nil
}

// rodPage adapts a rod tab to page.
type rodPage struct {
	page     *rod.Page
	browser  *rod.Browser
	launcher *launcher.Launcher
}

func (r *rodPage) Eval(ctx context.Context, js string) ([]byte, error) {
	res, err := r.page.Context(ctx).Eval(js)
	if err != nil {
		return nil, err
	}
	return res.Value.MarshalJSON()
}

func (r *rodPage) URL(ctx context.Context) (string, error) {
	info, err := r.page.Context(ctx).Info()
	if err != nil {
		return "", fmt.Errorf("reading page info: %w", err)
	}
	return info.URL, nil
}

// Close leaves a remote browser running and only closes our tab.
func (r *rodPage) Close() error {
	if r.launcher == nil {
		return r.page.Close()
	}
	closeBrowser(r.browser, r.launcher)
	return nil
}

func closeBrowser(b *rod.Browser, l *launcher.Launcher) {
	if b != nil {
		_ = b.Close()
	}
	if l != nil {
		l.Cleanup()
	}
}
