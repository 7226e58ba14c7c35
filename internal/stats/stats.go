// Package stats keeps the pipeline's running counters and mirrors them to a
// JSON file after every change.
package stats

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/amishk599/jobwatch/internal/fileutil"
)

// Snapshot is the persisted form of the counters.
type Snapshot struct {
	TotalAnalyzed int        `json:"total_analyzed"`
	Retained      int        `json:"retained"`
	LastUpdated   *time.Time `json:"last_updated"`
}

// Aggregator is safe for concurrent use by all workers.
type Aggregator struct {
	mu     sync.Mutex
	snap   Snapshot
	path   string // empty = memory only
	now    func() time.Time
	logger *slog.Logger
}

// Load reads path (if it exists) and returns an aggregator that persists back
// to it. A missing or unreadable file starts from zero.
func Load(path string, logger *slog.Logger) *Aggregator {
	a := &Aggregator{path: path, now: time.Now, logger: logger}
	if path == "" {
		return a
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return a
	}
	if err != nil {
		logger.Warn("stats file unreadable, starting from zero", "path", path, "error", err)
		return a
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		logger.Warn("stats file corrupt, starting from zero", "path", path, "error", err)
		return a
	}
	a.snap = snap
	return a
}

// RecordAnalyzed counts one completed classification.
func (a *Aggregator) RecordAnalyzed() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.snap.TotalAnalyzed++
	a.persistLocked()
}

// RecordRetained counts one successful store insert.
func (a *Aggregator) RecordRetained() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.snap.Retained++
	a.persistLocked()
}

// Snapshot returns a copy of the current counters.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := a.snap
	if s.LastUpdated != nil {
		t := *s.LastUpdated
		s.LastUpdated = &t
	}
	return s
}

// persistLocked stamps last_updated and rewrites the file. Write failures are
// logged; the in-memory counters stay authoritative.
func (a *Aggregator) persistLocked() {
	now := a.now().UTC()
	a.snap.LastUpdated = &now
	if a.path == "" {
		return
	}
	if err := Save(a.path, a.snap); err != nil {
		a.logger.Error("stats save failed", "path", a.path, "error", err)
	}
}

// Save writes snap to path atomically.
func Save(path string, snap Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding stats: %w", err)
	}
	return fileutil.WriteFileAtomic(path, data, 0o644)
}

// Read loads a snapshot from path without creating an aggregator.
func Read(path string) (Snapshot, error) {
	var snap Snapshot
	data, err := os.ReadFile(path)
	if err != nil {
		return snap, fmt.Errorf("reading stats: %w", err)
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return snap, fmt.Errorf("parsing stats: %w", err)
	}
	return snap, nil
}
