package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"sync"

	"github.com/amishk599/jobwatch/internal/fileutil"
	"github.com/amishk599/jobwatch/internal/model"
)

// Ensure JSONStore implements model.ResultStore.
var _ model.ResultStore = (*JSONStore)(nil)

// JSONStore keeps retained results in a single JSON object keyed by job id.
// Every operation reloads the file, so edits made by other tools between
// calls are picked up.
type JSONStore struct {
	mu   sync.Mutex
	path string
}

// NewJSONStore returns a store backed by path. The file is created on the
// first insert.
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

// Insert stores result unless its job id is already present. The load, check
// and save happen under one lock so racing workers cannot both insert.
func (s *JSONStore) Insert(result model.AnalysisResult) (model.InsertOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.load()
	if err != nil {
		return model.Inserted, err
	}
	if _, ok := db[result.JobID]; ok {
		return model.AlreadyPresent, nil
	}
	db[result.JobID] = result
	if err := s.save(db); err != nil {
		return model.Inserted, fmt.Errorf("inserting %s: %w", result.JobID, err)
	}
	return model.Inserted, nil
}

// Get returns the result stored under jobID.
func (s *JSONStore) Get(jobID string) (model.AnalysisResult, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.load()
	if err != nil {
		return model.AnalysisResult{}, false, err
	}
	r, ok := db[jobID]
	return r, ok, nil
}

// List returns all results, most recently analyzed first.
func (s *JSONStore) List() ([]model.AnalysisResult, error) {
	s.mu.Lock()
	db, err := s.load()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	out := make([]model.AnalysisResult, 0, len(db))
	for _, r := range db {
		out = append(out, r)
	}
	sortNewestFirst(out)
	return out, nil
}

// SetApplied updates the applied flag of an existing result.
func (s *JSONStore) SetApplied(jobID string, applied bool) error {
	return s.update(jobID, func(r *model.AnalysisResult) { r.Applied = applied })
}

// SetApplicationResult updates the application outcome of an existing result.
func (s *JSONStore) SetApplicationResult(jobID string, result string) error {
	return s.update(jobID, func(r *model.AnalysisResult) { r.ApplicationResult = result })
}

func (s *JSONStore) update(jobID string, fn func(r *model.AnalysisResult)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.load()
	if err != nil {
		return err
	}
	r, ok := db[jobID]
	if !ok {
		return fmt.Errorf("updating %s: %w", jobID, model.ErrNotFound)
	}
	fn(&r)
	db[jobID] = r
	if err := s.save(db); err != nil {
		return fmt.Errorf("updating %s: %w", jobID, err)
	}
	return nil
}

// load reads the whole file. A missing or empty file is an empty store.
func (s *JSONStore) load() (map[string]model.AnalysisResult, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return make(map[string]model.AnalysisResult), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.path, err)
	}
	db := make(map[string]model.AnalysisResult)
	if len(data) == 0 {
		return db, nil
	}
	if err := json.Unmarshal(data, &db); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", s.path, err)
	}
	return db, nil
}

func (s *JSONStore) save(db map[string]model.AnalysisResult) error {
	data, err := json.MarshalIndent(db, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding store: %w", err)
	}
	return fileutil.WriteFileAtomic(s.path, data, 0o644)
}

func sortNewestFirst(results []model.AnalysisResult) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].AnalyzedAt.Equal(results[j].AnalyzedAt) {
			return results[i].JobID < results[j].JobID
		}
		return results[i].AnalyzedAt.After(results[j].AnalyzedAt)
	})
}
