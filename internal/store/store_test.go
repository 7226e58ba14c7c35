package store

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/amishk599/jobwatch/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestJSONStore(t *testing.T) *JSONStore {
	t.Helper()
	return NewJSONStore(filepath.Join(t.TempDir(), "jobs_db.json"))
}

// backends runs fn against every ResultStore implementation.
func backends(t *testing.T, fn func(t *testing.T, s model.ResultStore)) {
	t.Run("json", func(t *testing.T) { fn(t, newTestJSONStore(t)) })
	t.Run("sqlite", func(t *testing.T) { fn(t, newTestSQLiteStore(t)) })
}

func sampleResult(id string) model.AnalysisResult {
	return model.AnalysisResult{
		JobID:              id,
		Link:               "https://x/jobs/view/" + id,
		Title:              "Software Engineer",
		Company:            "Acme",
		Location:           "Brussels",
		DescriptionSnippet: "<p>Go</p>",
		Analysis: model.Analysis{
			RawOutput: "OUI\n{\"relevance_score\":8}",
			FirstLine: "OUI",
			Parsed:    map[string]any{"relevance_score": float64(8)},
		},
		ShouldSave:        true,
		AnalyzedAt:        time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Source:            "linkedin",
		ApplicationResult: model.ResultNoResponse,
	}
}

func TestInsertThenGet(t *testing.T) {
	backends(t, func(t *testing.T, s model.ResultStore) {
		outcome, err := s.Insert(sampleResult("12345"))
		if err != nil {
			t.Fatalf("Insert: %v", err)
		}
		if outcome != model.Inserted {
			t.Errorf("outcome = %v, want inserted", outcome)
		}

		got, ok, err := s.Get("12345")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if !ok {
			t.Fatal("expected result to be present")
		}
		if got.Title != "Software Engineer" || got.Analysis.FirstLine != "OUI" {
			t.Errorf("Get = %+v", got)
		}
		if score, _ := got.Analysis.Parsed["relevance_score"].(float64); score != 8 {
			t.Errorf("parsed relevance_score = %v, want 8", got.Analysis.Parsed["relevance_score"])
		}
		if !got.AnalyzedAt.Equal(sampleResult("").AnalyzedAt) {
			t.Errorf("AnalyzedAt = %v", got.AnalyzedAt)
		}
	})
}

func TestInsertIsWriteOnce(t *testing.T) {
	backends(t, func(t *testing.T, s model.ResultStore) {
		if _, err := s.Insert(sampleResult("dup")); err != nil {
			t.Fatalf("first Insert: %v", err)
		}

		second := sampleResult("dup")
		second.Title = "Overwritten"
		outcome, err := s.Insert(second)
		if err != nil {
			t.Fatalf("second Insert: %v", err)
		}
		if outcome != model.AlreadyPresent {
			t.Errorf("outcome = %v, want already_present", outcome)
		}

		got, _, err := s.Get("dup")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.Title != "Software Engineer" {
			t.Errorf("first write was mutated: title = %q", got.Title)
		}

		all, err := s.List()
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(all) != 1 {
			t.Errorf("List len = %d, want 1", len(all))
		}
	})
}

func TestConcurrentDuplicateInserts(t *testing.T) {
	backends(t, func(t *testing.T, s model.ResultStore) {
		const workers = 8
		const submissions = 1000

		var (
			wg         sync.WaitGroup
			mu         sync.Mutex
			inserted   int
			duplicates int
		)
		jobs := make(chan int)
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range jobs {
					r := sampleResult("same-id")
					r.Title = fmt.Sprintf("attempt %d", i)
					outcome, err := s.Insert(r)
					if err != nil {
						t.Errorf("Insert: %v", err)
						continue
					}
					mu.Lock()
					if outcome == model.Inserted {
						inserted++
					} else {
						duplicates++
					}
					mu.Unlock()
				}
			}()
		}
		for i := 0; i < submissions; i++ {
			jobs <- i
		}
		close(jobs)
		wg.Wait()

		if inserted != 1 {
			t.Errorf("inserted = %d, want 1", inserted)
		}
		if duplicates != submissions-1 {
			t.Errorf("duplicates = %d, want %d", duplicates, submissions-1)
		}
		all, err := s.List()
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(all) != 1 {
			t.Errorf("stored %d records, want 1", len(all))
		}
	})
}

func TestListNewestFirst(t *testing.T) {
	backends(t, func(t *testing.T, s model.ResultStore) {
		older := sampleResult("old")
		older.AnalyzedAt = older.AnalyzedAt.Add(-time.Hour)
		newer := sampleResult("new")

		for _, r := range []model.AnalysisResult{older, newer} {
			if _, err := s.Insert(r); err != nil {
				t.Fatalf("Insert: %v", err)
			}
		}
		all, err := s.List()
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(all) != 2 || all[0].JobID != "new" || all[1].JobID != "old" {
			t.Errorf("List order = %v", ids(all))
		}
	})
}

func TestLifecycleUpdates(t *testing.T) {
	backends(t, func(t *testing.T, s model.ResultStore) {
		if _, err := s.Insert(sampleResult("life")); err != nil {
			t.Fatalf("Insert: %v", err)
		}
		if err := s.SetApplied("life", true); err != nil {
			t.Fatalf("SetApplied: %v", err)
		}
		if err := s.SetApplicationResult("life", model.ResultAccepted); err != nil {
			t.Fatalf("SetApplicationResult: %v", err)
		}

		got, _, err := s.Get("life")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if !got.Applied || got.ApplicationResult != model.ResultAccepted {
			t.Errorf("lifecycle = applied %v result %q", got.Applied, got.ApplicationResult)
		}

		if err := s.SetApplied("missing", true); !errors.Is(err, model.ErrNotFound) {
			t.Errorf("SetApplied(missing) err = %v, want ErrNotFound", err)
		}
	})
}

func TestGetUnknownReturnsFalse(t *testing.T) {
	backends(t, func(t *testing.T, s model.ResultStore) {
		_, ok, err := s.Get("does-not-exist")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if ok {
			t.Error("expected Get to report missing id")
		}
	})
}

func TestOpen_UnknownBackend(t *testing.T) {
	if _, _, err := Open("redis", "x"); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func ids(results []model.AnalysisResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.JobID
	}
	return out
}
