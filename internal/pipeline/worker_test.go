package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/amishk599/jobwatch/internal/filter"
	"github.com/amishk599/jobwatch/internal/model"
	"github.com/amishk599/jobwatch/internal/queue"
)

func TestProcess_AffirmativeIsRetained(t *testing.T) {
	classifier := &scriptedClassifier{raw: "OUI\n{\"relevance_score\":8}"}
	h := newHarness(t, classifier, nil)

	got := h.pool.process(context.Background(), discardLogger(), h.fullCapture("12345"))
	if got != OutcomeRetained {
		t.Fatalf("outcome = %v, want retained", got)
	}

	r, ok, err := h.store.Get("12345")
	if err != nil || !ok {
		t.Fatalf("Get() = %v, %v", ok, err)
	}
	if score, _ := r.Analysis.Parsed["relevance_score"].(float64); score != 8 {
		t.Errorf("relevance_score = %v, want 8", r.Analysis.Parsed["relevance_score"])
	}
	if !r.ShouldSave || r.Applied || r.ApplicationResult != model.ResultNoResponse {
		t.Errorf("lifecycle defaults wrong: %+v", r)
	}
	if r.Source != "linkedin" || r.AnalyzedAt.IsZero() || r.AnalyzedAt.Location().String() != "UTC" {
		t.Errorf("source/analyzed_at wrong: %q %v", r.Source, r.AnalyzedAt)
	}
	if strings.Contains(r.DescriptionSnippet, "<script>") {
		t.Errorf("stored snippet not sanitized: %q", r.DescriptionSnippet)
	}

	snap := h.stats.Snapshot()
	if snap.TotalAnalyzed != 1 || snap.Retained != 1 {
		t.Errorf("stats = %+v, want 1/1", snap)
	}
	if h.notifier.count() != 1 {
		t.Errorf("notifications = %d, want 1", h.notifier.count())
	}
}

func TestProcess_NegativeIsNotRetained(t *testing.T) {
	classifier := &scriptedClassifier{raw: "NON\nnot relevant"}
	h := newHarness(t, classifier, nil)

	if got := h.pool.process(context.Background(), discardLogger(), h.fullCapture("1")); got != OutcomeRejected {
		t.Fatalf("outcome = %v, want rejected", got)
	}

	list, _ := h.store.List()
	if len(list) != 0 {
		t.Errorf("store has %d results, want 0", len(list))
	}
	snap := h.stats.Snapshot()
	if snap.TotalAnalyzed != 1 || snap.Retained != 0 {
		t.Errorf("stats = %+v, want 1/0", snap)
	}
	if h.notifier.count() != 0 {
		t.Error("rejected capture should not notify")
	}
}

func TestProcess_StaleOriginSkipsOracle(t *testing.T) {
	classifier := &scriptedClassifier{raw: "OUI"}
	h := newHarness(t, classifier, nil)

	c := h.fullCapture("1")
	// The user moved to another search after this capture was stamped.
	h.tracker.Update(h.tracker.Compute("https://www.linkedin.com/jobs/search/?keywords=rust"))

	if got := h.pool.process(context.Background(), discardLogger(), c); got != OutcomeStale {
		t.Fatalf("outcome = %v, want stale", got)
	}
	if classifier.calls.Load() != 0 {
		t.Error("oracle should not be called for stale captures")
	}
	snap := h.stats.Snapshot()
	if snap.TotalAnalyzed != 0 || snap.Retained != 0 || snap.LastUpdated != nil {
		t.Errorf("stats touched: %+v", snap)
	}
	list, _ := h.store.List()
	if len(list) != 0 {
		t.Error("stale capture reached the store")
	}
}

func TestProcess_IncompleteSkipsOracle(t *testing.T) {
	classifier := &scriptedClassifier{raw: "OUI"}
	h := newHarness(t, classifier, nil)

	c := h.fullCapture("1")
	c.Title, c.Company, c.DescriptionHTML = "Dev", "", ""

	if got := h.pool.process(context.Background(), discardLogger(), c); got != OutcomeIncomplete {
		t.Fatalf("outcome = %v, want incomplete", got)
	}
	if classifier.calls.Load() != 0 {
		t.Error("oracle should not be called for incomplete captures")
	}
}

func TestProcess_PrefilterSkipsOracle(t *testing.T) {
	classifier := &scriptedClassifier{raw: "OUI"}
	h := newHarness(t, classifier, filter.NewKeywordFilter(nil, []string{"software"}, nil))

	if got := h.pool.process(context.Background(), discardLogger(), h.fullCapture("1")); got != OutcomeFiltered {
		t.Fatalf("outcome = %v, want filtered", got)
	}
	if classifier.calls.Load() != 0 {
		t.Error("oracle should not be called for filtered captures")
	}
}

func TestProcess_OracleFailureDropsCapture(t *testing.T) {
	classifier := &scriptedClassifier{err: errOracleDown}
	h := newHarness(t, classifier, nil)

	if got := h.pool.process(context.Background(), discardLogger(), h.fullCapture("1")); got != OutcomeOracleFailed {
		t.Fatalf("outcome = %v, want oracle_failed", got)
	}
	snap := h.stats.Snapshot()
	if snap.TotalAnalyzed != 0 || snap.Retained != 0 {
		t.Errorf("stats = %+v, want untouched", snap)
	}
	list, _ := h.store.List()
	if len(list) != 0 {
		t.Error("failed capture reached the store")
	}
}

func TestProcess_DuplicateKeepsFirstWrite(t *testing.T) {
	classifier := &scriptedClassifier{raw: "OUI\n{\"relevance_score\":8}"}
	h := newHarness(t, classifier, nil)

	first := h.fullCapture("42")
	if got := h.pool.process(context.Background(), discardLogger(), first); got != OutcomeRetained {
		t.Fatalf("first outcome = %v", got)
	}

	second := h.fullCapture("42")
	second.Title = "Renamed Engineer"
	if got := h.pool.process(context.Background(), discardLogger(), second); got != OutcomeDuplicate {
		t.Fatalf("second outcome = %v, want duplicate", got)
	}

	r, _, _ := h.store.Get("42")
	if r.Title != "Software Engineer" {
		t.Errorf("title = %q, first write should win", r.Title)
	}
	snap := h.stats.Snapshot()
	if snap.TotalAnalyzed != 2 || snap.Retained != 1 {
		t.Errorf("stats = %+v, want 2/1", snap)
	}
	if h.notifier.count() != 1 {
		t.Errorf("notifications = %d, want 1", h.notifier.count())
	}
}

func TestWork_StopsOnShutdownAfterDrainingData(t *testing.T) {
	classifier := &scriptedClassifier{raw: "OUI"}
	h := newHarness(t, classifier, nil)

	h.queue.Push(queue.Data(h.fullCapture("1")))
	h.queue.Push(queue.Data(h.fullCapture("2")))
	h.queue.Push(queue.Shutdown())
	h.queue.Push(queue.Data(h.fullCapture("3")))

	h.pool.Work(context.Background(), 1)

	if got := classifier.calls.Load(); got != 2 {
		t.Errorf("classified %d captures, want 2", got)
	}
	if h.queue.Len() != 1 {
		t.Errorf("queue len = %d, want 1 left behind the shutdown message", h.queue.Len())
	}
}

func TestOutcome_String(t *testing.T) {
	if OutcomeDuplicate.String() != "duplicate" || Outcome(99).String() != "unknown" {
		t.Errorf("unexpected names: %s %s", OutcomeDuplicate, Outcome(99))
	}
}
