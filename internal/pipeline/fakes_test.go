package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/amishk599/jobwatch/internal/filter"
	"github.com/amishk599/jobwatch/internal/fingerprint"
	"github.com/amishk599/jobwatch/internal/identity"
	"github.com/amishk599/jobwatch/internal/model"
	"github.com/amishk599/jobwatch/internal/oracle"
	"github.com/amishk599/jobwatch/internal/queue"
	"github.com/amishk599/jobwatch/internal/retry"
	"github.com/amishk599/jobwatch/internal/stats"
	"github.com/amishk599/jobwatch/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeSource is a scripted capture source. Batches are returned one per Drain.
type fakeSource struct {
	mu        sync.Mutex
	url       string
	urlErr    error
	batches   [][]model.RawCapture
	drainErr  error
	active    bool
	armCalls  int
	armResult bool
	closed    bool
}

func newFakeSource(url string, batches ...[]model.RawCapture) *fakeSource {
	return &fakeSource{url: url, batches: batches, armResult: true}
}

func (s *fakeSource) EnsureActive(_ context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.armCalls++
	s.active = s.armResult
	return s.active, nil
}

func (s *fakeSource) Drain(_ context.Context) ([]model.RawCapture, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.drainErr != nil {
		return nil, s.drainErr
	}
	if len(s.batches) == 0 {
		return nil, nil
	}
	b := s.batches[0]
	s.batches = s.batches[1:]
	return b, nil
}

func (s *fakeSource) CurrentURL(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url, s.urlErr
}

func (s *fakeSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSource) setURL(url string) {
	s.mu.Lock()
	s.url = url
	s.mu.Unlock()
}

func (s *fakeSource) push(batch []model.RawCapture) {
	s.mu.Lock()
	s.batches = append(s.batches, batch)
	s.mu.Unlock()
}

func (s *fakeSource) arms() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.armCalls
}

func (s *fakeSource) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// scriptedClassifier answers every capture with the same raw oracle text.
type scriptedClassifier struct {
	raw   string
	err   error
	calls atomic.Int32
}

func (c *scriptedClassifier) Classify(_ context.Context, _ model.JobCapture) (model.Verdict, error) {
	c.calls.Add(1)
	if c.err != nil {
		return model.Verdict{}, c.err
	}
	return oracle.ParseVerdict(c.raw, oracle.DefaultAffirmativeTokens), nil
}

// blockingClassifier blocks until its context is done.
type blockingClassifier struct {
	started chan struct{}
	once    sync.Once
	err     atomic.Value
}

func (c *blockingClassifier) Classify(ctx context.Context, _ model.JobCapture) (model.Verdict, error) {
	c.once.Do(func() { close(c.started) })
	<-ctx.Done()
	c.err.Store(ctx.Err())
	return model.Verdict{}, ctx.Err()
}

type recordingNotifier struct {
	mu      sync.Mutex
	results []model.AnalysisResult
}

func (n *recordingNotifier) Notify(results []model.AnalysisResult) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.results = append(n.results, results...)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.results)
}

var errOracleDown = errors.New("oracle down")

const searchURL = "https://www.linkedin.com/jobs/search/?keywords=go&geoId=100565514"

// harness bundles a pool over real file-backed stores in a temp dir.
type harness struct {
	queue    *queue.Queue
	tracker  *fingerprint.Tracker
	store    *store.JSONStore
	stats    *stats.Aggregator
	notifier *recordingNotifier
	pool     *Pool
}

func newHarness(t *testing.T, classifier model.Classifier, prefilter model.CaptureFilter) *harness {
	t.Helper()
	dir := t.TempDir()
	h := &harness{
		queue:    queue.New(),
		tracker:  fingerprint.NewTracker(nil),
		store:    store.NewJSONStore(filepath.Join(dir, "jobs_db.json")),
		stats:    stats.Load(filepath.Join(dir, "stats.json"), discardLogger()),
		notifier: &recordingNotifier{},
	}
	h.tracker.Update(h.tracker.Compute(searchURL))
	h.pool = NewPool(PoolDeps{
		Queue:      h.queue,
		Tracker:    h.tracker,
		Complete:   filter.NewCompletenessFilter(10),
		Filter:     prefilter,
		Classifier: classifier,
		Store:      h.store,
		Stats:      h.stats,
		Notifier:   h.notifier,
		Logger:     discardLogger(),
	}, "linkedin", 4000)
	return h
}

func (h *harness) newLoop(src model.CaptureSource) *Loop {
	return NewLoop(src, h.tracker, identity.MustDefault(),
		retry.NewRearmer(2, time.Millisecond, discardLogger()),
		h.queue, 10*time.Millisecond, discardLogger())
}

// fullCapture is a complete capture stamped with the live fingerprint.
func (h *harness) fullCapture(id string) model.JobCapture {
	return model.JobCapture{
		ID:              id,
		Title:           "Software Engineer",
		Company:         "Acme",
		Location:        "Brussels",
		DescriptionHTML: "<p>Build Go services</p><script>alert(1)</script>",
		Link:            "https://www.linkedin.com/jobs/view/" + id,
		OriginFP:        h.tracker.Current(),
	}
}

func rawCapture(id string) model.RawCapture {
	return model.RawCapture{
		Title:           "Software Engineer",
		Company:         "Acme",
		Location:        "Brussels",
		DescriptionHTML: "<p>Build Go services</p>",
		Link:            "https://www.linkedin.com/jobs/view/" + id,
		CapturedAtMS:    1760000000000,
	}
}

// waitFor polls cond until it is true or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
