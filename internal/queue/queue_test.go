package queue

import (
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/amishk599/jobwatch/internal/model"
)

func capture(id string) model.JobCapture {
	return model.JobCapture{ID: id, Title: "Engineer " + id}
}

func TestQueue_FIFO(t *testing.T) {
	q := New()
	for i := 0; i < 5; i++ {
		q.Push(Data(capture(strconv.Itoa(i))))
	}
	if q.Len() != 5 {
		t.Fatalf("Len = %d, want 5", q.Len())
	}
	for i := 0; i < 5; i++ {
		m := q.Pop()
		if m.IsShutdown() {
			t.Fatal("unexpected shutdown message")
		}
		if m.Capture.ID != strconv.Itoa(i) {
			t.Errorf("pop %d got id %q", i, m.Capture.ID)
		}
	}
}

func TestQueue_ShutdownIsDistinct(t *testing.T) {
	// A zero-value capture is still data, never a shutdown.
	if Data(model.JobCapture{}).IsShutdown() {
		t.Error("empty capture must not be a shutdown message")
	}
	if !Shutdown().IsShutdown() {
		t.Error("Shutdown().IsShutdown() = false")
	}
}

func TestQueue_PopBlocksUntilPush(t *testing.T) {
	q := New()
	got := make(chan Message, 1)
	go func() { got <- q.Pop() }()

	select {
	case <-got:
		t.Fatal("Pop returned on an empty queue")
	case <-time.After(50 * time.Millisecond):
	}

	q.Push(Data(capture("late")))
	select {
	case m := <-got:
		if m.Capture.ID != "late" {
			t.Errorf("got %q, want late", m.Capture.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("Pop did not wake after Push")
	}
}

func TestQueue_ManyConsumers(t *testing.T) {
	q := New()
	const consumers = 8
	const items = 1000

	var mu sync.Mutex
	seen := make(map[string]int)
	var wg sync.WaitGroup
	for i := 0; i < consumers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				m := q.Pop()
				if m.IsShutdown() {
					return
				}
				mu.Lock()
				seen[m.Capture.ID]++
				mu.Unlock()
			}
		}()
	}

	for i := 0; i < items; i++ {
		q.Push(Data(capture(strconv.Itoa(i))))
	}
	for i := 0; i < consumers; i++ {
		q.Push(Shutdown())
	}
	wg.Wait()

	if len(seen) != items {
		t.Fatalf("consumed %d distinct items, want %d", len(seen), items)
	}
	for id, n := range seen {
		if n != 1 {
			t.Errorf("item %s consumed %d times", id, n)
		}
	}
}
