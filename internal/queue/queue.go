// Package queue implements the unbounded FIFO between the ingestion loop and
// the worker pool.
package queue

import (
	"sync"

	"github.com/amishk599/jobwatch/internal/model"
)

type kind int

const (
	kindData kind = iota
	kindShutdown
)

// Message is either a capture to process or a shutdown request.
type Message struct {
	kind    kind
	Capture model.JobCapture
}

// Data wraps a capture.
func Data(c model.JobCapture) Message {
	return Message{kind: kindData, Capture: c}
}

// Shutdown returns the message that stops exactly one consumer.
func Shutdown() Message {
	return Message{kind: kindShutdown}
}

// IsShutdown reports whether m is a shutdown request.
func (m Message) IsShutdown() bool {
	return m.kind == kindShutdown
}

// Queue is a thread-safe, unbounded FIFO. Push never blocks; Pop blocks until
// a message is available.
type Queue struct {
	mu    sync.Mutex
	cond  *sync.Cond
	items []Message
}

// New returns an empty queue.
func New() *Queue {
	q := &Queue{items: make([]Message, 0, 64)}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends m and wakes one waiting consumer.
func (q *Queue) Push(m Message) {
	q.mu.Lock()
	q.items = append(q.items, m)
	q.mu.Unlock()
	q.cond.Signal()
}

// Pop removes and returns the oldest message, waiting if the queue is empty.
func (q *Queue) Pop() Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 {
		q.cond.Wait()
	}
	m := q.items[0]
	q.items[0] = Message{}
	q.items = q.items[1:]
	return m
}

// Len returns the number of queued messages.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
