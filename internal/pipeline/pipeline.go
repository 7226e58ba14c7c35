// Package pipeline wires the ingestion loop, the dispatch queue and the
// classification workers together and owns their shutdown.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/amishk599/jobwatch/internal/model"
	"github.com/amishk599/jobwatch/internal/queue"
)

// Supervisor runs one producer and a fixed number of workers.
type Supervisor struct {
	loop        *Loop
	pool        *Pool
	source      model.CaptureSource
	workers     int
	joinTimeout time.Duration
	logger      *slog.Logger
}

// NewSupervisor creates a supervisor. The pool and loop must share the same
// queue and tracker.
func NewSupervisor(loop *Loop, pool *Pool, source model.CaptureSource, workers int, joinTimeout time.Duration, logger *slog.Logger) *Supervisor {
	if workers < 1 {
		workers = 1
	}
	return &Supervisor{
		loop:        loop,
		pool:        pool,
		source:      source,
		workers:     workers,
		joinTimeout: joinTimeout,
		logger:      logger,
	}
}

// Run blocks until ctx is cancelled, then stops the loop, sends one shutdown
// message per worker behind any queued captures, waits up to the join timeout
// and releases the capture source.
func (s *Supervisor) Run(ctx context.Context) error {
	s.loop.Prime(ctx)

	// Workers outlive ctx so queued captures can drain during shutdown.
	workCtx, cancelWork := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelWork()

	var g errgroup.Group
	for i := 1; i <= s.workers; i++ {
		g.Go(func() error {
			s.pool.Work(workCtx, i)
			return nil
		})
	}
	s.logger.Info("workers started", "count", s.workers)

	if err := s.loop.Run(ctx); err != nil {
		s.logger.Error("ingestion loop failed", "error", err)
	}

	pending := s.pool.Queue.Len()
	for i := 0; i < s.workers; i++ {
		s.pool.Queue.Push(queue.Shutdown())
	}
	s.logger.Info("stopping workers", "pending", pending, "timeout", s.joinTimeout.String())

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("workers stopped")
	case <-time.After(s.joinTimeout):
		s.logger.Warn("workers still busy after timeout, cancelling in-flight calls")
		cancelWork()
	}

	if err := s.source.Close(); err != nil {
		return fmt.Errorf("closing capture source: %w", err)
	}
	return nil
}
