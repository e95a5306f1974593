package jobs

import (
	"context"
	"log"
	"sync"
	"sync/atomic"

	"github.com/Denis-Joly/QuickScript/internal/domain"
	"github.com/Denis-Joly/QuickScript/internal/media"
	"github.com/Denis-Joly/QuickScript/internal/metrics"
)

// JobRunner executes the pipeline for one job id.
type JobRunner interface {
	Run(ctx context.Context, id string)
}

// Scheduler accepts job submissions, bounds how many runners execute at
// once, and exposes cooperative cancellation.
type Scheduler struct {
	store      *Store
	runner     JobRunner
	sem        chan struct{}
	maxPending int32

	baseCtx context.Context
	stop    context.CancelFunc

	mu       sync.Mutex
	cancels  map[string]context.CancelFunc
	draining bool

	pending atomic.Int32
	wg      sync.WaitGroup
}

// NewScheduler builds a scheduler allowing maxActive concurrent runners
// and up to maxPending jobs waiting for a slot.
func NewScheduler(store *Store, runner JobRunner, maxActive, maxPending int) *Scheduler {
	if maxActive <= 0 {
		maxActive = 1
	}
	if maxPending <= 0 {
		maxPending = maxActive
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		store:      store,
		runner:     runner,
		sem:        make(chan struct{}, maxActive),
		maxPending: int32(maxPending),
		baseCtx:    ctx,
		stop:       cancel,
		cancels:    make(map[string]context.CancelFunc),
	}
}

// Submit validates the source, registers a queued job, and launches its
// runner asynchronously. Returns the new id immediately.
func (s *Scheduler) Submit(source domain.Source, opts domain.Options) (string, error) {
	if err := media.ValidateSource(source); err != nil {
		return "", err
	}

	s.mu.Lock()
	if s.draining {
		s.mu.Unlock()
		return "", domain.ErrCapacity
	}
	if s.pending.Load() >= s.maxPending {
		s.mu.Unlock()
		return "", domain.ErrCapacity
	}

	job := s.store.Create(source, opts)
	jobCtx, cancel := context.WithCancel(s.baseCtx)
	s.cancels[job.ID] = cancel
	s.pending.Add(1)
	s.wg.Add(1)
	s.mu.Unlock()

	metrics.JobsSubmittedTotal.WithLabelValues(string(source.Kind)).Inc()
	metrics.JobsPending.Inc()
	log.Printf("job %s: submitted (%s)", job.ID, source)

	go s.launch(jobCtx, job.ID)
	return job.ID, nil
}

// Cancel flags a job for cooperative cancellation and interrupts its
// in-flight capability. Teardown happens inside the runner.
func (s *Scheduler) Cancel(id string) error {
	if err := s.store.RequestCancel(id); err != nil {
		return err
	}

	s.mu.Lock()
	cancel, ok := s.cancels[id]
	s.mu.Unlock()
	if ok {
		cancel()
	}
	log.Printf("job %s: cancellation requested", id)
	return nil
}

// Shutdown stops intake, cancels all active jobs, and waits for runners
// to finish or ctx to expire.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.draining = true
	s.mu.Unlock()

	s.stop()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// launch waits for a runner slot, then executes the pipeline.
func (s *Scheduler) launch(ctx context.Context, id string) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.cancels, id)
		s.mu.Unlock()
	}()

	acquired := false
	select {
	case s.sem <- struct{}{}:
		acquired = true
	case <-ctx.Done():
		// Cancelled while queued; let the runner observe it immediately.
	}
	if acquired {
		defer func() { <-s.sem }()
	}

	s.pending.Add(-1)
	metrics.JobsPending.Dec()
	metrics.JobsRunning.Inc()
	defer metrics.JobsRunning.Dec()

	s.runner.Run(ctx, id)
}
