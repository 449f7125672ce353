// Package schedule runs ingestion batches on an interval with single-writer
// semantics inside one process.
//
// Runs are serialized through a queue of depth one: a trigger that arrives
// while a run is already waiting is coalesced into it, and a trigger that
// arrives while a run is in flight is queued at most once.
package schedule

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/papercomputeco/papers/pkg/ingest"
)

// ErrBusy is returned by RunNow when another run is in flight.
var ErrBusy = errors.New("ingestion already running")

// ErrClosed is returned by RunNow after Close.
var ErrClosed = errors.New("scheduler closed")

// Runner executes one ingestion batch. *ingest.Pipeline implements it.
type Runner interface {
	RunBatch(ctx context.Context, target int) (*ingest.Summary, error)
}

// Config is the configuration options for the Scheduler.
type Config struct {
	// Runner executes each batch.
	Runner Runner

	// Interval between scheduled runs. Zero disables the ticker, leaving only
	// explicit triggers.
	Interval time.Duration

	// TargetCount is the per-run quota for scheduled and triggered runs.
	TargetCount int

	// RunOnStart queues a run as soon as the scheduler starts.
	RunOnStart bool

	// OnComplete, when set, is called after every queued run.
	OnComplete func(*ingest.Summary, error)

	Logger *slog.Logger
}

// Scheduler serializes ingestion runs.
type Scheduler struct {
	config *Config
	logger *slog.Logger

	queue chan int

	// runMu is held for the duration of every run.
	runMu sync.Mutex

	mu     sync.Mutex
	closed bool
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a Scheduler. Call Start to begin processing.
func NewScheduler(c *Config) (*Scheduler, error) {
	if c.Runner == nil {
		return nil, errors.New("runner is required")
	}
	if c.Interval < 0 {
		return nil, errors.New("interval must not be negative")
	}
	if c.TargetCount < 0 {
		return nil, errors.New("target count must not be negative")
	}

	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		config: c,
		logger: logger,
		queue:  make(chan int, 1),
	}, nil
}

// Start launches the worker and, when an interval is set, the ticker. Runs
// use ctx, so cancelling it interrupts the run in flight.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go s.worker(ctx)

	if s.config.Interval > 0 {
		s.wg.Add(1)
		go s.tick(ctx)
	}

	if s.config.RunOnStart {
		s.Trigger(s.config.TargetCount)
	}

	s.logger.Info("scheduler started",
		"interval", s.config.Interval,
		"target_count", s.config.TargetCount,
	)
}

// Trigger queues a run for target entries. Returns false if a run is
// already queued or the scheduler is closed, in which case the trigger is
// dropped.
func (s *Scheduler) Trigger(target int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}

	select {
	case s.queue <- target:
		s.logger.Debug("ingestion run queued", "target_count", target)
		return true
	default:
		s.logger.Debug("ingestion run already queued, trigger coalesced", "target_count", target)
		return false
	}
}

// RunNow runs a batch synchronously on the caller's goroutine. It returns
// ErrBusy instead of waiting when another run is in flight.
func (s *Scheduler) RunNow(ctx context.Context, target int) (*ingest.Summary, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	if !s.runMu.TryLock() {
		return nil, ErrBusy
	}
	defer s.runMu.Unlock()

	return s.config.Runner.RunBatch(ctx, target)
}

// Close stops the ticker, cancels any run in flight and waits for the
// worker to exit. Queued runs that have not started are dropped.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) tick(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Trigger(s.config.TargetCount)
		}
	}
}

func (s *Scheduler) worker(ctx context.Context) {
	defer s.wg.Done()
	s.logger.Debug("scheduler worker started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("scheduler worker stopped")
			return
		case target := <-s.queue:
			s.run(ctx, target)
		}
	}
}

func (s *Scheduler) run(ctx context.Context, target int) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	// A cancelled context can race with a queued trigger in the select.
	if ctx.Err() != nil {
		return
	}

	summary, err := s.config.Runner.RunBatch(ctx, target)
	if err != nil {
		s.logger.Error("scheduled ingestion run failed", "error", err)
	}

	if s.config.OnComplete != nil {
		s.config.OnComplete(summary, err)
	}
}
