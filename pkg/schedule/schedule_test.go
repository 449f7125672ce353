package schedule_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/papers/pkg/ingest"
	"github.com/papercomputeco/papers/pkg/logger"
	"github.com/papercomputeco/papers/pkg/schedule"
)

// blockingRunner records runs and blocks each one until released.
type blockingRunner struct {
	mu      sync.Mutex
	targets []int

	active    atomic.Int32
	maxActive atomic.Int32

	started chan struct{}
	release chan struct{}
	err     error
}

func newBlockingRunner() *blockingRunner {
	return &blockingRunner{
		started: make(chan struct{}, 16),
		release: make(chan struct{}),
	}
}

func (r *blockingRunner) RunBatch(ctx context.Context, target int) (*ingest.Summary, error) {
	n := r.active.Add(1)
	defer r.active.Add(-1)
	for {
		m := r.maxActive.Load()
		if n <= m || r.maxActive.CompareAndSwap(m, n) {
			break
		}
	}

	r.mu.Lock()
	r.targets = append(r.targets, target)
	r.mu.Unlock()

	r.started <- struct{}{}

	select {
	case <-r.release:
	case <-ctx.Done():
		return &ingest.Summary{}, ctx.Err()
	}
	return &ingest.Summary{ItemsProcessed: target}, r.err
}

func (r *blockingRunner) runs() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.targets...)
}

// instantRunner completes every run immediately.
type instantRunner struct {
	calls atomic.Int32
}

func (r *instantRunner) RunBatch(_ context.Context, target int) (*ingest.Summary, error) {
	r.calls.Add(1)
	return &ingest.Summary{ItemsProcessed: target}, nil
}

var _ = Describe("Scheduler", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("validates its configuration", func() {
		_, err := schedule.NewScheduler(&schedule.Config{})
		Expect(err).To(HaveOccurred())

		_, err = schedule.NewScheduler(&schedule.Config{Runner: &instantRunner{}, Interval: -time.Second})
		Expect(err).To(HaveOccurred())

		_, err = schedule.NewScheduler(&schedule.Config{Runner: &instantRunner{}, TargetCount: -1})
		Expect(err).To(HaveOccurred())
	})

	It("coalesces triggers to a queue of depth one", func() {
		runner := newBlockingRunner()
		s, err := schedule.NewScheduler(&schedule.Config{Runner: runner, Logger: logger.Nop()})
		Expect(err).NotTo(HaveOccurred())
		s.Start(ctx)
		defer s.Close()

		Expect(s.Trigger(1)).To(BeTrue())
		Eventually(runner.started).Should(Receive())

		// One run is in flight; one more may wait behind it.
		Expect(s.Trigger(2)).To(BeTrue())
		Expect(s.Trigger(3)).To(BeFalse())

		runner.release <- struct{}{}
		Eventually(runner.started).Should(Receive())
		runner.release <- struct{}{}

		Eventually(runner.runs).Should(Equal([]int{1, 2}))
		Consistently(runner.runs, 100*time.Millisecond).Should(HaveLen(2))
		Expect(runner.maxActive.Load()).To(Equal(int32(1)))
	})

	It("refuses synchronous runs while another is in flight", func() {
		runner := newBlockingRunner()
		s, err := schedule.NewScheduler(&schedule.Config{Runner: runner, Logger: logger.Nop()})
		Expect(err).NotTo(HaveOccurred())
		s.Start(ctx)
		defer s.Close()

		Expect(s.Trigger(1)).To(BeTrue())
		Eventually(runner.started).Should(Receive())

		_, err = s.RunNow(ctx, 5)
		Expect(errors.Is(err, schedule.ErrBusy)).To(BeTrue())

		runner.release <- struct{}{}
		Eventually(func() int32 { return runner.active.Load() }).Should(BeZero())

		done := make(chan *ingest.Summary, 1)
		go func() {
			defer GinkgoRecover()
			summary, err := s.RunNow(ctx, 5)
			Expect(err).NotTo(HaveOccurred())
			done <- summary
		}()
		Eventually(runner.started).Should(Receive())
		runner.release <- struct{}{}

		var summary *ingest.Summary
		Eventually(done).Should(Receive(&summary))
		Expect(summary.ItemsProcessed).To(Equal(5))
	})

	It("runs on the interval and on start", func() {
		runner := &instantRunner{}
		var completed atomic.Int32
		s, err := schedule.NewScheduler(&schedule.Config{
			Runner:      runner,
			Interval:    20 * time.Millisecond,
			TargetCount: 2,
			RunOnStart:  true,
			OnComplete: func(summary *ingest.Summary, err error) {
				Expect(err).NotTo(HaveOccurred())
				Expect(summary.ItemsProcessed).To(Equal(2))
				completed.Add(1)
			},
			Logger: logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
		s.Start(ctx)
		defer s.Close()

		Eventually(func() int32 { return completed.Load() }).Should(BeNumerically(">=", 3))
	})

	It("cancels the run in flight on close and drops later triggers", func() {
		runner := newBlockingRunner()
		var gotErr atomic.Value
		s, err := schedule.NewScheduler(&schedule.Config{
			Runner: runner,
			OnComplete: func(_ *ingest.Summary, err error) {
				if err != nil {
					gotErr.Store(err)
				}
			},
			Logger: logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
		s.Start(ctx)

		Expect(s.Trigger(1)).To(BeTrue())
		Eventually(runner.started).Should(Receive())

		s.Close()
		Expect(gotErr.Load()).To(MatchError(context.Canceled))

		Expect(s.Trigger(1)).To(BeFalse())
		_, err = s.RunNow(ctx, 1)
		Expect(errors.Is(err, schedule.ErrClosed)).To(BeTrue())

		// Close is idempotent.
		s.Close()
	})
})
