package tutor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"gemtutor/internal/logging"

	"golang.org/x/sync/errgroup"
)

// =============================================================================
// GRADING POOL
// =============================================================================
// A bounded queue drained by a fixed set of detached workers. Submit never
// blocks: when the queue is full or the pool is closed the job is dropped.
// Close abandons whatever is queued or running.

// GradeJob is one turn waiting to be graded.
type GradeJob struct {
	ID            string
	UserInput     string
	TutorResponse string
	Project       string
	Enqueued      time.Time
}

// GradeHandler processes one job. Its error is counted, never propagated.
type GradeHandler func(ctx context.Context, job GradeJob) error

// PoolStats is a snapshot of pool counters.
type PoolStats struct {
	Submitted int64
	Completed int64
	Failed    int64
	Dropped   int64
}

// GradingPool runs grading jobs in the background.
type GradingPool struct {
	queue   chan GradeJob
	handler GradeHandler
	cancel  context.CancelFunc
	group   *errgroup.Group

	mu     sync.RWMutex
	closed bool

	inFlight  atomic.Int64
	submitted atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

// NewGradingPool starts workers goroutines over a queue of queueSize.
func NewGradingPool(workers, queueSize int, handler GradeHandler) *GradingPool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}

	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)

	p := &GradingPool{
		queue:   make(chan GradeJob, queueSize),
		handler: handler,
		cancel:  cancel,
		group:   g,
	}
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			p.work(gctx)
			return nil
		})
	}
	logging.Grading("Grading pool started: workers=%d queue=%d", workers, queueSize)
	return p
}

// Submit enqueues a job without blocking and reports whether it was accepted.
func (p *GradingPool) Submit(job GradeJob) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.dropped.Add(1)
		return false
	}

	p.inFlight.Add(1)
	select {
	case p.queue <- job:
		p.submitted.Add(1)
		return true
	default:
		p.inFlight.Add(-1)
		p.dropped.Add(1)
		logging.Get(logging.CategoryGrading).Warn("Grading queue full, dropped job %s", job.ID)
		return false
	}
}

func (p *GradingPool) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-p.queue:
			p.run(ctx, job)
		}
	}
}

func (p *GradingPool) run(ctx context.Context, job GradeJob) {
	defer p.inFlight.Add(-1)

	if ctx.Err() != nil {
		p.dropped.Add(1)
		return
	}

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("grading panic: %v", r)
			}
		}()
		return p.handler(ctx, job)
	}()

	if err != nil {
		p.failed.Add(1)
		logging.GradingError("Job %s failed after %v: %v", job.ID, time.Since(job.Enqueued), err)
		return
	}
	p.completed.Add(1)
}

// Flush waits until every accepted job has finished or been dropped.
func (p *GradingPool) Flush(ctx context.Context) error {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for p.inFlight.Load() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// Close stops accepting jobs, cancels running ones, discards the queue and
// waits for the workers to exit. It is safe to call more than once.
func (p *GradingPool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	p.cancel()
	_ = p.group.Wait()

	for {
		select {
		case job := <-p.queue:
			p.dropped.Add(1)
			p.inFlight.Add(-1)
			logging.Get(logging.CategoryGrading).Debug("Discarded queued job %s on close", job.ID)
		default:
			s := p.Stats()
			logging.Grading("Grading pool closed: submitted=%d completed=%d failed=%d dropped=%d",
				s.Submitted, s.Completed, s.Failed, s.Dropped)
			return
		}
	}
}

// Stats returns the current counters.
func (p *GradingPool) Stats() PoolStats {
	return PoolStats{
		Submitted: p.submitted.Load(),
		Completed: p.completed.Load(),
		Failed:    p.failed.Load(),
		Dropped:   p.dropped.Load(),
	}
}
