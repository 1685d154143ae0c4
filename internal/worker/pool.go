// Package worker runs chunk-processing jobs on a bounded pool. Chunks of the
// same session carry no ordering requirement, so jobs are independent and
// workers pull from one shared queue.
package worker

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// ErrQueueFull is returned when the job queue cannot accept more work.
var ErrQueueFull = errors.New("job queue full")

// Job is one unit of work.
type Job interface {
	ID() string
	Execute(ctx context.Context) error
}

// Pool is a fixed-size worker pool over a buffered job queue.
type Pool struct {
	workers int
	jobs    chan Job
	wg      sync.WaitGroup
	cancel  context.CancelFunc
	logger  *zap.Logger
}

// NewPool creates a pool with the given worker count and queue capacity.
func NewPool(workers, queueSize int, logger *zap.Logger) *Pool {
	if workers <= 0 {
		workers = 4
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Pool{
		workers: workers,
		jobs:    make(chan Job, queueSize),
		logger:  logger,
	}
}

// Start launches the workers. They run until Stop is called.
func (p *Pool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)

	p.logger.Info("Worker pool starting", zap.Int("workers", p.workers))
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run(ctx, i+1)
	}
}

func (p *Pool) run(ctx context.Context, id int) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			p.logger.Debug("Worker picked up job",
				zap.Int("worker", id),
				zap.String("job_id", job.ID()))
			if err := job.Execute(ctx); err != nil {
				p.logger.Error("Job failed",
					zap.Int("worker", id),
					zap.String("job_id", job.ID()),
					zap.Error(err))
			}
		}
	}
}

// Submit enqueues a job without blocking. A full queue is reported, not
// waited on.
func (p *Pool) Submit(job Job) error {
	select {
	case p.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop cancels the workers and waits for in-flight jobs to finish.
func (p *Pool) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	p.logger.Info("Worker pool stopped")
}
