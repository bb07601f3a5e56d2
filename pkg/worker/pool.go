// Package worker provides a bounded worker pool that runs per-owner jobs,
// such as index reconciliation, off the caller's goroutine.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"github.com/papercomputeco/recall/pkg/logger"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
)

// Job is a unit of work for the worker pool to execute against.
type Job struct {
	OwnerID string
}

// Handler processes one job. Errors are logged and counted; they never stop
// the pool.
type Handler func(ctx context.Context, job Job) error

// Config is the configuration options for the worker pool.
type Config struct {
	// Handler runs each job.
	Handler Handler

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	Logger *slog.Logger
}

// Pool processes jobs asynchronously via a fixed set of workers.
type Pool struct {
	config *Config
	ctx    context.Context
	queue  chan Job
	wg     sync.WaitGroup
	logger *slog.Logger

	processed atomic.Uint64
	failed    atomic.Uint64
}

// NewPool creates a new Pool and starts its worker goroutines. Jobs run
// with ctx; canceling it makes remaining jobs fail fast in their handlers.
func NewPool(ctx context.Context, c *Config) (*Pool, error) {
	if c.Handler == nil {
		return nil, fmt.Errorf("worker pool requires a handler")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	if c.Logger == nil {
		c.Logger = logger.Nop()
	}

	wp := &Pool{
		config: c,
		ctx:    ctx,
		queue:  make(chan Job, c.QueueSize),
		logger: c.Logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full, resulting in the job being dropped
func (p *Pool) Enqueue(job Job) bool {
	select {
	case p.queue <- job:
		p.logger.Debug("job queued", "owner_id", job.OwnerID)
		return true
	default:
		p.logger.Error("job not queued, queue full, job dropped", "owner_id", job.OwnerID)
		return false
	}
}

// Submit blocks until the job is queued or ctx is done.
func (p *Pool) Submit(ctx context.Context, job Job) error {
	select {
	case p.queue <- job:
		p.logger.Debug("job queued", "owner_id", job.OwnerID)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
func (p *Pool) Close() {
	close(p.queue)
	p.wg.Wait()
}

// Processed returns the number of jobs that completed without error.
func (p *Pool) Processed() uint64 {
	return p.processed.Load()
}

// Failed returns the number of jobs whose handler returned an error.
func (p *Pool) Failed() uint64 {
	return p.failed.Load()
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", "worker_id", id)

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("worker stopped", "worker_id", id)
}

func (p *Pool) processJob(job Job) {
	if err := p.config.Handler(p.ctx, job); err != nil {
		p.failed.Add(1)
		p.logger.Error("job failed", "owner_id", job.OwnerID, "error", err)
		return
	}
	p.processed.Add(1)
}
