package worker

import (
	"context"
	"errors"
	"sync"

	"github.com/osse101/cosmos-agent/internal/logger"
)

// ErrPoolStopped is returned when enqueueing on a stopped pool
var ErrPoolStopped = errors.New(ErrMsgPoolStopped)

// Job represents a task to be executed by a worker
type Job interface {
	Process(ctx context.Context) error
}

// JobFunc adapts a function to Job
type JobFunc func(ctx context.Context) error

// Process calls f
func (f JobFunc) Process(ctx context.Context) error {
	return f(ctx)
}

// Pool represents a worker pool. Jobs run with the context given to Start;
// Stop cancels it, so long-running jobs such as unlock loops return.
type Pool struct {
	workers  int
	jobQueue chan Job
	wg       sync.WaitGroup
	quit     chan struct{}
	once     sync.Once
	cancel   context.CancelFunc
	ctx      context.Context
	onError  func(error)
}

// NewPool creates a new worker pool
func NewPool(workers int, queueSize int) *Pool {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Pool{
		workers:  workers,
		jobQueue: make(chan Job, queueSize),
		quit:     make(chan struct{}),
	}
}

// OnError registers a callback for failed jobs. Call before Start.
func (p *Pool) OnError(fn func(error)) {
	p.onError = fn
}

// Start starts the workers
func (p *Pool) Start(ctx context.Context) {
	p.ctx, p.cancel = context.WithCancel(ctx)
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// worker is the worker loop
func (p *Pool) worker(id int) {
	defer p.wg.Done()
	log := logger.FromContext(p.ctx).With("worker", id)
	for {
		select {
		case job := <-p.jobQueue:
			if err := job.Process(p.ctx); err != nil {
				log.Error(LogMsgWorkerJobFailed, "error", err)
				if p.onError != nil {
					p.onError(err)
				}
			}
		case <-p.quit:
			return
		case <-p.ctx.Done():
			return
		}
	}
}

// Enqueue adds a job to the queue. It blocks while the queue is full and
// fails once the pool is stopped.
func (p *Pool) Enqueue(job Job) error {
	select {
	case <-p.quit:
		return ErrPoolStopped
	default:
	}
	select {
	case p.jobQueue <- job:
		return nil
	case <-p.quit:
		return ErrPoolStopped
	}
}

// Stop cancels running jobs and waits for the workers to finish
func (p *Pool) Stop() {
	p.once.Do(func() {
		close(p.quit)
		if p.cancel != nil {
			p.cancel()
		}
	})
	p.wg.Wait()
}

// Wait blocks until every worker has returned, either because ctx passed to
// Start was cancelled or Stop was called
func (p *Pool) Wait() {
	p.wg.Wait()
}
