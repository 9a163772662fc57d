// Package pool runs a fixed number of workers over an unbounded job queue.
//
// The shutdown protocol has two phases. Close marks that no more jobs will
// be submitted; Wait then joins the workers once they have drained the
// queue. Wait refuses to run before Close, since idle workers would
// otherwise block forever.
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/panics"
	"golang.org/x/sync/errgroup"
)

var (
	ErrClosed         = errors.New("pool is closed")
	ErrNotStarted     = errors.New("pool has not been started")
	ErrAlreadyStarted = errors.New("pool already started")
	ErrNotClosed      = errors.New("pool must be closed before waiting")
	ErrInvalidWorkers = errors.New("worker count must be at least 1")
)

// Job is one unit of work: a file to process.
type Job struct {
	Path string
}

// Handler processes a job. Returned errors are reported through the error
// handler and never stop the pool.
type Handler func(ctx context.Context, job Job) error

// Stats is a point-in-time view of pool activity.
type Stats struct {
	Submitted int64
	Completed int64
	Failed    int64
	Pending   int
}

// Option configures a Pool.
type Option func(*Pool)

// WithErrorHandler registers fn to receive job errors, including recovered
// panics. fn may be called concurrently from several workers.
func WithErrorHandler(fn func(Job, error)) Option {
	return func(p *Pool) {
		p.onError = fn
	}
}

// WithDepthObserver registers fn to receive the queue length after every
// enqueue and dequeue. It is called with the queue lock held and must not
// call back into the pool.
func WithDepthObserver(fn func(int)) Option {
	return func(p *Pool) {
		p.onDepth = fn
	}
}

// WithLogger sets the logger used for worker lifecycle events.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Pool) {
		p.logger = logger
	}
}

// Pool is a fixed-size worker pool. A Pool runs once: Start, any number of
// Submit calls, Close, Wait.
type Pool struct {
	workers int
	handler Handler
	onError func(Job, error)
	onDepth func(int)
	logger  zerolog.Logger

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []Job
	closed  bool
	started bool

	group       *errgroup.Group
	stopWakeups func() bool

	submitted atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
}

// New creates a pool of workers that run handler for every submitted job.
func New(workers int, handler Handler, opts ...Option) (*Pool, error) {
	if workers < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWorkers, workers)
	}
	if handler == nil {
		return nil, errors.New("handler is required")
	}

	p := &Pool{
		workers: workers,
		handler: handler,
		logger:  zerolog.Nop(),
	}
	p.cond = sync.NewCond(&p.mu)
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Workers returns the number of worker goroutines.
func (p *Pool) Workers() int {
	return p.workers
}

// Start launches the workers. They idle until jobs arrive. Cancelling ctx
// makes workers abandon queued jobs after finishing their current one.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return ErrAlreadyStarted
	}
	p.started = true

	// Blocked workers only wake on the condition variable, so cancellation
	// has to broadcast on it.
	p.stopWakeups = context.AfterFunc(ctx, func() {
		p.mu.Lock()
		p.cond.Broadcast()
		p.mu.Unlock()
	})

	p.group = &errgroup.Group{}
	for i := 0; i < p.workers; i++ {
		id := i
		p.group.Go(func() error {
			return p.work(ctx, id)
		})
	}
	return nil
}

// Submit enqueues a job. It never blocks on workers.
func (p *Pool) Submit(job Job) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}
	p.queue = append(p.queue, job)
	p.submitted.Add(1)
	p.observeDepth()
	p.cond.Signal()
	return nil
}

// Close marks that no more jobs will be submitted. Workers exit once the
// queue is empty. Close is idempotent.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	p.cond.Broadcast()
}

// Wait joins every worker. It must be called after Close. It returns the
// context error if the pool was cancelled, nil otherwise.
func (p *Pool) Wait() error {
	p.mu.Lock()
	started, closed := p.started, p.closed
	p.mu.Unlock()

	if !started {
		return ErrNotStarted
	}
	if !closed {
		return ErrNotClosed
	}

	err := p.group.Wait()
	p.stopWakeups()
	return err
}

// Stats returns current counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	pending := len(p.queue)
	p.mu.Unlock()

	return Stats{
		Submitted: p.submitted.Load(),
		Completed: p.completed.Load(),
		Failed:    p.failed.Load(),
		Pending:   pending,
	}
}

func (p *Pool) work(ctx context.Context, id int) error {
	log := p.logger.With().Int("worker", id).Logger()
	log.Debug().Msg("worker started")

	for {
		job, ok := p.next(ctx)
		if !ok {
			if err := ctx.Err(); err != nil {
				log.Debug().Err(err).Msg("worker cancelled")
				return err
			}
			log.Debug().Msg("worker finished")
			return nil
		}
		p.run(ctx, job)
	}
}

// next blocks until a job is available, the pool is closed and drained, or
// ctx is cancelled.
func (p *Pool) next(ctx context.Context) (Job, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for len(p.queue) == 0 && !p.closed && ctx.Err() == nil {
		p.cond.Wait()
	}
	if ctx.Err() != nil || len(p.queue) == 0 {
		return Job{}, false
	}

	job := p.queue[0]
	p.queue[0] = Job{}
	p.queue = p.queue[1:]
	p.observeDepth()
	return job, true
}

func (p *Pool) observeDepth() {
	if p.onDepth != nil {
		p.onDepth(len(p.queue))
	}
}

func (p *Pool) run(ctx context.Context, job Job) {
	var (
		catcher panics.Catcher
		err     error
	)
	catcher.Try(func() {
		err = p.handler(ctx, job)
	})
	if r := catcher.Recovered(); r != nil {
		err = r.AsError()
	}

	p.completed.Add(1)
	if err == nil {
		return
	}
	p.failed.Add(1)
	if p.onError != nil {
		p.onError(job, err)
	}
}
