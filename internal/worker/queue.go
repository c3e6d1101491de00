package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

var ErrStopped = errors.New("worker queue stopped")

type Job func(ctx context.Context) error

type request struct {
	ctx  context.Context
	job  Job
	done chan error
}

// Queue runs submitted jobs one at a time, in submission order, on a single
// dedicated goroutine.
type Queue struct {
	logger *zap.Logger
	jobs   chan request
	stop   chan struct{}
	exited chan struct{}

	mu      sync.Mutex
	started bool
	stopped bool
}

func NewQueue(logger *zap.Logger, backlog int) *Queue {
	if backlog < 0 {
		backlog = 0
	}
	return &Queue{
		logger: logger,
		jobs:   make(chan request, backlog),
		stop:   make(chan struct{}),
		exited: make(chan struct{}),
	}
}

func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started || q.stopped {
		return
	}
	q.started = true

	q.logger.Info("Starting mutation queue")
	go q.run(ctx)
}

// Stop rejects new jobs, runs the ones already queued and waits for the
// worker to exit. Safe to call more than once.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		<-q.exited
		return
	}
	q.stopped = true
	close(q.stop)
	started := q.started
	q.mu.Unlock()

	if !started {
		q.drain(context.Background())
		close(q.exited)
		return
	}
	q.logger.Info("Stopping mutation queue...")
	<-q.exited
	q.logger.Info("Mutation queue stopped")
}

// Submit enqueues job and blocks until it has run, ctx is done or the queue
// stops. A job whose ctx is already done when dequeued is skipped.
func (q *Queue) Submit(ctx context.Context, job Job) error {
	select {
	case <-q.stop:
		return ErrStopped
	default:
	}

	req := request{ctx: ctx, job: job, done: make(chan error, 1)}
	select {
	case q.jobs <- req:
	case <-q.stop:
		return ErrStopped
	case <-q.exited:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-req.done:
		return err
	case <-q.exited:
		select {
		case err := <-req.done:
			return err
		default:
			return ErrStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) run(ctx context.Context) {
	defer close(q.exited)

	for {
		select {
		case req := <-q.jobs:
			q.execute(req)
		case <-q.stop:
			q.drain(ctx)
			return
		case <-ctx.Done():
			q.drain(ctx)
			return
		}
	}
}

// drain finishes whatever was accepted before the stop.
func (q *Queue) drain(ctx context.Context) {
	for {
		select {
		case req := <-q.jobs:
			if ctx.Err() != nil {
				req.done <- ErrStopped
				continue
			}
			q.execute(req)
		default:
			return
		}
	}
}

func (q *Queue) execute(req request) {
	if err := req.ctx.Err(); err != nil {
		req.done <- err
		return
	}

	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("job panicked", zap.Any("panic", r))
			req.done <- fmt.Errorf("job panicked: %v", r)
		}
	}()
	req.done <- req.job(req.ctx)
}
