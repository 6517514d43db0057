package kernel

import (
	"context"
	"sync"
)

// Queue is an unbounded, single-inflight FIFO job runner. At most one job
// runs at a time; callers enqueue and block until their job completes or
// the queue is disposed. A job must never enqueue to the very queue it
// is running on.
type Queue struct {
	mu        sync.Mutex
	disposed  bool
	canceled  bool
	running   chan struct{}      // 1-buffered token; held while a job runs
	current   any                // identity of the job presently running, for deadlock detection
	cancelCh  chan struct{}      // closed only on a cancel-mode Dispose, to reject parked waiters
	runCancel context.CancelFunc // cancels the presently running job's context, set only while one runs
}

// NewQueue returns an empty, ready-to-use queue.
func NewQueue() *Queue {
	q := &Queue{running: make(chan struct{}, 1), cancelCh: make(chan struct{})}
	q.running <- struct{}{}
	return q
}

// Run enqueues fn, blocking the caller until it is fn's turn and then
// until fn returns. token identifies the caller's own in-flight job (e.g.
// the task invocation id); if fn itself calls Run on the same Queue with
// the same token while holding the slot, that is a "job enqueues to its
// own queue" deadlock, and is rejected immediately rather than hung
// forever. fn receives a context derived from ctx that is canceled early
// if Dispose(WithCancel()) is called while fn is running.
func (q *Queue) Run(ctx context.Context, token any, fn func(ctx context.Context) (any, error)) (any, error) {
	q.mu.Lock()
	if q.disposed {
		q.mu.Unlock()
		return nil, &QueueDisposedError{}
	}
	if q.current != nil && token != nil && q.current == token {
		q.mu.Unlock()
		return nil, &QueueDeadlockError{}
	}
	q.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-q.cancelCh:
		return nil, &QueueDisposedError{}
	case <-q.running:
	}

	runCtx, cancel := context.WithCancel(ctx)
	q.mu.Lock()
	q.current = token
	q.runCancel = cancel
	q.mu.Unlock()

	result, err := fn(runCtx)

	q.mu.Lock()
	q.current = nil
	q.runCancel = nil
	q.mu.Unlock()
	cancel()
	q.running <- struct{}{}

	return result, err
}

// QueueDisposeOption configures a Dispose call.
type QueueDisposeOption func(*queueDisposeConfig)

type queueDisposeConfig struct {
	cancel bool
}

// WithCancel requests cancel-mode disposal: any job currently waiting for
// the run slot is rejected immediately with QueueDisposedError instead of
// waiting its turn, and the presently running job's context is canceled
// so it can observe ctx.Done() and return early.
func WithCancel() QueueDisposeOption {
	return func(c *queueDisposeConfig) { c.cancel = true }
}

// Dispose marks the queue closed: every future Run call is rejected with
// QueueDisposedError. With no options (the default, "drain" mode), a job
// already waiting for the run slot still gets its turn and runs to
// completion undisturbed. With WithCancel(), every parked waiter is
// rejected immediately and the in-flight job's context is canceled.
// Idempotent, and safe to call Dispose() then later Dispose(WithCancel())
// to escalate from drain to cancel.
func (q *Queue) Dispose(opts ...QueueDisposeOption) {
	cfg := queueDisposeConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	q.mu.Lock()
	q.disposed = true
	alreadyCanceled := q.canceled
	if cfg.cancel {
		q.canceled = true
	}
	runCancel := q.runCancel
	q.mu.Unlock()

	if cfg.cancel && !alreadyCanceled {
		close(q.cancelCh)
		if runCancel != nil {
			runCancel()
		}
	}
}
