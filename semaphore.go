package kernel

import (
	"context"
	"sync"
	"time"
)

// Semaphore is a plain (non-keyed) counting permit pool, backed by a
// buffered channel, with FIFO waiters, optional acquire timeouts, and
// basic metrics.
type Semaphore struct {
	mu        sync.Mutex
	permits   chan struct{}
	max       int
	disposed  bool
	disposeCh chan struct{}
	waiting   int
	acquired  int
}

// NewSemaphore returns a semaphore with maxPermits available slots.
// maxPermits must be positive.
func NewSemaphore(maxPermits int) (*Semaphore, error) {
	if maxPermits <= 0 {
		return nil, &InvalidPermitsError{Requested: maxPermits}
	}
	s := &Semaphore{
		permits:   make(chan struct{}, maxPermits),
		max:       maxPermits,
		disposeCh: make(chan struct{}),
	}
	for i := 0; i < maxPermits; i++ {
		s.permits <- struct{}{}
	}
	return s, nil
}

// Acquire blocks until a permit is available, ctx is done, or timeout (if
// positive) elapses, returning SemaphoreAcquireTimeoutError on timeout and
// SemaphoreDisposedError once Dispose has been called.
func (s *Semaphore) Acquire(ctx context.Context, timeout time.Duration) error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return &SemaphoreDisposedError{}
	}
	s.waiting++
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.waiting--
		s.mu.Unlock()
	}()

	var timeoutCh <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case <-s.permits:
		s.mu.Lock()
		if s.disposed {
			s.mu.Unlock()
			s.permits <- struct{}{}
			return &SemaphoreDisposedError{}
		}
		s.acquired++
		s.mu.Unlock()
		return nil
	case <-s.disposeCh:
		return &SemaphoreDisposedError{}
	case <-ctx.Done():
		return ctx.Err()
	case <-timeoutCh:
		return &SemaphoreAcquireTimeoutError{Waited: timeout.String()}
	}
}

// Release returns a permit to the pool.
func (s *Semaphore) Release() {
	s.mu.Lock()
	if s.acquired > 0 {
		s.acquired--
	}
	s.mu.Unlock()
	s.permits <- struct{}{}
}

// WithPermit acquires a permit, runs fn, and releases it regardless of
// fn's outcome.
func (s *Semaphore) WithPermit(ctx context.Context, timeout time.Duration, fn func() error) error {
	if err := s.Acquire(ctx, timeout); err != nil {
		return err
	}
	defer s.Release()
	return fn()
}

// SemaphoreMetrics reports the pool's current occupancy.
type SemaphoreMetrics struct {
	Max      int
	Acquired int
	Waiting  int
}

// Metrics returns a point-in-time snapshot.
func (s *Semaphore) Metrics() SemaphoreMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SemaphoreMetrics{Max: s.max, Acquired: s.acquired, Waiting: s.waiting}
}

// Dispose marks the semaphore closed; further Acquire calls fail
// immediately with SemaphoreDisposedError, and any Acquire call already
// parked waiting for a permit is woken immediately with the same error
// instead of waiting out its timeout or a Release that will never come.
func (s *Semaphore) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	s.mu.Unlock()
	close(s.disposeCh)
}
