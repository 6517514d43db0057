// Package extkit provides first-party task middlewares built on the
// kernel's own public surface: retry-with-backoff and an in-memory
// memoizing cache. Both populate the well-known ExecutionJournal keys
// named (but left unimplemented) by the kernel's middleware design.
package extkit

import (
	"time"

	"github.com/noderun/kernel"
)

// RetryOption configures Retry.
type RetryOption func(*retryConfig)

type retryConfig struct {
	maxAttempts int
	backoff     func(attempt int) time.Duration
	retryable   func(error) bool
}

// WithMaxAttempts sets the total number of attempts (including the
// first), default 3.
func WithMaxAttempts(n int) RetryOption {
	return func(c *retryConfig) { c.maxAttempts = n }
}

// WithBackoff sets the delay before attempt n+1, default a fixed 0
// (immediate retry).
func WithBackoff(fn func(attempt int) time.Duration) RetryOption {
	return func(c *retryConfig) { c.backoff = fn }
}

// WithRetryable restricts retrying to errors fn accepts; default retries
// every error.
func WithRetryable(fn func(error) bool) RetryOption {
	return func(c *retryConfig) { c.retryable = fn }
}

// Retry builds a task middleware that re-invokes the remainder of the
// chain on failure, recording each attempt number under
// kernel.JournalRetryAttempt and the most recent failure under
// kernel.JournalRetryLastError.
func Retry(id string, opts ...RetryOption) *kernel.TaskMiddleware {
	cfg := retryConfig{
		maxAttempts: 3,
		backoff:     func(int) time.Duration { return 0 },
		retryable:   func(error) bool { return true },
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return kernel.NewTaskMiddleware(id, func(ctx kernel.AsyncExecContext, input any, deps kernel.Deps, next func(any) (any, error)) (any, error) {
		var lastErr error
		for attempt := 1; attempt <= cfg.maxAttempts; attempt++ {
			ctx.Journal().Set(kernel.JournalRetryAttempt, attempt)
			out, err := next(input)
			if err == nil {
				return out, nil
			}
			lastErr = err
			ctx.Journal().Set(kernel.JournalRetryLastError, err)
			if !cfg.retryable(err) || attempt == cfg.maxAttempts {
				break
			}
			if d := cfg.backoff(attempt); d > 0 {
				select {
				case <-time.After(d):
				case <-ctx.Context().Done():
					return nil, ctx.Context().Err()
				}
			}
		}
		return nil, lastErr
	})
}
