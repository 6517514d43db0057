package extkit

import (
	"fmt"
	"sync"

	"github.com/noderun/kernel"
)

// MemoCacheOption configures MemoCache.
type MemoCacheOption func(*memoConfig)

type memoConfig struct {
	keyFn func(input any) string
}

// WithCacheKey overrides the default fmt.Sprintf("%v", input) cache key
// derivation.
func WithCacheKey(fn func(input any) string) MemoCacheOption {
	return func(c *memoConfig) { c.keyFn = fn }
}

// MemoCache builds a task middleware that memoizes results by input,
// skipping the remainder of the chain on a repeat call and recording
// kernel.JournalCacheHit true/false. The cache belongs to the returned
// middleware value and lives as long as that value does, shared by every
// task and runtime it is attached to; there is no eviction, matching the
// immutable-once-computed posture the rest of this kernel takes toward
// cached state.
func MemoCache(id string, opts ...MemoCacheOption) *kernel.TaskMiddleware {
	cfg := memoConfig{keyFn: func(input any) string { return fmt.Sprintf("%v", input) }}
	for _, opt := range opts {
		opt(&cfg)
	}

	var mu sync.Mutex
	cache := map[string]any{}

	return kernel.NewTaskMiddleware(id, func(ctx kernel.AsyncExecContext, input any, deps kernel.Deps, next func(any) (any, error)) (any, error) {
		key := cfg.keyFn(input)

		mu.Lock()
		cached, hit := cache[key]
		mu.Unlock()

		ctx.Journal().Set(kernel.JournalCacheHit, hit)
		if hit {
			return cached, nil
		}

		out, err := next(input)
		if err != nil {
			return nil, err
		}

		mu.Lock()
		cache[key] = out
		mu.Unlock()
		return out, nil
	})
}
