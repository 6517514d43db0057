package kernel

import "sync"

// Well-known journal keys populated by the built-in middlewares
// implemented in package extkit.
const (
	JournalRetryAttempt   = "retry.attempt"
	JournalRetryLastError = "retry.lastError"
	JournalCacheHit       = "cache.hit"
)

// ExecutionJournal is a per-invocation keyed record that middlewares and
// the pipeline attach observations to. Set replaces any earlier value for
// the same key unless the writer passes JournalAppend; a key is never
// protected against being rewritten. Readers always see the latest value
// for a key.
type ExecutionJournal struct {
	mu      sync.Mutex
	entries map[string][]any
}

// NewExecutionJournal returns an empty journal for one task/resource
// invocation.
func NewExecutionJournal() *ExecutionJournal {
	return &ExecutionJournal{entries: make(map[string][]any)}
}

// JournalOption controls how Set folds a new value into an existing key.
type JournalOption func(*journalConfig)

type journalConfig struct{ appendValue bool }

// JournalAppend keeps every value written to key instead of overriding.
func JournalAppend() JournalOption {
	return func(c *journalConfig) { c.appendValue = true }
}

// Set records value under key. By default this overrides any prior value
// for key; pass JournalAppend() to accumulate a history instead.
func (j *ExecutionJournal) Set(key string, value any, opts ...JournalOption) {
	cfg := journalConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if cfg.appendValue {
		j.entries[key] = append(j.entries[key], value)
		return
	}
	j.entries[key] = []any{value}
}

// Get returns the most recent value written to key.
func (j *ExecutionJournal) Get(key string) (any, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	vs, ok := j.entries[key]
	if !ok || len(vs) == 0 {
		return nil, false
	}
	return vs[len(vs)-1], true
}

// History returns every value ever written to key, in write order.
func (j *ExecutionJournal) History(key string) []any {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]any, len(j.entries[key]))
	copy(out, j.entries[key])
	return out
}

// Snapshot returns the latest value for every key currently in the
// journal, a point-in-time copy safe to retain after the invocation ends.
func (j *ExecutionJournal) Snapshot() map[string]any {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make(map[string]any, len(j.entries))
	for k, vs := range j.entries {
		if len(vs) > 0 {
			out[k] = vs[len(vs)-1]
		}
	}
	return out
}
