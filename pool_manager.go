package kernel

import "sync"

// journalPool recycles ExecutionJournal instances across task invocations,
// avoiding a fresh map allocation on every call in hot paths, via a
// sync.Pool with hit/miss metrics.
type journalPool struct {
	pool    sync.Pool
	metrics journalPoolMetrics
}

type journalPoolMetrics struct {
	mu     sync.Mutex
	hits   uint64
	misses uint64
}

func newJournalPool() *journalPool {
	jp := &journalPool{}
	jp.pool.New = func() any {
		return &ExecutionJournal{entries: make(map[string][]any, 8)}
	}
	return jp
}

func (jp *journalPool) acquire() *ExecutionJournal {
	j, ok := jp.pool.Get().(*ExecutionJournal)
	jp.metrics.mu.Lock()
	if ok && j != nil {
		jp.metrics.hits++
	} else {
		jp.metrics.misses++
	}
	jp.metrics.mu.Unlock()
	if !ok || j == nil {
		return &ExecutionJournal{entries: make(map[string][]any, 8)}
	}
	for k := range j.entries {
		delete(j.entries, k)
	}
	return j
}

func (jp *journalPool) release(j *ExecutionJournal) {
	if j == nil {
		return
	}
	jp.pool.Put(j)
}

// JournalPoolMetrics reports pool hit/miss counts, mirroring
// PoolMetrics.GetMetrics in spirit.
type JournalPoolMetrics struct {
	Hits   uint64
	Misses uint64
}

func (jp *journalPool) snapshot() JournalPoolMetrics {
	jp.metrics.mu.Lock()
	defer jp.metrics.mu.Unlock()
	return JournalPoolMetrics{Hits: jp.metrics.hits, Misses: jp.metrics.misses}
}
