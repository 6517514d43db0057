package kernel

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// listenerEntry pairs a hook with the declaration index used to break
// order ties.
type listenerEntry struct {
	hook  *Hook
	index int
}

// eventFlags carries an event's own delivery configuration (set via
// EventOption) through to the dispatcher, which only ever sees event ids.
type eventFlags struct {
	parallel      bool
	excludeGlobal bool
}

// dispatcher owns event delivery: per-event listener registries plus a
// global registry for OnAny() hooks, sorted by (order, declaration index),
// with cycle detection on re-entrant emission.
type dispatcher struct {
	mu      sync.Mutex
	byEvent map[string][]listenerEntry
	global  []listenerEntry
	nextIdx int
	flags   map[string]eventFlags

	stackMu sync.Mutex
	stack   map[string][]string // per-goroutine-agnostic emission stack, keyed by a call id
}

func newDispatcher() *dispatcher {
	return &dispatcher{
		byEvent: map[string][]listenerEntry{},
		flags:   map[string]eventFlags{},
		stack:   map[string][]string{},
	}
}

func (d *dispatcher) register(h *Hook) {
	d.mu.Lock()
	defer d.mu.Unlock()
	entry := listenerEntry{hook: h, index: d.nextIdx}
	d.nextIdx++
	if h.target.global {
		d.global = append(d.global, entry)
		sortListeners(d.global)
		return
	}
	for _, eid := range h.target.eventIDs {
		d.byEvent[eid] = append(d.byEvent[eid], entry)
		sortListeners(d.byEvent[eid])
	}
}

// registerEventFlags records eventID's parallel/excludeGlobal delivery
// configuration, read by emit. Events that never call this (e.g. one
// emitted by id alone without ever passing through Run's collection) fall
// back to sequential, global-inclusive delivery.
func (d *dispatcher) registerEventFlags(eventID string, parallel, excludeGlobal bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.flags[eventID] = eventFlags{parallel: parallel, excludeGlobal: excludeGlobal}
}

func sortListeners(ls []listenerEntry) {
	sort.SliceStable(ls, func(i, j int) bool {
		if ls[i].hook.order != ls[j].hook.order {
			return ls[i].hook.order < ls[j].hook.order
		}
		return ls[i].index < ls[j].index
	})
}

// EventEmission is shared by every listener of one emit call. A listener
// that calls StopPropagation prevents any listener still queued behind it
// (same or later order-group) from running.
type EventEmission struct {
	mu      sync.Mutex
	stopped bool
}

// StopPropagation halts delivery to any remaining listener of this emit.
func (e *EventEmission) StopPropagation() {
	e.mu.Lock()
	e.stopped = true
	e.mu.Unlock()
}

// IsPropagationStopped reports whether a prior listener already called
// StopPropagation.
func (e *EventEmission) IsPropagationStopped() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopped
}

// FailureMode controls how emit reacts to a listener returning an error.
type FailureMode int

const (
	// FailFast stops delivering to any further listener the moment one
	// returns an error, returning that error immediately. This is emit's
	// default.
	FailFast FailureMode = iota
	// Aggregate runs every listener regardless of earlier failures,
	// collecting every error into EmitReport.Errors and returning a
	// single error summarizing the count once delivery completes.
	Aggregate
)

// EmitReport summarizes one emission: which listeners were attempted,
// skipped, or self-suppressed, which succeeded or failed, and whether
// propagation was stopped partway through.
type EmitReport struct {
	EventID             string
	TotalListeners      int
	AttemptedListeners  []string
	SkippedListeners    []string
	SucceededListeners  []string
	FailedListeners     []string
	SelfSuppressed      []string
	PropagationStopped  bool
	Errors              []error
}

type listenerResult struct {
	id             string
	selfSuppressed bool
	err            error
}

// emit delivers payload to every listener of eventID, in order-groups.
// sourceID, when non-empty, identifies the emitting hook so it can be
// self-suppressed, and feeds the emission-stack cycle check. Within a
// group, listeners run concurrently only when the event was declared
// WithParallel(true); otherwise each listener of the group runs in
// sequence, checked for an intervening StopPropagation between each one.
// Between groups, propagation is always checked before the next group
// starts, whichever mode delivered the prior one.
func (d *dispatcher) emit(ctx context.Context, journal *ExecutionJournal, rt *Runtime, eventID string, payload any, sourceID string, callID string, failureMode FailureMode) (*EmitReport, error) {
	d.stackMu.Lock()
	stack := append([]string(nil), d.stack[callID]...)
	for _, prior := range stack {
		if prior == eventID+"|"+sourceID && sourceID != "" {
			d.stackMu.Unlock()
			return nil, &EventCycleError{EventID: eventID, Path: append(stack, eventID)}
		}
	}
	d.stack[callID] = append(stack, eventID+"|"+sourceID)
	d.stackMu.Unlock()
	defer func() {
		d.stackMu.Lock()
		s := d.stack[callID]
		if len(s) > 0 {
			d.stack[callID] = s[:len(s)-1]
		}
		d.stackMu.Unlock()
	}()

	d.mu.Lock()
	listeners := append([]listenerEntry(nil), d.byEvent[eventID]...)
	flags := d.flags[eventID]
	if !flags.excludeGlobal {
		listeners = append(listeners, d.global...)
	}
	sortListeners(listeners)
	d.mu.Unlock()

	report := &EmitReport{EventID: eventID, TotalListeners: len(listeners)}
	emission := &EventEmission{}

	runEntry := func(entry listenerEntry) listenerResult {
		if entry.hook.NodeID() == sourceID {
			return listenerResult{id: entry.hook.NodeID(), selfSuppressed: true}
		}
		deps, err := resolveHookDeps(rt, entry.hook)
		if err == nil {
			execCtx := AsyncExecContext{ctx: ctx, journal: journal, rt: rt}
			err = entry.hook.run(execCtx, emission, payload, deps)
		}
		return listenerResult{id: entry.hook.NodeID(), err: err}
	}

	merge := func(r listenerResult) {
		if r.selfSuppressed {
			report.SelfSuppressed = append(report.SelfSuppressed, r.id)
			return
		}
		report.AttemptedListeners = append(report.AttemptedListeners, r.id)
		if r.err != nil {
			report.FailedListeners = append(report.FailedListeners, r.id)
			report.Errors = append(report.Errors, r.err)
		} else {
			report.SucceededListeners = append(report.SucceededListeners, r.id)
		}
	}

	i := 0
	for i < len(listeners) {
		if emission.IsPropagationStopped() {
			for ; i < len(listeners); i++ {
				report.SkippedListeners = append(report.SkippedListeners, listeners[i].hook.NodeID())
			}
			report.PropagationStopped = true
			break
		}

		order := listeners[i].hook.order
		var batch []listenerEntry
		for i < len(listeners) && listeners[i].hook.order == order {
			batch = append(batch, listeners[i])
			i++
		}

		before := len(report.Errors)

		if flags.parallel {
			results := make([]listenerResult, len(batch))
			var wg sync.WaitGroup
			for bi, entry := range batch {
				wg.Add(1)
				go func(bi int, entry listenerEntry) {
					defer wg.Done()
					results[bi] = runEntry(entry)
				}(bi, entry)
			}
			wg.Wait()
			for _, r := range results {
				merge(r)
			}
		} else {
			for bi, entry := range batch {
				if emission.IsPropagationStopped() {
					for _, rest := range batch[bi:] {
						report.SkippedListeners = append(report.SkippedListeners, rest.hook.NodeID())
					}
					report.PropagationStopped = true
					break
				}
				merge(runEntry(entry))
				if failureMode == FailFast && len(report.Errors) > before {
					break
				}
			}
		}

		if failureMode == FailFast && len(report.Errors) > before {
			return report, fmt.Errorf("hook for event %q: %w", eventID, report.Errors[before])
		}
	}

	if failureMode == Aggregate && len(report.Errors) > 0 {
		return report, fmt.Errorf("kernel: %d listener error(s) for event %q, first: %w", len(report.Errors), eventID, report.Errors[0])
	}
	return report, nil
}

func resolveHookDeps(rt *Runtime, h *Hook) (Deps, error) {
	if rt == nil {
		return resolveDeps(nil, nil, nil, h.nodeDeps())
	}
	return resolveDeps(rt.store, rt.lifecycle, rt, h.nodeDeps())
}
