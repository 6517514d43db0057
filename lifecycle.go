package kernel

import (
	"context"
	"fmt"
)

// resourceEntry holds one resource's boot-time bookkeeping: its resolved
// value, cleanup callbacks, and the middleware-wrapped init call ready to
// run once its dependencies are initialized.
type resourceEntry struct {
	node     dependent
	value    any
	cleanups []func() error
	invoke   func(ctx ResourceInitContext, config any) (any, error)
	config   any
}

// lifecycleManager brings every resource in a store up in dependency
// order, then tears them down in reverse on shutdown, following an
// eager, one-shot, immutable-after-init model.
type lifecycleManager struct {
	entries map[string]*resourceEntry
	order   []string // init order, also the reverse-shutdown order
}

func newLifecycleManager() *lifecycleManager {
	return &lifecycleManager{entries: map[string]*resourceEntry{}}
}

// initAll initializes every resource in s following ids (already
// topologically sorted). A failure anywhere aborts the boot and reports a
// ResourceInitError naming the resource and its cause.
func (lm *lifecycleManager) initAll(ctx context.Context, s *store, g *dependencyGraph, ids []string, rt *Runtime) error {
	for _, id := range ids {
		r, ok := s.resources[id]
		if !ok {
			continue
		}
		entry, err := lm.initOne(ctx, s, r, rt)
		if err != nil {
			return err
		}
		lm.entries[id] = entry
		lm.order = append(lm.order, id)
	}
	return nil
}

type resourceNode interface {
	dependent
	runInit(ctx ResourceInitContext, rawCfg any, deps Deps) (any, error)
	rawConfig() any
	middlewareList() []*ResourceMiddleware
}

func (lm *lifecycleManager) initOne(ctx context.Context, s *store, nd dependent, rt *Runtime) (*resourceEntry, error) {
	res, ok := nd.(resourceNode)
	if !ok {
		return nil, &ConfigError{Reason: fmt.Sprintf("node %q is not a resource", nd.NodeID())}
	}

	deps, err := resolveDeps(s, lm, rt, nd.nodeDeps())
	if err != nil {
		return nil, err
	}

	entry := &resourceEntry{node: nd, config: res.rawConfig()}
	initCtx := ResourceInitContext{ctx: ctx, rt: rt, cleanup: &entry.cleanups}

	mws := resourceMiddlewaresFor(s, nd)
	mwDeps := make(map[string]Deps, len(mws))
	for _, mw := range mws {
		d, err := resolveDeps(s, lm, rt, mw.nodeDeps())
		if err != nil {
			return nil, err
		}
		mwDeps[mw.NodeID()] = d
	}

	wrapped := foldResourceChain(mws, func(c ResourceInitContext, cfg any, d Deps) (any, error) {
		return res.runInit(c, cfg, d)
	}, deps, mwDeps)

	value, err := wrapped(initCtx, entry.config)
	if err != nil {
		return nil, &ResourceInitError{ResourceID: nd.NodeID(), Cause: err}
	}
	entry.value = value
	return entry, nil
}

func resourceMiddlewaresFor(s *store, nd dependent) []*ResourceMiddleware {
	r, ok := nd.(resourceNode)
	var specific []*ResourceMiddleware
	if ok {
		specific = r.middlewareList()
	}
	global := s.globalResourceMiddlewares()
	seen := map[string]bool{}
	var out []*ResourceMiddleware
	for _, m := range specific {
		if !seen[m.NodeID()] {
			seen[m.NodeID()] = true
			out = append(out, m)
		}
	}
	for _, m := range global {
		if m.NodeID() == nd.NodeID() {
			continue
		}
		if !seen[m.NodeID()] {
			seen[m.NodeID()] = true
			out = append(out, m)
		}
	}
	return out
}

// resolveDeps turns a Dependencies declaration into a call-time Deps map,
// using already-initialized resource values, task invokers, event
// emitters, and async contexts. Missing required dependencies are a
// GraphError (topoSort checks only for cycles, not for missing
// dependencies); missing optional dependencies resolve to nil.
func resolveDeps(s *store, lm *lifecycleManager, rt *Runtime, decl Dependencies) (Deps, error) {
	out := make(Deps, len(decl))
	for key, dep := range decl {
		v, ok := resolveOne(s, lm, rt, dep)
		if !ok {
			if dep.isOptional() {
				out[key] = nil
				continue
			}
			return nil, &GraphError{Reason: fmt.Sprintf("unresolved dependency %q -> %q", key, dep.targetID())}
		}
		out[key] = v
	}
	return out, nil
}

func resolveOne(s *store, lm *lifecycleManager, rt *Runtime, dep Dependency) (any, bool) {
	id := dep.targetID()
	switch dep.targetKind() {
	case KindResource:
		entry, ok := lm.entries[id]
		if !ok {
			return nil, false
		}
		return entry.value, true
	case KindTask:
		t, ok := s.tasks[id]
		if !ok {
			return nil, false
		}
		caller, ok := t.(taskNode)
		if !ok {
			return nil, false
		}
		return caller.boundCaller(rt), true
	case KindEvent:
		e, ok := s.events[id]
		if !ok {
			return nil, false
		}
		emitter, ok := e.(eventNode)
		if !ok {
			return nil, false
		}
		return emitter.boundEmitter(rt), true
	case KindAsyncContext:
		c, ok := s.asyncContexts[id]
		return c, ok
	default:
		return nil, false
	}
}

// shutdown disposes every initialized resource in reverse init order,
// collecting, rather than short-circuiting on, individual cleanup
// errors: every cleanup runs even if one fails.
func (lm *lifecycleManager) shutdown() []error {
	var errs []error
	for i := len(lm.order) - 1; i >= 0; i-- {
		entry := lm.entries[lm.order[i]]
		for j := len(entry.cleanups) - 1; j >= 0; j-- {
			if err := entry.cleanups[j](); err != nil {
				errs = append(errs, fmt.Errorf("resource %q cleanup: %w", lm.order[i], err))
			}
		}
	}
	return errs
}
