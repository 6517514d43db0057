package kernel

// TaskMiddlewareFunc wraps a task invocation. next invokes the remainder
// of the chain (eventually the task body itself).
type TaskMiddlewareFunc func(ctx AsyncExecContext, input any, deps Deps, next func(input any) (any, error)) (any, error)

// TaskMiddleware is a named, taggable wrapper around task execution.
type TaskMiddleware struct {
	id         string
	deps       Dependencies
	everywhere bool
	run        TaskMiddlewareFunc
	meta       Meta
}

func (m *TaskMiddleware) NodeID() string         { return m.id }
func (m *TaskMiddleware) NodeKind() Kind         { return KindTaskMiddleware }
func (m *TaskMiddleware) nodeDeps() Dependencies { return m.deps }

// MiddlewareOption configures a TaskMiddleware/ResourceMiddleware at
// construction.
type MiddlewareOption func(*middlewareConfig)

type middlewareConfig struct {
	deps       Dependencies
	everywhere bool
	meta       Meta
}

// WithMiddlewareDeps declares the middleware's own dependencies.
func WithMiddlewareDeps(deps Dependencies) MiddlewareOption {
	return func(c *middlewareConfig) { c.deps = deps }
}

// Everywhere registers the middleware against every task (or resource) in
// the graph, not just ones that explicitly list it. A global middleware that transitively depends on a target
// node excludes itself from that node's own chain to avoid a
// self-dependency cycle.
func Everywhere() MiddlewareOption {
	return func(c *middlewareConfig) { c.everywhere = true }
}

// WithMiddlewareMeta attaches descriptive metadata.
func WithMiddlewareMeta(m Meta) MiddlewareOption {
	return func(c *middlewareConfig) { c.meta = m }
}

// NewTaskMiddleware registers a task middleware.
func NewTaskMiddleware(id string, run TaskMiddlewareFunc, opts ...MiddlewareOption) *TaskMiddleware {
	cfg := middlewareConfig{deps: Dependencies{}}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &TaskMiddleware{id: id, deps: cfg.deps, everywhere: cfg.everywhere, run: run, meta: cfg.meta}
}

// ResourceMiddlewareFunc wraps resource initialization. next invokes the
// remainder of the chain (eventually the resource's init function).
type ResourceMiddlewareFunc func(ctx ResourceInitContext, config any, deps Deps, next func(config any) (any, error)) (any, error)

// ResourceMiddleware is the resource-lifecycle analogue of TaskMiddleware.
type ResourceMiddleware struct {
	id         string
	deps       Dependencies
	everywhere bool
	run        ResourceMiddlewareFunc
	meta       Meta
}

func (m *ResourceMiddleware) NodeID() string         { return m.id }
func (m *ResourceMiddleware) NodeKind() Kind         { return KindResourceMiddleware }
func (m *ResourceMiddleware) nodeDeps() Dependencies { return m.deps }

// NewResourceMiddleware registers a resource middleware.
func NewResourceMiddleware(id string, run ResourceMiddlewareFunc, opts ...MiddlewareOption) *ResourceMiddleware {
	cfg := middlewareConfig{deps: Dependencies{}}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &ResourceMiddleware{id: id, deps: cfg.deps, everywhere: cfg.everywhere, run: run, meta: cfg.meta}
}

// foldTaskChain right-folds middlewares into a single callable wrapping
// body, the innermost call. Folding happens once at boot, not per
// invocation. hostDeps is the task's own resolved dependencies, passed to
// body; mwDeps carries each middleware's OWN resolved dependencies
// (keyed by middleware id), passed to that middleware's run instead of
// hostDeps.
func foldTaskChain(mws []*TaskMiddleware, body func(ctx AsyncExecContext, input any, deps Deps) (any, error), hostDeps Deps, mwDeps map[string]Deps) func(ctx AsyncExecContext, input any) (any, error) {
	call := func(ctx AsyncExecContext, input any) (any, error) {
		return body(ctx, input, hostDeps)
	}
	for i := len(mws) - 1; i >= 0; i-- {
		mw := mws[i]
		ownDeps := mwDeps[mw.id]
		next := call
		call = func(ctx AsyncExecContext, input any) (any, error) {
			return mw.run(ctx, input, ownDeps, func(in any) (any, error) {
				return next(ctx, in)
			})
		}
	}
	return call
}

// foldResourceChain is foldTaskChain's resource-lifecycle counterpart.
func foldResourceChain(mws []*ResourceMiddleware, body func(ctx ResourceInitContext, config any, deps Deps) (any, error), hostDeps Deps, mwDeps map[string]Deps) func(ctx ResourceInitContext, config any) (any, error) {
	call := func(ctx ResourceInitContext, config any) (any, error) {
		return body(ctx, config, hostDeps)
	}
	for i := len(mws) - 1; i >= 0; i-- {
		mw := mws[i]
		ownDeps := mwDeps[mw.id]
		next := call
		call = func(ctx ResourceInitContext, config any) (any, error) {
			return mw.run(ctx, config, ownDeps, func(c any) (any, error) {
				return next(ctx, c)
			})
		}
	}
	return call
}
