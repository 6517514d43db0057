package kernel

import (
	"context"
	"fmt"
)

// AsyncExecContext is passed to every task body, hook, and middleware
// invocation. It carries the ambient context.Context (cancellation,
// deadlines, and AsyncContext-provided values), the per-invocation
// ExecutionJournal, and narrow call/emit access back into the runtime.
type AsyncExecContext struct {
	ctx     context.Context
	journal *ExecutionJournal
	rt      *Runtime
}

func newAsyncExecContext(ctx context.Context, rt *Runtime) AsyncExecContext {
	var j *ExecutionJournal
	if rt != nil && rt.journalPool != nil {
		j = rt.journalPool.acquire()
	} else {
		j = NewExecutionJournal()
	}
	return AsyncExecContext{ctx: ctx, journal: j, rt: rt}
}

// Context exposes the underlying context.Context for cancellation-aware
// work (select on ctx.Context().Done()).
func (c AsyncExecContext) Context() context.Context { return c.ctx }

// Journal returns this invocation's execution journal.
func (c AsyncExecContext) Journal() *ExecutionJournal { return c.journal }

// withContext returns a copy of c carrying a replaced context.Context,
// used internally when an AsyncContext value is provided for the
// remainder of a call tree.
func (c AsyncExecContext) withContext(ctx context.Context) AsyncExecContext {
	c.ctx = ctx
	return c
}

// RunTask invokes another task by reference from within a running body,
// the same entrypoint the Runtime itself exposes.
func (c AsyncExecContext) RunTask(target Identifiable, input any) (any, error) {
	return c.rt.runTaskByID(c.ctx, target.NodeID(), input)
}

// EmitEvent emits payload on e from within a running body.
func (c AsyncExecContext) EmitEvent(target Identifiable, payload any, opts ...EmitEventOption) (*EmitReport, error) {
	cfg := emitEventConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	return c.rt.emitByID(c.ctx, target.NodeID(), payload, c.journal, cfg.failureMode)
}

// ResourceInitContext is passed to a resource's init function and its
// middleware chain. It exposes cleanup registration alongside the
// ambient context.Context.
type ResourceInitContext struct {
	ctx     context.Context
	rt      *Runtime
	cleanup *[]func() error
}

func (c ResourceInitContext) Context() context.Context { return c.ctx }

// OnCleanup registers fn to run during shutdown, in reverse registration
// order relative to other cleanups on the same resource.
func (c ResourceInitContext) OnCleanup(fn func() error) {
	*c.cleanup = append(*c.cleanup, fn)
}

// asyncContextKey is the context.Context key type used by AsyncContext[T].
// A dedicated unexported type per instantiation would defeat lookup-by-id
// across packages, so the key is the context's own string id boxed in
// this wrapper, matching how context.WithValue recommends unexported key
// types while still letting Provide/Use agree on identity purely through
// the id string.
type asyncContextKey string

// AsyncContext is a typed, scoped ambient value visible to everything
// downstream of a Provide call within the same call tree, and invisible
// outside it. It is realized directly on top of
// context.Context/context.WithValue: the idiomatic Go answer to "ambient
// value across suspension points".
type AsyncContext[T any] struct {
	id  string
	key asyncContextKey
}

// NewAsyncContext declares a new ambient value channel identified by id.
func NewAsyncContext[T any](id string) *AsyncContext[T] {
	return &AsyncContext[T]{id: id, key: asyncContextKey(id)}
}

func (c *AsyncContext[T]) NodeID() string { return c.id }
func (c *AsyncContext[T]) NodeKind() Kind { return KindAsyncContext }

// Provide returns a new AsyncExecContext carrying value for the remainder
// of the call tree rooted at parent. Callers thread the returned
// AsyncExecContext into whatever they call next; parent is left
// unmodified.
func (c *AsyncContext[T]) Provide(parent AsyncExecContext, value T) AsyncExecContext {
	return parent.withContext(context.WithValue(parent.ctx, c.key, value))
}

// Use retrieves the value provided by the nearest enclosing Provide call
// in ctx's ancestry, returning a ContextError if none exists.
func (c *AsyncContext[T]) Use(ctx AsyncExecContext) (T, error) {
	var zero T
	v := ctx.ctx.Value(c.key)
	if v == nil {
		return zero, &ContextError{ContextID: c.id}
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("kernel: async context %q holds %T, not %T", c.id, v, zero)
	}
	return typed, nil
}
