package kernel

import (
	"fmt"

	"github.com/noderun/kernel/schema"
)

// TaskRunFunc is the body of a task: given resolved dependencies and a
// parsed input, produce a result or an error.
type TaskRunFunc[I, O any] func(ctx AsyncExecContext, input I, deps Deps) (O, error)

// Task is a named, typed unit of work. Tasks declare their own
// dependencies, an optional input/result schema, tags, and middleware.
// Dependencies are resolved and the middleware chain folded once at boot;
// the schemas are applied on each run.
type Task[I, O any] struct {
	id          string
	deps        Dependencies
	inputSchema schema.Schema[I]
	resultSchema schema.Schema[O]
	tags        []TagUsage
	middleware  []*TaskMiddleware
	phantom     bool
	meta        Meta
	run         TaskRunFunc[I, O]
	tunnelResource string
	tunnelMode     TunnelMode
}

func (t *Task[I, O]) NodeID() string          { return t.id }
func (t *Task[I, O]) NodeKind() Kind          { return KindTask }
func (t *Task[I, O]) nodeDeps() Dependencies  { return t.deps }

// IsPhantom reports whether this task was declared with NewPhantomTask.
func (t *Task[I, O]) IsPhantom() bool { return t.phantom }

// TaskOption configures a Task at construction.
type TaskOption[I, O any] func(*Task[I, O])

// WithTaskDeps declares the task's dependency map.
func WithTaskDeps[I, O any](deps Dependencies) TaskOption[I, O] {
	return func(t *Task[I, O]) { t.deps = deps }
}

// WithInputSchema attaches an input validator.
func WithInputSchema[I, O any](s schema.Schema[I]) TaskOption[I, O] {
	return func(t *Task[I, O]) { t.inputSchema = s }
}

// WithResultSchema attaches a result validator.
func WithResultSchema[I, O any](s schema.Schema[O]) TaskOption[I, O] {
	return func(t *Task[I, O]) { t.resultSchema = s }
}

// WithTaskTags attaches tag usages to the task.
func WithTaskTags[I, O any](tags ...TagUsage) TaskOption[I, O] {
	return func(t *Task[I, O]) { t.tags = append(t.tags, tags...) }
}

// WithTaskMiddleware attaches middlewares explicitly (in addition to any
// global/Everywhere middlewares the graph applies, ).
func WithTaskMiddleware[I, O any](mws ...*TaskMiddleware) TaskOption[I, O] {
	return func(t *Task[I, O]) { t.middleware = append(t.middleware, mws...) }
}

// WithTaskMeta attaches descriptive metadata.
func WithTaskMeta[I, O any](m Meta) TaskOption[I, O] {
	return func(t *Task[I, O]) { t.meta = m }
}

// WithTunnel fulfills a (typically phantom) task from a tagged tunnel
// resource's value instead of (or alongside) the task's own run body. mode
// defaults to TunnelRemoteOnly. A phantom task has no local body to fall
// back to or mirror against, so it can use TunnelRemoteOnly, or
// TunnelRemoteFirst, which then returns the tunnel error instead of
// falling back; the other modes fail with a ConfigError. Apply WithTunnel
// after WithTaskDeps, since WithTaskDeps replaces the whole dependency map.
func WithTunnel[I, O any](resource Identifiable, mode ...TunnelMode) TaskOption[I, O] {
	return func(t *Task[I, O]) {
		t.tunnelResource = resource.NodeID()
		t.tunnelMode = TunnelRemoteOnly
		if len(mode) > 0 {
			t.tunnelMode = mode[0]
		}
		if t.deps == nil {
			t.deps = Dependencies{}
		}
		t.deps[tunnelDepKey] = DepOn(resource)
	}
}

// NewTask registers a task identified by id, running body when invoked.
func NewTask[I, O any](id string, run TaskRunFunc[I, O], opts ...TaskOption[I, O]) *Task[I, O] {
	t := &Task[I, O]{id: id, deps: Dependencies{}, run: run}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// NewPhantomTask registers a task identity with no run body.
// Invoking it is a configuration error unless WithTunnel gives it a
// tunnel resource to fulfil the call; it exists to be depended on,
// tagged, or documented before (or instead of) a real implementation is
// wired in.
func NewPhantomTask[I, O any](id string, opts ...TaskOption[I, O]) *Task[I, O] {
	t := &Task[I, O]{id: id, deps: Dependencies{}, phantom: true}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// taskNode is the boot-time surface the lifecycle/pipeline machinery needs
// from a Task[I,O] without knowing I/O.
type taskNode interface {
	dependent
	middlewareList() []*TaskMiddleware
	isPhantom() bool
	isTunneled() bool
	tunnelResourceID() string
	invoke(ctx AsyncExecContext, input any, deps Deps) (any, error)
	boundCaller(rt *Runtime) any
}

func (t *Task[I, O]) middlewareList() []*TaskMiddleware {
	out := make([]*TaskMiddleware, len(t.middleware))
	copy(out, t.middleware)
	return out
}

func (t *Task[I, O]) isPhantom() bool { return t.phantom }

func (t *Task[I, O]) isTunneled() bool { return t.tunnelResource != "" }

func (t *Task[I, O]) tunnelResourceID() string { return t.tunnelResource }

func (t *Task[I, O]) tagUsages() []TagUsage { return t.tags }

// invoke dispatches to the tunnel resource, the local run body, or both,
// according to tunnelMode, then falls through to invokeLocal for the
// untunneled case.
func (t *Task[I, O]) invoke(ctx AsyncExecContext, rawInput any, deps Deps) (any, error) {
	if t.tunnelResource == "" {
		return t.invokeLocal(ctx, rawInput, deps)
	}
	call, ok := DepValueOk[func(AsyncExecContext, any) (any, error)](deps, tunnelDepKey)
	if !ok {
		return nil, &ConfigError{Reason: fmt.Sprintf("task %q tunnel resource %q produced no callable value", t.id, t.tunnelResource)}
	}

	switch t.tunnelMode {
	case TunnelLocalOnly:
		if t.phantom {
			return nil, &ConfigError{Reason: fmt.Sprintf("task %q: tunnelLocalOnly requires a non-phantom run body", t.id)}
		}
		return t.invokeLocal(ctx, rawInput, deps)

	case TunnelMirror:
		if t.phantom {
			return nil, &ConfigError{Reason: fmt.Sprintf("task %q: tunnelMirror requires a non-phantom run body", t.id)}
		}
		out, localErr := t.invokeLocal(ctx, rawInput, deps)
		ctx.Journal().Set(JournalTunnelCalled, true)
		if _, tErr := call(ctx, rawInput); tErr != nil {
			ctx.Journal().Set(JournalTunnelError, tErr.Error())
		}
		return out, localErr

	case TunnelRemoteFirst:
		ctx.Journal().Set(JournalTunnelCalled, true)
		out, tErr := call(ctx, rawInput)
		if tErr == nil {
			return out, nil
		}
		ctx.Journal().Set(JournalTunnelError, tErr.Error())
		if t.phantom {
			return nil, tErr
		}
		return t.invokeLocal(ctx, rawInput, deps)

	default: // TunnelRemoteOnly, and the zero value
		ctx.Journal().Set(JournalTunnelCalled, true)
		return call(ctx, rawInput)
	}
}

// invokeLocal validates input, runs the task body, and validates the
// result — the Task half of the "parse(unknown) -> T" boundary.
func (t *Task[I, O]) invokeLocal(ctx AsyncExecContext, rawInput any, deps Deps) (any, error) {
	if t.phantom {
		return nil, &ConfigError{Reason: fmt.Sprintf("task %q is phantom and has no run body", t.id)}
	}
	input, ok := rawInput.(I)
	if !ok {
		var zero I
		if rawInput != nil {
			return nil, &TaskInputValidationError{TaskID: t.id, Cause: fmt.Errorf("expected %T, got %T", zero, rawInput)}
		}
	}
	if t.inputSchema != nil {
		parsed, err := t.inputSchema.Parse(rawInput)
		if err != nil {
			return nil, &TaskInputValidationError{TaskID: t.id, Cause: err}
		}
		input = parsed
	}
	out, err := t.run(ctx, input, deps)
	if err != nil {
		return nil, err
	}
	if t.resultSchema != nil {
		if _, err := t.resultSchema.Parse(out); err != nil {
			return nil, &TaskResultValidationError{TaskID: t.id, Cause: err}
		}
	}
	return out, nil
}

// boundCaller returns the any-boxed, typed invocation function installed
// under the dependent's key for this task in a resolved Deps map, so sibling nodes that
// depend on this task can narrow it back via DepCaller.
func (t *Task[I, O]) boundCaller(rt *Runtime) any {
	return func(ctx AsyncExecContext, input I) (O, error) {
		var zero O
		out, err := rt.runTaskByID(ctx.ctx, t.id, input)
		if err != nil {
			return zero, err
		}
		if out == nil {
			return zero, nil
		}
		typed, ok := out.(O)
		if !ok {
			return zero, fmt.Errorf("kernel: task %q returned %T, not %T", t.id, out, zero)
		}
		return typed, nil
	}
}
