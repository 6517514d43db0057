package kernel

// HookTarget selects what a Hook listens to: one or more specific events,
// or every event in the system.
type HookTarget struct {
	eventIDs []string
	global   bool
}

// OnEvent targets a single event.
func OnEvent[T any](e *Event[T]) HookTarget {
	return HookTarget{eventIDs: []string{e.NodeID()}}
}

// OnEvents targets several events at once; the hook fires once per
// matching emission regardless of which of them fired.
func OnEvents(events ...Identifiable) HookTarget {
	ids := make([]string, len(events))
	for i, e := range events {
		ids[i] = e.NodeID()
	}
	return HookTarget{eventIDs: ids}
}

// OnAny targets every event emitted anywhere in the runtime (a global
// listener, ).
func OnAny() HookTarget { return HookTarget{global: true} }

// HookRunFunc is the body a hook runs when one of its targeted events
// fires. payload is the event's emitted value (nil-asserted by the caller
// via the typed wrapper functions below). emission is shared by every
// listener of the same emit call; calling emission.StopPropagation halts
// delivery to any listener still queued behind this one.
type HookRunFunc func(ctx AsyncExecContext, emission *EventEmission, payload any, deps Deps) error

// Hook is a named listener attached to one or more events. Order controls relative firing position among listeners of the
// same event (lower runs first); ties break by declaration order.
type Hook struct {
	id     string
	target HookTarget
	deps   Dependencies
	order  int
	run    HookRunFunc
	meta   Meta
}

func (h *Hook) NodeID() string          { return h.id }
func (h *Hook) NodeKind() Kind          { return KindHook }
func (h *Hook) nodeDeps() Dependencies  { return h.deps }
func (h *Hook) Order() int              { return h.order }
func (h *Hook) Target() HookTarget      { return h.target }

// HookOption configures a Hook at construction.
type HookOption func(*Hook)

// WithHookDeps declares the hook's own dependencies, resolved before run
// is invoked.
func WithHookDeps(deps Dependencies) HookOption {
	return func(h *Hook) { h.deps = deps }
}

// WithHookOrder sets the firing order relative to other listeners of the
// same event. Default is 0.
func WithHookOrder(order int) HookOption {
	return func(h *Hook) { h.order = order }
}

// WithHookMeta attaches descriptive metadata.
func WithHookMeta(m Meta) HookOption {
	return func(h *Hook) { h.meta = m }
}

// NewHook registers a hook listening on target, running body when it
// fires.
func NewHook(id string, target HookTarget, run HookRunFunc, opts ...HookOption) *Hook {
	h := &Hook{id: id, target: target, run: run, deps: Dependencies{}}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Typed1Event adapts a typed single-event handler into the Hook's untyped
// HookRunFunc, asserting the payload back to T before calling fn.
func Typed1Event[T any](fn func(ctx AsyncExecContext, emission *EventEmission, payload T, deps Deps) error) HookRunFunc {
	return func(ctx AsyncExecContext, emission *EventEmission, payload any, deps Deps) error {
		typed, err := SafeTypeAssertion[T](payload)
		if err != nil {
			return err
		}
		return fn(ctx, emission, typed, deps)
	}
}
