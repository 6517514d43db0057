package kernel

// Event declares a named channel of typed payloads that hooks can listen to
// and tasks/resources can emit. It carries no behavior of
// its own; the Dispatcher owns delivery.
type Event[T any] struct {
	id            string
	meta          Meta
	parallel      bool
	excludeGlobal bool
}

// NewEvent registers a new event identity.
func NewEvent[T any](id string, opts ...EventOption[T]) *Event[T] {
	e := &Event[T]{id: id}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EventOption configures an Event at construction.
type EventOption[T any] func(*Event[T])

// WithEventMeta attaches descriptive metadata to an event.
func WithEventMeta[T any](m Meta) EventOption[T] {
	return func(e *Event[T]) { e.meta = m }
}

// WithParallel marks the event's listeners of the same order-group to fire
// concurrently (an allSettled-style fan-out) instead of the default
// sequential, await-one-at-a-time delivery.
func WithParallel[T any](parallel bool) EventOption[T] {
	return func(e *Event[T]) { e.parallel = parallel }
}

// WithExcludeFromGlobalHooks opts the event out of delivery to OnAny()
// global listeners; only listeners explicitly targeting the event still
// receive it.
func WithExcludeFromGlobalHooks[T any]() EventOption[T] {
	return func(e *Event[T]) { e.excludeGlobal = true }
}

func (e *Event[T]) NodeID() string { return e.id }
func (e *Event[T]) NodeKind() Kind { return KindEvent }

func (e *Event[T]) isParallel() bool          { return e.parallel }
func (e *Event[T]) excludesGlobalHooks() bool { return e.excludeGlobal }

// eventFlagsNode is implemented by Event[T], letting Run() read its
// delivery configuration without knowing T.
type eventFlagsNode interface {
	isParallel() bool
	excludesGlobalHooks() bool
}

// eventNode is the boot-time surface the pipeline needs from an
// Event[T] without knowing T.
type eventNode interface {
	Identifiable
	boundEmitter(rt *Runtime) any
}

// boundEmitter returns the any-boxed, typed emit function installed under
// the dependent's key for this event in a resolved Deps map.
func (e *Event[T]) boundEmitter(rt *Runtime) any {
	return func(ctx AsyncExecContext, payload T) error {
		_, err := rt.emitByID(ctx.ctx, e.id, payload, ctx.journal, FailFast)
		return err
	}
}
