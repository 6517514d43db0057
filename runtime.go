package kernel

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/google/uuid"
)

// Runtime is the booted, running instance of a dependency graph: every
// resource initialized in order, every task's middleware chain folded,
// every hook registered with the dispatcher. It is the sole mutable
// entrypoint: a call/emit/inspect surface, with no lazy re-resolution.
type Runtime struct {
	store       *store
	graph       *dependencyGraph
	lifecycle   *lifecycleManager
	tasks       map[string]*taskEntry
	dispatcher  *dispatcher
	journalPool *journalPool
	rootID      string

	disposeOnce sync.Once
	runID       string
	sigCh       chan os.Signal
}

// Run discovers the dependency graph rooted at root, initializes every
// resource in dependency order, folds every task's middleware chain, and
// registers every hook with the event dispatcher. The returned Runtime is
// ready for RunTask/EmitEvent calls; callers must eventually call
// Dispose.
func Run(ctx context.Context, root Identifiable, opts ...RunOption) (*Runtime, error) {
	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.loadEnv {
		if err := loadEnvConfig(cfg.envPrefix, root); err != nil {
			return nil, err
		}
	}

	rd, ok := root.(dependent)
	if !ok {
		return nil, &ConfigError{Reason: "root must be a Task or Resource"}
	}

	s, err := collect(rd, cfg.extraNodes, cfg.overrides)
	if err != nil {
		return nil, err
	}

	g := buildDependencyGraph(s)

	// Sort the full node set (not just resources) so that a dependency
	// edge passing through a task or middleware id still orders the
	// resources on either side of it correctly, then filter down to the
	// resource ids in the resulting order.
	fullOrder, err := topoSort(g, append([]string(nil), s.order...))
	if err != nil {
		return nil, err
	}
	initOrder := make([]string, 0, len(s.resources))
	for _, id := range fullOrder {
		if _, isResource := s.resources[id]; isResource {
			initOrder = append(initOrder, id)
		}
	}

	rt := &Runtime{
		store:       s,
		graph:       g,
		lifecycle:   newLifecycleManager(),
		dispatcher:  newDispatcher(),
		journalPool: newJournalPool(),
		rootID:      root.NodeID(),
		runID:       uuid.NewString(),
	}

	if err := rt.lifecycle.initAll(ctx, s, g, initOrder, rt); err != nil {
		return nil, err
	}

	taskRegistry, err := buildTaskRegistry(s, rt.lifecycle, rt)
	if err != nil {
		_ = rt.Dispose()
		return nil, err
	}
	rt.tasks = taskRegistry

	for _, id := range s.order {
		if e, ok := s.events[id]; ok {
			if fn, ok := e.(eventFlagsNode); ok {
				rt.dispatcher.registerEventFlags(id, fn.isParallel(), fn.excludesGlobalHooks())
			}
		}
	}

	for _, id := range s.order {
		if h, ok := s.hooks[id]; ok {
			rt.dispatcher.register(h)
		}
	}

	if cfg.shutdownHooks {
		rt.installShutdownHooks()
	}

	return rt, nil
}

// RunTask invokes the task identified by target with input, running its
// full middleware chain.
func (rt *Runtime) RunTask(ctx context.Context, target Identifiable, input any) (any, error) {
	return rt.runTaskByID(ctx, target.NodeID(), input)
}

// EmitEventOption configures a single EmitEvent call.
type EmitEventOption func(*emitEventConfig)

type emitEventConfig struct {
	failureMode FailureMode
}

// WithFailureMode selects how this emission reacts to a listener error:
// FailFast (the default) stops at the first error; Aggregate runs every
// listener and reports them all.
func WithFailureMode(mode FailureMode) EmitEventOption {
	return func(c *emitEventConfig) { c.failureMode = mode }
}

// EmitEvent emits payload on the event identified by target from outside
// any running task.
func (rt *Runtime) EmitEvent(ctx context.Context, target Identifiable, payload any, opts ...EmitEventOption) (*EmitReport, error) {
	cfg := emitEventConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	return rt.emitByID(ctx, target.NodeID(), payload, NewExecutionJournal(), cfg.failureMode)
}

func (rt *Runtime) emitByID(ctx context.Context, eventID string, payload any, journal *ExecutionJournal, failureMode FailureMode) (*EmitReport, error) {
	callID := uuid.NewString()
	return rt.dispatcher.emit(ctx, journal, rt, eventID, payload, "", callID, failureMode)
}

// GetResourceValue returns the initialized value of the resource
// identified by target. It never re-initializes or mutates the value.
func (rt *Runtime) GetResourceValue(target Identifiable) (any, error) {
	entry, ok := rt.lifecycle.entries[target.NodeID()]
	if !ok {
		return nil, &ConfigError{Reason: fmt.Sprintf("resource %q was not initialized by this runtime", target.NodeID())}
	}
	return entry.value, nil
}

// Value returns the root resource's own initialized value.
func (rt *Runtime) Value() (any, error) {
	entry, ok := rt.lifecycle.entries[rt.rootID]
	if !ok {
		return nil, &ConfigError{Reason: "root node is not a resource; Value() only applies when Run was given a Resource root"}
	}
	return entry.value, nil
}

// Store exposes the boot-time registry for introspection/debugging.
func (rt *Runtime) Store() *store { return rt.store }

// Dispose tears down every initialized resource in reverse init order,
// returning the first error encountered (if any) after every cleanup has
// still been attempted. Safe to call more than once.
func (rt *Runtime) Dispose() error {
	var errs []error
	rt.disposeOnce.Do(func() {
		errs = rt.lifecycle.shutdown()
		if rt.sigCh != nil {
			signal.Stop(rt.sigCh)
		}
	})
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("kernel: %d cleanup error(s) during shutdown, first: %w", len(errs), errs[0])
}

// installShutdownHooks arranges for Dispose to run automatically on
// SIGINT/SIGTERM, mirroring how a
// long-running process is expected to behave without every caller having
// to wire os/signal itself.
func (rt *Runtime) installShutdownHooks() {
	rt.sigCh = make(chan os.Signal, 1)
	signal.Notify(rt.sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		if _, ok := <-rt.sigCh; ok {
			_ = rt.Dispose()
		}
	}()
}
