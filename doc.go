// Package kernel provides a dependency-graph application runtime: a small
// set of typed node kinds (tasks, resources, events, hooks, middlewares,
// tags, error helpers, and async contexts) whose dependencies are
// expressed as a named map rather than positional arguments, discovered
// by walking from a root, and brought up in one deterministic boot pass.
//
// # Overview
//
// A program built with kernel declares:
//
//  1. Resources: long-lived values initialized once, in dependency order,
//     and never mutated afterward.
//  2. Tasks: named, typed units of work invoked through a Runtime, each
//     wrapped by its own folded middleware chain.
//  3. Events and Hooks: a dispatcher that delivers typed payloads to
//     ordered listeners, including global ("OnAny") listeners.
//
// # Basic usage
//
//	type Config struct {
//		Port int
//	}
//
//	cfgResource := kernel.NewResource("app.config",
//		func(ctx kernel.ResourceInitContext, cfg Config, deps kernel.Deps) (Config, error) {
//			return cfg, nil
//		},
//	)
//
//	greet := kernel.NewTask("app.greet",
//		func(ctx kernel.AsyncExecContext, name string, deps kernel.Deps) (string, error) {
//			cfg := kernel.DepValue[Config](deps, "config")
//			return fmt.Sprintf("hello %s on port %d", name, cfg.Port), nil
//		},
//		kernel.WithTaskDeps[string, string](kernel.Dependencies{
//			"config": kernel.DepOn(cfgResource),
//		}),
//	)
//
//	rt, err := kernel.Run(context.Background(), cfgResource, kernel.WithNodes(greet))
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer rt.Dispose()
//
//	out, err := rt.RunTask(context.Background(), greet, "world")
//
// # Dependencies
//
// Every task, resource, hook, and middleware declares its dependencies as
// a Dependencies map (local name -> Dependency), resolved at boot or call time
// into a Deps map the body reads with DepValue, DepCaller, or DepEmitter.
// Wrapping any dependency with Optional marks it non-fatal if unmet.
//
// # Async context
//
// Ambient, scoped values (request ids, trace spans, a tunnel-delivery
// preference) are modeled directly on context.Context: AsyncContext[T]'s
// Provide/Use pair are thin, typed wrappers over context.WithValue, so
// ordinary context propagation rules apply across an entire call tree.
//
// # Errors
//
// User code raises typed errors through an ErrorHelper[D], registered
// once with NewErrorHelper and invoked with Throw; IsThrown narrows any
// error back to the branded ThrownError. Boot-time failures (cycles,
// duplicate ids, unmet dependencies) surface as GraphError or
// ConfigError; call-time validation failures surface as
// TaskInputValidationError/TaskResultValidationError/
// ResourceResultValidationError.
package kernel
