package kernel

import "fmt"

// Dependency is a declared edge from a host node to another node, named by
// key in that host's Dependencies map. It is resolved at boot/call time into an any value
// stored under the same key in a Deps map.
type Dependency interface {
	targetID() string
	targetKind() Kind
	isOptional() bool
	target() Identifiable
}

type baseDep struct {
	node     Identifiable
	optional bool
}

func (d baseDep) targetID() string   { return d.node.NodeID() }
func (d baseDep) targetKind() Kind   { return d.node.NodeKind() }
func (d baseDep) isOptional() bool   { return d.optional }
func (d baseDep) target() Identifiable { return d.node }

// DepOn declares a dependency on a resource or task's value/caller.
func DepOn(target Identifiable) Dependency {
	return baseDep{node: target}
}

// DepOnEvent declares a dependency on an event's emitter.
func DepOnEvent[T any](e *Event[T]) Dependency {
	return baseDep{node: e}
}

// DepOnContext declares a dependency on an async context's accessor.
func DepOnContext[T any](c *AsyncContext[T]) Dependency {
	return baseDep{node: c}
}

// optionalDep wraps a Dependency to resolve to "absent" rather than error
// when its target cannot be satisfied.
type optionalDep struct{ Dependency }

func (d optionalDep) isOptional() bool { return true }

// Optional marks a dependency as non-fatal-if-missing.
func Optional(d Dependency) Dependency { return optionalDep{d} }

// Dependencies is the declaration-time named map of edges a task, resource,
// hook or middleware carries.
type Dependencies map[string]Dependency

// Deps is the call-time resolved form of Dependencies: each key now holds
// the concrete resolved value (or nil, for an unmet optional dependency).
type Deps map[string]any

// DepValue extracts and asserts the value stored at key as T. Panics with
// a descriptive message on a missing key or type mismatch: a direct
// accessor rather than a (T, error) pair, since a wrong-typed dependency
// access is a programmer error discoverable at development time.
func DepValue[T any](d Deps, key string) T {
	v, ok := d[key]
	if !ok {
		panic(fmt.Sprintf("kernel: dependency %q not present in Deps", key))
	}
	if v == nil {
		var zero T
		return zero
	}
	t, ok := v.(T)
	if !ok {
		panic(fmt.Sprintf("kernel: dependency %q is %T, not %T", key, v, t))
	}
	return t
}

// DepValueOk is the non-panicking form of DepValue, for optional
// dependencies the caller wants to branch on explicitly.
func DepValueOk[T any](d Deps, key string) (T, bool) {
	var zero T
	v, ok := d[key]
	if !ok || v == nil {
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

// DepCaller narrows a resolved task dependency into its typed invocation
// function, the form a dependent actually calls at runtime.
func DepCaller[I, O any](d Deps, key string) func(ctx AsyncExecContext, input I) (O, error) {
	return DepValue[func(ctx AsyncExecContext, input I) (O, error)](d, key)
}

// DepEmitter narrows a resolved event dependency into its typed emit
// function.
func DepEmitter[T any](d Deps, key string) func(ctx AsyncExecContext, payload T) error {
	return DepValue[func(ctx AsyncExecContext, payload T) error](d, key)
}
