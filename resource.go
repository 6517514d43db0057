package kernel

import "github.com/noderun/kernel/schema"

// ResourceInitFunc builds a resource's long-lived value from its
// dependencies and configuration. It runs exactly once per runtime: a
// resource's value is immutable thereafter.
type ResourceInitFunc[C, T any] func(ctx ResourceInitContext, config C, deps Deps) (T, error)

// Resource is a named, typed singleton with a boot-time init step and an
// optional shutdown-time cleanup. It is never updated or invalidated
// after init: no Update/Reload/Peek exists here.
type Resource[C, T any] struct {
	id          string
	deps        Dependencies
	config      C
	hasConfig   bool
	configSchema schema.Schema[C]
	resultSchema schema.Schema[T]
	tags        []TagUsage
	middleware  []*ResourceMiddleware
	meta        Meta
	init        ResourceInitFunc[C, T]
	forkOf      *Resource[C, T]
	register    []Identifiable
	registerFn  func() []Identifiable
}

func (r *Resource[C, T]) NodeID() string         { return r.id }
func (r *Resource[C, T]) NodeKind() Kind         { return KindResource }
func (r *Resource[C, T]) nodeDeps() Dependencies { return r.deps }

// ResourceOption configures a Resource at construction.
type ResourceOption[C, T any] func(*Resource[C, T])

// WithResourceDeps declares the resource's dependency map.
func WithResourceDeps[C, T any](deps Dependencies) ResourceOption[C, T] {
	return func(r *Resource[C, T]) { r.deps = deps }
}

// WithConfigSchema attaches a config validator.
func WithConfigSchema[C, T any](s schema.Schema[C]) ResourceOption[C, T] {
	return func(r *Resource[C, T]) { r.configSchema = s }
}

// WithResourceResultSchema attaches a result validator run on the
// resource's produced value.
func WithResourceResultSchema[C, T any](s schema.Schema[T]) ResourceOption[C, T] {
	return func(r *Resource[C, T]) { r.resultSchema = s }
}

// WithResourceTags attaches tag usages.
func WithResourceTags[C, T any](tags ...TagUsage) ResourceOption[C, T] {
	return func(r *Resource[C, T]) { r.tags = append(r.tags, tags...) }
}

// WithResourceMiddleware attaches middlewares explicitly.
func WithResourceMiddleware[C, T any](mws ...*ResourceMiddleware) ResourceOption[C, T] {
	return func(r *Resource[C, T]) { r.middleware = append(r.middleware, mws...) }
}

// WithResourceMeta attaches descriptive metadata.
func WithResourceMeta[C, T any](m Meta) ResourceOption[C, T] {
	return func(r *Resource[C, T]) { r.meta = m }
}

// WithResourceRegister attaches a static list of child nodes (events, tags,
// hooks, other resources, ...) that r contributes to the graph regardless
// of whether anything declares a Dependencies edge onto them.
func WithResourceRegister[C, T any](nodes ...Identifiable) ResourceOption[C, T] {
	return func(r *Resource[C, T]) { r.register = append(r.register, nodes...) }
}

// WithResourceRegisterFunc attaches a function contributing child nodes,
// evaluated once at collect time.
func WithResourceRegisterFunc[C, T any](fn func() []Identifiable) ResourceOption[C, T] {
	return func(r *Resource[C, T]) { r.registerFn = fn }
}

// NewResource registers a resource identified by id, initialized by init.
func NewResource[C, T any](id string, init ResourceInitFunc[C, T], opts ...ResourceOption[C, T]) *Resource[C, T] {
	r := &Resource[C, T]{id: id, deps: Dependencies{}, init: init}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// With returns a copy of r configured with config, keeping r's id. The
// caller must still give the copy a fresh id via Fork if it is to coexist
// with r in the same store.
func (r *Resource[C, T]) With(config C) *Resource[C, T] {
	cp := *r
	cp.config = config
	cp.hasConfig = true
	return &cp
}

// ForkOption configures Fork.
type ForkOption struct{ deepRegister bool }

// ForkOpt applies a ForkOption.
type ForkOpt func(*ForkOption)

// WithDeepRegister asks Fork to also fork every resource in r's own static
// register list (recursively), each re-identified under a prefix derived
// from the new id, so two forks of the same resource subtree never collide.
// Other child kinds, and children from WithResourceRegisterFunc, keep
// their ids.
func WithDeepRegister() ForkOpt {
	return func(o *ForkOption) { o.deepRegister = true }
}

// Fork returns a copy of r re-identified as id, for registering the same
// shape of resource multiple times under distinct configuration. The
// same resource registered twice under different ids is permitted; the
// same id registered twice is a ConfigError. WithDeepRegister additionally
// remaps the ids of the resources in r.register; other nodes there are
// kept as they are.
func (r *Resource[C, T]) Fork(id string, opts ...ForkOpt) *Resource[C, T] {
	var cfg ForkOption
	for _, opt := range opts {
		opt(&cfg)
	}
	cp := *r
	cp.id = id
	cp.forkOf = r
	if cfg.deepRegister && len(r.register) > 0 {
		prefix := id + "/"
		remapped := make([]Identifiable, len(r.register))
		for i, child := range r.register {
			if fc, ok := child.(forkable); ok {
				remapped[i] = fc.forkDeep(prefix)
			} else {
				remapped[i] = child
			}
		}
		cp.register = remapped
	}
	return &cp
}

// forkable is implemented by node kinds that know how to deep-remap
// themselves (and their own register subtree) under a new id prefix.
type forkable interface {
	forkDeep(prefix string) Identifiable
}

func (r *Resource[C, T]) forkDeep(prefix string) Identifiable {
	cp := *r
	cp.id = prefix + r.id
	cp.forkOf = r
	if len(r.register) > 0 {
		remapped := make([]Identifiable, len(r.register))
		for i, child := range r.register {
			if fc, ok := child.(forkable); ok {
				remapped[i] = fc.forkDeep(prefix)
			} else {
				remapped[i] = child
			}
		}
		cp.register = remapped
	}
	return &cp
}

// Override returns a copy of patch re-identified as base's id, so a
// dependency graph already wired against base can be repointed at patch's
// entire behavior (config, init, middleware, register list, ...) without
// touching any edge that targets base.
func Override[C, T any](base, patch *Resource[C, T]) *Resource[C, T] {
	cp := *patch
	cp.id = base.id
	return &cp
}

// Config returns the configuration this resource instance was built with.
func (r *Resource[C, T]) Config() C { return r.config }

func (r *Resource[C, T]) rawConfig() any { return r.config }

// envConfigPtr exposes the resource's config by address so FromEnv can
// populate it via caarlos0/env before init runs.
func (r *Resource[C, T]) envConfigPtr() any { return &r.config }

func (r *Resource[C, T]) middlewareList() []*ResourceMiddleware {
	out := make([]*ResourceMiddleware, len(r.middleware))
	copy(out, r.middleware)
	return out
}

func (r *Resource[C, T]) tagUsages() []TagUsage { return r.tags }

// registeredNodes returns every child node r statically or functionally
// contributes to the graph, for collect() to walk alongside nodeDeps().
func (r *Resource[C, T]) registeredNodes() []Identifiable {
	out := append([]Identifiable{}, r.register...)
	if r.registerFn != nil {
		out = append(out, r.registerFn()...)
	}
	return out
}

// runInit validates config (if a schema is declared), runs init, and
// validates the produced value (if a result schema is declared) — the
// Resource half of 's "parse(unknown) -> T" boundary.
func (r *Resource[C, T]) runInit(ctx ResourceInitContext, rawCfg any, deps Deps) (any, error) {
	cfg, ok := rawCfg.(C)
	if !ok {
		cfg = r.config
	}
	if r.configSchema != nil {
		parsed, err := r.configSchema.Parse(cfg)
		if err != nil {
			return nil, err
		}
		cfg = parsed
	}
	value, err := r.init(ctx, cfg, deps)
	if err != nil {
		return nil, err
	}
	if r.resultSchema != nil {
		if _, err := r.resultSchema.Parse(value); err != nil {
			return nil, &ResourceResultValidationError{ResourceID: r.id, Cause: err}
		}
	}
	return value, nil
}
