package kernel

import "fmt"

// store is the boot-time registry of every node reachable from the root
// resource, collected by a single DFS walk, keyed by Kind into typed maps.
type store struct {
	tasks               map[string]dependent
	resources           map[string]dependent
	events               map[string]Identifiable
	hooks               map[string]*Hook
	taskMiddlewares     map[string]*TaskMiddleware
	resourceMiddlewares map[string]*ResourceMiddleware
	tags                map[string]Identifiable
	errors              map[string]Identifiable
	asyncContexts       map[string]Identifiable

	order []string // declaration order of every id, for tie-break sorts
}

func newStore() *store {
	return &store{
		tasks:               map[string]dependent{},
		resources:           map[string]dependent{},
		events:               map[string]Identifiable{},
		hooks:               map[string]*Hook{},
		taskMiddlewares:     map[string]*TaskMiddleware{},
		resourceMiddlewares: map[string]*ResourceMiddleware{},
		tags:                map[string]Identifiable{},
		errors:              map[string]Identifiable{},
		asyncContexts:       map[string]Identifiable{},
	}
}

// register files a node under its kind's collection, reporting a
// ConfigError if its id was already registered with a DIFFERENT node
// (registering the exact same pointer twice is a no-op, since the DFS
// walk may reach a shared dependency through more than one path).
func (s *store) register(n Identifiable) error {
	id := n.NodeID()
	switch n.NodeKind() {
	case KindTask:
		return registerInto(s.tasks, id, n.(dependent), &s.order)
	case KindResource:
		return registerInto(s.resources, id, n.(dependent), &s.order)
	case KindEvent:
		return registerIdentifiable(s.events, id, n, &s.order)
	case KindHook:
		h := n.(*Hook)
		if existing, ok := s.hooks[id]; ok && existing != h {
			return &ConfigError{Reason: fmt.Sprintf("duplicate hook id %q", id)}
		}
		if _, ok := s.hooks[id]; !ok {
			s.hooks[id] = h
			s.order = append(s.order, id)
		}
		return nil
	case KindTaskMiddleware:
		m := n.(*TaskMiddleware)
		if existing, ok := s.taskMiddlewares[id]; ok && existing != m {
			return &ConfigError{Reason: fmt.Sprintf("duplicate task middleware id %q", id)}
		}
		if _, ok := s.taskMiddlewares[id]; !ok {
			s.taskMiddlewares[id] = m
			s.order = append(s.order, id)
		}
		return nil
	case KindResourceMiddleware:
		m := n.(*ResourceMiddleware)
		if existing, ok := s.resourceMiddlewares[id]; ok && existing != m {
			return &ConfigError{Reason: fmt.Sprintf("duplicate resource middleware id %q", id)}
		}
		if _, ok := s.resourceMiddlewares[id]; !ok {
			s.resourceMiddlewares[id] = m
			s.order = append(s.order, id)
		}
		return nil
	case KindTag:
		return registerIdentifiable(s.tags, id, n, &s.order)
	case KindError:
		return registerIdentifiable(s.errors, id, n, &s.order)
	case KindAsyncContext:
		return registerIdentifiable(s.asyncContexts, id, n, &s.order)
	default:
		return &ConfigError{Reason: fmt.Sprintf("unknown node kind for id %q", id)}
	}
}

func registerInto(m map[string]dependent, id string, n dependent, order *[]string) error {
	if existing, ok := m[id]; ok && existing != n {
		return &ConfigError{Reason: fmt.Sprintf("duplicate id %q", id)}
	}
	if _, ok := m[id]; !ok {
		m[id] = n
		*order = append(*order, id)
	}
	return nil
}

func registerIdentifiable(m map[string]Identifiable, id string, n Identifiable, order *[]string) error {
	if existing, ok := m[id]; ok && existing != n {
		return &ConfigError{Reason: fmt.Sprintf("duplicate id %q", id)}
	}
	if _, ok := m[id]; !ok {
		m[id] = n
		*order = append(*order, id)
	}
	return nil
}

// globalTaskMiddlewares returns every registered task middleware flagged
// Everywhere(), for the graph builder to splice into every task's chain.
func (s *store) globalTaskMiddlewares() []*TaskMiddleware {
	var out []*TaskMiddleware
	for _, id := range s.order {
		if m, ok := s.taskMiddlewares[id]; ok && m.everywhere {
			out = append(out, m)
		}
	}
	return out
}

func (s *store) globalResourceMiddlewares() []*ResourceMiddleware {
	var out []*ResourceMiddleware
	for _, id := range s.order {
		if m, ok := s.resourceMiddlewares[id]; ok && m.everywhere {
			out = append(out, m)
		}
	}
	return out
}

// registerer is implemented by nodes that statically or functionally
// contribute child nodes to the graph (currently Resource), independent of
// any Dependencies edge pointing at those children.
type registerer interface {
	registeredNodes() []Identifiable
}

// collect walks root's dependency graph depth-first, registering every
// node reachable through Dependencies, register lists, and global
// middlewares, done eagerly and once at boot. An optional overrides map
// (keyed by node id, built via WithOverrides/Override) substitutes a
// patched node in place of whatever the walk would otherwise reach under
// that id.
func collect(root dependent, extra []Identifiable, overrides ...map[string]Identifiable) (*store, error) {
	var ov map[string]Identifiable
	if len(overrides) > 0 {
		ov = overrides[0]
	}

	s := newStore()
	visited := map[string]bool{}
	var walk func(n Identifiable) error
	walk = func(n Identifiable) error {
		id := n.NodeID()
		if replacement, ok := ov[id]; ok {
			n = replacement
		}
		if visited[id] {
			return nil
		}
		visited[id] = true
		if err := s.register(n); err != nil {
			return err
		}
		if d, ok := n.(dependent); ok {
			for _, dep := range d.nodeDeps() {
				if err := walk(dep.target()); err != nil {
					return err
				}
			}
		}
		if rg, ok := n.(registerer); ok {
			for _, child := range rg.registeredNodes() {
				if err := walk(child); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := walk(root); err != nil {
		return nil, err
	}
	for _, n := range extra {
		if err := walk(n); err != nil {
			return nil, err
		}
	}
	for _, mw := range s.globalTaskMiddlewares() {
		if err := walk(mw); err != nil {
			return nil, err
		}
	}
	for _, mw := range s.globalResourceMiddlewares() {
		if err := walk(mw); err != nil {
			return nil, err
		}
	}
	if err := validateTagUsages(s); err != nil {
		return nil, err
	}
	return s, nil
}

// validateTagUsages errors with a ConfigError naming any tag id attached
// to a task or resource that was never itself registered into the store
// (i.e. never reachable through WithNodes/WithOverrides/nodeDeps).
func validateTagUsages(s *store) error {
	check := func(n Identifiable) error {
		tg, ok := n.(tagged)
		if !ok {
			return nil
		}
		for _, u := range tg.tagUsages() {
			if _, ok := s.tags[u.id]; !ok {
				return &ConfigError{Reason: fmt.Sprintf("tag %q not registered", u.id)}
			}
		}
		return nil
	}
	for _, n := range s.tasks {
		if err := check(n); err != nil {
			return err
		}
	}
	for _, n := range s.resources {
		if err := check(n); err != nil {
			return err
		}
	}
	return nil
}
