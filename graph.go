package kernel

import "sort"

// dependencyGraph is the resolved edge set over every node in a store:
// downstream[x] lists nodes that depend on x, upstream[x] lists what x
// depends on. Built once at boot from Dependencies/middleware edges.
type dependencyGraph struct {
	downstream map[string][]string
	upstream   map[string][]string
	order      map[string]int // declaration index, for topo tie-breaks
}

func newDependencyGraph() *dependencyGraph {
	return &dependencyGraph{
		downstream: map[string][]string{},
		upstream:   map[string][]string{},
		order:      map[string]int{},
	}
}

func (g *dependencyGraph) addEdge(dependentID, dependencyID string) {
	g.downstream[dependencyID] = appendUnique(g.downstream[dependencyID], dependentID)
	g.upstream[dependentID] = appendUnique(g.upstream[dependentID], dependencyID)
}

// buildDependencyGraph constructs the graph for every task/resource in s,
// including edges contributed by each node's own middleware chain and by
// Everywhere() global middlewares. A global middleware
// that transitively depends on target T excludes itself from T's own
// chain, since
// otherwise every Everywhere middleware with any dependency at all would
// cycle against itself.
func buildDependencyGraph(s *store) *dependencyGraph {
	g := newDependencyGraph()
	for i, id := range s.order {
		g.order[id] = i
	}

	addNodeEdges := func(n dependent, mws []Identifiable) {
		for _, dep := range n.nodeDeps() {
			g.addEdge(n.NodeID(), dep.targetID())
		}
		for _, mw := range mws {
			if mw.NodeID() == n.NodeID() {
				continue
			}
			g.addEdge(n.NodeID(), mw.NodeID())
		}
	}

	globalTask := s.globalTaskMiddlewares()
	globalResource := s.globalResourceMiddlewares()

	for _, id := range s.order {
		if t, ok := s.tasks[id]; ok {
			mws := identifiables(globalTask)
			addNodeEdges(t, excludeSelfDependent(s, t, mws))
			continue
		}
		if r, ok := s.resources[id]; ok {
			mws := identifiables(globalResource)
			addNodeEdges(r, excludeSelfDependent(s, r, mws))
			continue
		}
		if m, ok := s.taskMiddlewares[id]; ok {
			for _, dep := range m.nodeDeps() {
				g.addEdge(m.NodeID(), dep.targetID())
			}
			continue
		}
		if m, ok := s.resourceMiddlewares[id]; ok {
			for _, dep := range m.nodeDeps() {
				g.addEdge(m.NodeID(), dep.targetID())
			}
		}
	}
	return g
}

func identifiables[T Identifiable](xs []T) []Identifiable {
	out := make([]Identifiable, len(xs))
	for i, x := range xs {
		out[i] = x
	}
	return out
}

// excludeSelfDependent drops mw from the candidate list if mw transitively
// depends on target (directly or through its own deps), preventing an
// Everywhere middleware from being folded into the chain of something it
// itself needs to resolve first.
func excludeSelfDependent(s *store, target dependent, mws []Identifiable) []Identifiable {
	out := make([]Identifiable, 0, len(mws))
	for _, mw := range mws {
		if dependsOn(s, mw.NodeID(), target.NodeID(), map[string]bool{}) {
			continue
		}
		out = append(out, mw)
	}
	return out
}

func dependsOn(s *store, fromID, targetID string, seen map[string]bool) bool {
	if fromID == targetID {
		return true
	}
	if seen[fromID] {
		return false
	}
	seen[fromID] = true
	var deps Dependencies
	if m, ok := s.taskMiddlewares[fromID]; ok {
		deps = m.nodeDeps()
	} else if m, ok := s.resourceMiddlewares[fromID]; ok {
		deps = m.nodeDeps()
	} else if t, ok := s.tasks[fromID]; ok {
		deps = t.nodeDeps()
	} else if r, ok := s.resources[fromID]; ok {
		deps = r.nodeDeps()
	}
	for _, dep := range deps {
		if dependsOn(s, dep.targetID(), targetID, seen) {
			return true
		}
	}
	return false
}

// topoSort returns node ids in an order where every dependency precedes
// its dependents, breaking ties by declaration order. Cycles are
// reported as a GraphError naming the full cycle path, found via an
// explicit recursion stack rather than Tarjan/Kosaraju.
func topoSort(g *dependencyGraph, ids []string) ([]string, error) {
	state := map[string]int{} // 0=unvisited 1=visiting 2=done
	var result []string
	var path []string

	sorted := append([]string(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return g.order[sorted[i]] < g.order[sorted[j]] })

	var visit func(id string) error
	visit = func(id string) error {
		switch state[id] {
		case 2:
			return nil
		case 1:
			cycle := append(append([]string(nil), path...), id)
			return &GraphError{Reason: "dependency cycle detected", Cycle: cycle}
		}
		state[id] = 1
		path = append(path, id)

		deps := append([]string(nil), g.upstream[id]...)
		sort.Slice(deps, func(i, j int) bool { return g.order[deps[i]] < g.order[deps[j]] })
		for _, dep := range deps {
			if err := visit(dep); err != nil {
				return err
			}
		}

		path = path[:len(path)-1]
		state[id] = 2
		result = append(result, id)
		return nil
	}

	for _, id := range sorted {
		if err := visit(id); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// renderCyclePath formats a cycle for error messages (a -> b -> c -> a).
func renderCyclePath(cycle []string) string {
	out := ""
	for i, id := range cycle {
		if i > 0 {
			out += " -> "
		}
		out += id
	}
	return out
}

func appendUnique(slice []string, item string) []string {
	for _, existing := range slice {
		if existing == item {
			return slice
		}
	}
	return append(slice, item)
}
