package kernel

import "github.com/noderun/kernel/internal/graphviz"

// DebugGraph renders the runtime's dependency graph as an ASCII tree,
// marking every initialized resource.
func (rt *Runtime) DebugGraph() string {
	status := make(map[string]graphviz.Status, len(rt.lifecycle.entries))
	for id := range rt.lifecycle.entries {
		status[id] = graphviz.StatusOK
	}
	return graphviz.Render(rt.graph.downstream, status, "")
}

// DebugCycle renders a GraphError's cycle path as an ASCII chain, for
// embedding in boot-failure diagnostics.
func DebugCycle(err *GraphError) string {
	return graphviz.RenderCycle(err.Cycle)
}
