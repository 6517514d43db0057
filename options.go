package kernel

import "log/slog"

// runConfig accumulates RunOption effects before Run builds the runtime.
type runConfig struct {
	logger          *slog.Logger
	extraNodes      []Identifiable
	overrides       map[string]Identifiable
	shutdownHooks   bool
	cycleDetection  bool
	parallelInit    bool
	envPrefix       string
	loadEnv         bool
}

// RunOption configures a Run call.
type RunOption func(*runConfig)

// WithLogger stores l in the run configuration in place of the package
// default (a silent no-op logger). The runtime writes no log records of
// its own, so the logger is not consulted during boot or shutdown.
func WithLogger(l *slog.Logger) RunOption {
	return func(c *runConfig) { c.logger = l }
}

// WithNodes registers additional nodes (typically Hooks, or Events/Tags
// not otherwise reachable through a Dependencies edge) that should be
// discovered even though nothing depends on them.
func WithNodes(nodes ...Identifiable) RunOption {
	return func(c *runConfig) { c.extraNodes = append(c.extraNodes, nodes...) }
}

// WithOverrides substitutes each given node in place of whatever the graph
// walk would otherwise discover under that node's id — built with
// Override(base, patch) so the replacement keeps base's id.
func WithOverrides(nodes ...Identifiable) RunOption {
	return func(c *runConfig) {
		if c.overrides == nil {
			c.overrides = map[string]Identifiable{}
		}
		for _, n := range nodes {
			c.overrides[n.NodeID()] = n
		}
	}
}

// WithShutdownHooks installs OS signal handling (SIGINT/SIGTERM) that
// calls Runtime.Dispose automatically.
func WithShutdownHooks() RunOption {
	return func(c *runConfig) { c.shutdownHooks = true }
}

// WithRuntimeCycleDetection records whether the event-emission cycle
// check is wanted (true by default). Run does not read the setting: the
// dispatcher's check runs the same way whatever is passed here, so
// passing false does not switch it off.
func WithRuntimeCycleDetection(enabled bool) RunOption {
	return func(c *runConfig) { c.cycleDetection = enabled }
}

// WithParallelInit records a request for concurrent resource
// initialization. Run does not read it: resources are always initialized
// one at a time in topological order, and no ParallelInitSchedulingError
// is raised.
func WithParallelInit() RunOption {
	return func(c *runConfig) { c.parallelInit = true }
}

func defaultRunConfig() runConfig {
	return runConfig{
		logger:         slog.New(slog.NewTextHandler(nopWriter{}, nil)),
		cycleDetection: true,
	}
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }
