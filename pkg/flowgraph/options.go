package flowgraph

// runConfig holds configuration for graph execution.
type runConfig struct {
	maxIterations int
	stepHook      func(Step)
}

// defaultRunConfig returns the default execution configuration.
func defaultRunConfig() runConfig {
	return runConfig{
		maxIterations: 1000,
	}
}

// RunOption configures execution behavior.
type RunOption func(*runConfig)

// WithMaxIterations sets the maximum number of node executions.
// Default: 1000
//
// This prevents infinite loops from hanging forever. If a graph
// exceeds this limit, Run returns a *MaxIterationsError.
//
// Example:
//
//	result, err := compiled.Run(ctx, state, flowgraph.WithMaxIterations(100))
func WithMaxIterations(n int) RunOption {
	return func(c *runConfig) {
		if n > 0 {
			c.maxIterations = n
		}
	}
}

// Step describes one completed transition of a run.
type Step struct {
	// Graph is the name of the graph being run.
	Graph string
	// Iteration counts node executions in this run, starting at 1.
	Iteration int
	// NodeID is the node that just executed.
	NodeID string
	// Label is the decision label, empty unless a conditional edge was taken.
	Label string
	// Next is the successor node, or END.
	Next string
	// State is the merged state after the node's update.
	State State
}

// WithStepHook registers a function called after every transition, in
// order, on the calling goroutine. The hook must not modify Step.State.
//
// Hooks do not propagate into sub-graphs run by Subgraph nodes.
func WithStepHook(hook func(Step)) RunOption {
	return func(c *runConfig) {
		c.stepHook = hook
	}
}
