package flowgraph

import "fmt"

// Subgraph returns a node that runs child to completion as one step of the
// parent graph.
//
// copyIn builds the child's input from the parent state; copyOut maps the
// child's terminal state to the parent update. The child runs synchronously
// on the node's Context, so it shares the parent's logger, run id, metrics
// and tracing. A child failure fails the node.
//
// Example:
//
//	parent.AddNode("search", flowgraph.Subgraph(searchGraph,
//	    func(s flowgraph.State) flowgraph.State { return flowgraph.State{"task": s["task"]} },
//	    flowgraph.Fields("content")))
func Subgraph(child *CompiledGraph, copyIn func(State) State, copyOut func(State) State, opts ...RunOption) NodeFunc {
	if child == nil {
		panic("flowgraph: sub-graph cannot be nil")
	}
	if copyIn == nil || copyOut == nil {
		panic("flowgraph: sub-graph mappings cannot be nil")
	}

	return func(ctx Context, state State) (Command, error) {
		out, err := child.Run(ctx, copyIn(state), opts...)
		if err != nil {
			return Command{}, fmt.Errorf("sub-graph %s: %w", child.Name(), err)
		}
		return Update(copyOut(out)), nil
	}
}

// Fields returns a mapping that copies the named fields, when present,
// under the same names. It suits either side of Subgraph.
func Fields(names ...string) func(State) State {
	return func(s State) State {
		out := make(State, len(names))
		for _, name := range names {
			if v, ok := s[name]; ok {
				out[name] = v
			}
		}
		return out
	}
}
