package flowgraph

// END is the terminal node identifier.
// Use this as an edge target to indicate the graph should terminate.
const END = "__end__"

// NodeFunc is the signature for all node functions.
// Nodes receive the execution context and the current state, and return a
// Command holding their partial update and, optionally, a dynamic goto.
//
// The state parameter must be treated as read-only. Return only the fields
// the node changes; the graph's Schema merges them into the state.
//
// Example:
//
//	func greet(ctx flowgraph.Context, s flowgraph.State) (flowgraph.Command, error) {
//	    return flowgraph.Update(flowgraph.State{"greeting": "hello " + s.String("name")}), nil
//	}
type NodeFunc func(ctx Context, state State) (Command, error)

// DecisionFunc maps the post-update state to a label. A conditional edge
// resolves the label through its route table to the successor node.
type DecisionFunc func(ctx Context, state State) string

// Command is the result of a node: a partial state update, plus an optional
// explicit successor that bypasses the declared edges for one transition.
type Command struct {
	// Update holds the fields to merge. May be nil.
	Update State

	// Goto, when non-empty, names the next node (or END). The engine checks it
	// against the graph's node set after merging Update.
	Goto string
}

// Update returns a Command that only updates state.
func Update(update State) Command {
	return Command{Update: update}
}

// Goto returns a Command that updates state and transfers control to next.
func Goto(next string, update State) Command {
	return Command{Update: update, Goto: next}
}

// NodeOption configures a node at registration time.
type NodeOption func(*nodeDef)

// WithDestinations declares the nodes a node may jump to with Goto.
// Compile uses them for reachability; Run rejects a Goto outside them.
func WithDestinations(ids ...string) NodeOption {
	return func(n *nodeDef) {
		n.destinations = append(n.destinations, ids...)
	}
}

// nodeDef is a registered node.
type nodeDef struct {
	fn           NodeFunc
	destinations []string
}

// conditionalEdge pairs a decision function with its route table.
type conditionalEdge struct {
	decide DecisionFunc
	routes map[string]string
}
