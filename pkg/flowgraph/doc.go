/*
Package flowgraph provides graph-based orchestration for LLM workflows.

# Overview

flowgraph builds and executes directed graphs where nodes perform work
and edges define flow. State is a map of named fields whose shape and
merge policy are declared once per graph in a Schema. Nodes return
partial updates; the engine merges them, then picks the next node.

# Basic Usage

Declare a schema, add nodes and edges, then compile and run:

	schema := flowgraph.NewSchema(
	    flowgraph.Field{Name: "input", Default: ""},
	    flowgraph.Field{Name: "output", Default: ""},
	)

	func process(ctx flowgraph.Context, s flowgraph.State) (flowgraph.Command, error) {
	    return flowgraph.Update(flowgraph.State{"output": "Processed: " + s.String("input")}), nil
	}

	compiled, err := flowgraph.NewGraph("pipeline", schema).
	    AddNode("process", process).
	    AddEdge("process", flowgraph.END).
	    SetEntry("process").
	    Compile()
	if err != nil {
	    log.Fatal(err)
	}

	ctx := flowgraph.NewContext(context.Background())
	result, err := compiled.Run(ctx, flowgraph.State{"input": "hello"})

# Merge Policies

Each Field has a Reducer. Overwrite (the default) replaces the value;
AddInt accumulates, so a node returning {"revision": 1} increments the
field. Updates that name undeclared fields, or carry the wrong type,
fail the node with a *NodeExecutionError.

# Conditional Branching

A conditional edge calls a DecisionFunc on the updated state and looks
the returned label up in a route table:

	graph.AddConditionalEdge("review", func(ctx flowgraph.Context, s flowgraph.State) string {
	    if s.Int("score") > 7 {
	        return "good"
	    }
	    return "retry"
	}, map[string]string{"good": flowgraph.END, "retry": "draft"})

A label missing from the table is a *RoutingFault; decision functions that
want a fallback return a known label themselves.

# Dynamic Goto

A node may pick its successor directly by returning Goto. The targets must
be declared with WithDestinations so Compile can check reachability:

	graph.AddNode("lookup", lookup, flowgraph.WithDestinations("analyze"))

A goto overrides the node's edges for that one transition.

# Composition

Subgraph wraps a compiled graph as a node. The child gets its own state
built from the parent's fields and returns a subset of its terminal state:

	parent.AddNode("search", flowgraph.Subgraph(search,
	    flowgraph.Fields("task"), flowgraph.Fields("content")))

# Validation

Compile reports every defect at once in a *GraphDefinitionError:
missing or unknown entry, duplicate nodes, dangling targets, conflicting
edges, nodes without outgoing edges, orphans and dead ends. Use errors.Is
with the Err* sentinels to test for a specific defect.

# Observability

NewContext accepts a logger, metrics recorder and span manager from the
observability package. Runs log at Info, nodes at Debug; every node gets a
span nested under its run span, and sub-graph runs nest under the node
that started them.
*/
package flowgraph
