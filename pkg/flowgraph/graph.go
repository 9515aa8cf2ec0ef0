package flowgraph

import (
	"fmt"
	"maps"
	"strings"
	"sync"
)

// Graph is a mutable builder for creating execution graphs.
// Use NewGraph to create a new graph, then chain AddNode, AddEdge,
// AddConditionalEdge and SetEntry calls to define the workflow.
//
// Graph is NOT thread-safe during building. Use a single goroutine
// to construct the graph, then call Compile() to create an immutable
// CompiledGraph that can be safely shared.
//
// Example:
//
//	graph := flowgraph.NewGraph("pipeline", schema).
//	    AddNode("fetch", fetchNode).
//	    AddNode("process", processNode).
//	    AddEdge("fetch", "process").
//	    AddEdge("process", flowgraph.END).
//	    SetEntry("fetch")
//
//	compiled, err := graph.Compile()
type Graph struct {
	mu               sync.RWMutex
	name             string
	schema           *Schema
	nodes            map[string]nodeDef
	duplicates       []string
	edges            map[string][]string
	conditionalEdges map[string]conditionalEdge
	entryPoint       string
}

// NewGraph creates a new graph builder. The name identifies the graph in
// logs, metrics and errors; the schema is its state shape.
//
// Panics if schema is nil.
func NewGraph(name string, schema *Schema) *Graph {
	if schema == nil {
		panic("flowgraph: schema cannot be nil")
	}
	return &Graph{
		name:             name,
		schema:           schema,
		nodes:            make(map[string]nodeDef),
		edges:            make(map[string][]string),
		conditionalEdges: make(map[string]conditionalEdge),
	}
}

// AddNode adds a named node to the graph.
// Returns the graph for method chaining.
//
// Panics if:
//   - id is empty
//   - id is the reserved word "END" or "__end__" (case-insensitive)
//   - id contains whitespace (space, tab, newline)
//   - fn is nil
//
// A duplicate id is not a panic: Compile reports it with the other
// definition errors.
func (g *Graph) AddNode(id string, fn NodeFunc, opts ...NodeOption) *Graph {
	if id == "" {
		panic("flowgraph: node ID cannot be empty")
	}

	idLower := strings.ToLower(id)
	if idLower == "end" || idLower == "__end__" {
		panic("flowgraph: node ID cannot be reserved word 'END'")
	}

	if strings.ContainsAny(id, " \t\n\r") {
		panic("flowgraph: node ID cannot contain whitespace")
	}

	if fn == nil {
		panic("flowgraph: node function cannot be nil")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.nodes[id]; exists {
		g.duplicates = append(g.duplicates, id)
		return g
	}

	def := nodeDef{fn: fn}
	for _, opt := range opts {
		opt(&def)
	}
	g.nodes[id] = def
	return g
}

// AddEdge adds an unconditional edge from one node to another.
// The target can be a node ID or flowgraph.END.
// Returns the graph for method chaining.
//
// Edge validation happens at Compile() time, not here.
// This allows edges to be added in any order.
func (g *Graph) AddEdge(from, to string) *Graph {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.edges[from] = append(g.edges[from], to)
	return g
}

// AddConditionalEdge adds a conditional edge: after from runs, decide is
// called on the updated state and its label is looked up in routes to find
// the successor. Route targets may be node IDs or flowgraph.END.
// Returns the graph for method chaining.
//
// A label missing from routes is a RoutingFault at run time. Decision
// functions that want a fallback must return a known label themselves.
//
// Panics if decide is nil.
func (g *Graph) AddConditionalEdge(from string, decide DecisionFunc, routes map[string]string) *Graph {
	if decide == nil {
		panic("flowgraph: decision function cannot be nil")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.conditionalEdges[from]; exists {
		g.duplicates = append(g.duplicates, fmt.Sprintf("conditional edge from %s", from))
	}
	g.conditionalEdges[from] = conditionalEdge{
		decide: decide,
		routes: maps.Clone(routes),
	}
	return g
}

// SetEntry designates the entry point node.
// This must be called before Compile().
// Returns the graph for method chaining.
//
// Entry point validation happens at Compile() time.
func (g *Graph) SetEntry(id string) *Graph {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.entryPoint = id
	return g
}
