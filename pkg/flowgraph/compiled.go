package flowgraph

import (
	"maps"
	"slices"
)

// CompiledGraph is an immutable, executable graph.
// It is created by calling Compile() on a Graph builder.
//
// CompiledGraph is thread-safe and can be used concurrently for multiple
// Run() calls. The graph structure cannot be modified after compilation.
//
// Use the introspection methods (NodeIDs, Successor, Routes, etc.) to examine
// the graph structure for debugging or visualization.
type CompiledGraph struct {
	name             string
	schema           *Schema
	nodes            map[string]compiledNode
	edges            map[string]string
	conditionalEdges map[string]conditionalEdge
	entryPoint       string
}

// compiledNode is a node with its goto destinations indexed.
type compiledNode struct {
	fn           NodeFunc
	destinations map[string]bool
}

// Name returns the graph name given to NewGraph.
func (cg *CompiledGraph) Name() string {
	return cg.name
}

// Schema returns the graph's state shape.
func (cg *CompiledGraph) Schema() *Schema {
	return cg.schema
}

// EntryPoint returns the entry node ID.
func (cg *CompiledGraph) EntryPoint() string {
	return cg.entryPoint
}

// NodeIDs returns all node identifiers in the graph, sorted.
func (cg *CompiledGraph) NodeIDs() []string {
	return slices.Sorted(maps.Keys(cg.nodes))
}

// HasNode checks if a node exists in the graph.
func (cg *CompiledGraph) HasNode(id string) bool {
	_, exists := cg.nodes[id]
	return exists
}

// Successor returns the target of the node's unconditional edge, or "" if
// the node has none.
func (cg *CompiledGraph) Successor(id string) string {
	return cg.edges[id]
}

// IsConditional returns true if the node has a conditional edge.
func (cg *CompiledGraph) IsConditional(id string) bool {
	_, ok := cg.conditionalEdges[id]
	return ok
}

// Routes returns a copy of the node's route table, or nil if the node has
// no conditional edge.
func (cg *CompiledGraph) Routes(id string) map[string]string {
	cond, ok := cg.conditionalEdges[id]
	if !ok {
		return nil
	}
	return maps.Clone(cond.routes)
}

// Destinations returns the node's declared goto targets, sorted.
func (cg *CompiledGraph) Destinations(id string) []string {
	n, ok := cg.nodes[id]
	if !ok {
		return nil
	}
	return slices.Sorted(maps.Keys(n.destinations))
}
