package flowgraph

import (
	"fmt"
	"maps"
	"slices"
)

// Compile validates the graph and creates an executable CompiledGraph.
// All problems found are reported together in a *GraphDefinitionError.
//
// Validation checks:
//  1. Entry point must be set and reference an existing node
//  2. Node ids must be unique
//  3. Edge, route and goto-destination targets must be nodes or END
//  4. A node picks its successor one way: one unconditional edge or one
//     conditional edge, plus any declared goto destinations
//  5. Every node must be reachable from the entry point
//  6. Every reachable node must have a path to END
func (g *Graph) Compile() (*CompiledGraph, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var errs []error
	addErr := func(sentinel error, format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...)))
	}

	if g.entryPoint == "" {
		errs = append(errs, ErrNoEntryPoint)
	} else if _, exists := g.nodes[g.entryPoint]; !exists {
		addErr(ErrEntryNotFound, "%s", g.entryPoint)
	}

	for _, id := range g.duplicates {
		addErr(ErrDuplicateNode, "%s", id)
	}

	known := func(id string) bool {
		if id == END {
			return true
		}
		_, ok := g.nodes[id]
		return ok
	}

	for _, from := range sortedKeys(g.edges) {
		if !known(from) || from == END {
			addErr(ErrNodeNotFound, "edge source '%s' does not exist", from)
		}
		for _, to := range g.edges[from] {
			if !known(to) {
				addErr(ErrNodeNotFound, "edge target '%s' does not exist", to)
			}
		}
		if len(g.edges[from]) > 1 {
			addErr(ErrConflictingEdges, "node '%s' has %d unconditional edges", from, len(g.edges[from]))
		}
		if _, hasConditional := g.conditionalEdges[from]; hasConditional {
			addErr(ErrConflictingEdges, "node '%s' has both a conditional and an unconditional edge", from)
		}
	}

	for _, from := range sortedKeys(g.conditionalEdges) {
		if !known(from) || from == END {
			addErr(ErrNodeNotFound, "conditional edge source '%s' does not exist", from)
		}
		routes := g.conditionalEdges[from].routes
		if len(routes) == 0 {
			addErr(ErrEmptyRoutes, "from '%s'", from)
		}
		for _, label := range sortedKeys(routes) {
			if !known(routes[label]) {
				addErr(ErrNodeNotFound, "route '%s' from '%s' targets '%s'", label, from, routes[label])
			}
		}
	}

	for _, id := range sortedKeys(g.nodes) {
		def := g.nodes[id]
		for _, dest := range def.destinations {
			if !known(dest) {
				addErr(ErrNodeNotFound, "goto destination '%s' of '%s' does not exist", dest, id)
			}
		}
		_, hasEdge := g.edges[id]
		_, hasConditional := g.conditionalEdges[id]
		if !hasEdge && !hasConditional && len(def.destinations) == 0 {
			addErr(ErrNoOutgoingEdge, "node '%s'", id)
		}
	}

	if _, exists := g.nodes[g.entryPoint]; exists {
		successors := g.successorSets()
		reachable := reachableFrom(g.entryPoint, successors)
		canEnd := reachesEnd(successors)

		for _, id := range sortedKeys(g.nodes) {
			if !reachable[id] {
				addErr(ErrOrphanNode, "node '%s'", id)
				continue
			}
			if !canEnd[id] {
				addErr(ErrNoPathToEnd, "from node '%s'", id)
			}
		}
	}

	if len(errs) > 0 {
		return nil, &GraphDefinitionError{Graph: g.name, Problems: errs}
	}

	return g.buildCompiledGraph(), nil
}

// successorSets returns every possible successor of each node: its
// unconditional edge targets, its route table targets and its declared
// goto destinations.
func (g *Graph) successorSets() map[string][]string {
	succ := make(map[string][]string, len(g.nodes))
	for id, def := range g.nodes {
		targets := slices.Clone(g.edges[id])
		if cond, ok := g.conditionalEdges[id]; ok {
			for _, label := range sortedKeys(cond.routes) {
				targets = append(targets, cond.routes[label])
			}
		}
		targets = append(targets, def.destinations...)
		succ[id] = targets
	}
	return succ
}

// reachableFrom returns the set of nodes reachable from start.
func reachableFrom(start string, succ map[string][]string) map[string]bool {
	reachable := map[string]bool{start: true}
	queue := []string{start}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, next := range succ[current] {
			if next != END && !reachable[next] {
				reachable[next] = true
				queue = append(queue, next)
			}
		}
	}

	return reachable
}

// reachesEnd returns the set of nodes with some path to END.
func reachesEnd(succ map[string][]string) map[string]bool {
	canReachEnd := map[string]bool{END: true}

	// Keep propagating until no changes
	changed := true
	for changed {
		changed = false
		for from, targets := range succ {
			if canReachEnd[from] {
				continue
			}
			for _, to := range targets {
				if canReachEnd[to] {
					canReachEnd[from] = true
					changed = true
					break
				}
			}
		}
	}

	return canReachEnd
}

// buildCompiledGraph creates the immutable CompiledGraph from the builder state.
func (g *Graph) buildCompiledGraph() *CompiledGraph {
	nodes := make(map[string]compiledNode, len(g.nodes))
	for id, def := range g.nodes {
		dests := make(map[string]bool, len(def.destinations))
		for _, d := range def.destinations {
			dests[d] = true
		}
		nodes[id] = compiledNode{fn: def.fn, destinations: dests}
	}

	edges := make(map[string]string, len(g.edges))
	for from, targets := range g.edges {
		edges[from] = targets[0]
	}

	conditionalEdges := make(map[string]conditionalEdge, len(g.conditionalEdges))
	for from, cond := range g.conditionalEdges {
		conditionalEdges[from] = conditionalEdge{decide: cond.decide, routes: maps.Clone(cond.routes)}
	}

	return &CompiledGraph{
		name:             g.name,
		schema:           g.schema,
		nodes:            nodes,
		edges:            edges,
		conditionalEdges: conditionalEdges,
		entryPoint:       g.entryPoint,
	}
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
