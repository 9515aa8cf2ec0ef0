package benchmarks

import (
	"testing"

	"github.com/randalmurphal/researchflow/pkg/flowgraph"
)

func benchSchema() *flowgraph.Schema {
	return flowgraph.NewSchema(
		flowgraph.Field{Name: "task", Default: ""},
		flowgraph.Field{Name: "value", Default: 0},
		flowgraph.Field{Name: "content", Default: []string{}},
		flowgraph.Field{Name: "steps", Default: 0, Reducer: flowgraph.AddInt},
	)
}

func noopNode(_ flowgraph.Context, _ flowgraph.State) (flowgraph.Command, error) {
	return flowgraph.Command{}, nil
}

func stepNode(_ flowgraph.Context, _ flowgraph.State) (flowgraph.Command, error) {
	return flowgraph.Update(flowgraph.State{"steps": 1}), nil
}

// BenchmarkNewGraph measures graph creation.
func BenchmarkNewGraph(b *testing.B) {
	schema := benchSchema()
	for i := 0; i < b.N; i++ {
		flowgraph.NewGraph("bench", schema)
	}
}

// BenchmarkAddNode_100 measures adding 100 nodes.
func BenchmarkAddNode_100(b *testing.B) {
	schema := benchSchema()
	for i := 0; i < b.N; i++ {
		g := flowgraph.NewGraph("bench", schema)
		for j := 0; j < 100; j++ {
			g.AddNode(nodeID(j), noopNode)
		}
	}
}

func BenchmarkCompile_Linear_10(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = buildLinearGraph(10).Compile()
	}
}

func BenchmarkCompile_Linear_100(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = buildLinearGraph(100).Compile()
	}
}

func BenchmarkCompile_Branching(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = buildBranchingGraph().Compile()
	}
}

func nodeID(n int) string {
	return string(rune('a'+n%26)) + string(rune('0'+n/26%10))
}

func buildLinearGraph(n int) *flowgraph.Graph {
	g := flowgraph.NewGraph("linear", benchSchema())
	for i := 0; i < n; i++ {
		g.AddNode(nodeID(i), stepNode)
	}
	for i := 0; i < n-1; i++ {
		g.AddEdge(nodeID(i), nodeID(i+1))
	}
	return g.AddEdge(nodeID(n-1), flowgraph.END).SetEntry(nodeID(0))
}

func buildBranchingGraph() *flowgraph.Graph {
	decide := func(_ flowgraph.Context, s flowgraph.State) string {
		if s.Int("value")%2 == 0 {
			return "even"
		}
		return "odd"
	}

	return flowgraph.NewGraph("branching", benchSchema()).
		AddNode("start", noopNode).
		AddNode("even", stepNode).
		AddNode("odd", stepNode).
		AddNode("merge", noopNode).
		AddConditionalEdge("start", decide, map[string]string{"even": "even", "odd": "odd"}).
		AddEdge("even", "merge").
		AddEdge("odd", "merge").
		AddEdge("merge", flowgraph.END).
		SetEntry("start")
}

// buildLoopGraph revisits one node until the accumulated step count hits n.
func buildLoopGraph(n int) *flowgraph.Graph {
	decide := func(_ flowgraph.Context, s flowgraph.State) string {
		if s.Int("steps") >= n {
			return "done"
		}
		return "loop"
	}

	return flowgraph.NewGraph("loop", benchSchema()).
		AddNode("loop", stepNode).
		AddNode("done", noopNode).
		AddConditionalEdge("loop", decide, map[string]string{"loop": "loop", "done": "done"}).
		AddEdge("done", flowgraph.END).
		SetEntry("loop")
}

func mustCompile(g *flowgraph.Graph) *flowgraph.CompiledGraph {
	compiled, err := g.Compile()
	if err != nil {
		panic(err)
	}
	return compiled
}
