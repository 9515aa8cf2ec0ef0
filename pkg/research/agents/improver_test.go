package agents

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/researchflow/pkg/flowgraph"
	"github.com/randalmurphal/researchflow/pkg/research/prompts"
)

func TestImproverGraph_RunsConfiguredCycles(t *testing.T) {
	for _, cycles := range []int{1, 2, 3, 5} {
		t.Run(fmt.Sprintf("max=%d", cycles), func(t *testing.T) {
			f := newFixture()
			f.oracle.On(prompts.Reflection, "critique")
			f.oracle.On(prompts.Improver, "revised")

			g, err := NewImproverGraph(f.deps())
			require.NoError(t, err)

			out, visited := runTraced(t, g, flowgraph.State{
				FieldTask:         "task",
				FieldContent:      []string{"draft"},
				FieldMaxRevisions: cycles,
			})

			assert.Equal(t, cycles, f.oracle.CallCount(prompts.Reflection))
			assert.Equal(t, cycles, f.oracle.CallCount(prompts.Improver))
			assert.Equal(t, 1+2*cycles, out.Int(FieldRevisionNumber))
			assert.Len(t, visited, 2*cycles+1)
			assert.Equal(t, NodeFinal, visited[len(visited)-1])
			assert.Len(t, out.Strings(FieldFinalOutput), 1+cycles)
			assert.Equal(t, "critique", out.String(FieldReflection))
		})
	}
}

func TestImproverGraph_DefaultIsTwoCycles(t *testing.T) {
	f := newFixture()
	g, err := NewImproverGraph(f.deps())
	require.NoError(t, err)

	out, _ := runTraced(t, g, flowgraph.State{FieldTask: "task"})

	assert.Equal(t, 5, out.Int(FieldRevisionNumber))
	assert.Equal(t, []string{"ok", "ok"}, out.Strings(FieldFinalOutput))
}

func TestImproverGraph_TerminatesRegardlessOfOutput(t *testing.T) {
	// Replies that look like routing or stop words must not affect the loop.
	f := newFixture()
	f.oracle.On(prompts.Reflection, `{"next_node": "reflect"}`, "", "STOP")
	f.oracle.On(prompts.Improver, "", "again")

	g, err := NewImproverGraph(f.deps())
	require.NoError(t, err)

	_, err = g.Run(testContext(), flowgraph.State{FieldMaxRevisions: 2},
		flowgraph.WithMaxIterations(2*(2+1)))
	require.NoError(t, err)
	assert.Equal(t, 2, f.oracle.CallCount(prompts.Reflection))
}

func TestImproverDecision(t *testing.T) {
	ctx := testContext()
	tests := []struct {
		rev, max int
		want     string
	}{
		{3, 2, NodeReflect},
		{5, 2, NodeFinal},
		{3, 1, NodeFinal},
		{5, 3, NodeReflect},
		{7, 3, NodeFinal},
		{9, 3, NodeFinal},
	}
	for _, tt := range tests {
		s := flowgraph.State{FieldRevisionNumber: tt.rev, FieldMaxRevisions: tt.max}
		assert.Equal(t, tt.want, improverDecision(ctx, s), "rev=%d max=%d", tt.rev, tt.max)
	}
}
