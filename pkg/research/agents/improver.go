package agents

import (
	"fmt"
	"strings"

	"github.com/randalmurphal/researchflow/pkg/flowgraph"
	"github.com/randalmurphal/researchflow/pkg/research/prompts"
)

// Improver workflow node ids.
const (
	NodeReflect  = "reflect"
	NodeImprover = "improver"
	NodeFinal    = "final"
)

type improverAgent struct {
	deps Deps
}

// NewImproverGraph compiles the bounded reflect/revise loop:
//
//	reflect -> improver -> {reflect | final} -> END
//
// Each reflect and each improver adds one to revision_number, which
// starts at 1, so after improver (revision_number-1)/2 cycles are done.
// The loop exits once max_revisions cycles have run.
func NewImproverGraph(deps Deps) (*flowgraph.CompiledGraph, error) {
	if deps.Oracle == nil {
		return nil, fmt.Errorf("improver graph: oracle is required")
	}
	a := &improverAgent{deps: deps}

	return flowgraph.NewGraph("improver", ImproverSchema()).
		AddNode(NodeReflect, a.reflect).
		AddNode(NodeImprover, a.improve).
		AddNode(NodeFinal, final).
		AddEdge(NodeReflect, NodeImprover).
		AddConditionalEdge(NodeImprover, improverDecision, map[string]string{
			NodeReflect: NodeReflect,
			NodeFinal:   NodeFinal,
		}).
		AddEdge(NodeFinal, flowgraph.END).
		SetEntry(NodeReflect).
		Compile()
}

func (a *improverAgent) reflect(ctx flowgraph.Context, s flowgraph.State) (flowgraph.Command, error) {
	user := s.String(FieldTask) + "\n\n" + strings.Join(s.Strings(FieldContent), "\n")
	critique, err := a.deps.Oracle.Complete(ctx, prompts.Reflection, user)
	if err != nil {
		return flowgraph.Command{}, err
	}
	return flowgraph.Update(flowgraph.State{
		FieldNodeName:       NodeReflect,
		FieldReflection:     critique,
		FieldRevisionNumber: 1,
	}), nil
}

func (a *improverAgent) improve(ctx flowgraph.Context, s flowgraph.State) (flowgraph.Command, error) {
	user := fmt.Sprintf("%s\n\nPrevious drafts:\n%s\n\nCritique:\n%s",
		s.String(FieldTask),
		strings.Join(s.Strings(FieldContent), "\n\n"),
		s.String(FieldReflection))
	revision, err := a.deps.Oracle.Complete(ctx, prompts.Improver, user)
	if err != nil {
		return flowgraph.Command{}, err
	}
	return flowgraph.Update(flowgraph.State{
		FieldNodeName:       NodeImprover,
		FieldContent:        appendContent(s, revision),
		FieldRevisionNumber: 1,
	}), nil
}

func improverDecision(_ flowgraph.Context, s flowgraph.State) string {
	completed := (s.Int(FieldRevisionNumber) - 1) / 2
	if completed+1 > s.Int(FieldMaxRevisions) {
		return NodeFinal
	}
	return NodeReflect
}

func final(_ flowgraph.Context, s flowgraph.State) (flowgraph.Command, error) {
	return flowgraph.Update(flowgraph.State{
		FieldNodeName:    NodeFinal,
		FieldFinalOutput: s.Strings(FieldContent),
		FieldReflection:  s.String(FieldReflection),
	}), nil
}
