package agents

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/randalmurphal/researchflow/pkg/flowgraph"
	"github.com/randalmurphal/researchflow/pkg/research/prompts"
)

// Orchestrator node ids. They double as the main router's labels.
const (
	NodeMainRouter    = "main_router"
	NodeSearchAgent   = "search_agent"
	NodeAnalysisAgent = "deep_analysis_agent"
	NodeImproverAgent = "improver_agent"
	NodeChat          = "chat"
)

// Assistant is the research assistant: a main graph routing each task to
// search, deep analysis or a direct chat reply, with the first two
// funnelled through the Improver loop.
//
// An Assistant is immutable once built and safe for concurrent runs on
// independent states.
type Assistant struct {
	deps     Deps
	opts     options
	main     *flowgraph.CompiledGraph
	search   *flowgraph.CompiledGraph
	analysis *flowgraph.CompiledGraph
	improver *flowgraph.CompiledGraph
}

// NewAssistant compiles the four workflows over shared collaborators.
func NewAssistant(deps Deps, opts ...Option) (*Assistant, error) {
	if err := deps.validate(); err != nil {
		return nil, fmt.Errorf("assistant: %w", err)
	}
	a := &Assistant{deps: deps, opts: buildOptions(opts)}

	var err error
	if a.search, err = NewSearchGraph(deps, opts...); err != nil {
		return nil, err
	}
	if a.analysis, err = NewAnalysisGraph(deps, opts...); err != nil {
		return nil, err
	}
	if a.improver, err = NewImproverGraph(deps); err != nil {
		return nil, err
	}
	if a.main, err = a.buildMain(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Assistant) buildMain() (*flowgraph.CompiledGraph, error) {
	return flowgraph.NewGraph("main", MainSchema()).
		AddNode(NodeMainRouter, a.route).
		AddNode(NodeSearchAgent, flowgraph.Subgraph(a.search,
			flowgraph.Fields(FieldTask, FieldContent),
			tagged(NodeSearchAgent, FieldContent, FieldRetrieved))).
		AddNode(NodeAnalysisAgent, flowgraph.Subgraph(a.analysis,
			flowgraph.Fields(FieldTask, FieldContent),
			tagged(NodeAnalysisAgent, FieldContent, FieldPaperName, FieldPaperURL))).
		AddNode(NodeImproverAgent, flowgraph.Subgraph(a.improver,
			a.improverInput,
			tagged(NodeImproverAgent, FieldFinalOutput, FieldReflection, FieldRevisionNumber))).
		AddNode(NodeChat, a.chat).
		AddConditionalEdge(NodeMainRouter, mainDecision, map[string]string{
			NodeSearchAgent:   NodeSearchAgent,
			NodeAnalysisAgent: NodeAnalysisAgent,
			NodeChat:          NodeChat,
		}).
		AddEdge(NodeSearchAgent, NodeImproverAgent).
		AddEdge(NodeAnalysisAgent, NodeImproverAgent).
		AddEdge(NodeImproverAgent, flowgraph.END).
		AddEdge(NodeChat, flowgraph.END).
		SetEntry(NodeMainRouter).
		Compile()
}

// Run executes one task against state, which may be a fresh input or a
// stored state carried forward. It returns the terminal main state.
func (a *Assistant) Run(ctx flowgraph.Context, state flowgraph.State, opts ...flowgraph.RunOption) (flowgraph.State, error) {
	return a.main.Run(ctx, state, opts...)
}

// Graph returns the compiled orchestrator.
func (a *Assistant) Graph() *flowgraph.CompiledGraph { return a.main }

// SearchGraph returns the compiled search workflow.
func (a *Assistant) SearchGraph() *flowgraph.CompiledGraph { return a.search }

// AnalysisGraph returns the compiled deep-analysis workflow.
func (a *Assistant) AnalysisGraph() *flowgraph.CompiledGraph { return a.analysis }

// ImproverGraph returns the compiled reflect/revise loop.
func (a *Assistant) ImproverGraph() *flowgraph.CompiledGraph { return a.improver }

// Schema returns the state shape of the orchestrator, which is also the
// shape of a stored session.
func (a *Assistant) Schema() *flowgraph.Schema { return a.main.Schema() }

func (a *Assistant) route(ctx flowgraph.Context, s flowgraph.State) (flowgraph.Command, error) {
	user := s.String(FieldTask)
	if prior := s.Strings(FieldContent); len(prior) > 0 {
		user += "\n\nConversation so far:\n" + strings.Join(prior, "\n")
	}

	var r mainRoute
	if err := askStructured(ctx, a.deps.Oracle, prompts.MainRouter, user, &r); err != nil {
		return flowgraph.Command{}, err
	}
	return flowgraph.Update(flowgraph.State{
		FieldNodeName: NodeMainRouter,
		FieldNextNode: r.NextNode,
	}), nil
}

// mainDecision coerces anything outside the known labels to chat.
func mainDecision(ctx flowgraph.Context, s flowgraph.State) string {
	switch label := s.String(FieldNextNode); label {
	case NodeSearchAgent, NodeAnalysisAgent, NodeChat:
		return label
	default:
		ctx.Logger().Warn("main router label not recognized, replying directly",
			slog.String("label", label))
		routerFallback(ctx, label, NodeChat)
		return NodeChat
	}
}

func (a *Assistant) improverInput(s flowgraph.State) flowgraph.State {
	return flowgraph.State{
		FieldTask:         s[FieldTask],
		FieldContent:      s[FieldContent],
		FieldMaxRevisions: a.opts.maxRevisions,
	}
}

func (a *Assistant) chat(ctx flowgraph.Context, s flowgraph.State) (flowgraph.Command, error) {
	var b strings.Builder
	b.WriteString(s.String(FieldTask))
	if prior := s.Strings(FieldContent); len(prior) > 0 {
		b.WriteString("\n\nConversation so far:\n")
		b.WriteString(strings.Join(prior, "\n"))
	}
	if block := FormatRetrieved(flowgraph.Get[[]RetrievedItem](s, FieldRetrieved)); block != "" {
		b.WriteString("\n\nPreviously retrieved:\n")
		b.WriteString(block)
	}

	reply, err := a.deps.Oracle.Complete(ctx, prompts.Chat, b.String())
	if err != nil {
		return flowgraph.Command{}, err
	}
	return flowgraph.Update(flowgraph.State{
		FieldNodeName:    NodeChat,
		FieldContent:     appendContent(s, reply),
		FieldFinalOutput: []string{reply},
		FieldReflection:  "",
	}), nil
}

// tagged copies the named fields out of a sub-graph result and records
// the embedding node as the parent's node_name.
func tagged(node string, names ...string) func(flowgraph.State) flowgraph.State {
	copyOut := flowgraph.Fields(names...)
	return func(s flowgraph.State) flowgraph.State {
		out := copyOut(s)
		out[FieldNodeName] = node
		return out
	}
}
