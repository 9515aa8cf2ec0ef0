package agents

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/randalmurphal/researchflow/pkg/flowgraph"
	"github.com/randalmurphal/researchflow/pkg/research/prompts"
)

// Search workflow node ids and router labels.
const (
	NodeSearchRouter = "router"
	NodeWebSearch    = "web_search"
	NodeSemantic     = "semantic_retrieval"
	NodeGenerator    = "generator"

	labelWebSearch   = "web_search"
	labelVectorStore = "vector_store"

	errNoRetriever = "semantic retrieval is not configured"
)

type searchAgent struct {
	deps Deps
	opts options
}

// NewSearchGraph compiles the search workflow:
//
//	router -> {web_search | semantic_retrieval} -> generator -> END
func NewSearchGraph(deps Deps, opts ...Option) (*flowgraph.CompiledGraph, error) {
	if err := deps.validate(); err != nil {
		return nil, fmt.Errorf("search graph: %w", err)
	}
	a := &searchAgent{deps: deps, opts: buildOptions(opts)}

	return flowgraph.NewGraph("search", SearchSchema()).
		AddNode(NodeSearchRouter, a.route).
		AddNode(NodeWebSearch, a.webSearch).
		AddNode(NodeSemantic, a.semanticRetrieval).
		AddNode(NodeGenerator, a.generate).
		AddConditionalEdge(NodeSearchRouter, searchDecision, map[string]string{
			labelWebSearch:   NodeWebSearch,
			labelVectorStore: NodeSemantic,
		}).
		AddEdge(NodeWebSearch, NodeGenerator).
		AddEdge(NodeSemantic, NodeGenerator).
		AddEdge(NodeGenerator, flowgraph.END).
		SetEntry(NodeSearchRouter).
		Compile()
}

func (a *searchAgent) route(ctx flowgraph.Context, s flowgraph.State) (flowgraph.Command, error) {
	var r searchRoute
	if err := askStructured(ctx, a.deps.Oracle, prompts.SearchRouter, s.String(FieldTask), &r); err != nil {
		return flowgraph.Command{}, err
	}
	return flowgraph.Update(flowgraph.State{
		FieldNodeName: NodeSearchRouter,
		FieldNextNode: r.NextNode,
	}), nil
}

// searchDecision falls back to web search for anything unclassifiable.
func searchDecision(ctx flowgraph.Context, s flowgraph.State) string {
	switch label := s.String(FieldNextNode); label {
	case labelWebSearch, labelVectorStore:
		return label
	default:
		ctx.Logger().Warn("search router label not recognized, using web search",
			slog.String("label", label))
		routerFallback(ctx, label, labelWebSearch)
		return labelWebSearch
	}
}

func (a *searchAgent) plan(ctx flowgraph.Context, task string) (QueryPlan, error) {
	var p QueryPlan
	if err := askStructured(ctx, a.deps.Oracle, prompts.QueryPlan, task, &p); err != nil {
		return QueryPlan{}, err
	}
	return p.normalize(task, a.opts.defaultMaxResults, a.opts.maxResultsCap), nil
}

func (a *searchAgent) webSearch(ctx flowgraph.Context, s flowgraph.State) (flowgraph.Command, error) {
	plan, err := a.plan(ctx, s.String(FieldTask))
	if err != nil {
		return flowgraph.Command{}, err
	}

	var items []RetrievedItem
	for _, q := range plan.Queries {
		for _, r := range a.deps.Web.Search(ctx, q, plan.MaxResults) {
			if r.Err != "" {
				ctx.Logger().Warn("web search returned an error item",
					slog.String("query", q), slog.String("error", r.Err))
				toolError(ctx, SourceWeb, q, r.Err)
				items = append(items, RetrievedItem{Type: SourceWeb, Query: q, Error: r.Err})
				continue
			}
			items = append(items, RetrievedItem{
				Type:    SourceWeb,
				Query:   q,
				Title:   r.Title,
				URL:     r.URL,
				Content: r.Content,
			})
		}
	}

	return flowgraph.Update(flowgraph.State{
		FieldNodeName:  NodeWebSearch,
		FieldRetrieved: nonNil(items),
	}), nil
}

func (a *searchAgent) semanticRetrieval(ctx flowgraph.Context, s flowgraph.State) (flowgraph.Command, error) {
	plan, err := a.plan(ctx, s.String(FieldTask))
	if err != nil {
		return flowgraph.Command{}, err
	}

	var items []RetrievedItem
	for _, q := range plan.Queries {
		if a.deps.Passages == nil {
			toolError(ctx, SourceSemantic, q, errNoRetriever)
			items = append(items, RetrievedItem{Type: SourceSemantic, Query: q, Error: errNoRetriever})
			continue
		}
		passages, err := a.deps.Passages.Query(ctx, q, plan.MaxResults)
		if err != nil {
			ctx.Logger().Warn("semantic retrieval failed",
				slog.String("query", q), slog.String("error", err.Error()))
			toolError(ctx, SourceSemantic, q, err.Error())
			items = append(items, RetrievedItem{Type: SourceSemantic, Query: q, Error: err.Error()})
			continue
		}
		for _, p := range passages {
			items = append(items, RetrievedItem{Type: SourceSemantic, Query: q, Content: p.Content})
		}
	}

	return flowgraph.Update(flowgraph.State{
		FieldNodeName:  NodeSemantic,
		FieldRetrieved: nonNil(items),
	}), nil
}

func (a *searchAgent) generate(ctx flowgraph.Context, s flowgraph.State) (flowgraph.Command, error) {
	items := flowgraph.Get[[]RetrievedItem](s, FieldRetrieved)
	user := s.String(FieldTask)
	if block := FormatRetrieved(items); block != "" {
		user += "\n\n" + block
	}

	reply, err := a.deps.Oracle.Complete(ctx, prompts.Generator, user)
	if err != nil {
		return flowgraph.Command{}, err
	}
	return flowgraph.Update(flowgraph.State{
		FieldNodeName: NodeGenerator,
		FieldContent:  appendContent(s, reply),
	}), nil
}

// FormatRetrieved renders retrieved items for a prompt: web items as
// title/url/content, semantic items as bare content, failures as
// "error: ...". Items are separated by blank lines.
func FormatRetrieved(items []RetrievedItem) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		switch {
		case it.Error != "":
			parts = append(parts, "error: "+it.Error)
		case it.Type == SourceWeb:
			parts = append(parts, fmt.Sprintf("title: %s\nurl: %s\ncontent: %s", it.Title, it.URL, it.Content))
		default:
			parts = append(parts, "content: "+it.Content)
		}
	}
	return strings.Join(parts, "\n\n")
}

func nonNil(items []RetrievedItem) []RetrievedItem {
	if items == nil {
		return []RetrievedItem{}
	}
	return items
}
