package agents

import (
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/randalmurphal/researchflow/pkg/flowgraph"
	"github.com/randalmurphal/researchflow/pkg/research/prompts"
)

// Deep-analysis workflow node ids.
const (
	NodePaperMetadata = "paper_metadata"
	NodeFetchURL      = "fetch_url"
	NodeAnalyze       = "analyze"
)

type analysisAgent struct {
	deps Deps
	opts options
}

// NewAnalysisGraph compiles the deep-analysis workflow:
//
//	paper_metadata -> {fetch_url -> analyze | analyze} -> END
//
// paper_metadata jumps straight to analyze when the request already
// carries a URL; otherwise its conditional edge sends control to fetch_url.
func NewAnalysisGraph(deps Deps, opts ...Option) (*flowgraph.CompiledGraph, error) {
	if err := deps.validate(); err != nil {
		return nil, fmt.Errorf("analysis graph: %w", err)
	}
	a := &analysisAgent{deps: deps, opts: buildOptions(opts)}

	return flowgraph.NewGraph("deep_analysis", AnalysisSchema()).
		AddNode(NodePaperMetadata, a.paperMetadata, flowgraph.WithDestinations(NodeAnalyze)).
		AddNode(NodeFetchURL, a.fetchURL).
		AddNode(NodeAnalyze, a.analyze).
		AddConditionalEdge(NodePaperMetadata, analysisDecision, map[string]string{
			NodeFetchURL: NodeFetchURL,
			NodeAnalyze:  NodeAnalyze,
		}).
		AddEdge(NodeFetchURL, NodeAnalyze).
		AddEdge(NodeAnalyze, flowgraph.END).
		SetEntry(NodePaperMetadata).
		Compile()
}

func (a *analysisAgent) paperMetadata(ctx flowgraph.Context, s flowgraph.State) (flowgraph.Command, error) {
	var ref paperRef
	if err := askStructured(ctx, a.deps.Oracle, prompts.PaperMetadata, s.String(FieldTask), &ref); err != nil {
		return flowgraph.Command{}, err
	}

	update := flowgraph.State{
		FieldNodeName:  NodePaperMetadata,
		FieldPaperName: ref.PaperName,
		FieldPaperURL:  ref.PaperURL,
		FieldMetaData:  PaperInfo{},
	}
	if ref.PaperURL != "" {
		return flowgraph.Goto(NodeAnalyze, update), nil
	}
	return flowgraph.Update(update), nil
}

func analysisDecision(_ flowgraph.Context, s flowgraph.State) string {
	if s.String(FieldPaperURL) != "" {
		return NodeAnalyze
	}
	return NodeFetchURL
}

// fetchURL resolves the paper through arXiv, taking the top result.
// A failed or empty lookup leaves paper_url empty and records why.
func (a *analysisAgent) fetchURL(ctx flowgraph.Context, s flowgraph.State) (flowgraph.Command, error) {
	query := s.String(FieldPaperName)
	if query == "" {
		query = s.String(FieldTask)
	}

	update := flowgraph.State{FieldNodeName: NodeFetchURL}
	papers := a.deps.Papers.Search(ctx, query, 1, a.opts.sortBy)
	switch {
	case len(papers) == 0:
		update[FieldMetaData] = PaperInfo{Error: "no matching paper found"}
	case papers[0].Err != "":
		update[FieldMetaData] = PaperInfo{Error: papers[0].Err}
	default:
		p := papers[0]
		update[FieldPaperURL] = p.PDFURL
		update[FieldPaperName] = p.Title
		update[FieldMetaData] = PaperInfo{PaperID: p.PaperID, Title: p.Title, PublishDate: p.PublishDate}
	}

	if info := update[FieldMetaData].(PaperInfo); info.Error != "" {
		ctx.Logger().Warn("paper lookup failed",
			slog.String("query", query), slog.String("error", info.Error))
	}
	return flowgraph.Update(update), nil
}

// analyze degrades to an empty document when the fetch fails.
func (a *analysisAgent) analyze(ctx flowgraph.Context, s flowgraph.State) (flowgraph.Command, error) {
	url := s.String(FieldPaperURL)
	text, err := a.deps.Documents.Fetch(ctx, url)
	if err != nil {
		ctx.Logger().Warn("document fetch failed, continuing without full text",
			slog.String("url", url), slog.String("error", err.Error()))
		flowgraph.AddEvent(ctx, EventDocumentFailed,
			attribute.String("url", url), attribute.String("error", err.Error()))
		text = ""
	}

	user := s.String(FieldTask)
	if text != "" {
		user += "\n\n" + text
	}
	reply, err := a.deps.Oracle.Complete(ctx, prompts.DeepAnalysis, user)
	if err != nil {
		return flowgraph.Command{}, err
	}

	return flowgraph.Update(flowgraph.State{
		FieldNodeName:  NodeAnalyze,
		FieldFullPaper: text,
		FieldContent:   appendContent(s, reply),
	}), nil
}
