package agents

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/randalmurphal/researchflow/pkg/flowgraph"
	"github.com/randalmurphal/researchflow/pkg/research/oracle"
)

// mainRoute is the orchestrator's classification.
type mainRoute struct {
	NextNode string `json:"next_node"`
}

func (mainRoute) Format() string {
	return `{"next_node": "search_agent" | "deep_analysis_agent" | "chat"}`
}

// searchRoute is the search workflow's classification.
type searchRoute struct {
	NextNode string `json:"next_node"`
}

func (searchRoute) Format() string {
	return `{"next_node": "web_search" | "vector_store"}`
}

// QueryPlan is the oracle's expansion of a task into search queries.
type QueryPlan struct {
	Queries    []string `json:"query"`
	MaxResults int      `json:"max_results"`
}

func (QueryPlan) Format() string {
	return `{"query": ["<search query>", ...], "max_results": <results per query, default 3>}`
}

// normalize applies the defaults and bounds: no usable query means the
// task itself, and max_results falls back to def and is capped at limit.
func (p QueryPlan) normalize(task string, def, limit int) QueryPlan {
	out := QueryPlan{MaxResults: p.MaxResults}
	for _, q := range p.Queries {
		if q = strings.TrimSpace(q); q != "" {
			out.Queries = append(out.Queries, q)
		}
	}
	if len(out.Queries) == 0 {
		out.Queries = []string{task}
	}
	if out.MaxResults <= 0 {
		out.MaxResults = def
	}
	if out.MaxResults > limit {
		out.MaxResults = limit
	}
	return out
}

// paperRef is what the oracle extracts from a deep-analysis request.
type paperRef struct {
	PaperURL  string `json:"paper_url"`
	PaperName string `json:"paper_name"`
}

func (paperRef) Format() string {
	return `{"paper_name": "<title or empty>", "paper_url": "<url or empty>"}`
}

// askStructured treats undecodable output as an empty answer, which the
// callers turn into their fallback. Transport errors propagate.
func askStructured(ctx flowgraph.Context, o oracle.Oracle, system, user string, out oracle.Structured) error {
	err := o.CompleteStructured(ctx, system, user, out)
	if errors.Is(err, oracle.ErrMalformedOutput) {
		ctx.Logger().Warn("oracle returned malformed structured output",
			slog.String("error", err.Error()))
		return nil
	}
	return err
}
