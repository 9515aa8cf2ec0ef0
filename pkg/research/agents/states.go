// Package agents builds the research assistant's workflows on flowgraph.
// The Assistant routes each task to search, deep paper analysis or a
// direct reply; search and analysis results then go through the Improver.
package agents

import (
	"github.com/randalmurphal/researchflow/pkg/flowgraph"
)

// State field names shared by the workflows.
const (
	FieldTask           = "task"
	FieldNodeName       = "node_name"
	FieldNextNode       = "next_node"
	FieldContent        = "content"
	FieldRetrieved      = "retrieved_content"
	FieldPaperName      = "paper_name"
	FieldPaperURL       = "paper_url"
	FieldMetaData       = "meta_data"
	FieldFullPaper      = "full_paper"
	FieldReflection     = "reflection"
	FieldFinalOutput    = "final_output"
	FieldRevisionNumber = "revision_number"
	FieldMaxRevisions   = "max_revisions"
)

// Source kinds tagged on retrieved items.
const (
	SourceWeb      = "web_search"
	SourceSemantic = "semantic_retrieval"
)

// DefaultMaxRevisions bounds the Improver loop when not configured.
const DefaultMaxRevisions = 2

// RetrievedItem is one piece of material gathered by the search workflow.
// Error is set instead of the content fields when the lookup failed.
type RetrievedItem struct {
	Type    string `json:"type"`
	Query   string `json:"query,omitempty"`
	Title   string `json:"title,omitempty"`
	URL     string `json:"url,omitempty"`
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

// PaperInfo is the arXiv metadata resolved by the deep-analysis workflow.
type PaperInfo struct {
	PaperID     string `json:"paper_id,omitempty"`
	Title       string `json:"title,omitempty"`
	PublishDate string `json:"publish_date,omitempty"`
	Error       string `json:"error,omitempty"`
}

// SearchSchema is the state of the search workflow.
func SearchSchema() *flowgraph.Schema {
	return flowgraph.NewSchema(
		flowgraph.Field{Name: FieldTask, Default: ""},
		flowgraph.Field{Name: FieldNodeName, Default: ""},
		flowgraph.Field{Name: FieldNextNode, Default: ""},
		flowgraph.Field{Name: FieldContent, Default: []string{}},
		flowgraph.Field{Name: FieldRetrieved, Default: []RetrievedItem{}},
	)
}

// AnalysisSchema is the state of the deep-analysis workflow.
func AnalysisSchema() *flowgraph.Schema {
	return flowgraph.NewSchema(
		flowgraph.Field{Name: FieldTask, Default: ""},
		flowgraph.Field{Name: FieldNodeName, Default: ""},
		flowgraph.Field{Name: FieldNextNode, Default: ""},
		flowgraph.Field{Name: FieldPaperName, Default: ""},
		flowgraph.Field{Name: FieldPaperURL, Default: ""},
		flowgraph.Field{Name: FieldMetaData, Default: PaperInfo{}},
		flowgraph.Field{Name: FieldFullPaper, Default: ""},
		flowgraph.Field{Name: FieldContent, Default: []string{}},
	)
}

// ImproverSchema is the state of the reflect/revise loop. The revision
// counter starts at 1 and accumulates the increments nodes report.
func ImproverSchema() *flowgraph.Schema {
	return flowgraph.NewSchema(
		flowgraph.Field{Name: FieldTask, Default: ""},
		flowgraph.Field{Name: FieldNodeName, Default: ""},
		flowgraph.Field{Name: FieldContent, Default: []string{}},
		flowgraph.Field{Name: FieldReflection, Default: ""},
		flowgraph.Field{Name: FieldFinalOutput, Default: []string{}},
		flowgraph.Field{Name: FieldMaxRevisions, Default: DefaultMaxRevisions},
		flowgraph.Field{Name: FieldRevisionNumber, Default: 1, Reducer: flowgraph.AddInt},
	)
}

// MainSchema is the state of the orchestrator and of a stored session.
func MainSchema() *flowgraph.Schema {
	return flowgraph.NewSchema(
		flowgraph.Field{Name: FieldTask, Default: ""},
		flowgraph.Field{Name: FieldNodeName, Default: ""},
		flowgraph.Field{Name: FieldNextNode, Default: ""},
		flowgraph.Field{Name: FieldContent, Default: []string{}},
		flowgraph.Field{Name: FieldRetrieved, Default: []RetrievedItem{}},
		flowgraph.Field{Name: FieldPaperName, Default: ""},
		flowgraph.Field{Name: FieldPaperURL, Default: ""},
		flowgraph.Field{Name: FieldFinalOutput, Default: []string{}},
		flowgraph.Field{Name: FieldReflection, Default: ""},
		flowgraph.Field{Name: FieldRevisionNumber, Default: 0},
	)
}

// appendContent returns content plus entry without aliasing the state's slice.
func appendContent(s flowgraph.State, entry string) []string {
	prior := s.Strings(FieldContent)
	out := make([]string, 0, len(prior)+1)
	out = append(out, prior...)
	return append(out, entry)
}
