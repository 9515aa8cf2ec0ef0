package agents

import (
	"context"
	"errors"

	"github.com/randalmurphal/researchflow/pkg/research/oracle"
	"github.com/randalmurphal/researchflow/pkg/research/tools"
)

// WebSearcher runs a web search. Failures come back in-band as a result
// with Err set.
type WebSearcher interface {
	Search(ctx context.Context, query string, max int) []tools.WebResult
}

// PaperSearcher looks up paper metadata. Failures come back in-band as a
// paper with Err set.
type PaperSearcher interface {
	Search(ctx context.Context, query string, max int, sortBy string) []tools.Paper
}

// DocumentLoader fetches and extracts the text of a document.
type DocumentLoader interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// PassageRetriever runs a similarity query against a prebuilt index.
type PassageRetriever interface {
	Query(ctx context.Context, text string, max int) ([]tools.Passage, error)
}

// Deps are the collaborators shared read-only by every workflow.
// Passages may be nil, in which case semantic retrieval reports an
// in-band error for each query.
type Deps struct {
	Oracle    oracle.Oracle
	Web       WebSearcher
	Papers    PaperSearcher
	Documents DocumentLoader
	Passages  PassageRetriever
}

func (d Deps) validate() error {
	var errs []error
	if d.Oracle == nil {
		errs = append(errs, errors.New("oracle is required"))
	}
	if d.Web == nil {
		errs = append(errs, errors.New("web searcher is required"))
	}
	if d.Papers == nil {
		errs = append(errs, errors.New("paper searcher is required"))
	}
	if d.Documents == nil {
		errs = append(errs, errors.New("document loader is required"))
	}
	return errors.Join(errs...)
}

// Option configures the workflows.
type Option func(*options)

type options struct {
	maxRevisions      int
	defaultMaxResults int
	maxResultsCap     int
	sortBy            string
}

func defaultOptions() options {
	return options{
		maxRevisions:      DefaultMaxRevisions,
		defaultMaxResults: 3,
		maxResultsCap:     10,
		sortBy:            tools.SortRelevance,
	}
}

// WithMaxRevisions sets how many reflect/revise cycles the Improver runs.
// Values below 1 are ignored.
func WithMaxRevisions(n int) Option {
	return func(o *options) {
		if n >= 1 {
			o.maxRevisions = n
		}
	}
}

// WithDefaultMaxResults sets the per-query result count used when the
// query plan does not give one.
func WithDefaultMaxResults(n int) Option {
	return func(o *options) {
		if n >= 1 {
			o.defaultMaxResults = n
		}
	}
}

// WithMaxResultsCap bounds the per-query result count a plan may ask for.
func WithMaxResultsCap(n int) Option {
	return func(o *options) {
		if n >= 1 {
			o.maxResultsCap = n
		}
	}
}

// WithSortBy sets the arXiv sort order used to resolve a paper by name.
func WithSortBy(sortBy string) Option {
	return func(o *options) {
		if tools.ValidSort(sortBy) {
			o.sortBy = sortBy
		}
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.defaultMaxResults > o.maxResultsCap {
		o.defaultMaxResults = o.maxResultsCap
	}
	return o
}
