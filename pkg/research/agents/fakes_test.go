package agents

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/researchflow/pkg/flowgraph"
	"github.com/randalmurphal/researchflow/pkg/research/oracle"
	"github.com/randalmurphal/researchflow/pkg/research/tools"
)

type fakeWeb struct {
	mu      sync.Mutex
	results []tools.WebResult
	queries []string
	maxes   []int
}

func (f *fakeWeb) Search(_ context.Context, query string, max int) []tools.WebResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	f.maxes = append(f.maxes, max)
	return f.results
}

type fakePapers struct {
	papers  []tools.Paper
	queries []string
}

func (f *fakePapers) Search(_ context.Context, query string, _ int, _ string) []tools.Paper {
	f.queries = append(f.queries, query)
	return f.papers
}

type fakeDocs struct {
	text string
	err  error
	urls []string
}

func (f *fakeDocs) Fetch(_ context.Context, url string) (string, error) {
	f.urls = append(f.urls, url)
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type fakePassages struct {
	passages []tools.Passage
	err      error
}

func (f *fakePassages) Query(_ context.Context, _ string, _ int) ([]tools.Passage, error) {
	return f.passages, f.err
}

var errFetch = errors.New("connection refused")

// fixture bundles a scripted oracle with fake tools.
type fixture struct {
	oracle   *oracle.Mock
	web      *fakeWeb
	papers   *fakePapers
	docs     *fakeDocs
	passages *fakePassages
}

func newFixture() *fixture {
	return &fixture{
		oracle:   oracle.NewMock("ok"),
		web:      &fakeWeb{},
		papers:   &fakePapers{},
		docs:     &fakeDocs{text: "full text"},
		passages: &fakePassages{},
	}
}

func (f *fixture) deps() Deps {
	return Deps{
		Oracle:    f.oracle,
		Web:       f.web,
		Papers:    f.papers,
		Documents: f.docs,
		Passages:  f.passages,
	}
}

func testContext() flowgraph.Context {
	return flowgraph.NewContext(context.Background())
}

// runTraced runs g and returns the terminal state and the visited nodes.
func runTraced(t *testing.T, g *flowgraph.CompiledGraph, input flowgraph.State) (flowgraph.State, []string) {
	t.Helper()
	var visited []string
	out, err := g.Run(testContext(), input, flowgraph.WithStepHook(func(s flowgraph.Step) {
		visited = append(visited, s.NodeID)
	}))
	require.NoError(t, err)
	return out, visited
}
