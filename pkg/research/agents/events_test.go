package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/randalmurphal/researchflow/pkg/flowgraph"
	"github.com/randalmurphal/researchflow/pkg/flowgraph/observability"
	"github.com/randalmurphal/researchflow/pkg/research/prompts"
	"github.com/randalmurphal/researchflow/pkg/research/tools"
)

// tracedContext returns a run context whose spans land in the returned exporter.
func tracedContext(t *testing.T) (flowgraph.Context, *tracetest.InMemoryExporter) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	ctx := flowgraph.NewContext(context.Background(),
		flowgraph.WithTracing(observability.NewSpanManagerWithProvider(tp)))
	return ctx, exporter
}

// nodeEvents returns the events recorded on the span of nodeID.
func nodeEvents(t *testing.T, exporter *tracetest.InMemoryExporter, nodeID string) []sdktrace.Event {
	t.Helper()
	for _, s := range exporter.GetSpans() {
		if s.Name == "flowgraph.node."+nodeID {
			return s.Events
		}
	}
	t.Fatalf("no span for node %s", nodeID)
	return nil
}

func eventAttr(e sdktrace.Event, key string) string {
	for _, kv := range e.Attributes {
		if kv.Key == attribute.Key(key) {
			return kv.Value.AsString()
		}
	}
	return ""
}

func TestEvents_MainRouterFallback(t *testing.T) {
	f := newFixture()
	f.oracle.On(prompts.MainRouter, `{"next_node": "weather"}`)
	f.oracle.On(prompts.Chat, "hello")

	a, err := NewAssistant(f.deps())
	require.NoError(t, err)

	ctx, exporter := tracedContext(t)
	_, err = a.Run(ctx, flowgraph.State{FieldTask: "hi"})
	require.NoError(t, err)

	events := nodeEvents(t, exporter, NodeMainRouter)
	require.Len(t, events, 1)
	assert.Equal(t, EventRouterFallback, events[0].Name)
	assert.Equal(t, "weather", eventAttr(events[0], "label"))
	assert.Equal(t, NodeChat, eventAttr(events[0], "target"))
}

func TestEvents_SearchDegradedPaths(t *testing.T) {
	f := newFixture()
	f.oracle.On(prompts.SearchRouter, `{"next_node": "archive"}`)
	f.web.results = []tools.WebResult{{Err: "rate limited"}}

	g, err := NewSearchGraph(f.deps())
	require.NoError(t, err)

	ctx, exporter := tracedContext(t)
	_, err = g.Run(ctx, flowgraph.State{FieldTask: "task"})
	require.NoError(t, err)

	routed := nodeEvents(t, exporter, NodeSearchRouter)
	require.Len(t, routed, 1)
	assert.Equal(t, EventRouterFallback, routed[0].Name)
	assert.Equal(t, labelWebSearch, eventAttr(routed[0], "target"))

	failed := nodeEvents(t, exporter, NodeWebSearch)
	require.Len(t, failed, 1)
	assert.Equal(t, EventToolError, failed[0].Name)
	assert.Equal(t, SourceWeb, eventAttr(failed[0], "source"))
	assert.Equal(t, "rate limited", eventAttr(failed[0], "error"))
}

func TestEvents_SemanticFailure(t *testing.T) {
	f := newFixture()
	f.oracle.On(prompts.SearchRouter, `{"next_node": "vector_store"}`)
	deps := f.deps()
	deps.Passages = nil

	g, err := NewSearchGraph(deps)
	require.NoError(t, err)

	ctx, exporter := tracedContext(t)
	_, err = g.Run(ctx, flowgraph.State{FieldTask: "task"})
	require.NoError(t, err)

	assert.Empty(t, nodeEvents(t, exporter, NodeSearchRouter))
	events := nodeEvents(t, exporter, NodeSemantic)
	require.Len(t, events, 1)
	assert.Equal(t, EventToolError, events[0].Name)
	assert.Equal(t, SourceSemantic, eventAttr(events[0], "source"))
}

func TestEvents_DocumentFetchFailure(t *testing.T) {
	f := newFixture()
	f.oracle.On(prompts.PaperMetadata, `{"paper_url": "https://arxiv.org/abs/2401.00001"}`)
	f.docs.err = errFetch

	g, err := NewAnalysisGraph(f.deps())
	require.NoError(t, err)

	ctx, exporter := tracedContext(t)
	_, err = g.Run(ctx, flowgraph.State{FieldTask: "analyse it"})
	require.NoError(t, err)

	events := nodeEvents(t, exporter, NodeAnalyze)
	require.Len(t, events, 1)
	assert.Equal(t, EventDocumentFailed, events[0].Name)
	assert.Equal(t, "https://arxiv.org/abs/2401.00001", eventAttr(events[0], "url"))
}

func TestAddEvent_OutsideRunIsNoop(t *testing.T) {
	assert.NotPanics(t, func() {
		flowgraph.AddEvent(testContext(), EventToolError)
	})
}
