package agents

import (
	"go.opentelemetry.io/otel/attribute"

	"github.com/randalmurphal/researchflow/pkg/flowgraph"
)

// Span events marking a degraded path that did not fail the run.
const (
	EventRouterFallback = "router.fallback"
	EventToolError      = "tool.error"
	EventDocumentFailed = "document.fetch_failed"
)

func routerFallback(ctx flowgraph.Context, label, target string) {
	flowgraph.AddEvent(ctx, EventRouterFallback,
		attribute.String("label", label),
		attribute.String("target", target))
}

func toolError(ctx flowgraph.Context, source, query, msg string) {
	flowgraph.AddEvent(ctx, EventToolError,
		attribute.String("source", source),
		attribute.String("query", query),
		attribute.String("error", msg))
}
