package flowgraph

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/randalmurphal/researchflow/pkg/flowgraph/observability"
)

// Context provides execution context to nodes.
// It extends context.Context with flowgraph-specific services and metadata.
//
// Context is immutable after creation. The executor creates derived contexts
// for each graph run and each node with updated metadata and an enriched
// logger. A sub-graph run started from a node's Context inherits its logger,
// run id, metrics and tracing.
type Context interface {
	context.Context

	// Logger returns the configured logger, enriched with run, graph and node context.
	// Never returns nil - defaults to slog.Default() if not configured.
	Logger() *slog.Logger

	// RunID returns the unique identifier for this execution run.
	// Auto-generated if not configured.
	RunID() string

	// Graph returns the name of the graph currently executing.
	// Empty string outside Run.
	Graph() string

	// NodeID returns the current node being executed.
	// Empty string outside a node.
	NodeID() string
}

// executionContext is the internal implementation of Context.
type executionContext struct {
	context.Context

	base    *slog.Logger
	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager
	runID   string
	graph   string
	nodeID  string
}

// Logger returns the configured logger.
func (c *executionContext) Logger() *slog.Logger {
	return c.logger
}

// RunID returns the run identifier.
func (c *executionContext) RunID() string {
	return c.runID
}

// Graph returns the graph name.
func (c *executionContext) Graph() string {
	return c.graph
}

// NodeID returns the current node identifier.
func (c *executionContext) NodeID() string {
	return c.nodeID
}

// ContextOption configures a Context.
type ContextOption func(*executionContext)

// WithLogger sets the logger for the context.
// The logger will be enriched with run_id, graph and node_id during execution.
func WithLogger(logger *slog.Logger) ContextOption {
	return func(c *executionContext) {
		if logger != nil {
			c.base = logger
		}
	}
}

// WithContextRunID sets the run identifier for the context.
// If not set, a UUID will be auto-generated.
func WithContextRunID(id string) ContextOption {
	return func(c *executionContext) {
		if id != "" {
			c.runID = id
		}
	}
}

// WithMetrics sets the metrics recorder. Defaults to a no-op recorder.
func WithMetrics(m observability.MetricsRecorder) ContextOption {
	return func(c *executionContext) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithTracing sets the span manager. Defaults to a no-op span manager.
func WithTracing(s observability.SpanManager) ContextOption {
	return func(c *executionContext) {
		if s != nil {
			c.spans = s
		}
	}
}

// NewContext creates an execution context from a standard context.
// The returned Context wraps the provided context.Context and adds
// flowgraph-specific services and metadata.
//
// Example:
//
//	ctx := flowgraph.NewContext(context.Background(),
//	    flowgraph.WithLogger(myLogger),
//	    flowgraph.WithContextRunID("run-123"))
func NewContext(ctx context.Context, opts ...ContextOption) Context {
	ec := &executionContext{
		Context: ctx,
		base:    slog.Default(),
		metrics: observability.NoopMetrics{},
		spans:   observability.NoopSpanManager{},
		runID:   uuid.New().String(),
	}

	for _, opt := range opts {
		opt(ec)
	}
	ec.logger = ec.base.With("run_id", ec.runID)

	return ec
}

// asExecutionContext adapts any Context to the internal implementation.
// Foreign implementations keep their logger and run id.
func asExecutionContext(ctx Context) *executionContext {
	if ec, ok := ctx.(*executionContext); ok {
		return ec
	}
	return NewContext(ctx, WithLogger(ctx.Logger()), WithContextRunID(ctx.RunID())).(*executionContext)
}

// forGraph returns a derived context for a run of the named graph.
// inner carries the run span.
func (c *executionContext) forGraph(inner context.Context, graph string) *executionContext {
	return &executionContext{
		Context: inner,
		base:    c.base,
		logger:  observability.EnrichLogger(c.base, c.runID, graph, ""),
		metrics: c.metrics,
		spans:   c.spans,
		runID:   c.runID,
		graph:   graph,
	}
}

// withNodeID returns a derived context for one node execution.
// inner carries the node span, so nested runs open child spans.
func (c *executionContext) withNodeID(inner context.Context, nodeID string) *executionContext {
	return &executionContext{
		Context: inner,
		base:    c.base,
		logger:  observability.EnrichLogger(c.base, c.runID, c.graph, nodeID),
		metrics: c.metrics,
		spans:   c.spans,
		runID:   c.runID,
		graph:   c.graph,
		nodeID:  nodeID,
	}
}

// AddEvent records a named event on the span of the node running under ctx.
// It does nothing when tracing is off or ctx did not come from Run.
func AddEvent(ctx Context, name string, attrs ...attribute.KeyValue) {
	if ec, ok := ctx.(*executionContext); ok {
		ec.spans.AddSpanEvent(ec, name, attrs...)
	}
}
