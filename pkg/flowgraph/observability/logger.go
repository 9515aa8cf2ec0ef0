// Package observability provides observability features for flowgraph:
// structured logging, metrics, and distributed tracing.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import "log/slog"

// EnrichLogger adds flowgraph context to a logger.
// Returns a new logger with run_id, graph, and (when set) node_id fields.
//
// Example:
//
//	enriched := EnrichLogger(logger, "run-123", "search", "web_search")
//	enriched.Info("doing work") // includes run_id, graph, node_id
func EnrichLogger(logger *slog.Logger, runID, graph, nodeID string) *slog.Logger {
	if logger == nil {
		return nil
	}
	attrs := []any{
		slog.String("run_id", runID),
		slog.String("graph", graph),
	}
	if nodeID != "" {
		attrs = append(attrs, slog.String("node_id", nodeID))
	}
	return logger.With(attrs...)
}

// LogRunStart logs the start of a graph run.
func LogRunStart(logger *slog.Logger, graph, runID string) {
	if logger == nil {
		return
	}
	logger.Info("graph run starting",
		slog.String("graph", graph),
		slog.String("run_id", runID),
	)
}

// LogRunComplete logs successful graph run completion.
func LogRunComplete(logger *slog.Logger, graph, runID string, durationMs float64, nodeCount int) {
	if logger == nil {
		return
	}
	logger.Info("graph run completed",
		slog.String("graph", graph),
		slog.String("run_id", runID),
		slog.Float64("duration_ms", durationMs),
		slog.Int("nodes_executed", nodeCount),
	)
}

// LogRunError logs graph run failure.
func LogRunError(logger *slog.Logger, graph, runID string, err error, durationMs float64, lastNode string) {
	if logger == nil {
		return
	}
	logger.Error("graph run failed",
		slog.String("graph", graph),
		slog.String("run_id", runID),
		slog.String("error", err.Error()),
		slog.Float64("duration_ms", durationMs),
		slog.String("last_node", lastNode),
	)
}

// LogNodeStart logs node execution start.
func LogNodeStart(logger *slog.Logger, nodeID string) {
	if logger == nil {
		return
	}
	logger.Debug("node starting",
		slog.String("node_id", nodeID),
	)
}

// LogNodeComplete logs successful node completion.
func LogNodeComplete(logger *slog.Logger, nodeID string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("node completed",
		slog.String("node_id", nodeID),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogNodeError logs node execution error.
func LogNodeError(logger *slog.Logger, nodeID string, err error) {
	if logger == nil {
		return
	}
	logger.Error("node failed",
		slog.String("node_id", nodeID),
		slog.String("error", err.Error()),
	)
}

// LogRouting logs the transition taken after a node.
// label is empty for unconditional edges and gotos.
func LogRouting(logger *slog.Logger, from, label, to string) {
	if logger == nil {
		return
	}
	logger.Debug("routing",
		slog.String("from", from),
		slog.String("label", label),
		slog.String("to", to),
	)
}

// LogCheckpoint logs a session snapshot save.
func LogCheckpoint(logger *slog.Logger, sessionID string, sizeBytes int) {
	if logger == nil {
		return
	}
	logger.Debug("checkpoint saved",
		slog.String("session_id", sessionID),
		slog.Int("size_bytes", sizeBytes),
	)
}

// LogCheckpointError logs a checkpoint failure.
func LogCheckpointError(logger *slog.Logger, sessionID string, op string, err error) {
	if logger == nil {
		return
	}
	logger.Error("checkpoint failed",
		slog.String("session_id", sessionID),
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
}
