// Package observability provides the logging, metrics and tracing hooks
// used by workflow runs.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
// Every Log helper accepts a nil logger and does nothing.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds run and node context to a logger.
//
// Example:
//
//	enriched := EnrichLogger(logger, "run-123", "classify", "llm")
//	enriched.Info("doing work") // includes run_id, node_id, node_kind
func EnrichLogger(logger *slog.Logger, runID, nodeID, kind string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("run_id", runID),
		slog.String("node_id", nodeID),
		slog.String("node_kind", kind),
	)
}

// LogRunStart logs the start of a workflow run.
func LogRunStart(logger *slog.Logger, runID, graphID string, nodeCount int) {
	if logger == nil {
		return
	}
	logger.Info("workflow run starting",
		slog.String("run_id", runID),
		slog.String("graph_id", graphID),
		slog.Int("nodes", nodeCount),
	)
}

// LogRunComplete logs successful run completion.
func LogRunComplete(logger *slog.Logger, runID string, duration time.Duration, succeeded, skipped int) {
	if logger == nil {
		return
	}
	logger.Info("workflow run completed",
		slog.String("run_id", runID),
		slog.Float64("duration_ms", ms(duration)),
		slog.Int("nodes_succeeded", succeeded),
		slog.Int("nodes_skipped", skipped),
	)
}

// LogRunFailed logs a doomed run.
func LogRunFailed(logger *slog.Logger, runID, failingNodeID string, err error, duration time.Duration) {
	if logger == nil {
		return
	}
	logger.Error("workflow run failed",
		slog.String("run_id", runID),
		slog.String("failing_node", failingNodeID),
		slog.String("error", errString(err)),
		slog.Float64("duration_ms", ms(duration)),
	)
}

// LogRunCancelled logs a run that stopped dispatching because it was
// cancelled.
func LogRunCancelled(logger *slog.Logger, runID string, notDispatched int, duration time.Duration) {
	if logger == nil {
		return
	}
	logger.Warn("workflow run cancelled",
		slog.String("run_id", runID),
		slog.Int("nodes_not_dispatched", notDispatched),
		slog.Float64("duration_ms", ms(duration)),
	)
}

// LogNodeStart logs node execution start.
func LogNodeStart(logger *slog.Logger, nodeID, kind string) {
	if logger == nil {
		return
	}
	logger.Debug("node starting",
		slog.String("node_id", nodeID),
		slog.String("node_kind", kind),
	)
}

// LogNodeComplete logs successful node completion.
func LogNodeComplete(logger *slog.Logger, nodeID, kind string, duration time.Duration) {
	if logger == nil {
		return
	}
	logger.Debug("node completed",
		slog.String("node_id", nodeID),
		slog.String("node_kind", kind),
		slog.Float64("duration_ms", ms(duration)),
	)
}

// LogNodeError logs node execution failure.
func LogNodeError(logger *slog.Logger, nodeID, kind string, err error) {
	if logger == nil {
		return
	}
	logger.Error("node failed",
		slog.String("node_id", nodeID),
		slog.String("node_kind", kind),
		slog.String("error", errString(err)),
	)
}

// LogNodeSkipped logs a node pruned from the run.
func LogNodeSkipped(logger *slog.Logger, nodeID, reason string) {
	if logger == nil {
		return
	}
	logger.Debug("node skipped",
		slog.String("node_id", nodeID),
		slog.String("reason", reason),
	)
}

// LogBranchSelected logs the branch a condition node chose.
func LogBranchSelected(logger *slog.Logger, nodeID, port string) {
	if logger == nil {
		return
	}
	logger.Debug("branch selected",
		slog.String("node_id", nodeID),
		slog.String("port", port),
	)
}

// LogRunStored logs a run result saved to a run store.
func LogRunStored(logger *slog.Logger, runID string, sizeBytes int) {
	if logger == nil {
		return
	}
	logger.Debug("run result stored",
		slog.String("run_id", runID),
		slog.Int("size_bytes", sizeBytes),
	)
}

// LogRunStoreError logs a run store failure. Store failures never change
// a run's outcome.
func LogRunStoreError(logger *slog.Logger, runID string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("run store failed",
		slog.String("run_id", runID),
		slog.String("error", errString(err)),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time.
//
// Example:
//
//	done := TimedOperation()
//	// ... do work ...
//	elapsed := done()
func TimedOperation() func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		return time.Since(start)
	}
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
