package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records workflow metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordNodeExecution records a dispatched node with its duration and
	// error status.
	RecordNodeExecution(ctx context.Context, nodeID, kind string, duration time.Duration, err error)

	// RecordNodeSkipped records a node pruned without running.
	RecordNodeSkipped(ctx context.Context, nodeID, kind string)

	// RecordRun records a run completion with its terminal status.
	RecordRun(ctx context.Context, status string, duration time.Duration)

	// RecordRunStored records a run result saved to a run store.
	RecordRunStored(ctx context.Context, sizeBytes int64)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	nodeExecutions metric.Int64Counter
	nodeLatency    metric.Float64Histogram
	nodeErrors     metric.Int64Counter
	nodeSkipped    metric.Int64Counter
	runs           metric.Int64Counter
	runLatency     metric.Float64Histogram
	storedSize     metric.Int64Histogram
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics lazily creates the process-wide instruments.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics(otel.GetMeterProvider())
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics(provider metric.MeterProvider) (*otelMetrics, error) {
	meter := provider.Meter("wfgraph")
	m := &otelMetrics{}
	var err error

	if m.nodeExecutions, err = meter.Int64Counter("wfgraph.node.executions",
		metric.WithDescription("Number of dispatched node executions"),
	); err != nil {
		return nil, err
	}
	if m.nodeLatency, err = meter.Float64Histogram("wfgraph.node.latency_ms",
		metric.WithDescription("Node execution latency in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	if m.nodeErrors, err = meter.Int64Counter("wfgraph.node.errors",
		metric.WithDescription("Number of failed node executions"),
	); err != nil {
		return nil, err
	}
	if m.nodeSkipped, err = meter.Int64Counter("wfgraph.node.skipped",
		metric.WithDescription("Number of nodes pruned without running"),
	); err != nil {
		return nil, err
	}
	if m.runs, err = meter.Int64Counter("wfgraph.run.count",
		metric.WithDescription("Number of workflow runs by terminal status"),
	); err != nil {
		return nil, err
	}
	if m.runLatency, err = meter.Float64Histogram("wfgraph.run.latency_ms",
		metric.WithDescription("Workflow run latency in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	if m.storedSize, err = meter.Int64Histogram("wfgraph.runstore.size_bytes",
		metric.WithDescription("Size of stored run records in bytes"),
		metric.WithUnit("By"),
	); err != nil {
		return nil, err
	}
	return m, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses the global OTel
// meter provider. If initialization fails, it returns a no-op recorder.
//
// Configure the provider before the first call:
//
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// NewMetricsRecorderWithProvider returns a MetricsRecorder bound to
// provider instead of the global one.
func NewMetricsRecorderWithProvider(provider metric.MeterProvider) (MetricsRecorder, error) {
	m, err := newOtelMetrics(provider)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (m *otelMetrics) RecordNodeExecution(ctx context.Context, nodeID, kind string, duration time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.String("node_id", nodeID),
		attribute.String("node_kind", kind),
	)
	m.nodeExecutions.Add(ctx, 1, attrs)
	m.nodeLatency.Record(ctx, ms(duration), attrs)
	if err != nil {
		m.nodeErrors.Add(ctx, 1, attrs)
	}
}

func (m *otelMetrics) RecordNodeSkipped(ctx context.Context, nodeID, kind string) {
	m.nodeSkipped.Add(ctx, 1, metric.WithAttributes(
		attribute.String("node_id", nodeID),
		attribute.String("node_kind", kind),
	))
}

func (m *otelMetrics) RecordRun(ctx context.Context, status string, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String("status", status))
	m.runs.Add(ctx, 1, attrs)
	m.runLatency.Record(ctx, ms(duration), attrs)
}

func (m *otelMetrics) RecordRunStored(ctx context.Context, sizeBytes int64) {
	m.storedSize.Record(ctx, sizeBytes)
}
