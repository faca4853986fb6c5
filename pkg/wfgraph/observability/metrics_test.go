package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (MetricsRecorder, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := NewMetricsRecorderWithProvider(provider)
	require.NoError(t, err)
	return m, reader
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func sumValue(t *testing.T, m *metricdata.Metrics) int64 {
	t.Helper()
	require.NotNil(t, m)
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "expected int64 sum, got %T", m.Data)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestMetrics_NodeExecution(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordNodeExecution(ctx, "a", "tool", 10*time.Millisecond, nil)
	m.RecordNodeExecution(ctx, "b", "http", 20*time.Millisecond, errors.New("boom"))
	m.RecordNodeSkipped(ctx, "c", "template")

	rm := collectMetrics(t, reader)
	assert.EqualValues(t, 2, sumValue(t, findMetric(rm, "wfgraph.node.executions")))
	assert.EqualValues(t, 1, sumValue(t, findMetric(rm, "wfgraph.node.errors")))
	assert.EqualValues(t, 1, sumValue(t, findMetric(rm, "wfgraph.node.skipped")))

	latency := findMetric(rm, "wfgraph.node.latency_ms")
	require.NotNil(t, latency)
	hist, ok := latency.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	assert.EqualValues(t, 2, count)
}

func TestMetrics_Run(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordRun(ctx, "succeeded", time.Second)
	m.RecordRun(ctx, "failed", time.Second)
	m.RecordRunStored(ctx, 1024)

	rm := collectMetrics(t, reader)
	runs := findMetric(rm, "wfgraph.run.count")
	assert.EqualValues(t, 2, sumValue(t, runs))

	sum := runs.Data.(metricdata.Sum[int64])
	statuses := map[string]bool{}
	for _, dp := range sum.DataPoints {
		v, ok := dp.Attributes.Value("status")
		require.True(t, ok)
		statuses[v.AsString()] = true
	}
	assert.Equal(t, map[string]bool{"succeeded": true, "failed": true}, statuses)
	assert.NotNil(t, findMetric(rm, "wfgraph.runstore.size_bytes"))
	assert.NotNil(t, findMetric(rm, "wfgraph.run.latency_ms"))
}

func TestNewMetricsRecorder_Global(t *testing.T) {
	recorder := NewMetricsRecorder()
	require.NotNil(t, recorder)
	assert.NotPanics(t, func() {
		recorder.RecordRun(context.Background(), "succeeded", time.Millisecond)
	})
}

func TestNoopMetrics(t *testing.T) {
	var m MetricsRecorder = NoopMetrics{}
	assert.NotPanics(t, func() {
		m.RecordNodeExecution(context.Background(), "a", "tool", time.Second, errors.New("x"))
		m.RecordNodeSkipped(context.Background(), "a", "tool")
		m.RecordRun(context.Background(), "failed", time.Second)
		m.RecordRunStored(context.Background(), 1)
	})
}
