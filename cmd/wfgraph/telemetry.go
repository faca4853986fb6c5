package main

import (
	"context"
	"fmt"
	"io"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/randalmurphal/wfgraph/pkg/wfgraph"
	"github.com/randalmurphal/wfgraph/pkg/wfgraph/config"
	"github.com/randalmurphal/wfgraph/pkg/wfgraph/observability"
)

// telemetry holds in-process OTel SDK providers. After a run, collected
// metrics and finished spans are summarised on stderr.
type telemetry struct {
	reader *sdkmetric.ManualReader
	meters *sdkmetric.MeterProvider

	spans   *tracetest.SpanRecorder
	tracers *sdktrace.TracerProvider

	recorder observability.MetricsRecorder
}

func newTelemetry(s config.Settings) (*telemetry, error) {
	t := &telemetry{}
	if s.Metrics {
		t.reader = sdkmetric.NewManualReader()
		t.meters = sdkmetric.NewMeterProvider(sdkmetric.WithReader(t.reader))
		rec, err := observability.NewMetricsRecorderWithProvider(t.meters)
		if err != nil {
			return nil, err
		}
		t.recorder = rec
	}
	if s.Tracing {
		t.spans = tracetest.NewSpanRecorder()
		t.tracers = sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(t.spans))
	}
	return t, nil
}

func (t *telemetry) runOptions() []wfgraph.RunOption {
	var opts []wfgraph.RunOption
	if t.recorder != nil {
		opts = append(opts, wfgraph.WithMetricsRecorder(t.recorder))
	}
	if t.tracers != nil {
		opts = append(opts, wfgraph.WithSpanManager(observability.NewSpanManagerWithProvider(t.tracers)))
	}
	return opts
}

func (t *telemetry) report(ctx context.Context, w io.Writer) {
	if t.reader != nil {
		var rm metricdata.ResourceMetrics
		if err := t.reader.Collect(ctx, &rm); err != nil {
			fmt.Fprintf(w, "collect metrics: %v\n", err)
		}
		for _, sm := range rm.ScopeMetrics {
			for _, m := range sm.Metrics {
				switch data := m.Data.(type) {
				case metricdata.Sum[int64]:
					var total int64
					for _, dp := range data.DataPoints {
						total += dp.Value
					}
					fmt.Fprintf(w, "metric %s = %d\n", m.Name, total)
				case metricdata.Histogram[float64]:
					var count uint64
					var sum float64
					for _, dp := range data.DataPoints {
						count += dp.Count
						sum += dp.Sum
					}
					fmt.Fprintf(w, "metric %s count=%d sum=%.2f\n", m.Name, count, sum)
				case metricdata.Histogram[int64]:
					var count uint64
					var sum int64
					for _, dp := range data.DataPoints {
						count += dp.Count
						sum += dp.Sum
					}
					fmt.Fprintf(w, "metric %s count=%d sum=%d\n", m.Name, count, sum)
				}
			}
		}
	}
	if t.spans != nil {
		for _, s := range t.spans.Ended() {
			fmt.Fprintf(w, "span %s %s %s\n", s.Name(), elapsed(s.EndTime().Sub(s.StartTime())), s.Status().Code)
		}
	}
}

func (t *telemetry) shutdown(ctx context.Context) {
	if t.meters != nil {
		_ = t.meters.Shutdown(ctx)
	}
	if t.tracers != nil {
		_ = t.tracers.Shutdown(ctx)
	}
}

// elapsed formats a span duration for the report.
func elapsed(d time.Duration) string {
	return d.Round(time.Microsecond).String()
}
