package wfgraph

import (
	"log/slog"

	"github.com/randalmurphal/wfgraph/pkg/wfgraph/observability"
	"github.com/randalmurphal/wfgraph/pkg/wfgraph/runstore"
)

// runConfig holds configuration for graph execution.
type runConfig struct {
	maxConcurrency int
	observer       func(TraceEvent)
	store          runstore.Store

	// Observability
	logger         *slog.Logger
	metrics        observability.MetricsRecorder
	spans          observability.SpanManager
	tracingEnabled bool
}

// defaultRunConfig returns the default execution configuration.
func defaultRunConfig() runConfig {
	return runConfig{
		metrics: observability.NoopMetrics{},
		spans:   observability.NoopSpanManager{},
	}
}

// RunOption configures execution behavior.
type RunOption func(*runConfig)

// WithMaxConcurrency bounds how many nodes of one stage run at once.
// Default: 0 (no bound).
//
// Example:
//
//	result, err := compiled.Run(ctx, payload, wfgraph.WithMaxConcurrency(4))
func WithMaxConcurrency(n int) RunOption {
	return func(c *runConfig) {
		if n >= 0 {
			c.maxConcurrency = n
		}
	}
}

// WithObserver registers fn to receive every trace event as it is
// recorded. fn is called from the scheduler goroutine in sequence order and
// must not block; hand events to a channel for slow consumers.
func WithObserver(fn func(TraceEvent)) RunOption {
	return func(c *runConfig) {
		c.observer = fn
	}
}

// WithRunStore saves the sealed run result to store when the run ends. A
// store failure is logged and does not change the run's outcome.
func WithRunStore(store runstore.Store) RunOption {
	return func(c *runConfig) {
		c.store = store
	}
}

// WithObservabilityLogger sets the logger for run and node lifecycle logs.
// Default: no lifecycle logging.
func WithObservabilityLogger(logger *slog.Logger) RunOption {
	return func(c *runConfig) {
		c.logger = logger
	}
}

// WithMetrics enables OpenTelemetry metrics using the global meter
// provider.
func WithMetrics(enabled bool) RunOption {
	return func(c *runConfig) {
		if enabled {
			c.metrics = observability.NewMetricsRecorder()
		} else {
			c.metrics = observability.NoopMetrics{}
		}
	}
}

// WithMetricsRecorder sets the metrics recorder directly.
func WithMetricsRecorder(m observability.MetricsRecorder) RunOption {
	return func(c *runConfig) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithTracing enables OpenTelemetry spans for the run and each node,
// using the global tracer provider.
func WithTracing(enabled bool) RunOption {
	return func(c *runConfig) {
		c.tracingEnabled = enabled
		if enabled {
			c.spans = observability.NewSpanManager()
		} else {
			c.spans = observability.NoopSpanManager{}
		}
	}
}

// WithSpanManager sets the span manager directly and enables tracing.
func WithSpanManager(s observability.SpanManager) RunOption {
	return func(c *runConfig) {
		if s != nil {
			c.spans = s
			c.tracingEnabled = true
		}
	}
}
