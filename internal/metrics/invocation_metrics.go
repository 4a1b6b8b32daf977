package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "design-research-gateway"

// InvocationMetrics provides metrics collection for workflow invocations
type InvocationMetrics struct {
	invocationsCounter  metric.Int64Counter
	failuresCounter     metric.Int64Counter
	durationHistogram   metric.Float64Histogram
	fallbackCounter     metric.Int64Counter
	streamChunksCounter metric.Int64Counter
	streamsActiveGauge  metric.Int64UpDownCounter
}

// NewInvocationMetrics creates the instruments on meter, or on the global
// meter provider when meter is nil
func NewInvocationMetrics(meter metric.Meter) (*InvocationMetrics, error) {
	if meter == nil {
		meter = otel.Meter(meterName)
	}

	invocationsCounter, err := meter.Int64Counter(
		"gateway.invocations",
		metric.WithDescription("Total number of completed workflow invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, err
	}

	failuresCounter, err := meter.Int64Counter(
		"gateway.invocations.failed",
		metric.WithDescription("Total number of workflow invocations that failed"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, err
	}

	durationHistogram, err := meter.Float64Histogram(
		"gateway.invocation.duration",
		metric.WithDescription("Duration of workflow invocations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	fallbackCounter, err := meter.Int64Counter(
		"gateway.extraction.fallbacks",
		metric.WithDescription("Blocking responses where no content field was recognised"),
		metric.WithUnit("{response}"),
	)
	if err != nil {
		return nil, err
	}

	streamChunksCounter, err := meter.Int64Counter(
		"gateway.stream.chunks",
		metric.WithDescription("Chunks relayed from the workflow API to clients"),
		metric.WithUnit("{chunk}"),
	)
	if err != nil {
		return nil, err
	}

	streamsActiveGauge, err := meter.Int64UpDownCounter(
		"gateway.streams.active",
		metric.WithDescription("Number of streams currently being relayed"),
		metric.WithUnit("{stream}"),
	)
	if err != nil {
		return nil, err
	}

	return &InvocationMetrics{
		invocationsCounter:  invocationsCounter,
		failuresCounter:     failuresCounter,
		durationHistogram:   durationHistogram,
		fallbackCounter:     fallbackCounter,
		streamChunksCounter: streamChunksCounter,
		streamsActiveGauge:  streamsActiveGauge,
	}, nil
}

// RecordInvocation records a successful invocation
func (m *InvocationMetrics) RecordInvocation(ctx context.Context, mode, keyClass string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("response_mode", mode),
		attribute.String("key_class", keyClass),
		attribute.String("status", "completed"),
	)
	m.invocationsCounter.Add(ctx, 1, attrs)
	m.durationHistogram.Record(ctx, duration.Seconds(), attrs)
}

// RecordFailure records a failed invocation
func (m *InvocationMetrics) RecordFailure(ctx context.Context, mode, keyClass, errorType string, duration time.Duration) {
	m.failuresCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("response_mode", mode),
			attribute.String("key_class", keyClass),
			attribute.String("error.type", errorType),
		),
	)
	m.durationHistogram.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("response_mode", mode),
			attribute.String("key_class", keyClass),
			attribute.String("status", "failed"),
		),
	)
}

// RecordExtractionFallback records a response that degraded to raw JSON
func (m *InvocationMetrics) RecordExtractionFallback(ctx context.Context, keyClass string) {
	m.fallbackCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("key_class", keyClass),
		),
	)
}

// StreamStarted increments the active stream gauge
func (m *InvocationMetrics) StreamStarted(ctx context.Context, keyClass string) {
	m.streamsActiveGauge.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("key_class", keyClass),
		),
	)
}

// StreamFinished decrements the active stream gauge and counts relayed chunks
func (m *InvocationMetrics) StreamFinished(ctx context.Context, keyClass string, chunks int) {
	m.streamsActiveGauge.Add(ctx, -1,
		metric.WithAttributes(
			attribute.String("key_class", keyClass),
		),
	)
	m.streamChunksCounter.Add(ctx, int64(chunks),
		metric.WithAttributes(
			attribute.String("key_class", keyClass),
		),
	)
}
