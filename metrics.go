package deepwatch

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for patch stream operations.
var (
	tracer = otel.Tracer("github.com/brunoga/deepwatch")
	meter  = otel.Meter("github.com/brunoga/deepwatch")
)

// Metrics for patch stream operations.
var (
	flushTotal      metric.Int64Counter
	flushErrors     metric.Int64Counter
	flushDuration   metric.Float64Histogram
	patchOperations metric.Int64Counter
	deliveryErrors  metric.Int64Counter
	subscribers     metric.Int64UpDownCounter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		flushTotal, err = meter.Int64Counter(
			"deepwatch_flush_total",
			metric.WithDescription("Total number of flushes that emitted a patch"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		flushErrors, err = meter.Int64Counter(
			"deepwatch_flush_errors_total",
			metric.WithDescription("Total number of flushes that failed to snapshot or diff"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		flushDuration, err = meter.Float64Histogram(
			"deepwatch_flush_duration_seconds",
			metric.WithDescription("Duration of snapshot and diff per flush"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		patchOperations, err = meter.Int64Counter(
			"deepwatch_patch_operations_total",
			metric.WithDescription("Total number of patch operations emitted"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		deliveryErrors, err = meter.Int64Counter(
			"deepwatch_delivery_errors_total",
			metric.WithDescription("Total number of patch writes rejected by a subscriber"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		subscribers, err = meter.Int64UpDownCounter(
			"deepwatch_subscribers",
			metric.WithDescription("Number of live patch stream subscribers"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// startFlushSpan creates a span for a flush of the named collection.
func startFlushSpan(ctx context.Context, collection string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Collection.flush",
		trace.WithAttributes(
			attribute.String("deepwatch.collection", collection),
		),
	)
}

// recordFlush records the outcome of a flush.
func recordFlush(ctx context.Context, collection string, duration time.Duration, ops int, err error) {
	if initMetrics() != nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String("collection", collection))

	flushDuration.Record(ctx, duration.Seconds(), attrs)
	if err != nil {
		flushErrors.Add(ctx, 1, attrs)
		return
	}
	if ops > 0 {
		flushTotal.Add(ctx, 1, attrs)
		patchOperations.Add(ctx, int64(ops), attrs)
	}
}

// recordDeliveryErrors records writes rejected by subscribers.
func recordDeliveryErrors(ctx context.Context, collection string, n int) {
	if initMetrics() != nil {
		return
	}
	deliveryErrors.Add(ctx, int64(n), metric.WithAttributes(attribute.String("collection", collection)))
}

// recordSubscribers tracks the number of live subscribers.
func recordSubscribers(ctx context.Context, collection string, delta int64) {
	if initMetrics() != nil {
		return
	}
	subscribers.Add(ctx, delta, metric.WithAttributes(attribute.String("collection", collection)))
}
