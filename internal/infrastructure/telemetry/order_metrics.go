package telemetry

import (
	"context"

	"github.com/coopmarket/backend/internal/domain/trade"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OrderMetrics records order business metrics as OpenTelemetry instruments
type OrderMetrics struct {
	created     metric.Int64Counter
	failed      metric.Int64Counter
	transitions metric.Int64Counter
	value       metric.Float64Histogram
	lines       metric.Int64Histogram
}

// NewOrderMetrics creates the order instruments on meter
func NewOrderMetrics(meter metric.Meter) (*OrderMetrics, error) {
	m := &OrderMetrics{}
	var err error

	if m.created, err = meter.Int64Counter("orders.created",
		metric.WithDescription("Orders created, replays flagged"),
		metric.WithUnit("{order}")); err != nil {
		return nil, err
	}
	if m.failed, err = meter.Int64Counter("orders.failed",
		metric.WithDescription("Order creations rejected, by error code"),
		metric.WithUnit("{order}")); err != nil {
		return nil, err
	}
	if m.transitions, err = meter.Int64Counter("orders.status_transitions",
		metric.WithDescription("Order status changes"),
		metric.WithUnit("{transition}")); err != nil {
		return nil, err
	}
	if m.value, err = meter.Float64Histogram("orders.total",
		metric.WithDescription("Tax-inclusive order total including delivery"),
		metric.WithUnit("MAD"),
		metric.WithExplicitBucketBoundaries(50, 100, 250, 500, 1000, 2500, 5000, 10000)); err != nil {
		return nil, err
	}
	if m.lines, err = meter.Int64Histogram("orders.lines",
		metric.WithDescription("Lines per order"),
		metric.WithUnit("{line}"),
		metric.WithExplicitBucketBoundaries(1, 2, 3, 5, 10, 20)); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordOrderCreated counts an order. Replays are counted but not measured
// again.
func (m *OrderMetrics) RecordOrderCreated(ctx context.Context, total decimal.Decimal, lineCount int, replayed bool) {
	m.created.Add(ctx, 1, metric.WithAttributes(attribute.Bool("replayed", replayed)))
	if replayed {
		return
	}
	m.value.Record(ctx, total.InexactFloat64())
	m.lines.Record(ctx, int64(lineCount))
}

func (m *OrderMetrics) RecordOrderFailed(ctx context.Context, code string) {
	m.failed.Add(ctx, 1, metric.WithAttributes(attribute.String("code", code)))
}

func (m *OrderMetrics) RecordStatusChange(ctx context.Context, from, to trade.OrderStatus) {
	m.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", string(from)),
		attribute.String("to", string(to)),
	))
}
