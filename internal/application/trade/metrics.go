package trade

import (
	"context"

	"github.com/coopmarket/backend/internal/domain/trade"
	"github.com/shopspring/decimal"
)

// OrderMetrics records business metrics for order operations
type OrderMetrics interface {
	RecordOrderCreated(ctx context.Context, total decimal.Decimal, lineCount int, replayed bool)
	RecordOrderFailed(ctx context.Context, code string)
	RecordStatusChange(ctx context.Context, from, to trade.OrderStatus)
}

type noopOrderMetrics struct{}

func (noopOrderMetrics) RecordOrderCreated(context.Context, decimal.Decimal, int, bool) {}
func (noopOrderMetrics) RecordOrderFailed(context.Context, string)                      {}
func (noopOrderMetrics) RecordStatusChange(context.Context, trade.OrderStatus, trade.OrderStatus) {
}
