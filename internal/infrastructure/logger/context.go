package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

const (
	loggerKey    contextKey = "logger"
	requestIDKey contextKey = "request_id"
	buyerIDKey   contextKey = "buyer_id"
	orderIDKey   contextKey = "order_id"
)

// WithContext attaches logger to ctx
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the request logger of ctx, or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// WithRequestID stores the request id and returns the context with an
// enriched logger attached.
func WithRequestID(ctx context.Context, logger *zap.Logger, requestID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, requestIDKey, requestID)
	enriched := logger.With(zap.String("request_id", requestID))
	return WithContext(ctx, enriched), enriched
}

// WithBuyerID stores the authenticated buyer and returns the context with an
// enriched logger attached.
func WithBuyerID(ctx context.Context, logger *zap.Logger, buyerID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, buyerIDKey, buyerID)
	enriched := logger.With(zap.String("buyer_id", buyerID))
	return WithContext(ctx, enriched), enriched
}

// WithOrderID stores the order a request acts on and returns the context
// with an enriched logger attached.
func WithOrderID(ctx context.Context, logger *zap.Logger, orderID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, orderIDKey, orderID)
	enriched := logger.With(zap.String("order_id", orderID))
	return WithContext(ctx, enriched), enriched
}

// GetRequestID returns the request id of ctx or ""
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// GetBuyerID returns the buyer id of ctx or ""
func GetBuyerID(ctx context.Context) string {
	id, _ := ctx.Value(buyerIDKey).(string)
	return id
}

// GetOrderID returns the order id of ctx or ""
func GetOrderID(ctx context.Context) string {
	id, _ := ctx.Value(orderIDKey).(string)
	return id
}

// GetTraceID returns the trace id of the active span, or "" without one
func GetTraceID(ctx context.Context) string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return ""
	}
	return spanCtx.TraceID().String()
}

// WithTraceContext adds trace_id and span_id of the active span to logger
func WithTraceContext(ctx context.Context, logger *zap.Logger) *zap.Logger {
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return logger
	}
	return logger.With(
		zap.String("trace_id", spanCtx.TraceID().String()),
		zap.String("span_id", spanCtx.SpanID().String()),
	)
}

// L returns the request logger of ctx with trace ids attached. Background
// workers that never went through the HTTP middleware get the fallback.
//
//	logger.L(ctx, s.logger).Info("Order cancelled", zap.String("order_id", id))
func L(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	l, ok := ctx.Value(loggerKey).(*zap.Logger)
	if !ok {
		l = fallback
	}
	if l == nil {
		l = zap.NewNop()
	}
	return WithTraceContext(ctx, l)
}
