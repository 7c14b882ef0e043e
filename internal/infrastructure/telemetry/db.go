package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type dbContextKey struct{}

// InstrumentDB adds otelgorm spans, slow query marking and connection pool
// gauges to db. It does nothing unless telemetry and DB tracing are enabled.
func (t *Telemetry) InstrumentDB(db *gorm.DB, dbName string) error {
	if !t.Enabled() || !t.cfg.DBTraceEnabled {
		return nil
	}

	if err := db.Use(otelgorm.NewPlugin(
		otelgorm.WithDBName(dbName),
		otelgorm.WithoutQueryVariables(),
	)); err != nil {
		return fmt.Errorf("failed to register otelgorm: %w", err)
	}
	if err := registerSlowQueryCallbacks(db, t.cfg.DBSlowQueryThresh); err != nil {
		return err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if err := registerPoolGauges(t.Meter("coopmarket/db"), sqlDB.Stats); err != nil {
		return err
	}

	t.logger.Info("Database instrumentation enabled",
		zap.String("db_name", dbName),
		zap.Duration("slow_query_threshold", t.cfg.DBSlowQueryThresh),
	)
	return nil
}

// registerSlowQueryCallbacks stamps the start time before every statement and
// annotates the span created by otelgorm once it finished.
func registerSlowQueryCallbacks(db *gorm.DB, threshold time.Duration) error {
	before := func(tx *gorm.DB) {
		if tx.Statement.Context != nil {
			tx.Statement.Context = context.WithValue(tx.Statement.Context, dbContextKey{}, time.Now())
		}
	}
	after := func(tx *gorm.DB) { annotateSpan(tx, threshold) }

	cb := db.Callback()
	err := errors.Join(
		cb.Create().Before("gorm:create").Register("telemetry:before_create", before),
		cb.Create().After("gorm:create").Register("telemetry:after_create", after),
		cb.Query().Before("gorm:query").Register("telemetry:before_query", before),
		cb.Query().After("gorm:query").Register("telemetry:after_query", after),
		cb.Update().Before("gorm:update").Register("telemetry:before_update", before),
		cb.Update().After("gorm:update").Register("telemetry:after_update", after),
		cb.Delete().Before("gorm:delete").Register("telemetry:before_delete", before),
		cb.Delete().After("gorm:delete").Register("telemetry:after_delete", after),
		cb.Row().Before("gorm:row").Register("telemetry:before_row", before),
		cb.Row().After("gorm:row").Register("telemetry:after_row", after),
		cb.Raw().Before("gorm:raw").Register("telemetry:before_raw", before),
		cb.Raw().After("gorm:raw").Register("telemetry:after_raw", after),
	)
	if err != nil {
		return fmt.Errorf("failed to register query callbacks: %w", err)
	}
	return nil
}

func annotateSpan(tx *gorm.DB, threshold time.Duration) {
	ctx := tx.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	if tx.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", tx.Statement.Table))
	}
	span.SetAttributes(attribute.Int64("db.rows_affected", tx.Statement.RowsAffected))
	if tx.Error != nil && !errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, tx.Error.Error())
	}

	start, ok := ctx.Value(dbContextKey{}).(time.Time)
	if !ok || threshold <= 0 {
		return
	}
	if elapsed := time.Since(start); elapsed > threshold {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
	}
}

// registerPoolGauges reports database/sql pool statistics on every collection
func registerPoolGauges(meter metric.Meter, stats func() sql.DBStats) error {
	open, err := meter.Int64ObservableGauge("db.pool.open_connections",
		metric.WithDescription("Open connections, in use and idle"))
	if err != nil {
		return err
	}
	inUse, err := meter.Int64ObservableGauge("db.pool.in_use",
		metric.WithDescription("Connections currently in use"))
	if err != nil {
		return err
	}
	idle, err := meter.Int64ObservableGauge("db.pool.idle",
		metric.WithDescription("Idle connections"))
	if err != nil {
		return err
	}
	waits, err := meter.Int64ObservableCounter("db.pool.wait_count",
		metric.WithDescription("Connections waited for"))
	if err != nil {
		return err
	}

	_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		s := stats()
		o.ObserveInt64(open, int64(s.OpenConnections))
		o.ObserveInt64(inUse, int64(s.InUse))
		o.ObserveInt64(idle, int64(s.Idle))
		o.ObserveInt64(waits, s.WaitCount)
		return nil
	}, open, inUse, idle, waits)
	if err != nil {
		return fmt.Errorf("failed to register pool gauges: %w", err)
	}
	return nil
}
