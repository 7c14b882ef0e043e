package logger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// DefaultSlowQueryThreshold flags statements that hold a connection longer
// than an order placement should take end to end
const DefaultSlowQueryThreshold = 200 * time.Millisecond

// GormLogger writes gorm statements through zap, tagged with the request,
// buyer and order the statement ran for.
type GormLogger struct {
	logger        *zap.Logger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
	logNotFound   bool
}

// GormLoggerOption configures a GormLogger
type GormLoggerOption func(*GormLogger)

// WithSlowThreshold sets the duration above which a statement is logged as slow.
// Zero disables slow statement logging.
func WithSlowThreshold(threshold time.Duration) GormLoggerOption {
	return func(l *GormLogger) {
		l.slowThreshold = threshold
	}
}

// WithIgnoreRecordNotFoundError controls whether lookups that find nothing
// are logged as errors. They are ignored by default: an unknown order id is
// a 404, not a database fault.
func WithIgnoreRecordNotFoundError(ignore bool) GormLoggerOption {
	return func(l *GormLogger) {
		l.logNotFound = !ignore
	}
}

func NewGormLogger(base *zap.Logger, level gormlogger.LogLevel, opts ...GormLoggerOption) *GormLogger {
	gl := &GormLogger{
		logger:        base.Named("sql"),
		level:         level,
		slowThreshold: DefaultSlowQueryThreshold,
	}
	for _, opt := range opts {
		opt(gl)
	}
	return gl
}

// LogMode implements gormlogger.Interface
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Info {
		l.logger.Info(fmt.Sprintf(msg, data...), scopeFields(ctx)...)
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Warn {
		l.logger.Warn(fmt.Sprintf(msg, data...), scopeFields(ctx)...)
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Error {
		l.logger.Error(fmt.Sprintf(msg, data...), scopeFields(ctx)...)
	}
}

// Trace logs failed and slow statements, and every statement at Info
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	failed := err != nil && (l.logNotFound || !errors.Is(err, gormlogger.ErrRecordNotFound))
	slow := l.slowThreshold > 0 && elapsed > l.slowThreshold

	switch {
	case failed && l.level >= gormlogger.Error:
		l.logger.Error("SQL Error", append(l.statementFields(ctx, elapsed, fc), zap.Error(err))...)
	case slow && l.level >= gormlogger.Warn:
		l.logger.Warn(fmt.Sprintf("SLOW SQL >= %v", l.slowThreshold), l.statementFields(ctx, elapsed, fc)...)
	case err == nil && l.level >= gormlogger.Info:
		l.logger.Debug("SQL Query", l.statementFields(ctx, elapsed, fc)...)
	}
}

func (l *GormLogger) statementFields(ctx context.Context, elapsed time.Duration, fc func() (string, int64)) []zap.Field {
	sql, rows := fc()
	fields := []zap.Field{
		zap.String("statement", statementVerb(sql)),
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", sql),
	}
	return append(fields, scopeFields(ctx)...)
}

// scopeFields returns the request, buyer, order and trace ids found in ctx
func scopeFields(ctx context.Context) []zap.Field {
	var fields []zap.Field
	add := func(key, value string) {
		if value != "" {
			fields = append(fields, zap.String(key, value))
		}
	}
	add("request_id", GetRequestID(ctx))
	add("buyer_id", GetBuyerID(ctx))
	add("order_id", GetOrderID(ctx))
	add("trace_id", GetTraceID(ctx))
	return fields
}

// statementVerb returns the leading SQL keyword, e.g. "UPDATE"
func statementVerb(sql string) string {
	sql = strings.TrimSpace(sql)
	if i := strings.IndexAny(sql, " \n\t("); i > 0 {
		sql = sql[:i]
	}
	return strings.ToUpper(sql)
}

// MapGormLogLevel maps the application log level to a GORM log level. SQL
// statements are only traced at debug.
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "warn":
		return gormlogger.Warn
	case "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
