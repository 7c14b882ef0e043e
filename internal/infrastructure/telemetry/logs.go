package telemetry

import (
	"context"
	"fmt"

	"github.com/coopmarket/backend/internal/infrastructure/config"
	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newLoggerProvider(ctx context.Context, cfg config.TelemetryConfig, res *resource.Resource) (*sdklog.LoggerProvider, error) {
	opts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(cfg.CollectorEndpoint)}
	if cfg.Insecure {
		opts = append(opts, otlploggrpc.WithInsecure())
	}
	exporter, err := otlploggrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP logs exporter: %w", err)
	}

	lp := sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
	)
	global.SetLoggerProvider(lp)
	return lp, nil
}

// BridgeLogger returns logger teed into the OTLP log exporter. Entries below
// the level of the local core are not exported either. Without a logs
// provider the logger is returned unchanged.
func (t *Telemetry) BridgeLogger(logger *zap.Logger) *zap.Logger {
	if t.logs == nil {
		return logger
	}
	return bridge(logger, otelzap.NewCore(t.cfg.ServiceName, otelzap.WithLoggerProvider(t.logs)))
}

func bridge(logger *zap.Logger, otelCore zapcore.Core) *zap.Logger {
	return logger.WithOptions(zap.WrapCore(func(local zapcore.Core) zapcore.Core {
		return zapcore.NewTee(local, &levelFilterCore{Core: otelCore, enabler: local})
	}))
}

// levelFilterCore gates a core by the level of another one
type levelFilterCore struct {
	zapcore.Core
	enabler zapcore.LevelEnabler
}

func (c *levelFilterCore) Enabled(lvl zapcore.Level) bool {
	return c.enabler.Enabled(lvl) && c.Core.Enabled(lvl)
}

func (c *levelFilterCore) Check(entry zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(entry.Level) {
		return ce
	}
	return c.Core.Check(entry, ce)
}

func (c *levelFilterCore) With(fields []zapcore.Field) zapcore.Core {
	return &levelFilterCore{Core: c.Core.With(fields), enabler: c.enabler}
}
