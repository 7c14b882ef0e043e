// Package telemetry wires OpenTelemetry traces, metrics and logs plus
// Pyroscope profiling. Every provider is optional: with telemetry disabled
// the global no-op providers are used and nothing is exported.
package telemetry

import (
	"context"
	"errors"
	"fmt"

	"github.com/coopmarket/backend/internal/infrastructure/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Telemetry owns the providers created at startup
type Telemetry struct {
	cfg      config.TelemetryConfig
	logger   *zap.Logger
	tracer   *sdktrace.TracerProvider
	meter    *sdkmetric.MeterProvider
	logs     *sdklog.LoggerProvider
	profiler *Profiler
}

// Setup creates the providers enabled by cfg and installs them globally.
// Shutdown must be called on exit to flush pending data.
func Setup(ctx context.Context, cfg config.TelemetryConfig, version string, logger *zap.Logger) (*Telemetry, error) {
	t := &Telemetry{cfg: cfg, logger: logger.Named("telemetry")}
	if !cfg.Enabled {
		t.logger.Info("Telemetry disabled, using no-op providers")
		return t, nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	if t.tracer, err = newTracerProvider(ctx, cfg, res); err != nil {
		return nil, err
	}
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if t.meter, err = newMeterProvider(ctx, cfg, res); err != nil {
		return nil, errors.Join(err, t.Shutdown(ctx))
	}
	otel.SetMeterProvider(t.meter)

	if cfg.LogsEnabled {
		if t.logs, err = newLoggerProvider(ctx, cfg, res); err != nil {
			return nil, errors.Join(err, t.Shutdown(ctx))
		}
	}

	if cfg.ProfilingEnabled {
		if t.profiler, err = NewProfiler(cfg.PyroscopeEndpoint, cfg.ServiceName, t.logger); err != nil {
			return nil, errors.Join(err, t.Shutdown(ctx))
		}
	}
	// span profiles need the profiler running first
	otel.SetTracerProvider(wrapTracerProvider(t.tracer, t.profiler != nil))

	t.logger.Info("Telemetry initialized",
		zap.String("collector_endpoint", cfg.CollectorEndpoint),
		zap.Float64("sampling_ratio", cfg.SamplingRatio),
		zap.Bool("logs", cfg.LogsEnabled),
		zap.Bool("profiling", cfg.ProfilingEnabled),
	)
	return t, nil
}

// Enabled reports whether anything is exported
func (t *Telemetry) Enabled() bool {
	return t.tracer != nil
}

// Tracer returns a tracer from the global provider
func (t *Telemetry) Tracer(name string) trace.Tracer {
	return otel.GetTracerProvider().Tracer(name)
}

// Meter returns a meter from the global provider
func (t *Telemetry) Meter(name string) metric.Meter {
	return otel.GetMeterProvider().Meter(name)
}

// Shutdown flushes and stops every provider, returning all errors joined
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	if t.profiler != nil {
		errs = append(errs, t.profiler.Stop())
	}
	if t.logs != nil {
		errs = append(errs, t.logs.Shutdown(ctx))
	}
	if t.meter != nil {
		errs = append(errs, t.meter.Shutdown(ctx))
	}
	if t.tracer != nil {
		errs = append(errs, t.tracer.Shutdown(ctx))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("telemetry shutdown: %w", err)
	}
	return nil
}
