package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func useRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	t.Cleanup(func() { otel.SetTracerProvider(previous) })
	return recorder
}

func TestStartAndEndSpan(t *testing.T) {
	recorder := useRecorder(t)

	_, ok := StartSpan(context.Background(), "kafka.publish OrderConfirmed", trace.SpanKindProducer,
		attribute.String("messaging.system", "kafka"))
	EndSpan(ok, nil)

	_, failed := StartSpan(context.Background(), "kafka.publish OrderCancelled", trace.SpanKindProducer)
	EndSpan(failed, errors.New("broker unavailable"))

	ended := recorder.Ended()
	require.Len(t, ended, 2)

	assert.Equal(t, "kafka.publish OrderConfirmed", ended[0].Name())
	assert.Equal(t, trace.SpanKindProducer, ended[0].SpanKind())
	assert.Equal(t, codes.Ok, ended[0].Status().Code)
	assert.Contains(t, ended[0].Attributes(), attribute.String("messaging.system", "kafka"))

	assert.Equal(t, codes.Error, ended[1].Status().Code)
	assert.Equal(t, "broker unavailable", ended[1].Status().Description)
	require.Len(t, ended[1].Events(), 1)
	assert.Equal(t, "exception", ended[1].Events()[0].Name)
}
