package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func installRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return recorder
}

func TestStartSpan(t *testing.T) {
	recorder := installRecorder(t)
	id := uuid.New()

	ctx, span := StartSpan(context.Background(), "company.stats", "companies", 3, "id", id, 42, "dropped")
	assert.NotEmpty(t, GetTraceID(ctx))
	SetAttributes(span, "cached", false, "ids", []string{"a"})
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "company.stats", spans[0].Name())

	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range spans[0].Attributes() {
		attrs[kv.Key] = kv.Value
	}
	assert.Equal(t, int64(3), attrs["companies"].AsInt64())
	assert.Equal(t, id.String(), attrs["id"].AsString())
	assert.False(t, attrs["cached"].AsBool())
	assert.Equal(t, []string{"a"}, attrs["ids"].AsStringSlice())
}

func TestRecordError(t *testing.T) {
	recorder := installRecorder(t)

	_, span := StartSpan(context.Background(), "failing")
	RecordError(span, errors.New("boom"))
	RecordError(span, nil)
	RecordError(nil, errors.New("ignored"))
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "boom", spans[0].Status().Description)
}

func TestGetTraceID_NoSpan(t *testing.T) {
	assert.Empty(t, GetTraceID(context.Background()))
}
