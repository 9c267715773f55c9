package logger

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/erp/mason/pkg/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromContext_Default(t *testing.T) {
	l := FromContext(context.Background())
	require.NotNil(t, l)
}

func TestWithContext(t *testing.T) {
	base := zap.NewExample()
	ctx := WithContext(context.Background(), base)

	assert.Same(t, base, FromContext(ctx))
}

func TestContextValues(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetRequestID(ctx))
	assert.Empty(t, GetUserID(ctx))
	assert.Empty(t, GetAction(ctx))
	assert.Empty(t, GetTraceID(ctx))

	ctx = WithRequestID(ctx, "req-1")
	ctx = WithUserID(ctx, "user-1")
	ctx = WithAction(ctx, "list")

	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Equal(t, "user-1", GetUserID(ctx))
	assert.Equal(t, "list", GetAction(ctx))
}

func TestContextLogger_InjectsFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	ctx := WithContext(context.Background(), zap.New(core))
	ctx = WithRequestID(ctx, "req-42")
	ctx = WithAction(ctx, "retrieve")

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx = trace.ContextWithSpanContext(ctx, trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	L(ctx).With(zap.String("viewset", "projects")).Info("served")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-42", fields["request_id"])
	assert.Equal(t, "retrieve", fields["action"])
	assert.Equal(t, "projects", fields["viewset"])
	assert.Equal(t, traceID.String(), fields["trace_id"])
	assert.Equal(t, spanID.String(), fields["span_id"])
	assert.Equal(t, traceID.String(), GetTraceID(ctx))
}

func TestContextLogger_ChainedWithDoesNotDuplicate(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	ctx := WithRequestID(context.Background(), "req-7")

	WithLogger(ctx, zap.New(core)).With(zap.Int("a", 1)).With(zap.Int("b", 2)).Warn("twice")

	require.Equal(t, 1, logs.Len())
	count := 0
	for _, f := range logs.All()[0].Context {
		if f.Key == "request_id" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestContextLogger_NilLogger(t *testing.T) {
	cl := WithLogger(context.Background(), nil)
	assert.NotPanics(t, func() {
		cl.Debug("x")
		cl.With(zap.String("k", "v")).Error("y")
	})
}

func TestGetAction_FallsBackToRequestState(t *testing.T) {
	st := state.New(httptest.NewRequest("GET", "/api/v1/projects", nil))
	ctx := state.WithState(context.Background(), st)
	assert.Empty(t, GetAction(ctx))

	st.SetAction("projects", "list")
	assert.Equal(t, "projects.list", GetAction(ctx))
	assert.Equal(t, "archive", GetAction(WithAction(ctx, "archive")), "explicit value wins")
}
