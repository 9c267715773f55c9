package middleware

import (
	"net/http"
	"testing"

	"github.com/erp/mason/pkg/state"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func tracingRouter(t *testing.T, enabled bool) (*gin.Engine, *tracetest.SpanRecorder) {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))

	r := gin.New()
	r.Use(RequestID())
	r.Use(Tracing(TracingConfig{
		ServiceName:    "mason-test",
		Enabled:        enabled,
		SkipPaths:      []string{"/health"},
		TracerProvider: tp,
	})...)
	r.GET("/projects", func(c *gin.Context) {
		state.FromGin(c).SetAction("projects", "list")
		c.JSON(http.StatusOK, gin.H{})
	})
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r, rec
}

func attrs(s sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := map[attribute.Key]attribute.Value{}
	for _, kv := range s.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestTracing_EnrichesSpan(t *testing.T) {
	r, rec := tracingRouter(t, true)

	w := serve(r, http.MethodGet, "/projects", map[string]string{RequestIDHeader: "req-1"})
	require.Equal(t, http.StatusOK, w.Code)

	spans := rec.Ended()
	require.Len(t, spans, 1)
	a := attrs(spans[0])
	assert.Equal(t, "req-1", a["request_id"].AsString())
	assert.Equal(t, "projects", a["mason.viewset"].AsString())
	assert.Equal(t, "list", a["mason.action"].AsString())
}

func TestTracing_ServerErrorStatus(t *testing.T) {
	r, rec := tracingRouter(t, true)
	serve(r, http.MethodGet, "/boom", nil)

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}

func TestTracing_SkipPathsAndDisabled(t *testing.T) {
	r, rec := tracingRouter(t, true)
	serve(r, http.MethodGet, "/health", nil)
	assert.Empty(t, rec.Ended())

	r, rec = tracingRouter(t, false)
	w := serve(r, http.MethodGet, "/projects", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, rec.Ended())
}
