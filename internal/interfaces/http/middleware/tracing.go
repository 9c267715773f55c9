// Package middleware provides the HTTP middleware of the mason service.
package middleware

import (
	"net/http"
	"slices"

	"github.com/erp/mason/pkg/state"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig holds configuration for the tracing middleware.
type TracingConfig struct {
	ServiceName string
	Enabled     bool
	// SkipPaths are not traced (health probes, docs).
	SkipPaths []string
	// TracerProvider overrides the global provider; used by tests.
	TracerProvider trace.TracerProvider
}

// Tracing returns the otelgin server middleware followed by a handler that
// tags the span with request, user and viewset attributes. Register both in order.
func Tracing(cfg TracingConfig) gin.HandlersChain {
	if !cfg.Enabled {
		return gin.HandlersChain{func(c *gin.Context) { c.Next() }}
	}

	opts := []otelgin.Option{
		otelgin.WithFilter(func(r *http.Request) bool {
			return !slices.Contains(cfg.SkipPaths, r.URL.Path)
		}),
	}
	if cfg.TracerProvider != nil {
		opts = append(opts, otelgin.WithTracerProvider(cfg.TracerProvider))
	}
	return gin.HandlersChain{otelgin.Middleware(cfg.ServiceName, opts...), enrichSpan}
}

func enrichSpan(c *gin.Context) {
	span := trace.SpanFromContext(c.Request.Context())
	if !span.IsRecording() {
		c.Next()
		return
	}
	if id := c.GetString(RequestIDKey); id != "" {
		span.SetAttributes(attribute.String("request_id", id))
	}

	c.Next()

	// The user and the viewset action are only known once the handlers ran.
	st := state.FromGin(c)
	if claims := ClaimsFrom(c); claims != nil {
		span.SetAttributes(attribute.String("user_id", claims.UserID))
	}
	if vs := st.ViewSet(); vs != "" {
		span.SetAttributes(attribute.String("mason.viewset", vs), attribute.String("mason.action", st.Action()))
	}
	if c.Writer.Status() >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, http.StatusText(c.Writer.Status()))
	}
}
