package middleware

import (
	"time"

	"github.com/erp/mason/internal/infrastructure/telemetry"
	"github.com/erp/mason/pkg/state"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// unmatchedRoute labels requests that hit no registered route.
const unmatchedRoute = "unmatched"

type httpMetrics struct {
	requests     *telemetry.Counter
	duration     *telemetry.Histogram
	responseSize *telemetry.Histogram
	active       metric.Int64UpDownCounter
}

func newHTTPMetrics(meter metric.Meter) (*httpMetrics, error) {
	requests, err := telemetry.NewCounter(meter, "http_server_request_total", "Total number of HTTP requests", "{request}")
	if err != nil {
		return nil, err
	}
	duration, err := telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "http_server_request_duration_seconds",
		Description: "HTTP request latency distribution in seconds",
		Unit:        "s",
		Boundaries:  telemetry.HTTPDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	responseSize, err := telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "http_server_response_size_bytes",
		Description: "HTTP response body size distribution in bytes",
		Unit:        "By",
		Boundaries:  []float64{100, 500, 1000, 5000, 10000, 50000, 100000, 500000, 1000000},
	})
	if err != nil {
		return nil, err
	}
	active, err := meter.Int64UpDownCounter("http_server_active_requests",
		metric.WithDescription("Number of currently active HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}
	return &httpMetrics{requests: requests, duration: duration, responseSize: responseSize, active: active}, nil
}

// HTTPMetrics records request count, latency and response size labelled by
// route, and by viewset and action for requests served by a viewset.
func HTTPMetrics(mp *telemetry.MeterProvider, log *zap.Logger) gin.HandlerFunc {
	passthrough := func(c *gin.Context) { c.Next() }
	if mp == nil || !mp.IsEnabled() {
		return passthrough
	}
	m, err := newHTTPMetrics(mp.Meter("mason.http"))
	if err != nil {
		log.Warn("HTTP metrics disabled", zap.Error(err))
		return passthrough
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()
		m.active.Add(ctx, 1)

		c.Next()

		m.active.Add(ctx, -1)
		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		attrs := []attribute.KeyValue{
			telemetry.AttrHTTPMethod.String(c.Request.Method),
			telemetry.AttrHTTPRoute.String(route),
		}
		st := state.FromGin(c)
		if vs := st.ViewSet(); vs != "" {
			attrs = append(attrs, telemetry.AttrViewSet.String(vs), telemetry.AttrAction.String(st.Action()))
		}

		m.duration.RecordDuration(ctx, time.Since(start), attrs...)
		if size := c.Writer.Size(); size > 0 {
			m.responseSize.Record(ctx, float64(size), attrs...)
		}
		m.requests.Inc(ctx, append(attrs, telemetry.AttrHTTPStatusCode.Int(c.Writer.Status()))...)
	}
}
