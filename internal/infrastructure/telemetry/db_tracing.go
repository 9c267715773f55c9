package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds configuration for database instrumentation.
type DBTracingConfig struct {
	Enabled         bool          // Register otelgorm spans
	LogFullSQL      bool          // Include query variables in spans (dev only)
	SlowQueryThresh time.Duration // Queries above this are flagged on their span
	DBSystem        string        // Database system name reported on spans
}

// DefaultDBTracingConfig returns default configuration for database tracing.
func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{
		SlowQueryThresh: 200 * time.Millisecond,
		DBSystem:        "postgresql",
	}
}

// DBTracingPlugin wires otelgorm spans, slow query flags and query metrics into a gorm DB.
type DBTracingPlugin struct {
	config        DBTracingConfig
	logger        *zap.Logger
	queryTotal    *Counter
	queryDuration *Histogram
}

// NewDBTracingPlugin creates a new database tracing plugin. meter may be nil to skip query metrics.
func NewDBTracingPlugin(cfg DBTracingConfig, meter metric.Meter, logger *zap.Logger) (*DBTracingPlugin, error) {
	if cfg.SlowQueryThresh == 0 {
		cfg.SlowQueryThresh = 200 * time.Millisecond
	}
	p := &DBTracingPlugin{config: cfg, logger: logger}
	if meter == nil {
		return p, nil
	}

	var err error
	p.queryTotal, err = NewCounter(meter, "db_query_total", "Total number of database queries by operation", "{query}")
	if err != nil {
		return nil, err
	}
	p.queryDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "db_query_duration_seconds",
		Description: "Database query latency distribution in seconds",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

type registerFunc func(name string, fn func(*gorm.DB)) error

// Register installs the instrumentation on db.
func (p *DBTracingPlugin) Register(db *gorm.DB) error {
	if p.config.Enabled {
		opts := []otelgorm.Option{otelgorm.WithDBName(p.config.DBSystem)}
		if !p.config.LogFullSQL {
			opts = append(opts, otelgorm.WithoutQueryVariables())
		}
		if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
			return err
		}
	}

	if !p.config.Enabled && p.queryTotal == nil {
		p.logger.Debug("Database instrumentation disabled")
		return nil
	}

	cb := db.Callback()
	hooks := []struct {
		op            string
		before, after registerFunc
	}{
		{"create", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"query", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"delete", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
		{"row", cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register},
		{"raw", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register},
	}
	for _, h := range hooks {
		if err := h.before("mason_timing:before_"+h.op, p.before); err != nil {
			return err
		}
		if err := h.after("mason_timing:after_"+h.op, p.after(h.op)); err != nil {
			return err
		}
	}

	p.logger.Info("Database instrumentation enabled",
		zap.Bool("tracing", p.config.Enabled),
		zap.Bool("metrics", p.queryTotal != nil),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh),
	)
	return nil
}

type contextKey string

const queryStartTimeKey contextKey = "mason_query_start_time"

func (p *DBTracingPlugin) before(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartTimeKey, time.Now())
	}
}

func (p *DBTracingPlugin) after(op string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			return
		}
		start, ok := ctx.Value(queryStartTimeKey).(time.Time)
		if !ok {
			return
		}
		elapsed := time.Since(start)

		if p.queryTotal != nil {
			attrs := []attribute.KeyValue{AttrDBOperation.String(op), AttrDBTable.String(db.Statement.Table)}
			p.queryTotal.Inc(ctx, attrs...)
			p.queryDuration.RecordDuration(ctx, elapsed, attrs...)
		}

		span := trace.SpanFromContext(ctx)
		if !span.IsRecording() {
			return
		}
		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
		if db.Statement.Table != "" {
			span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
		}
		if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, db.Error.Error())
			span.RecordError(db.Error)
		}
		if elapsed > p.config.SlowQueryThresh {
			span.SetAttributes(
				attribute.Bool("db.slow_query", true),
				attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
			)
			span.AddEvent("slow_query_warning", trace.WithAttributes(
				attribute.Int64("duration_ms", elapsed.Milliseconds()),
				attribute.Int64("threshold_ms", p.config.SlowQueryThresh.Milliseconds()),
			))
		}
	}
}

// RegisterPoolMetrics exposes connection pool statistics as observable gauges.
func RegisterPoolMetrics(meter metric.Meter, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	conns, err := meter.Int64ObservableGauge("db_pool_connections",
		metric.WithDescription("Number of connections in the pool by state"),
		metric.WithUnit("{connection}"))
	if err != nil {
		return err
	}
	maxConns, err := meter.Int64ObservableGauge("db_pool_connections_max",
		metric.WithDescription("Maximum number of open connections"),
		metric.WithUnit("{connection}"))
	if err != nil {
		return err
	}

	_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats := sqlDB.Stats()
		o.ObserveInt64(conns, int64(stats.InUse), metric.WithAttributes(AttrDBPoolState.String("in_use")))
		o.ObserveInt64(conns, int64(stats.Idle), metric.WithAttributes(AttrDBPoolState.String("idle")))
		o.ObserveInt64(maxConns, int64(stats.MaxOpenConnections))
		return nil
	}, conns, maxConns)
	return err
}
