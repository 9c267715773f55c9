package logger

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// GormLogger routes GORM output into zap. Query entries carry the request
// identifiers found on the statement context, so SQL emitted by a viewset
// action can be matched to the access log line of the same request.
type GormLogger struct {
	base          *zap.Logger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
	maxSQLLength  int
	logNotFound   bool
}

// GormLoggerOption configures a GormLogger
type GormLoggerOption func(*GormLogger)

// WithSlowThreshold sets the duration above which a query is logged as slow.
// Zero disables slow query reporting.
func WithSlowThreshold(threshold time.Duration) GormLoggerOption {
	return func(l *GormLogger) { l.slowThreshold = threshold }
}

// WithMaxSQLLength truncates logged statements to n bytes. Zero keeps them whole.
func WithMaxSQLLength(n int) GormLoggerOption {
	return func(l *GormLogger) { l.maxSQLLength = n }
}

// WithLogRecordNotFound logs gorm.ErrRecordNotFound as an error. Retrieve
// misses are ordinary 404s, so they are skipped by default.
func WithLogRecordNotFound() GormLoggerOption {
	return func(l *GormLogger) { l.logNotFound = true }
}

// NewGormLogger creates a GORM logger backed by zap
func NewGormLogger(zapLogger *zap.Logger, level gormlogger.LogLevel, opts ...GormLoggerOption) *GormLogger {
	if zapLogger == nil {
		zapLogger = zap.NewNop()
	}
	gl := &GormLogger{
		base:          zapLogger.Named("gorm"),
		level:         level,
		slowThreshold: 200 * time.Millisecond,
		maxSQLLength:  2048,
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

// Info implements gormlogger.Interface
func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Info, msg, data)
}

// Warn implements gormlogger.Interface
func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Warn, msg, data)
}

// Error implements gormlogger.Interface
func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Error, msg, data)
}

func (l *GormLogger) printf(ctx context.Context, level gormlogger.LogLevel, msg string, data []any) {
	if l.level < level {
		return
	}
	sugar := WithLogger(ctx, l.base).Zap().Sugar()
	switch level {
	case gormlogger.Error:
		sugar.Errorf(msg, data...)
	case gormlogger.Warn:
		sugar.Warnf(msg, data...)
	default:
		sugar.Infof(msg, data...)
	}
}

// Trace implements gormlogger.Interface and logs executed SQL
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	failed := err != nil && (l.logNotFound || !errors.Is(err, gormlogger.ErrRecordNotFound))
	slow := l.slowThreshold > 0 && elapsed > l.slowThreshold

	var level gormlogger.LogLevel
	switch {
	case failed:
		level = gormlogger.Error
	case slow:
		level = gormlogger.Warn
	case err == nil:
		level = gormlogger.Info
	default:
		return
	}
	if l.level < level {
		return
	}

	sql, rows := fc()
	log := WithLogger(ctx, l.base).With(
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", l.truncate(sql)),
	)
	switch level {
	case gormlogger.Error:
		log.Error("SQL error", zap.Error(err))
	case gormlogger.Warn:
		log.Warn("Slow SQL", zap.Duration("threshold", l.slowThreshold))
	default:
		log.Debug("SQL query")
	}
}

func (l *GormLogger) truncate(sql string) string {
	if l.maxSQLLength <= 0 || len(sql) <= l.maxSQLLength {
		return sql
	}
	return sql[:l.maxSQLLength] + "...(truncated)"
}

// MapGormLogLevel maps a string log level to a GORM log level
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "warn":
		return gormlogger.Warn
	case "info", "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
