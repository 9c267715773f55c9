package logger

import (
	"context"

	"github.com/erp/mason/pkg/state"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

const (
	loggerKey    contextKey = "logger"
	requestIDKey contextKey = "request_id"
	userIDKey    contextKey = "user_id"
	actionKey    contextKey = "action"
)

// WithContext returns a new context with the logger attached
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext retrieves the logger from context, or a no-op logger if absent
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// WithRequestID records the request ID in the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithUserID records the authenticated user ID in the context
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// WithAction records the viewset action being served (list, retrieve, ...)
func WithAction(ctx context.Context, action string) context.Context {
	return context.WithValue(ctx, actionKey, action)
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}

// GetUserID retrieves the user ID from context
func GetUserID(ctx context.Context) string {
	v, _ := ctx.Value(userIDKey).(string)
	return v
}

// GetAction retrieves the viewset action from context. Without an explicit
// value it falls back to the action recorded in the request state.
func GetAction(ctx context.Context) string {
	if v, _ := ctx.Value(actionKey).(string); v != "" {
		return v
	}
	if st := state.FromContext(ctx); st != nil {
		if a := st.Action(); a != "" {
			return st.ViewSet() + "." + a
		}
	}
	return ""
}

// GetTraceID extracts the trace ID from the context's span, or "" without a valid span
func GetTraceID(ctx context.Context) string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return ""
	}
	return spanCtx.TraceID().String()
}

// ContextLogger injects trace and request identifiers into every entry.
type ContextLogger struct {
	ctx    context.Context
	logger *zap.Logger
}

// L returns a ContextLogger for ctx.
// Usage: logger.L(ctx).Info("message", zap.String("key", "value"))
func L(ctx context.Context) *ContextLogger {
	return &ContextLogger{ctx: ctx, logger: FromContext(ctx)}
}

// WithLogger returns a ContextLogger backed by the given logger instead of the context one
func WithLogger(ctx context.Context, logger *zap.Logger) *ContextLogger {
	return &ContextLogger{ctx: ctx, logger: logger}
}

func (cl *ContextLogger) fields() []zap.Field {
	var fields []zap.Field
	if spanCtx := trace.SpanContextFromContext(cl.ctx); spanCtx.IsValid() {
		fields = append(fields,
			zap.String("trace_id", spanCtx.TraceID().String()),
			zap.String("span_id", spanCtx.SpanID().String()),
		)
	}
	if v := GetRequestID(cl.ctx); v != "" {
		fields = append(fields, zap.String("request_id", v))
	}
	if v := GetUserID(cl.ctx); v != "" {
		fields = append(fields, zap.String("user_id", v))
	}
	if v := GetAction(cl.ctx); v != "" {
		fields = append(fields, zap.String("action", v))
	}
	return fields
}

// Zap returns the underlying logger enriched with context fields
func (cl *ContextLogger) Zap() *zap.Logger {
	l := cl.logger
	if l == nil {
		l = zap.NewNop()
	}
	return l.With(cl.fields()...)
}

// With creates a child ContextLogger with additional fields
func (cl *ContextLogger) With(fields ...zap.Field) *ContextLogger {
	l := cl.logger
	if l == nil {
		l = zap.NewNop()
	}
	return &ContextLogger{ctx: cl.ctx, logger: l.With(fields...)}
}

// Debug logs a debug level message
func (cl *ContextLogger) Debug(msg string, fields ...zap.Field) { cl.Zap().Debug(msg, fields...) }

// Info logs an info level message
func (cl *ContextLogger) Info(msg string, fields ...zap.Field) { cl.Zap().Info(msg, fields...) }

// Warn logs a warning level message
func (cl *ContextLogger) Warn(msg string, fields ...zap.Field) { cl.Zap().Warn(msg, fields...) }

// Error logs an error level message
func (cl *ContextLogger) Error(msg string, fields ...zap.Field) { cl.Zap().Error(msg, fields...) }
