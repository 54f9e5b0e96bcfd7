// src/pkg/logger/ctx_zap_logger.go
package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// CtxZapLogger context-aware zap logger handle.
// A handle is bound to a logger name, not to a configuration: every record loads
// the context's current State once, so it is written either entirely under the old
// configuration or entirely under the new one.
// Usage:
//
//	log := lc.Logger("order.payment")
//	log.InfoCtx(ctx, "Create order", zap.String("id", "42"))
type CtxZapLogger struct {
	lc     *Context
	name   string
	fields []zap.Field
}

// Name logger name the handle resolves
func (l *CtxZapLogger) Name() string {
	return l.name
}

// InfoCtx logs at info level with the trace id taken from ctx
func (l *CtxZapLogger) InfoCtx(ctx context.Context, msg string, fields ...zap.Field) {
	l.log(ctx, zapcore.InfoLevel, msg, fields)
}

// Info logs at info level without a context
func (l *CtxZapLogger) Info(msg string, fields ...zap.Field) {
	l.log(context.Background(), zapcore.InfoLevel, msg, fields)
}

// ErrorCtx logs at error level with the trace id and, when enabled, a stack
func (l *CtxZapLogger) ErrorCtx(ctx context.Context, msg string, fields ...zap.Field) {
	l.log(ctx, zapcore.ErrorLevel, msg, fields)
}

// Error logs at error level without a context
func (l *CtxZapLogger) Error(msg string, fields ...zap.Field) {
	l.log(context.Background(), zapcore.ErrorLevel, msg, fields)
}

// DebugCtx logs at debug level with the trace id taken from ctx
func (l *CtxZapLogger) DebugCtx(ctx context.Context, msg string, fields ...zap.Field) {
	l.log(ctx, zapcore.DebugLevel, msg, fields)
}

// Debug logs at debug level without a context
func (l *CtxZapLogger) Debug(msg string, fields ...zap.Field) {
	l.log(context.Background(), zapcore.DebugLevel, msg, fields)
}

// WarnCtx logs at warn level with the trace id taken from ctx
func (l *CtxZapLogger) WarnCtx(ctx context.Context, msg string, fields ...zap.Field) {
	l.log(ctx, zapcore.WarnLevel, msg, fields)
}

// Warn logs at warn level without a context
func (l *CtxZapLogger) Warn(msg string, fields ...zap.Field) {
	l.log(context.Background(), zapcore.WarnLevel, msg, fields)
}

// Enabled reports whether a record at lvl would be written right now
func (l *CtxZapLogger) Enabled(lvl zapcore.Level) bool {
	return l.lc.state.Load().zapLogger(l.name).Core().Enabled(lvl)
}

// With returns a handle that adds fields to every record
// Usage:
//
//	orderLogger := logger.With(zap.Int64("order_id", 123))
//	orderLogger.InfoCtx(ctx, "Processing order") // carries order_id
func (l *CtxZapLogger) With(fields ...zap.Field) *CtxZapLogger {
	merged := make([]zap.Field, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	merged = append(merged, fields...)
	return &CtxZapLogger{lc: l.lc, name: l.name, fields: merged}
}

func (l *CtxZapLogger) log(ctx context.Context, lvl zapcore.Level, msg string, fields []zap.Field) {
	base := l.lc.state.Load().zapLogger(l.name)
	if ce := base.Check(lvl, msg); ce != nil {
		ce.Write(l.enrichFields(ctx, lvl, fields)...)
	}
}

// enrichFields adds app_name, the trace id and the stack
func (l *CtxZapLogger) enrichFields(ctx context.Context, lvl zapcore.Level, fields []zap.Field) []zap.Field {
	opts := l.lc.options
	enriched := make([]zap.Field, 0, len(l.fields)+len(fields)+3)

	if opts.AppName != "" {
		enriched = append(enriched, zap.String("app_name", opts.AppName))
	}

	if opts.EnableTraceID {
		if traceID := extractTraceIDFromContext(ctx, opts); traceID != "" {
			fieldName := "trace_id"
			if opts.TraceIDFieldName != "" {
				fieldName = opts.TraceIDFieldName
			}
			enriched = append(enriched, zap.String(fieldName, traceID))
		}
	}

	enriched = append(enriched, l.fields...)
	enriched = append(enriched, fields...)

	if opts.EnableStacktrace && lvl >= opts.StacktraceLevel {
		depth := opts.StacktraceDepth
		if depth <= 0 {
			depth = 10
		}
		// skip=5: Callers -> CaptureStacktrace -> enrichFields -> log -> ErrorCtx -> caller
		if stack := CaptureStacktrace(5, depth); stack != "" {
			enriched = append(enriched, zap.String("stack", stack))
		}
	}

	return enriched
}

// extractTraceIDFromContext looks in the OpenTelemetry span first, then the
// configured context key, then "trace_id"
func extractTraceIDFromContext(ctx context.Context, opts Options) string {
	if ctx == nil {
		return ""
	}

	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		return span.SpanContext().TraceID().String()
	}

	if opts.TraceIDKey != "" {
		if traceID, ok := ctx.Value(opts.TraceIDKey).(string); ok {
			return traceID
		}
	}

	if traceID, ok := ctx.Value("trace_id").(string); ok {
		return traceID
	}
	return ""
}
