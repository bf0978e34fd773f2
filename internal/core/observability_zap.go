package core

import (
	"context"

	"go.uber.org/zap"
)

type zapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZapLogger adapts a zap logger to the service Logger interface.
func NewZapLogger(l *zap.Logger) Logger {
	if l == nil {
		return noopLogger{}
	}
	return zapLogger{sugar: l.Sugar()}
}

func (l zapLogger) Debug(msg string, args ...any) { l.sugar.Debugw(msg, args...) }
func (l zapLogger) Info(msg string, args ...any)  { l.sugar.Infow(msg, args...) }
func (l zapLogger) Warn(msg string, args ...any)  { l.sugar.Warnw(msg, args...) }
func (l zapLogger) Error(msg string, args ...any) { l.sugar.Errorw(msg, args...) }

// ZapAuditRecorder writes audit entries as structured log lines.
type ZapAuditRecorder struct {
	log *zap.Logger
}

// NewZapAuditRecorder returns a recorder logging to l under the "audit" name.
func NewZapAuditRecorder(l *zap.Logger) *ZapAuditRecorder {
	if l == nil {
		l = zap.NewNop()
	}
	return &ZapAuditRecorder{log: l.Named("audit")}
}

// Record implements AuditRecorder.
func (r *ZapAuditRecorder) Record(_ context.Context, entry AuditEntry) {
	fields := []zap.Field{
		zap.String("operation", entry.Operation),
		zap.String("entity", string(entry.Entity)),
		zap.String("entity_id", entry.EntityID),
		zap.String("actor", entry.Actor),
		zap.String("status", string(entry.Status)),
		zap.Duration("duration", entry.Duration),
		zap.Time("timestamp", entry.Timestamp),
	}
	if len(entry.Violations) > 0 {
		rules := make([]string, 0, len(entry.Violations))
		for _, v := range entry.Violations {
			rules = append(rules, v.Rule)
		}
		fields = append(fields, zap.Strings("violations", rules))
	}
	if entry.Status == AuditStatusError {
		r.log.Warn("operation failed", append(fields, zap.String("error", entry.Error))...)
		return
	}
	r.log.Info("operation completed", fields...)
}
