// Package logger holds the process-wide zap logger. It writes JSON lines to
// a rotating file and human-readable lines to stdout.
package logger

import (
	"context"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ServiceEnv tags every line with where it came from.
type ServiceEnv struct {
	Platform string
	Service  string
	Env      string
}

// LogConfig configures Init.
type LogConfig struct {
	Path       string
	LogLevel   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	ServiceEnv ServiceEnv
}

type ctxKey struct{}

var (
	mu     sync.RWMutex
	global = zap.NewNop()
	rotate *lumberjack.Logger
)

// Init replaces the global logger. An empty Path logs to stdout only.
func Init(conf *LogConfig) {
	level := zapcore.InfoLevel
	if conf.LogLevel != "" {
		if parsed, err := zapcore.ParseLevel(conf.LogLevel); err == nil {
			level = parsed
		}
	}

	consoleCfg := zap.NewDevelopmentEncoderConfig()
	consoleCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.Lock(os.Stdout), level),
	}

	var file *lumberjack.Logger
	if conf.Path != "" {
		file = &lumberjack.Logger{
			Filename:   conf.Path,
			MaxSize:    orDefault(conf.MaxSizeMB, 100),
			MaxBackups: orDefault(conf.MaxBackups, 7),
			MaxAge:     orDefault(conf.MaxAgeDays, 30),
			Compress:   true,
		}
		fileCfg := zap.NewProductionEncoderConfig()
		fileCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(fileCfg), zapcore.AddSync(file), level))
	}

	l := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1)).With(
		zap.String("platform", conf.ServiceEnv.Platform),
		zap.String("service", conf.ServiceEnv.Service),
		zap.String("env", conf.ServiceEnv.Env),
	)
	Set(l)

	mu.Lock()
	prev := rotate
	rotate = file
	mu.Unlock()
	if prev != nil {
		_ = prev.Close()
	}
}

// Set installs l as the global logger; tests use it with zaptest loggers.
func Set(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	mu.Lock()
	global = l
	mu.Unlock()
}

// L returns the global logger without the caller skip used by the f helpers.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global.WithOptions(zap.AddCallerSkip(-1))
}

// Close flushes buffered entries and closes the rotating file.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	_ = global.Sync()
	if rotate != nil {
		_ = rotate.Close()
		rotate = nil
	}
}

// WithRequestID stores a request id that the f helpers attach to each line.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// RequestID returns the id stored by WithRequestID.
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

func sugar(ctx context.Context) *zap.SugaredLogger {
	mu.RLock()
	l := global
	mu.RUnlock()
	if id := RequestID(ctx); id != "" {
		l = l.With(zap.String("request_id", id))
	}
	return l.Sugar()
}

func Debugf(ctx context.Context, format string, args ...any) { sugar(ctx).Debugf(format, args...) }
func Infof(ctx context.Context, format string, args ...any)  { sugar(ctx).Infof(format, args...) }
func Warnf(ctx context.Context, format string, args ...any)  { sugar(ctx).Warnf(format, args...) }
func Errorf(ctx context.Context, format string, args ...any) { sugar(ctx).Errorf(format, args...) }

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
