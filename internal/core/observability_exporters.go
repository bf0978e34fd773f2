package core

import (
	"context"
	"expvar"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultExpvarName is the /debug/vars key used when METRICS_EXPVAR_NAME is unset.
const DefaultExpvarName = "labstock_service"

var expvarMu sync.Mutex

// ExpvarMetricsRecorder keeps per-operation counters in one expvar.Map so they
// show up on /debug/vars. Keys are "<op>.calls", "<op>.errors" and "<op>.ms".
type ExpvarMetricsRecorder struct {
	name string
	vars *expvar.Map
}

// NewExpvarMetricsRecorder publishes a recorder under name. expvar names are
// process-global, so a taken name gets a numeric suffix.
func NewExpvarMetricsRecorder(name string) *ExpvarMetricsRecorder {
	if name == "" {
		name = DefaultExpvarName
	}
	expvarMu.Lock()
	defer expvarMu.Unlock()
	candidate := name
	for i := 2; expvar.Get(candidate) != nil; i++ {
		candidate = fmt.Sprintf("%s_%d", name, i)
	}
	vars := new(expvar.Map).Init()
	expvar.Publish(candidate, vars)
	return &ExpvarMetricsRecorder{name: candidate, vars: vars}
}

// Name is the key the recorder is published under.
func (r *ExpvarMetricsRecorder) Name() string { return r.name }

// Observe implements MetricsRecorder.
func (r *ExpvarMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	r.vars.Add(operation+".calls", 1)
	if !success {
		r.vars.Add(operation+".errors", 1)
	}
	r.vars.AddFloat(operation+".ms", float64(duration)/float64(time.Millisecond))
}

// Calls returns how many times operation ran.
func (r *ExpvarMetricsRecorder) Calls(operation string) int64 {
	if v, ok := r.vars.Get(operation + ".calls").(*expvar.Int); ok {
		return v.Value()
	}
	return 0
}

// Errors returns how many runs of operation failed.
func (r *ExpvarMetricsRecorder) Errors(operation string) int64 {
	if v, ok := r.vars.Get(operation + ".errors").(*expvar.Int); ok {
		return v.Value()
	}
	return 0
}

// DurationMS returns the summed latency of operation in milliseconds.
func (r *ExpvarMetricsRecorder) DurationMS(operation string) float64 {
	if v, ok := r.vars.Get(operation + ".ms").(*expvar.Float); ok {
		return v.Value()
	}
	return 0
}

// traceKeep bounds the spans JSONTraceTracer holds for Recent.
const traceKeep = 256

// TraceEntry is one finished service operation.
type TraceEntry struct {
	SpanID     uint64
	ParentID   uint64
	Operation  string
	Status     AuditStatus
	Error      string
	StartedAt  time.Time
	DurationMS float64
}

// JSONTraceTracer writes finished spans as JSON lines through a zap core and
// keeps the most recent ones in memory. Spans started under another span's
// context record it as their parent.
type JSONTraceTracer struct {
	out    *zap.Logger
	seq    atomic.Uint64
	mu     sync.Mutex
	recent []TraceEntry
}

// NewJSONTracer returns a tracer writing to w. A nil w only keeps spans in memory.
func NewJSONTracer(w io.Writer) *JSONTraceTracer {
	t := &JSONTraceTracer{out: zap.NewNop()}
	if w != nil {
		enc := zapcore.NewJSONEncoder(zapcore.EncoderConfig{
			TimeKey:        "ts",
			MessageKey:     "msg",
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.MillisDurationEncoder,
		})
		t.out = zap.New(zapcore.NewCore(enc, zapcore.AddSync(w), zapcore.DebugLevel))
	}
	return t
}

type spanCtxKey struct{}

// Start implements Tracer.
func (t *JSONTraceTracer) Start(ctx context.Context, operation string) (context.Context, TraceSpan) {
	s := &jsonSpan{tracer: t, id: t.seq.Add(1), operation: operation, started: time.Now().UTC()}
	if parent, ok := ctx.Value(spanCtxKey{}).(uint64); ok {
		s.parent = parent
	}
	return context.WithValue(ctx, spanCtxKey{}, s.id), s
}

// Recent returns the retained spans, oldest first.
func (t *JSONTraceTracer) Recent() []TraceEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]TraceEntry(nil), t.recent...)
}

// Sync flushes the underlying writer when it buffers.
func (t *JSONTraceTracer) Sync() error { return t.out.Sync() }

func (t *JSONTraceTracer) finish(e TraceEntry) {
	fields := []zap.Field{
		zap.Uint64("span", e.SpanID),
		zap.String("operation", e.Operation),
		zap.String("status", string(e.Status)),
		zap.Time("started_at", e.StartedAt),
		zap.Float64("duration_ms", e.DurationMS),
	}
	if e.ParentID != 0 {
		fields = append(fields, zap.Uint64("parent", e.ParentID))
	}
	if e.Error != "" {
		fields = append(fields, zap.String("error", e.Error))
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.out.Info("span", fields...)
	t.recent = append(t.recent, e)
	if n := len(t.recent); n > traceKeep {
		t.recent = append(t.recent[:0], t.recent[n-traceKeep:]...)
	}
}

type jsonSpan struct {
	tracer    *JSONTraceTracer
	id        uint64
	parent    uint64
	operation string
	started   time.Time
	once      sync.Once
}

func (s *jsonSpan) End(err error) {
	s.once.Do(func() {
		e := TraceEntry{
			SpanID:     s.id,
			ParentID:   s.parent,
			Operation:  s.operation,
			Status:     AuditStatusSuccess,
			StartedAt:  s.started,
			DurationMS: float64(time.Since(s.started)) / float64(time.Millisecond),
		}
		if err != nil {
			e.Status = AuditStatusError
			e.Error = err.Error()
		}
		s.tracer.finish(e)
	})
}
