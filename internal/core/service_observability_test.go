package core

import (
	"bytes"
	"context"
	"errors"
	"expvar"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"labstock/pkg/domain"
)

type captureAuditRecorder struct {
	entries []AuditEntry
}

func (c *captureAuditRecorder) Record(_ context.Context, entry AuditEntry) {
	c.entries = append(c.entries, entry)
}

func (c *captureAuditRecorder) has(op string, status AuditStatus) bool {
	for _, entry := range c.entries {
		if entry.Operation == op && entry.Status == status {
			return true
		}
	}
	return false
}

type captureMetricsRecorder struct {
	ops map[string][]bool
}

func (c *captureMetricsRecorder) Observe(_ context.Context, op string, success bool, _ time.Duration) {
	if c.ops == nil {
		c.ops = make(map[string][]bool)
	}
	c.ops[op] = append(c.ops[op], success)
}

type captureTracer struct {
	ended map[string]error
}

func (c *captureTracer) Start(ctx context.Context, op string) (context.Context, TraceSpan) {
	return ctx, spanFunc(func(err error) {
		if c.ended == nil {
			c.ended = make(map[string]error)
		}
		c.ended[op] = err
	})
}

type spanFunc func(error)

func (f spanFunc) End(err error) { f(err) }

func TestServiceObservabilityHooks(t *testing.T) {
	audit := &captureAuditRecorder{}
	metrics := &captureMetricsRecorder{}
	tracer := &captureTracer{}
	f := newFixture(t, WithAuditRecorder(audit), WithMetricsRecorder(metrics), WithTracer(tracer))
	ctx := context.Background()

	c := f.addChemical(t, "Acetone", 12, 15, 40)
	if _, _, err := f.svc.RecordTransaction(ctx, TransactionRequest{ChemicalID: c.ID, Type: domain.TransactionOut, Quantity: decimal.NewFromInt(100)}); err == nil {
		t.Fatalf("expected overdraw to fail")
	}

	if !audit.has("add_chemical", AuditStatusSuccess) || !audit.has("record_transaction", AuditStatusError) {
		t.Fatalf("unexpected audit entries: %+v", audit.entries)
	}
	for _, entry := range audit.entries {
		if entry.Operation == "add_chemical" && (entry.EntityID != c.ID || entry.Actor != "Dr. Chen") {
			t.Fatalf("expected entity id and actor on audit entry, got %+v", entry)
		}
	}
	if got := metrics.ops["record_transaction"]; len(got) != 1 || got[0] {
		t.Fatalf("expected one failed record_transaction observation, got %v", got)
	}
	if err, ok := tracer.ended["record_transaction"]; !ok || err == nil {
		t.Fatalf("expected failed span for record_transaction")
	}
	if err := tracer.ended["add_chemical"]; err != nil {
		t.Fatalf("expected successful span, got %v", err)
	}
}

func TestServiceLogsRuleWarnings(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	f := newFixture(t, WithLogger(NewZapLogger(zap.New(core))), WithAuditRecorder(NewZapAuditRecorder(zap.New(core))))
	f.addChemical(t, "Sulfuric Acid (98%)", 4, 5, 10)
	if logs.FilterMessage("rule warning").Len() == 0 {
		t.Fatalf("expected rule warning log, got %+v", logs.All())
	}
	if logs.FilterMessage("operation completed").FilterField(zap.String("operation", "add_chemical")).Len() == 0 {
		t.Fatalf("expected audit log line")
	}
}

func TestNoopImplementations(t *testing.T) {
	var logger noopLogger
	logger.Debug("noop")
	logger.Info("noop")
	logger.Warn("noop")
	logger.Error("noop")
	noopAuditRecorder{}.Record(context.Background(), AuditEntry{})
	noopMetricsRecorder{}.Observe(context.Background(), "noop", true, 0)
	ctx, span := noopTracer{}.Start(context.Background(), "op")
	if ctx == nil {
		t.Fatalf("expected context from tracer")
	}
	span.End(nil)
	if _, ok := NewZapLogger(nil).(noopLogger); !ok {
		t.Fatalf("expected nil zap logger to fall back to noop")
	}
}

func TestExpvarMetricsRecorderExports(t *testing.T) {
	recorder := NewExpvarMetricsRecorder("labstock_test_ops")
	recorder.Observe(context.Background(), "record_transaction", true, 10*time.Millisecond)
	recorder.Observe(context.Background(), "record_transaction", false, 5*time.Millisecond)
	recorder.Observe(context.Background(), "", true, time.Millisecond)

	if recorder.Calls("record_transaction") != 2 || recorder.Errors("record_transaction") != 1 {
		t.Fatalf("unexpected counters calls=%d errors=%d", recorder.Calls("record_transaction"), recorder.Errors("record_transaction"))
	}
	if ms := recorder.DurationMS("record_transaction"); ms < 15 {
		t.Fatalf("expected at least 15ms, got %v", ms)
	}
	if recorder.Calls("open_unit") != 0 {
		t.Fatalf("unobserved operation should read zero")
	}
	v := expvar.Get(recorder.Name())
	if v == nil || !strings.Contains(v.String(), `"record_transaction.calls": 2`) {
		t.Fatalf("expected expvar export with counters, got %v", v)
	}

	second := NewExpvarMetricsRecorder("labstock_test_ops")
	if second.Name() == recorder.Name() || !strings.HasPrefix(second.Name(), "labstock_test_ops_") {
		t.Fatalf("expected a suffixed name for a taken key, got %q", second.Name())
	}
	if NewExpvarMetricsRecorder("").Name() == "" {
		t.Fatalf("expected default name")
	}
}

func TestJSONTraceTracerWritesSpans(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewJSONTracer(&buf)
	ctx, outer := tracer.Start(context.Background(), "record_transaction")
	_, inner := tracer.Start(ctx, "compute_reorder")
	inner.End(errors.New("stock unavailable"))
	outer.End(nil)
	outer.End(errors.New("ignored"))

	spans := tracer.Recent()
	if len(spans) != 2 {
		t.Fatalf("expected two spans, got %+v", spans)
	}
	if spans[0].Operation != "compute_reorder" || spans[0].Status != AuditStatusError || spans[0].ParentID != spans[1].SpanID {
		t.Fatalf("unexpected inner span %+v", spans[0])
	}
	if spans[1].Operation != "record_transaction" || spans[1].Status != AuditStatusSuccess || spans[1].ParentID != 0 {
		t.Fatalf("unexpected outer span %+v", spans[1])
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected two JSON lines, got %q", buf.String())
	}
	if !strings.Contains(lines[0], `"operation":"compute_reorder"`) || !strings.Contains(lines[0], `"error":"stock unavailable"`) {
		t.Fatalf("unexpected inner line %s", lines[0])
	}
	if !strings.Contains(lines[1], `"status":"success"`) || strings.Contains(lines[1], `"parent"`) {
		t.Fatalf("unexpected outer line %s", lines[1])
	}
}

func TestJSONTraceTracerKeepsRecentSpans(t *testing.T) {
	tracer := NewJSONTracer(nil)
	for i := 0; i < traceKeep+10; i++ {
		_, span := tracer.Start(context.Background(), "list_chemicals")
		span.End(nil)
	}
	spans := tracer.Recent()
	if len(spans) != traceKeep || spans[0].SpanID != 11 {
		t.Fatalf("expected the last %d spans, got %d starting at %d", traceKeep, len(spans), spans[0].SpanID)
	}
	if err := tracer.Sync(); err != nil {
		t.Fatalf("sync: %v", err)
	}
}

func TestServiceRunsUnderJSONTracer(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewJSONTracer(&buf)
	metrics := NewExpvarMetricsRecorder("")
	f := newFixture(t, WithTracer(tracer), WithMetricsRecorder(metrics))
	c := f.addChemical(t, "Acetone", 4, 5, 10)

	if _, _, err := f.svc.RecordTransaction(context.Background(), TransactionRequest{ChemicalID: c.ID, Type: domain.TransactionOut, Quantity: decimal.NewFromInt(9)}); err == nil {
		t.Fatalf("expected overdraw to fail")
	}
	var failed bool
	for _, span := range tracer.Recent() {
		if span.Operation == "record_transaction" && span.Status == AuditStatusError {
			failed = true
		}
	}
	if !failed || !strings.Contains(buf.String(), "record_transaction") {
		t.Fatalf("expected failed record_transaction span, got %+v", tracer.Recent())
	}
	if metrics.Errors("record_transaction") != 1 || metrics.Calls("add_chemical") != 1 {
		t.Fatalf("unexpected counters record=%d add=%d", metrics.Errors("record_transaction"), metrics.Calls("add_chemical"))
	}
}

func TestPrometheusMetricsRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	rec.Observe(context.Background(), "open_unit", true, time.Millisecond)
	rec.Observe(context.Background(), "open_unit", false, time.Millisecond)
	rec.Observe(context.Background(), "open_unit", true, time.Millisecond)

	if got := testutil.ToFloat64(rec.results.WithLabelValues("open_unit", "success")); got != 2 {
		t.Fatalf("expected 2 successes, got %v", got)
	}
	again, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("re-register should reuse collectors: %v", err)
	}
	if got := testutil.ToFloat64(again.results.WithLabelValues("open_unit", "error")); got != 1 {
		t.Fatalf("expected shared collector, got %v", got)
	}
}
