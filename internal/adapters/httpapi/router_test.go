package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"labstock/internal/blob"
	"labstock/internal/core"
	"labstock/internal/infra/persistence/memory"
	"labstock/internal/report"
	"labstock/internal/seed"
	"labstock/pkg/domain"
)

type envelope struct {
	Data       json.RawMessage `json:"data"`
	Violations []violationBody `json:"violations"`
	Error      *errorBody      `json:"error"`
}

type testServer struct {
	engine  *gin.Engine
	worker  *report.Worker
	service *core.Service
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	now := time.Now().UTC()
	store := memory.NewStore(core.NewDefaultRulesEngine())
	ds := seed.Default(now)
	if _, _, err := seed.Load(context.Background(), store, ds); err != nil {
		t.Fatalf("seed: %v", err)
	}

	reg := prometheus.NewRegistry()
	metrics, err := core.NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	svc := core.NewService(store,
		core.WithCostTable(ds.Costs),
		core.WithSettings(ds.Settings),
		core.WithMetricsRecorder(metrics),
	)

	worker := report.NewWorker(blob.NewMemory(), map[report.Format]report.Generator{
		report.FormatMarkdown: report.MarkdownGenerator{},
		report.FormatXLSX:     report.XLSXGenerator{},
	})
	worker.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = worker.Stop(ctx)
	})

	g := gin.New()
	NewRouter(g, svc, Options{
		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Reports: worker,
	})
	return &testServer{engine: g, worker: worker, service: svc}
}

func (s *testServer) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode %s %s: %v (%s)", method, path, err, rec.Body.String())
		}
	}
	return rec, env
}

func TestHealthAndRequestID(t *testing.T) {
	s := newTestServer(t)
	rec, _ := s.do(t, http.MethodGet, "/api/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health: %d", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected generated request id")
	}
}

func TestListAndGetChemicals(t *testing.T) {
	s := newTestServer(t)
	rec, env := s.do(t, http.MethodGet, "/api/v1/chemicals", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: %d %s", rec.Code, rec.Body.String())
	}
	var chems []domain.Chemical
	if err := json.Unmarshal(env.Data, &chems); err != nil {
		t.Fatalf("decode chemicals: %v", err)
	}
	if len(chems) != 5 {
		t.Fatalf("expected 5 chemicals, got %d", len(chems))
	}

	rec, env = s.do(t, http.MethodGet, "/api/v1/chemicals/missing", nil)
	if rec.Code != http.StatusNotFound || env.Error == nil || env.Error.Code != "not_found" {
		t.Fatalf("expected not_found, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestAddAndUpdateChemical(t *testing.T) {
	s := newTestServer(t)
	rec, env := s.do(t, http.MethodPost, "/api/v1/chemicals", domain.ChemicalDraft{
		Name: "Methanol", Unit: "Bottle", PackageSize: "4L", CurrentStock: decimal.NewFromInt(6), MinLevel: 2, TargetLevel: 8,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add: %d %s", rec.Code, rec.Body.String())
	}
	var created domain.Chemical
	if err := json.Unmarshal(env.Data, &created); err != nil || created.ID == "" {
		t.Fatalf("decode created: %v %+v", err, created)
	}

	rec, env = s.do(t, http.MethodPut, "/api/v1/chemicals/"+created.ID, domain.ChemicalDraft{
		Name: "Methanol (HPLC)", Unit: "Bottle", PackageSize: "4L", CurrentStock: decimal.NewFromInt(99), MinLevel: 3, TargetLevel: 10,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: %d %s", rec.Code, rec.Body.String())
	}
	var updated domain.Chemical
	if err := json.Unmarshal(env.Data, &updated); err != nil {
		t.Fatalf("decode updated: %v", err)
	}
	if updated.Name != "Methanol (HPLC)" || !updated.CurrentStock.Equal(decimal.NewFromInt(6)) || updated.MinLevel != 3 {
		t.Fatalf("unexpected update result %+v", updated)
	}
}

func TestRecordTransaction(t *testing.T) {
	s := newTestServer(t)
	reason := "Synthesis"
	rec, env := s.do(t, http.MethodPost, "/api/v1/transactions", core.TransactionRequest{
		ChemicalID: "c3", Type: domain.TransactionOut, Quantity: decimal.NewFromInt(5), Reason: &reason,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("record: %d %s", rec.Code, rec.Body.String())
	}
	var tr domain.Transaction
	if err := json.Unmarshal(env.Data, &tr); err != nil {
		t.Fatalf("decode transaction: %v", err)
	}
	if tr.ChemicalName != "Ethanol (Absolute)" || tr.User != "Dr. Chen" {
		t.Fatalf("unexpected transaction %+v", tr)
	}

	_, env = s.do(t, http.MethodGet, "/api/v1/chemicals/c3", nil)
	var chem domain.Chemical
	if err := json.Unmarshal(env.Data, &chem); err != nil {
		t.Fatalf("decode chemical: %v", err)
	}
	if !chem.CurrentStock.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("expected stock 20, got %s", chem.CurrentStock)
	}

	rec, env = s.do(t, http.MethodPost, "/api/v1/transactions", core.TransactionRequest{
		ChemicalID: "c2", Type: domain.TransactionOut, Quantity: decimal.NewFromInt(9),
	})
	if rec.Code != http.StatusConflict || env.Error == nil || env.Error.Code != "insufficient_stock" {
		t.Fatalf("expected insufficient_stock, got %d %s", rec.Code, rec.Body.String())
	}
	if env.Error.Available == nil || !env.Error.Available.Equal(decimal.NewFromInt(4)) {
		t.Fatalf("expected available=4, got %+v", env.Error)
	}

	rec, _ = s.do(t, http.MethodGet, "/api/v1/transactions", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list transactions: %d", rec.Code)
	}
}

func TestUnitLevelValidation(t *testing.T) {
	s := newTestServer(t)
	rec, env := s.do(t, http.MethodPut, "/api/v1/chemicals/c1/units/u1", map[string]int{"remaining": 30})
	if rec.Code != http.StatusBadRequest || env.Error == nil || env.Error.Code != "invalid_input" {
		t.Fatalf("expected invalid_input, got %d %s", rec.Code, rec.Body.String())
	}
	rec, _ = s.do(t, http.MethodPut, "/api/v1/chemicals/c1/units/u1", map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing remaining should be rejected, got %d", rec.Code)
	}
	rec, _ = s.do(t, http.MethodPut, "/api/v1/chemicals/c1/units/u1", map[string]int{"remaining": 75})
	if rec.Code != http.StatusOK {
		t.Fatalf("set level: %d %s", rec.Code, rec.Body.String())
	}
	rec, _ = s.do(t, http.MethodDelete, "/api/v1/chemicals/c1/units/u1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("close unit: %d %s", rec.Code, rec.Body.String())
	}
	rec, _ = s.do(t, http.MethodPost, "/api/v1/chemicals/c1/units", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("open unit: %d %s", rec.Code, rec.Body.String())
	}
}

func TestUserEndpoints(t *testing.T) {
	s := newTestServer(t)
	rec, env := s.do(t, http.MethodPut, "/api/v1/users/current", map[string]string{"id": "u2"})
	if rec.Code != http.StatusOK {
		t.Fatalf("set current: %d %s", rec.Code, rec.Body.String())
	}
	_, env = s.do(t, http.MethodGet, "/api/v1/users/current", nil)
	var current domain.User
	if err := json.Unmarshal(env.Data, &current); err != nil || current.Name != "Sarah Lin" {
		t.Fatalf("unexpected current user %+v (%v)", current, err)
	}

	rec, env = s.do(t, http.MethodDelete, "/api/v1/users/nobody", nil)
	if rec.Code != http.StatusNotFound || env.Error == nil {
		t.Fatalf("expected 404, got %d %s", rec.Code, rec.Body.String())
	}

	rec, _ = s.do(t, http.MethodPost, "/api/v1/users", map[string]string{"name": "Lee"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing role should be rejected, got %d", rec.Code)
	}
}

func TestReorderCurrency(t *testing.T) {
	s := newTestServer(t)
	rec, env := s.do(t, http.MethodGet, "/api/v1/reorder?currency=usd", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("reorder: %d %s", rec.Code, rec.Body.String())
	}
	var plan struct {
		Items     []core.ReorderItem `json:"items"`
		TotalCost decimal.Decimal    `json:"total_cost"`
		Symbol    string             `json:"symbol"`
	}
	if err := json.Unmarshal(env.Data, &plan); err != nil {
		t.Fatalf("decode plan: %v", err)
	}
	if len(plan.Items) != 3 || !plan.TotalCost.Equal(decimal.NewFromInt(1706)) || plan.Symbol != "$" {
		t.Fatalf("unexpected plan %+v", plan)
	}

	rec, env = s.do(t, http.MethodGet, "/api/v1/reorder?currency=EUR", nil)
	if rec.Code != http.StatusBadRequest || env.Error == nil || env.Error.Field != "currency" {
		t.Fatalf("expected currency rejection, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestDashboard(t *testing.T) {
	s := newTestServer(t)
	rec, env := s.do(t, http.MethodGet, "/api/v1/dashboard", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard: %d", rec.Code)
	}
	var d core.Dashboard
	if err := json.Unmarshal(env.Data, &d); err != nil {
		t.Fatalf("decode dashboard: %v", err)
	}
	if d.ChemicalTypes != 5 || d.LowStockCount != 3 {
		t.Fatalf("unexpected dashboard %+v", d)
	}
}

func TestReportLifecycle(t *testing.T) {
	s := newTestServer(t)
	rec, env := s.do(t, http.MethodPost, "/api/v1/reports", map[string]string{"format": "markdown"})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("create report: %d %s", rec.Code, rec.Body.String())
	}
	var job report.Job
	if err := json.Unmarshal(env.Data, &job); err != nil || job.ID == "" {
		t.Fatalf("decode job: %v %+v", err, job)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		got, ok := s.worker.Get(job.ID)
		if ok && (got.Status == report.StatusSucceeded || got.Status == report.StatusFailed) {
			if got.Status != report.StatusSucceeded {
				t.Fatalf("report failed: %s", got.Error)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("report did not finish")
		}
		time.Sleep(10 * time.Millisecond)
	}

	rec, _ = s.do(t, http.MethodGet, "/api/v1/reports/"+job.ID+"/content", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("content: %d %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Acetone") || !strings.Contains(rec.Body.String(), "NT$") {
		t.Fatalf("unexpected report body %s", rec.Body.String())
	}

	rec, env = s.do(t, http.MethodGet, "/api/v1/reports/unknown", nil)
	if rec.Code != http.StatusNotFound || env.Error == nil {
		t.Fatalf("expected 404 for unknown job, got %d", rec.Code)
	}

	rec, env = s.do(t, http.MethodPost, "/api/v1/reports", map[string]string{"format": "pdf"})
	if rec.Code != http.StatusBadRequest || env.Error == nil {
		t.Fatalf("expected unknown format rejection, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestReportRejectedAfterWorkerStop(t *testing.T) {
	s := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.worker.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	rec, env := s.do(t, http.MethodPost, "/api/v1/reports", map[string]string{"format": "markdown"})
	if rec.Code != http.StatusServiceUnavailable || env.Error == nil || env.Error.Code != "shutting_down" {
		t.Fatalf("expected 503 shutting_down, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodGet, "/api/v1/chemicals", nil)
	rec, _ := s.do(t, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "labstock_operations_total") {
		t.Fatalf("metrics missing operations counter: %d", rec.Code)
	}
}
