package core

import (
	"context"
	"sync"
	"time"

	"labstock/internal/events"
	"labstock/internal/infra/persistence/memory"
	"labstock/pkg/domain"
)

// Service owns one inventory instance: the chemical records, the ledger and
// the user directory, plus the read-only cost and currency tables used for
// reorder estimates. Mutations are serialised by the underlying store.
type Service struct {
	store     domain.PersistentStore
	logger    Logger
	audit     AuditRecorder
	metrics   MetricsRecorder
	tracer    Tracer
	publisher events.Publisher
	costs     domain.CostTable
	rates     domain.CurrencyTable
	settings  domain.AppSettings
	now       func() time.Time

	currentMu     sync.RWMutex
	currentUserID string
}

// ServiceOption configures optional service collaborators.
type ServiceOption func(*Service)

// WithLogger sets the structured logger.
func WithLogger(l Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithAuditRecorder sets the audit sink for mutating operations.
func WithAuditRecorder(r AuditRecorder) ServiceOption {
	return func(s *Service) {
		if r != nil {
			s.audit = r
		}
	}
}

// WithMetricsRecorder sets the operation metrics sink.
func WithMetricsRecorder(m MetricsRecorder) ServiceOption {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithTracer sets the span factory.
func WithTracer(t Tracer) ServiceOption {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithEventPublisher sets where committed ledger activity is broadcast.
func WithEventPublisher(p events.Publisher) ServiceOption {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithCostTable sets the base (USD) cost per container of each chemical.
func WithCostTable(costs domain.CostTable) ServiceOption {
	return func(s *Service) {
		s.costs = costs
	}
}

// WithCurrencyTable sets the fixed currency conversion table.
func WithCurrencyTable(rates domain.CurrencyTable) ServiceOption {
	return func(s *Service) {
		if rates != nil {
			s.rates = rates
		}
	}
}

// WithSettings sets the default currency and organisation name.
func WithSettings(settings domain.AppSettings) ServiceOption {
	return func(s *Service) {
		s.settings = settings
	}
}

// WithClock overrides the clock used for operation timing.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService constructs a service backed by the supplied store.
func NewService(store domain.PersistentStore, opts ...ServiceOption) *Service {
	s := &Service{
		store:     store,
		logger:    noopLogger{},
		audit:     noopAuditRecorder{},
		metrics:   noopMetricsRecorder{},
		tracer:    noopTracer{},
		publisher: events.NoopPublisher{},
		costs:     domain.CostTable{},
		rates:     domain.DefaultCurrencyTable(),
		settings:  domain.AppSettings{Currency: domain.CurrencyUSD},
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewInMemoryService creates a service over a fresh in-memory store.
func NewInMemoryService(engine *domain.RulesEngine, opts ...ServiceOption) *Service {
	return NewService(memory.NewStore(engine), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() domain.PersistentStore {
	return s.store
}

// Settings returns the configured application settings.
func (s *Service) Settings() domain.AppSettings {
	return s.settings
}

// run wraps a store transaction with tracing, metrics, audit and logging.
// fn returns the id of the entity it touched.
func (s *Service) run(ctx context.Context, op string, entity domain.EntityType, fn func(tx domain.Tx) (string, error)) (domain.Result, error) {
	started := s.now()
	ctx, span := s.tracer.Start(ctx, op)

	var entityID string
	res, err := s.store.RunInTransaction(ctx, func(tx domain.Tx) error {
		id, err := fn(tx)
		entityID = id
		return err
	})

	duration := s.now().Sub(started)
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, duration)

	entry := AuditEntry{
		Operation:  op,
		Entity:     entity,
		EntityID:   entityID,
		Actor:      s.currentUserName(),
		Status:     AuditStatusSuccess,
		Violations: res.Violations,
		Duration:   duration,
		Timestamp:  started,
	}
	if err != nil {
		entry.Status = AuditStatusError
		entry.Error = err.Error()
		s.logger.Error("operation failed", "operation", op, "entity_id", entityID, "error", err)
	} else {
		s.logger.Debug("operation completed", "operation", op, "entity_id", entityID)
	}
	s.audit.Record(ctx, entry)

	for _, v := range res.Violations {
		switch v.Severity {
		case domain.SeverityWarn:
			s.logger.Warn("rule warning", "rule", v.Rule, "entity_id", v.EntityID, "message", v.Message)
		case domain.SeverityLog:
			s.logger.Info("rule advisory", "rule", v.Rule, "entity_id", v.EntityID, "message", v.Message)
		}
	}
	return res, err
}

// view wraps a read-only snapshot with tracing and metrics.
func (s *Service) view(ctx context.Context, op string, fn func(domain.TxView) error) error {
	started := s.now()
	ctx, span := s.tracer.Start(ctx, op)
	err := s.store.View(ctx, fn)
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, s.now().Sub(started))
	return err
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now()
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("event publish failed", "kind", string(event.Kind), "chemical_id", event.ChemicalID, "error", err)
	}
}
