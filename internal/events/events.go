// Package events broadcasts ledger activity to other processes. Publishing is
// best effort: the ledger never rolls back because an event could not be sent.
package events

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"labstock/pkg/domain"
)

// Kind names an event channel.
type Kind string

// Published event kinds.
const (
	KindTransactionRecorded Kind = "labstock.transaction.recorded"
	KindLowStock            Kind = "labstock.chemical.low_stock"
	KindUnitsChanged        Kind = "labstock.chemical.units_changed"
)

// Event is the payload broadcast after a committed mutation.
type Event struct {
	Kind         Kind                `json:"kind"`
	ChemicalID   string              `json:"chemical_id"`
	ChemicalName string              `json:"chemical_name"`
	CurrentStock decimal.Decimal     `json:"current_stock"`
	MinLevel     int                 `json:"min_level"`
	UnitsInUse   int                 `json:"units_in_use"`
	Transaction  *domain.Transaction `json:"transaction,omitempty"`
	OccurredAt   time.Time           `json:"occurred_at"`
}

// Publisher delivers events to subscribers.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NoopPublisher drops every event.
type NoopPublisher struct{}

// Publish implements Publisher.
func (NoopPublisher) Publish(context.Context, Event) error { return nil }

// RecordingPublisher keeps events in memory; useful for tests and the seed CLI.
type RecordingPublisher struct {
	Events []Event
}

// Publish implements Publisher.
func (p *RecordingPublisher) Publish(_ context.Context, event Event) error {
	p.Events = append(p.Events, event)
	return nil
}
