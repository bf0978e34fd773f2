// Package report turns a reorder plan into a procurement document. The
// document body is opaque to the rest of the system: it is generated, stored
// as an artifact and served back unchanged.
package report

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"labstock/internal/core"
	"labstock/pkg/domain"
)

// NoItemsMessage is the whole report when nothing needs reordering.
const NoItemsMessage = "No items selected for reorder."

// Format names a report rendering.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatXLSX     Format = "xlsx"
	FormatRemote   Format = "remote"
)

const (
	contentTypeMarkdown = "text/markdown; charset=utf-8"
	contentTypeXLSX     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Item is one line of the hand-off contract.
type Item struct {
	Name             string          `json:"name"`
	Functionality    string          `json:"functionality"`
	PackageSize      string          `json:"packageSize"`
	Unit             string          `json:"unit"`
	CurrentStock     decimal.Decimal `json:"currentStock"`
	MinLevel         int             `json:"minLevel"`
	SuggestedQty     int             `json:"suggestedQty"`
	UnitCost         decimal.Decimal `json:"unitCost"`
	UnitsInUseCount  int             `json:"unitsInUseCount"`
	UnitsInUseDetail string          `json:"unitsInUseDetail"`
}

// LineCost is SuggestedQty × UnitCost.
func (i Item) LineCost() decimal.Decimal {
	return i.UnitCost.Mul(decimal.NewFromInt(int64(i.SuggestedQty)))
}

// Request is what a generator receives: the priced items, their total and
// the presentation settings.
type Request struct {
	Items          []Item          `json:"items"`
	TotalCost      decimal.Decimal `json:"totalCost"`
	Currency       domain.Currency `json:"currency"`
	CurrencySymbol string          `json:"currencySymbol"`
	OrgName        string          `json:"orgName"`
	RequestedAt    time.Time       `json:"requestedAt"`
}

// Empty reports whether the request has no items.
func (r Request) Empty() bool { return len(r.Items) == 0 }

// NewRequest flattens a reorder plan into the hand-off contract.
func NewRequest(plan core.ReorderPlan, requestedAt time.Time) Request {
	items := make([]Item, 0, len(plan.Items))
	for _, it := range plan.Items {
		items = append(items, Item{
			Name:             it.Name,
			Functionality:    it.Functionality,
			PackageSize:      it.PackageSize,
			Unit:             it.Unit,
			CurrentStock:     it.CurrentStock,
			MinLevel:         it.MinLevel,
			SuggestedQty:     it.SuggestedQty,
			UnitCost:         it.UnitCost,
			UnitsInUseCount:  it.UnitsInUseCount,
			UnitsInUseDetail: it.UnitsInUseDetail,
		})
	}
	return Request{
		Items:          items,
		TotalCost:      plan.TotalCost,
		Currency:       plan.Currency,
		CurrencySymbol: plan.Symbol,
		OrgName:        plan.OrgName,
		RequestedAt:    requestedAt,
	}
}

// Document is a rendered report.
type Document struct {
	Format      Format `json:"format"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"-"`
}

// Extension returns the file extension used when storing the document.
func (d Document) Extension() string {
	if d.Format == FormatXLSX {
		return ".xlsx"
	}
	return ".md"
}

// Generator renders a request into a document.
type Generator interface {
	Generate(ctx context.Context, req Request) (Document, error)
}

// noItems is returned by every generator for an empty request.
func noItems() Document {
	return Document{Format: FormatMarkdown, ContentType: contentTypeMarkdown, Body: []byte(NoItemsMessage)}
}

func money(symbol string, d decimal.Decimal) string {
	return symbol + d.StringFixed(2)
}
