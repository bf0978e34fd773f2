package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"labstock/pkg/domain"
)

// ReorderItem is a purchase suggestion for one chemical at or below its
// reorder point. UnitCost is already converted to the plan currency.
type ReorderItem struct {
	ChemicalID       string             `json:"chemical_id"`
	Name             string             `json:"name"`
	Functionality    string             `json:"functionality"`
	PackageSize      string             `json:"package_size"`
	Unit             string             `json:"unit"`
	CurrentStock     decimal.Decimal    `json:"current_stock"`
	MinLevel         int                `json:"min_level"`
	TargetLevel      int                `json:"target_level"`
	SuggestedQty     int                `json:"suggested_qty"`
	UnitCost         decimal.Decimal    `json:"unit_cost"`
	UnitsInUse       []domain.UnitInUse `json:"units_in_use"`
	UnitsInUseCount  int                `json:"units_in_use_count"`
	UnitsInUseDetail string             `json:"units_in_use_detail"`
}

// LineCost is the item's contribution to the plan total.
func (i ReorderItem) LineCost() decimal.Decimal {
	return i.UnitCost.Mul(decimal.NewFromInt(int64(i.SuggestedQty)))
}

// ReorderPlan is the derived purchase list with its estimated total.
type ReorderPlan struct {
	Items     []ReorderItem   `json:"items"`
	TotalCost decimal.Decimal `json:"total_cost"`
	Currency  domain.Currency `json:"currency"`
	Symbol    string          `json:"symbol"`
	OrgName   string          `json:"org_name"`
}

// Empty reports whether no chemical needs reordering.
func (p ReorderPlan) Empty() bool { return len(p.Items) == 0 }

// ComputeReorder selects every record with currentStock <= minLevel, in input
// order, and prices the quantity needed to return to targetLevel. Chemicals
// without a base cost are priced at zero. The function is pure.
func ComputeReorder(records []domain.Chemical, settings domain.AppSettings, costs domain.CostTable, rates domain.CurrencyTable) ReorderPlan {
	if rates == nil {
		rates = domain.DefaultCurrencyTable()
	}
	rate := rates.Rate(settings.Currency)
	plan := ReorderPlan{
		Items:     []ReorderItem{},
		TotalCost: decimal.Zero,
		Currency:  settings.Currency,
		Symbol:    rate.Symbol,
		OrgName:   settings.OrgName,
	}
	for _, c := range records {
		if !c.IsLowStock() {
			continue
		}
		units := append([]domain.UnitInUse{}, c.UnitsInUse...)
		item := ReorderItem{
			ChemicalID:    c.ID,
			Name:          c.Name,
			Functionality: c.Functionality,
			PackageSize:   c.PackageSize,
			Unit:          c.Unit,
			CurrentStock:  c.CurrentStock,
			MinLevel:      c.MinLevel,
			TargetLevel:   c.TargetLevel,
			// Not clamped: when targetLevel < currentStock this goes negative
			// and reduces the total. Kept as-is until the intended policy is settled.
			SuggestedQty:     SuggestedQty(c),
			UnitCost:         costs.BaseCost(c.ID).Mul(rate.Multiplier),
			UnitsInUse:       units,
			UnitsInUseCount:  len(units),
			UnitsInUseDetail: UnitsInUseDetail(units),
		}
		plan.Items = append(plan.Items, item)
		plan.TotalCost = plan.TotalCost.Add(item.LineCost())
	}
	return plan
}

// SuggestedQty is ceil(targetLevel - currentStock), the whole number of
// containers that brings a fractional stock back to target.
func SuggestedQty(c domain.Chemical) int {
	return int(decimal.NewFromInt(int64(c.TargetLevel)).Sub(c.CurrentStock).Ceil().IntPart())
}

// UnitsInUseDetail renders opened containers as "1@50%, 1@25%", or "None".
func UnitsInUseDetail(units []domain.UnitInUse) string {
	if len(units) == 0 {
		return "None"
	}
	parts := make([]string, 0, len(units))
	for _, u := range units {
		parts = append(parts, fmt.Sprintf("1@%d%%", u.Remaining))
	}
	return strings.Join(parts, ", ")
}

// Reorder computes the plan over a consistent snapshot. A zero settings value
// uses the service defaults; an empty currency or org name is filled from them.
func (s *Service) Reorder(ctx context.Context, settings domain.AppSettings) (ReorderPlan, error) {
	if settings.Currency == "" {
		settings.Currency = s.settings.Currency
	}
	if settings.OrgName == "" {
		settings.OrgName = s.settings.OrgName
	}
	var records []domain.Chemical
	if err := s.view(ctx, "compute_reorder", func(v domain.TxView) error {
		records = v.ListChemicals()
		return nil
	}); err != nil {
		return ReorderPlan{}, err
	}
	return ComputeReorder(records, settings, s.costs, s.rates), nil
}
