package core

import (
	"context"
	"fmt"

	"labstock/pkg/domain"
)

// NewNonNegativeStockRule blocks any transaction that leaves a changed
// chemical with negative sealed stock.
func NewNonNegativeStockRule() domain.Rule {
	return nonNegativeStockRule{}
}

type nonNegativeStockRule struct{}

func (nonNegativeStockRule) Name() string { return RuleNonNegativeStock }

func (nonNegativeStockRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, cc := range changedChemicals(changes) {
		if cc.after.CurrentStock.Sign() >= 0 {
			continue
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     RuleNonNegativeStock,
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf("chemical %s (%s) stock would become %s", cc.after.Name, cc.after.ID, cc.after.CurrentStock),
			Entity:   domain.EntityChemical,
			EntityID: cc.after.ID,
		})
	}
	return res, nil
}

// NewLowStockRule warns when a change to sealed stock leaves the chemical at
// or below its reorder point.
func NewLowStockRule() domain.Rule {
	return lowStockRule{}
}

type lowStockRule struct{}

func (lowStockRule) Name() string { return RuleLowStock }

func (lowStockRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, cc := range changedChemicals(changes) {
		if cc.before != nil && cc.before.CurrentStock.Equal(cc.after.CurrentStock) {
			continue
		}
		if !cc.after.IsLowStock() {
			continue
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     RuleLowStock,
			Severity: domain.SeverityWarn,
			Message:  fmt.Sprintf("chemical %s at %s, reorder point %d", cc.after.Name, cc.after.CurrentStock, cc.after.MinLevel),
			Entity:   domain.EntityChemical,
			EntityID: cc.after.ID,
		})
	}
	return res, nil
}
