package core

import (
	"context"
	"fmt"

	"labstock/pkg/domain"
)

// NewUnitLevelDomainRule blocks opened containers whose remaining level is
// not one of the discrete fill levels.
func NewUnitLevelDomainRule() domain.Rule {
	return unitLevelDomainRule{}
}

type unitLevelDomainRule struct{}

func (unitLevelDomainRule) Name() string { return RuleUnitLevelDomain }

func (unitLevelDomainRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, cc := range changedChemicals(changes) {
		for _, u := range cc.after.UnitsInUse {
			if u.Remaining.Valid() {
				continue
			}
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     RuleUnitLevelDomain,
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("unit %s of %s has invalid level %d", u.ID, cc.after.Name, u.Remaining),
				Entity:   domain.EntityUnitInUse,
				EntityID: u.ID,
			})
		}
	}
	return res, nil
}

// NewEmptyWithOpenUnitsRule records an advisory when a changed chemical has
// no sealed stock but still has opened containers.
func NewEmptyWithOpenUnitsRule() domain.Rule {
	return emptyWithOpenUnitsRule{}
}

type emptyWithOpenUnitsRule struct{}

func (emptyWithOpenUnitsRule) Name() string { return RuleEmptyWithOpenUnits }

func (emptyWithOpenUnitsRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, cc := range changedChemicals(changes) {
		if !cc.after.HasOpenUnitsWithoutStock() {
			continue
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     RuleEmptyWithOpenUnits,
			Severity: domain.SeverityLog,
			Message:  fmt.Sprintf("chemical %s has no sealed stock but %d opened unit(s)", cc.after.Name, len(cc.after.UnitsInUse)),
			Entity:   domain.EntityChemical,
			EntityID: cc.after.ID,
		})
	}
	return res, nil
}
