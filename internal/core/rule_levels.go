package core

import (
	"context"
	"fmt"

	"labstock/pkg/domain"
)

// NewLevelConsistencyRule warns when a chemical's reorder point exceeds its
// target level. Such records are accepted.
func NewLevelConsistencyRule() domain.Rule {
	return levelConsistencyRule{}
}

type levelConsistencyRule struct{}

func (levelConsistencyRule) Name() string { return RuleLevelConsistency }

func (levelConsistencyRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, cc := range changedChemicals(changes) {
		if cc.after.MinLevel <= cc.after.TargetLevel {
			continue
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     RuleLevelConsistency,
			Severity: domain.SeverityWarn,
			Message:  fmt.Sprintf("chemical %s min level %d exceeds target level %d", cc.after.Name, cc.after.MinLevel, cc.after.TargetLevel),
			Entity:   domain.EntityChemical,
			EntityID: cc.after.ID,
		})
	}
	return res, nil
}
