package core

import "labstock/pkg/domain"

// Rule names registered by NewDefaultRulesEngine.
const (
	RuleNonNegativeStock   = "non_negative_stock"
	RuleUnitLevelDomain    = "unit_level_domain"
	RuleLowStock           = "low_stock"
	RuleLevelConsistency   = "level_consistency"
	RuleEmptyWithOpenUnits = "empty_with_open_units"
)

// NewDefaultRulesEngine builds a rules engine with the built-in policy set.
func NewDefaultRulesEngine() *domain.RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(NewNonNegativeStockRule())
	engine.Register(NewUnitLevelDomainRule())
	engine.Register(NewLowStockRule())
	engine.Register(NewLevelConsistencyRule())
	engine.Register(NewEmptyWithOpenUnitsRule())
	return engine
}

// chemicalChange pairs the before/after images of a chemical touched in a
// transaction. before is nil for creations.
type chemicalChange struct {
	before *domain.Chemical
	after  domain.Chemical
}

func changedChemicals(changes []domain.Change) []chemicalChange {
	var out []chemicalChange
	for _, ch := range changes {
		if ch.Entity != domain.EntityChemical {
			continue
		}
		after, ok := ch.After.(domain.Chemical)
		if !ok {
			continue
		}
		cc := chemicalChange{after: after}
		if before, ok := ch.Before.(domain.Chemical); ok {
			cc.before = &before
		}
		out = append(out, cc)
	}
	return out
}
