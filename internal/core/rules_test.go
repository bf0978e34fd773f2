package core

import (
	"context"
	"reflect"
	"testing"

	"github.com/shopspring/decimal"

	"labstock/pkg/domain"
)

func TestDefaultRulesEngineRegistration(t *testing.T) {
	got := NewDefaultRulesEngine().Rules()
	want := []string{RuleNonNegativeStock, RuleUnitLevelDomain, RuleLowStock, RuleLevelConsistency, RuleEmptyWithOpenUnits}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected rules %v", got)
	}
}

func TestRulesEvaluateChangedChemicals(t *testing.T) {
	ctx := context.Background()
	before := domain.Chemical{Base: domain.Base{ID: "c1"}, Name: "Acetone", CurrentStock: decimal.NewFromInt(2), MinLevel: 5, TargetLevel: 3}
	after := before
	after.CurrentStock = decimal.NewFromInt(-1)
	after.UnitsInUse = []domain.UnitInUse{{ID: "u1", Remaining: 40}}
	changes := []domain.Change{
		{Entity: domain.EntityChemical, Action: domain.ActionUpdate, Before: before, After: after},
		{Entity: domain.EntityUser, Action: domain.ActionCreate, After: domain.User{ID: "u"}},
	}
	res, err := NewDefaultRulesEngine().Evaluate(ctx, nil, changes)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	rules := map[string]domain.Severity{}
	for _, v := range res.Violations {
		rules[v.Rule] = v.Severity
	}
	want := map[string]domain.Severity{
		RuleNonNegativeStock: domain.SeverityBlock,
		RuleUnitLevelDomain:  domain.SeverityBlock,
		RuleLowStock:         domain.SeverityWarn,
		RuleLevelConsistency: domain.SeverityWarn,
	}
	if !reflect.DeepEqual(rules, want) {
		t.Fatalf("unexpected violations %+v", res.Violations)
	}
}

func TestLowStockRuleIgnoresUnchangedStock(t *testing.T) {
	c := domain.Chemical{Base: domain.Base{ID: "c1"}, CurrentStock: decimal.NewFromInt(1), MinLevel: 5, TargetLevel: 10}
	res, _ := NewLowStockRule().Evaluate(context.Background(), nil, []domain.Change{{Entity: domain.EntityChemical, Before: c, After: c}})
	if len(res.Violations) != 0 {
		t.Fatalf("expected no warning when stock did not move, got %+v", res)
	}
}
