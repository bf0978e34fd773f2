package core

import (
	"context"
	"reflect"
	"testing"

	"github.com/shopspring/decimal"

	"labstock/pkg/domain"
)

func sampleRecords() []domain.Chemical {
	return []domain.Chemical{
		{Base: domain.Base{ID: "c1"}, Name: "Acetone", CurrentStock: decimal.NewFromInt(12), MinLevel: 15, TargetLevel: 40, UnitsInUse: []domain.UnitInUse{{ID: "u1", Remaining: 50}}},
		{Base: domain.Base{ID: "c2"}, Name: "Sulfuric Acid (98%)", CurrentStock: decimal.NewFromInt(4), MinLevel: 5, TargetLevel: 10, UnitsInUse: []domain.UnitInUse{{ID: "u2", Remaining: 75}, {ID: "u2b", Remaining: 25}}},
		{Base: domain.Base{ID: "c3"}, Name: "Ethanol (Absolute)", CurrentStock: decimal.NewFromInt(25), MinLevel: 10, TargetLevel: 50},
		{Base: domain.Base{ID: "c4"}, Name: "Sodium Hydroxide Pellets", CurrentStock: decimal.NewFromInt(8), MinLevel: 3, TargetLevel: 10},
		{Base: domain.Base{ID: "c5"}, Name: "Hydrochloric Acid (37%)", CurrentStock: decimal.NewFromInt(0), MinLevel: 6, TargetLevel: 12},
	}
}

func TestComputeReorderSelectsAndPrices(t *testing.T) {
	table := costs(map[string]int64{"c1": 35, "c2": 45, "c3": 120, "c4": 22})
	plan := ComputeReorder(sampleRecords(), domain.AppSettings{Currency: domain.CurrencyUSD, OrgName: "Lab"}, table, nil)

	var ids []string
	for _, item := range plan.Items {
		ids = append(ids, item.ChemicalID)
	}
	if !reflect.DeepEqual(ids, []string{"c1", "c2", "c5"}) {
		t.Fatalf("unexpected selection %v", ids)
	}
	if plan.Items[0].SuggestedQty != 28 || plan.Items[1].SuggestedQty != 6 || plan.Items[2].SuggestedQty != 12 {
		t.Fatalf("unexpected quantities: %+v", plan.Items)
	}
	if !plan.Items[2].UnitCost.IsZero() {
		t.Fatalf("expected zero cost for chemical without base cost")
	}
	// 28*35 + 6*45 + 12*0
	if !plan.TotalCost.Equal(decimal.NewFromInt(1250)) {
		t.Fatalf("expected total 1250, got %s", plan.TotalCost)
	}
	if plan.Symbol != "$" || plan.OrgName != "Lab" {
		t.Fatalf("unexpected plan metadata: %+v", plan)
	}
	if plan.Items[1].UnitsInUseCount != 2 || plan.Items[1].UnitsInUseDetail != "1@75%, 1@25%" {
		t.Fatalf("unexpected units detail: %+v", plan.Items[1])
	}
}

func TestComputeReorderConvertsCurrency(t *testing.T) {
	table := costs(map[string]int64{"c2": 45})
	records := sampleRecords()[1:2]
	plan := ComputeReorder(records, domain.AppSettings{Currency: domain.CurrencyTWD}, table, domain.DefaultCurrencyTable())
	if !plan.Items[0].UnitCost.Equal(decimal.NewFromInt(1440)) {
		t.Fatalf("expected 45*32, got %s", plan.Items[0].UnitCost)
	}
	if !plan.TotalCost.Equal(decimal.NewFromInt(8640)) || plan.Symbol != "NT$" {
		t.Fatalf("unexpected plan: total=%s symbol=%s", plan.TotalCost, plan.Symbol)
	}
}

func TestComputeReorderIsPureAndIdempotent(t *testing.T) {
	records := sampleRecords()
	before := sampleRecords()
	settings := domain.AppSettings{Currency: domain.CurrencyUSD}
	table := costs(map[string]int64{"c1": 35})
	a := ComputeReorder(records, settings, table, nil)
	b := ComputeReorder(records, settings, table, nil)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("expected identical plans")
	}
	a.Items[0].UnitsInUse[0].Remaining = 25
	if !reflect.DeepEqual(records, before) {
		t.Fatalf("inputs must not be mutated")
	}
}

func TestComputeReorderEmptyAndNegative(t *testing.T) {
	plan := ComputeReorder(nil, domain.AppSettings{}, nil, nil)
	if !plan.Empty() || !plan.TotalCost.IsZero() {
		t.Fatalf("expected empty plan, got %+v", plan)
	}
	odd := []domain.Chemical{{Base: domain.Base{ID: "x"}, Name: "Odd", CurrentStock: decimal.NewFromInt(8), MinLevel: 10, TargetLevel: 5}}
	plan = ComputeReorder(odd, domain.AppSettings{Currency: domain.CurrencyUSD}, costs(map[string]int64{"x": 10}), nil)
	if plan.Items[0].SuggestedQty != -3 || !plan.TotalCost.Equal(decimal.NewFromInt(-30)) {
		t.Fatalf("expected unclamped negative suggestion, got %+v", plan.Items[0])
	}
}

func TestServiceReorderAfterWithdrawal(t *testing.T) {
	f := newFixture(t, WithCostTable(costs(map[string]int64{})), WithSettings(domain.AppSettings{Currency: domain.CurrencyTWD, OrgName: "Chem Lab"}))
	ctx := context.Background()
	acid := f.addChemical(t, "Sulfuric Acid (98%)", 4, 5, 10)
	f.addChemical(t, "Ethanol (Absolute)", 25, 10, 50)
	if _, _, err := f.svc.RecordTransaction(ctx, TransactionRequest{ChemicalID: acid.ID, Type: domain.TransactionOut, Quantity: decimal.NewFromInt(1)}); err != nil {
		t.Fatalf("record: %v", err)
	}
	plan, err := f.svc.Reorder(ctx, domain.AppSettings{})
	if err != nil {
		t.Fatalf("reorder: %v", err)
	}
	if len(plan.Items) != 1 || plan.Items[0].ChemicalID != acid.ID || plan.Items[0].SuggestedQty != 7 {
		t.Fatalf("expected acid with qty 7, got %+v", plan.Items)
	}
	if plan.Currency != domain.CurrencyTWD || plan.OrgName != "Chem Lab" {
		t.Fatalf("expected service defaults applied, got %+v", plan)
	}
	usd, _ := f.svc.Reorder(ctx, domain.AppSettings{Currency: domain.CurrencyUSD})
	if usd.Symbol != "$" {
		t.Fatalf("expected currency override, got %s", usd.Symbol)
	}
}
