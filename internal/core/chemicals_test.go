package core

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"labstock/pkg/domain"
)

func TestAddChemicalAssignsIdentityAndDefaults(t *testing.T) {
	f := newFixture(t)
	c := f.addChemical(t, "Acetone", 12, 15, 40)
	if c.ID == "" {
		t.Fatalf("expected generated id")
	}
	if c.UnitsInUse == nil || len(c.UnitsInUse) != 0 {
		t.Fatalf("expected empty units, got %+v", c.UnitsInUse)
	}
	if !c.LastUpdated.Equal(f.clock) {
		t.Fatalf("expected lastUpdated set, got %v", c.LastUpdated)
	}
}

func TestListChemicalsInsertionOrder(t *testing.T) {
	f := newFixture(t)
	names := []string{"Acetone", "Sulfuric Acid (98%)", "Ethanol (Absolute)"}
	for _, n := range names {
		f.addChemical(t, n, 1, 0, 1)
	}
	list, err := f.svc.ListChemicals(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for i, n := range names {
		if list[i].Name != n {
			t.Fatalf("position %d: expected %s, got %s", i, n, list[i].Name)
		}
	}
}

func TestUpdateChemicalKeepsLedgerOwnedStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.addChemical(t, "Acetone", 12, 15, 40)

	f.tick(1)
	edit := c
	edit.CurrentStock = decimal.NewFromInt(999)
	edit.Functionality = "Solvent / Cleaning"
	edit.UnitsInUse = []domain.UnitInUse{{Remaining: domain.FillHalf}}
	updated, _, err := f.svc.SaveChemical(ctx, domain.PersistedEdit(edit))
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.CurrentStock.Equal(decimal.NewFromInt(12)) {
		t.Fatalf("expected stock to stay 12, got %s", updated.CurrentStock)
	}
	if updated.Functionality != "Solvent / Cleaning" || len(updated.UnitsInUse) != 1 || updated.UnitsInUse[0].ID == "" {
		t.Fatalf("expected editable fields replaced, got %+v", updated)
	}
	if !updated.LastUpdated.After(c.LastUpdated) {
		t.Fatalf("expected lastUpdated to advance")
	}
}

func TestSaveChemicalDraftCreates(t *testing.T) {
	f := newFixture(t)
	created, _, err := f.svc.SaveChemical(context.Background(), domain.DraftEdit(domain.ChemicalDraft{Name: "Ethanol (Absolute)", CurrentStock: decimal.NewFromInt(25), MinLevel: 10, TargetLevel: 50}))
	if err != nil {
		t.Fatalf("save draft: %v", err)
	}
	if created.ID == "" || !created.CurrentStock.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("unexpected record: %+v", created)
	}
	if _, _, err := f.svc.SaveChemical(context.Background(), domain.ChemicalEdit{}); err == nil {
		t.Fatalf("expected empty edit to be rejected")
	}
}

func TestChemicalValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, _, err := f.svc.AddChemical(ctx, domain.ChemicalDraft{Name: " "})
	var invalid domain.InvalidInputError
	if !errors.As(err, &invalid) || invalid.Field != "name" {
		t.Fatalf("expected name validation, got %v", err)
	}
	_, _, err = f.svc.AddChemical(ctx, domain.ChemicalDraft{Name: "X", UnitsInUse: []domain.UnitInUse{{Remaining: 30}}})
	if !errors.As(err, &invalid) || invalid.Field != "remaining" {
		t.Fatalf("expected level validation, got %v", err)
	}
	_, _, err = f.svc.UpdateChemical(ctx, domain.Chemical{Base: domain.Base{ID: "missing"}, Name: "X"})
	var nf domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMinAboveTargetIsAcceptedWithWarning(t *testing.T) {
	f := newFixture(t)
	_, res, err := f.svc.AddChemical(context.Background(), domain.ChemicalDraft{Name: "Odd", CurrentStock: decimal.NewFromInt(20), MinLevel: 10, TargetLevel: 5})
	if err != nil {
		t.Fatalf("expected record accepted: %v", err)
	}
	found := false
	for _, v := range res.BySeverity(domain.SeverityWarn) {
		if v.Rule == RuleLevelConsistency {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected level consistency warning, got %+v", res)
	}
}
