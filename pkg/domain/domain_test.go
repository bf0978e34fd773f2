package domain

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestInitials(t *testing.T) {
	cases := map[string]string{
		"Mike Wang":     "MW",
		"Admin":         "A",
		"":              "U",
		"   ":           "U",
		"dr. sarah lin": "DS",
		"化學 實驗室":        "化實",
		"\tjane\n doe ": "JD",
	}
	for name, want := range cases {
		if got := Initials(name); got != want {
			t.Fatalf("Initials(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestFillLevelDomain(t *testing.T) {
	for _, l := range FillLevels {
		if !l.Valid() {
			t.Fatalf("expected %d valid", l)
		}
	}
	for _, l := range []FillLevel{0, 30, 101, -25} {
		if l.Valid() {
			t.Fatalf("expected %d invalid", l)
		}
	}
}

func TestChemicalPredicates(t *testing.T) {
	c := Chemical{CurrentStock: decimal.NewFromInt(5), MinLevel: 5}
	if !c.IsLowStock() {
		t.Fatalf("stock equal to min level is low")
	}
	c.CurrentStock = decimal.RequireFromString("5.5")
	if c.IsLowStock() {
		t.Fatalf("5.5 is above a min level of 5")
	}
	c.CurrentStock = decimal.Zero
	if c.HasOpenUnitsWithoutStock() {
		t.Fatalf("no units means no advisory")
	}
	c.UnitsInUse = []UnitInUse{{ID: "u1", Remaining: FillHalf}}
	if !c.HasOpenUnitsWithoutStock() || c.FindUnit("u1") != 0 || c.FindUnit("u2") != -1 {
		t.Fatalf("unexpected predicate results for %+v", c)
	}
}

func TestEnumsValid(t *testing.T) {
	if !TransactionIn.Valid() || !TransactionOut.Valid() || TransactionType("in").Valid() {
		t.Fatalf("unexpected transaction type validity")
	}
	if !RoleAdmin.Valid() || Role("Owner").Valid() {
		t.Fatalf("unexpected role validity")
	}
}

func TestChemicalEditUnion(t *testing.T) {
	draft := DraftEdit(ChemicalDraft{Name: "Acetone", UnitsInUse: []UnitInUse{{Remaining: FillFull}}})
	if d, ok := draft.Draft(); !ok || d.Name != "Acetone" {
		t.Fatalf("expected draft")
	}
	if _, ok := draft.Persisted(); ok {
		t.Fatalf("draft must not be persisted")
	}
	c := ChemicalDraft{Name: "Acetone", UnitsInUse: []UnitInUse{{Remaining: FillFull}}}.Chemical()
	if c.ID != "" || len(c.UnitsInUse) != 1 {
		t.Fatalf("unexpected draft conversion %+v", c)
	}
	persisted := PersistedEdit(Chemical{Base: Base{ID: "c1"}})
	if p, ok := persisted.Persisted(); !ok || p.ID != "c1" {
		t.Fatalf("expected persisted")
	}
}

func TestCurrencyAndCostTables(t *testing.T) {
	rates := DefaultCurrencyTable()
	if r := rates.Rate(CurrencyTWD); !r.Multiplier.Equal(decimal.NewFromInt(32)) || r.Symbol != "NT$" {
		t.Fatalf("unexpected TWD rate %+v", r)
	}
	if r := rates.Rate("EUR"); !r.Multiplier.Equal(decimal.NewFromInt(1)) || r.Symbol != "EUR" {
		t.Fatalf("unexpected fallback rate %+v", r)
	}
	costs := CostTable{"c1": decimal.NewFromInt(35)}
	if !costs.BaseCost("c1").Equal(decimal.NewFromInt(35)) || !costs.BaseCost("zz").IsZero() {
		t.Fatalf("unexpected base costs")
	}
}

func TestErrorMessages(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{ErrNotFound{Entity: EntityChemical, ID: "c9"}, "chemical c9 not found"},
		{InsufficientStockError{ChemicalID: "c5", Available: decimal.Zero, Requested: decimal.NewFromInt(1)}, "out of stock"},
		{InsufficientStockError{ChemicalID: "c4", Available: decimal.NewFromInt(8), Requested: decimal.RequireFromString("8.5")}, "requested 8.5 exceeds available stock 8"},
		{InvalidInputError{Field: "quantity", Reason: "must be greater than zero"}, "invalid quantity"},
		{LastUserError{UserID: "u1"}, "at least one user"},
	}
	for _, tc := range cases {
		if !strings.Contains(tc.err.Error(), tc.want) {
			t.Fatalf("%T: %q does not contain %q", tc.err, tc.err.Error(), tc.want)
		}
	}
	wrapped := errors.Join(errors.New("ctx"), InsufficientStockError{Available: decimal.NewFromInt(3)})
	var insufficient InsufficientStockError
	if !errors.As(wrapped, &insufficient) || !insufficient.Available.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("expected errors.As to find wrapped error")
	}
}

type staticRule struct {
	name string
	sev  Severity
}

func (r staticRule) Name() string { return r.name }

func (r staticRule) Evaluate(context.Context, RuleView, []Change) (Result, error) {
	return Result{Violations: []Violation{{Rule: r.name, Severity: r.sev, Message: r.name + " fired"}}}, nil
}

func TestRulesEngineAggregates(t *testing.T) {
	engine := NewRulesEngine()
	engine.Register(staticRule{name: "warn", sev: SeverityWarn})
	engine.Register(staticRule{name: "block", sev: SeverityBlock})
	res, err := engine.Evaluate(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !res.HasBlocking() || len(res.BySeverity(SeverityWarn)) != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	msg := RuleViolationError{Result: res}.Error()
	if !strings.Contains(msg, "block fired") {
		t.Fatalf("expected first blocking message, got %q", msg)
	}
	var empty Result
	empty.Merge(Result{})
	if empty.HasBlocking() || (RuleViolationError{}).Error() == "" {
		t.Fatalf("unexpected empty result behaviour")
	}
}
