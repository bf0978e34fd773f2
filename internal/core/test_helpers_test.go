package core

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"labstock/internal/infra/persistence/memory"
	"labstock/pkg/domain"
)

type fixture struct {
	svc   *Service
	store *memory.Store
	clock time.Time
}

func newFixture(t *testing.T, opts ...ServiceOption) *fixture {
	t.Helper()
	store := memory.NewStore(NewDefaultRulesEngine())
	f := &fixture{store: store, clock: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)}
	store.SetNowFunc(func() time.Time { return f.clock })
	f.svc = NewService(store, opts...)
	if _, _, err := f.svc.AddUser(context.Background(), "Dr. Chen", domain.RoleManager); err != nil {
		t.Fatalf("add user: %v", err)
	}
	return f
}

func (f *fixture) tick(d time.Duration) { f.clock = f.clock.Add(d) }

func (f *fixture) addChemical(t *testing.T, name string, stock, minLevel, target int) domain.Chemical {
	t.Helper()
	c, _, err := f.svc.AddChemical(context.Background(), domain.ChemicalDraft{
		Name:         name,
		Unit:         "Bottle",
		PackageSize:  "2.5L",
		CurrentStock: decimal.NewFromInt(int64(stock)),
		MinLevel:     minLevel,
		TargetLevel:  target,
	})
	if err != nil {
		t.Fatalf("add chemical %s: %v", name, err)
	}
	return c
}

func costs(pairs map[string]int64) domain.CostTable {
	out := domain.CostTable{}
	for id, v := range pairs {
		out[id] = decimal.NewFromInt(v)
	}
	return out
}
