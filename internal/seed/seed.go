// Package seed provides the starter inventory a fresh lab instance is loaded
// with: five chemicals, a short ledger history, four users, a base cost table
// and the default settings.
package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"labstock/pkg/domain"
)

// Dataset is a complete starter state.
type Dataset struct {
	Chemicals    []domain.Chemical
	Transactions []domain.Transaction
	Users        []domain.User
	Costs        domain.CostTable
	Settings     domain.AppSettings
}

// DefaultSettings are the settings the starter lab ships with.
func DefaultSettings() domain.AppSettings {
	return domain.AppSettings{Currency: domain.CurrencyTWD, OrgName: "化學實驗室 (Chem Lab)"}
}

// DefaultCosts is the base (USD) cost per container of the starter chemicals.
func DefaultCosts() domain.CostTable {
	return domain.CostTable{
		"c1": decimal.NewFromInt(35),
		"c2": decimal.NewFromInt(45),
		"c3": decimal.NewFromInt(120),
		"c4": decimal.NewFromInt(22),
		"c5": decimal.NewFromInt(38),
	}
}

// Default builds the starter dataset. Ledger dates are relative to now.
func Default(now time.Time) Dataset {
	units := func(levels ...domain.UnitInUse) []domain.UnitInUse { return levels }
	reason := func(s string) *string { return &s }
	stock := func(n int64) decimal.Decimal { return decimal.NewFromInt(n) }
	return Dataset{
		Chemicals: []domain.Chemical{
			{
				Base: domain.Base{ID: "c1"}, Name: "Acetone", Functionality: "Solvent / Cleaning",
				PackageSize: "20L", Unit: "Drum", CurrentStock: stock(12), MinLevel: 15, TargetLevel: 40,
				UnitsInUse: units(domain.UnitInUse{ID: "u1", Remaining: domain.FillHalf}),
			},
			{
				Base: domain.Base{ID: "c2"}, Name: "Sulfuric Acid (98%)", Functionality: "pH Adjustment / Catalyst",
				PackageSize: "2.5L", Unit: "Bottle", CurrentStock: stock(4), MinLevel: 5, TargetLevel: 10,
				UnitsInUse: units(
					domain.UnitInUse{ID: "u2", Remaining: domain.FillThreeQuarters},
					domain.UnitInUse{ID: "u2b", Remaining: domain.FillQuarter},
				),
			},
			{
				Base: domain.Base{ID: "c3"}, Name: "Ethanol (Absolute)", Functionality: "Solvent / Disinfectant",
				PackageSize: "200L", Unit: "Drum", CurrentStock: stock(25), MinLevel: 10, TargetLevel: 50,
				UnitsInUse: units(),
			},
			{
				Base: domain.Base{ID: "c4"}, Name: "Sodium Hydroxide Pellets", Functionality: "Strong Base / Neutralizer",
				PackageSize: "1kg", Unit: "Jar", CurrentStock: stock(8), MinLevel: 3, TargetLevel: 10,
				UnitsInUse: units(domain.UnitInUse{ID: "u4", Remaining: domain.FillQuarter}),
			},
			{
				Base: domain.Base{ID: "c5"}, Name: "Hydrochloric Acid (37%)", Functionality: "Acid Leveling Agent",
				PackageSize: "20L", Unit: "Jerrycan", CurrentStock: stock(0), MinLevel: 6, TargetLevel: 12,
				UnitsInUse: units(domain.UnitInUse{ID: "u5", Remaining: domain.FillHalf}),
			},
		},
		Transactions: []domain.Transaction{
			{
				ID: "t1", ChemicalID: "c1", ChemicalName: "Acetone", Type: domain.TransactionOut, Quantity: stock(5),
				Date: now.Add(-48 * time.Hour), User: "Dr. Chen", Reason: reason("Glassware cleaning"),
			},
			{
				ID: "t2", ChemicalID: "c2", ChemicalName: "Sulfuric Acid (98%)", Type: domain.TransactionOut, Quantity: stock(1),
				Date: now.Add(-24 * time.Hour), User: "Sarah Lin", Reason: reason("Synthesis Project X"),
			},
			{
				ID: "t3", ChemicalID: "c5", ChemicalName: "Hydrochloric Acid (37%)", Type: domain.TransactionOut, Quantity: stock(2),
				Date: now.Add(-12 * time.Hour), User: "Dr. Chen", Reason: reason("pH Adjustment"),
			},
		},
		Users: []domain.User{
			{ID: "u1", Name: "Dr. Chen", Role: domain.RoleManager, Initials: "DC"},
			{ID: "u2", Name: "Sarah Lin", Role: domain.RoleStaff, Initials: "SL"},
			{ID: "u3", Name: "Mike Wang", Role: domain.RoleStaff, Initials: "MW"},
			{ID: "u4", Name: "Admin", Role: domain.RoleAdmin, Initials: "AD"},
		},
		Costs:    DefaultCosts(),
		Settings: DefaultSettings(),
	}
}

// Loader is the store surface Load needs.
type Loader interface {
	RunInTransaction(ctx context.Context, fn func(domain.Tx) error) (domain.Result, error)
	View(ctx context.Context, fn func(domain.TxView) error) error
}

// Load writes ds into store in one transaction. A store that already holds
// any chemical, transaction or user is left untouched and Load reports false.
func Load(ctx context.Context, store Loader, ds Dataset) (bool, domain.Result, error) {
	var populated bool
	if err := store.View(ctx, func(v domain.TxView) error {
		populated = len(v.ListChemicals()) > 0 || len(v.ListTransactions()) > 0 || len(v.ListUsers()) > 0
		return nil
	}); err != nil {
		return false, domain.Result{}, err
	}
	if populated {
		return false, domain.Result{}, nil
	}
	res, err := store.RunInTransaction(ctx, func(tx domain.Tx) error {
		for _, c := range ds.Chemicals {
			if _, err := tx.CreateChemical(c); err != nil {
				return fmt.Errorf("seed chemical %s: %w", c.ID, err)
			}
		}
		for _, t := range ds.Transactions {
			if _, err := tx.AppendTransaction(t); err != nil {
				return fmt.Errorf("seed transaction %s: %w", t.ID, err)
			}
		}
		for _, u := range ds.Users {
			if _, err := tx.CreateUser(u); err != nil {
				return fmt.Errorf("seed user %s: %w", u.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return false, res, err
	}
	return true, res, nil
}
