package core

import (
	"context"

	"github.com/shopspring/decimal"

	"labstock/pkg/domain"
)

// RecentTransactionLimit bounds the dashboard's recent activity list.
const RecentTransactionLimit = 5

// Dashboard summarises the inventory for an overview screen.
type Dashboard struct {
	ChemicalTypes      int                  `json:"chemical_types"`
	LowStockCount      int                  `json:"low_stock_count"`
	TotalContainers    decimal.Decimal      `json:"total_containers"`
	UnitsInUse         int                  `json:"units_in_use"`
	RecentTransactions []domain.Transaction `json:"recent_transactions"`
	Advisories         []Advisory           `json:"advisories"`
}

// Dashboard computes summary counts from one snapshot. Total containers counts
// sealed stock plus opened units.
func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	var (
		records []domain.Chemical
		ledger  []domain.Transaction
	)
	if err := s.view(ctx, "dashboard", func(v domain.TxView) error {
		records = v.ListChemicals()
		ledger = v.ListTransactions()
		return nil
	}); err != nil {
		return Dashboard{}, err
	}

	d := Dashboard{ChemicalTypes: len(records), Advisories: Advisories(records)}
	for _, c := range records {
		if c.IsLowStock() {
			d.LowStockCount++
		}
		d.UnitsInUse += len(c.UnitsInUse)
		d.TotalContainers = d.TotalContainers.Add(c.CurrentStock).Add(decimal.NewFromInt(int64(len(c.UnitsInUse))))
	}
	sortByDateDesc(ledger)
	if len(ledger) > RecentTransactionLimit {
		ledger = ledger[:RecentTransactionLimit]
	}
	d.RecentTransactions = ledger
	if d.Advisories == nil {
		d.Advisories = []Advisory{}
	}
	return d, nil
}
