package core

import (
	"context"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"labstock/internal/events"
	"labstock/pkg/domain"
)

// TransactionRequest is an intent to move stock.
type TransactionRequest struct {
	ChemicalID string                 `json:"chemical_id"`
	Type       domain.TransactionType `json:"type"`
	Quantity   decimal.Decimal        `json:"quantity"`
	// User is the acting user's display name. Empty means the current user.
	User   string  `json:"user,omitempty"`
	Reason *string `json:"reason,omitempty"`
}

// RecordTransaction validates an IN/OUT movement, applies it to the
// chemical's sealed stock and prepends the resulting entry to the ledger.
// Either both happen or neither does.
func (s *Service) RecordTransaction(ctx context.Context, req TransactionRequest) (domain.Transaction, domain.Result, error) {
	actor := strings.TrimSpace(req.User)
	if actor == "" {
		actor = s.currentUserName()
	}
	var recorded domain.Transaction
	var after domain.Chemical
	res, err := s.run(ctx, "record_transaction", domain.EntityTransaction, func(tx domain.Tx) (string, error) {
		if err := validateTransactionRequest(req); err != nil {
			return "", err
		}
		if actor == "" {
			return "", domain.InvalidInputError{Field: "user", Reason: "no acting user"}
		}
		chem, ok := tx.FindChemical(req.ChemicalID)
		if !ok {
			return "", domain.ErrNotFound{Entity: domain.EntityChemical, ID: req.ChemicalID}
		}
		qty := req.Quantity
		if req.Type == domain.TransactionOut {
			if chem.CurrentStock.Sign() <= 0 || qty.GreaterThan(chem.CurrentStock) {
				return "", domain.InsufficientStockError{ChemicalID: chem.ID, Available: chem.CurrentStock, Requested: req.Quantity}
			}
		}

		var err error
		after, err = tx.UpdateChemical(chem.ID, func(c *domain.Chemical) error {
			c.CurrentStock = applyMovement(c.CurrentStock, req.Type, qty)
			return nil
		})
		if err != nil {
			return "", err
		}

		entry := domain.Transaction{
			ID:           tx.NewID(),
			ChemicalID:   chem.ID,
			ChemicalName: chem.Name,
			Type:         req.Type,
			Quantity:     req.Quantity,
			Date:         tx.Now(),
			User:         actor,
			Reason:       normalizeReason(req.Reason),
		}
		recorded, err = tx.AppendTransaction(entry)
		if err != nil {
			return "", err
		}
		return recorded.ID, nil
	})
	if err != nil {
		return domain.Transaction{}, res, err
	}

	s.publish(ctx, events.Event{
		Kind:         events.KindTransactionRecorded,
		ChemicalID:   after.ID,
		ChemicalName: after.Name,
		CurrentStock: after.CurrentStock,
		MinLevel:     after.MinLevel,
		UnitsInUse:   len(after.UnitsInUse),
		Transaction:  &recorded,
		OccurredAt:   recorded.Date,
	})
	if req.Type == domain.TransactionOut && after.IsLowStock() {
		s.publish(ctx, events.Event{
			Kind:         events.KindLowStock,
			ChemicalID:   after.ID,
			ChemicalName: after.Name,
			CurrentStock: after.CurrentStock,
			MinLevel:     after.MinLevel,
			UnitsInUse:   len(after.UnitsInUse),
			OccurredAt:   recorded.Date,
		})
	}
	return recorded, res, nil
}

// ListTransactions returns the ledger newest first by date. Entries with the
// same date keep their storage order.
func (s *Service) ListTransactions(ctx context.Context) ([]domain.Transaction, error) {
	var out []domain.Transaction
	err := s.view(ctx, "list_transactions", func(v domain.TxView) error {
		out = v.ListTransactions()
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortByDateDesc(out)
	return out, nil
}

func sortByDateDesc(ledger []domain.Transaction) {
	sort.SliceStable(ledger, func(i, j int) bool {
		return ledger[i].Date.After(ledger[j].Date)
	})
}

// validateTransactionRequest enforces a known direction and a positive
// quantity. Fractional quantities are exact; stock is a decimal.
func validateTransactionRequest(req TransactionRequest) error {
	if !req.Type.Valid() {
		return domain.InvalidInputError{Field: "type", Reason: "must be IN or OUT"}
	}
	if req.Quantity.Sign() <= 0 {
		return domain.InvalidInputError{Field: "quantity", Reason: "must be greater than zero"}
	}
	return nil
}

func applyMovement(stock decimal.Decimal, kind domain.TransactionType, qty decimal.Decimal) decimal.Decimal {
	if kind == domain.TransactionIn {
		return stock.Add(qty)
	}
	return decimal.Max(decimal.Zero, stock.Sub(qty))
}

func normalizeReason(reason *string) *string {
	if reason == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*reason)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
