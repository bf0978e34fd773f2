package core

import (
	"context"
	"strings"

	"labstock/pkg/domain"
)

// AddChemical stores a new chemical from a draft. The store assigns the id;
// unitsInUse defaults to empty.
func (s *Service) AddChemical(ctx context.Context, draft domain.ChemicalDraft) (domain.Chemical, domain.Result, error) {
	var created domain.Chemical
	res, err := s.run(ctx, "add_chemical", domain.EntityChemical, func(tx domain.Tx) (string, error) {
		c := draft.Chemical()
		if err := validateChemical(c, true); err != nil {
			return "", err
		}
		units, err := normalizeUnits(tx, c.UnitsInUse)
		if err != nil {
			return "", err
		}
		c.UnitsInUse = units
		created, err = tx.CreateChemical(c)
		return created.ID, err
	})
	return created, res, err
}

// UpdateChemical replaces every editable field of an existing record,
// including its opened units. CurrentStock belongs to the ledger and is kept
// from the stored record.
func (s *Service) UpdateChemical(ctx context.Context, record domain.Chemical) (domain.Chemical, domain.Result, error) {
	var updated domain.Chemical
	res, err := s.run(ctx, "update_chemical", domain.EntityChemical, func(tx domain.Tx) (string, error) {
		if record.ID == "" {
			return "", domain.InvalidInputError{Field: "id", Reason: "required for update"}
		}
		if err := validateChemical(record, false); err != nil {
			return record.ID, err
		}
		units, err := normalizeUnits(tx, record.UnitsInUse)
		if err != nil {
			return record.ID, err
		}
		updated, err = tx.UpdateChemical(record.ID, func(c *domain.Chemical) error {
			c.Name = strings.TrimSpace(record.Name)
			c.Functionality = record.Functionality
			c.PackageSize = record.PackageSize
			c.Unit = record.Unit
			c.MinLevel = record.MinLevel
			c.TargetLevel = record.TargetLevel
			c.UnitsInUse = units
			return nil
		})
		return record.ID, err
	})
	return updated, res, err
}

// SaveChemical dispatches an edit form submission to add or update.
func (s *Service) SaveChemical(ctx context.Context, edit domain.ChemicalEdit) (domain.Chemical, domain.Result, error) {
	if draft, ok := edit.Draft(); ok {
		return s.AddChemical(ctx, draft)
	}
	if record, ok := edit.Persisted(); ok {
		return s.UpdateChemical(ctx, record)
	}
	return domain.Chemical{}, domain.Result{}, domain.InvalidInputError{Field: "chemical", Reason: "empty edit"}
}

// GetChemical returns one record.
func (s *Service) GetChemical(ctx context.Context, id string) (domain.Chemical, error) {
	var out domain.Chemical
	err := s.view(ctx, "get_chemical", func(v domain.TxView) error {
		c, ok := v.FindChemical(id)
		if !ok {
			return domain.ErrNotFound{Entity: domain.EntityChemical, ID: id}
		}
		out = c
		return nil
	})
	return out, err
}

// ListChemicals returns every record in insertion order.
func (s *Service) ListChemicals(ctx context.Context) ([]domain.Chemical, error) {
	var out []domain.Chemical
	err := s.view(ctx, "list_chemicals", func(v domain.TxView) error {
		out = v.ListChemicals()
		return nil
	})
	return out, err
}

// validateChemical checks field-level constraints. minLevel above targetLevel
// is accepted here and reported by the level_consistency rule.
func validateChemical(c domain.Chemical, checkStock bool) error {
	if strings.TrimSpace(c.Name) == "" {
		return domain.InvalidInputError{Field: "name", Reason: "required"}
	}
	if checkStock && c.CurrentStock.Sign() < 0 {
		return domain.InvalidInputError{Field: "current_stock", Reason: "must not be negative"}
	}
	if c.MinLevel < 0 {
		return domain.InvalidInputError{Field: "min_level", Reason: "must not be negative"}
	}
	if c.TargetLevel < 0 {
		return domain.InvalidInputError{Field: "target_level", Reason: "must not be negative"}
	}
	return nil
}

// normalizeUnits validates fill levels, assigns ids to units without one and
// rejects duplicate ids within the record.
func normalizeUnits(tx domain.Tx, units []domain.UnitInUse) ([]domain.UnitInUse, error) {
	out := make([]domain.UnitInUse, 0, len(units))
	seen := make(map[string]struct{}, len(units))
	for _, u := range units {
		if !u.Remaining.Valid() {
			return nil, invalidLevel(u.Remaining)
		}
		if u.ID == "" {
			u.ID = tx.NewID()
		}
		if _, dup := seen[u.ID]; dup {
			return nil, domain.InvalidInputError{Field: "units_in_use", Reason: "duplicate unit id " + u.ID}
		}
		seen[u.ID] = struct{}{}
		out = append(out, u)
	}
	return out, nil
}
