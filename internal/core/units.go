package core

import (
	"context"
	"fmt"

	"labstock/internal/events"
	"labstock/pkg/domain"
)

// OpenUnit starts a new opened container at 100% for the chemical. Sealed
// stock is not decremented.
func (s *Service) OpenUnit(ctx context.Context, chemicalID string) (domain.Chemical, domain.UnitInUse, domain.Result, error) {
	var (
		updated domain.Chemical
		opened  domain.UnitInUse
	)
	res, err := s.run(ctx, "open_unit", domain.EntityUnitInUse, func(tx domain.Tx) (string, error) {
		opened = domain.UnitInUse{ID: tx.NewID(), Remaining: domain.FillFull}
		var err error
		updated, err = tx.UpdateChemical(chemicalID, func(c *domain.Chemical) error {
			c.UnitsInUse = append(c.UnitsInUse, opened)
			return nil
		})
		return opened.ID, err
	})
	if err != nil {
		return domain.Chemical{}, domain.UnitInUse{}, res, err
	}
	s.publishUnits(ctx, updated)
	return updated, opened, res, nil
}

// SetUnitLevel records the remaining fill level of an opened container.
func (s *Service) SetUnitLevel(ctx context.Context, chemicalID, unitID string, level domain.FillLevel) (domain.Chemical, domain.Result, error) {
	var updated domain.Chemical
	res, err := s.run(ctx, "set_unit_level", domain.EntityUnitInUse, func(tx domain.Tx) (string, error) {
		if !level.Valid() {
			return unitID, invalidLevel(level)
		}
		var err error
		updated, err = tx.UpdateChemical(chemicalID, func(c *domain.Chemical) error {
			idx := c.FindUnit(unitID)
			if idx < 0 {
				return domain.ErrNotFound{Entity: domain.EntityUnitInUse, ID: unitID}
			}
			c.UnitsInUse[idx].Remaining = level
			return nil
		})
		return unitID, err
	})
	if err != nil {
		return domain.Chemical{}, res, err
	}
	s.publishUnits(ctx, updated)
	return updated, res, nil
}

// CloseUnit removes an emptied or discarded container.
func (s *Service) CloseUnit(ctx context.Context, chemicalID, unitID string) (domain.Chemical, domain.Result, error) {
	var updated domain.Chemical
	res, err := s.run(ctx, "close_unit", domain.EntityUnitInUse, func(tx domain.Tx) (string, error) {
		var err error
		updated, err = tx.UpdateChemical(chemicalID, func(c *domain.Chemical) error {
			idx := c.FindUnit(unitID)
			if idx < 0 {
				return domain.ErrNotFound{Entity: domain.EntityUnitInUse, ID: unitID}
			}
			c.UnitsInUse = append(c.UnitsInUse[:idx], c.UnitsInUse[idx+1:]...)
			return nil
		})
		return unitID, err
	})
	if err != nil {
		return domain.Chemical{}, res, err
	}
	s.publishUnits(ctx, updated)
	return updated, res, nil
}

// Advisory is a non-blocking condition worth surfacing to operators.
type Advisory struct {
	ChemicalID   string `json:"chemical_id"`
	ChemicalName string `json:"chemical_name"`
	Message      string `json:"message"`
}

// Advisories lists chemicals whose warehouse stock is empty while opened
// containers remain.
func Advisories(records []domain.Chemical) []Advisory {
	var out []Advisory
	for _, c := range records {
		if !c.HasOpenUnitsWithoutStock() {
			continue
		}
		out = append(out, Advisory{
			ChemicalID:   c.ID,
			ChemicalName: c.Name,
			Message:      fmt.Sprintf("no sealed stock left; %d opened container(s) still in use", len(c.UnitsInUse)),
		})
	}
	return out
}

func invalidLevel(level domain.FillLevel) error {
	return domain.InvalidInputError{Field: "remaining", Reason: fmt.Sprintf("invalid level %d: must be one of 25, 50, 75, 100", level)}
}

func (s *Service) publishUnits(ctx context.Context, c domain.Chemical) {
	s.publish(ctx, events.Event{
		Kind:         events.KindUnitsChanged,
		ChemicalID:   c.ID,
		ChemicalName: c.Name,
		CurrentStock: c.CurrentStock,
		MinLevel:     c.MinLevel,
		UnitsInUse:   len(c.UnitsInUse),
	})
}
