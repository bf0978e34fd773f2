package domain

import "github.com/shopspring/decimal"

// ChemicalDraft is a chemical record that has not been persisted yet. It has
// no identity; the store assigns one on add.
type ChemicalDraft struct {
	Name          string          `json:"name"`
	Functionality string          `json:"functionality"`
	PackageSize   string          `json:"package_size"`
	Unit          string          `json:"unit"`
	CurrentStock  decimal.Decimal `json:"current_stock"`
	MinLevel      int             `json:"min_level"`
	TargetLevel   int             `json:"target_level"`
	UnitsInUse    []UnitInUse     `json:"units_in_use,omitempty"`
}

// Chemical converts the draft into an unsaved chemical record.
func (d ChemicalDraft) Chemical() Chemical {
	return Chemical{
		Name:          d.Name,
		Functionality: d.Functionality,
		PackageSize:   d.PackageSize,
		Unit:          d.Unit,
		CurrentStock:  d.CurrentStock,
		MinLevel:      d.MinLevel,
		TargetLevel:   d.TargetLevel,
		UnitsInUse:    append([]UnitInUse(nil), d.UnitsInUse...),
	}
}

// ChemicalEdit is the input of an edit form: either a Draft (create) or a
// Persisted record (update). Exactly one of the two is set.
type ChemicalEdit struct {
	draft     *ChemicalDraft
	persisted *Chemical
}

// DraftEdit wraps a new, unsaved chemical.
func DraftEdit(d ChemicalDraft) ChemicalEdit {
	return ChemicalEdit{draft: &d}
}

// PersistedEdit wraps a full replacement for an existing chemical.
func PersistedEdit(c Chemical) ChemicalEdit {
	return ChemicalEdit{persisted: &c}
}

// Draft returns the draft payload when the edit creates a record.
func (e ChemicalEdit) Draft() (ChemicalDraft, bool) {
	if e.draft == nil {
		return ChemicalDraft{}, false
	}
	return *e.draft, true
}

// Persisted returns the replacement record when the edit updates one.
func (e ChemicalEdit) Persisted() (Chemical, bool) {
	if e.persisted == nil {
		return Chemical{}, false
	}
	return *e.persisted, true
}
