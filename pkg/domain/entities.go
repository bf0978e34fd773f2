// Package domain defines the core persistent entities, value types, and
// rule evaluation primitives used by labstock.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityChemical identifies a chemical record.
	EntityChemical EntityType = "chemical"
	// EntityUnitInUse identifies an opened container owned by a chemical.
	EntityUnitInUse EntityType = "unit_in_use"
	// EntityTransaction identifies an immutable ledger entry.
	EntityTransaction EntityType = "transaction"
	// EntityUser identifies a directory user.
	EntityUser EntityType = "user"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn reports a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Base contains common fields for mutable domain records.
type Base struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	LastUpdated time.Time `json:"last_updated"`
}

// Chemical is the current state of one stocked chemical. CurrentStock counts
// sealed warehouse containers only; opened containers live in UnitsInUse and
// are tracked independently of it.
type Chemical struct {
	Base
	Name          string          `json:"name"`
	Functionality string          `json:"functionality"`
	PackageSize   string          `json:"package_size"`
	Unit          string          `json:"unit"`
	CurrentStock  decimal.Decimal `json:"current_stock"`
	MinLevel      int             `json:"min_level"`
	TargetLevel   int             `json:"target_level"`
	UnitsInUse    []UnitInUse     `json:"units_in_use"`
}

// IsLowStock reports whether the chemical is at or below its reorder point.
func (c Chemical) IsLowStock() bool {
	return c.CurrentStock.LessThanOrEqual(decimal.NewFromInt(int64(c.MinLevel)))
}

// HasOpenUnitsWithoutStock reports the advisory condition where the warehouse
// is empty but an operator still holds an opened container.
func (c Chemical) HasOpenUnitsWithoutStock() bool {
	return c.CurrentStock.Sign() <= 0 && len(c.UnitsInUse) > 0
}

// FindUnit returns the index of the unit with the given id, or -1.
func (c Chemical) FindUnit(unitID string) int {
	for i, u := range c.UnitsInUse {
		if u.ID == unitID {
			return i
		}
	}
	return -1
}

// FillLevel is the remaining percentage of an opened container.
type FillLevel int

// Allowed fill levels for an opened container.
const (
	FillQuarter       FillLevel = 25
	FillHalf          FillLevel = 50
	FillThreeQuarters FillLevel = 75
	FillFull          FillLevel = 100
)

// FillLevels lists the accepted levels in ascending order.
var FillLevels = []FillLevel{FillQuarter, FillHalf, FillThreeQuarters, FillFull}

// Valid reports whether l is one of the discrete fill levels.
func (l FillLevel) Valid() bool {
	switch l {
	case FillQuarter, FillHalf, FillThreeQuarters, FillFull:
		return true
	default:
		return false
	}
}

// UnitInUse is one opened container of a chemical.
type UnitInUse struct {
	ID        string    `json:"id"`
	Remaining FillLevel `json:"remaining"`
}

// TransactionType distinguishes stock receipts from withdrawals.
type TransactionType string

// Ledger transaction directions.
const (
	TransactionIn  TransactionType = "IN"
	TransactionOut TransactionType = "OUT"
)

// Valid reports whether t is a known direction.
func (t TransactionType) Valid() bool {
	return t == TransactionIn || t == TransactionOut
}

// Transaction is an immutable ledger entry. ChemicalName and User are copied
// at creation time and never follow later renames or deletions.
type Transaction struct {
	ID           string          `json:"id"`
	ChemicalID   string          `json:"chemical_id"`
	ChemicalName string          `json:"chemical_name"`
	Type         TransactionType `json:"type"`
	Quantity     decimal.Decimal `json:"quantity"`
	Date         time.Time       `json:"date"`
	User         string          `json:"user"`
	Reason       *string         `json:"reason,omitempty"`
}

// Role is a directory user's permission tier.
type Role string

// Directory roles.
const (
	RoleAdmin   Role = "Admin"
	RoleManager Role = "Manager"
	RoleStaff   Role = "Staff"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleStaff:
		return true
	default:
		return false
	}
}

// User is a directory identity used to attribute ledger entries.
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Role     Role   `json:"role"`
	Initials string `json:"initials"`
}

// Change describes a mutation applied within a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported operations captured in audit trail.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// BySeverity returns the violations recorded at the given severity.
func (r Result) BySeverity(sev Severity) []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.Severity == sev {
			out = append(out, v)
		}
	}
	return out
}
