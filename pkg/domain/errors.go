package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a referenced chemical, unit, or user does not exist.
type ErrNotFound struct {
	Entity EntityType
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// InsufficientStockError rejects an OUT transaction that exceeds sealed stock.
type InsufficientStockError struct {
	ChemicalID string
	Available  decimal.Decimal
	Requested  decimal.Decimal
}

func (e InsufficientStockError) Error() string {
	if e.Available.Sign() <= 0 {
		return fmt.Sprintf("chemical %s is out of stock", e.ChemicalID)
	}
	return fmt.Sprintf("chemical %s: requested %s exceeds available stock %s", e.ChemicalID, e.Requested, e.Available)
}

// InvalidInputError reports a malformed request field.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// LastUserError is returned when deleting the only remaining directory user.
type LastUserError struct {
	UserID string
}

func (e LastUserError) Error() string {
	return fmt.Sprintf("cannot delete user %s: directory must keep at least one user", e.UserID)
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	blocking := e.Result.BySeverity(SeverityBlock)
	if len(blocking) == 0 {
		return "transaction blocked by rules"
	}
	return fmt.Sprintf("transaction blocked by rules: %s", blocking[0].Message)
}
