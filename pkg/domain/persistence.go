package domain

import (
	"context"
	"time"
)

// Tx exposes the domain operations that a persistence implementation must
// support within an atomic scope. Either every mutation made through a Tx is
// committed or none is.
type Tx interface {
	Snapshot() TxView
	Now() time.Time
	FindChemical(id string) (Chemical, bool)
	CreateChemical(Chemical) (Chemical, error)
	UpdateChemical(id string, mutator func(*Chemical) error) (Chemical, error)
	AppendTransaction(Transaction) (Transaction, error)
	FindUser(id string) (User, bool)
	CreateUser(User) (User, error)
	DeleteUser(id string) error
	NewID() string
}

// TxView provides read-only access to snapshot data.
type TxView interface {
	RuleView
	ListTransactions() []Transaction
	FindUser(id string) (User, bool)
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Tx) error) (Result, error)
	View(ctx context.Context, fn func(TxView) error) error
	GetChemical(id string) (Chemical, bool)
	ListChemicals() []Chemical
	ListTransactions() []Transaction
	ListUsers() []User
}
