// Package memory provides an in-memory implementation of the core persistence
// store used for tests and ephemeral environments.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"labstock/pkg/domain"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
)

// Compile-time contract assertions ensuring memory.Store adheres to the domain persistence interfaces.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Chemical aliases domain.Chemical for in-memory persistence operations.
	Chemical = domain.Chemical
	// Transaction aliases domain.Transaction, an immutable ledger entry.
	Transaction = domain.Transaction
	// User aliases domain.User.
	User = domain.User
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
)

// memoryState keeps maps for lookup plus id slices for insertion order, which
// is the canonical iteration order for chemicals and users.
type memoryState struct {
	chemicals     map[string]Chemical
	chemicalOrder []string
	ledger        []Transaction
	users         map[string]User
	userOrder     []string
}

// Snapshot captures a point-in-time clone of the store state. Slices keep the
// store's iteration order; the ledger is newest-first by insertion.
type Snapshot struct {
	Chemicals    []Chemical    `json:"chemicals"`
	Transactions []Transaction `json:"transactions"`
	Users        []User        `json:"users"`
}

func newMemoryState() memoryState {
	return memoryState{
		chemicals: make(map[string]Chemical),
		users:     make(map[string]User),
	}
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.chemicals {
		cloned.chemicals[k] = cloneChemical(v)
	}
	cloned.chemicalOrder = append([]string(nil), s.chemicalOrder...)
	cloned.ledger = cloneLedger(s.ledger)
	for k, v := range s.users {
		cloned.users[k] = v
	}
	cloned.userOrder = append([]string(nil), s.userOrder...)
	return cloned
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	s := Snapshot{
		Chemicals:    make([]Chemical, 0, len(state.chemicalOrder)),
		Transactions: cloneLedger(state.ledger),
		Users:        make([]User, 0, len(state.userOrder)),
	}
	for _, id := range state.chemicalOrder {
		s.Chemicals = append(s.Chemicals, cloneChemical(state.chemicals[id]))
	}
	for _, id := range state.userOrder {
		s.Users = append(s.Users, state.users[id])
	}
	return s
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := newMemoryState()
	for _, c := range s.Chemicals {
		if c.ID == "" {
			continue
		}
		if _, dup := state.chemicals[c.ID]; dup {
			continue
		}
		if c.UnitsInUse == nil {
			c.UnitsInUse = []domain.UnitInUse{}
		}
		if c.CurrentStock.Sign() < 0 {
			c.CurrentStock = decimal.Zero
		}
		state.chemicals[c.ID] = cloneChemical(c)
		state.chemicalOrder = append(state.chemicalOrder, c.ID)
	}
	state.ledger = cloneLedger(s.Transactions)
	for _, u := range s.Users {
		if u.ID == "" {
			continue
		}
		if _, dup := state.users[u.ID]; dup {
			continue
		}
		if u.Initials == "" {
			u.Initials = domain.Initials(u.Name)
		}
		state.users[u.ID] = u
		state.userOrder = append(state.userOrder, u.ID)
	}
	return state
}

func cloneChemical(c Chemical) Chemical {
	cp := c
	if c.UnitsInUse != nil {
		cp.UnitsInUse = append(make([]domain.UnitInUse, 0, len(c.UnitsInUse)), c.UnitsInUse...)
	}
	return cp
}

func cloneTransaction(t Transaction) Transaction {
	cp := t
	if t.Reason != nil {
		r := *t.Reason
		cp.Reason = &r
	}
	return cp
}

func cloneLedger(in []Transaction) []Transaction {
	out := make([]Transaction, 0, len(in))
	for _, t := range in {
		out = append(out, cloneTransaction(t))
	}
	return out
}

func removeID(ids []string, id string) []string {
	out := ids[:0:0]
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}

// Store provides an in-memory transactional store for the core domain.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
	commit CommitFunc
}

// CommitFunc receives the state a transaction is about to commit. A non-nil
// error aborts the commit and leaves the previous state in place.
type CommitFunc func(ctx context.Context, next Snapshot) error

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

func newID() string {
	return uuid.Must(uuid.NewV4()).String()
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(snapshot)
}

// SetCommitHook installs fn to run under the write lock before each commit.
// Durable backends use it so a failed write never reaches memory.
func (s *Store) SetCommitHook(fn CommitFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commit = fn
}

// RulesEngine exposes the currently configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// NowFunc returns the time provider used by the in-memory store.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

// SetNowFunc swaps the time provider, mainly for deterministic tests.
func (s *Store) SetNowFunc(fn func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fn == nil {
		fn = func() time.Time { return time.Now().UTC() }
	}
	s.nowFn = fn
}

type transaction struct {
	store   *Store
	state   memoryState
	changes []Change
	now     time.Time
}

type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) domain.TxView {
	return transactionView{state: state}
}

// ListChemicals returns all chemicals in insertion order.
func (v transactionView) ListChemicals() []Chemical {
	out := make([]Chemical, 0, len(v.state.chemicalOrder))
	for _, id := range v.state.chemicalOrder {
		out = append(out, cloneChemical(v.state.chemicals[id]))
	}
	return out
}

// FindChemical retrieves a chemical by ID from the snapshot.
func (v transactionView) FindChemical(id string) (Chemical, bool) {
	c, ok := v.state.chemicals[id]
	if !ok {
		return Chemical{}, false
	}
	return cloneChemical(c), true
}

// ListTransactions returns the ledger in storage order (newest insert first).
func (v transactionView) ListTransactions() []Transaction {
	return cloneLedger(v.state.ledger)
}

// ListUsers returns all users in insertion order.
func (v transactionView) ListUsers() []User {
	out := make([]User, 0, len(v.state.userOrder))
	for _, id := range v.state.userOrder {
		out = append(out, v.state.users[id])
	}
	return out
}

// FindUser retrieves a user by ID from the snapshot.
func (v transactionView) FindUser(id string) (User, bool) {
	u, ok := v.state.users[id]
	return u, ok
}

// RunInTransaction executes fn within a transactional copy of the store state.
// The copy replaces the committed state only when fn succeeds, no rule
// reports a blocking violation and the commit hook, if any, accepts it.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx domain.Tx) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	if s.commit != nil {
		if err := s.commit(ctx, snapshotFromMemoryState(tx.state)); err != nil {
			return result, fmt.Errorf("commit: %w", err)
		}
	}
	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(domain.TxView) error) error {
	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()

	return fn(newTransactionView(&snapshot))
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() domain.TxView {
	return newTransactionView(&tx.state)
}

// Now returns the timestamp shared by every mutation in the transaction.
func (tx *transaction) Now() time.Time {
	return tx.now
}

// NewID allocates a fresh identifier.
func (tx *transaction) NewID() string {
	return newID()
}

// FindChemical exposes chemical lookup within the transaction scope.
func (tx *transaction) FindChemical(id string) (Chemical, bool) {
	c, ok := tx.state.chemicals[id]
	if !ok {
		return Chemical{}, false
	}
	return cloneChemical(c), true
}

// FindUser exposes user lookup within the transaction scope.
func (tx *transaction) FindUser(id string) (User, bool) {
	u, ok := tx.state.users[id]
	return u, ok
}

// CreateChemical stores a new chemical record.
func (tx *transaction) CreateChemical(c Chemical) (Chemical, error) {
	if c.ID == "" {
		c.ID = newID()
	}
	if _, exists := tx.state.chemicals[c.ID]; exists {
		return Chemical{}, fmt.Errorf("chemical %q already exists", c.ID)
	}
	if c.UnitsInUse == nil {
		c.UnitsInUse = []domain.UnitInUse{}
	}
	c.CreatedAt = tx.now
	c.LastUpdated = tx.now
	tx.state.chemicals[c.ID] = cloneChemical(c)
	tx.state.chemicalOrder = append(tx.state.chemicalOrder, c.ID)
	tx.recordChange(Change{Entity: domain.EntityChemical, Action: domain.ActionCreate, After: cloneChemical(c)})
	return cloneChemical(c), nil
}

// UpdateChemical mutates a chemical using the provided mutator function.
func (tx *transaction) UpdateChemical(id string, mutator func(*Chemical) error) (Chemical, error) {
	current, ok := tx.state.chemicals[id]
	if !ok {
		return Chemical{}, domain.ErrNotFound{Entity: domain.EntityChemical, ID: id}
	}
	before := cloneChemical(current)
	current = cloneChemical(current)
	if err := mutator(&current); err != nil {
		return Chemical{}, err
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	current.LastUpdated = tx.now
	if current.UnitsInUse == nil {
		current.UnitsInUse = []domain.UnitInUse{}
	}
	tx.state.chemicals[id] = cloneChemical(current)
	tx.recordChange(Change{Entity: domain.EntityChemical, Action: domain.ActionUpdate, Before: before, After: cloneChemical(current)})
	return cloneChemical(current), nil
}

// AppendTransaction prepends an immutable entry to the ledger.
func (tx *transaction) AppendTransaction(t Transaction) (Transaction, error) {
	if t.ID == "" {
		t.ID = newID()
	}
	for _, existing := range tx.state.ledger {
		if existing.ID == t.ID {
			return Transaction{}, fmt.Errorf("transaction %q already exists", t.ID)
		}
	}
	if _, ok := tx.state.chemicals[t.ChemicalID]; !ok {
		return Transaction{}, domain.ErrNotFound{Entity: domain.EntityChemical, ID: t.ChemicalID}
	}
	if t.Date.IsZero() {
		t.Date = tx.now
	}
	entry := cloneTransaction(t)
	tx.state.ledger = append([]Transaction{entry}, tx.state.ledger...)
	tx.recordChange(Change{Entity: domain.EntityTransaction, Action: domain.ActionCreate, After: cloneTransaction(entry)})
	return cloneTransaction(entry), nil
}

// CreateUser stores a new directory user.
func (tx *transaction) CreateUser(u User) (User, error) {
	if u.ID == "" {
		u.ID = newID()
	}
	if _, exists := tx.state.users[u.ID]; exists {
		return User{}, fmt.Errorf("user %q already exists", u.ID)
	}
	tx.state.users[u.ID] = u
	tx.state.userOrder = append(tx.state.userOrder, u.ID)
	tx.recordChange(Change{Entity: domain.EntityUser, Action: domain.ActionCreate, After: u})
	return u, nil
}

// DeleteUser removes a user, refusing to empty the directory.
func (tx *transaction) DeleteUser(id string) error {
	current, ok := tx.state.users[id]
	if !ok {
		return domain.ErrNotFound{Entity: domain.EntityUser, ID: id}
	}
	if len(tx.state.users) <= 1 {
		return domain.LastUserError{UserID: id}
	}
	delete(tx.state.users, id)
	tx.state.userOrder = removeID(tx.state.userOrder, id)
	tx.recordChange(Change{Entity: domain.EntityUser, Action: domain.ActionDelete, Before: current})
	return nil
}

// Read helpers ---------------------------------------------------------------

// GetChemical retrieves a chemical by ID from committed state.
func (s *Store) GetChemical(id string) (Chemical, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.state.chemicals[id]
	if !ok {
		return Chemical{}, false
	}
	return cloneChemical(c), true
}

// ListChemicals returns all chemicals from committed state in insertion order.
func (s *Store) ListChemicals() []Chemical {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return transactionView{state: &s.state}.ListChemicals()
}

// ListTransactions returns the committed ledger in storage order.
func (s *Store) ListTransactions() []Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneLedger(s.state.ledger)
}

// ListUsers returns all directory users in insertion order.
func (s *Store) ListUsers() []User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return transactionView{state: &s.state}.ListUsers()
}

// Buckets lists the snapshot sections persisted by durable backends, in write order.
var Buckets = []string{"chemicals", "transactions", "users"}

// Bucket returns a pointer to the snapshot section stored under name, suitable
// for JSON encoding and decoding. Unknown names return nil.
func (s *Snapshot) Bucket(name string) any {
	switch name {
	case "chemicals":
		return &s.Chemicals
	case "transactions":
		return &s.Transactions
	case "users":
		return &s.Users
	default:
		return nil
	}
}
