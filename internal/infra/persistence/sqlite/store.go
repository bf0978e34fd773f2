// Package sqlite provides a SQLite-backed persistent store. Transactions run
// against the in-memory store and the committed state is snapshotted to a
// single table of JSON buckets.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"labstock/internal/infra/persistence/memory"
	"labstock/pkg/domain"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // pure go sqlite driver
)

var _ domain.PersistentStore = (*Store)(nil)

const defaultPath = "labstock.db"

// Store persists the in-memory state to a single SQLite table as JSON blobs.
// Every transaction writes its snapshot before the in-memory state moves.
type Store struct {
	*memory.Store
	db   *sqlx.DB
	path string
}

// NewStore constructs a snapshotting SQLite-backed persistent store.
func NewStore(path string, engine *domain.RulesEngine) (*Store, error) {
	if path == "" {
		path = defaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create state table: %w", err)
	}
	s := &Store{Store: memory.NewStore(engine), db: db, path: path}
	if err := s.load(); err != nil {
		_ = db.Close()
		return nil, err
	}
	s.SetCommitHook(s.persist)
	return s, nil
}

type stateRow struct {
	Bucket  string `db:"bucket"`
	Payload []byte `db:"payload"`
}

func (s *Store) load() error {
	var rows []stateRow
	if err := s.db.Select(&rows, `SELECT bucket, payload FROM state`); err != nil {
		return fmt.Errorf("select state: %w", err)
	}
	var (
		snapshot memory.Snapshot
		found    bool
	)
	for _, row := range rows {
		target := snapshot.Bucket(row.Bucket)
		if target == nil || len(row.Payload) == 0 {
			continue
		}
		if err := json.Unmarshal(row.Payload, target); err != nil {
			return fmt.Errorf("decode %s: %w", row.Bucket, err)
		}
		found = true
	}
	if found {
		s.ImportState(snapshot)
	}
	return nil
}

// persist runs under the memory store's write lock, so snapshots land in
// commit order.
func (s *Store) persist(ctx context.Context, snapshot memory.Snapshot) (retErr error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for _, bucket := range memory.Buckets {
		data, err := json.Marshal(snapshot.Bucket(bucket))
		if err != nil {
			return err
		}
		if _, err = tx.ExecContext(ctx, `INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, bucket, data); err != nil {
			return fmt.Errorf("upsert %s: %w", bucket, err)
		}
	}
	return tx.Commit()
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db.DB }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
