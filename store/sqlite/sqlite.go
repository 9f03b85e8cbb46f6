/*
Package sqlite provides a SQLite-backed implementation of every engine provider.

PURPOSE:
  Persists the salon's records (professionals, sales, vales, expenses, stock)
  and its configuration (cycle policy, fee schedule). Reads return snapshots
  for the settlement engine; writes bump a data version so cached reports
  are never served stale.

INTERFACES IMPLEMENTED:
  engine.Store: all providers, including engine.VersionProvider

STORAGE LAYOUT:
  Each record table keeps the full record as JSON in data_json plus the
  columns needed to filter and order it. Timestamps used in WHERE clauses are
  stored as Unix milliseconds so range scans compare integers.

KEY TABLES:
  professionals:   roster, ordered by position (insertion order)
  sales:           finalized checkouts
  vales:           advances, status active|settled
  expenses:        manually entered expenses
  stock_items:     unit cost per product
  stock_purchases: restocks
  settings:        cycle_policy and fee_schedule documents
  data_version:    single row counter, incremented by every write

CONCURRENCY:
  Uses sync.RWMutex around the *sql.DB, like the in-memory store. Every
  write runs in one SQL transaction together with its version bump.

WAL MODE:
  Opened with WAL so readers don't block the single writer.

USAGE:
  store, err := sqlite.New("./data/salon.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc, err := engine.New(engine.FromStore(store), engine.Options{})

SEE ALSO:
  - engine/providers.go: Interface definitions
  - store/memory: In-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/settlement-engine/factory"
)

// ErrNotFound is returned when a record or setting does not exist.
var ErrNotFound = errors.New("not found")

// Store implements engine.Store using SQLite.
type Store struct {
	db      *sql.DB
	mu      sync.RWMutex
	factory *factory.Factory
}

// New opens (and migrates) the database at dbPath.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Each pooled connection would get its own empty database.
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db, factory: factory.New()}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS professionals (
		id TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		employment TEXT NOT NULL,
		salary_source TEXT NOT NULL DEFAULT 'salon',
		data_json TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sales (
		id TEXT PRIMARY KEY,
		at_ms INTEGER NOT NULL,
		method TEXT NOT NULL,
		total TEXT NOT NULL,
		data_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sales_at ON sales(at_ms);

	CREATE TABLE IF NOT EXISTS vales (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		at_ms INTEGER NOT NULL,
		total TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		data_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_vales_employee ON vales(employee_id);

	CREATE TABLE IF NOT EXISTS expenses (
		id TEXT PRIMARY KEY,
		at_ms INTEGER NOT NULL,
		category TEXT,
		amount TEXT NOT NULL,
		source TEXT NOT NULL DEFAULT 'manual',
		data_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_expenses_at ON expenses(at_ms);

	CREATE TABLE IF NOT EXISTS stock_items (
		item_id TEXT PRIMARY KEY,
		name TEXT,
		unit_cost TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS stock_purchases (
		id TEXT PRIMARY KEY,
		at_ms INTEGER NOT NULL,
		item_id TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		unit_cost TEXT NOT NULL,
		data_json TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_stock_purchases_at ON stock_purchases(at_ms);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value_json TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS data_version (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		version INTEGER NOT NULL
	);
	INSERT OR IGNORE INTO data_version (id, version) VALUES (1, 0);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// WRITE HELPER + DATA VERSION
// =============================================================================

// write runs fn and the version bump in one transaction.
func (s *Store) write(ctx context.Context, fn func(tx *sql.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "UPDATE data_version SET version = version + 1 WHERE id = 1"); err != nil {
		return fmt.Errorf("failed to bump data version: %w", err)
	}
	return tx.Commit()
}

// DataVersion returns the write counter.
func (s *Store) DataVersion(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var v int64
	err := s.db.QueryRowContext(ctx, "SELECT version FROM data_version WHERE id = 1").Scan(&v)
	return v, err
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all records and settings (for demos). The data version keeps
// growing so cached reports from before the reset are never reused.
func (s *Store) Reset(ctx context.Context) error {
	return s.write(ctx, func(tx *sql.Tx) error {
		tables := []string{"sales", "vales", "expenses", "stock_purchases", "stock_items", "professionals", "settings"}
		for _, table := range tables {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return err
			}
		}
		return nil
	})
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
