// Package store is the durable local cache behind the sync engine: the
// mirrored order queue, queued incident writes awaiting replay, and the
// incident audit log. Uses SQLite with WAL mode so readers stay live
// during writes; the cache survives process restart.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/unilove/ridersync/internal/feed"
	"github.com/unilove/ridersync/internal/model"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added incident_id linkage on pending_incidents
const currentSchemaVersion = 1

// Store provides durable storage for the dispatch cache.
type Store struct {
	db *sql.DB

	orders    *feed.Feed[[]model.Order]
	incidents *feed.Feed[[]model.IncidentRecord]
}

// Open creates or opens the cache database at the given path.
// Applies required pragmas and migrations automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//
// This function is idempotent - safe to call multiple times.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	s := &Store{
		db:        db,
		orders:    feed.New([]model.Order{}),
		incidents: feed.New([]model.IncidentRecord{}),
	}

	// Seed the feeds so subscribers see persisted state from launch.
	ctx := context.Background()
	if err := s.republishOrders(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.republishIncidents(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// WatchOrders returns a subscription to the cached order queue. The
// channel is primed with the current snapshot and receives a new one
// after every committed mutation.
func (s *Store) WatchOrders(ctx context.Context) <-chan []model.Order {
	return s.orders.Subscribe(ctx)
}

// WatchIncidents returns a subscription to the incident audit log,
// newest first.
func (s *Store) WatchIncidents(ctx context.Context) <-chan []model.IncidentRecord {
	return s.incidents.Subscribe(ctx)
}

func (s *Store) republishOrders(ctx context.Context) error {
	orders, err := s.ListOrders(ctx)
	if err != nil {
		return err
	}
	s.orders.Publish(orders)
	return nil
}

func (s *Store) republishIncidents(ctx context.Context) error {
	incidents, err := s.ListIncidents(ctx)
	if err != nil {
		return err
	}
	s.incidents.Publish(incidents)
	return nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
		version = 1
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 backfills the incident_id column for pending rows written
// before the audit-log linkage existed. New databases get the column from
// schema.sql directly.
func migrateToV1(db *sql.DB) error {
	var count int
	err := db.QueryRow(`
		SELECT COUNT(*) FROM pragma_table_info('pending_incidents')
		WHERE name = 'incident_id'
	`).Scan(&count)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	if count == 0 {
		if _, err := db.Exec(`ALTER TABLE pending_incidents ADD COLUMN incident_id TEXT NOT NULL DEFAULT ''`); err != nil {
			return fmt.Errorf("migrate to v1: %w", err)
		}
	}
	return nil
}
