// Package history persists a per-invocation audit log of run_nest
// calls. It is explicitly a front-end collaborator wrapping the core's
// session API — the core itself has no persisted state — opening a
// Postgres connection and bootstrapping its own schema on the
// jmoiron/sqlx + lib/pq stack.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Record is one row of run history.
type Record struct {
	ID          uuid.UUID `db:"id"`
	RequestedAt time.Time `db:"requested_at"`
	Fitness     *float64  `db:"fitness"`
	BinsUsed    *int      `db:"bins_used"`
	DurationMS  int64     `db:"duration_ms"`
	Error       *string   `db:"error"`
}

// Store wraps a Postgres connection pool holding the run_history table.
type Store struct {
	db *sqlx.DB
}

// Config holds the connection parameters for Open.
type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open connects to Postgres and ensures the run_history schema exists.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("history: connecting: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	store := &Store{db: db}
	if err := store.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) migrate(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS run_history (
		id UUID PRIMARY KEY,
		requested_at TIMESTAMPTZ NOT NULL,
		fitness DOUBLE PRECISION,
		bins_used INTEGER,
		duration_ms BIGINT NOT NULL,
		error TEXT
	);`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("history: migrating schema: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error { return s.db.Close() }

// Record inserts exactly one row per RunNest call, including on error paths where fitness and
// bins_used are left null.
func (s *Store) Record(ctx context.Context, rec Record) error {
	const q = `
	INSERT INTO run_history (id, requested_at, fitness, bins_used, duration_ms, error)
	VALUES (:id, :requested_at, :fitness, :bins_used, :duration_ms, :error)`
	_, err := s.db.NamedExecContext(ctx, q, rec)
	if err != nil {
		return fmt.Errorf("history: recording run %s: %w", rec.ID, err)
	}
	return nil
}

// Get fetches one run_history row by ID.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (Record, error) {
	var rec Record
	const q = `SELECT id, requested_at, fitness, bins_used, duration_ms, error FROM run_history WHERE id = $1`
	if err := s.db.GetContext(ctx, &rec, q, id); err != nil {
		return Record{}, fmt.Errorf("history: fetching run %s: %w", id, err)
	}
	return rec, nil
}
