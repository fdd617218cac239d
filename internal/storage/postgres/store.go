package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema string

// Store provides Postgres persistence for trades, features, leaderboards and
// pipeline state.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates missing tables and indexes.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// LoadState returns the last completed day and run id recorded under name.
func (s *Store) LoadState(ctx context.Context, name string) (time.Time, string, bool, error) {
	if name == "" {
		return time.Time{}, "", false, fmt.Errorf("state name required")
	}
	var (
		day   time.Time
		runID string
	)
	row := s.pool.QueryRow(ctx, `SELECT last_day, run_id FROM pipeline_state WHERE name=$1`, name)
	if err := row.Scan(&day, &runID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, "", false, nil
		}
		return time.Time{}, "", false, err
	}
	return day.UTC(), runID, true, nil
}

// SaveState upserts the last completed day for name.
func (s *Store) SaveState(ctx context.Context, name string, day time.Time, runID string) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO pipeline_state (name, last_day, run_id, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (name) DO UPDATE
		SET last_day = EXCLUDED.last_day, run_id = EXCLUDED.run_id, updated_at = now()
	`, name, day, runID)
	return err
}
