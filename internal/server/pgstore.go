package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coinduel/dueljack/internal/game"
)

const matchesSchema = `
CREATE TABLE IF NOT EXISTS matches (
	id         TEXT PRIMARY KEY,
	state      JSONB NOT NULL,
	version    BIGINT NOT NULL,
	completed  BOOLEAN NOT NULL DEFAULT FALSE,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PGStore persists matches in Postgres. Version checks ride on the UPDATE's
// WHERE clause, so concurrent writers never need an explicit lock.
type PGStore struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

// NewPGStore connects to databaseURL and ensures the matches table exists
func NewPGStore(ctx context.Context, databaseURL string, logger *log.Logger) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, matchesSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating matches table: %w", err)
	}
	return &PGStore{pool: pool, logger: logger.WithPrefix("pgstore")}, nil
}

// Close releases the connection pool
func (s *PGStore) Close() {
	s.pool.Close()
}

// Load returns the stored match
func (s *PGStore) Load(ctx context.Context, id string) (*game.Match, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT state FROM matches WHERE id = $1`, id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, game.ErrUnknownMatch
	}
	if err != nil {
		return nil, fmt.Errorf("loading match %s: %w", id, err)
	}
	var m game.Match
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decoding match %s: %w", id, err)
	}
	return &m, nil
}

// Save inserts the match when expected is 0, otherwise compare-and-swaps
// against the expected version.
func (s *PGStore) Save(ctx context.Context, m *game.Match, expected uint64) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding match %s: %w", m.ID, err)
	}
	done := m.Completed || m.Faulted

	if expected == 0 {
		tag, err := s.pool.Exec(ctx,
			`INSERT INTO matches (id, state, version, completed) VALUES ($1, $2, $3, $4)
			 ON CONFLICT (id) DO NOTHING`,
			m.ID, raw, int64(m.Version), done)
		if err != nil {
			return fmt.Errorf("inserting match %s: %w", m.ID, err)
		}
		if tag.RowsAffected() == 0 {
			return game.ErrConcurrentModification
		}
		return nil
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE matches SET state = $2, version = $3, completed = $4, updated_at = now()
		 WHERE id = $1 AND version = $5`,
		m.ID, raw, int64(m.Version), done, int64(expected))
	if err != nil {
		return fmt.Errorf("saving match %s: %w", m.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return game.ErrConcurrentModification
	}
	return nil
}

// Delete removes the match
func (s *PGStore) Delete(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM matches WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting match %s: %w", id, err)
	}
	return nil
}

// ActiveIDs lists matches still awaiting decisions, for the timeout sweep
func (s *PGStore) ActiveIDs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT id FROM matches WHERE completed = FALSE`)
	if err != nil {
		return nil, fmt.Errorf("listing active matches: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning match id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
