package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresCursorStore persists the relay's position in the global
// event log so publishing survives restarts without replaying from
// the beginning.
type PostgresCursorStore struct {
	pool *pgxpool.Pool
}

// NewPostgresCursorStore creates a new cursor store.
func NewPostgresCursorStore(pool *pgxpool.Pool) *PostgresCursorStore {
	return &PostgresCursorStore{pool: pool}
}

// Load returns the stored position for a consumer, 0 if none.
func (s *PostgresCursorStore) Load(ctx context.Context, consumer string) (int64, error) {
	query := `
		SELECT position
		FROM publisher_cursors
		WHERE consumer = $1
	`
	var position int64
	err := s.pool.QueryRow(ctx, query, consumer).Scan(&position)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load cursor: %w", err)
	}
	return position, nil
}

// Save upserts the consumer's position.
func (s *PostgresCursorStore) Save(ctx context.Context, consumer string, position int64) error {
	query := `
		INSERT INTO publisher_cursors (consumer, position, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (consumer) DO UPDATE SET position = $2, updated_at = NOW()
	`
	if _, err := s.pool.Exec(ctx, query, consumer, position); err != nil {
		return fmt.Errorf("failed to save cursor: %w", err)
	}
	return nil
}
