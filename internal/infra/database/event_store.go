package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/outcry/outcry/internal/auction"
)

const uniqueViolationCode = "23505"

// PostgresEventStore implements auction.EventStore on the
// auction_events table. Appends are atomic per aggregate: the
// persisted version is checked inside the transaction and the primary
// key on (aggregate_id, sequence_number) backstops writers that raced
// past the check.
type PostgresEventStore struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

// NewPostgresEventStore creates a PostgreSQL event store. lockTimeout
// bounds how long an append waits behind a competing writer on the
// same stream (0 = wait indefinitely).
func NewPostgresEventStore(pool *pgxpool.Pool, lockTimeout time.Duration) *PostgresEventStore {
	return &PostgresEventStore{pool: pool, lockTimeout: lockTimeout}
}

// beginAppendTx opens the append transaction. The lock timeout is set
// per transaction so a stalled competing append surfaces as an error
// instead of a wedged command.
func (s *PostgresEventStore) beginAppendTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	if s.lockTimeout > 0 {
		_, err = tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds()))
		if err != nil {
			_ = tx.Rollback(ctx)
			return nil, fmt.Errorf("failed to set lock timeout: %w", err)
		}
	}
	return tx, nil
}

// Save appends all events for one aggregate, or none. A stale
// expectedVersion fails with auction.ErrOptimisticLock and leaves the
// store unchanged.
func (s *PostgresEventStore) Save(ctx context.Context, events []auction.DomainEvent, expectedVersion int64) error {
	if len(events) == 0 {
		return nil
	}
	aggregateID := events[0].AggregateID().String()
	records := make([]auction.StoredEvent, 0, len(events))
	for _, event := range events {
		if event.AggregateID().String() != aggregateID {
			return fmt.Errorf("save batch spans multiple aggregates")
		}
		record, err := auction.EncodeEvent(event)
		if err != nil {
			return err
		}
		records = append(records, record)
	}

	tx, err := s.beginAppendTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var persistedVersion int64
	query := `
		SELECT COALESCE(MAX(sequence_number), 0)
		FROM auction_events
		WHERE aggregate_id = $1
	`
	if err := tx.QueryRow(ctx, query, aggregateID).Scan(&persistedVersion); err != nil {
		return fmt.Errorf("failed to read persisted version: %w", err)
	}
	if persistedVersion != expectedVersion {
		return fmt.Errorf("%w: expected version %d, persisted %d",
			auction.ErrOptimisticLock, expectedVersion, persistedVersion)
	}

	insert := `
		INSERT INTO auction_events (event_id, aggregate_id, aggregate_type, event_type, event_data, sequence_number, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for i, record := range records {
		_, err := tx.Exec(ctx, insert,
			events[i].EventID(),
			record.AggregateID,
			record.AggregateType,
			record.EventType,
			record.EventData,
			record.SequenceNumber,
			record.Timestamp,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
				return fmt.Errorf("%w: sequence %d already written by a concurrent writer",
					auction.ErrOptimisticLock, record.SequenceNumber)
			}
			return fmt.Errorf("failed to insert event: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return fmt.Errorf("%w: concurrent append detected at commit", auction.ErrOptimisticLock)
		}
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetEvents returns the full stream ordered by sequence number.
func (s *PostgresEventStore) GetEvents(ctx context.Context, aggregateID auction.AuctionID) ([]auction.DomainEvent, error) {
	query := `
		SELECT aggregate_id, aggregate_type, event_type, event_data, sequence_number, timestamp
		FROM auction_events
		WHERE aggregate_id = $1
		ORDER BY sequence_number ASC
	`
	return s.queryEvents(ctx, query, aggregateID.String())
}

// GetEventsAfter returns the tail of an aggregate's stream past seq.
func (s *PostgresEventStore) GetEventsAfter(ctx context.Context, aggregateID auction.AuctionID, seq int64) ([]auction.DomainEvent, error) {
	query := `
		SELECT aggregate_id, aggregate_type, event_type, event_data, sequence_number, timestamp
		FROM auction_events
		WHERE aggregate_id = $1 AND sequence_number > $2
		ORDER BY sequence_number ASC
	`
	return s.queryEvents(ctx, query, aggregateID.String(), seq)
}

// GetEventsFromTimestamp returns all events at or after from, across
// aggregates.
func (s *PostgresEventStore) GetEventsFromTimestamp(ctx context.Context, from time.Time) ([]auction.DomainEvent, error) {
	query := `
		SELECT aggregate_id, aggregate_type, event_type, event_data, sequence_number, timestamp
		FROM auction_events
		WHERE timestamp >= $1
		ORDER BY timestamp ASC, sequence_number ASC
	`
	return s.queryEvents(ctx, query, from)
}

// GetEventsForAggregateFromTimestamp returns one aggregate's events at
// or after from.
func (s *PostgresEventStore) GetEventsForAggregateFromTimestamp(ctx context.Context, aggregateID auction.AuctionID, from time.Time) ([]auction.DomainEvent, error) {
	query := `
		SELECT aggregate_id, aggregate_type, event_type, event_data, sequence_number, timestamp
		FROM auction_events
		WHERE aggregate_id = $1 AND timestamp >= $2
		ORDER BY sequence_number ASC
	`
	return s.queryEvents(ctx, query, aggregateID.String(), from)
}

// GetEventsByTimestampRange returns all events in [from, to].
func (s *PostgresEventStore) GetEventsByTimestampRange(ctx context.Context, from, to time.Time) ([]auction.DomainEvent, error) {
	query := `
		SELECT aggregate_id, aggregate_type, event_type, event_data, sequence_number, timestamp
		FROM auction_events
		WHERE timestamp >= $1 AND timestamp <= $2
		ORDER BY timestamp ASC, sequence_number ASC
	`
	return s.queryEvents(ctx, query, from, to)
}

func (s *PostgresEventStore) queryEvents(ctx context.Context, query string, args ...any) ([]auction.DomainEvent, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var records []auction.StoredEvent
	for rows.Next() {
		var record auction.StoredEvent
		if err := rows.Scan(
			&record.AggregateID,
			&record.AggregateType,
			&record.EventType,
			&record.EventData,
			&record.SequenceNumber,
			&record.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}
	return auction.DecodeEvents(records)
}

// ReadLog returns up to limit records past position in global append
// order, with their positions. Used by the publishing relay.
func (s *PostgresEventStore) ReadLog(ctx context.Context, after int64, limit int) ([]auction.PositionedEvent, error) {
	query := `
		SELECT global_position, aggregate_id, aggregate_type, event_type, event_data, sequence_number, timestamp
		FROM auction_events
		WHERE global_position > $1
		ORDER BY global_position ASC
		LIMIT $2
	`
	rows, err := s.pool.Query(ctx, query, after, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read event log: %w", err)
	}
	defer rows.Close()

	var records []auction.PositionedEvent
	for rows.Next() {
		var record auction.PositionedEvent
		if err := rows.Scan(
			&record.Position,
			&record.Record.AggregateID,
			&record.Record.AggregateType,
			&record.Record.EventType,
			&record.Record.EventData,
			&record.Record.SequenceNumber,
			&record.Record.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read event log: %w", err)
	}
	return records, nil
}
