package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/outcry/outcry/internal/auction"
)

// RecordPublisher is the broker surface the relay needs: ordered
// publishing plus a dead-letter path for records that cannot be
// processed.
type RecordPublisher interface {
	PublishRecord(ctx context.Context, record auction.StoredEvent) error
	PublishDeadLetter(ctx context.Context, record auction.StoredEvent, reason string) error
}

// EventRelay polls the event store's global log from a durable cursor
// and publishes every new event, in order, at least once. The event
// log itself plays the role of the transactional outbox: an event is
// either durably appended (and will eventually be published) or was
// never appended at all. Records that cannot be decoded go to the
// dead-letter exchange rather than halting the stream.
type EventRelay struct {
	log       auction.EventLog
	cursors   auction.CursorStore
	publisher RecordPublisher
	consumer  string
	batchSize int
	interval  time.Duration
	logger    *slog.Logger
}

// NewEventRelay creates a relay identified by consumer; each consumer
// name keeps its own cursor.
func NewEventRelay(
	log auction.EventLog,
	cursors auction.CursorStore,
	publisher RecordPublisher,
	consumer string,
	batchSize int,
	interval time.Duration,
	logger *slog.Logger,
) *EventRelay {
	return &EventRelay{
		log:       log,
		cursors:   cursors,
		publisher: publisher,
		consumer:  consumer,
		batchSize: batchSize,
		interval:  interval,
		logger:    logger,
	}
}

// Run starts the polling loop
func (r *EventRelay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	// Initial run
	if err := r.ProcessBatch(ctx); err != nil {
		r.logger.Error("Error processing batch", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := r.ProcessBatch(ctx); err != nil {
				r.logger.Error("Error processing batch", "error", err)
			}
		}
	}
}

// ProcessBatch publishes one batch of new events and advances the
// cursor. The cursor is saved only after the whole batch went out, so
// a crash mid-batch re-publishes (at-least-once), never skips.
func (r *EventRelay) ProcessBatch(ctx context.Context) error {
	position, err := r.cursors.Load(ctx, r.consumer)
	if err != nil {
		return fmt.Errorf("failed to load cursor: %w", err)
	}

	records, err := r.log.ReadLog(ctx, position, r.batchSize)
	if err != nil {
		return fmt.Errorf("failed to read event log: %w", err)
	}
	if len(records) == 0 {
		return nil // Nothing to do
	}

	r.logger.Info("Publishing events", "count", len(records), "from_position", position)

	for _, positioned := range records {
		record := positioned.Record

		// A record that no longer decodes must not wedge the stream:
		// surface it on the DLQ and move on.
		if _, decodeErr := auction.DecodeEvent(record); decodeErr != nil {
			if errors.Is(decodeErr, auction.ErrSerialization) {
				r.logger.Error("undecodable event routed to dead letter",
					"aggregate_id", record.AggregateID,
					"sequence_number", record.SequenceNumber,
					"error", decodeErr)
				if dlqErr := r.publisher.PublishDeadLetter(ctx, record, decodeErr.Error()); dlqErr != nil {
					return fmt.Errorf("failed to dead-letter event: %w", dlqErr)
				}
				position = positioned.Position
				continue
			}
			return decodeErr
		}

		if pubErr := r.publisher.PublishRecord(ctx, record); pubErr != nil {
			// Publishing failed; the cursor stays put and the whole
			// tail is retried next tick.
			return fmt.Errorf("failed to publish event %s/%d: %w",
				record.AggregateID, record.SequenceNumber, pubErr)
		}
		position = positioned.Position
	}

	if err := r.cursors.Save(ctx, r.consumer, position); err != nil {
		return fmt.Errorf("failed to save cursor: %w", err)
	}
	return nil
}
