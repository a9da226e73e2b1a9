package auction

import (
	"context"
	"time"
)

// EventStore is the durable append-only log and the correctness
// boundary for concurrent writers. Save appends all events for one
// aggregate atomically, or none, and fails with ErrOptimisticLock
// when the persisted version differs from expectedVersion.
// (aggregateID, sequenceNumber) is unique; a writer reusing a
// sequence number must fail the append.
type EventStore interface {
	Save(ctx context.Context, events []DomainEvent, expectedVersion int64) error
	GetEvents(ctx context.Context, aggregateID AuctionID) ([]DomainEvent, error)
	GetEventsAfter(ctx context.Context, aggregateID AuctionID, seq int64) ([]DomainEvent, error)
	GetEventsFromTimestamp(ctx context.Context, from time.Time) ([]DomainEvent, error)
	GetEventsForAggregateFromTimestamp(ctx context.Context, aggregateID AuctionID, from time.Time) ([]DomainEvent, error)
	GetEventsByTimestampRange(ctx context.Context, from, to time.Time) ([]DomainEvent, error)
}

// EventPublisher fans events out to downstream consumers with
// at-least-once delivery. Ordering is guaranteed per aggregate only;
// the aggregate id is the partition key.
type EventPublisher interface {
	Publish(ctx context.Context, event DomainEvent) error
}

// SequenceService is a cluster-wide monotonic counter per auction,
// durable across restarts and identical across nodes. Values are
// never reused.
type SequenceService interface {
	NextSequence(ctx context.Context, auctionID AuctionID) (int64, error)
}

// PriceReductionSchedule describes a Dutch reduction timer.
type PriceReductionSchedule struct {
	AuctionID AuctionID
	Interval  time.Duration
	EndTime   time.Time
}

// CloseSchedule describes an auction close timer.
type CloseSchedule struct {
	AuctionID AuctionID
	EndTime   time.Time
}

// TimerService schedules auction close and price-reduction callbacks.
// Callbacks re-enter the normal command path; there is no privileged
// bypass of validation or versioning. Cancelling or rescheduling a
// timer for a terminal aggregate is a no-op, never an error.
type TimerService interface {
	ScheduleAuctionClose(ctx context.Context, auctionID AuctionID, endTime time.Time) error
	RescheduleAuctionClose(ctx context.Context, auctionID AuctionID, endTime time.Time) error
	CancelAuctionClose(ctx context.Context, auctionID AuctionID) error
	SchedulePriceReductions(ctx context.Context, auctionID AuctionID, interval time.Duration, endTime time.Time) error
	ScheduleBatch(ctx context.Context, schedules []CloseSchedule) error
}

// PositionedEvent is a stored event with its position in the global
// append log.
type PositionedEvent struct {
	Position int64
	Record   StoredEvent
}

// EventLog exposes the global append order of the store for the
// publishing relay.
type EventLog interface {
	ReadLog(ctx context.Context, after int64, limit int) ([]PositionedEvent, error)
}

// CursorStore persists a relay consumer's log position.
type CursorStore interface {
	Load(ctx context.Context, consumer string) (int64, error)
	Save(ctx context.Context, consumer string, position int64) error
}

// AggregateCache is a non-authoritative read-through cache of
// reconstructed aggregates. It may be stale across nodes; only the
// store's version check is authoritative.
type AggregateCache interface {
	Get(auctionID AuctionID) (*Auction, bool)
	Put(auctionID AuctionID, aggregate *Auction)
	Invalidate(auctionID AuctionID)
}
