package auction

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CompensationEvent is a forward event that reverses the effect of an
// earlier one. Each kind defines its own reversal; compensation is
// never an implicit inversion or a mutation of history.
type CompensationEvent interface {
	DomainEvent
	OriginalEvent() uuid.UUID
	Compensate(a *Auction) error
}

// ReplayService rebuilds aggregates from the event log. Because Apply
// is deterministic, a rebuild reproduces the exact state of the live
// instance that produced the events.
type ReplayService struct {
	store EventStore
}

// NewReplayService creates a replay service over a store.
func NewReplayService(store EventStore) *ReplayService {
	return &ReplayService{store: store}
}

// RebuildAggregate replays the full ordered log into a fresh
// aggregate.
func (s *ReplayService) RebuildAggregate(ctx context.Context, auctionID AuctionID) (*Auction, error) {
	events, err := s.store.GetEvents(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, ErrAuctionNotFound
	}
	return replay(events)
}

// RebuildAggregateFromTimestamp rebuilds current state, replaying the
// stream in two parts split at t: the prefix strictly before t, then
// the tail from t on. The prefix is never skipped; applying only a
// mid-stream tail to an empty aggregate would silently desynchronize
// every field the tail does not touch, so the result always equals a
// full rebuild. Consumers that want the raw tail should use
// EventStore.GetEventsForAggregateFromTimestamp directly.
func (s *ReplayService) RebuildAggregateFromTimestamp(ctx context.Context, auctionID AuctionID, t time.Time) (*Auction, error) {
	events, err := s.store.GetEvents(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, ErrAuctionNotFound
	}
	split := len(events)
	for i, event := range events {
		if !event.OccurredAt().Before(t) {
			split = i
			break
		}
	}
	aggregate := NewAuction()
	for _, event := range events[:split] {
		if applyErr := aggregate.Apply(event); applyErr != nil {
			return nil, fmt.Errorf("replay of %s failed at seq %d: %w", auctionID, event.SequenceNumber(), applyErr)
		}
	}
	for _, event := range events[split:] {
		if applyErr := aggregate.Apply(event); applyErr != nil {
			return nil, fmt.Errorf("replay of %s failed at seq %d: %w", auctionID, event.SequenceNumber(), applyErr)
		}
	}
	return aggregate, nil
}

// ReconstructStateAtTimestamp produces the point-in-time view as of t:
// only events with timestamp <= t are applied.
func (s *ReplayService) ReconstructStateAtTimestamp(ctx context.Context, auctionID AuctionID, t time.Time) (*Auction, error) {
	events, err := s.store.GetEvents(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	aggregate := NewAuction()
	applied := 0
	for _, event := range events {
		if event.OccurredAt().After(t) {
			break
		}
		if applyErr := aggregate.Apply(event); applyErr != nil {
			return nil, fmt.Errorf("replay of %s failed at seq %d: %w", auctionID, event.SequenceNumber(), applyErr)
		}
		applied++
	}
	if applied == 0 {
		return nil, ErrAuctionNotFound
	}
	return aggregate, nil
}

func replay(events []DomainEvent) (*Auction, error) {
	aggregate := NewAuction()
	for _, event := range events {
		if err := aggregate.Apply(event); err != nil {
			return nil, fmt.Errorf("replay failed at seq %d (%s): %w", event.SequenceNumber(), event.Type(), err)
		}
	}
	return aggregate, nil
}

// AuditEntry is one row of an aggregate's audit trail.
type AuditEntry struct {
	EventID        uuid.UUID
	EventType      EventType
	SequenceNumber int64
	Timestamp      time.Time
	Compensation   bool
}

// AuditTrailService derives ordered audit views from the event log.
type AuditTrailService struct {
	store EventStore
}

// NewAuditTrailService creates an audit service over a store.
func NewAuditTrailService(store EventStore) *AuditTrailService {
	return &AuditTrailService{store: store}
}

// Trail returns the full audit trail for an aggregate in sequence
// order.
func (s *AuditTrailService) Trail(ctx context.Context, auctionID AuctionID) ([]AuditEntry, error) {
	events, err := s.store.GetEvents(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	return toEntries(events), nil
}

// TrailBetween returns audit entries for events in [from, to].
func (s *AuditTrailService) TrailBetween(ctx context.Context, from, to time.Time) ([]AuditEntry, error) {
	events, err := s.store.GetEventsByTimestampRange(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return toEntries(events), nil
}

func toEntries(events []DomainEvent) []AuditEntry {
	entries := make([]AuditEntry, 0, len(events))
	for _, event := range events {
		_, compensation := event.(CompensationEvent)
		entries = append(entries, AuditEntry{
			EventID:        event.EventID(),
			EventType:      event.Type(),
			SequenceNumber: event.SequenceNumber(),
			Timestamp:      event.OccurredAt(),
			Compensation:   compensation,
		})
	}
	return entries
}
