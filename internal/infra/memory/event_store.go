// Package memory provides in-process implementations of the event
// store and sequence service ports. They honor the same contracts as
// the Postgres and Redis adapters and back the unit tests and local
// runs that have no infrastructure.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/outcry/outcry/internal/auction"
)

// EventStore is an in-memory append-only log with the same optimistic
// concurrency semantics as the Postgres store: an append with a stale
// expected version fails atomically with auction.ErrOptimisticLock.
type EventStore struct {
	mu      sync.RWMutex
	streams map[string][]auction.StoredEvent
}

// NewEventStore creates an empty store.
func NewEventStore() *EventStore {
	return &EventStore{streams: make(map[string][]auction.StoredEvent)}
}

// Save appends all events for one aggregate atomically, or none.
func (s *EventStore) Save(ctx context.Context, events []auction.DomainEvent, expectedVersion int64) error {
	if len(events) == 0 {
		return nil
	}
	records := make([]auction.StoredEvent, 0, len(events))
	aggregateID := events[0].AggregateID().String()
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

	s.mu.Lock()
	defer s.mu.Unlock()
	stream := s.streams[aggregateID]
	if int64(len(stream)) != expectedVersion {
		return fmt.Errorf("%w: expected version %d, persisted %d",
			auction.ErrOptimisticLock, expectedVersion, len(stream))
	}
	next := expectedVersion + 1
	for _, record := range records {
		if record.SequenceNumber != next {
			return fmt.Errorf("%w: sequence %d already used or out of order",
				auction.ErrOptimisticLock, record.SequenceNumber)
		}
		next++
	}
	s.streams[aggregateID] = append(stream, records...)
	return nil
}

// GetEvents returns the full stream ordered by sequence number.
func (s *EventStore) GetEvents(ctx context.Context, aggregateID auction.AuctionID) ([]auction.DomainEvent, error) {
	s.mu.RLock()
	stream := append([]auction.StoredEvent(nil), s.streams[aggregateID.String()]...)
	s.mu.RUnlock()
	return auction.DecodeEvents(stream)
}

// GetEventsAfter returns the tail of the stream past seq.
func (s *EventStore) GetEventsAfter(ctx context.Context, aggregateID auction.AuctionID, seq int64) ([]auction.DomainEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var tail []auction.StoredEvent
	for _, record := range s.streams[aggregateID.String()] {
		if record.SequenceNumber > seq {
			tail = append(tail, record)
		}
	}
	return auction.DecodeEvents(tail)
}

// GetEventsFromTimestamp returns all events at or after from, across
// aggregates, in timestamp order.
func (s *EventStore) GetEventsFromTimestamp(ctx context.Context, from time.Time) ([]auction.DomainEvent, error) {
	return s.selectByTime(func(t time.Time) bool { return !t.Before(from) })
}

// GetEventsForAggregateFromTimestamp returns one aggregate's events at
// or after from.
func (s *EventStore) GetEventsForAggregateFromTimestamp(ctx context.Context, aggregateID auction.AuctionID, from time.Time) ([]auction.DomainEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []auction.StoredEvent
	for _, record := range s.streams[aggregateID.String()] {
		if !record.Timestamp.Before(from) {
			matched = append(matched, record)
		}
	}
	return auction.DecodeEvents(matched)
}

// GetEventsByTimestampRange returns all events in [from, to].
func (s *EventStore) GetEventsByTimestampRange(ctx context.Context, from, to time.Time) ([]auction.DomainEvent, error) {
	return s.selectByTime(func(t time.Time) bool { return !t.Before(from) && !t.After(to) })
}

func (s *EventStore) selectByTime(match func(time.Time) bool) ([]auction.DomainEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []auction.StoredEvent
	for _, stream := range s.streams {
		for _, record := range stream {
			if match(record.Timestamp) {
				matched = append(matched, record)
			}
		}
	}
	sortByTimestamp(matched)
	return auction.DecodeEvents(matched)
}

func sortByTimestamp(records []auction.StoredEvent) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})
}

// AllRecords returns every stored record across aggregates in global
// append order per stream; used by the relay tests.
func (s *EventStore) AllRecords() []auction.StoredEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var all []auction.StoredEvent
	for _, stream := range s.streams {
		all = append(all, stream...)
	}
	sortByTimestamp(all)
	return all
}
