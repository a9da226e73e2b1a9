package events

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/outcry/outcry/internal/auction"
)

// fakeLog serves positioned records from a slice.
type fakeLog struct {
	records []auction.PositionedEvent
}

func (l *fakeLog) ReadLog(_ context.Context, after int64, limit int) ([]auction.PositionedEvent, error) {
	var out []auction.PositionedEvent
	for _, record := range l.records {
		if record.Position > after {
			out = append(out, record)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// fakeCursors is an in-memory cursor store.
type fakeCursors struct {
	positions map[string]int64
	saves     int
}

func newFakeCursors() *fakeCursors {
	return &fakeCursors{positions: make(map[string]int64)}
}

func (c *fakeCursors) Load(_ context.Context, consumer string) (int64, error) {
	return c.positions[consumer], nil
}

func (c *fakeCursors) Save(_ context.Context, consumer string, position int64) error {
	c.positions[consumer] = position
	c.saves++
	return nil
}

// fakeRecordPublisher records published and dead-lettered events and
// can fail publishing from a given sequence number onward.
type fakeRecordPublisher struct {
	published  []auction.StoredEvent
	deadLetter []auction.StoredEvent
	failAtSeq  int64
}

func (p *fakeRecordPublisher) PublishRecord(_ context.Context, record auction.StoredEvent) error {
	if p.failAtSeq != 0 && record.SequenceNumber >= p.failAtSeq {
		return fmt.Errorf("broker unavailable")
	}
	p.published = append(p.published, record)
	return nil
}

func (p *fakeRecordPublisher) PublishDeadLetter(_ context.Context, record auction.StoredEvent, _ string) error {
	p.deadLetter = append(p.deadLetter, record)
	return nil
}

func relayRecords(t *testing.T, auctionID auction.AuctionID, count int) []auction.PositionedEvent {
	t.Helper()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	records := make([]auction.PositionedEvent, 0, count)
	for i := 0; i < count; i++ {
		event := &auction.AuctionOpened{BaseEvent: auction.BaseEvent{
			ID:        uuid.New(),
			AuctionID: auctionID,
			Seq:       int64(i + 1),
			At:        base.Add(time.Duration(i) * time.Second),
		}}
		record, err := auction.EncodeEvent(event)
		require.NoError(t, err)
		records = append(records, auction.PositionedEvent{Position: int64(i + 1), Record: record})
	}
	return records
}

func newTestRelay(log *fakeLog, cursors *fakeCursors, publisher *fakeRecordPublisher) *EventRelay {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewEventRelay(log, cursors, publisher, "test-relay", 10, time.Second, logger)
}

func TestEventRelay_ProcessBatch(t *testing.T) {
	auctionID := auction.NewAuctionID()

	t.Run("publishes in order and advances the cursor", func(t *testing.T) {
		log := &fakeLog{records: relayRecords(t, auctionID, 3)}
		cursors := newFakeCursors()
		publisher := &fakeRecordPublisher{}
		relay := newTestRelay(log, cursors, publisher)

		require.NoError(t, relay.ProcessBatch(context.Background()))

		require.Len(t, publisher.published, 3)
		for i, record := range publisher.published {
			assert.Equal(t, int64(i+1), record.SequenceNumber)
		}
		assert.Equal(t, int64(3), cursors.positions["test-relay"])
	})

	t.Run("empty log is a no-op without a cursor write", func(t *testing.T) {
		cursors := newFakeCursors()
		relay := newTestRelay(&fakeLog{}, cursors, &fakeRecordPublisher{})

		require.NoError(t, relay.ProcessBatch(context.Background()))
		assert.Zero(t, cursors.saves)
	})

	t.Run("resumes past the cursor, never re-reads", func(t *testing.T) {
		log := &fakeLog{records: relayRecords(t, auctionID, 5)}
		cursors := newFakeCursors()
		cursors.positions["test-relay"] = 3
		publisher := &fakeRecordPublisher{}
		relay := newTestRelay(log, cursors, publisher)

		require.NoError(t, relay.ProcessBatch(context.Background()))

		require.Len(t, publisher.published, 2)
		assert.Equal(t, int64(4), publisher.published[0].SequenceNumber)
		assert.Equal(t, int64(5), cursors.positions["test-relay"])
	})

	t.Run("batch size bounds one pass", func(t *testing.T) {
		log := &fakeLog{records: relayRecords(t, auctionID, 5)}
		cursors := newFakeCursors()
		publisher := &fakeRecordPublisher{}
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		relay := NewEventRelay(log, cursors, publisher, "test-relay", 2, time.Second, logger)

		require.NoError(t, relay.ProcessBatch(context.Background()))
		assert.Len(t, publisher.published, 2)
		assert.Equal(t, int64(2), cursors.positions["test-relay"])

		// The next tick picks up where the cursor left off.
		require.NoError(t, relay.ProcessBatch(context.Background()))
		assert.Len(t, publisher.published, 4)
	})

	t.Run("publish failure keeps the cursor so the tail is retried", func(t *testing.T) {
		log := &fakeLog{records: relayRecords(t, auctionID, 3)}
		cursors := newFakeCursors()
		publisher := &fakeRecordPublisher{failAtSeq: 2}
		relay := newTestRelay(log, cursors, publisher)

		err := relay.ProcessBatch(context.Background())
		require.Error(t, err)
		assert.Len(t, publisher.published, 1)
		assert.Zero(t, cursors.positions["test-relay"], "cursor must not advance")

		// Broker recovers; everything from the cursor is retried.
		publisher.failAtSeq = 0
		require.NoError(t, relay.ProcessBatch(context.Background()))
		assert.Len(t, publisher.published, 4, "first event delivered twice, at-least-once")
		assert.Equal(t, int64(3), cursors.positions["test-relay"])
	})

	t.Run("undecodable record goes to the dead letter exchange", func(t *testing.T) {
		records := relayRecords(t, auctionID, 3)
		records[1].Record.EventType = auction.EventType("auction.retired") // unknown kind
		records[1].Record.EventData = json.RawMessage(`{}`)
		log := &fakeLog{records: records}
		cursors := newFakeCursors()
		publisher := &fakeRecordPublisher{}
		relay := newTestRelay(log, cursors, publisher)

		require.NoError(t, relay.ProcessBatch(context.Background()))

		assert.Len(t, publisher.published, 2, "good records still flow")
		require.Len(t, publisher.deadLetter, 1)
		assert.Equal(t, auction.EventType("auction.retired"), publisher.deadLetter[0].EventType)
		assert.Equal(t, int64(3), cursors.positions["test-relay"], "stream is not wedged")
	})
}
