package auction

import (
	"encoding/json"
	"fmt"
	"time"
)

// AggregateType is the stored aggregate discriminator for this domain.
const AggregateType = "auction"

// ErrSerialization marks a stored event that cannot be decoded. Reads
// hitting it must surface the row, never drop it silently.
var ErrSerialization = fmt.Errorf("event serialization failed")

// StoredEvent is the persisted record shape shared by every event
// store implementation. Uniqueness: (AggregateID, SequenceNumber).
type StoredEvent struct {
	AggregateID    string
	AggregateType  string
	EventType      EventType
	EventData      json.RawMessage
	SequenceNumber int64
	Timestamp      time.Time
}

// decoders maps each event kind to its concrete decode function. The
// registry is populated explicitly here; nothing is instantiated from
// type names at runtime.
var decoders = map[EventType]func() DomainEvent{
	EventTypeAuctionCreated:       func() DomainEvent { return &AuctionCreated{} },
	EventTypeAuctionOpened:        func() DomainEvent { return &AuctionOpened{} },
	EventTypeBidPlaced:            func() DomainEvent { return &BidPlaced{} },
	EventTypeBidRejected:          func() DomainEvent { return &BidRejected{} },
	EventTypeBidCommitted:         func() DomainEvent { return &BidCommitted{} },
	EventTypeBidRevealed:          func() DomainEvent { return &BidRevealed{} },
	EventTypeAuctionExtended:      func() DomainEvent { return &AuctionExtended{} },
	EventTypePriceReduced:         func() DomainEvent { return &PriceReduced{} },
	EventTypeReserveMet:           func() DomainEvent { return &ReserveMet{} },
	EventTypeAuctionClosed:        func() DomainEvent { return &AuctionClosed{} },
	EventTypeAuctionCancelled:     func() DomainEvent { return &AuctionCancelled{} },
	EventTypeSealedBiddingStarted: func() DomainEvent { return &SealedBiddingStarted{} },
	EventTypeRevealPhaseStarted:   func() DomainEvent { return &RevealPhaseStarted{} },
	EventTypeOfferCreated:         func() DomainEvent { return &OfferCreated{} },
	EventTypeOfferAccepted:        func() DomainEvent { return &OfferAccepted{} },
	EventTypeOfferRejected:        func() DomainEvent { return &OfferRejected{} },
	EventTypeBidCompensated:       func() DomainEvent { return &BidCompensated{} },
}

// EncodeEvent serializes a domain event into its stored record.
func EncodeEvent(event DomainEvent) (StoredEvent, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return StoredEvent{}, fmt.Errorf("%w: encode %s: %v", ErrSerialization, event.Type(), err)
	}
	return StoredEvent{
		AggregateID:    event.AggregateID().String(),
		AggregateType:  AggregateType,
		EventType:      event.Type(),
		EventData:      data,
		SequenceNumber: event.SequenceNumber(),
		Timestamp:      event.OccurredAt(),
	}, nil
}

// DecodeEvent deserializes a stored record back into its domain event.
// Unknown kinds and malformed payloads fail with ErrSerialization.
func DecodeEvent(record StoredEvent) (DomainEvent, error) {
	factory, ok := decoders[record.EventType]
	if !ok {
		return nil, fmt.Errorf("%w: unknown event type %q", ErrSerialization, record.EventType)
	}
	event := factory()
	if err := json.Unmarshal(record.EventData, event); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrSerialization, record.EventType, err)
	}
	return event, nil
}

// DecodeEvents decodes a batch in order, failing on the first bad row.
func DecodeEvents(records []StoredEvent) ([]DomainEvent, error) {
	events := make([]DomainEvent, 0, len(records))
	for _, record := range records {
		event, err := DecodeEvent(record)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}
