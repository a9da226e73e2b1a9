package auction

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType identifies a domain event kind. The value doubles as the
// routing key when events are published.
type EventType string

const (
	EventTypeAuctionCreated       EventType = "auction.created"
	EventTypeAuctionOpened        EventType = "auction.opened"
	EventTypeBidPlaced            EventType = "bid.placed"
	EventTypeBidRejected          EventType = "bid.rejected"
	EventTypeBidCommitted         EventType = "bid.committed"
	EventTypeBidRevealed          EventType = "bid.revealed"
	EventTypeAuctionExtended      EventType = "auction.extended"
	EventTypePriceReduced         EventType = "auction.price_reduced"
	EventTypeReserveMet           EventType = "auction.reserve_met"
	EventTypeAuctionClosed        EventType = "auction.closed"
	EventTypeAuctionCancelled     EventType = "auction.cancelled"
	EventTypeSealedBiddingStarted EventType = "auction.sealed_bidding_started"
	EventTypeRevealPhaseStarted   EventType = "auction.reveal_phase_started"
	EventTypeOfferCreated         EventType = "offer.created"
	EventTypeOfferAccepted        EventType = "offer.accepted"
	EventTypeOfferRejected        EventType = "offer.rejected"
	EventTypeBidCompensated       EventType = "bid.compensated"
)

func (e EventType) String() string { return string(e) }

// DomainEvent is the interface all auction events implement. Events
// are immutable once appended; sequence numbers are gapless and
// strictly increasing per aggregate, starting at 1.
type DomainEvent interface {
	EventID() uuid.UUID
	AggregateID() AuctionID
	Type() EventType
	SequenceNumber() int64
	OccurredAt() time.Time
}

// BaseEvent carries the metadata common to every event kind. Event
// structs embed it and provide their own payload fields.
type BaseEvent struct {
	ID        uuid.UUID `json:"event_id"`
	AuctionID AuctionID `json:"aggregate_id"`
	Seq       int64     `json:"sequence_number"`
	At        time.Time `json:"timestamp"`
}

func (b BaseEvent) EventID() uuid.UUID     { return b.ID }
func (b BaseEvent) AggregateID() AuctionID { return b.AuctionID }
func (b BaseEvent) SequenceNumber() int64  { return b.Seq }
func (b BaseEvent) OccurredAt() time.Time  { return b.At }

func newBaseEvent(auctionID AuctionID, seq int64, at time.Time) BaseEvent {
	return BaseEvent{ID: uuid.New(), AuctionID: auctionID, Seq: seq, At: at}
}

// AuctionCreated starts the stream for a new auction.
type AuctionCreated struct {
	BaseEvent
	ItemID           ItemID          `json:"item_id"`
	SellerID         SellerID        `json:"seller_id"`
	ReservePrice     Money           `json:"reserve_price"`
	BuyNowPrice      *Money          `json:"buy_now_price,omitempty"`
	StartTime        time.Time       `json:"start_time"`
	EndTime          time.Time       `json:"end_time"`
	Sealed           bool            `json:"sealed"`
	AntiSnipe        AntiSnipePolicy `json:"anti_snipe"`
	IncrementPolicy  IncrementSpec   `json:"increment_policy"`
	OriginalDuration time.Duration   `json:"original_duration"`
}

func (AuctionCreated) Type() EventType { return EventTypeAuctionCreated }

// AuctionOpened moves the auction from CREATED to OPEN.
type AuctionOpened struct {
	BaseEvent
}

func (AuctionOpened) Type() EventType { return EventTypeAuctionOpened }

// BidPlaced records an accepted open bid.
type BidPlaced struct {
	BaseEvent
	BidderID       BidderID `json:"bidder_id"`
	Amount         Money    `json:"amount"`
	BidSeqNo       int64    `json:"bid_seq_no"`
	IdempotencyKey string   `json:"idempotency_key,omitempty"`
}

func (BidPlaced) Type() EventType { return EventTypeBidPlaced }

// BidRejected records a bid that entered burst resolution but lost.
type BidRejected struct {
	BaseEvent
	BidderID BidderID `json:"bidder_id"`
	Amount   Money    `json:"amount"`
	BidSeqNo int64    `json:"bid_seq_no"`
	Reason   string   `json:"reason"`
}

func (BidRejected) Type() EventType { return EventTypeBidRejected }

// BidCommitted records a sealed-bid commitment. The bid amount is
// never stored in clear.
type BidCommitted struct {
	BaseEvent
	BidderID BidderID `json:"bidder_id"`
	Hash     string   `json:"hash"`
	Salt     string   `json:"salt"`
	BidSeqNo int64    `json:"bid_seq_no"`
}

func (BidCommitted) Type() EventType { return EventTypeBidCommitted }

// BidRevealed records the outcome of verifying a sealed bid against
// its commitment. Invalid reveals stay in the log but never influence
// winner selection.
type BidRevealed struct {
	BaseEvent
	BidderID BidderID `json:"bidder_id"`
	Amount   Money    `json:"amount"`
	Valid    bool     `json:"valid"`
}

func (BidRevealed) Type() EventType { return EventTypeBidRevealed }

// AuctionExtended records an anti-snipe extension of the end time.
type AuctionExtended struct {
	BaseEvent
	NewEndTime time.Time `json:"new_end_time"`
	Extension  int       `json:"extension"` // ordinal, 1-based
}

func (AuctionExtended) Type() EventType { return EventTypeAuctionExtended }

// PriceReduced records a scheduled Dutch price reduction.
type PriceReduced struct {
	BaseEvent
	NewPrice Money `json:"new_price"`
}

func (PriceReduced) Type() EventType { return EventTypePriceReduced }

// ReserveMet records the first bid at or above the reserve price.
type ReserveMet struct {
	BaseEvent
	BidderID BidderID `json:"bidder_id"`
	Amount   Money    `json:"amount"`
}

func (ReserveMet) Type() EventType { return EventTypeReserveMet }

// AuctionClosed terminates the auction, recording the winner if any.
type AuctionClosed struct {
	BaseEvent
	WinnerID      *BidderID `json:"winner_id,omitempty"`
	WinningAmount *Money    `json:"winning_amount,omitempty"`
	ReserveMet    bool      `json:"reserve_met"`
}

func (AuctionClosed) Type() EventType { return EventTypeAuctionClosed }

// AuctionCancelled terminates the auction without a winner.
type AuctionCancelled struct {
	BaseEvent
	Reason string `json:"reason"`
}

func (AuctionCancelled) Type() EventType { return EventTypeAuctionCancelled }

// SealedBiddingStarted moves the auction into the commit phase.
type SealedBiddingStarted struct {
	BaseEvent
}

func (SealedBiddingStarted) Type() EventType { return EventTypeSealedBiddingStarted }

// RevealPhaseStarted moves the auction into the reveal phase.
type RevealPhaseStarted struct {
	BaseEvent
}

func (RevealPhaseStarted) Type() EventType { return EventTypeRevealPhaseStarted }

// OfferCreated records a post-close offer on an auction that missed
// its reserve.
type OfferCreated struct {
	BaseEvent
	OfferID  OfferID  `json:"offer_id"`
	BidderID BidderID `json:"bidder_id"`
	Amount   Money    `json:"amount"`
}

func (OfferCreated) Type() EventType { return EventTypeOfferCreated }

// OfferAccepted records the seller accepting an open offer.
type OfferAccepted struct {
	BaseEvent
	OfferID OfferID `json:"offer_id"`
}

func (OfferAccepted) Type() EventType { return EventTypeOfferAccepted }

// OfferRejected records the seller rejecting an open offer.
type OfferRejected struct {
	BaseEvent
	OfferID OfferID `json:"offer_id"`
}

func (OfferRejected) Type() EventType { return EventTypeOfferRejected }

// BidCompensated is a compensating event reversing a previously
// applied bid (e.g. after a chargeback ruling). It references the
// original event and carries its own reversal logic; history is never
// mutated or deleted.
type BidCompensated struct {
	BaseEvent
	OriginalEventID uuid.UUID `json:"original_event_id"`
	BidderID        BidderID  `json:"bidder_id"`
	Reason          string    `json:"reason"`
}

func (BidCompensated) Type() EventType { return EventTypeBidCompensated }

// IncrementSpec is the serializable form of a BidIncrement policy.
type IncrementSpec struct {
	Kind       string          `json:"kind"` // "fixed", "percentage", "dynamic"
	Step       Money           `json:"step,omitempty"`
	Percentage string          `json:"percentage,omitempty"`
	Rungs      []IncrementRung `json:"rungs,omitempty"`
}

// Policy materializes the BidIncrement described by the spec.
func (s IncrementSpec) Policy() (BidIncrement, error) {
	switch s.Kind {
	case "fixed":
		return FixedIncrement{Step: s.Step}, nil
	case "percentage":
		pct, err := parseDecimal(s.Percentage)
		if err != nil {
			return nil, fmt.Errorf("invalid increment percentage: %w", err)
		}
		return PercentageIncrement{Percentage: pct}, nil
	case "dynamic":
		return NewDynamicIncrement(s.Rungs)
	default:
		return nil, fmt.Errorf("unknown increment kind %q", s.Kind)
	}
}
