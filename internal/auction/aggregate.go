package auction

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/outcry/outcry/pkg/sealedbid"
)

// Status is the auction lifecycle state.
type Status string

const (
	StatusCreated       Status = "CREATED"
	StatusOpen          Status = "OPEN"
	StatusSealedBidding Status = "SEALED_BIDDING"
	StatusRevealPhase   Status = "REVEAL_PHASE"
	StatusClosed        Status = "CLOSED"
	StatusCancelled     Status = "CANCELLED"
)

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusClosed || s == StatusCancelled
}

// appliedBid is a bid retained after apply, keyed by the event that
// produced it so compensating events can target it.
type appliedBid struct {
	eventID uuid.UUID
	bid     Bid
}

// revealedBid is a verified (or failed) sealed-bid reveal.
type revealedBid struct {
	bidderID    BidderID
	amount      Money
	commitSeqNo int64
	valid       bool
}

// OfferStatus tracks post-close offers on auctions that missed
// reserve.
type OfferStatus string

const (
	OfferOpen           OfferStatus = "OPEN"
	OfferAcceptedStatus OfferStatus = "ACCEPTED"
	OfferRejectedStatus OfferStatus = "REJECTED"
)

type offer struct {
	bidderID BidderID
	amount   Money
	status   OfferStatus
}

// Auction is the event-sourced aggregate. Command handlers validate
// against current state and return the events to append; Apply is the
// only state-mutating primitive and is used identically for live
// processing and replay. The durable truth is the event log; an
// in-memory Auction is always reconstructible from it.
type Auction struct {
	ID                     AuctionID
	ItemID                 ItemID
	SellerID               SellerID
	Status                 Status
	ReservePrice           Money
	BuyNowPrice            *Money
	IncrementPolicy        BidIncrement
	IncrementSpec          IncrementSpec
	AntiSnipe              AntiSnipePolicy
	CurrentHighestBid      Money
	CurrentHighestBidderID BidderID
	StartTime              time.Time
	EndTime                time.Time
	OriginalDuration       time.Duration
	ExtensionsUsed         int
	Sealed                 bool
	ReserveReached         bool
	Version                int64

	bids        []appliedBid
	commits     map[BidderID]SealedBidCommit
	reveals     []revealedBid
	offers      map[OfferID]*offer
	idempotency map[string]uuid.UUID // idempotency key -> BidPlaced event id
}

// NewAuction returns an empty aggregate ready for replay or a Create
// command.
func NewAuction() *Auction {
	return &Auction{
		Status:      StatusCreated,
		commits:     make(map[BidderID]SealedBidCommit),
		offers:      make(map[OfferID]*offer),
		idempotency: make(map[string]uuid.UUID),
	}
}

// Clone returns a deep copy. Cached aggregates are handed out as
// clones so Apply on one command's working copy never races a
// concurrent load of the same auction.
func (a *Auction) Clone() *Auction {
	clone := *a
	if a.BuyNowPrice != nil {
		price := *a.BuyNowPrice
		clone.BuyNowPrice = &price
	}
	clone.bids = append([]appliedBid(nil), a.bids...)
	clone.reveals = append([]revealedBid(nil), a.reveals...)
	clone.commits = make(map[BidderID]SealedBidCommit, len(a.commits))
	for bidderID, commit := range a.commits {
		clone.commits[bidderID] = commit
	}
	clone.idempotency = make(map[string]uuid.UUID, len(a.idempotency))
	for key, eventID := range a.idempotency {
		clone.idempotency[key] = eventID
	}
	clone.offers = make(map[OfferID]*offer, len(a.offers))
	for offerID, o := range a.offers {
		copied := *o
		clone.offers[offerID] = &copied
	}
	return &clone
}

// CreateAuctionCommand carries everything needed to start a stream.
type CreateAuctionCommand struct {
	AuctionID    AuctionID
	ItemID       ItemID
	SellerID     SellerID
	ReservePrice Money
	BuyNowPrice  *Money
	Increment    IncrementSpec
	AntiSnipe    AntiSnipePolicy
	StartTime    time.Time
	EndTime      time.Time
	Sealed       bool
}

// HandleCreate validates and produces AuctionCreated for an empty
// aggregate.
func (a *Auction) HandleCreate(cmd CreateAuctionCommand, now time.Time) ([]DomainEvent, error) {
	if a.Version != 0 {
		return nil, fmt.Errorf("%w: auction already exists", ErrInvalidTransition)
	}
	result := ValidateAuction(cmd.ItemID, cmd.StartTime, cmd.EndTime, now)
	if err := result.Err(); err != nil {
		return nil, err
	}
	if err := cmd.AntiSnipe.Validate(); err != nil && cmd.AntiSnipe.Type != ExtensionNone {
		return nil, fmt.Errorf("invalid anti-snipe policy: %w", err)
	}
	if _, err := cmd.Increment.Policy(); err != nil {
		return nil, fmt.Errorf("invalid increment policy: %w", err)
	}
	if cmd.BuyNowPrice != nil {
		atLeastReserve, err := cmd.BuyNowPrice.GreaterThanOrEqual(cmd.ReservePrice)
		if err != nil {
			return nil, fmt.Errorf("invalid buy-now price: %w", err)
		}
		if !atLeastReserve {
			return nil, fmt.Errorf("buy-now price %s is below reserve %s", *cmd.BuyNowPrice, cmd.ReservePrice)
		}
	}
	event := &AuctionCreated{
		BaseEvent:        newBaseEvent(cmd.AuctionID, a.Version+1, now),
		ItemID:           cmd.ItemID,
		SellerID:         cmd.SellerID,
		ReservePrice:     cmd.ReservePrice,
		BuyNowPrice:      cmd.BuyNowPrice,
		StartTime:        cmd.StartTime,
		EndTime:          cmd.EndTime,
		Sealed:           cmd.Sealed,
		AntiSnipe:        cmd.AntiSnipe,
		IncrementPolicy:  cmd.Increment,
		OriginalDuration: cmd.EndTime.Sub(cmd.StartTime),
	}
	return []DomainEvent{event}, nil
}

// HandleOpen transitions CREATED -> OPEN.
func (a *Auction) HandleOpen(now time.Time) ([]DomainEvent, error) {
	if a.Status != StatusCreated {
		return nil, a.transitionError("open")
	}
	return []DomainEvent{&AuctionOpened{newBaseEvent(a.ID, a.Version+1, now)}}, nil
}

// HandlePlaceBid admits an open bid. On success it returns BidPlaced,
// plus ReserveMet on the first qualifying bid and AuctionExtended when
// the bid lands inside the anti-snipe window and the policy still
// allows an extension, all in one atomic append. A duplicate
// idempotency key returns no events and no error; the original
// outcome stands.
func (a *Auction) HandlePlaceBid(bid Bid, idempotencyKey string) ([]DomainEvent, error) {
	if a.Status.Terminal() {
		return nil, ErrAuctionClosed
	}
	if a.Status != StatusOpen {
		return nil, a.transitionError("place bid")
	}
	if idempotencyKey != "" {
		if _, seen := a.idempotency[idempotencyKey]; seen {
			return nil, nil
		}
	}

	ext := ValidateExtension(a.AntiSnipe, a.EndTime, bid.Timestamp, a.ExtensionsUsed)
	if bid.Timestamp.After(a.EndTime) {
		return nil, ErrBidAfterClose
	}

	if bid.BidderID.IsZero() {
		return nil, ErrBidderNotEligible
	}
	result := ValidateBid(bid.BidderID, bid.Amount, a.CurrentHighestBid, a.CurrentHighestBidderID, a.ReservePrice, a.IncrementPolicy)
	if !result.Valid() {
		return nil, fmt.Errorf("%w: %v", ErrInsufficientBid, result.Err())
	}

	seq := a.Version
	events := make([]DomainEvent, 0, 3)

	seq++
	events = append(events, &BidPlaced{
		BaseEvent:      newBaseEvent(a.ID, seq, bid.Timestamp),
		BidderID:       bid.BidderID,
		Amount:         bid.Amount,
		BidSeqNo:       bid.SeqNo,
		IdempotencyKey: idempotencyKey,
	})

	if !a.ReserveReached {
		seq++
		events = append(events, &ReserveMet{
			BaseEvent: newBaseEvent(a.ID, seq, bid.Timestamp),
			BidderID:  bid.BidderID,
			Amount:    bid.Amount,
		})
	}

	// ext.Valid() is false either for a late bid (handled above) or
	// when the window is hit with no extensions left; only the former
	// rejects the bid.
	withinWindow := a.EndTime.Sub(bid.Timestamp) <= a.AntiSnipe.ExtensionWindow
	if withinWindow && ext.Valid() && a.AntiSnipe.ShouldExtend(a.ExtensionsUsed) {
		seq++
		events = append(events, &AuctionExtended{
			BaseEvent:  newBaseEvent(a.ID, seq, bid.Timestamp),
			NewEndTime: a.EndTime.Add(a.AntiSnipe.CalculateExtension(a.OriginalDuration)),
			Extension:  a.ExtensionsUsed + 1,
		})
	}
	return events, nil
}

// HandleBidBurst resolves a set of near-simultaneous bids into a
// single price-time winner, recording the losers as BidRejected in
// the same append. Ordering uses a fresh queue per call so the
// handler stays safe to re-run on an optimistic retry.
func (a *Auction) HandleBidBurst(bids []Bid) ([]DomainEvent, error) {
	if len(bids) == 0 {
		return nil, nil
	}
	queue := NewBidQueue()
	for _, bid := range bids {
		queue.AddBid(bid)
	}
	winner, _ := queue.PollHighestBid()
	events, err := a.HandlePlaceBid(winner, "")
	if err != nil {
		return nil, err
	}
	seq := a.Version + int64(len(events))
	for {
		loser, ok := queue.PollHighestBid()
		if !ok {
			break
		}
		seq++
		events = append(events, &BidRejected{
			BaseEvent: newBaseEvent(a.ID, seq, loser.Timestamp),
			BidderID:  loser.BidderID,
			Amount:    loser.Amount,
			BidSeqNo:  loser.SeqNo,
			Reason:    "outbid in burst resolution",
		})
	}
	return events, nil
}

// HandleBuyNow closes an open auction immediately at its buy-now
// price. The purchase is recorded as an ordinary winning bid followed
// by the close, so replay goes through the same events as regular
// bidding. Refused once bidding has already reached the buy-now price.
func (a *Auction) HandleBuyNow(bid Bid) ([]DomainEvent, error) {
	if a.Status.Terminal() {
		return nil, ErrAuctionClosed
	}
	if a.Status != StatusOpen || a.Sealed {
		return nil, a.transitionError("buy now")
	}
	if a.BuyNowPrice == nil {
		return nil, fmt.Errorf("%w: no buy-now price configured", ErrInvalidTransition)
	}
	if bid.Timestamp.After(a.EndTime) {
		return nil, ErrBidAfterClose
	}
	if bid.BidderID.IsZero() {
		return nil, ErrBidderNotEligible
	}
	price := *a.BuyNowPrice
	if !a.CurrentHighestBidderID.IsZero() {
		reached, err := a.CurrentHighestBid.GreaterThanOrEqual(price)
		if err != nil {
			return nil, err
		}
		if reached {
			return nil, fmt.Errorf("%w: bidding has reached the buy-now price", ErrInvalidTransition)
		}
	}

	seq := a.Version
	events := make([]DomainEvent, 0, 3)

	seq++
	events = append(events, &BidPlaced{
		BaseEvent: newBaseEvent(a.ID, seq, bid.Timestamp),
		BidderID:  bid.BidderID,
		Amount:    price,
		BidSeqNo:  bid.SeqNo,
	})

	if !a.ReserveReached {
		seq++
		events = append(events, &ReserveMet{
			BaseEvent: newBaseEvent(a.ID, seq, bid.Timestamp),
			BidderID:  bid.BidderID,
			Amount:    price,
		})
	}

	winner := bid.BidderID
	seq++
	events = append(events, &AuctionClosed{
		BaseEvent:     newBaseEvent(a.ID, seq, bid.Timestamp),
		WinnerID:      &winner,
		WinningAmount: &price,
		ReserveMet:    true,
	})
	return events, nil
}

// HandleStartSealedBidding transitions OPEN -> SEALED_BIDDING for
// sealed auctions.
func (a *Auction) HandleStartSealedBidding(now time.Time) ([]DomainEvent, error) {
	if a.Status != StatusOpen {
		return nil, a.transitionError("start sealed bidding")
	}
	if !a.Sealed {
		return nil, fmt.Errorf("%w: auction is not sealed-bid", ErrInvalidTransition)
	}
	return []DomainEvent{&SealedBiddingStarted{newBaseEvent(a.ID, a.Version+1, now)}}, nil
}

// HandleCommitBid stores a sealed-bid commitment. Valid only during
// SEALED_BIDDING; one commitment per bidder.
func (a *Auction) HandleCommitBid(commit SealedBidCommit) ([]DomainEvent, error) {
	if a.Status.Terminal() {
		return nil, ErrAuctionClosed
	}
	if a.Status != StatusSealedBidding {
		return nil, a.transitionError("commit bid")
	}
	if commit.BidderID.IsZero() {
		return nil, ErrBidderNotEligible
	}
	if _, exists := a.commits[commit.BidderID]; exists {
		return nil, fmt.Errorf("%w: bidder already committed", ErrInvalidTransition)
	}
	return []DomainEvent{&BidCommitted{
		BaseEvent: newBaseEvent(a.ID, a.Version+1, commit.Timestamp),
		BidderID:  commit.BidderID,
		Hash:      commit.Hash,
		Salt:      commit.Salt,
		BidSeqNo:  commit.SeqNo,
	}}, nil
}

// HandleStartRevealPhase transitions SEALED_BIDDING -> REVEAL_PHASE.
func (a *Auction) HandleStartRevealPhase(now time.Time) ([]DomainEvent, error) {
	if a.Status != StatusSealedBidding {
		return nil, a.transitionError("start reveal phase")
	}
	return []DomainEvent{&RevealPhaseStarted{newBaseEvent(a.ID, a.Version+1, now)}}, nil
}

// HandleRevealBid verifies a revealed amount and salt against the
// stored commitment. A mismatch is recorded as an invalid reveal, not
// rejected as a command, and never influences the current highest bid.
func (a *Auction) HandleRevealBid(bidderID BidderID, amount Money, salt string, now time.Time) ([]DomainEvent, error) {
	if a.Status != StatusRevealPhase {
		return nil, a.transitionError("reveal bid")
	}
	commit, exists := a.commits[bidderID]
	if !exists {
		return nil, ErrUnknownCommit
	}
	valid := sealedbid.VerifyBid(amount.Amount().String(), salt, commit.Hash)
	return []DomainEvent{&BidRevealed{
		BaseEvent: newBaseEvent(a.ID, a.Version+1, now),
		BidderID:  bidderID,
		Amount:    amount,
		Valid:     valid,
	}}, nil
}

// HandleReducePrice lowers the reserve price of an open auction
// (Dutch-style reductions on a timer schedule). Reductions stop once a
// bid has been accepted.
func (a *Auction) HandleReducePrice(newPrice Money, now time.Time) ([]DomainEvent, error) {
	if a.Status != StatusOpen {
		return nil, a.transitionError("reduce price")
	}
	if a.ReserveReached {
		return nil, fmt.Errorf("%w: bidding already started", ErrInvalidTransition)
	}
	lower, err := newPrice.LessThan(a.ReservePrice)
	if err != nil {
		return nil, err
	}
	if !lower {
		return nil, fmt.Errorf("%w: reduced price must be below current price", ErrInvalidTransition)
	}
	return []DomainEvent{&PriceReduced{
		BaseEvent: newBaseEvent(a.ID, a.Version+1, now),
		NewPrice:  newPrice,
	}}, nil
}

// HandleClose terminates an OPEN or REVEAL_PHASE auction. In the
// reveal phase the winner is the highest valid revealed bid meeting
// the reserve; ties go to the lowest commit seqNo.
func (a *Auction) HandleClose(now time.Time) ([]DomainEvent, error) {
	switch a.Status {
	case StatusOpen:
		event := &AuctionClosed{
			BaseEvent:  newBaseEvent(a.ID, a.Version+1, now),
			ReserveMet: a.ReserveReached,
		}
		if a.ReserveReached {
			winner := a.CurrentHighestBidderID
			amount := a.CurrentHighestBid
			event.WinnerID = &winner
			event.WinningAmount = &amount
		}
		return []DomainEvent{event}, nil
	case StatusRevealPhase:
		event := &AuctionClosed{BaseEvent: newBaseEvent(a.ID, a.Version+1, now)}
		if winner, ok := a.sealedWinner(); ok {
			event.WinnerID = &winner.bidderID
			event.WinningAmount = &winner.amount
			event.ReserveMet = true
		}
		return []DomainEvent{event}, nil
	default:
		return nil, a.transitionError("close")
	}
}

// HandleCancel terminates any non-terminal auction.
func (a *Auction) HandleCancel(reason string, now time.Time) ([]DomainEvent, error) {
	if a.Status.Terminal() {
		return nil, ErrAuctionClosed
	}
	return []DomainEvent{&AuctionCancelled{
		BaseEvent: newBaseEvent(a.ID, a.Version+1, now),
		Reason:    reason,
	}}, nil
}

// HandleCreateOffer records a post-close offer on an auction that
// closed without meeting reserve.
func (a *Auction) HandleCreateOffer(offerID OfferID, bidderID BidderID, amount Money, now time.Time) ([]DomainEvent, error) {
	if a.Status != StatusClosed {
		return nil, a.transitionError("create offer")
	}
	if a.ReserveReached {
		return nil, fmt.Errorf("%w: auction sold at close", ErrInvalidTransition)
	}
	if bidderID.IsZero() {
		return nil, ErrBidderNotEligible
	}
	return []DomainEvent{&OfferCreated{
		BaseEvent: newBaseEvent(a.ID, a.Version+1, now),
		OfferID:   offerID,
		BidderID:  bidderID,
		Amount:    amount,
	}}, nil
}

// HandleAcceptOffer accepts an open offer.
func (a *Auction) HandleAcceptOffer(offerID OfferID, now time.Time) ([]DomainEvent, error) {
	if err := a.checkOpenOffer(offerID); err != nil {
		return nil, err
	}
	return []DomainEvent{&OfferAccepted{
		BaseEvent: newBaseEvent(a.ID, a.Version+1, now),
		OfferID:   offerID,
	}}, nil
}

// HandleRejectOffer rejects an open offer.
func (a *Auction) HandleRejectOffer(offerID OfferID, now time.Time) ([]DomainEvent, error) {
	if err := a.checkOpenOffer(offerID); err != nil {
		return nil, err
	}
	return []DomainEvent{&OfferRejected{
		BaseEvent: newBaseEvent(a.ID, a.Version+1, now),
		OfferID:   offerID,
	}}, nil
}

func (a *Auction) checkOpenOffer(offerID OfferID) error {
	if a.Status != StatusClosed {
		return a.transitionError("resolve offer")
	}
	o, exists := a.offers[offerID]
	if !exists {
		return fmt.Errorf("%w: offer not found", ErrInvalidTransition)
	}
	if o.status != OfferOpen {
		return fmt.Errorf("%w: offer already resolved", ErrInvalidTransition)
	}
	return nil
}

func (a *Auction) transitionError(command string) error {
	if a.Status.Terminal() {
		return ErrAuctionClosed
	}
	return fmt.Errorf("%w: cannot %s in %s", ErrInvalidTransition, command, a.Status)
}

// sealedWinner selects the highest valid revealed bid meeting reserve,
// breaking ties by lowest commit seqNo.
func (a *Auction) sealedWinner() (revealedBid, bool) {
	var best revealedBid
	found := false
	for _, r := range a.reveals {
		if !r.valid {
			continue
		}
		meets, err := r.amount.GreaterThanOrEqual(a.ReservePrice)
		if err != nil || !meets {
			continue
		}
		if !found {
			best, found = r, true
			continue
		}
		cmp := r.amount.Amount().Cmp(best.amount.Amount())
		if cmp > 0 || (cmp == 0 && r.commitSeqNo < best.commitSeqNo) {
			best = r
		}
	}
	return best, found
}

// Apply mutates state from an event and bumps the version. It is a
// deterministic function of (state, event) with no other side effects,
// which is what makes replay reproduce live state exactly.
func (a *Auction) Apply(event DomainEvent) error {
	switch e := event.(type) {
	case *AuctionCreated:
		a.ID = e.AggregateID()
		a.ItemID = e.ItemID
		a.SellerID = e.SellerID
		a.Status = StatusCreated
		a.ReservePrice = e.ReservePrice
		a.BuyNowPrice = e.BuyNowPrice
		a.AntiSnipe = e.AntiSnipe
		a.IncrementSpec = e.IncrementPolicy
		policy, err := e.IncrementPolicy.Policy()
		if err != nil {
			return err
		}
		a.IncrementPolicy = policy
		a.StartTime = e.StartTime
		a.EndTime = e.EndTime
		a.OriginalDuration = e.OriginalDuration
		a.Sealed = e.Sealed
	case *AuctionOpened:
		a.Status = StatusOpen
	case *BidPlaced:
		a.CurrentHighestBid = e.Amount
		a.CurrentHighestBidderID = e.BidderID
		a.bids = append(a.bids, appliedBid{
			eventID: e.EventID(),
			bid: Bid{
				BidderID:  e.BidderID,
				Amount:    e.Amount,
				Timestamp: e.OccurredAt(),
				SeqNo:     e.BidSeqNo,
			},
		})
		if e.IdempotencyKey != "" {
			a.idempotency[e.IdempotencyKey] = e.EventID()
		}
	case *BidRejected:
		// Audit-only, no state change.
	case *ReserveMet:
		a.ReserveReached = true
	case *AuctionExtended:
		a.EndTime = e.NewEndTime
		a.ExtensionsUsed++
	case *PriceReduced:
		a.ReservePrice = e.NewPrice
	case *SealedBiddingStarted:
		a.Status = StatusSealedBidding
	case *BidCommitted:
		a.commits[e.BidderID] = SealedBidCommit{
			BidderID:  e.BidderID,
			Hash:      e.Hash,
			Salt:      e.Salt,
			Timestamp: e.OccurredAt(),
			SeqNo:     e.BidSeqNo,
		}
	case *RevealPhaseStarted:
		a.Status = StatusRevealPhase
	case *BidRevealed:
		commit := a.commits[e.BidderID]
		a.reveals = append(a.reveals, revealedBid{
			bidderID:    e.BidderID,
			amount:      e.Amount,
			commitSeqNo: commit.SeqNo,
			valid:       e.Valid,
		})
	case *AuctionClosed:
		a.Status = StatusClosed
		if e.WinnerID != nil {
			a.CurrentHighestBidderID = *e.WinnerID
		}
		if e.WinningAmount != nil {
			a.CurrentHighestBid = *e.WinningAmount
		}
	case *AuctionCancelled:
		a.Status = StatusCancelled
	case *OfferCreated:
		a.offers[e.OfferID] = &offer{bidderID: e.BidderID, amount: e.Amount, status: OfferOpen}
	case *OfferAccepted:
		if o, exists := a.offers[e.OfferID]; exists {
			o.status = OfferAcceptedStatus
		}
	case *OfferRejected:
		if o, exists := a.offers[e.OfferID]; exists {
			o.status = OfferRejectedStatus
		}
	case *BidCompensated:
		if err := e.Compensate(a); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: unhandled event type %q", ErrSerialization, event.Type())
	}
	a.Version++
	return nil
}

// Commit returns the stored sealed commitment for a bidder, if any.
func (a *Auction) Commit(bidderID BidderID) (SealedBidCommit, bool) {
	c, ok := a.commits[bidderID]
	return c, ok
}

// Offer returns an offer's state by id.
func (a *Auction) Offer(offerID OfferID) (BidderID, Money, OfferStatus, bool) {
	o, ok := a.offers[offerID]
	if !ok {
		return BidderID{}, Money{}, "", false
	}
	return o.bidderID, o.amount, o.status, true
}

// OriginalEvent implements CompensationEvent.
func (e *BidCompensated) OriginalEvent() uuid.UUID { return e.OriginalEventID }

// Compensate reverses the referenced BidPlaced: the bid is removed
// from history and the current highest is recomputed from what
// remains. Compensation is explicit per event kind, never an
// automatic inversion of history.
func (e *BidCompensated) Compensate(a *Auction) error {
	idx := -1
	for i, b := range a.bids {
		if b.eventID == e.OriginalEventID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("compensation target %s not found", e.OriginalEventID)
	}
	a.bids = append(a.bids[:idx], a.bids[idx+1:]...)

	a.CurrentHighestBid = Money{}
	a.CurrentHighestBidderID = BidderID{}
	var best *appliedBid
	for i := range a.bids {
		if best == nil || a.bids[i].bid.HigherPriority(best.bid) {
			best = &a.bids[i]
		}
	}
	if best != nil {
		a.CurrentHighestBid = best.bid.Amount
		a.CurrentHighestBidderID = best.bid.BidderID
	}
	if len(a.bids) == 0 {
		a.ReserveReached = false
	}
	return nil
}
