package auction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
)

// CommandService runs the command side: load (cache, then replay) ->
// handle -> append with expectedVersion -> apply -> fan out. A version
// conflict at the append is retried from a fresh load; partial
// application is never visible. Timer callbacks re-enter through the
// same path as bidder commands.
type CommandService struct {
	store      EventStore
	publisher  EventPublisher
	sequences  SequenceService
	timers     TimerService
	cache      AggregateCache
	logger     *slog.Logger
	maxRetries int
	now        func() time.Time
}

// NewCommandService creates a command service. publisher, timers and
// cache may be nil; the store and sequence service are required.
func NewCommandService(
	store EventStore,
	publisher EventPublisher,
	sequences SequenceService,
	timers TimerService,
	cache AggregateCache,
	logger *slog.Logger,
	maxRetries int,
) *CommandService {
	if maxRetries < 1 {
		maxRetries = 3
	}
	return &CommandService{
		store:      store,
		publisher:  publisher,
		sequences:  sequences,
		timers:     timers,
		cache:      cache,
		logger:     logger,
		maxRetries: maxRetries,
		now:        time.Now,
	}
}

// load reconstructs the aggregate, consulting the cache first. Cache
// entries may be stale; a conflicting save invalidates and reloads.
func (s *CommandService) load(ctx context.Context, auctionID AuctionID) (*Auction, error) {
	if s.cache != nil {
		if aggregate, ok := s.cache.Get(auctionID); ok {
			return aggregate, nil
		}
	}
	events, err := s.store.GetEvents(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load events for %s: %w", auctionID, err)
	}
	if len(events) == 0 {
		return nil, ErrAuctionNotFound
	}
	return replay(events)
}

// execute runs one command against a freshly loaded aggregate,
// retrying on optimistic-lock conflicts. The handler must not mutate
// the aggregate; only Apply does, after a successful append.
func (s *CommandService) execute(ctx context.Context, auctionID AuctionID, handle func(*Auction) ([]DomainEvent, error)) (*Auction, error) {
	var lastErr error
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		aggregate, err := s.load(ctx, auctionID)
		if err != nil {
			return nil, err
		}

		events, err := handle(aggregate)
		if err != nil {
			return nil, err
		}
		if len(events) == 0 {
			// Idempotent replay of an already-applied command.
			return aggregate, nil
		}

		if err := s.store.Save(ctx, events, aggregate.Version); err != nil {
			if errors.Is(err, ErrOptimisticLock) {
				lastErr = err
				if s.cache != nil {
					s.cache.Invalidate(auctionID)
				}
				s.logger.Debug("version conflict, retrying command",
					"auction_id", auctionID.String(), "attempt", attempt+1)
				continue
			}
			return nil, fmt.Errorf("failed to append events: %w", err)
		}

		for _, event := range events {
			if applyErr := aggregate.Apply(event); applyErr != nil {
				// The append succeeded; the in-memory copy is now
				// suspect and must be rebuilt on next load.
				if s.cache != nil {
					s.cache.Invalidate(auctionID)
				}
				return nil, fmt.Errorf("failed to apply appended event: %w", applyErr)
			}
		}
		if s.cache != nil {
			s.cache.Put(auctionID, aggregate)
		}
		s.fanOut(ctx, events)
		return aggregate, nil
	}
	return nil, fmt.Errorf("command abandoned after %d attempts: %w", s.maxRetries, lastErr)
}

// fanOut hands appended events to the publisher. Delivery here is
// best-effort; the relay reading the log is the at-least-once path.
func (s *CommandService) fanOut(ctx context.Context, events []DomainEvent) {
	if s.publisher == nil {
		return
	}
	for _, event := range events {
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Warn("event publish failed, relay will retry",
				"event_type", event.Type().String(),
				"aggregate_id", event.AggregateID().String(),
				"error", err)
		}
	}
}

// CreateAuction starts a new auction stream and schedules its close
// timer.
func (s *CommandService) CreateAuction(ctx context.Context, cmd CreateAuctionCommand) (*Auction, error) {
	aggregate := NewAuction()
	events, err := aggregate.HandleCreate(cmd, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, events, 0); err != nil {
		return nil, fmt.Errorf("failed to append events: %w", err)
	}
	for _, event := range events {
		if applyErr := aggregate.Apply(event); applyErr != nil {
			return nil, fmt.Errorf("failed to apply appended event: %w", applyErr)
		}
	}
	if s.cache != nil {
		s.cache.Put(cmd.AuctionID, aggregate)
	}
	s.fanOut(ctx, events)
	if s.timers != nil {
		if timerErr := s.timers.ScheduleAuctionClose(ctx, cmd.AuctionID, cmd.EndTime); timerErr != nil {
			s.logger.Error("failed to schedule auction close",
				"auction_id", cmd.AuctionID.String(), "error", timerErr)
		}
	}
	return aggregate, nil
}

// OpenAuction transitions a created auction to OPEN.
func (s *CommandService) OpenAuction(ctx context.Context, auctionID AuctionID) (*Auction, error) {
	return s.execute(ctx, auctionID, func(a *Auction) ([]DomainEvent, error) {
		return a.HandleOpen(s.now())
	})
}

// PlaceBidCommand is a bid submission. The idempotency key makes
// retries after unknown outcomes safe.
type PlaceBidCommand struct {
	AuctionID      AuctionID
	BidderID       BidderID
	Amount         Money
	IdempotencyKey string
}

// PlaceBid stamps the bid with a cluster-wide sequence number, then
// admits it through the aggregate. The seqNo is assigned once, at
// arrival; optimistic retries keep it, so tie-breaking reflects
// submission order regardless of which attempt lands.
func (s *CommandService) PlaceBid(ctx context.Context, cmd PlaceBidCommand) (*Auction, error) {
	seqNo, err := s.sequences.NextSequence(ctx, cmd.AuctionID)
	if err != nil {
		return nil, fmt.Errorf("failed to assign bid sequence: %w", err)
	}
	bid := Bid{
		BidderID:  cmd.BidderID,
		Amount:    cmd.Amount,
		Timestamp: s.now(),
		SeqNo:     seqNo,
	}
	aggregate, err := s.execute(ctx, cmd.AuctionID, func(a *Auction) ([]DomainEvent, error) {
		return a.HandlePlaceBid(bid, cmd.IdempotencyKey)
	})
	if err != nil {
		return nil, err
	}
	s.rescheduleIfExtended(ctx, aggregate)
	return aggregate, nil
}

// ResolveBidBurst admits the price-time winner of a burst and records
// the losers, in one append. The queue is drained exactly once, before
// the retry loop, so a version conflict re-resolves the same burst.
func (s *CommandService) ResolveBidBurst(ctx context.Context, auctionID AuctionID, queue *BidQueue) (*Auction, error) {
	bids := make([]Bid, 0, queue.Size())
	for {
		bid, ok := queue.PollHighestBid()
		if !ok {
			break
		}
		bids = append(bids, bid)
	}
	aggregate, err := s.execute(ctx, auctionID, func(a *Auction) ([]DomainEvent, error) {
		return a.HandleBidBurst(bids)
	})
	if err != nil {
		return nil, err
	}
	s.rescheduleIfExtended(ctx, aggregate)
	return aggregate, nil
}

func (s *CommandService) rescheduleIfExtended(ctx context.Context, aggregate *Auction) {
	if s.timers == nil || aggregate == nil || aggregate.ExtensionsUsed == 0 {
		return
	}
	if err := s.timers.RescheduleAuctionClose(ctx, aggregate.ID, aggregate.EndTime); err != nil {
		s.logger.Error("failed to reschedule auction close",
			"auction_id", aggregate.ID.String(), "error", err)
	}
}

// BuyNow closes an auction immediately at its buy-now price. The
// purchase is stamped with its own sequence number like any bid.
func (s *CommandService) BuyNow(ctx context.Context, auctionID AuctionID, bidderID BidderID) (*Auction, error) {
	seqNo, err := s.sequences.NextSequence(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("failed to assign bid sequence: %w", err)
	}
	bid := Bid{
		BidderID:  bidderID,
		Timestamp: s.now(),
		SeqNo:     seqNo,
	}
	aggregate, err := s.execute(ctx, auctionID, func(a *Auction) ([]DomainEvent, error) {
		return a.HandleBuyNow(bid)
	})
	if err != nil {
		return nil, err
	}
	s.cancelTimer(ctx, auctionID)
	return aggregate, nil
}

// StartSealedBidding moves a sealed auction into its commit phase.
func (s *CommandService) StartSealedBidding(ctx context.Context, auctionID AuctionID) (*Auction, error) {
	return s.execute(ctx, auctionID, func(a *Auction) ([]DomainEvent, error) {
		return a.HandleStartSealedBidding(s.now())
	})
}

// CommitBid stores a sealed commitment stamped with its own seqNo.
func (s *CommandService) CommitBid(ctx context.Context, auctionID AuctionID, bidderID BidderID, hash, salt string) (*Auction, error) {
	seqNo, err := s.sequences.NextSequence(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("failed to assign commit sequence: %w", err)
	}
	commit := SealedBidCommit{
		BidderID:  bidderID,
		Hash:      hash,
		Salt:      salt,
		Timestamp: s.now(),
		SeqNo:     seqNo,
	}
	return s.execute(ctx, auctionID, func(a *Auction) ([]DomainEvent, error) {
		return a.HandleCommitBid(commit)
	})
}

// StartRevealPhase moves a sealed auction into its reveal phase.
func (s *CommandService) StartRevealPhase(ctx context.Context, auctionID AuctionID) (*Auction, error) {
	return s.execute(ctx, auctionID, func(a *Auction) ([]DomainEvent, error) {
		return a.HandleStartRevealPhase(s.now())
	})
}

// RevealBid verifies a revealed bid against its commitment.
func (s *CommandService) RevealBid(ctx context.Context, auctionID AuctionID, bidderID BidderID, amount Money, salt string) (*Auction, error) {
	return s.execute(ctx, auctionID, func(a *Auction) ([]DomainEvent, error) {
		return a.HandleRevealBid(bidderID, amount, salt, s.now())
	})
}

// StartPriceReductions registers the Dutch reduction schedule for an
// open auction: one ReducePrice tick every interval until the end
// time.
func (s *CommandService) StartPriceReductions(ctx context.Context, auctionID AuctionID, interval time.Duration) error {
	if s.timers == nil {
		return fmt.Errorf("no timer service configured")
	}
	if interval <= 0 {
		return fmt.Errorf("reduction interval must be positive")
	}
	aggregate, err := s.load(ctx, auctionID)
	if err != nil {
		return err
	}
	if aggregate.Status.Terminal() {
		return ErrAuctionClosed
	}
	return s.timers.SchedulePriceReductions(ctx, auctionID, interval, aggregate.EndTime)
}

// ReducePrice applies a Dutch price reduction.
func (s *CommandService) ReducePrice(ctx context.Context, auctionID AuctionID, newPrice Money) (*Auction, error) {
	return s.execute(ctx, auctionID, func(a *Auction) ([]DomainEvent, error) {
		return a.HandleReducePrice(newPrice, s.now())
	})
}

// CloseAuction closes an auction and cancels its timer.
func (s *CommandService) CloseAuction(ctx context.Context, auctionID AuctionID) (*Auction, error) {
	aggregate, err := s.execute(ctx, auctionID, func(a *Auction) ([]DomainEvent, error) {
		return a.HandleClose(s.now())
	})
	if err != nil {
		return nil, err
	}
	s.cancelTimer(ctx, auctionID)
	return aggregate, nil
}

// CancelAuction cancels a non-terminal auction and its timer.
func (s *CommandService) CancelAuction(ctx context.Context, auctionID AuctionID, reason string) (*Auction, error) {
	aggregate, err := s.execute(ctx, auctionID, func(a *Auction) ([]DomainEvent, error) {
		return a.HandleCancel(reason, s.now())
	})
	if err != nil {
		return nil, err
	}
	s.cancelTimer(ctx, auctionID)
	return aggregate, nil
}

func (s *CommandService) cancelTimer(ctx context.Context, auctionID AuctionID) {
	if s.timers == nil {
		return
	}
	if err := s.timers.CancelAuctionClose(ctx, auctionID); err != nil {
		s.logger.Error("failed to cancel auction close timer",
			"auction_id", auctionID.String(), "error", err)
	}
}

// OnCloseTimer is the timer callback. It goes through the same
// validated command path as any bidder command; firing against an
// already-terminal auction is a no-op.
func (s *CommandService) OnCloseTimer(ctx context.Context, auctionID AuctionID) error {
	_, err := s.CloseAuction(ctx, auctionID)
	if errors.Is(err, ErrAuctionClosed) {
		return nil
	}
	return err
}

// OnPriceReductionTimer applies one scheduled Dutch reduction,
// scaling the current price by factor (e.g. 0.95 for a 5% cut).
// Terminal auctions and auctions with bids absorb the tick as a
// no-op.
func (s *CommandService) OnPriceReductionTimer(ctx context.Context, auctionID AuctionID, factor decimal.Decimal) error {
	_, err := s.execute(ctx, auctionID, func(a *Auction) ([]DomainEvent, error) {
		if a.Status.Terminal() || a.ReserveReached {
			return nil, nil
		}
		newPrice, priceErr := a.ReservePrice.Multiply(factor)
		if priceErr != nil {
			return nil, priceErr
		}
		return a.HandleReducePrice(newPrice, s.now())
	})
	return err
}

// CreateOffer records a post-close offer.
func (s *CommandService) CreateOffer(ctx context.Context, auctionID AuctionID, offerID OfferID, bidderID BidderID, amount Money) (*Auction, error) {
	return s.execute(ctx, auctionID, func(a *Auction) ([]DomainEvent, error) {
		return a.HandleCreateOffer(offerID, bidderID, amount, s.now())
	})
}

// AcceptOffer accepts an open offer.
func (s *CommandService) AcceptOffer(ctx context.Context, auctionID AuctionID, offerID OfferID) (*Auction, error) {
	return s.execute(ctx, auctionID, func(a *Auction) ([]DomainEvent, error) {
		return a.HandleAcceptOffer(offerID, s.now())
	})
}

// RejectOffer rejects an open offer.
func (s *CommandService) RejectOffer(ctx context.Context, auctionID AuctionID, offerID OfferID) (*Auction, error) {
	return s.execute(ctx, auctionID, func(a *Auction) ([]DomainEvent, error) {
		return a.HandleRejectOffer(offerID, s.now())
	})
}
