package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/outcry/outcry/internal/auction"
)

const (
	closeScheduleKey     = "auction:close_schedule"
	reductionScheduleKey = "auction:price_reductions"
)

// TimerCallbacks are the command-path entry points the timer fires
// into. Both go through the same validation and versioning as any
// bidder command; firing against a terminal auction is a no-op.
type TimerCallbacks struct {
	CloseAuction func(ctx context.Context, auctionID auction.AuctionID) error
	ReducePrice  func(ctx context.Context, auctionID auction.AuctionID) error
}

// TimerService implements auction.TimerService on Redis sorted sets
// scored by due time. A polling loop pops due entries and dispatches
// them. Schedules survive process restarts; any node may fire them.
type TimerService struct {
	client    *redis.Client
	callbacks TimerCallbacks
	interval  time.Duration
	logger    *slog.Logger
}

// NewTimerService creates a timer service polling at the given
// resolution.
func NewTimerService(client *redis.Client, callbacks TimerCallbacks, interval time.Duration, logger *slog.Logger) *TimerService {
	return &TimerService{
		client:    client,
		callbacks: callbacks,
		interval:  interval,
		logger:    logger,
	}
}

// ScheduleAuctionClose adds an auction to the close schedule.
func (s *TimerService) ScheduleAuctionClose(ctx context.Context, auctionID auction.AuctionID, endTime time.Time) error {
	err := s.client.ZAdd(ctx, closeScheduleKey, redis.Z{
		Score:  float64(endTime.UnixMilli()),
		Member: auctionID.String(),
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to schedule auction close: %w", err)
	}
	s.logger.Info("auction close scheduled",
		"auction_id", auctionID.String(), "end_time", endTime)
	return nil
}

// RescheduleAuctionClose moves an auction's close time. ZADD updates
// the score in place, so rescheduling an unknown or already-fired
// entry simply schedules it; firing against a terminal aggregate is
// absorbed by the command path.
func (s *TimerService) RescheduleAuctionClose(ctx context.Context, auctionID auction.AuctionID, endTime time.Time) error {
	return s.ScheduleAuctionClose(ctx, auctionID, endTime)
}

// CancelAuctionClose removes an auction from the close schedule.
// Cancelling an absent entry is a no-op.
func (s *TimerService) CancelAuctionClose(ctx context.Context, auctionID auction.AuctionID) error {
	if err := s.client.ZRem(ctx, closeScheduleKey, auctionID.String()).Err(); err != nil {
		return fmt.Errorf("failed to cancel auction close: %w", err)
	}
	return nil
}

// reductionEntry is the stored member for a price-reduction schedule.
type reductionEntry struct {
	AuctionID  string `json:"auction_id"`
	IntervalMs int64  `json:"interval_ms"`
	EndUnixMs  int64  `json:"end_unix_ms"`
}

// SchedulePriceReductions registers a recurring Dutch reduction every
// interval until endTime.
func (s *TimerService) SchedulePriceReductions(ctx context.Context, auctionID auction.AuctionID, interval time.Duration, endTime time.Time) error {
	entry := reductionEntry{
		AuctionID:  auctionID.String(),
		IntervalMs: interval.Milliseconds(),
		EndUnixMs:  endTime.UnixMilli(),
	}
	member, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode reduction schedule: %w", err)
	}
	err = s.client.ZAdd(ctx, reductionScheduleKey, redis.Z{
		Score:  float64(time.Now().Add(interval).UnixMilli()),
		Member: string(member),
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to schedule price reductions: %w", err)
	}
	return nil
}

// ScheduleBatch registers many close schedules at once.
func (s *TimerService) ScheduleBatch(ctx context.Context, schedules []auction.CloseSchedule) error {
	if len(schedules) == 0 {
		return nil
	}
	members := make([]redis.Z, 0, len(schedules))
	for _, schedule := range schedules {
		members = append(members, redis.Z{
			Score:  float64(schedule.EndTime.UnixMilli()),
			Member: schedule.AuctionID.String(),
		})
	}
	if err := s.client.ZAdd(ctx, closeScheduleKey, members...).Err(); err != nil {
		return fmt.Errorf("failed to schedule batch: %w", err)
	}
	return nil
}

// Run polls both schedules until the context is cancelled.
func (s *TimerService) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.fireDueClosings(ctx)
			s.fireDueReductions(ctx)
		}
	}
}

func (s *TimerService) fireDueClosings(ctx context.Context) {
	due, err := s.popDue(ctx, closeScheduleKey)
	if err != nil {
		s.logger.Error("failed to poll close schedule", "error", err)
		return
	}
	for _, member := range due {
		auctionID, err := auction.ParseAuctionID(member)
		if err != nil {
			s.logger.Error("malformed close schedule entry", "member", member, "error", err)
			continue
		}
		if err := s.callbacks.CloseAuction(ctx, auctionID); err != nil {
			s.logger.Error("timer-driven close failed",
				"auction_id", auctionID.String(), "error", err)
		}
	}
}

func (s *TimerService) fireDueReductions(ctx context.Context) {
	due, err := s.popDue(ctx, reductionScheduleKey)
	if err != nil {
		s.logger.Error("failed to poll reduction schedule", "error", err)
		return
	}
	now := time.Now()
	for _, member := range due {
		var entry reductionEntry
		if err := json.Unmarshal([]byte(member), &entry); err != nil {
			s.logger.Error("malformed reduction schedule entry", "member", member, "error", err)
			continue
		}
		auctionID, err := auction.ParseAuctionID(entry.AuctionID)
		if err != nil {
			s.logger.Error("malformed reduction schedule entry", "member", member, "error", err)
			continue
		}
		if err := s.callbacks.ReducePrice(ctx, auctionID); err != nil {
			s.logger.Error("timer-driven price reduction failed",
				"auction_id", auctionID.String(), "error", err)
		}
		// Re-arm until the end time passes.
		next := now.Add(time.Duration(entry.IntervalMs) * time.Millisecond)
		if next.UnixMilli() <= entry.EndUnixMs {
			if err := s.client.ZAdd(ctx, reductionScheduleKey, redis.Z{
				Score:  float64(next.UnixMilli()),
				Member: member,
			}).Err(); err != nil {
				s.logger.Error("failed to re-arm price reduction",
					"auction_id", auctionID.String(), "error", err)
			}
		}
	}
}

// popDue atomically claims schedule entries due at or before now.
func (s *TimerService) popDue(ctx context.Context, key string) ([]string, error) {
	now := float64(time.Now().UnixMilli())
	members, err := s.client.ZRangeByScore(ctx, key, &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%f", now),
	}).Result()
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, nil
	}
	claimed := make([]string, 0, len(members))
	for _, member := range members {
		removed, err := s.client.ZRem(ctx, key, member).Result()
		if err != nil {
			return claimed, err
		}
		// Another node claimed it first.
		if removed > 0 {
			claimed = append(claimed, member)
		}
	}
	return claimed, nil
}
