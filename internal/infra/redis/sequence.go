// Package redis provides the clustered sequence counter and the timer
// schedule on Redis.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/outcry/outcry/internal/auction"
)

// SequenceService implements auction.SequenceService on a Redis INCR
// counter per auction. INCR is atomic and the keys are persistent, so
// the counter is monotonic across nodes and restarts and values are
// never reused. This is what makes "earliest submission wins a tie"
// node-independent.
type SequenceService struct {
	client *redis.Client
}

// NewSequenceService creates a sequence service on a Redis client.
func NewSequenceService(client *redis.Client) *SequenceService {
	return &SequenceService{client: client}
}

func sequenceKey(auctionID auction.AuctionID) string {
	return "seq:auction:" + auctionID.String()
}

// NextSequence returns the next counter value for the auction.
func (s *SequenceService) NextSequence(ctx context.Context, auctionID auction.AuctionID) (int64, error) {
	seq, err := s.client.Incr(ctx, sequenceKey(auctionID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment sequence for %s: %w", auctionID, err)
	}
	return seq, nil
}
