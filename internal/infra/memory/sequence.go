package memory

import (
	"context"
	"sync"

	"github.com/outcry/outcry/internal/auction"
)

// SequenceService is an in-process monotonic counter per auction. It
// satisfies the port for single-node runs and tests; clustered
// deployments use the Redis adapter.
type SequenceService struct {
	mu       sync.Mutex
	counters map[string]int64
}

// NewSequenceService creates an empty counter set.
func NewSequenceService() *SequenceService {
	return &SequenceService{counters: make(map[string]int64)}
}

// NextSequence returns a value strictly greater than every previously
// returned value for that auction.
func (s *SequenceService) NextSequence(ctx context.Context, auctionID auction.AuctionID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[auctionID.String()]++
	return s.counters[auctionID.String()], nil
}
