package memory_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/outcry/outcry/internal/auction"
	"github.com/outcry/outcry/internal/infra/memory"
)

func TestSequenceService_MonotonicPerAuction(t *testing.T) {
	service := memory.NewSequenceService()
	ctx := context.Background()
	first := auction.NewAuctionID()
	second := auction.NewAuctionID()

	for want := int64(1); want <= 3; want++ {
		got, err := service.NextSequence(ctx, first)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	// Counters are independent per auction.
	got, err := service.NextSequence(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)
}

func TestSequenceService_NoReuseUnderConcurrency(t *testing.T) {
	service := memory.NewSequenceService()
	ctx := context.Background()
	auctionID := auction.NewAuctionID()

	const goroutines = 16
	const perGoroutine = 100

	var mu sync.Mutex
	seen := make(map[int64]bool)
	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				seq, err := service.NextSequence(ctx, auctionID)
				assert.NoError(t, err)
				mu.Lock()
				assert.False(t, seen[seq], "sequence %d issued twice", seq)
				seen[seq] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, goroutines*perGoroutine)
}
