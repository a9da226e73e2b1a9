package auction

import (
	"container/heap"
	"sync"
)

// BidQueue is a concurrent priority queue ordering bids by price-time
// priority: higher amount first, lower seqNo first on equal amounts.
// All operations are non-blocking; polling an empty queue reports
// ok=false instead of waiting. Used to resolve a burst of
// near-simultaneous bids into a single winner before commit.
type BidQueue struct {
	mu    sync.Mutex
	items bidHeap
}

// NewBidQueue creates an empty queue.
func NewBidQueue() *BidQueue {
	return &BidQueue{}
}

// AddBid inserts a bid. O(log n).
func (q *BidQueue) AddBid(bid Bid) {
	q.mu.Lock()
	defer q.mu.Unlock()
	heap.Push(&q.items, bid)
}

// PeekHighestBid returns the highest-priority bid without removing it.
func (q *BidQueue) PeekHighestBid() (Bid, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return Bid{}, false
	}
	return q.items[0], true
}

// PollHighestBid removes and returns the highest-priority bid.
func (q *BidQueue) PollHighestBid() (Bid, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return Bid{}, false
	}
	return heap.Pop(&q.items).(Bid), true
}

// IsEmpty reports whether the queue holds no bids.
func (q *BidQueue) IsEmpty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) == 0
}

// Size returns the number of queued bids.
func (q *BidQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Clear discards all queued bids.
func (q *BidQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = nil
}

// bidHeap implements heap.Interface with price-time ordering.
type bidHeap []Bid

func (h bidHeap) Len() int           { return len(h) }
func (h bidHeap) Less(i, j int) bool { return h[i].HigherPriority(h[j]) }
func (h bidHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *bidHeap) Push(x any)        { *h = append(*h, x.(Bid)) }
func (h *bidHeap) Pop() any {
	old := *h
	n := len(old)
	bid := old[n-1]
	*h = old[:n-1]
	return bid
}
