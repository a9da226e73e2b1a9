package auction

import "time"

// Bid is an ephemeral candidate bid. It is embedded in events rather
// than persisted on its own. SeqNo comes from the SequenceService and
// breaks ties between equal amounts: lower wins.
type Bid struct {
	BidderID  BidderID
	Amount    Money
	Timestamp time.Time
	SeqNo     int64
}

// HigherPriority reports whether b outranks other under price-time
// priority: higher amount first, lower seqNo on equal amounts.
// Amounts are assumed to share a currency (enforced at admission).
func (b Bid) HigherPriority(other Bid) bool {
	cmp := b.Amount.Amount().Cmp(other.Amount.Amount())
	if cmp != 0 {
		return cmp > 0
	}
	return b.SeqNo < other.SeqNo
}

// SealedBidCommit is a stored commitment made during SEALED_BIDDING.
// The committed amount is never stored or logged in clear.
type SealedBidCommit struct {
	BidderID  BidderID
	Hash      string
	Salt      string
	Timestamp time.Time
	SeqNo     int64
}
