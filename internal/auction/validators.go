package auction

import (
	"time"
)

// ValidateAuction checks a CreateAuction command. now is injected so
// callers (and tests) control the clock.
func ValidateAuction(itemID ItemID, startTime, endTime, now time.Time) ValidationResult {
	var result ValidationResult
	if itemID.IsZero() {
		result.AddViolation("item must be specified")
	}
	if !startTime.Before(endTime) {
		result.AddViolation("start time must be before end time")
	}
	if !startTime.After(now) {
		result.AddViolation("start time must be in the future")
	}
	return result
}

// ValidateBid checks a candidate bid against the current highest bid,
// the reserve price, and the increment policy. A bid exactly equal to
// the current highest is always rejected; an increment, however small,
// is mandatory. currentHighestBidder marks whether a highest bid
// exists at all: a zero-reserve auction can carry a genuine 0-amount
// highest, so the amount's zero value cannot stand in for "no bids
// yet".
func ValidateBid(bidderID BidderID, amount Money, currentHighest Money, currentHighestBidder BidderID, reserve Money, increment BidIncrement) ValidationResult {
	var result ValidationResult
	if bidderID.IsZero() {
		result.AddViolation("bidder must be a valid identifier")
		return result
	}

	meetsReserve, err := amount.GreaterThanOrEqual(reserve)
	if err != nil {
		result.AddViolation("bid currency %s does not match auction currency %s", amount.Currency(), reserve.Currency())
		return result
	}
	if !meetsReserve {
		result.AddViolation("bid %s is below reserve price %s", amount, reserve)
	}

	if currentHighestBidder.IsZero() {
		return result
	}

	minimum, err := increment.NextBid(currentHighest)
	if err != nil {
		result.AddViolation("cannot compute minimum next bid: %v", err)
		return result
	}
	meetsIncrement, err := amount.GreaterThanOrEqual(minimum)
	if err != nil {
		result.AddViolation("bid currency %s does not match auction currency %s", amount.Currency(), minimum.Currency())
		return result
	}
	if !meetsIncrement {
		if amount.Equal(currentHighest) {
			result.AddViolation("bid must exceed current highest %s", currentHighest)
		} else {
			result.AddViolation("bid %s is below minimum next bid %s", amount, minimum)
		}
	}
	return result
}

// ValidateExtension checks whether a bid arriving at bidTime may still
// be admitted relative to endTime, and whether an extension inside the
// window is permitted by the policy. A valid result does not imply an
// extension is triggered; the aggregate decides that.
func ValidateExtension(policy AntiSnipePolicy, endTime, bidTime time.Time, currentExtensions int) ValidationResult {
	var result ValidationResult
	timeToEnd := endTime.Sub(bidTime)
	if timeToEnd < 0 {
		result.AddViolation("bid after close")
		return result
	}
	if timeToEnd <= policy.ExtensionWindow && policy.Type != ExtensionNone && !policy.ShouldExtend(currentExtensions) {
		result.AddViolation("max extensions reached")
	}
	return result
}
