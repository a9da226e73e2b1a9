package auction

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

func parseDecimal(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}

// BidIncrement computes the minimum acceptable next bid above the
// current highest.
type BidIncrement interface {
	NextBid(currentHighest Money) (Money, error)
}

// FixedIncrement adds a constant step.
type FixedIncrement struct {
	Step Money
}

// NextBid returns currentHighest + Step.
func (f FixedIncrement) NextBid(currentHighest Money) (Money, error) {
	return currentHighest.Add(f.Step)
}

// PercentageIncrement adds a fraction of the current highest bid.
type PercentageIncrement struct {
	Percentage decimal.Decimal // fraction, e.g. 0.05 for 5%
}

// NextBid returns currentHighest * (1 + Percentage).
func (p PercentageIncrement) NextBid(currentHighest Money) (Money, error) {
	if p.Percentage.IsNegative() {
		return Money{}, fmt.Errorf("increment percentage must not be negative")
	}
	step, err := currentHighest.Multiply(p.Percentage)
	if err != nil {
		return Money{}, err
	}
	return currentHighest.Add(step)
}

// IncrementRung maps a price threshold to the fixed step that applies
// from that threshold upward.
type IncrementRung struct {
	From Money
	Step Money
}

// DynamicIncrement applies a ladder of fixed steps by price range.
// Below the lowest rung the lowest rung's step applies.
type DynamicIncrement struct {
	rungs []IncrementRung
}

// NewDynamicIncrement builds a ladder from one or more rungs. Rungs are
// sorted by threshold; all thresholds and steps must share a currency.
func NewDynamicIncrement(rungs []IncrementRung) (DynamicIncrement, error) {
	if len(rungs) == 0 {
		return DynamicIncrement{}, fmt.Errorf("dynamic increment requires at least one rung")
	}
	currency := rungs[0].From.Currency()
	for _, r := range rungs {
		if r.From.Currency() != currency || r.Step.Currency() != currency {
			return DynamicIncrement{}, ErrCurrencyMismatch
		}
	}
	sorted := make([]IncrementRung, len(rungs))
	copy(sorted, rungs)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].From.Amount().LessThan(sorted[j].From.Amount())
	})
	return DynamicIncrement{rungs: sorted}, nil
}

// NextBid looks up the rung covering currentHighest and adds its step.
func (d DynamicIncrement) NextBid(currentHighest Money) (Money, error) {
	if len(d.rungs) == 0 {
		return Money{}, fmt.Errorf("dynamic increment has no rungs")
	}
	step := d.rungs[0].Step
	for _, r := range d.rungs {
		atOrAbove, err := currentHighest.GreaterThanOrEqual(r.From)
		if err != nil {
			return Money{}, err
		}
		if !atOrAbove {
			break
		}
		step = r.Step
	}
	return currentHighest.Add(step)
}
