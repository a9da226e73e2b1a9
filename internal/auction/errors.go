package auction

import (
	"fmt"
	"strings"
)

// Domain errors. Validation failures and rule rejections leave the
// aggregate unchanged; ErrOptimisticLock is retryable from a fresh
// load.
var (
	ErrAuctionClosed     = fmt.Errorf("auction is closed")
	ErrBidderNotEligible = fmt.Errorf("bidder is not eligible")
	ErrInsufficientBid   = fmt.Errorf("bid amount is insufficient")
	ErrInvalidTransition = fmt.Errorf("command not valid in current auction state")
	ErrOptimisticLock    = fmt.Errorf("aggregate version conflict")
	ErrAuctionNotFound   = fmt.Errorf("auction not found")
	ErrBidAfterClose     = fmt.Errorf("bid arrived after auction close")
	ErrUnknownCommit     = fmt.Errorf("no sealed commit found for bidder")
)

// ValidationResult aggregates human-readable rule violations in the
// order they were detected. An empty result is valid.
type ValidationResult struct {
	violations []string
}

// AddViolation appends a violation message.
func (r *ValidationResult) AddViolation(format string, args ...any) {
	r.violations = append(r.violations, fmt.Sprintf(format, args...))
}

// Valid reports whether no violations were recorded.
func (r *ValidationResult) Valid() bool { return len(r.violations) == 0 }

// Violations returns the recorded messages in order.
func (r *ValidationResult) Violations() []string { return r.violations }

// Err returns nil for a valid result, otherwise a ValidationError
// wrapping all violations.
func (r *ValidationResult) Err() error {
	if r.Valid() {
		return nil
	}
	return &ValidationError{Result: *r}
}

// ValidationError carries a failed ValidationResult.
type ValidationError struct {
	Result ValidationResult
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Result.violations, "; ")
}
