package auction

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ExtensionType selects how an anti-snipe extension is computed.
type ExtensionType string

const (
	ExtensionNone       ExtensionType = "NONE"
	ExtensionFixed      ExtensionType = "FIXED"
	ExtensionPercentage ExtensionType = "PERCENTAGE"
)

// AntiSnipePolicy extends an auction's end time when a qualifying bid
// arrives inside the extension window, up to MaxExtensions times.
type AntiSnipePolicy struct {
	ExtensionWindow time.Duration   `json:"extension_window"`
	MaxExtensions   int             `json:"max_extensions"`
	Type            ExtensionType   `json:"type"`
	FixedDuration   time.Duration   `json:"fixed_duration"`
	Percentage      decimal.Decimal `json:"percentage"` // fraction of original duration, in [0,1]
}

// NoAntiSnipe is the disabled policy.
func NoAntiSnipe() AntiSnipePolicy {
	return AntiSnipePolicy{Type: ExtensionNone}
}

// Validate checks the type-specific parameters.
func (p AntiSnipePolicy) Validate() error {
	if p.MaxExtensions < 0 {
		return fmt.Errorf("max extensions must not be negative")
	}
	switch p.Type {
	case ExtensionNone:
		return nil
	case ExtensionFixed:
		if p.FixedDuration <= 0 {
			return fmt.Errorf("fixed extension requires a positive duration")
		}
	case ExtensionPercentage:
		one := decimal.NewFromInt(1)
		if p.Percentage.IsNegative() || p.Percentage.GreaterThan(one) {
			return fmt.Errorf("extension percentage must be in [0,1]")
		}
	default:
		return fmt.Errorf("unknown extension type %q", p.Type)
	}
	if p.ExtensionWindow <= 0 {
		return fmt.Errorf("extension window must be positive")
	}
	return nil
}

// ShouldExtend reports whether another extension is allowed.
func (p AntiSnipePolicy) ShouldExtend(currentExtensions int) bool {
	return p.Type != ExtensionNone && currentExtensions < p.MaxExtensions
}

// CalculateExtension returns the extension length for this policy.
func (p AntiSnipePolicy) CalculateExtension(originalDuration time.Duration) time.Duration {
	switch p.Type {
	case ExtensionFixed:
		return p.FixedDuration
	case ExtensionPercentage:
		scaled := decimal.NewFromInt(int64(originalDuration)).Mul(p.Percentage)
		return time.Duration(scaled.IntPart())
	default:
		return 0
	}
}
