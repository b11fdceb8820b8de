// Package matcher finds pairs of ledger entries that are the two
// independently-recorded halves of one real-world payment (typically a
// credit-card bill paid from checking) and repairs the ledger by replacing
// the two economically wrong entries with a single corrected one.
//
// Matching is greedy and one-shot per source entry: the first candidate whose
// confidence clears the threshold wins, in candidate iteration order. This is
// a deliberate simplification and a known source of suboptimal assignment
// under many-to-many ambiguity (two payments of the same amount on the same
// day); the PaymentMatcher interface isolates it so a weighted-assignment
// implementation can be swapped in later.
package matcher

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Confidence signal weights. Signals are independent and additive.
const (
	weightAmountExact  = 0.4
	weightAmountNear   = 0.2
	weightDateSame     = 0.3
	weightDateWindow   = 0.2
	weightCardExact    = 0.2
	weightCardPartial  = 0.1
	weightBankSourced  = 0.1
	weightPaymentDescs = 0.1
)

// Config holds configuration for cross-account payment matching.
type Config struct {
	// DateWindowDays is the maximum day distance between the two halves.
	DateWindowDays int `json:"date_window_days"`

	// ConfidenceThreshold is the minimum additive confidence for a match.
	ConfidenceThreshold float64 `json:"confidence_threshold"`

	// AmountNearTolerance is the near-match amount band in dollars.
	AmountNearTolerance decimal.Decimal `json:"amount_near_tolerance"`
}

// DefaultConfig returns the default matching configuration.
func DefaultConfig() *Config {
	return &Config{
		DateWindowDays:      3,
		ConfidenceThreshold: 0.6,
		AmountNearTolerance: decimal.NewFromInt(1),
	}
}

// Validate checks if the matching configuration is valid.
func (c *Config) Validate() error {
	if c.DateWindowDays < 0 {
		return fmt.Errorf("date window days cannot be negative: %d", c.DateWindowDays)
	}
	if c.ConfidenceThreshold < 0.0 || c.ConfidenceThreshold > 1.0 {
		return fmt.Errorf("confidence threshold must be between 0.0 and 1.0: %f", c.ConfidenceThreshold)
	}
	if c.AmountNearTolerance.IsNegative() {
		return fmt.Errorf("amount near tolerance cannot be negative: %s", c.AmountNearTolerance)
	}
	return nil
}

// Clone creates a copy of the configuration.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// Accepts reports whether a confidence score clears the threshold.
func (c *Config) Accepts(confidence float64) bool {
	return confidence >= c.ConfidenceThreshold
}

// String returns a human-readable description of the configuration.
func (c *Config) String() string {
	return fmt.Sprintf("MatcherConfig{DateWindow: %d days, Threshold: %.2f, NearTolerance: %s}",
		c.DateWindowDays, c.ConfidenceThreshold, c.AmountNearTolerance.String())
}
