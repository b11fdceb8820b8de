// Package dedup partitions incoming normalized transactions into new records
// and duplicates of already-ingested ones.
//
// Exact duplicates are detected by a content signature over the fields that
// survive re-export (account, date, amount, normalized description); volatile
// fields like IDs and file paths never enter the signature. Fuzzy duplicates
// are near-misses within an amount and date band, scored by description
// similarity; high-confidence fuzzy hits are skipped like exact ones, the
// rest are kept but flagged for review.
package dedup

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Fuzzy similarity confidence levels.
const (
	confidenceSameDescription = 0.9
	confidenceContainment     = 0.7
	confidenceBandOnly        = 0.5
)

// Config holds deduplication configuration.
type Config struct {
	// AmountTolerance is the fuzzy-candidate amount band in dollars.
	AmountTolerance decimal.Decimal `json:"amount_tolerance"`

	// DateToleranceDays is the fuzzy-candidate date band in days.
	DateToleranceDays int `json:"date_tolerance_days"`

	// SkipThreshold is the minimum fuzzy confidence at which a candidate is
	// treated as a duplicate and skipped rather than flagged.
	SkipThreshold float64 `json:"skip_threshold"`
}

// DefaultConfig returns the default deduplication configuration.
func DefaultConfig() *Config {
	return &Config{
		AmountTolerance:   decimal.NewFromFloat(0.50),
		DateToleranceDays: 3,
		SkipThreshold:     0.8,
	}
}

// Validate checks if the deduplication configuration is valid.
func (c *Config) Validate() error {
	if c.AmountTolerance.IsNegative() {
		return fmt.Errorf("amount tolerance cannot be negative: %s", c.AmountTolerance)
	}
	if c.DateToleranceDays < 0 {
		return fmt.Errorf("date tolerance days cannot be negative: %d", c.DateToleranceDays)
	}
	if c.SkipThreshold < 0.0 || c.SkipThreshold > 1.0 {
		return fmt.Errorf("skip threshold must be between 0.0 and 1.0: %f", c.SkipThreshold)
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

// Skips reports whether a fuzzy confidence is high enough to skip the record.
func (c *Config) Skips(confidence float64) bool {
	return confidence >= c.SkipThreshold
}

// String returns a human-readable description of the configuration.
func (c *Config) String() string {
	return fmt.Sprintf("DedupConfig{AmountTolerance: %s, DateTolerance: %d days, SkipThreshold: %.2f}",
		c.AmountTolerance.String(), c.DateToleranceDays, c.SkipThreshold)
}
