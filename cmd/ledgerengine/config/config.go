// Package config builds component configurations from CLI flag values.
package config

import (
	"fmt"

	"golang-ledger-engine/internal/dedup"
	"golang-ledger-engine/internal/ledger"
	"golang-ledger-engine/internal/matcher"
	"golang-ledger-engine/internal/parsers"
	"golang-ledger-engine/internal/reporter"

	"github.com/shopspring/decimal"
)

// CreateParserConfig creates the default transaction parser configuration.
func CreateParserConfig() *parsers.RecordParserConfig {
	return parsers.DefaultRecordParserConfig()
}

// CreateBuilderConfig creates a ledger builder configuration with CLI
// overrides applied.
func CreateBuilderConfig(maxWorkers int) *ledger.Config {
	config := ledger.DefaultConfig()
	if maxWorkers > 0 {
		config.MaxWorkers = maxWorkers
	}
	return config
}

// CreateMatcherConfig creates a matcher configuration with the specified
// tolerances.
func CreateMatcherConfig(dateWindow int, confidenceThreshold float64) *matcher.Config {
	config := matcher.DefaultConfig()
	config.DateWindowDays = dateWindow
	config.ConfidenceThreshold = confidenceThreshold
	return config
}

// CreateDedupConfig creates a deduplication configuration with the specified
// tolerances.
func CreateDedupConfig(amountTolerance float64, dateToleranceDays int, skipThreshold float64) *dedup.Config {
	config := dedup.DefaultConfig()
	config.AmountTolerance = decimal.NewFromFloat(amountTolerance)
	config.DateToleranceDays = dateToleranceDays
	config.SkipThreshold = skipThreshold
	return config
}

// CreateReportConfig creates a report configuration for the specified output
// format.
func CreateReportConfig(format string, verbose bool) (*reporter.Config, error) {
	config := reporter.DefaultConfig()
	config.Verbose = verbose

	switch format {
	case "console":
		config.Format = reporter.FormatConsole
	case "json":
		config.Format = reporter.FormatJSON
	case "csv":
		config.Format = reporter.FormatCSV
	default:
		return nil, fmt.Errorf("invalid output format '%s'. Valid formats: console, json, csv", format)
	}

	return config, nil
}
