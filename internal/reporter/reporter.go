// Package reporter renders run reports for the console and for machine
// consumption.
//
// Totals are always printed, whatever the format: a run that drops records
// must say so in its report.
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"golang-ledger-engine/internal/dedup"
	"golang-ledger-engine/internal/ledger"
	"golang-ledger-engine/internal/matcher"
	"golang-ledger-engine/internal/models"
	apperrors "golang-ledger-engine/pkg/errors"
	"golang-ledger-engine/pkg/logger"
)

// Format represents the output format for reports.
type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
	FormatCSV     Format = "csv"
)

// Config holds reporter configuration.
type Config struct {
	// Format selects the output format.
	Format Format `json:"format"`

	// Verbose includes per-item detail in console output.
	Verbose bool `json:"verbose"`
}

// DefaultConfig returns the default reporter configuration.
func DefaultConfig() *Config {
	return &Config{Format: FormatConsole}
}

// Validate checks if the reporter configuration is valid.
func (c *Config) Validate() error {
	switch c.Format {
	case FormatConsole, FormatJSON, FormatCSV:
		return nil
	default:
		return fmt.Errorf("unsupported report format: %s", c.Format)
	}
}

// Reporter renders reports in the configured format.
type Reporter struct {
	config *Config
	log    logger.Logger
}

// NewReporter creates a reporter. A nil configuration uses defaults.
func NewReporter(config *Config) (*Reporter, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CategoryConfiguration, apperrors.CodeInvalidConfig,
			"invalid reporter configuration")
	}
	return &Reporter{
		config: config,
		log:    logger.WithComponent("reporter"),
	}, nil
}

// WriteBuildReport renders a ledger build report.
func (r *Reporter) WriteBuildReport(w io.Writer, report ledger.BuildReport) error {
	switch r.config.Format {
	case FormatJSON:
		return writeJSON(w, report)
	case FormatCSV:
		return writeCSVPairs(w, buildReportPairs(report))
	default:
		return r.writeBuildConsole(w, report)
	}
}

func (r *Reporter) writeBuildConsole(w io.Writer, report ledger.BuildReport) error {
	fmt.Fprintln(w, "Ledger Build Report")
	fmt.Fprintln(w, "===================")
	fmt.Fprintf(w, "Records processed:  %d\n", report.TotalRecords)
	fmt.Fprintf(w, "Entries built:      %d\n", report.EntriesBuilt)
	fmt.Fprintf(w, "Entries rejected:   %d\n", report.EntriesRejected)
	fmt.Fprintf(w, "Unknown kind:       %d\n", report.UnknownKind)
	fmt.Fprintf(w, "Degraded transfers: %d\n", report.DegradedTransfers)

	if len(report.KindCounts) > 0 {
		fmt.Fprintln(w, "\nBy kind:")
		kinds := make([]models.Kind, 0, len(report.KindCounts))
		for kind := range report.KindCounts {
			kinds = append(kinds, kind)
		}
		sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
		for _, kind := range kinds {
			fmt.Fprintf(w, "  %-24s %d\n", kind, report.KindCounts[kind])
		}
	}

	return writeErrorList(w, report.Errors)
}

func buildReportPairs(report ledger.BuildReport) [][]string {
	pairs := [][]string{
		{"metric", "value"},
		{"total_records", strconv.Itoa(report.TotalRecords)},
		{"entries_built", strconv.Itoa(report.EntriesBuilt)},
		{"entries_rejected", strconv.Itoa(report.EntriesRejected)},
		{"unknown_kind", strconv.Itoa(report.UnknownKind)},
		{"degraded_transfers", strconv.Itoa(report.DegradedTransfers)},
	}
	for kind, n := range report.KindCounts {
		pairs = append(pairs, []string{"kind_" + kind.String(), strconv.Itoa(n)})
	}
	return pairs
}

// WriteReconciliationReport renders a reconciliation report.
func (r *Reporter) WriteReconciliationReport(w io.Writer, report *matcher.ReconciliationReport) error {
	switch r.config.Format {
	case FormatJSON:
		return writeJSON(w, report)
	case FormatCSV:
		return r.writeReconciliationCSV(w, report)
	default:
		return r.writeReconciliationConsole(w, report)
	}
}

func (r *Reporter) writeReconciliationConsole(w io.Writer, report *matcher.ReconciliationReport) error {
	fmt.Fprintln(w, "Reconciliation Report")
	fmt.Fprintln(w, "=====================")
	fmt.Fprintf(w, "Ledger rows:       %d\n", report.TotalRows)
	fmt.Fprintf(w, "Matches found:     %d\n", report.MatchesFound)
	fmt.Fprintf(w, "Matches repaired:  %d\n", report.MatchesRepaired)
	fmt.Fprintf(w, "Rows removed:      %d\n", report.RowsRemoved)
	fmt.Fprintf(w, "Rows added:        %d\n", report.RowsAdded)
	fmt.Fprintf(w, "Unmatched sources: %d\n", report.UnmatchedSources)

	if r.config.Verbose && len(report.Details) > 0 {
		fmt.Fprintln(w, "\nRepaired payments:")
		for _, d := range report.Details {
			fmt.Fprintf(w, "  %s  %10s  %-18s confidence %.2f\n",
				d.Date.Format("2006-01-02"), d.Amount.StringFixed(2), d.Card, d.Confidence)
		}
	}

	return writeErrorList(w, report.Errors)
}

func (r *Reporter) writeReconciliationCSV(w io.Writer, report *matcher.ReconciliationReport) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"date", "amount", "card", "confidence", "reasons"}); err != nil {
		return err
	}
	for _, d := range report.Details {
		record := []string{
			d.Date.Format("2006-01-02"),
			d.Amount.StringFixed(2),
			d.Card,
			strconv.FormatFloat(d.Confidence, 'f', 2, 64),
			strings.Join(d.Reasons, ";"),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteDedupReport renders a deduplication report.
func (r *Reporter) WriteDedupReport(w io.Writer, result *dedup.Result) error {
	switch r.config.Format {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatCSV:
		return r.writeDedupCSV(w, result)
	default:
		return r.writeDedupConsole(w, result)
	}
}

func (r *Reporter) writeDedupConsole(w io.Writer, result *dedup.Result) error {
	fmt.Fprintln(w, "Deduplication Report")
	fmt.Fprintln(w, "====================")
	fmt.Fprintf(w, "Incoming records:  %d\n", result.TotalIncoming)
	fmt.Fprintf(w, "New records:       %d\n", result.NewCount)
	fmt.Fprintf(w, "Exact duplicates:  %d\n", result.ExactCount)
	fmt.Fprintf(w, "Fuzzy skipped:     %d\n", result.SkippedCount)
	fmt.Fprintf(w, "Flagged for review: %d\n", result.FlaggedCount)

	if r.config.Verbose && len(result.Flagged) > 0 {
		fmt.Fprintln(w, "\nFlagged records:")
		for _, d := range result.Flagged {
			fmt.Fprintf(w, "  %s  %10s  %-40q confidence %.2f\n",
				d.Transaction.Date.Format("2006-01-02"),
				d.Transaction.Amount.StringFixed(2),
				d.Transaction.Description,
				d.Confidence)
		}
	}

	return nil
}

func (r *Reporter) writeDedupCSV(w io.Writer, result *dedup.Result) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"date", "amount", "description", "reason", "confidence"}); err != nil {
		return err
	}
	write := func(dups []dedup.Duplicate) error {
		for _, d := range dups {
			record := []string{
				d.Transaction.Date.Format("2006-01-02"),
				d.Transaction.Amount.StringFixed(2),
				d.Transaction.Description,
				d.Reason,
				strconv.FormatFloat(d.Confidence, 'f', 2, 64),
			}
			if err := writer.Write(record); err != nil {
				return err
			}
		}
		return nil
	}
	for _, dups := range [][]dedup.Duplicate{result.Exact, result.Skipped, result.Flagged} {
		if err := write(dups); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeCSVPairs(w io.Writer, pairs [][]string) error {
	writer := csv.NewWriter(w)
	for _, pair := range pairs {
		if err := writer.Write(pair); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func writeErrorList(w io.Writer, errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	fmt.Fprintln(w, "\nErrors:")
	for _, e := range errs {
		fmt.Fprintf(w, "  - %s\n", e)
	}
	return nil
}
