// Package ledger accumulates classified transactions into dated, balanced
// ledger entries and exports them to flat formats.
//
// The build is a synchronous batch pipeline: classification and synthesis of
// a single record are pure and run through a bounded parallel map phase, but
// accumulation, the balance check, sorting and export remain single-writer
// operations. Records whose postings do not balance are counted and reported,
// never silently included or zero-padded.
package ledger

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang-ledger-engine/internal/classify"
	"golang-ledger-engine/internal/models"
	"golang-ledger-engine/internal/synthesize"
	apperrors "golang-ledger-engine/pkg/errors"
	"golang-ledger-engine/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Config holds ledger builder configuration.
type Config struct {
	// BalanceTolerance is the maximum absolute posting sum per entry.
	BalanceTolerance decimal.Decimal `json:"balance_tolerance"`

	// MaxWorkers bounds the parallel classify+synthesize phase.
	MaxWorkers int `json:"max_workers"`

	// MaxErrorExamples limits how many per-record errors the report retains.
	MaxErrorExamples int `json:"max_error_examples"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BalanceTolerance: models.BalanceTolerance,
		MaxWorkers:       4,
		MaxErrorExamples: 5,
	}
}

// Validate checks if the builder configuration is valid.
func (c *Config) Validate() error {
	if c.BalanceTolerance.IsNegative() {
		return fmt.Errorf("balance tolerance cannot be negative: %s", c.BalanceTolerance)
	}
	if c.MaxWorkers <= 0 {
		return fmt.Errorf("max workers must be positive: %d", c.MaxWorkers)
	}
	return nil
}

// BuildReport summarizes one build run. A completed run always reports these
// totals so silent data loss is structurally impossible to miss.
type BuildReport struct {
	TotalRecords      int      `json:"total_records"`
	EntriesBuilt      int      `json:"entries_built"`
	EntriesRejected   int      `json:"entries_rejected"`
	UnknownKind       int      `json:"unknown_kind"`
	DegradedTransfers int      `json:"degraded_transfers"`
	KindCounts        map[models.Kind]int `json:"kind_counts"`
	Errors            []string `json:"errors,omitempty"`
}

// Builder runs the classify -> synthesize -> validate pipeline and
// accumulates balanced entries.
type Builder struct {
	classifier  *classify.Classifier
	synthesizer *synthesize.Synthesizer
	config      *Config
	log         logger.Logger

	entries   []*models.LedgerEntry
	report    BuildReport
	finalized bool
}

// NewBuilder creates a ledger builder. Nil arguments use defaults.
func NewBuilder(classifier *classify.Classifier, synthesizer *synthesize.Synthesizer, config *Config) (*Builder, error) {
	if classifier == nil {
		classifier = classify.New(nil)
	}
	if synthesizer == nil {
		synthesizer = synthesize.New(nil)
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CategoryConfiguration, apperrors.CodeInvalidConfig,
			"invalid builder configuration")
	}

	return &Builder{
		classifier:  classifier,
		synthesizer: synthesizer,
		config:      config,
		log:         logger.WithComponent("ledger_builder"),
		report:      BuildReport{KindCounts: make(map[models.Kind]int)},
	}, nil
}

// buildResult carries the outcome of classifying and synthesizing one record.
// Results are aggregated in input order by a single writer.
type buildResult struct {
	entry    *models.LedgerEntry
	kind     models.Kind
	degraded bool
	err      error
}

// Add classifies, synthesizes and validates a single record, appending the
// resulting entry. Per-record failures are recorded in the report and do not
// abort the batch.
func (b *Builder) Add(rec *models.NormalizedTransaction) error {
	if b.finalized {
		return apperrors.New(apperrors.CategoryLedger, apperrors.CodeUnexpectedError,
			"cannot add records to a finalized ledger")
	}

	res := b.process(rec)
	b.absorb(res)
	return res.err
}

// BuildAll processes a batch of records. Classification and synthesis of each
// record are independent and run in parallel; aggregation preserves input
// order so that the later stable date sort keeps ties in input order.
func (b *Builder) BuildAll(ctx context.Context, recs []*models.NormalizedTransaction) error {
	if b.finalized {
		return apperrors.New(apperrors.CategoryLedger, apperrors.CodeUnexpectedError,
			"cannot add records to a finalized ledger")
	}

	results := make([]buildResult, len(recs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.config.MaxWorkers)
	for i, rec := range recs {
		i, rec := i, rec
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			results[i] = b.process(rec)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return apperrors.Wrap(err, apperrors.CategoryLedger, apperrors.CodeUnexpectedError,
			"build batch interrupted")
	}

	// Single aggregation point after the parallel map phase.
	for i := range results {
		b.absorb(results[i])
	}

	if b.report.TotalRecords > 0 && b.report.EntriesBuilt == 0 {
		return apperrors.Newf(apperrors.CategoryValidation, apperrors.CodeMissingField,
			"no record in the batch could be converted; input is structurally unreadable (%d records)",
			b.report.TotalRecords)
	}

	b.log.WithFields(logger.Fields{
		"total":    b.report.TotalRecords,
		"built":    b.report.EntriesBuilt,
		"rejected": b.report.EntriesRejected,
		"unknown":  b.report.UnknownKind,
	}).Info("Build batch completed")

	return nil
}

// process runs the pure per-record stages. It must not touch builder state.
func (b *Builder) process(rec *models.NormalizedTransaction) buildResult {
	if err := rec.Validate(); err != nil {
		return buildResult{err: apperrors.Wrap(err, apperrors.CategoryValidation, apperrors.CodeMissingField,
			fmt.Sprintf("invalid record %s", rec.String()))}
	}

	kind := b.classifier.Classify(classify.Input{
		Description:         rec.Description,
		OriginalDescription: rec.OriginalDescription,
		Amount:              rec.Amount,
		AccountKind:         models.InferAccountKind(rec.AccountName, rec.SourceFile),
		CategoryHint:        rec.Category,
	})

	postings, synthErr := b.synthesizer.Synthesize(rec, kind)
	degraded := synthErr != nil
	if degraded {
		// Unresolvable transfer: synthesized under unknown handling.
		kind = models.KindUnknown
	}

	entry := &models.LedgerEntry{
		ID:          entryID(rec),
		Date:        rec.Date,
		Description: entryDescription(rec),
		Postings:    postings,
		Metadata: map[string]string{
			"source_file":      rec.SourceFile,
			"account_name":     rec.AccountName,
			"category":         rec.Category,
			"transaction_type": kind.String(),
		},
	}

	if !entry.IsBalanced(b.config.BalanceTolerance) {
		return buildResult{kind: kind, err: apperrors.Newf(apperrors.CategoryLedger, apperrors.CodeUnbalancedEntry,
			"entry does not balance: %s (sum %s)", entry.String(), entry.Balance().String())}
	}

	return buildResult{entry: entry, kind: kind, degraded: degraded}
}

// absorb folds one result into builder state. Single-writer.
func (b *Builder) absorb(res buildResult) {
	b.report.TotalRecords++

	if res.degraded {
		b.report.DegradedTransfers++
	}

	if res.entry == nil {
		b.report.EntriesRejected++
		if res.err != nil && len(b.report.Errors) < b.config.MaxErrorExamples {
			b.report.Errors = append(b.report.Errors, res.err.Error())
		}
		return
	}

	b.entries = append(b.entries, res.entry)
	b.report.EntriesBuilt++
	b.report.KindCounts[res.kind]++
	if res.kind == models.KindUnknown {
		b.report.UnknownKind++
	}
}

// Finalize stable-sorts entries by date (ties keep input order) and freezes
// the ledger. Exports operate on the finalized list.
func (b *Builder) Finalize() {
	if b.finalized {
		return
	}
	sort.SliceStable(b.entries, func(i, j int) bool {
		return b.entries[i].Date.Before(b.entries[j].Date)
	})
	b.finalized = true
}

// Entries returns the accumulated entries.
func (b *Builder) Entries() []*models.LedgerEntry {
	return b.entries
}

// Report returns the build report for the records processed so far.
func (b *Builder) Report() BuildReport {
	return b.report
}

// Rows flattens the entries into export rows, one per posting.
func (b *Builder) Rows() []models.LedgerRow {
	var rows []models.LedgerRow
	for _, entry := range b.entries {
		for _, p := range entry.Postings {
			rows = append(rows, models.LedgerRow{
				Date:          entry.Date,
				Description:   entry.Description,
				Account:       p.Account,
				Amount:        p.Amount,
				SourceFile:    entry.Metadata["source_file"],
				TransactionID: entry.ID,
			})
		}
	}
	return rows
}

func entryID(rec *models.NormalizedTransaction) string {
	if rec.ID != "" {
		return rec.ID
	}
	return uuid.NewString()
}

func entryDescription(rec *models.NormalizedTransaction) string {
	if desc := strings.TrimSpace(rec.Description); desc != "" {
		return desc
	}
	if desc := strings.TrimSpace(rec.OriginalDescription); desc != "" {
		return desc
	}
	return "Transaction"
}
