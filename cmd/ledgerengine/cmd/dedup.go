package cmd

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"

	"golang-ledger-engine/cmd/ledgerengine/config"
	"golang-ledger-engine/internal/dedup"
	"golang-ledger-engine/internal/models"
	"golang-ledger-engine/internal/parsers"
	"golang-ledger-engine/internal/reporter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags for the dedup command
var (
	dedupInputFiles      []string
	dedupOutputFile      string
	dedupHistoryPath     string
	dedupReportFormat    string
	dedupAmountTolerance float64
	dedupDateTolerance   int
	dedupSkipThreshold   float64
)

// dedupCmd represents the dedup command
var dedupCmd = &cobra.Command{
	Use:   "dedup",
	Short: "Filter duplicate transactions against the ingestion history",
	Long: `Dedup partitions incoming normalized transactions into new records and
duplicates of previously ingested ones.

Exact duplicates (same account, date, amount and normalized description)
and high-confidence fuzzy duplicates are dropped; low-confidence fuzzy
hits are withheld from the output and flagged for review. Accepted records
are written to the history database after the pass so the next ingestion
run sees them.

Examples:
  # Filter against a persistent history
  ledgerengine dedup --input transactions.csv --history dedup.db --output new.csv

  # One-shot in-memory run (finds duplicates within the batch only)
  ledgerengine dedup --input transactions.csv --output new.csv

  # Tighter fuzzy bands
  ledgerengine dedup --input tx.csv --history dedup.db \
    --amount-tolerance 0.25 --date-tolerance 1`,

	PreRunE: validateDedupFlags,
	RunE:    runDedup,
}

func init() {
	rootCmd.AddCommand(dedupCmd)

	dedupCmd.Flags().StringSliceVarP(&dedupInputFiles, "input", "i", []string{}, "normalized transaction CSV file(s) (required)")
	dedupCmd.Flags().StringVarP(&dedupOutputFile, "output", "o", "", "output file for new records (default: stdout)")
	dedupCmd.Flags().StringVar(&dedupHistoryPath, "history", "", "SQLite ingestion history path (default: in-memory)")
	dedupCmd.Flags().StringVarP(&dedupReportFormat, "output-format", "f", "console", "report format: console, json, csv")
	dedupCmd.Flags().Float64VarP(&dedupAmountTolerance, "amount-tolerance", "a", 0.50, "fuzzy amount band in dollars")
	dedupCmd.Flags().IntVarP(&dedupDateTolerance, "date-tolerance", "d", 3, "fuzzy date band in days")
	dedupCmd.Flags().Float64Var(&dedupSkipThreshold, "skip-threshold", 0.8, "fuzzy confidence at which duplicates are skipped (0.0-1.0)")

	dedupCmd.MarkFlagRequired("input")

	viper.BindPFlag("dedup.input", dedupCmd.Flags().Lookup("input"))
	viper.BindPFlag("dedup.history", dedupCmd.Flags().Lookup("history"))
	viper.BindPFlag("dedup.amount-tolerance", dedupCmd.Flags().Lookup("amount-tolerance"))
	viper.BindPFlag("dedup.date-tolerance", dedupCmd.Flags().Lookup("date-tolerance"))
	viper.BindPFlag("dedup.skip-threshold", dedupCmd.Flags().Lookup("skip-threshold"))
}

func validateDedupFlags(cmd *cobra.Command, args []string) error {
	if len(dedupInputFiles) == 0 {
		return fmt.Errorf("at least one input file is required")
	}
	for i, inputFile := range dedupInputFiles {
		if err := validateFileExists(inputFile, fmt.Sprintf("input file %d", i+1)); err != nil {
			return err
		}
	}

	if dedupAmountTolerance < 0 {
		return fmt.Errorf("amount tolerance cannot be negative")
	}
	if dedupDateTolerance < 0 {
		return fmt.Errorf("date tolerance cannot be negative")
	}
	if dedupSkipThreshold < 0.0 || dedupSkipThreshold > 1.0 {
		return fmt.Errorf("skip threshold must be between 0.0 and 1.0")
	}

	if _, err := config.CreateReportConfig(dedupReportFormat, verbose); err != nil {
		return err
	}

	return nil
}

func runDedup(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	handler := NewCLIErrorHandler()

	parser, err := parsers.NewRecordParser(config.CreateParserConfig())
	if err != nil {
		os.Exit(handler.HandleError(err))
	}

	var incoming []*models.NormalizedTransaction
	for _, inputFile := range dedupInputFiles {
		recs, _, err := parser.ParseFile(inputFile)
		if err != nil {
			os.Exit(handler.HandleError(err))
		}
		incoming = append(incoming, recs...)
	}

	var store dedup.Store
	if dedupHistoryPath != "" {
		sqliteStore, err := dedup.OpenSQLiteStore(ctx, dedupHistoryPath)
		if err != nil {
			os.Exit(handler.HandleError(err))
		}
		store = sqliteStore
	} else {
		store = dedup.NewMemoryStore()
	}
	defer store.Close()

	engine, err := dedup.NewEngine(store,
		config.CreateDedupConfig(dedupAmountTolerance, dedupDateTolerance, dedupSkipThreshold))
	if err != nil {
		os.Exit(handler.HandleError(err))
	}

	result, err := engine.Partition(ctx, incoming)
	if err != nil {
		os.Exit(handler.HandleError(err))
	}
	if err := engine.Commit(ctx, result); err != nil {
		os.Exit(handler.HandleError(err))
	}

	if err := writeNewRecords(result.New); err != nil {
		os.Exit(handler.HandleError(err))
	}

	reportConfig, err := config.CreateReportConfig(dedupReportFormat, verbose)
	if err != nil {
		os.Exit(handler.HandleError(err))
	}
	gen, err := reporter.NewReporter(reportConfig)
	if err != nil {
		os.Exit(handler.HandleError(err))
	}
	if err := gen.WriteDedupReport(os.Stderr, result); err != nil {
		os.Exit(handler.HandleError(err))
	}

	return nil
}

// writeNewRecords writes accepted records back out in the normalized
// transaction CSV layout, ready for 'ledgerengine build'.
func writeNewRecords(records []*models.NormalizedTransaction) error {
	out := os.Stdout
	if dedupOutputFile != "" {
		f, err := os.Create(dedupOutputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	writer := csv.NewWriter(out)
	header := []string{"id", "date", "amount", "description", "original_description", "account_name", "category", "source_file"}
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, rec := range records {
		row := []string{
			rec.ID,
			rec.Date.Format("2006-01-02"),
			rec.Amount.StringFixed(2),
			rec.Description,
			rec.OriginalDescription,
			rec.AccountName,
			rec.Category,
			rec.SourceFile,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
