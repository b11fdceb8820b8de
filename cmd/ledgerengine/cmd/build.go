package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang-ledger-engine/cmd/ledgerengine/config"
	"golang-ledger-engine/internal/ledger"
	"golang-ledger-engine/internal/models"
	"golang-ledger-engine/internal/parsers"
	"golang-ledger-engine/internal/reporter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags for the build command
var (
	buildInputFiles   []string
	buildOutputFile   string
	buildLedgerFormat string
	buildReportFormat string
	buildMaxWorkers   int
)

// buildCmd represents the build command
var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build a double-entry ledger from normalized transactions",
	Long: `Build classifies each normalized transaction, synthesizes balanced
double-entry postings and writes the resulting ledger.

Every input record is accounted for in the build report: built, rejected,
or kept under an Unknown bucket. Entries that do not balance are rejected
and reported, never silently included.

Examples:
  # Build a flat CSV ledger
  ledgerengine build --input transactions.csv --output ledger.csv

  # Multiple feeds into one ledger
  ledgerengine build --input bank.csv --input amex.csv --output ledger.csv

  # Beancount output with a JSON build report
  ledgerengine build --input tx.csv --output ledger.beancount \
    --ledger-format beancount --output-format json`,

	PreRunE: validateBuildFlags,
	RunE:    runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().StringSliceVarP(&buildInputFiles, "input", "i", []string{}, "normalized transaction CSV file(s) (required)")
	buildCmd.Flags().StringVarP(&buildOutputFile, "output", "o", "", "ledger output file (default: stdout)")
	buildCmd.Flags().StringVar(&buildLedgerFormat, "ledger-format", "csv", "ledger format: csv, beancount, ledger")
	buildCmd.Flags().StringVarP(&buildReportFormat, "output-format", "f", "console", "report format: console, json, csv")
	buildCmd.Flags().IntVar(&buildMaxWorkers, "max-workers", 4, "parallel classification workers")

	buildCmd.MarkFlagRequired("input")

	viper.BindPFlag("build.input", buildCmd.Flags().Lookup("input"))
	viper.BindPFlag("build.output", buildCmd.Flags().Lookup("output"))
	viper.BindPFlag("build.ledger-format", buildCmd.Flags().Lookup("ledger-format"))
	viper.BindPFlag("build.output-format", buildCmd.Flags().Lookup("output-format"))
	viper.BindPFlag("build.max-workers", buildCmd.Flags().Lookup("max-workers"))
}

func validateBuildFlags(cmd *cobra.Command, args []string) error {
	if len(buildInputFiles) == 0 {
		return fmt.Errorf("at least one input file is required")
	}
	for i, inputFile := range buildInputFiles {
		if err := validateFileExists(inputFile, fmt.Sprintf("input file %d", i+1)); err != nil {
			return err
		}
	}

	switch buildLedgerFormat {
	case "csv", "beancount", "ledger":
	default:
		return fmt.Errorf("invalid ledger format '%s'. Valid formats: csv, beancount, ledger", buildLedgerFormat)
	}

	if _, err := config.CreateReportConfig(buildReportFormat, verbose); err != nil {
		return err
	}

	return nil
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	handler := NewCLIErrorHandler()

	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Building ledger from: %s\n", strings.Join(buildInputFiles, ", "))
	}

	parser, err := parsers.NewRecordParser(config.CreateParserConfig())
	if err != nil {
		os.Exit(handler.HandleError(err))
	}

	var records []*models.NormalizedTransaction
	for _, inputFile := range buildInputFiles {
		recs, stats, err := parser.ParseFile(inputFile)
		if err != nil {
			os.Exit(handler.HandleError(err))
		}
		if viper.GetBool("verbose") {
			fmt.Fprintf(os.Stderr, "Parsed %s: %d rows, %d failed\n",
				inputFile, stats.TotalRows, stats.FailedRows)
		}
		records = append(records, recs...)
	}

	builder, err := ledger.NewBuilder(nil, nil, config.CreateBuilderConfig(buildMaxWorkers))
	if err != nil {
		os.Exit(handler.HandleError(err))
	}

	if err := builder.BuildAll(ctx, records); err != nil {
		os.Exit(handler.HandleError(err))
	}
	builder.Finalize()

	if err := exportLedger(builder); err != nil {
		os.Exit(handler.HandleError(err))
	}

	reportConfig, err := config.CreateReportConfig(buildReportFormat, verbose)
	if err != nil {
		os.Exit(handler.HandleError(err))
	}
	gen, err := reporter.NewReporter(reportConfig)
	if err != nil {
		os.Exit(handler.HandleError(err))
	}

	// Report goes to stderr when the ledger itself is on stdout.
	reportOut := os.Stdout
	if buildOutputFile == "" {
		reportOut = os.Stderr
	}
	if err := gen.WriteBuildReport(reportOut, builder.Report()); err != nil {
		os.Exit(handler.HandleError(err))
	}

	return nil
}

func exportLedger(builder *ledger.Builder) error {
	out := os.Stdout
	if buildOutputFile != "" {
		f, err := os.Create(buildOutputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	switch buildLedgerFormat {
	case "beancount":
		return builder.ExportBeancount(out)
	case "ledger":
		return builder.ExportLedgerCLI(out)
	default:
		return builder.ExportCSV(out)
	}
}
