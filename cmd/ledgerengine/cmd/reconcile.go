package cmd

import (
	"fmt"
	"os"

	"golang-ledger-engine/cmd/ledgerengine/config"
	"golang-ledger-engine/internal/ledger"
	"golang-ledger-engine/internal/matcher"
	"golang-ledger-engine/internal/parsers"
	"golang-ledger-engine/internal/reporter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags for the reconcile command
var (
	reconcileLedgerFile   string
	reconcileOutputFile   string
	reconcileReportFormat string
	reconcileReportFile   string
	dateWindow            int
	confidenceThreshold   float64
)

// reconcileCmd represents the reconcile command
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile cross-account credit card payments in a built ledger",
	Long: `Reconcile finds credit card payments that were recorded twice, once in
the paying bank feed and once in the card feed, and repairs the ledger by
replacing both wrong entries with a single corrected transfer.

The input must be a flat ledger produced by 'ledgerengine build'. Running
reconcile on an already reconciled ledger is a no-op: corrected entries no
longer look like payment candidates.

Examples:
  # Reconcile in place conventions
  ledgerengine reconcile --ledger ledger.csv --output reconciled.csv

  # Wider date window, stricter confidence
  ledgerengine reconcile --ledger ledger.csv --output reconciled.csv \
    --date-window 5 --confidence-threshold 0.8

  # Machine-readable match report
  ledgerengine reconcile --ledger ledger.csv --output reconciled.csv \
    --output-format json --report-file matches.json`,

	PreRunE: validateReconcileFlags,
	RunE:    runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	reconcileCmd.Flags().StringVarP(&reconcileLedgerFile, "ledger", "l", "", "flat ledger CSV file (required)")
	reconcileCmd.Flags().StringVarP(&reconcileOutputFile, "output", "o", "", "reconciled ledger output file (default: stdout)")
	reconcileCmd.Flags().StringVarP(&reconcileReportFormat, "output-format", "f", "console", "report format: console, json, csv")
	reconcileCmd.Flags().StringVar(&reconcileReportFile, "report-file", "", "report file path (default: stderr)")
	reconcileCmd.Flags().IntVarP(&dateWindow, "date-window", "d", 3, "payment matching date window in days")
	reconcileCmd.Flags().Float64VarP(&confidenceThreshold, "confidence-threshold", "c", 0.6, "minimum match confidence (0.0-1.0)")

	reconcileCmd.MarkFlagRequired("ledger")

	viper.BindPFlag("reconcile.ledger", reconcileCmd.Flags().Lookup("ledger"))
	viper.BindPFlag("reconcile.output", reconcileCmd.Flags().Lookup("output"))
	viper.BindPFlag("reconcile.output-format", reconcileCmd.Flags().Lookup("output-format"))
	viper.BindPFlag("reconcile.date-window", reconcileCmd.Flags().Lookup("date-window"))
	viper.BindPFlag("reconcile.confidence-threshold", reconcileCmd.Flags().Lookup("confidence-threshold"))
}

func validateReconcileFlags(cmd *cobra.Command, args []string) error {
	if err := validateFileExists(reconcileLedgerFile, "ledger file"); err != nil {
		return err
	}

	if dateWindow < 0 {
		return fmt.Errorf("date window cannot be negative")
	}
	if confidenceThreshold < 0.0 || confidenceThreshold > 1.0 {
		return fmt.Errorf("confidence threshold must be between 0.0 and 1.0")
	}

	if _, err := config.CreateReportConfig(reconcileReportFormat, verbose); err != nil {
		return err
	}

	return nil
}

func runReconcile(cmd *cobra.Command, args []string) error {
	handler := NewCLIErrorHandler()

	rows, err := parsers.LoadLedgerCSV(reconcileLedgerFile)
	if err != nil {
		os.Exit(handler.HandleError(err))
	}

	m, err := matcher.NewGreedyMatcher(config.CreateMatcherConfig(dateWindow, confidenceThreshold))
	if err != nil {
		os.Exit(handler.HandleError(err))
	}

	repaired, report, err := m.Reconcile(rows)
	if err != nil {
		os.Exit(handler.HandleError(err))
	}

	out := os.Stdout
	if reconcileOutputFile != "" {
		f, err := os.Create(reconcileOutputFile)
		if err != nil {
			os.Exit(handler.HandleError(fmt.Errorf("failed to create output file: %w", err)))
		}
		defer f.Close()
		out = f
	}
	if err := ledger.WriteLedgerCSV(out, repaired); err != nil {
		os.Exit(handler.HandleError(err))
	}

	reportConfig, err := config.CreateReportConfig(reconcileReportFormat, verbose)
	if err != nil {
		os.Exit(handler.HandleError(err))
	}
	gen, err := reporter.NewReporter(reportConfig)
	if err != nil {
		os.Exit(handler.HandleError(err))
	}

	reportOut := os.Stderr
	if reconcileReportFile != "" {
		f, err := os.Create(reconcileReportFile)
		if err != nil {
			os.Exit(handler.HandleError(fmt.Errorf("failed to create report file: %w", err)))
		}
		defer f.Close()
		reportOut = f
	}
	if err := gen.WriteReconciliationReport(reportOut, report); err != nil {
		os.Exit(handler.HandleError(err))
	}

	return nil
}
