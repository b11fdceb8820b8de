package ledger

import (
	"encoding/csv"
	"fmt"
	"io"

	"golang-ledger-engine/internal/models"
	apperrors "golang-ledger-engine/pkg/errors"
)

// Export targets are pure projections of the finalized entry list. They are
// append-only artifacts and are never read back for logic; the balance
// invariant is the integrity check, not a group key.

// csvHeader is the flat ledger row layout, one row per posting.
var csvHeader = []string{"date", "description", "account", "amount", "source_file", "transaction_id"}

// ExportCSV writes the flat ledger format: one row per posting, ISO-8601
// dates, amounts at two decimal places.
func (b *Builder) ExportCSV(w io.Writer) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(csvHeader); err != nil {
		return apperrors.Wrap(err, apperrors.CategoryFile, apperrors.CodeUnexpectedError,
			"failed to write ledger CSV header")
	}

	for _, row := range b.Rows() {
		record := []string{
			row.Date.Format("2006-01-02"),
			row.Description,
			row.Account,
			row.Amount.StringFixed(2),
			row.SourceFile,
			row.TransactionID,
		}
		if err := writer.Write(record); err != nil {
			return apperrors.Wrap(err, apperrors.CategoryFile, apperrors.CodeUnexpectedError,
				"failed to write ledger CSV row")
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteLedgerCSV writes rows in the flat ledger format. Used by the
// reconciliation pass, which re-exports a repaired snapshot.
func WriteLedgerCSV(w io.Writer, rows []models.LedgerRow) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(csvHeader); err != nil {
		return apperrors.Wrap(err, apperrors.CategoryFile, apperrors.CodeUnexpectedError,
			"failed to write ledger CSV header")
	}

	for _, row := range rows {
		record := []string{
			row.Date.Format("2006-01-02"),
			row.Description,
			row.Account,
			row.Amount.StringFixed(2),
			row.SourceFile,
			row.TransactionID,
		}
		if err := writer.Write(record); err != nil {
			return apperrors.Wrap(err, apperrors.CategoryFile, apperrors.CodeUnexpectedError,
				"failed to write ledger CSV row")
		}
	}

	writer.Flush()
	return writer.Error()
}

// ExportBeancount writes the entries in Beancount syntax.
func (b *Builder) ExportBeancount(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "; Beancount ledger generated from normalized transactions\n\n"); err != nil {
		return err
	}

	for _, entry := range b.Entries() {
		if _, err := fmt.Fprintf(w, "%s * %q\n", entry.Date.Format("2006-01-02"), entry.Description); err != nil {
			return err
		}
		for _, p := range entry.Postings {
			if _, err := fmt.Fprintf(w, "  %s  %s USD\n", p.Account, p.Amount.StringFixed(2)); err != nil {
				return err
			}
		}
		if src := entry.Metadata["source_file"]; src != "" {
			if _, err := fmt.Fprintf(w, "  ; source_file: %s\n", src); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}

	return nil
}

// ExportLedgerCLI writes the entries in Ledger CLI syntax.
func (b *Builder) ExportLedgerCLI(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "; Ledger CLI ledger generated from normalized transactions\n\n"); err != nil {
		return err
	}

	for _, entry := range b.Entries() {
		if _, err := fmt.Fprintf(w, "%s %s\n", entry.Date.Format("2006/01/02"), entry.Description); err != nil {
			return err
		}
		for _, p := range entry.Postings {
			if _, err := fmt.Fprintf(w, "    %s  $%s\n", p.Account, p.Amount.StringFixed(2)); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}

	return nil
}
