package parsers

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"golang-ledger-engine/internal/models"
	apperrors "golang-ledger-engine/pkg/errors"
)

// Flat ledger column layout, as written by the exporter.
var ledgerColumns = []string{"date", "description", "account", "amount", "source_file", "transaction_id"}

// LoadLedgerCSV reads a previously exported flat ledger file. The layout is
// fixed; reconciliation round-trips through this format, so unknown or
// reordered columns are a hard error rather than a per-row one.
func LoadLedgerCSV(path string) ([]models.LedgerRow, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.Wrap(err, apperrors.CategoryFile, apperrors.CodeFileNotFound,
				fmt.Sprintf("ledger file not found: %s", path)).
				WithSuggestion("run the build command first to produce a ledger")
		}
		return nil, apperrors.Wrap(err, apperrors.CategoryFile, apperrors.CodeFilePermission,
			fmt.Sprintf("cannot open ledger file: %s", path))
	}
	defer f.Close()

	return ReadLedgerCSV(f, path)
}

// ReadLedgerCSV reads flat ledger rows from a reader.
func ReadLedgerCSV(r io.Reader, name string) ([]models.LedgerRow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CategoryParse, apperrors.CodeInvalidFormat,
			fmt.Sprintf("cannot read ledger header of %s", name))
	}
	if err := checkLedgerHeader(header); err != nil {
		return nil, err
	}

	var rows []models.LedgerRow
	line := 1
	for {
		line++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CategoryParse, apperrors.CodeInvalidFormat,
				fmt.Sprintf("malformed ledger row at line %d of %s", line, name))
		}

		date, err := models.ParseTimeWithFormats(record[0])
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CategoryParse, apperrors.CodeInvalidDate,
				fmt.Sprintf("invalid date at line %d of %s", line, name))
		}
		amount, err := models.ParseDecimalFromString(record[3])
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CategoryParse, apperrors.CodeInvalidAmount,
				fmt.Sprintf("invalid amount at line %d of %s", line, name))
		}

		row := models.LedgerRow{
			Date:        date,
			Description: record[1],
			Account:     record[2],
			Amount:      amount,
		}
		if len(record) > 4 {
			row.SourceFile = record[4]
		}
		if len(record) > 5 {
			row.TransactionID = record[5]
		}
		rows = append(rows, row)
	}

	return rows, nil
}

func checkLedgerHeader(header []string) error {
	if len(header) < 4 {
		return apperrors.Newf(apperrors.CategoryParse, apperrors.CodeMissingColumn,
			"ledger header has %d columns, need at least 4", len(header))
	}
	for i, want := range ledgerColumns[:4] {
		got := strings.ToLower(strings.TrimSpace(header[i]))
		if got != want {
			return apperrors.Newf(apperrors.CategoryParse, apperrors.CodeInvalidFormat,
				"ledger header column %d is %q, want %q", i, got, want).
				WithSuggestion("the file does not look like an exported flat ledger")
		}
	}
	return nil
}
