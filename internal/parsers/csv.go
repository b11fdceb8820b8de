// Package parsers reads normalized transaction CSV files and previously
// exported flat ledger files.
//
// Input files come from an upstream cleansing step, so parsing is lenient on
// layout (header aliases, optional columns) but strict on values: a row with
// an unparseable date or amount is a per-row error, collected and reported,
// and only a file where every row fails aborts the run.
package parsers

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"golang-ledger-engine/internal/models"
	apperrors "golang-ledger-engine/pkg/errors"
	"golang-ledger-engine/pkg/logger"
)

// RecordParserConfig holds configuration for parsing normalized transaction
// files.
type RecordParserConfig struct {
	// Delimiter is the CSV field separator.
	Delimiter rune `json:"delimiter"`

	// HasHeader indicates whether the first row is a header.
	HasHeader bool `json:"has_header"`

	// ColumnAliases maps canonical column names to accepted header spellings.
	ColumnAliases map[string][]string `json:"column_aliases"`
}

// Canonical column names.
const (
	colID                  = "id"
	colDate                = "date"
	colAmount              = "amount"
	colDescription         = "description"
	colOriginalDescription = "original_description"
	colAccountName         = "account_name"
	colCategory            = "category"
	colSourceFile          = "source_file"
)

// DefaultRecordParserConfig returns the default parser configuration.
func DefaultRecordParserConfig() *RecordParserConfig {
	return &RecordParserConfig{
		Delimiter: ',',
		HasHeader: true,
		ColumnAliases: map[string][]string{
			colID:                  {"id", "transaction_id", "txn_id"},
			colDate:                {"date", "transaction_date", "posted_date"},
			colAmount:              {"amount", "transaction_amount", "value"},
			colDescription:         {"description", "desc", "memo"},
			colOriginalDescription: {"original_description", "raw_description", "original_desc"},
			colAccountName:         {"account_name", "account", "account_label"},
			colCategory:            {"category", "category_hint"},
			colSourceFile:          {"source_file", "source", "file"},
		},
	}
}

// Validate checks if the parser configuration is valid.
func (c *RecordParserConfig) Validate() error {
	if c.Delimiter == 0 {
		return fmt.Errorf("delimiter cannot be empty")
	}
	for _, required := range []string{colDate, colAmount, colDescription, colAccountName} {
		if len(c.ColumnAliases[required]) == 0 {
			return fmt.Errorf("column aliases missing required column: %s", required)
		}
	}
	return nil
}

// ParseStats summarizes one file parse.
type ParseStats struct {
	TotalRows  int      `json:"total_rows"`
	ParsedRows int      `json:"parsed_rows"`
	FailedRows int      `json:"failed_rows"`
	Errors     []string `json:"errors,omitempty"`
}

// RecordParser parses normalized transaction CSV files.
type RecordParser struct {
	config *RecordParserConfig
	log    logger.Logger
}

// NewRecordParser creates a parser. A nil configuration uses defaults.
func NewRecordParser(config *RecordParserConfig) (*RecordParser, error) {
	if config == nil {
		config = DefaultRecordParserConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CategoryConfiguration, apperrors.CodeInvalidConfig,
			"invalid parser configuration")
	}
	return &RecordParser{
		config: config,
		log:    logger.WithComponent("record_parser"),
	}, nil
}

// ParseFile reads a normalized transaction file from disk.
func (p *RecordParser) ParseFile(path string) ([]*models.NormalizedTransaction, *ParseStats, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, apperrors.Wrap(err, apperrors.CategoryFile, apperrors.CodeFileNotFound,
				fmt.Sprintf("transaction file not found: %s", path)).
				WithSuggestion("check the file path")
		}
		return nil, nil, apperrors.Wrap(err, apperrors.CategoryFile, apperrors.CodeFilePermission,
			fmt.Sprintf("cannot open transaction file: %s", path))
	}
	defer f.Close()

	return p.Parse(f, path)
}

// Parse reads normalized transactions from a reader. sourceFile is the label
// recorded on rows that do not carry their own.
func (p *RecordParser) Parse(r io.Reader, sourceFile string) ([]*models.NormalizedTransaction, *ParseStats, error) {
	reader := csv.NewReader(r)
	reader.Comma = p.config.Delimiter
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	stats := &ParseStats{}
	summary := apperrors.NewBatchSummary(5)

	var columns map[string]int
	if p.config.HasHeader {
		header, err := reader.Read()
		if err != nil {
			return nil, nil, apperrors.Wrap(err, apperrors.CategoryParse, apperrors.CodeInvalidFormat,
				fmt.Sprintf("cannot read header of %s", sourceFile))
		}
		columns, err = p.mapColumns(header)
		if err != nil {
			return nil, nil, err
		}
	} else {
		columns = p.positionalColumns()
	}

	var records []*models.NormalizedTransaction
	line := 1
	for {
		line++
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			stats.TotalRows++
			summary.Record(fmt.Errorf("line %d: %w", line, err))
			continue
		}

		stats.TotalRows++
		rec, err := p.parseRow(row, columns, sourceFile)
		if err != nil {
			summary.Record(fmt.Errorf("line %d: %w", line, err))
			continue
		}
		summary.Record(nil)
		records = append(records, rec)
	}

	stats.ParsedRows = len(records)
	stats.FailedRows = summary.Failed
	stats.Errors = summary.Examples

	if stats.TotalRows > 0 && stats.ParsedRows == 0 {
		return nil, stats, apperrors.Newf(apperrors.CategoryParse, apperrors.CodeInvalidFormat,
			"no row in %s could be parsed (%d rows)", sourceFile, stats.TotalRows).
			WithSuggestion("check the column layout and delimiter")
	}

	if stats.FailedRows > 0 {
		p.log.WithFields(logger.Fields{
			"file":   sourceFile,
			"parsed": stats.ParsedRows,
			"failed": stats.FailedRows,
		}).Warn("Some rows could not be parsed")
	}

	return records, stats, nil
}

// mapColumns resolves the header row against the configured aliases.
func (p *RecordParser) mapColumns(header []string) (map[string]int, error) {
	columns := make(map[string]int)
	for i, cell := range header {
		name := strings.ToLower(strings.TrimSpace(cell))
		for canonical, aliases := range p.config.ColumnAliases {
			if _, mapped := columns[canonical]; mapped {
				continue
			}
			for _, alias := range aliases {
				if name == alias {
					columns[canonical] = i
					break
				}
			}
		}
	}

	for _, required := range []string{colDate, colAmount, colDescription, colAccountName} {
		if _, ok := columns[required]; !ok {
			return nil, apperrors.Newf(apperrors.CategoryParse, apperrors.CodeMissingColumn,
				"required column not found in header: %s", required).
				WithSuggestion("check the column aliases configuration")
		}
	}

	return columns, nil
}

// positionalColumns is the fixed layout for headerless files.
func (p *RecordParser) positionalColumns() map[string]int {
	return map[string]int{
		colDate:        0,
		colAmount:      1,
		colDescription: 2,
		colAccountName: 3,
		colCategory:    4,
	}
}

func (p *RecordParser) parseRow(row []string, columns map[string]int, sourceFile string) (*models.NormalizedTransaction, error) {
	cell := func(name string) string {
		i, ok := columns[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	date, err := models.ParseTimeWithFormats(cell(colDate))
	if err != nil {
		return nil, fmt.Errorf("invalid date: %w", err)
	}

	amount, err := models.ParseDecimalFromString(cell(colAmount))
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}

	rec := &models.NormalizedTransaction{
		ID:                  cell(colID),
		Date:                date,
		Amount:              amount,
		Description:         cell(colDescription),
		OriginalDescription: cell(colOriginalDescription),
		AccountName:         cell(colAccountName),
		Category:            cell(colCategory),
		SourceFile:          cell(colSourceFile),
	}
	if rec.SourceFile == "" {
		rec.SourceFile = sourceFile
	}

	if err := rec.Validate(); err != nil {
		return nil, err
	}

	return rec, nil
}
