package parsers

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestNewRecordParser(t *testing.T) {
	p, err := NewRecordParser(nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if p == nil {
		t.Fatal("Expected parser to be created")
	}

	bad := &RecordParserConfig{Delimiter: ',', ColumnAliases: map[string][]string{}}
	if _, err := NewRecordParser(bad); err == nil {
		t.Error("Expected an error for missing required column aliases")
	}
}

func TestParse(t *testing.T) {
	input := `date,amount,description,original_description,account_name,category
2024-03-01,-54.12,CITY UTILITIES,,Bank of America - Bank - Checking,Utilities
2024-03-02,2400.00,ACME CORP PAYROLL,,Bank of America - Bank - Checking,
`

	p, _ := NewRecordParser(nil)
	records, stats, err := p.Parse(strings.NewReader(input), "test.csv")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if stats.TotalRows != 2 || stats.ParsedRows != 2 || stats.FailedRows != 0 {
		t.Fatalf("stats = %+v, want 2 rows parsed cleanly", stats)
	}

	rec := records[0]
	if rec.Date.Format("2006-01-02") != "2024-03-01" {
		t.Errorf("Date = %s", rec.Date)
	}
	if !rec.Amount.Equal(decimal.NewFromFloat(-54.12)) {
		t.Errorf("Amount = %s", rec.Amount)
	}
	if rec.AccountName != "Bank of America - Bank - Checking" {
		t.Errorf("AccountName = %q", rec.AccountName)
	}
	if rec.SourceFile != "test.csv" {
		t.Errorf("SourceFile = %q, want the reader label", rec.SourceFile)
	}
}

func TestParseHeaderAliases(t *testing.T) {
	input := `transaction_date,value,memo,account
2024-03-01,-10.00,COFFEE,My Checking
`

	p, _ := NewRecordParser(nil)
	records, _, err := p.Parse(strings.NewReader(input), "aliased.csv")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}
	if records[0].Description != "COFFEE" {
		t.Errorf("Description = %q", records[0].Description)
	}
}

func TestParseCollectsRowErrors(t *testing.T) {
	input := `date,amount,description,account_name
2024-03-01,-54.12,CITY UTILITIES,Checking
not-a-date,-10.00,BROKEN ROW,Checking
2024-03-03,abc,ALSO BROKEN,Checking
2024-03-04,-20.00,FINE,Checking
`

	p, _ := NewRecordParser(nil)
	records, stats, err := p.Parse(strings.NewReader(input), "mixed.csv")
	if err != nil {
		t.Fatalf("Parse must not fail while some rows are readable: %v", err)
	}

	if len(records) != 2 {
		t.Errorf("Expected 2 parsed records, got %d", len(records))
	}
	if stats.FailedRows != 2 {
		t.Errorf("FailedRows = %d, want 2", stats.FailedRows)
	}
	if len(stats.Errors) != 2 {
		t.Errorf("Expected 2 error examples, got %d", len(stats.Errors))
	}
}

func TestParseAbortsWhenNothingReadable(t *testing.T) {
	input := `date,amount,description,account_name
garbage,garbage,BROKEN,Checking
more-garbage,x,BROKEN,Checking
`

	p, _ := NewRecordParser(nil)
	_, _, err := p.Parse(strings.NewReader(input), "unreadable.csv")
	if err == nil {
		t.Fatal("Expected an error when every row fails")
	}
}

func TestParseMissingRequiredColumn(t *testing.T) {
	input := `date,description,account_name
2024-03-01,NO AMOUNT COLUMN,Checking
`

	p, _ := NewRecordParser(nil)
	_, _, err := p.Parse(strings.NewReader(input), "missing.csv")
	if err == nil {
		t.Fatal("Expected an error for a missing amount column")
	}
}

func TestReadLedgerCSV(t *testing.T) {
	input := `date,description,account,amount,source_file,transaction_id
2024-03-01,AMERICAN EXPRESS ACH PMT,Assets:BankOfAmerica:Checking,-500.00,bank.csv,T1
2024-03-01,AMERICAN EXPRESS ACH PMT,Liabilities:CreditCards:AmericanExpress,500.00,bank.csv,T1
`

	rows, err := ReadLedgerCSV(strings.NewReader(input), "ledger.csv")
	if err != nil {
		t.Fatalf("ReadLedgerCSV failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}
	if rows[0].Account != "Assets:BankOfAmerica:Checking" {
		t.Errorf("Account = %q", rows[0].Account)
	}
	if rows[1].TransactionID != "T1" {
		t.Errorf("TransactionID = %q", rows[1].TransactionID)
	}
	if !rows[0].Amount.Add(rows[1].Amount).IsZero() {
		t.Error("Entry rows do not sum to zero")
	}
}

func TestReadLedgerCSVRejectsWrongHeader(t *testing.T) {
	input := `foo,bar,baz,qux
1,2,3,4
`

	if _, err := ReadLedgerCSV(strings.NewReader(input), "wrong.csv"); err == nil {
		t.Fatal("Expected an error for a non-ledger header")
	}
}
