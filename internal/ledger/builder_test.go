package ledger

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"golang-ledger-engine/internal/models"
	"golang-ledger-engine/internal/parsers"

	"github.com/shopspring/decimal"
)

func createTestRecords() []*models.NormalizedTransaction {
	return []*models.NormalizedTransaction{
		{
			ID:          "T1",
			Date:        time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
			Amount:      decimal.NewFromFloat(-54.12),
			Description: "CITY UTILITIES",
			AccountName: "Bank of America - Bank - Checking",
			Category:    "Utilities",
			SourceFile:  "bank_of_america.csv",
		},
		{
			ID:          "T2",
			Date:        time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			Amount:      decimal.NewFromFloat(2400.00),
			Description: "ACME CORP PAYROLL",
			AccountName: "Bank of America - Bank - Checking",
			SourceFile:  "bank_of_america.csv",
		},
		{
			ID:          "T3",
			Date:        time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC),
			Amount:      decimal.NewFromFloat(-500.00),
			Description: "AMERICAN EXPRESS ACH PMT",
			AccountName: "Bank of America - Bank - Checking",
			Category:    "Credit Card Payments",
			SourceFile:  "bank_of_america.csv",
		},
	}
}

func TestNewBuilder(t *testing.T) {
	b, err := NewBuilder(nil, nil, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if b == nil {
		t.Fatal("Expected builder to be created")
	}

	// Invalid config is rejected
	bad := &Config{BalanceTolerance: models.BalanceTolerance, MaxWorkers: 0}
	if _, err := NewBuilder(nil, nil, bad); err == nil {
		t.Error("Expected an error for zero max workers")
	}
}

func TestBuildAll(t *testing.T) {
	b, err := NewBuilder(nil, nil, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if err := b.BuildAll(context.Background(), createTestRecords()); err != nil {
		t.Fatalf("BuildAll failed: %v", err)
	}
	b.Finalize()

	report := b.Report()
	if report.TotalRecords != 3 {
		t.Errorf("TotalRecords = %d, want 3", report.TotalRecords)
	}
	if report.EntriesBuilt != 3 {
		t.Errorf("EntriesBuilt = %d, want 3", report.EntriesBuilt)
	}
	if report.EntriesRejected != 0 {
		t.Errorf("EntriesRejected = %d, want 0", report.EntriesRejected)
	}

	entries := b.Entries()
	if len(entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(entries))
	}

	// Finalize sorts by date
	for i := 1; i < len(entries); i++ {
		if entries[i].Date.Before(entries[i-1].Date) {
			t.Errorf("Entries not sorted by date at index %d", i)
		}
	}

	// Every entry balances
	for _, entry := range entries {
		if !entry.IsBalanced(models.BalanceTolerance) {
			t.Errorf("Entry %s does not balance: %s", entry.ID, entry.Balance())
		}
	}
}

func TestBuildAllCountsKinds(t *testing.T) {
	b, _ := NewBuilder(nil, nil, nil)
	if err := b.BuildAll(context.Background(), createTestRecords()); err != nil {
		t.Fatalf("BuildAll failed: %v", err)
	}

	report := b.Report()
	if report.KindCounts[models.KindExpense] != 1 {
		t.Errorf("Expense count = %d, want 1", report.KindCounts[models.KindExpense])
	}
	if report.KindCounts[models.KindIncome] != 1 {
		t.Errorf("Income count = %d, want 1", report.KindCounts[models.KindIncome])
	}
	if report.KindCounts[models.KindCreditCardPayment] != 1 {
		t.Errorf("Credit card payment count = %d, want 1", report.KindCounts[models.KindCreditCardPayment])
	}
}

func TestBuildAllRecordsInvalidRecords(t *testing.T) {
	b, _ := NewBuilder(nil, nil, nil)

	recs := createTestRecords()
	recs = append(recs, &models.NormalizedTransaction{
		// Missing date and account name
		Description: "BROKEN",
		Amount:      decimal.NewFromFloat(-1.00),
	})

	if err := b.BuildAll(context.Background(), recs); err != nil {
		t.Fatalf("BuildAll failed: %v", err)
	}

	report := b.Report()
	if report.EntriesRejected != 1 {
		t.Errorf("EntriesRejected = %d, want 1", report.EntriesRejected)
	}
	if len(report.Errors) == 0 {
		t.Error("Expected the rejection to be recorded in the report errors")
	}
}

func TestBuildAllStructurallyUnreadable(t *testing.T) {
	b, _ := NewBuilder(nil, nil, nil)

	recs := []*models.NormalizedTransaction{
		{Description: "BROKEN ONE"},
		{Description: "BROKEN TWO"},
	}

	if err := b.BuildAll(context.Background(), recs); err == nil {
		t.Fatal("Expected an error when no record can be converted")
	}
}

func TestBuildDegradedTransfer(t *testing.T) {
	b, _ := NewBuilder(nil, nil, nil)

	rec := &models.NormalizedTransaction{
		ID:                  "T9",
		Date:                time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
		Amount:              decimal.NewFromFloat(-200.00),
		Description:         "Online Transfer",
		OriginalDescription: "ONLINE TRANSFER REF 55511",
		AccountName:         "Bank of America - Bank - Checking",
		SourceFile:          "bank_of_america.csv",
	}

	if err := b.BuildAll(context.Background(), []*models.NormalizedTransaction{rec}); err != nil {
		t.Fatalf("BuildAll failed: %v", err)
	}
	b.Finalize()

	report := b.Report()
	if report.DegradedTransfers != 1 {
		t.Errorf("DegradedTransfers = %d, want 1", report.DegradedTransfers)
	}
	if report.UnknownKind != 1 {
		t.Errorf("UnknownKind = %d, want 1", report.UnknownKind)
	}
	if report.EntriesBuilt != 1 {
		t.Errorf("EntriesBuilt = %d, want 1; degraded transfers are kept, not dropped", report.EntriesBuilt)
	}

	// The degraded entry still balances
	entry := b.Entries()[0]
	if !entry.IsBalanced(models.BalanceTolerance) {
		t.Errorf("Degraded entry does not balance: %s", entry.Balance())
	}
}

func TestAddAfterFinalize(t *testing.T) {
	b, _ := NewBuilder(nil, nil, nil)
	b.Finalize()

	if err := b.Add(createTestRecords()[0]); err == nil {
		t.Error("Expected an error when adding to a finalized ledger")
	}
}

func TestExportCSVRoundTrip(t *testing.T) {
	b, _ := NewBuilder(nil, nil, nil)
	if err := b.BuildAll(context.Background(), createTestRecords()); err != nil {
		t.Fatalf("BuildAll failed: %v", err)
	}
	b.Finalize()

	var buf bytes.Buffer
	if err := b.ExportCSV(&buf); err != nil {
		t.Fatalf("ExportCSV failed: %v", err)
	}

	rows, err := parsers.ReadLedgerCSV(&buf, "test")
	if err != nil {
		t.Fatalf("ReadLedgerCSV failed: %v", err)
	}
	if len(rows) != 6 {
		t.Fatalf("Expected 6 rows (2 per entry), got %d", len(rows))
	}

	// Rows re-aggregated by transaction ID sum to zero per entry
	sums := make(map[string]decimal.Decimal)
	for _, row := range rows {
		sums[row.TransactionID] = sums[row.TransactionID].Add(row.Amount)
	}
	if len(sums) != 3 {
		t.Fatalf("Expected 3 entry groups, got %d", len(sums))
	}
	for id, sum := range sums {
		if !sum.IsZero() {
			t.Errorf("Entry %s does not re-aggregate to zero: %s", id, sum)
		}
	}
}

func TestExportBeancount(t *testing.T) {
	b, _ := NewBuilder(nil, nil, nil)
	if err := b.BuildAll(context.Background(), createTestRecords()); err != nil {
		t.Fatalf("BuildAll failed: %v", err)
	}
	b.Finalize()

	var buf bytes.Buffer
	if err := b.ExportBeancount(&buf); err != nil {
		t.Fatalf("ExportBeancount failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, `2024-03-02 * "CITY UTILITIES"`) {
		t.Error("Beancount output missing the expense entry header")
	}
	if !strings.Contains(out, "Expenses:Utilities  54.12 USD") {
		t.Error("Beancount output missing the expense posting")
	}
}

func TestExportLedgerCLI(t *testing.T) {
	b, _ := NewBuilder(nil, nil, nil)
	if err := b.BuildAll(context.Background(), createTestRecords()); err != nil {
		t.Fatalf("BuildAll failed: %v", err)
	}
	b.Finalize()

	var buf bytes.Buffer
	if err := b.ExportLedgerCLI(&buf); err != nil {
		t.Fatalf("ExportLedgerCLI failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "2024/03/02 CITY UTILITIES") {
		t.Error("Ledger CLI output missing the expense entry header")
	}
	if !strings.Contains(out, "$-54.12") {
		t.Error("Ledger CLI output missing the own-side amount")
	}
}
