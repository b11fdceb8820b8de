package reporter

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"golang-ledger-engine/internal/ledger"
	"golang-ledger-engine/internal/matcher"
	"golang-ledger-engine/internal/models"

	"github.com/shopspring/decimal"
)

func testBuildReport() ledger.BuildReport {
	return ledger.BuildReport{
		TotalRecords:      10,
		EntriesBuilt:      8,
		EntriesRejected:   2,
		UnknownKind:       1,
		DegradedTransfers: 1,
		KindCounts: map[models.Kind]int{
			models.KindExpense: 5,
			models.KindIncome:  2,
			models.KindUnknown: 1,
		},
		Errors: []string{"entry does not balance: example"},
	}
}

func TestNewReporter(t *testing.T) {
	r, err := NewReporter(nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if r == nil {
		t.Fatal("Expected reporter to be created")
	}

	if _, err := NewReporter(&Config{Format: "xml"}); err == nil {
		t.Error("Expected an error for an unsupported format")
	}
}

func TestWriteBuildReportConsole(t *testing.T) {
	r, _ := NewReporter(nil)

	var buf bytes.Buffer
	if err := r.WriteBuildReport(&buf, testBuildReport()); err != nil {
		t.Fatalf("WriteBuildReport failed: %v", err)
	}

	out := buf.String()
	// Totals are always present
	for _, want := range []string{
		"Records processed:  10",
		"Entries built:      8",
		"Entries rejected:   2",
		"Unknown kind:       1",
		"entry does not balance",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Console report missing %q:\n%s", want, out)
		}
	}
}

func TestWriteBuildReportJSON(t *testing.T) {
	r, _ := NewReporter(&Config{Format: FormatJSON})

	var buf bytes.Buffer
	if err := r.WriteBuildReport(&buf, testBuildReport()); err != nil {
		t.Fatalf("WriteBuildReport failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("JSON report is not valid JSON: %v", err)
	}
	if decoded["total_records"].(float64) != 10 {
		t.Errorf("total_records = %v, want 10", decoded["total_records"])
	}
}

func TestWriteBuildReportCSV(t *testing.T) {
	r, _ := NewReporter(&Config{Format: FormatCSV})

	var buf bytes.Buffer
	if err := r.WriteBuildReport(&buf, testBuildReport()); err != nil {
		t.Fatalf("WriteBuildReport failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "total_records,10") {
		t.Errorf("CSV report missing totals:\n%s", out)
	}
}

func TestWriteReconciliationReport(t *testing.T) {
	r, _ := NewReporter(&Config{Format: FormatConsole, Verbose: true})

	report := &matcher.ReconciliationReport{
		TotalRows:       6,
		MatchesFound:    1,
		MatchesRepaired: 1,
		RowsRemoved:     4,
		RowsAdded:       2,
		Details: []matcher.MatchDetail{
			{
				Date:       time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
				Amount:     decimal.NewFromFloat(500.00),
				Card:       "AmericanExpress",
				Confidence: 0.9,
				Reasons:    []string{"amount_exact", "date_same", "card_exact"},
			},
		},
	}

	var buf bytes.Buffer
	if err := r.WriteReconciliationReport(&buf, report); err != nil {
		t.Fatalf("WriteReconciliationReport failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"Matches repaired:  1", "Rows removed:      4", "AmericanExpress"} {
		if !strings.Contains(out, want) {
			t.Errorf("Report missing %q:\n%s", want, out)
		}
	}
}

func TestWriteReconciliationReportCSV(t *testing.T) {
	r, _ := NewReporter(&Config{Format: FormatCSV})

	report := &matcher.ReconciliationReport{
		Details: []matcher.MatchDetail{
			{
				Date:       time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
				Amount:     decimal.NewFromFloat(500.00),
				Card:       "AmericanExpress",
				Confidence: 0.9,
				Reasons:    []string{"amount_exact", "date_same"},
			},
		},
	}

	var buf bytes.Buffer
	if err := r.WriteReconciliationReport(&buf, report); err != nil {
		t.Fatalf("WriteReconciliationReport failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "2024-03-01,500.00,AmericanExpress,0.90,amount_exact;date_same") {
		t.Errorf("CSV report missing the match row:\n%s", out)
	}
}
