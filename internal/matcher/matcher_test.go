package matcher

import (
	"testing"
	"time"

	"golang-ledger-engine/internal/models"

	"github.com/shopspring/decimal"
)

func testDate(day int) time.Time {
	return time.Date(2024, 3, day, 0, 0, 0, 0, time.UTC)
}

func sourceRow(day int, amount float64, desc string) models.LedgerRow {
	return models.LedgerRow{
		Date:        testDate(day),
		Description: desc,
		Account:     "Assets:BankOfAmerica:Checking",
		Amount:      decimal.NewFromFloat(amount),
		SourceFile:  "bank_of_america.csv",
	}
}

func targetRow(day int, amount float64, card string) models.LedgerRow {
	return models.LedgerRow{
		Date:        testDate(day),
		Description: "ONLINE PAYMENT - THANK YOU",
		Account:     "Liabilities:CreditCards:" + card,
		Amount:      decimal.NewFromFloat(amount),
		SourceFile:  "american_express.csv",
	}
}

func TestNewGreedyMatcher(t *testing.T) {
	m, err := NewGreedyMatcher(nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if m == nil {
		t.Fatal("Expected matcher to be created")
	}

	bad := &Config{DateWindowDays: -1, ConfidenceThreshold: 0.6}
	if _, err := NewGreedyMatcher(bad); err == nil {
		t.Error("Expected an error for a negative date window")
	}
}

func TestConfigAccepts(t *testing.T) {
	config := DefaultConfig()

	// The threshold is inclusive
	if !config.Accepts(0.6) {
		t.Error("Confidence exactly at the threshold must be accepted")
	}
	if config.Accepts(0.59) {
		t.Error("Confidence below the threshold must be rejected")
	}
}

func TestScoreSignals(t *testing.T) {
	m, _ := NewGreedyMatcher(nil)

	tests := []struct {
		name   string
		source models.LedgerRow
		target models.LedgerRow
		want   float64
		wantOK bool
	}{
		{
			name:   "exact amount same date card named",
			source: sourceRow(1, -500.00, "AMERICAN EXPRESS ACH PMT"),
			target: targetRow(1, -500.00, "AmericanExpress"),
			// 0.4 amount + 0.3 date + 0.2 card + 0.1 bank source on one side only
			want:   0.9,
			wantOK: true,
		},
		{
			name:   "near amount within window",
			source: sourceRow(1, -500.75, "ACH PMT WEB"),
			target: targetRow(3, -500.00, "AmericanExpress"),
			// 0.2 amount + 0.2 date + 0.1 card named by the target account only
			want:   0.5,
			wantOK: true,
		},
		{
			name:   "amount outside tolerance rejects outright",
			source: sourceRow(1, -510.00, "AMERICAN EXPRESS ACH PMT"),
			target: targetRow(1, -500.00, "AmericanExpress"),
			wantOK: false,
		},
		{
			name:   "date outside window rejects outright",
			source: sourceRow(1, -500.00, "AMERICAN EXPRESS ACH PMT"),
			target: targetRow(10, -500.00, "AmericanExpress"),
			wantOK: false,
		},
		{
			name:   "payment wording on both sides",
			source: sourceRow(1, -500.00, "AMERICAN EXPRESS PAYMENT"),
			target: targetRow(1, -500.00, "AmericanExpress"),
			// 0.4 + 0.3 + 0.2 + 0.1 payment wording
			want:   1.0,
			wantOK: true,
		},
		{
			name:   "card named by the target account only",
			source: sourceRow(1, -500.00, "ACH PMT WEB"),
			target: targetRow(1, -500.00, "AmericanExpress"),
			// 0.4 + 0.3 + 0.1 one-sided card
			want:   0.8,
			wantOK: true,
		},
		{
			name:   "mismatched card names cancel the card signal",
			source: sourceRow(1, -500.00, "CHASE PAYMENT"),
			target: targetRow(1, -500.00, "AmericanExpress"),
			// 0.4 + 0.3 + 0.1 payment wording, no card weight
			want:   0.8,
			wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			confidence, _, ok := m.Score(tt.source, tt.target)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && confidence != tt.want {
				t.Errorf("confidence = %v, want %v", confidence, tt.want)
			}
		})
	}
}

func TestScoreBankSourcedSignal(t *testing.T) {
	m, _ := NewGreedyMatcher(nil)

	src := sourceRow(1, -500.00, "ACH PMT WEB")
	tgt := targetRow(1, -500.00, "AmericanExpress")
	tgt.SourceFile = "bank_export_amex.csv" // both sides now bank sourced

	confidence, reasons, ok := m.Score(src, tgt)
	if !ok {
		t.Fatal("Expected the pair to be scoreable")
	}
	if confidence != 0.9 {
		t.Errorf("confidence = %v, want 0.9 (0.4 amount + 0.3 date + 0.1 one-sided card + 0.1 provenance)", confidence)
	}
	found := false
	for _, reason := range reasons {
		if reason == "bank_sourced" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected bank_sourced in reasons, got %v", reasons)
	}
}

func TestFindMatches(t *testing.T) {
	m, _ := NewGreedyMatcher(nil)

	rows := []models.LedgerRow{
		sourceRow(1, -500.00, "AMERICAN EXPRESS ACH PMT"),
		targetRow(1, -500.00, "AmericanExpress"),
		sourceRow(15, -80.00, "GROCERY STORE"), // not a payment candidate
		{
			Date:        testDate(15),
			Description: "WHOLEFDS MKT",
			Account:     "Liabilities:CreditCards:AmericanExpress",
			Amount:      decimal.NewFromFloat(-42.00), // spend, not a payment
		},
	}

	matches := m.FindMatches(rows)
	if len(matches) != 1 {
		t.Fatalf("Expected 1 match, got %d", len(matches))
	}

	match := matches[0]
	if match.Confidence < 0.9 {
		t.Errorf("confidence = %v, want >= 0.9", match.Confidence)
	}
	if !match.Amount.Equal(decimal.NewFromFloat(500.00)) {
		t.Errorf("Amount = %s, want 500.00", match.Amount)
	}
}

func TestFindMatchesConsumesTargetOnce(t *testing.T) {
	m, _ := NewGreedyMatcher(nil)

	rows := []models.LedgerRow{
		sourceRow(1, -500.00, "AMERICAN EXPRESS ACH PMT"),
		sourceRow(1, -500.00, "AMERICAN EXPRESS ACH PMT"),
		targetRow(1, -500.00, "AmericanExpress"),
	}

	matches := m.FindMatches(rows)
	if len(matches) != 1 {
		t.Fatalf("Expected 1 match for a single target, got %d", len(matches))
	}
}

func TestFindMatchesOneSidedCardAtThreshold(t *testing.T) {
	m, _ := NewGreedyMatcher(nil)

	// Only the target account names the card. The one-sided card signal
	// carries the pair to exactly the default threshold:
	// 0.2 amount + 0.2 date + 0.1 card + 0.1 payment wording.
	rows := []models.LedgerRow{
		sourceRow(1, -500.75, "ONLINE PAYMENT WEB"),
		targetRow(3, -500.00, "AmericanExpress"),
	}

	matches := m.FindMatches(rows)
	if len(matches) != 1 {
		t.Fatalf("Expected 1 match at the threshold, got %d", len(matches))
	}
	if matches[0].Confidence != 0.6 {
		t.Errorf("confidence = %v, want 0.6", matches[0].Confidence)
	}
	found := false
	for _, reason := range matches[0].Reasons {
		if reason == "card_partial" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected card_partial in reasons, got %v", matches[0].Reasons)
	}
}

func TestFindMatchesBelowThreshold(t *testing.T) {
	config := DefaultConfig()
	config.ConfidenceThreshold = 0.8
	m, _ := NewGreedyMatcher(config)

	rows := []models.LedgerRow{
		// 0.2 amount + 0.2 date + 0.2 card = 0.6, below the raised threshold
		sourceRow(1, -500.75, "AMERICAN EXPRESS ACH PMT"),
		targetRow(3, -500.00, "AmericanExpress"),
	}

	if matches := m.FindMatches(rows); len(matches) != 0 {
		t.Fatalf("Expected no matches below the threshold, got %d", len(matches))
	}
}
