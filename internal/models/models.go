// Package models defines the core data types of the ledger engine: normalized
// input transactions, postings, balanced ledger entries and the enumerations
// (Kind, AccountKind, Polarity) shared by the classification and synthesis
// stages.
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Kind is the classification result for a normalized transaction.
type Kind string

const (
	KindExpense                Kind = "expense"
	KindIncome                 Kind = "income"
	KindTransfer               Kind = "transfer"
	KindCreditCardPayment      Kind = "credit_card_payment"
	KindInvestmentContribution Kind = "investment_contribution"
	KindLiabilityPayment       Kind = "liability_payment"
	KindUnknown                Kind = "unknown"
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	return string(k)
}

// IsValid checks if the kind is one of the defined values.
func (k Kind) IsValid() bool {
	switch k {
	case KindExpense, KindIncome, KindTransfer, KindCreditCardPayment,
		KindInvestmentContribution, KindLiabilityPayment, KindUnknown:
		return true
	default:
		return false
	}
}

// AccountKind is the feed account type inferred from the account label.
type AccountKind string

const (
	AccountChecking   AccountKind = "checking"
	AccountSavings    AccountKind = "savings"
	AccountCD         AccountKind = "cd"
	AccountCreditCard AccountKind = "credit_card"
	AccountMortgage   AccountKind = "mortgage"
	AccountHELOC      AccountKind = "heloc"
	AccountBrokerage  AccountKind = "brokerage"
	AccountRetirement AccountKind = "retirement"
	AccountUnknown    AccountKind = "unknown"
)

// InferAccountKind infers the account kind from the free-text account label,
// falling back to the source file path. Checking is the default because bank
// feeds dominate the input and mislabeling a checking feed as unknown would
// disable the sign-based classification fallbacks.
func InferAccountKind(accountName, sourceFile string) AccountKind {
	name := strings.ToLower(accountName)
	file := strings.ToLower(sourceFile)

	switch {
	case strings.Contains(name, "credit card"), strings.Contains(name, "american express"):
		return AccountCreditCard
	case strings.Contains(name, "checking"):
		return AccountChecking
	case strings.Contains(name, "savings"):
		return AccountSavings
	case strings.Contains(name, "heloc"):
		return AccountHELOC
	case strings.Contains(name, "mortgage"):
		return AccountMortgage
	case strings.Contains(name, "brokerage"):
		return AccountBrokerage
	case strings.Contains(name, "401"), strings.Contains(name, "retirement"), strings.Contains(name, "roth"):
		return AccountRetirement
	case strings.Contains(name, "cd"):
		return AccountCD
	case strings.Contains(name, "bank"):
		return AccountChecking
	}

	switch {
	case strings.Contains(file, "american_express"), strings.Contains(file, "credit_card"):
		return AccountCreditCard
	case strings.Contains(file, "savings"):
		return AccountSavings
	case strings.Contains(file, "checking"), strings.Contains(file, "bank"):
		return AccountChecking
	}

	return AccountChecking
}

// Polarity is the sign convention of a ledger account category.
// Asset and expense accounts are debit-positive; liability, income and equity
// accounts are credit-positive. The polarity interprets a balance, it never
// changes stored posting amounts.
type Polarity int8

const (
	DebitPositive  Polarity = 1
	CreditPositive Polarity = -1
)

// PolarityOf returns the polarity implied by the top-level segment of a
// hierarchical ledger account name.
func PolarityOf(ledgerAccount string) Polarity {
	root := ledgerAccount
	if i := strings.IndexByte(ledgerAccount, ':'); i >= 0 {
		root = ledgerAccount[:i]
	}

	switch root {
	case "Assets", "Expenses":
		return DebitPositive
	case "Liabilities", "Income", "Equity":
		return CreditPositive
	default:
		return DebitPositive
	}
}

// Normalize applies the account polarity to a posting amount, yielding the
// account-relative balance contribution. This is the single sign-adjustment
// point; callers must not flip signs ad hoc.
func Normalize(amount decimal.Decimal, polarity Polarity) decimal.Decimal {
	if polarity == CreditPositive {
		return amount.Neg()
	}
	return amount
}

// NormalizedTransaction is one row of cleansed input produced by the upstream
// cleansing collaborator. It is immutable within the engine and consumed
// exactly once by the classifier.
type NormalizedTransaction struct {
	ID                  string          `json:"id" csv:"id"`
	Date                time.Time       `json:"date" csv:"date"`
	Amount              decimal.Decimal `json:"amount" csv:"amount"`
	Description         string          `json:"description" csv:"description"`
	OriginalDescription string          `json:"original_description,omitempty" csv:"original_description"`
	AccountName         string          `json:"account_name" csv:"account_name"`
	Category            string          `json:"category,omitempty" csv:"category"`
	SourceFile          string          `json:"source_file,omitempty" csv:"source_file"`
}

// Validate performs basic validation on the transaction.
func (t *NormalizedTransaction) Validate() error {
	if t.Date.IsZero() {
		return fmt.Errorf("transaction date cannot be zero")
	}

	if strings.TrimSpace(t.AccountName) == "" {
		return fmt.Errorf("transaction account name cannot be empty")
	}

	if strings.TrimSpace(t.Description) == "" && strings.TrimSpace(t.OriginalDescription) == "" {
		return fmt.Errorf("transaction description cannot be empty")
	}

	return nil
}

// String returns a string representation of the transaction.
func (t *NormalizedTransaction) String() string {
	return fmt.Sprintf("NormalizedTransaction{Date: %s, Amount: %s, Account: %s, Description: %s}",
		t.Date.Format("2006-01-02"), t.Amount.String(), t.AccountName, t.Description)
}

// Posting is one (ledger account, signed amount) line within a balanced entry.
type Posting struct {
	Account string          `json:"account"`
	Amount  decimal.Decimal `json:"amount"`
}

// BalanceTolerance is the maximum absolute posting sum allowed per entry.
// It admits legitimate sub-cent rounding only; classification errors must not
// hide behind it.
var BalanceTolerance = decimal.NewFromFloat(0.01)

// LedgerEntry is a dated, described group of postings summing to zero.
// Entries are never mutated after creation; reconciliation deletes and
// re-creates entries rather than patching them in place.
type LedgerEntry struct {
	ID          string            `json:"id"`
	Date        time.Time         `json:"date"`
	Description string            `json:"description"`
	Postings    []Posting         `json:"postings"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Balance returns the sum of all posting amounts.
func (e *LedgerEntry) Balance() decimal.Decimal {
	total := decimal.Zero
	for _, p := range e.Postings {
		total = total.Add(p.Amount)
	}
	return total
}

// IsBalanced reports whether the entry balances within the given tolerance.
// A zero tolerance falls back to BalanceTolerance.
func (e *LedgerEntry) IsBalanced(tolerance decimal.Decimal) bool {
	if tolerance.IsZero() {
		tolerance = BalanceTolerance
	}
	return e.Balance().Abs().LessThanOrEqual(tolerance)
}

// String returns a string representation of the entry.
func (e *LedgerEntry) String() string {
	return fmt.Sprintf("LedgerEntry{%s, %q, %d postings}",
		e.Date.Format("2006-01-02"), e.Description, len(e.Postings))
}

// LedgerRow is one exported flat-ledger row: a single posting with its entry
// context. Rows belonging to one entry share (date, description); the balance
// invariant, not a group key, is the integrity check.
type LedgerRow struct {
	Date          time.Time       `json:"date" csv:"date"`
	Description   string          `json:"description" csv:"description"`
	Account       string          `json:"account" csv:"account"`
	Amount        decimal.Decimal `json:"amount" csv:"amount"`
	SourceFile    string          `json:"source_file,omitempty" csv:"source_file"`
	TransactionID string          `json:"transaction_id,omitempty" csv:"transaction_id"`
}

// ParseDecimalFromString parses a decimal value from string, stripping common
// currency symbols and thousand separators.
func ParseDecimalFromString(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("amount string cannot be empty")
	}

	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal format '%s': %w", s, err)
	}

	return d, nil
}

// ParseTimeWithFormats attempts to parse a time from string using the common
// formats produced by upstream cleansing.
func ParseTimeWithFormats(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("time string cannot be empty")
	}

	formats := []string{
		"2006-01-02",
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"01/02/2006",
		"2006/01/02",
	}

	var lastErr error
	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse time '%s': %w", s, lastErr)
}

// CompareAmountsWithTolerance compares two decimal amounts with a tolerance.
func CompareAmountsWithTolerance(a, b, tolerance decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(tolerance)
}

// CompareDatesWithTolerance compares two dates within a day tolerance.
func CompareDatesWithTolerance(a, b time.Time, toleranceDays int) bool {
	diff := a.Sub(b)
	if diff < 0 {
		diff = -diff
	}
	return diff <= time.Duration(toleranceDays)*24*time.Hour
}

// DaysBetween returns the absolute whole-day difference between two dates.
func DaysBetween(a, b time.Time) int {
	diff := a.Sub(b)
	if diff < 0 {
		diff = -diff
	}
	return int(diff / (24 * time.Hour))
}
