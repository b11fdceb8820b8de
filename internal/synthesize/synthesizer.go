// Package synthesize builds the balanced double-entry postings for a
// classified transaction.
//
// Every kind produces exactly two postings that sum to zero: one side is the
// record's own account, the other is derived from the kind (an expense or
// income category account, a resolved transfer counterparty, or a liability
// or investment account picked from keyword tables). Unclassifiable records
// fall back to sign-based Unknown buckets so the ledger always balances;
// downstream reporting must surface those buckets, never hide them.
package synthesize

import (
	"strings"

	"golang-ledger-engine/internal/accounts"
	"golang-ledger-engine/internal/models"
	apperrors "golang-ledger-engine/pkg/errors"

	"github.com/shopspring/decimal"
)

// Synthesizer converts (record, kind) pairs into balanced postings.
type Synthesizer struct {
	resolver *accounts.Resolver
}

// New creates a synthesizer backed by the given account resolver.
func New(resolver *accounts.Resolver) *Synthesizer {
	if resolver == nil {
		resolver = accounts.NewResolver()
	}
	return &Synthesizer{resolver: resolver}
}

// Synthesize returns the two postings for the record under the given kind.
// The returned error is a degradation notice, not a failure: when a transfer
// counterparty cannot be resolved the record is synthesized under unknown
// handling and the error reports why. Postings are always usable.
func (s *Synthesizer) Synthesize(rec *models.NormalizedTransaction, kind models.Kind) ([]models.Posting, error) {
	institution := s.resolver.ExtractInstitution(rec.AccountName, rec.SourceFile)

	switch kind {
	case models.KindExpense:
		category := rec.Category
		if strings.Contains(strings.ToLower(category), "credit card") {
			// Bill-pay wording overrides a card-payment classification;
			// the leftover category does not name an expense.
			category = ""
		}
		return s.expensePostings(rec, institution, categoryOr(category, "Uncategorized")), nil

	case models.KindIncome:
		return s.incomePostings(rec, institution, categoryOr(rec.Category, "Uncategorized")), nil

	case models.KindTransfer:
		postings, err := s.transferPostings(rec, institution)
		if err != nil {
			return s.unknownPostings(rec, institution), err
		}
		return postings, nil

	case models.KindLiabilityPayment:
		liability := s.liabilityAccount(rec, institution)
		checking := s.resolver.LedgerAccount(models.AccountChecking, institution)
		return pair(checking, rec.Amount, liability), nil

	case models.KindInvestmentContribution:
		investment := s.investmentAccount(rec, institution)
		checking := s.resolver.LedgerAccount(models.AccountChecking, institution)
		return pair(checking, rec.Amount, investment), nil

	case models.KindCreditCardPayment:
		card := s.resolver.LedgerAccount(models.AccountCreditCard, institution)
		checking := s.resolver.LedgerAccount(models.AccountChecking, institution)
		return pair(checking, rec.Amount, card), nil

	default:
		return s.unknownPostings(rec, institution), nil
	}
}

// pair returns the canonical two-posting shape: the record's own side with
// the feed amount, the derived side with its negation.
func pair(ownAccount string, amount decimal.Decimal, derivedAccount string) []models.Posting {
	return []models.Posting{
		{Account: ownAccount, Amount: amount},
		{Account: derivedAccount, Amount: amount.Neg()},
	}
}

func (s *Synthesizer) expensePostings(rec *models.NormalizedTransaction, institution, category string) []models.Posting {
	own := s.resolver.Resolve(rec.AccountName, institution)
	return pair(own, rec.Amount, "Expenses:"+category)
}

func (s *Synthesizer) incomePostings(rec *models.NormalizedTransaction, institution, category string) []models.Posting {
	own := s.resolver.Resolve(rec.AccountName, institution)
	return []models.Posting{
		{Account: "Income:" + category, Amount: rec.Amount.Neg()},
		{Account: own, Amount: rec.Amount},
	}
}

func (s *Synthesizer) transferPostings(rec *models.NormalizedTransaction, institution string) ([]models.Posting, error) {
	hint := rec.OriginalDescription
	if strings.TrimSpace(hint) == "" {
		hint = rec.Description
	}

	leg, ok := s.resolver.ParseTransferCounterparty(hint, rec.AccountName, institution)
	if !ok {
		return nil, apperrors.Newf(apperrors.CategoryClassification, apperrors.CodeUnresolvedTransfer,
			"cannot resolve transfer counterparty from %q", hint).
			WithContext("account", rec.AccountName).
			WithSuggestion("record synthesized under unknown handling")
	}

	source := s.resolver.Resolve(leg.SourceAccount, institution)
	target := s.resolver.Resolve(leg.TargetAccount, institution)
	amount := rec.Amount.Abs()

	return []models.Posting{
		{Account: source, Amount: amount.Neg()},
		{Account: target, Amount: amount},
	}, nil
}

// unknownPostings is the sign-based fallback: negative amounts behave like an
// expense into Expenses:Unknown, non-negative like income from Income:Unknown.
// This guarantees balance for unclassifiable input at the cost of an
// auditable Unknown bucket.
func (s *Synthesizer) unknownPostings(rec *models.NormalizedTransaction, institution string) []models.Posting {
	own := s.resolver.Resolve(rec.AccountName, institution)
	category := categoryOr(rec.Category, "Unknown")

	if rec.Amount.IsNegative() {
		return pair(own, rec.Amount, "Expenses:"+category)
	}
	return []models.Posting{
		{Account: "Income:" + category, Amount: rec.Amount.Neg()},
		{Account: own, Amount: rec.Amount},
	}
}

// liabilityAccount resolves the liability side of a liability payment from
// the category hint first (most reliable), then description keywords.
func (s *Synthesizer) liabilityAccount(rec *models.NormalizedTransaction, institution string) string {
	cat := strings.ToLower(rec.Category)
	desc := strings.ToLower(rec.Description + " " + rec.OriginalDescription)
	inst := accounts.CanonicalInstitution(institution)

	switch {
	case strings.Contains(cat, "mortgage"):
		return "Liabilities:Mortgage"
	case strings.Contains(cat, "student loan"):
		return "Liabilities:StudentLoans"
	case strings.Contains(cat, "auto loan"), strings.Contains(cat, "car loan"), strings.Contains(cat, "vehicle loan"):
		return "Liabilities:AutoLoan"
	case strings.Contains(cat, "heloc"):
		return "Liabilities:HELOC:" + inst
	case strings.Contains(desc, "ford credit"):
		return "Liabilities:AutoLoan"
	case strings.Contains(desc, "us bank"):
		return "Liabilities:Mortgage"
	case strings.Contains(desc, "student loan"):
		return "Liabilities:StudentLoans"
	case strings.Contains(desc, "mortgage"):
		return "Liabilities:Mortgage"
	case strings.Contains(desc, "auto loan"), strings.Contains(desc, "car loan"), strings.Contains(desc, "vehicle loan"):
		return "Liabilities:AutoLoan"
	case strings.Contains(desc, "heloc"):
		return "Liabilities:HELOC:" + inst
	case strings.Contains(cat, "loan"):
		return "Liabilities:Loans"
	default:
		return "Liabilities:StudentLoans"
	}
}

// investmentAccount resolves the asset side of an investment contribution.
// 529 plans are state-managed and carry no institution; IRA and 401k accounts
// are institution-qualified.
func (s *Synthesizer) investmentAccount(rec *models.NormalizedTransaction, institution string) string {
	cat := strings.ToLower(rec.Category)
	desc := strings.ToLower(rec.Description + " " + rec.OriginalDescription)
	inst := accounts.CanonicalInstitution(institution)

	switch {
	case strings.Contains(desc, "529"), strings.Contains(desc, "mn dir"), strings.Contains(cat, "529"):
		return "Assets:Investments:529"
	case strings.Contains(desc, "ira"), strings.Contains(cat, "ira"):
		return "Assets:Investments:IRA:Traditional:" + inst
	case strings.Contains(desc, "401"), strings.Contains(cat, "401"):
		return "Assets:Investments:401k:" + inst
	case strings.Contains(cat, "savings"), strings.Contains(desc, "contrib"):
		// Upstream often tags 529 contributions as plain savings.
		return "Assets:Investments:529"
	default:
		return "Assets:Investments:Other:" + inst
	}
}

func categoryOr(category, fallback string) string {
	category = strings.TrimSpace(category)
	if category == "" {
		return fallback
	}
	return category
}
