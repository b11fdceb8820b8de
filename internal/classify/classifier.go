// Package classify maps a normalized transaction to its economic Kind.
//
// Classification is deterministic and rule based: the classifier evaluates an
// ordered rule table and the first matching rule wins. The table order is a
// contract, not an implementation detail, because the keyword sets overlap.
// Notably, a "bill payment" marker always classifies as an expense even when
// the upstream category hint says "Credit Card Payments" - bill-pay
// facilities are frequently mis-tagged upstream.
package classify

import (
	"strings"

	"golang-ledger-engine/internal/models"

	"github.com/shopspring/decimal"
)

// Input carries the classification signals of one normalized transaction.
type Input struct {
	Description         string
	OriginalDescription string
	Amount              decimal.Decimal
	AccountKind         models.AccountKind
	CategoryHint        string
}

// text returns the lowercased description and original description.
func (in Input) text() (string, string) {
	return strings.ToLower(in.Description), strings.ToLower(in.OriginalDescription)
}

// containsAny reports whether either description contains any of the markers.
func (in Input) containsAny(markers []string) bool {
	desc, orig := in.text()
	for _, m := range markers {
		if strings.Contains(desc, m) || strings.Contains(orig, m) {
			return true
		}
	}
	return false
}

// Rule is one entry in the ordered classification table.
type Rule struct {
	Name    string
	Kind    models.Kind
	Applies func(Input) bool
}

// Classifier evaluates an immutable ordered rule table. It is safe for
// concurrent use; Classify is pure and total.
type Classifier struct {
	rules []Rule
}

// New creates a classifier from an ordered rule table. A nil table uses
// DefaultRules.
func New(rules []Rule) *Classifier {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Classifier{rules: rules}
}

// Classify returns the Kind of the transaction. It never fails; input that
// matches no rule returns KindUnknown.
func (c *Classifier) Classify(in Input) models.Kind {
	for _, rule := range c.rules {
		if rule.Applies(in) {
			return rule.Kind
		}
	}
	return models.KindUnknown
}

// Rules returns the rule table, for audit output.
func (c *Classifier) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	copy(out, c.rules)
	return out
}

// Keyword tables. These feed the default rule set; they are data, not
// behavior, so alternative tables can be injected for other feed families.
var (
	billPaymentMarkers = []string{"bill payment"}

	investmentKeywords = []string{
		"529", "ira", "401k", "401(k)", "contribution", "contrib",
		"mn dir", "direct ach", "investment contribution",
	}

	// US BANK is commonly a mortgage servicer; FORD CREDIT is an auto loan
	// servicer.
	liabilityKeywords = []string{
		"student loan", "mortgage", "heloc",
		"loan payment", "loan pay", "us bank", "ford credit",
		"auto loan", "car loan", "vehicle loan",
	}

	transferKeywords = []string{
		"transfer", "online transfer", "scheduled transfer",
		"ach transfer", "wire transfer",
	}

	creditCardMarkers = []string{"credit card"}

	transferCategories = map[string]bool{
		"transfers": true, "transfer": true,
	}

	creditCardPaymentCategories = map[string]bool{
		"credit card payments": true, "credit card payment": true, "credit cards": true,
	}

	liabilityCategories = map[string]bool{
		"mortgages": true, "mortgage": true,
		"loans": true, "loan": true,
		"student loan": true, "student loans": true,
	}

	investmentCategories = map[string]bool{
		"savings": true, "529": true, "529k": true,
		"investment": true, "investments": true,
	}
)

func categoryIn(in Input, table map[string]bool) bool {
	if in.CategoryHint == "" {
		return false
	}
	return table[strings.ToLower(in.CategoryHint)]
}

func isDepository(k models.AccountKind) bool {
	return k == models.AccountChecking || k == models.AccountSavings
}

// DefaultRules returns the ordered classification table. Order matters:
//
//  1. bill-payment marker (overrides any category hint)
//  2. category hint mapping
//  3. investment keyword scan
//  4. liability-servicer keyword scan
//  5. transfer keyword scan
//  6. account-kind and amount-sign fallbacks
func DefaultRules() []Rule {
	return []Rule{
		{
			Name: "bill_payment_override",
			Kind: models.KindExpense,
			Applies: func(in Input) bool {
				return in.containsAny(billPaymentMarkers)
			},
		},
		{
			Name: "category_transfer",
			Kind: models.KindTransfer,
			Applies: func(in Input) bool {
				return categoryIn(in, transferCategories)
			},
		},
		{
			Name: "category_credit_card_payment",
			Kind: models.KindCreditCardPayment,
			Applies: func(in Input) bool {
				return categoryIn(in, creditCardPaymentCategories)
			},
		},
		{
			Name: "category_liability_payment",
			Kind: models.KindLiabilityPayment,
			Applies: func(in Input) bool {
				return categoryIn(in, liabilityCategories)
			},
		},
		{
			Name: "category_investment_contribution",
			Kind: models.KindInvestmentContribution,
			Applies: func(in Input) bool {
				return categoryIn(in, investmentCategories)
			},
		},
		{
			Name: "keyword_investment",
			Kind: models.KindInvestmentContribution,
			Applies: func(in Input) bool {
				return in.containsAny(investmentKeywords)
			},
		},
		{
			Name: "keyword_liability",
			Kind: models.KindLiabilityPayment,
			Applies: func(in Input) bool {
				return in.containsAny(liabilityKeywords)
			},
		},
		{
			Name: "keyword_transfer",
			Kind: models.KindTransfer,
			Applies: func(in Input) bool {
				return in.containsAny(transferKeywords)
			},
		},
		{
			Name: "credit_card_spend",
			Kind: models.KindExpense,
			Applies: func(in Input) bool {
				return in.AccountKind == models.AccountCreditCard && in.Amount.IsNegative()
			},
		},
		{
			Name: "depository_inflow",
			Kind: models.KindIncome,
			Applies: func(in Input) bool {
				return isDepository(in.AccountKind) && in.Amount.IsPositive()
			},
		},
		{
			// Negative depository amount with a credit-card marker in the
			// text or category hint. Transfer keywords were consumed above.
			Name: "depository_outflow_credit_card",
			Kind: models.KindCreditCardPayment,
			Applies: func(in Input) bool {
				if !isDepository(in.AccountKind) || !in.Amount.IsNegative() {
					return false
				}
				if in.containsAny(creditCardMarkers) {
					return true
				}
				return strings.Contains(strings.ToLower(in.CategoryHint), "credit card")
			},
		},
		{
			Name: "depository_outflow",
			Kind: models.KindExpense,
			Applies: func(in Input) bool {
				return isDepository(in.AccountKind) && in.Amount.IsNegative()
			},
		},
	}
}
