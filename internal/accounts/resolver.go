// Package accounts resolves free-text account labels into canonical
// hierarchical ledger account paths, and parses transfer counterparty hints
// out of original feed descriptions.
//
// Resolution is a total, idempotent function: the same label always yields
// the same path. The matcher depends on path equality, so nothing here may
// be time- or state-dependent.
package accounts

import (
	"regexp"
	"strings"

	"golang-ledger-engine/internal/models"
)

// Resolver maps account labels to ledger account paths.
type Resolver struct{}

// NewResolver creates an account resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// CanonicalInstitution normalizes an institution name for use as a path
// segment.
func CanonicalInstitution(institution string) string {
	s := strings.ReplaceAll(institution, " ", "")
	s = strings.ReplaceAll(s, "_", "")
	if s == "" {
		return "Unknown"
	}
	return s
}

// ExtractInstitution extracts the institution name from the account label,
// falling back to the source file path.
func (r *Resolver) ExtractInstitution(accountName, sourceFile string) string {
	switch {
	case strings.Contains(accountName, "Bank of America"):
		return "BankOfAmerica"
	case strings.Contains(accountName, "American Express"):
		return "AmericanExpress"
	case strings.Contains(accountName, "Chase"):
		return "Chase"
	}

	file := strings.ToLower(sourceFile)
	switch {
	case strings.Contains(file, "bank_of_america"), strings.Contains(file, "boa"):
		return "BankOfAmerica"
	case strings.Contains(file, "american_express"):
		return "AmericanExpress"
	case strings.Contains(file, "chase"):
		return "Chase"
	}

	return "Unknown"
}

// LedgerAccount maps an account label and kind to a hierarchical ledger
// account path.
func (r *Resolver) LedgerAccount(kind models.AccountKind, institution string) string {
	inst := CanonicalInstitution(institution)

	switch kind {
	case models.AccountChecking:
		return "Assets:" + inst + ":Checking"
	case models.AccountSavings:
		return "Assets:" + inst + ":Savings"
	case models.AccountCD:
		return "Assets:" + inst + ":CDs"
	case models.AccountCreditCard:
		return "Liabilities:CreditCards:" + inst
	case models.AccountMortgage:
		return "Liabilities:Mortgage:" + inst
	case models.AccountHELOC:
		return "Liabilities:HELOC:" + inst
	case models.AccountBrokerage:
		return "Assets:Investments:Brokerage:" + inst
	case models.AccountRetirement:
		return "Assets:Investments:Retirement:" + inst
	default:
		return "Assets:" + inst + ":" + string(kind)
	}
}

// Resolve infers the account kind from the label and maps it to a ledger
// account path in one step.
func (r *Resolver) Resolve(accountName, institution string) string {
	kind := models.InferAccountKind(accountName, "")
	return r.LedgerAccount(kind, institution)
}

// TransferLeg identifies the direction a parsed counterparty plays in a
// transfer.
type TransferLeg struct {
	SourceAccount string
	TargetAccount string
}

var (
	fromPattern = regexp.MustCompile(`\bfrom\b`)
	toPattern   = regexp.MustCompile(`\bto\b`)
)

// ParseTransferCounterparty extracts the source and target account labels of
// a transfer from its original description. "transfer from CHK 0129" makes
// the record's own account the target; "transfer to SAV 1234" makes it the
// source. Confirmation-number suffixes are stripped, and short account
// identifiers (CHK/SAV/CD plus digits) are expanded to institution-qualified
// labels.
//
// Returns ok=false when no from/to pattern is present; the caller degrades to
// unknown-kind handling rather than dropping the record.
func (r *Resolver) ParseTransferCounterparty(originalDescription, accountName, institution string) (TransferLeg, bool) {
	desc := strings.ToLower(originalDescription)
	if strings.TrimSpace(desc) == "" {
		return TransferLeg{}, false
	}

	if loc := fromPattern.FindStringIndex(desc); loc != nil {
		counterparty := cleanCounterparty(desc[loc[1]:])
		if counterparty == "" {
			return TransferLeg{}, false
		}
		return TransferLeg{
			SourceAccount: r.expandIdentifier(counterparty, institution),
			TargetAccount: accountName,
		}, true
	}

	if loc := toPattern.FindStringIndex(desc); loc != nil {
		counterparty := cleanCounterparty(desc[loc[1]:])
		if counterparty == "" {
			return TransferLeg{}, false
		}
		return TransferLeg{
			SourceAccount: accountName,
			TargetAccount: r.expandIdentifier(counterparty, institution),
		}, true
	}

	return TransferLeg{}, false
}

// cleanCounterparty strips confirmation-number suffixes and whitespace from a
// parsed counterparty fragment.
func cleanCounterparty(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "confirmation"); i >= 0 {
		s = s[:i]
	}
	if i := strings.Index(s, "conf#"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// identifierTypes maps feed account abbreviations to account types.
var identifierTypes = []struct {
	abbrev string
	kind   models.AccountKind
}{
	{"chk", models.AccountChecking},
	{"checking", models.AccountChecking},
	{"sav", models.AccountSavings},
	{"savings", models.AccountSavings},
	{"cd", models.AccountCD},
	{"credit", models.AccountCreditCard},
	{"cc", models.AccountCreditCard},
}

// expandIdentifier maps a short account identifier like "chk 0129" to an
// institution-qualified account label. Longer fragments are assumed to be
// full account labels already and pass through unchanged.
func (r *Resolver) expandIdentifier(identifier, institution string) string {
	if len(strings.Fields(identifier)) > 3 {
		return identifier
	}

	lower := strings.ToLower(identifier)
	for _, it := range identifierTypes {
		if !strings.Contains(lower, it.abbrev) {
			continue
		}
		switch it.kind {
		case models.AccountSavings:
			// Feeds label the common savings product "Regular Savings".
			return institution + " - Bank - Regular Savings"
		case models.AccountChecking:
			return institution + " - Bank - Checking"
		case models.AccountCD:
			return institution + " - Bank - CD"
		case models.AccountCreditCard:
			return institution + " - Credit Card"
		}
	}

	return identifier
}
