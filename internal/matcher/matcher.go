package matcher

import (
	"math"
	"strings"

	"golang-ledger-engine/internal/models"
	apperrors "golang-ledger-engine/pkg/errors"
	"golang-ledger-engine/pkg/logger"

	"github.com/shopspring/decimal"
)

// Match pairs a payment-out row from a depository feed with the payment-in
// row of the credit-card feed it settles.
type Match struct {
	Source     models.LedgerRow `json:"source"`
	Target     models.LedgerRow `json:"target"`
	Amount     decimal.Decimal  `json:"amount"`
	Confidence float64          `json:"confidence"`
	Reasons    []string         `json:"reasons"`
}

// PaymentMatcher pairs the two recorded halves of cross-account payments and
// repairs the ledger accordingly.
type PaymentMatcher interface {
	FindMatches(rows []models.LedgerRow) []Match
	Reconcile(rows []models.LedgerRow) ([]models.LedgerRow, *ReconciliationReport, error)
}

// GreedyMatcher is the default PaymentMatcher. Per source row it accepts the
// first candidate clearing the confidence threshold.
type GreedyMatcher struct {
	config *Config
	log    logger.Logger
}

// NewGreedyMatcher creates a matcher with the given configuration. A nil
// configuration uses defaults.
func NewGreedyMatcher(config *Config) (*GreedyMatcher, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CategoryConfiguration, apperrors.CodeInvalidConfig,
			"invalid matcher configuration")
	}
	return &GreedyMatcher{
		config: config,
		log:    logger.WithComponent("payment_matcher"),
	}, nil
}

// Payment marker phrases. Candidate rows must carry one of these in their
// description; everything else never enters scoring.
var (
	sourceMarkers = []string{"AMERICAN EXPRESS", "ACH PMT", "PAYMENT"}
	targetMarkers = []string{"ONLINE PAYMENT", "PAYMENT - THANK YOU"}
)

const creditCardPrefix = "Liabilities:CreditCards:"

// isPaymentSource reports whether a row looks like a payment leaving a
// depository account.
func isPaymentSource(row models.LedgerRow) bool {
	if !strings.HasPrefix(row.Account, "Assets:") || !row.Amount.IsNegative() {
		return false
	}
	return containsAnyFold(row.Description, sourceMarkers)
}

// isPaymentTarget reports whether a row looks like a payment arriving on a
// credit-card account.
func isPaymentTarget(row models.LedgerRow) bool {
	if !strings.HasPrefix(row.Account, creditCardPrefix) || !row.Amount.IsNegative() {
		return false
	}
	return containsAnyFold(row.Description, targetMarkers)
}

func containsAnyFold(s string, markers []string) bool {
	upper := strings.ToUpper(s)
	for _, m := range markers {
		if strings.Contains(upper, m) {
			return true
		}
	}
	return false
}

// FindMatches scans the rows for payment candidates and greedily pairs them.
// Each target row is consumed at most once.
func (m *GreedyMatcher) FindMatches(rows []models.LedgerRow) []Match {
	var sources, targets []models.LedgerRow
	for _, row := range rows {
		switch {
		case isPaymentSource(row):
			sources = append(sources, row)
		case isPaymentTarget(row):
			targets = append(targets, row)
		}
	}

	m.log.WithFields(logger.Fields{
		"sources": len(sources),
		"targets": len(targets),
	}).Debug("Collected payment candidates")

	var matches []Match
	used := make([]bool, len(targets))

	for _, src := range sources {
		for i, tgt := range targets {
			if used[i] {
				continue
			}
			confidence, reasons, ok := m.Score(src, tgt)
			if !ok || !m.config.Accepts(confidence) {
				continue
			}

			used[i] = true
			matches = append(matches, Match{
				Source:     src,
				Target:     tgt,
				Amount:     src.Amount.Abs(),
				Confidence: confidence,
				Reasons:    reasons,
			})

			m.log.WithFields(logger.Fields{
				"date":       src.Date.Format("2006-01-02"),
				"amount":     src.Amount.Abs().StringFixed(2),
				"card":       CardFromAccount(tgt.Account),
				"confidence": confidence,
				"reasons":    strings.Join(reasons, ","),
			}).Info("Matched cross-account payment")
			break
		}
	}

	return matches
}

// Score computes the additive confidence for one candidate pair. Amount and
// date are gating signals: a pair outside the amount tolerance or the date
// window is rejected outright (ok=false) no matter what else agrees.
func (m *GreedyMatcher) Score(src, tgt models.LedgerRow) (float64, []string, bool) {
	confidence := 0.0
	var reasons []string

	diff := src.Amount.Abs().Sub(tgt.Amount.Abs()).Abs()
	switch {
	case diff.LessThan(decimal.NewFromFloat(0.01)):
		confidence += weightAmountExact
		reasons = append(reasons, "amount_exact")
	case diff.LessThanOrEqual(m.config.AmountNearTolerance):
		confidence += weightAmountNear
		reasons = append(reasons, "amount_near")
	default:
		return 0, nil, false
	}

	days := models.DaysBetween(src.Date, tgt.Date)
	switch {
	case days == 0:
		confidence += weightDateSame
		reasons = append(reasons, "date_same")
	case days <= m.config.DateWindowDays:
		confidence += weightDateWindow
		reasons = append(reasons, "date_window")
	default:
		return 0, nil, false
	}

	descCard := CardFromDescription(src.Description)
	acctCard := CardFromAccount(tgt.Account)
	switch {
	case descCard != "" && acctCard != "" && descCard == acctCard:
		confidence += weightCardExact
		reasons = append(reasons, "card_exact")
	case (descCard != "") != (acctCard != ""):
		// One side identifies a card and nothing contradicts it.
		confidence += weightCardPartial
		reasons = append(reasons, "card_partial")
	}

	if isBankSourced(src.SourceFile) && isBankSourced(tgt.SourceFile) {
		confidence += weightBankSourced
		reasons = append(reasons, "bank_sourced")
	}

	if containsFold(src.Description, "payment") && containsFold(tgt.Description, "payment") {
		confidence += weightPaymentDescs
		reasons = append(reasons, "payment_descs")
	}

	// Round to the weight granularity so threshold comparisons are stable.
	confidence = math.Round(confidence*100) / 100

	return confidence, reasons, true
}

// CardFromDescription extracts a canonical card issuer name mentioned in a
// payment description. Empty when no known issuer is named.
func CardFromDescription(description string) string {
	lower := strings.ToLower(description)
	switch {
	case strings.Contains(lower, "american express"), strings.Contains(lower, "amex"):
		return "AmericanExpress"
	case strings.Contains(lower, "bank of america"):
		return "BankOfAmerica"
	case strings.Contains(lower, "chase"):
		return "Chase"
	default:
		return ""
	}
}

// CardFromAccount returns the issuer segment of a credit-card ledger account.
func CardFromAccount(account string) string {
	return strings.TrimPrefix(account, creditCardPrefix)
}

func isBankSourced(sourceFile string) bool {
	return strings.Contains(strings.ToLower(sourceFile), "bank")
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
