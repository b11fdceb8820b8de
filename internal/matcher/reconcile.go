package matcher

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"golang-ledger-engine/internal/models"
	apperrors "golang-ledger-engine/pkg/errors"
	"golang-ledger-engine/pkg/logger"

	"github.com/shopspring/decimal"
)

// MatchDetail is the per-match reconciliation record kept for reporting.
type MatchDetail struct {
	Date       time.Time       `json:"date"`
	Amount     decimal.Decimal `json:"amount"`
	Card       string          `json:"card"`
	Confidence float64         `json:"confidence"`
	Reasons    []string        `json:"reasons"`
}

// ReconciliationReport summarizes one reconciliation pass.
type ReconciliationReport struct {
	TotalRows        int           `json:"total_rows"`
	MatchesFound     int           `json:"matches_found"`
	MatchesRepaired  int           `json:"matches_repaired"`
	RowsRemoved      int           `json:"rows_removed"`
	RowsAdded        int           `json:"rows_added"`
	UnmatchedSources int           `json:"unmatched_sources"`
	Details          []MatchDetail `json:"details,omitempty"`
	Errors           []string      `json:"errors,omitempty"`
}

// Reconcile matches cross-account payments and repairs the ledger. All
// lookups run against the frozen input snapshot; the repaired ledger is built
// in one pass at the end, so a partially locatable match never leaves the
// ledger half-repaired.
//
// Each repaired match removes four rows, the two halves of the two wrong
// entries, and adds one corrected two-row entry: the depository account paying
// out and the matched card receiving the payment.
func (m *GreedyMatcher) Reconcile(rows []models.LedgerRow) ([]models.LedgerRow, *ReconciliationReport, error) {
	report := &ReconciliationReport{TotalRows: len(rows)}

	matches := m.FindMatches(rows)
	report.MatchesFound = len(matches)
	report.UnmatchedSources = m.countSources(rows) - len(matches)

	removed := make([]bool, len(rows))
	var added []models.LedgerRow

	for _, match := range matches {
		indices, err := locateEntryRows(rows, removed, match)
		if err != nil {
			report.Errors = append(report.Errors, err.Error())
			m.log.WithError(err).Warn("Skipping unrepairable match")
			continue
		}
		for _, i := range indices {
			removed[i] = true
		}

		card := CardFromAccount(match.Target.Account)
		corrected := correctedRows(match, card)
		added = append(added, corrected...)

		report.MatchesRepaired++
		report.RowsRemoved += len(indices)
		report.RowsAdded += len(corrected)
		report.Details = append(report.Details, MatchDetail{
			Date:       match.Source.Date,
			Amount:     match.Amount,
			Card:       card,
			Confidence: match.Confidence,
			Reasons:    match.Reasons,
		})
	}

	repaired := make([]models.LedgerRow, 0, len(rows)-report.RowsRemoved+report.RowsAdded)
	for i, row := range rows {
		if !removed[i] {
			repaired = append(repaired, row)
		}
	}
	repaired = append(repaired, added...)
	sort.SliceStable(repaired, func(i, j int) bool {
		return repaired[i].Date.Before(repaired[j].Date)
	})

	if err := verifyRepair(rows, repaired); err != nil {
		return nil, report, err
	}

	m.log.WithFields(logger.Fields{
		"matches":  report.MatchesRepaired,
		"removed":  report.RowsRemoved,
		"added":    report.RowsAdded,
		"resolved": report.MatchesFound,
	}).Info("Reconciliation pass completed")

	return repaired, report, nil
}

func (m *GreedyMatcher) countSources(rows []models.LedgerRow) int {
	n := 0
	for _, row := range rows {
		if isPaymentSource(row) {
			n++
		}
	}
	return n
}

// locateEntryRows finds the four snapshot rows a match replaces: the source
// depository row and its synthesized card counterpart, the target card row and
// its synthesized expense counterpart. Entry-mates share a transaction ID when
// one is present; position-based lookup by (date, account, amount) is the
// fallback for imported snapshots without IDs.
func locateEntryRows(rows []models.LedgerRow, removed []bool, match Match) ([]int, error) {
	taken := make(map[int]bool)

	find := func(what string, pred func(models.LedgerRow) bool) (int, error) {
		for i, row := range rows {
			if removed[i] || taken[i] {
				continue
			}
			if pred(row) {
				taken[i] = true
				return i, nil
			}
		}
		return -1, apperrors.Newf(apperrors.CategoryReconciliation, apperrors.CodeRepairFailed,
			"cannot locate %s row for payment of %s on %s",
			what, match.Amount.StringFixed(2), match.Source.Date.Format("2006-01-02"))
	}

	abs := match.Amount

	srcIdx, err := find("source depository", func(r models.LedgerRow) bool {
		return r.Date.Equal(match.Source.Date) &&
			r.Account == match.Source.Account &&
			r.Amount.Equal(match.Source.Amount)
	})
	if err != nil {
		return nil, err
	}

	srcMateIdx, err := find("source counterpart", func(r models.LedgerRow) bool {
		if !sameEntry(r, rows[srcIdx]) {
			return false
		}
		return strings.HasPrefix(r.Account, creditCardPrefix) && r.Amount.Equal(abs)
	})
	if err != nil {
		return nil, err
	}

	tgtIdx, err := find("target card", func(r models.LedgerRow) bool {
		return r.Date.Equal(match.Target.Date) &&
			r.Account == match.Target.Account &&
			r.Amount.Equal(match.Target.Amount)
	})
	if err != nil {
		return nil, err
	}

	tgtMateIdx, err := find("target counterpart", func(r models.LedgerRow) bool {
		if !sameEntry(r, rows[tgtIdx]) {
			return false
		}
		return !strings.HasPrefix(r.Account, creditCardPrefix) && r.Amount.Equal(abs)
	})
	if err != nil {
		return nil, err
	}

	return []int{srcIdx, srcMateIdx, tgtIdx, tgtMateIdx}, nil
}

// sameEntry reports whether a candidate row belongs to the same ledger entry
// as the anchor row.
func sameEntry(candidate, anchor models.LedgerRow) bool {
	if anchor.TransactionID != "" {
		return candidate.TransactionID == anchor.TransactionID
	}
	return candidate.Date.Equal(anchor.Date) && candidate.Description == anchor.Description
}

// correctedRows builds the replacement entry: the depository account pays out,
// the matched card receives.
func correctedRows(match Match, card string) []models.LedgerRow {
	desc := matchDescription(match)
	return []models.LedgerRow{
		{
			Date:          match.Source.Date,
			Description:   desc,
			Account:       match.Source.Account,
			Amount:        match.Amount.Neg(),
			SourceFile:    match.Source.SourceFile,
			TransactionID: match.Source.TransactionID,
		},
		{
			Date:          match.Source.Date,
			Description:   desc,
			Account:       creditCardPrefix + card,
			Amount:        match.Amount,
			SourceFile:    match.Source.SourceFile,
			TransactionID: match.Source.TransactionID,
		},
	}
}

// matchDescription prefers the depository-side description; very short ones
// fall back to the card side.
func matchDescription(match Match) string {
	if desc := strings.TrimSpace(match.Source.Description); len(desc) >= 10 {
		return desc
	}
	if desc := strings.TrimSpace(match.Target.Description); desc != "" {
		return desc
	}
	return fmt.Sprintf("Credit card payment %s", match.Amount.StringFixed(2))
}

// verifyRepair checks that the repaired ledger sums to the same total as the
// input. Every removal is sign-balanced by an insertion, so any drift means a
// repair bug, and the pass fails rather than emitting a corrupted ledger.
func verifyRepair(before, after []models.LedgerRow) error {
	sum := func(rows []models.LedgerRow) decimal.Decimal {
		total := decimal.Zero
		for _, r := range rows {
			total = total.Add(r.Amount)
		}
		return total
	}

	if diff := sum(before).Sub(sum(after)); !diff.Abs().LessThanOrEqual(models.BalanceTolerance) {
		return apperrors.Newf(apperrors.CategoryReconciliation, apperrors.CodeRepairFailed,
			"reconciliation changed the ledger total by %s", diff.StringFixed(2))
	}
	return nil
}
