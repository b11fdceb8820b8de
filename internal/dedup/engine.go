package dedup

import (
	"context"
	"strings"

	"golang-ledger-engine/internal/models"
	apperrors "golang-ledger-engine/pkg/errors"
	"golang-ledger-engine/pkg/logger"
)

// Duplicate classification reasons.
const (
	ReasonExactSignature      = "exact_signature"
	ReasonFuzzyHighConfidence = "fuzzy_high_confidence"
	ReasonFuzzyLowConfidence  = "fuzzy_low_confidence"
)

// Duplicate records one detected duplicate and what it matched.
type Duplicate struct {
	Transaction *models.NormalizedTransaction `json:"transaction"`
	MatchedWith StoredTransaction             `json:"matched_with"`
	Confidence  float64                       `json:"confidence"`
	Reason      string                        `json:"reason"`
}

// Result is the outcome of one deduplication pass. Every incoming record
// lands in exactly one bucket; Flagged records are withheld from New until
// a human reviews them.
type Result struct {
	New     []*models.NormalizedTransaction `json:"-"`
	Exact   []Duplicate                     `json:"exact"`
	Skipped []Duplicate                     `json:"skipped"`
	Flagged []Duplicate                     `json:"flagged"`

	TotalIncoming int `json:"total_incoming"`
	NewCount      int `json:"new_count"`
	ExactCount    int `json:"exact_count"`
	SkippedCount  int `json:"skipped_count"`
	FlaggedCount  int `json:"flagged_count"`
}

// Engine partitions incoming transactions against an ingestion history.
type Engine struct {
	store  Store
	config *Config
	log    logger.Logger
}

// NewEngine creates a deduplication engine. A nil configuration uses
// defaults.
func NewEngine(store Store, config *Config) (*Engine, error) {
	if store == nil {
		return nil, apperrors.New(apperrors.CategoryConfiguration, apperrors.CodeInvalidConfig,
			"dedup engine requires a store")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CategoryConfiguration, apperrors.CodeInvalidConfig,
			"invalid dedup configuration")
	}
	return &Engine{
		store:  store,
		config: config,
		log:    logger.WithComponent("dedup_engine"),
	}, nil
}

// Partition splits incoming transactions into new records and duplicates.
// The store is only read during the pass; Commit persists the accepted
// records afterwards. Duplicates within the incoming batch itself are caught
// against a batch-local overlay of the records accepted so far.
func (e *Engine) Partition(ctx context.Context, incoming []*models.NormalizedTransaction) (*Result, error) {
	result := &Result{TotalIncoming: len(incoming)}

	acceptedSigs := make(map[string]struct{})
	var accepted []StoredTransaction

	for _, txn := range incoming {
		select {
		case <-ctx.Done():
			return nil, apperrors.Wrap(ctx.Err(), apperrors.CategoryDedup, apperrors.CodeUnexpectedError,
				"deduplication interrupted")
		default:
		}

		stored := NewStoredTransaction(txn)

		_, exact := acceptedSigs[stored.Signature]
		if !exact {
			var err error
			exact, err = e.store.Contains(ctx, stored.Signature)
			if err != nil {
				return nil, err
			}
		}
		if exact {
			result.Exact = append(result.Exact, Duplicate{
				Transaction: txn,
				MatchedWith: stored,
				Confidence:  1.0,
				Reason:      ReasonExactSignature,
			})
			continue
		}

		best, found, err := e.bestFuzzyMatch(ctx, stored, accepted)
		if err != nil {
			return nil, err
		}

		if found && e.config.Skips(best.Confidence) {
			best.Transaction = txn
			best.Reason = ReasonFuzzyHighConfidence
			result.Skipped = append(result.Skipped, best)
			e.log.WithFields(logger.Fields{
				"date":       txn.Date.Format("2006-01-02"),
				"amount":     txn.Amount.StringFixed(2),
				"confidence": best.Confidence,
			}).Debug("Skipping high-confidence fuzzy duplicate")
			continue
		}

		if found {
			best.Transaction = txn
			best.Reason = ReasonFuzzyLowConfidence
			result.Flagged = append(result.Flagged, best)
			e.log.WithFields(logger.Fields{
				"date":       txn.Date.Format("2006-01-02"),
				"amount":     txn.Amount.StringFixed(2),
				"confidence": best.Confidence,
			}).Warn("Flagging low-confidence fuzzy duplicate for review")
			continue
		}

		result.New = append(result.New, txn)
		acceptedSigs[stored.Signature] = struct{}{}
		accepted = append(accepted, stored)
	}

	result.NewCount = len(result.New)
	result.ExactCount = len(result.Exact)
	result.SkippedCount = len(result.Skipped)
	result.FlaggedCount = len(result.Flagged)

	e.log.WithFields(logger.Fields{
		"incoming": result.TotalIncoming,
		"new":      result.NewCount,
		"exact":    result.ExactCount,
		"skipped":  result.SkippedCount,
		"flagged":  result.FlaggedCount,
	}).Info("Deduplication pass completed")

	return result, nil
}

// Commit records the accepted records of a completed pass so later runs see
// them. Skipped and flagged records are never written.
func (e *Engine) Commit(ctx context.Context, result *Result) error {
	for _, txn := range result.New {
		if err := e.store.Record(ctx, NewStoredTransaction(txn)); err != nil {
			return err
		}
	}
	return nil
}

// bestFuzzyMatch scores all candidates in the amount and date bands, from the
// store and from the records accepted earlier in the batch, and keeps the
// highest-confidence one.
func (e *Engine) bestFuzzyMatch(ctx context.Context, stored StoredTransaction, accepted []StoredTransaction) (Duplicate, bool, error) {
	candidates, err := e.store.Candidates(ctx, CandidateQuery{
		AccountName:       stored.AccountName,
		Date:              stored.Date,
		DateToleranceDays: e.config.DateToleranceDays,
		Amount:            stored.Amount,
		AmountTolerance:   e.config.AmountTolerance,
	})
	if err != nil {
		return Duplicate{}, false, err
	}

	for _, prior := range accepted {
		if prior.AccountName != stored.AccountName {
			continue
		}
		if !models.CompareDatesWithTolerance(prior.Date, stored.Date, e.config.DateToleranceDays) {
			continue
		}
		if !models.CompareAmountsWithTolerance(prior.Amount, stored.Amount, e.config.AmountTolerance) {
			continue
		}
		candidates = append(candidates, prior)
	}

	var best Duplicate
	found := false
	for _, candidate := range candidates {
		confidence := descriptionSimilarity(stored, candidate)
		if !found || confidence > best.Confidence {
			best = Duplicate{MatchedWith: candidate, Confidence: confidence}
			found = true
		}
	}
	return best, found, nil
}

// descriptionSimilarity scores two in-band transactions by how alike their
// descriptions are. Being in the amount and date bands at all is the floor.
func descriptionSimilarity(a StoredTransaction, b StoredTransaction) float64 {
	if a.DescriptionHash == b.DescriptionHash {
		return confidenceSameDescription
	}

	na, nb := NormalizeDescription(a.Description), NormalizeDescription(b.Description)
	if na != "" && nb != "" && (strings.Contains(na, nb) || strings.Contains(nb, na)) {
		return confidenceContainment
	}

	return confidenceBandOnly
}
