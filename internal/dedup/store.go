package dedup

import (
	"context"
	"time"

	"golang-ledger-engine/internal/models"

	"github.com/shopspring/decimal"
)

// StoredTransaction is the persisted shape of an ingested transaction: the
// signature fields plus enough context to report a fuzzy match.
type StoredTransaction struct {
	Signature       string
	AccountName     string
	Date            time.Time
	Amount          decimal.Decimal
	Description     string
	DescriptionHash string
	SourceFile      string
}

// CandidateQuery selects previously ingested transactions near an incoming
// one: same account, amount within the band, date within the window.
type CandidateQuery struct {
	AccountName       string
	Date              time.Time
	DateToleranceDays int
	Amount            decimal.Decimal
	AmountTolerance   decimal.Decimal
}

// Store is the ingestion history behind deduplication.
type Store interface {
	// Contains reports whether a signature has been recorded.
	Contains(ctx context.Context, signature string) (bool, error)

	// Candidates returns stored transactions matching the query bands.
	Candidates(ctx context.Context, q CandidateQuery) ([]StoredTransaction, error)

	// Record persists a transaction under its signature. Recording an
	// existing signature is a no-op.
	Record(ctx context.Context, txn StoredTransaction) error

	// Count returns the number of recorded transactions.
	Count(ctx context.Context) (int, error)

	Close() error
}

// NewStoredTransaction builds the persisted shape from a normalized record.
func NewStoredTransaction(txn *models.NormalizedTransaction) StoredTransaction {
	return StoredTransaction{
		Signature:       Signature(txn),
		AccountName:     txn.AccountName,
		Date:            txn.Date,
		Amount:          txn.Amount,
		Description:     txn.Description,
		DescriptionHash: DescriptionHash(txn.Description),
		SourceFile:      txn.SourceFile,
	}
}

// MemoryStore is an in-memory Store. It backs single-run deduplication and
// tests; cross-run history uses the SQLite store.
type MemoryStore struct {
	bySignature map[string]StoredTransaction
	order       []string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{bySignature: make(map[string]StoredTransaction)}
}

// Contains reports whether a signature has been recorded.
func (s *MemoryStore) Contains(_ context.Context, signature string) (bool, error) {
	_, ok := s.bySignature[signature]
	return ok, nil
}

// Candidates returns stored transactions within the query bands, in insertion
// order.
func (s *MemoryStore) Candidates(_ context.Context, q CandidateQuery) ([]StoredTransaction, error) {
	var out []StoredTransaction
	for _, sig := range s.order {
		txn := s.bySignature[sig]
		if txn.AccountName != q.AccountName {
			continue
		}
		if !models.CompareDatesWithTolerance(txn.Date, q.Date, q.DateToleranceDays) {
			continue
		}
		if !models.CompareAmountsWithTolerance(txn.Amount, q.Amount, q.AmountTolerance) {
			continue
		}
		out = append(out, txn)
	}
	return out, nil
}

// Record persists a transaction under its signature.
func (s *MemoryStore) Record(_ context.Context, txn StoredTransaction) error {
	if _, ok := s.bySignature[txn.Signature]; ok {
		return nil
	}
	s.bySignature[txn.Signature] = txn
	s.order = append(s.order, txn.Signature)
	return nil
}

// Count returns the number of recorded transactions.
func (s *MemoryStore) Count(_ context.Context) (int, error) {
	return len(s.order), nil
}

// Close releases nothing for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
