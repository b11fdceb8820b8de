package dedup

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "dedup.db"))
	if err != nil {
		t.Fatalf("OpenSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStoreEnsureSchemaIdempotent(t *testing.T) {
	store := openTestStore(t)
	if err := store.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema on an initialized database failed: %v", err)
	}
}

func TestSQLiteStoreRecordAndContains(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	txn := NewStoredTransaction(testTxn("T1", 1, -54.12, "CITY UTILITIES"))

	ok, err := store.Contains(ctx, txn.Signature)
	if err != nil {
		t.Fatalf("Contains failed: %v", err)
	}
	if ok {
		t.Fatal("Empty store must not contain the signature")
	}

	if err := store.Record(ctx, txn); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	// Recording the same signature again is a no-op
	if err := store.Record(ctx, txn); err != nil {
		t.Fatalf("Repeated Record failed: %v", err)
	}

	ok, err = store.Contains(ctx, txn.Signature)
	if err != nil {
		t.Fatalf("Contains failed: %v", err)
	}
	if !ok {
		t.Error("Expected the signature after recording")
	}

	n, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}
}

func TestSQLiteStoreCandidates(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	seed := []StoredTransaction{
		NewStoredTransaction(testTxn("T1", 1, -54.12, "CITY UTILITIES")),
		NewStoredTransaction(testTxn("T2", 2, -54.40, "CITY UTILITIES AUTOPAY")),
		NewStoredTransaction(testTxn("T3", 1, -200.00, "RENT")),     // amount out of band
		NewStoredTransaction(testTxn("T4", 20, -54.12, "UTILITIES")), // date out of band
	}
	for _, txn := range seed {
		if err := store.Record(ctx, txn); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	got, err := store.Candidates(ctx, CandidateQuery{
		AccountName:       "Bank of America - Bank - Checking",
		Date:              testTxn("Q", 1, 0, "").Date,
		DateToleranceDays: 3,
		Amount:            decimal.NewFromFloat(-54.12),
		AmountTolerance:   decimal.NewFromFloat(0.50),
	})
	if err != nil {
		t.Fatalf("Candidates failed: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("Expected 2 candidates in band, got %d", len(got))
	}
	for _, c := range got {
		if !c.Amount.Sub(decimal.NewFromFloat(-54.12)).Abs().LessThanOrEqual(decimal.NewFromFloat(0.50)) {
			t.Errorf("Candidate amount %s outside the band", c.Amount)
		}
	}
}
