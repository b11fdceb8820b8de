package dedup

import (
	"context"
	"database/sql"
	"time"

	apperrors "golang-ledger-engine/pkg/errors"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

// SQLiteStore persists ingestion history across runs. Amounts are stored as
// integer cents and dates as ISO-8601 text so the candidate bands become
// plain BETWEEN range scans.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS transactions (
	signature    TEXT PRIMARY KEY,
	account_name TEXT NOT NULL,
	date         TEXT NOT NULL,
	amount_cents INTEGER NOT NULL,
	description  TEXT NOT NULL,
	desc_hash    TEXT NOT NULL,
	source_file  TEXT NOT NULL DEFAULT '',
	recorded_at  TEXT NOT NULL DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_transactions_candidates
	ON transactions (account_name, date, amount_cents);
`

// OpenSQLiteStore opens (creating if needed) the history database at path.
func OpenSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CategoryDedup, apperrors.CodeStoreQueryFailed,
			"failed to open dedup history database").WithContext("path", path)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, apperrors.Wrap(err, apperrors.CategoryDedup, apperrors.CodeStoreQueryFailed,
			"dedup history database is unreachable").WithContext("path", path)
	}

	store := &SQLiteStore{db: db}
	if err := store.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// EnsureSchema creates the history table and index when missing. Calling it
// on an initialized database is a no-op.
func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return apperrors.Wrap(err, apperrors.CategoryDedup, apperrors.CodeStoreQueryFailed,
			"failed to initialize dedup history schema")
	}
	return nil
}

// Contains reports whether a signature has been recorded.
func (s *SQLiteStore) Contains(ctx context.Context, signature string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM transactions WHERE signature = ?`, signature).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, apperrors.Wrap(err, apperrors.CategoryDedup, apperrors.CodeStoreQueryFailed,
			"signature lookup failed")
	}
	return true, nil
}

// Candidates returns stored transactions within the query bands.
func (s *SQLiteStore) Candidates(ctx context.Context, q CandidateQuery) ([]StoredTransaction, error) {
	lowDate := q.Date.AddDate(0, 0, -q.DateToleranceDays).Format("2006-01-02")
	highDate := q.Date.AddDate(0, 0, q.DateToleranceDays).Format("2006-01-02")
	lowCents := toCents(q.Amount.Sub(q.AmountTolerance))
	highCents := toCents(q.Amount.Add(q.AmountTolerance))

	rows, err := s.db.QueryContext(ctx, `
		SELECT signature, account_name, date, amount_cents, description, desc_hash, source_file
		FROM transactions
		WHERE account_name = ?
		  AND date BETWEEN ? AND ?
		  AND amount_cents BETWEEN ? AND ?
		ORDER BY date, signature`,
		q.AccountName, lowDate, highDate, lowCents, highCents)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CategoryDedup, apperrors.CodeStoreQueryFailed,
			"candidate query failed").WithContext("account", q.AccountName)
	}
	defer rows.Close()

	var out []StoredTransaction
	for rows.Next() {
		var (
			txn     StoredTransaction
			date    string
			cents   int64
			srcFile string
		)
		if err := rows.Scan(&txn.Signature, &txn.AccountName, &date, &cents,
			&txn.Description, &txn.DescriptionHash, &srcFile); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CategoryDedup, apperrors.CodeStoreQueryFailed,
				"candidate row scan failed")
		}
		parsed, err := time.Parse("2006-01-02", date)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CategoryDedup, apperrors.CodeStoreQueryFailed,
				"stored date is corrupt").WithContext("date", date)
		}
		txn.Date = parsed
		txn.Amount = decimal.New(cents, -2)
		txn.SourceFile = srcFile
		out = append(out, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CategoryDedup, apperrors.CodeStoreQueryFailed,
			"candidate iteration failed")
	}
	return out, nil
}

// Record persists a transaction under its signature. Existing signatures are
// left untouched.
func (s *SQLiteStore) Record(ctx context.Context, txn StoredTransaction) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (signature, account_name, date, amount_cents, description, desc_hash, source_file)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(signature) DO NOTHING`,
		txn.Signature, txn.AccountName, txn.Date.Format("2006-01-02"),
		toCents(txn.Amount), txn.Description, txn.DescriptionHash, txn.SourceFile)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CategoryDedup, apperrors.CodeStoreQueryFailed,
			"failed to record transaction").WithContext("signature", txn.Signature)
	}
	return nil
}

// Count returns the number of recorded transactions.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&n); err != nil {
		return 0, apperrors.Wrap(err, apperrors.CategoryDedup, apperrors.CodeStoreQueryFailed,
			"count query failed")
	}
	return n, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func toCents(amount decimal.Decimal) int64 {
	return amount.Round(2).Shift(2).IntPart()
}
