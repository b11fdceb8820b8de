package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"golang-ledger-engine/internal/models"
)

// NormalizeDescription lowercases a description and collapses runs of
// whitespace, so cosmetic feed differences do not defeat exact matching.
func NormalizeDescription(description string) string {
	return strings.Join(strings.Fields(strings.ToLower(description)), " ")
}

// DescriptionHash returns the hex SHA-256 of the normalized description.
func DescriptionHash(description string) string {
	sum := sha256.Sum256([]byte(NormalizeDescription(description)))
	return hex.EncodeToString(sum[:])
}

// Signature computes the exact-duplicate content signature of a transaction.
// Two ingests of the same underlying transaction always produce the same
// signature regardless of record IDs or source file paths.
func Signature(txn *models.NormalizedTransaction) string {
	key := fmt.Sprintf("%s|%s|%s|%s",
		strings.TrimSpace(txn.AccountName),
		txn.Date.Format("2006-01-02"),
		txn.Amount.StringFixed(2),
		DescriptionHash(txn.Description),
	)
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
