// Package errors provides categorized application errors for the ledger engine.
//
// Errors carry a category, a machine-readable code, optional context and a
// suggestion for the operator. Per-record failures are wrapped here and
// aggregated into batch summaries; they are not fatal on their own.
package errors

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrorCategory represents different categories of errors.
type ErrorCategory string

const (
	CategoryFile           ErrorCategory = "file"
	CategoryParse          ErrorCategory = "parse"
	CategoryValidation     ErrorCategory = "validation"
	CategoryConfiguration  ErrorCategory = "configuration"
	CategoryClassification ErrorCategory = "classification"
	CategoryLedger         ErrorCategory = "ledger"
	CategoryReconciliation ErrorCategory = "reconciliation"
	CategoryDedup          ErrorCategory = "dedup"
	CategoryInternal       ErrorCategory = "internal"
)

// ErrorCode represents specific error codes within categories.
type ErrorCode string

const (
	// File errors
	CodeFileNotFound   ErrorCode = "file_not_found"
	CodeFilePermission ErrorCode = "file_permission"

	// Parse errors
	CodeInvalidFormat ErrorCode = "invalid_format"
	CodeMissingColumn ErrorCode = "missing_column"
	CodeInvalidData   ErrorCode = "invalid_data"

	// Validation errors
	CodeInvalidAmount ErrorCode = "invalid_amount"
	CodeInvalidDate   ErrorCode = "invalid_date"
	CodeMissingField  ErrorCode = "missing_field"

	// Configuration errors
	CodeInvalidConfig ErrorCode = "invalid_config"
	CodeMissingConfig ErrorCode = "missing_config"

	// Classification errors
	CodeUnresolvedTransfer ErrorCode = "unresolved_transfer"

	// Ledger errors
	CodeUnbalancedEntry ErrorCode = "unbalanced_entry"
	CodeEmptyLedger     ErrorCode = "empty_ledger"

	// Reconciliation errors
	CodeRepairFailed   ErrorCode = "repair_failed"
	CodeAmbiguousMatch ErrorCode = "ambiguous_match"

	// Dedup errors
	CodeStoreQueryFailed ErrorCode = "store_query_failed"

	// Internal errors
	CodeUnexpectedError ErrorCode = "unexpected_error"
)

// LedgerError is the base error type for all application errors.
type LedgerError struct {
	Category   ErrorCategory     `json:"category"`
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context provides additional information about the error.
type Context map[string]interface{}

// Error implements the error interface.
func (e *LedgerError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// Unwrap returns the underlying cause error.
func (e *LedgerError) Unwrap() error {
	return e.Cause
}

// GetExitCode returns an appropriate exit code for the error.
func (e *LedgerError) GetExitCode() int {
	switch e.Category {
	case CategoryFile:
		return 2
	case CategoryParse, CategoryValidation:
		return 3
	case CategoryConfiguration:
		return 4
	case CategoryClassification, CategoryLedger, CategoryReconciliation, CategoryDedup, CategoryInternal:
		return 5
	default:
		return 1
	}
}

// WithContext adds context information to the error.
func (e *LedgerError) WithContext(key string, value interface{}) *LedgerError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion for fixing the error.
func (e *LedgerError) WithSuggestion(suggestion string) *LedgerError {
	e.Suggestion = suggestion
	return e
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// New creates a new LedgerError.
func New(category ErrorCategory, code ErrorCode, message string) *LedgerError {
	return &LedgerError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Newf creates a new LedgerError with a formatted message.
func Newf(category ErrorCategory, code ErrorCode, format string, args ...interface{}) *LedgerError {
	return New(category, code, fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error with LedgerError context.
func Wrap(err error, category ErrorCategory, code ErrorCode, message string) *LedgerError {
	if err == nil {
		return nil
	}

	return &LedgerError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

// AsLedgerError extracts a LedgerError from an error chain, if present.
func AsLedgerError(err error) (*LedgerError, bool) {
	for err != nil {
		if le, ok := err.(*LedgerError); ok {
			return le, true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = unwrapper.Unwrap()
	}
	return nil, false
}

// IsCategory reports whether err belongs to the given category.
func IsCategory(err error, category ErrorCategory) bool {
	le, ok := AsLedgerError(err)
	return ok && le.Category == category
}

// BatchSummary aggregates per-record errors for a batch run. The batch itself
// continues; the summary is reported at the end so failures are visible.
type BatchSummary struct {
	Total    int      `json:"total"`
	Failed   int      `json:"failed"`
	Examples []string `json:"examples,omitempty"`

	maxExamples int
}

// NewBatchSummary creates a summary that retains up to maxExamples error texts.
func NewBatchSummary(maxExamples int) *BatchSummary {
	if maxExamples <= 0 {
		maxExamples = 5
	}
	return &BatchSummary{maxExamples: maxExamples}
}

// Record counts one processed record, capturing the error if non-nil.
func (s *BatchSummary) Record(err error) {
	s.Total++
	if err == nil {
		return
	}
	s.Failed++
	if len(s.Examples) < s.maxExamples {
		s.Examples = append(s.Examples, err.Error())
	}
}

// String renders the summary for console reports.
func (s *BatchSummary) String() string {
	if s.Failed == 0 {
		return fmt.Sprintf("%d records processed, no errors", s.Total)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d records processed, %d failed", s.Total, s.Failed)
	for _, e := range s.Examples {
		fmt.Fprintf(&b, "\n  - %s", e)
	}
	return b.String()
}
