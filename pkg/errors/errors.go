// Package errors defines the categorized error type used across the
// reconciliation pipeline. Soft conditions (missing header pages, skipped
// ledger rows) are never expressed through this package; they are absorbed
// into parse statistics. Everything here is a hard failure that aborts the
// current document or run.
package errors

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Category groups errors by the pipeline stage that produced them.
type Category string

const (
	CategoryFile           Category = "file"
	CategoryNumeric        Category = "numeric"
	CategoryDocument       Category = "document"
	CategoryLedger         Category = "ledger"
	CategoryReconciliation Category = "reconciliation"
	CategoryConfiguration  Category = "configuration"
)

// Code identifies a specific failure within a category.
type Code string

const (
	// File errors
	CodeFileNotFound   Code = "file_not_found"
	CodeFileUnreadable Code = "file_unreadable"

	// Numeric errors
	CodeNumericFormat Code = "numeric_format"

	// Document errors
	CodeCorruptCell   Code = "corrupt_cell"
	CodeSummaryLayout Code = "summary_layout"
	CodeMissingPage   Code = "missing_page"

	// Ledger errors
	CodeWorksheetNotFound Code = "worksheet_not_found"
	CodeGridUnreadable    Code = "grid_unreadable"

	// Configuration errors
	CodeInvalidConfig Code = "invalid_config"

	// Reconciliation errors
	CodeProcessingError Code = "processing_error"
)

// Context carries structured detail (page, row, column, cell value) so a
// human can locate the offending source row.
type Context map[string]interface{}

// ReconcilerError is the error type returned by every component in the
// pipeline for hard failures.
type ReconcilerError struct {
	Category   Category          `json:"category"`
	Code       Code              `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

func (e *ReconcilerError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

func (e *ReconcilerError) Unwrap() error {
	return e.Cause
}

// GetExitCode maps the error category to a process exit code.
func (e *ReconcilerError) GetExitCode() int {
	switch e.Category {
	case CategoryFile:
		return 2
	case CategoryNumeric, CategoryDocument, CategoryLedger:
		return 3
	case CategoryConfiguration:
		return 4
	case CategoryReconciliation:
		return 5
	default:
		return 1
	}
}

// WithContext attaches a key/value pair to the error context.
func (e *ReconcilerError) WithContext(key string, value interface{}) *ReconcilerError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion attaches a human-facing hint for fixing the error.
func (e *ReconcilerError) WithSuggestion(suggestion string) *ReconcilerError {
	e.Suggestion = suggestion
	return e
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// New creates a ReconcilerError with a captured stack trace.
func New(category Category, code Code, message string) *ReconcilerError {
	return &ReconcilerError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap attaches category, code and message to an existing error.
func Wrap(err error, category Category, code Code, message string) *ReconcilerError {
	if err == nil {
		return nil
	}
	return &ReconcilerError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

// FileError reports a failure to read a source file (page export, workbook).
func FileError(code Code, path string, err error) *ReconcilerError {
	var message, suggestion string
	switch code {
	case CodeFileNotFound:
		message = fmt.Sprintf("file not found: %s", path)
		suggestion = "check the file path"
	default:
		message = fmt.Sprintf("cannot read file: %s", path)
		suggestion = "check that the file exists and is readable"
	}

	var result *ReconcilerError
	if err != nil {
		result = Wrap(err, CategoryFile, code, message)
	} else {
		result = New(CategoryFile, code, message)
	}
	return result.WithSuggestion(suggestion).WithContext("path", path)
}

// NumericError reports a string that failed locale numeric conversion.
func NumericError(value string, err error) *ReconcilerError {
	message := fmt.Sprintf("invalid numeric value %q", value)
	var result *ReconcilerError
	if err != nil {
		result = Wrap(err, CategoryNumeric, CodeNumericFormat, message)
	} else {
		result = New(CategoryNumeric, CodeNumericFormat, message)
	}
	return result.
		WithSuggestion("expected a number like 1.399,5 with comma decimal separator").
		WithContext("value", value)
}

// CellError reports a corrupt cell on a document page. Page and row are
// 1-based so they match what a human sees in the source document.
func CellError(page, row, column int, value string, err error) *ReconcilerError {
	message := fmt.Sprintf("corrupt cell on page %d, row %d, column %d: %q",
		page, row, column, value)
	var result *ReconcilerError
	if err != nil {
		result = Wrap(err, CategoryDocument, CodeCorruptCell, message)
	} else {
		result = New(CategoryDocument, CodeCorruptCell, message)
	}
	return result.
		WithSuggestion("fix the source cell or re-export the page table").
		WithContext("page", page).
		WithContext("row", row).
		WithContext("column", column).
		WithContext("value", value)
}

// SummaryLayoutError reports a summary table that does not have the shape
// the totals extractor requires. This aborts the whole document read.
func SummaryLayoutError(detail string, err error) *ReconcilerError {
	message := fmt.Sprintf("unexpected summary table layout: %s", detail)
	var result *ReconcilerError
	if err != nil {
		result = Wrap(err, CategoryDocument, CodeSummaryLayout, message)
	} else {
		result = New(CategoryDocument, CodeSummaryLayout, message)
	}
	return result.WithSuggestion("verify the final page's summary table was extracted intact")
}

// LedgerError reports a failure reading the ledger workbook or grid.
func LedgerError(code Code, detail string, err error) *ReconcilerError {
	var message, suggestion string
	switch code {
	case CodeWorksheetNotFound:
		message = fmt.Sprintf("worksheet not found: %s", detail)
		suggestion = "check that the workbook has a sheet for the requested month"
	default:
		message = fmt.Sprintf("cannot read ledger grid: %s", detail)
		suggestion = "check the workbook file"
	}

	var result *ReconcilerError
	if err != nil {
		result = Wrap(err, CategoryLedger, code, message)
	} else {
		result = New(CategoryLedger, code, message)
	}
	return result.WithSuggestion(suggestion)
}

// ConfigurationError reports an invalid configuration value.
func ConfigurationError(setting string, value interface{}, err error) *ReconcilerError {
	message := fmt.Sprintf("invalid configuration for %q: %v", setting, value)
	var result *ReconcilerError
	if err != nil {
		result = Wrap(err, CategoryConfiguration, CodeInvalidConfig, message)
	} else {
		result = New(CategoryConfiguration, CodeInvalidConfig, message)
	}
	return result.
		WithSuggestion("check the configuration file and environment variables").
		WithContext("setting", setting).
		WithContext("value", value)
}

// ReconciliationError reports a failure inside the reconciliation engine.
func ReconciliationError(operation string, err error) *ReconcilerError {
	message := fmt.Sprintf("reconciliation failed during %s", operation)
	var result *ReconcilerError
	if err != nil {
		result = Wrap(err, CategoryReconciliation, CodeProcessingError, message)
	} else {
		result = New(CategoryReconciliation, CodeProcessingError, message)
	}
	return result.WithContext("operation", operation)
}

// IsReconcilerError reports whether err is a ReconcilerError.
func IsReconcilerError(err error) bool {
	_, ok := err.(*ReconcilerError)
	return ok
}

// AsReconcilerError extracts a ReconcilerError from an error chain.
func AsReconcilerError(err error) (*ReconcilerError, bool) {
	var rerr *ReconcilerError
	if errors.As(err, &rerr) {
		return rerr, true
	}
	return nil, false
}

// FormatContext renders the context map as "key=value" pairs for logs.
func (e *ReconcilerError) FormatContext() string {
	if len(e.Context) == 0 {
		return ""
	}
	parts := make([]string, 0, len(e.Context))
	for k, v := range e.Context {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	return strings.Join(parts, " ")
}
