// Package models defines the record types flowing through the reconciliation
// pipeline: raw table cells, parsed invoice line items, document totals,
// ledger entries and derived comparison rows.
package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Row is one ordered sequence of text cells. Empty cells are empty strings,
// never absent markers.
type Row []string

// Table is one page's cell matrix, rows in document order.
type Table []Row

// IsEmpty reports whether every cell in the row is empty or whitespace.
func (r Row) IsEmpty() bool {
	for _, cell := range r {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// Cell returns the cell at index i, or "" when the row is shorter.
func (r Row) Cell(i int) string {
	if i >= 0 && i < len(r) {
		return r[i]
	}
	return ""
}

// Tolerance is the absolute-difference threshold used throughout for
// amount equality. A difference of exactly 0.01 is a mismatch.
var Tolerance = decimal.New(1, -2)

// WithinTolerance reports whether |a-b| < Tolerance.
func WithinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThan(Tolerance)
}

// LineItem is one parsed invoice line. Registration and DeliveryRef are
// inherited from the closest grouping row above the line in document order;
// an item before any grouping row carries an empty registration.
type LineItem struct {
	Registration string          `json:"registration"`
	DeliveryRef  string          `json:"delivery_ref,omitempty"`
	ArticleCode  string          `json:"article_code"`
	Description  string          `json:"description"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	DiscountPct  decimal.Decimal `json:"discount_pct"`
	LineTotal    decimal.Decimal `json:"line_total"`
}

// String returns a compact representation for logs.
func (li *LineItem) String() string {
	return fmt.Sprintf("LineItem{Reg: %s, Article: %s, Total: %s}",
		li.Registration, li.ArticleCode, li.LineTotal.String())
}

// TrimmedRegistration returns the registration with surrounding whitespace
// removed. Grouping always uses this form so stray whitespace never creates
// duplicate groups.
func (li *LineItem) TrimmedRegistration() string {
	return strings.TrimSpace(li.Registration)
}

// DocumentTotals holds the official aggregate figures extracted from the
// final page's summary table.
type DocumentTotals struct {
	PreTax    decimal.Decimal `json:"pre_tax"`
	Tax       decimal.Decimal `json:"tax"`
	PostTax   decimal.Decimal `json:"post_tax"`
	Surcharge decimal.Decimal `json:"surcharge"`
}

func (dt *DocumentTotals) String() string {
	return fmt.Sprintf("DocumentTotals{PreTax: %s, Tax: %s, PostTax: %s, Surcharge: %s}",
		dt.PreTax.String(), dt.Tax.String(), dt.PostTax.String(), dt.Surcharge.String())
}

// LedgerEntry is one registration/amount pair extracted from the ledger
// sheet. The registration may legitimately be empty (unassigned amount);
// the amount is always present, rows without one never produce an entry.
type LedgerEntry struct {
	Registration string          `json:"registration"`
	Amount       decimal.Decimal `json:"amount"`
}

func (le *LedgerEntry) String() string {
	return fmt.Sprintf("LedgerEntry{Reg: %s, Amount: %s}",
		le.Registration, le.Amount.String())
}

// TrimmedRegistration mirrors LineItem.TrimmedRegistration.
func (le *LedgerEntry) TrimmedRegistration() string {
	return strings.TrimSpace(le.Registration)
}

// MatchStatus classifies one comparison row.
type MatchStatus string

const (
	// StatusMatch means |difference| < Tolerance.
	StatusMatch MatchStatus = "MATCH"
	// StatusDocumentGreater means the invoice side sums higher.
	StatusDocumentGreater MatchStatus = "DOCUMENT_GREATER"
	// StatusLedgerGreater means the ledger side sums higher.
	StatusLedgerGreater MatchStatus = "LEDGER_GREATER"
)

// ClassifyDifference maps a difference (document - ledger) to a status.
func ClassifyDifference(difference decimal.Decimal) MatchStatus {
	if difference.Abs().LessThan(Tolerance) {
		return StatusMatch
	}
	if difference.IsPositive() {
		return StatusDocumentGreater
	}
	return StatusLedgerGreater
}

// ComparisonRow is one per-registration aggregate comparison. Derived data,
// recomputed on every run, never persisted.
type ComparisonRow struct {
	Registration   string          `json:"registration"`
	DocumentAmount decimal.Decimal `json:"document_amount"`
	LedgerAmount   decimal.Decimal `json:"ledger_amount"`
	Difference     decimal.Decimal `json:"difference"`
	Status         MatchStatus     `json:"status"`
}

// IsMismatch reports whether the row needs a candidate search.
func (cr *ComparisonRow) IsMismatch() bool {
	return cr.Status != StatusMatch
}

func (cr *ComparisonRow) String() string {
	return fmt.Sprintf("ComparisonRow{Reg: %s, Doc: %s, Ledger: %s, Diff: %s, Status: %s}",
		cr.Registration, cr.DocumentAmount.String(), cr.LedgerAmount.String(),
		cr.Difference.String(), cr.Status)
}

// SumLineTotals adds the line totals of all items.
func SumLineTotals(items []LineItem) decimal.Decimal {
	sum := decimal.Zero
	for i := range items {
		sum = sum.Add(items[i].LineTotal)
	}
	return sum
}
