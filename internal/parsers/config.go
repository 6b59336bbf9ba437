package parsers

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Positional columns of an invoice data row. The table source preserves the
// source document's column order, so these are fixed, not discovered.
const (
	colArticle = iota
	colDescription
	colQuantity
	colUnitPrice
	colDiscount
	colLineTotal
)

// Config holds the marker literals and rates used while parsing invoice
// tables. The markers are document-format literals, not translatable text.
type Config struct {
	// HeaderMarker identifies the header row: the first row containing a
	// cell exactly equal to this value. Rows above it are preamble.
	HeaderMarker string

	// CreditNoteMarker excludes a row when any cell contains this substring.
	// Case-sensitive literal match.
	CreditNoteMarker string

	// ReferencePrefix marks the delivery-reference cell of a grouping row.
	ReferencePrefix string

	// RegistrationPrefix marks the registration cell of a grouping row.
	RegistrationPrefix string

	// VATRate is the rate applied when verifying document totals.
	VATRate decimal.Decimal
}

// DefaultConfig returns the marker set used by the supported invoice layout.
func DefaultConfig() *Config {
	return &Config{
		HeaderMarker:       "Artículo",
		CreditNoteMarker:   "ABONO",
		ReferencePrefix:    "ALBARAN",
		RegistrationPrefix: "A:",
		VATRate:            decimal.NewFromFloat(0.21),
	}
}

// Validate checks the configuration for usable values.
func (c *Config) Validate() error {
	if c.HeaderMarker == "" {
		return fmt.Errorf("header marker cannot be empty")
	}
	if c.ReferencePrefix == "" {
		return fmt.Errorf("reference prefix cannot be empty")
	}
	if c.RegistrationPrefix == "" {
		return fmt.Errorf("registration prefix cannot be empty")
	}
	if c.VATRate.IsNegative() {
		return fmt.Errorf("VAT rate cannot be negative, got %s", c.VATRate.String())
	}
	return nil
}
