// Package numfmt converts region-formatted numeric strings to decimals.
// The source documents use the Spanish convention: period as thousands
// separator, comma as decimal separator ("1.399,5" means 1399.5).
package numfmt

import (
	"strings"

	"github.com/shopspring/decimal"

	apperrors "invoice-ledger-reconciler/pkg/errors"
)

// Parse converts a Spanish-formatted numeric string to a decimal. Thousands
// periods are removed and the decimal comma becomes a point before parsing.
// A trailing percent sign is not accepted here; callers with percent cells
// use ParsePercent. The empty string is an error, not zero: defaulting is a
// caller decision.
func Parse(s string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.ReplaceAll(cleaned, ".", "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")

	if cleaned == "" {
		return decimal.Zero, apperrors.NumericError(s, nil)
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, apperrors.NumericError(s, err)
	}
	return d, nil
}

// ParsePercent strips any percent signs before converting. Used for the
// discount column, where cells read like "15%".
func ParsePercent(s string) (decimal.Decimal, error) {
	return Parse(strings.ReplaceAll(s, "%", ""))
}

// ParseOrDefault converts s, substituting "0" for an empty cell first.
// A non-empty cell that fails conversion still returns the error.
func ParseOrDefault(s string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, nil
	}
	return Parse(s)
}
