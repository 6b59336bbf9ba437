package parsers

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"invoice-ledger-reconciler/internal/models"
	"invoice-ledger-reconciler/internal/numfmt"
	apperrors "invoice-ledger-reconciler/pkg/errors"
)

// The summary table has a fixed shape: the second row carries the combined
// "pre-tax tax" figure in its third-from-last cell, the third row carries
// the post-tax total in its last cell. Anything else is a layout error,
// which aborts the whole document read: totals verification is the point of
// the extraction, there is no degraded mode.

// ExtractTotals pulls the three official aggregate figures from the final
// page's summary table. The returned totals carry a zero surcharge; see
// ExtractSurcharge.
func ExtractTotals(summary models.Table) (*models.DocumentTotals, error) {
	if len(summary) < 3 {
		return nil, apperrors.SummaryLayoutError(
			fmt.Sprintf("expected at least 3 rows, got %d", len(summary)), nil)
	}

	secondRow := summary[1]
	if len(secondRow) < 3 {
		return nil, apperrors.SummaryLayoutError(
			fmt.Sprintf("second row has %d cells, need at least 3", len(secondRow)), nil)
	}

	combined := secondRow[len(secondRow)-3]
	preRaw, taxRaw, found := strings.Cut(combined, " ")
	if !found {
		return nil, apperrors.SummaryLayoutError(
			fmt.Sprintf("combined pre-tax/tax cell %q has no separator", combined), nil)
	}

	preTax, err := numfmt.Parse(preRaw)
	if err != nil {
		return nil, apperrors.SummaryLayoutError("pre-tax figure unparseable", err)
	}
	tax, err := numfmt.Parse(taxRaw)
	if err != nil {
		return nil, apperrors.SummaryLayoutError("tax figure unparseable", err)
	}

	thirdRow := summary[2]
	if len(thirdRow) == 0 {
		return nil, apperrors.SummaryLayoutError("third row is empty", nil)
	}
	postTax, err := numfmt.Parse(thirdRow[len(thirdRow)-1])
	if err != nil {
		return nil, apperrors.SummaryLayoutError("post-tax figure unparseable", err)
	}

	return &models.DocumentTotals{
		PreTax:  preTax,
		Tax:     tax,
		PostTax: postTax,
	}, nil
}

// ExtractSurcharge sums the shipping/surcharge block: the first cell of the
// summary table's second row, a run of whitespace-separated numeric tokens.
func ExtractSurcharge(summary models.Table) (decimal.Decimal, error) {
	if len(summary) < 2 || len(summary[1]) == 0 {
		return decimal.Zero, apperrors.SummaryLayoutError("surcharge row missing", nil)
	}

	sum := decimal.Zero
	for _, token := range strings.Fields(summary[1][0]) {
		v, err := numfmt.Parse(token)
		if err != nil {
			return decimal.Zero, apperrors.SummaryLayoutError(
				fmt.Sprintf("surcharge token %q unparseable", token), err)
		}
		sum = sum.Add(v)
	}
	return sum, nil
}
