// Package parsers turns raw cell matrices into typed invoice and ledger
// records. The table sources (CSV page exports, XLSX grids) live in
// internal/sources; this package only sees in-memory tables.
package parsers

import (
	"strings"

	"github.com/shopspring/decimal"

	"invoice-ledger-reconciler/internal/models"
	"invoice-ledger-reconciler/internal/numfmt"
	apperrors "invoice-ledger-reconciler/pkg/errors"
	"invoice-ledger-reconciler/pkg/logger"
)

// LineItemParser extracts invoice line items from one page's table.
type LineItemParser struct {
	config *Config
	logger logger.Logger
}

// NewLineItemParser creates a parser with the given marker configuration.
func NewLineItemParser(config *Config) (*LineItemParser, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, apperrors.ConfigurationError("parser", config, err)
	}
	return &LineItemParser{
		config: config,
		logger: logger.GetGlobalLogger().WithComponent("lineitem_parser"),
	}, nil
}

// groupContext is the accumulator carried across rows: the registration and
// delivery reference announced by the closest grouping row above. Parsing is
// an explicit fold over the row sequence with this as state, so the whole
// transformation stays a pure function of the table.
type groupContext struct {
	registration string
	deliveryRef  string
}

// ParsePage extracts the line items of one page. page is 1-based and only
// used for stats and error context.
//
// A page without a header row contributes zero items; that is a soft
// condition (cover pages legitimately have no item table) recorded in the
// stats, not an error.
func (p *LineItemParser) ParsePage(page int, table models.Table) ([]models.LineItem, *ParseStats, error) {
	stats := &ParseStats{PagesParsed: 1}

	headerIdx := p.findHeaderRow(table)
	if headerIdx < 0 {
		stats.PagesWithoutHeader++
		p.logger.WithField("page", page).Warnf("no header row with %q found, page contributes zero items", p.config.HeaderMarker)
		return nil, stats, nil
	}

	var items []models.LineItem
	ctx := groupContext{}

	for i := headerIdx + 1; i < len(table); i++ {
		row := table[i]

		if row.IsEmpty() {
			stats.BlankRowsSkipped++
			continue
		}

		if p.isCreditNote(row) {
			stats.CreditNotesSkipped++
			continue
		}

		if next, ok := p.parseGroupingRow(row, ctx); ok {
			ctx = next
			stats.GroupingRows++
			continue
		}

		item, err := p.parseDataRow(page, i+1, row, ctx, stats)
		if err != nil {
			return nil, stats, err
		}
		items = append(items, item)
		stats.ItemsParsed++
	}

	return items, stats, nil
}

// findHeaderRow returns the index of the first row containing a cell exactly
// equal to the header marker, or -1.
func (p *LineItemParser) findHeaderRow(table models.Table) int {
	for i, row := range table {
		for _, cell := range row {
			if cell == p.config.HeaderMarker {
				return i
			}
		}
	}
	return -1
}

// isCreditNote reports whether any cell contains the credit-note marker.
// Credit notes are excluded from reconciliation entirely, not merely hidden.
func (p *LineItemParser) isCreditNote(row models.Row) bool {
	for _, cell := range row {
		if strings.Contains(cell, p.config.CreditNoteMarker) {
			return true
		}
	}
	return false
}

// parseGroupingRow recognizes a grouping-context row: one cell starting with
// the reference prefix and one starting with the registration prefix. It
// returns the updated context and true, or the zero value and false.
func (p *LineItemParser) parseGroupingRow(row models.Row, current groupContext) (groupContext, bool) {
	refCell, regCell := "", ""
	for _, cell := range row {
		if refCell == "" && strings.HasPrefix(cell, p.config.ReferencePrefix) {
			refCell = cell
		}
		if regCell == "" && strings.HasPrefix(cell, p.config.RegistrationPrefix) {
			regCell = cell
		}
	}
	if refCell == "" || regCell == "" {
		return current, false
	}

	next := current
	if fields := strings.Fields(refCell); len(fields) > 0 {
		next.deliveryRef = fields[len(fields)-1]
	}
	if _, after, found := strings.Cut(regCell, ":"); found {
		next.registration = strings.TrimSpace(after)
	}
	return next, true
}

// parseDataRow builds a LineItem from a positional data row. Quantity, unit
// price and discount coerce to zero when empty or corrupt (counted in
// stats); the line total is load-bearing, so a supplied but corrupt value is
// a hard error carrying page and row context.
func (p *LineItemParser) parseDataRow(page, rowNum int, row models.Row, ctx groupContext, stats *ParseStats) (models.LineItem, error) {
	item := models.LineItem{
		Registration: ctx.registration,
		DeliveryRef:  ctx.deliveryRef,
		ArticleCode:  row.Cell(colArticle),
		Description:  row.Cell(colDescription),
	}

	item.Quantity = p.coercedDecimal(page, rowNum, colQuantity, row.Cell(colQuantity), stats)
	item.UnitPrice = p.coercedDecimal(page, rowNum, colUnitPrice, row.Cell(colUnitPrice), stats)

	discount, err := numfmt.ParsePercent(orZero(row.Cell(colDiscount)))
	if err != nil {
		p.warnCoerced(page, rowNum, colDiscount, row.Cell(colDiscount), stats)
	} else {
		item.DiscountPct = discount
	}

	total, err := numfmt.ParseOrDefault(row.Cell(colLineTotal))
	if err != nil {
		return models.LineItem{}, apperrors.CellError(page, rowNum, colLineTotal, row.Cell(colLineTotal), err)
	}
	item.LineTotal = total

	return item, nil
}

func (p *LineItemParser) coercedDecimal(page, rowNum, col int, value string, stats *ParseStats) decimal.Decimal {
	parsed, err := numfmt.ParseOrDefault(value)
	if err != nil {
		p.warnCoerced(page, rowNum, col, value, stats)
		return decimal.Zero
	}
	return parsed
}

func (p *LineItemParser) warnCoerced(page, rowNum, col int, value string, stats *ParseStats) {
	stats.CoercedCells++
	p.logger.WithFields(logger.Fields{
		"page":   page,
		"row":    rowNum,
		"column": col,
		"value":  value,
	}).Warn("unparseable numeric cell coerced to zero")
}

func orZero(s string) string {
	if strings.TrimSpace(s) == "" {
		return "0"
	}
	return s
}
