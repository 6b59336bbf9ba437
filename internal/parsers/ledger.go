package parsers

import (
	"strings"

	"invoice-ledger-reconciler/internal/models"
	"invoice-ledger-reconciler/internal/numfmt"
	"invoice-ledger-reconciler/pkg/logger"
)

// Ledger sheet layout: both fortnight sections sit side by side in one
// grid. Each section starts at an anchor cell whose text contains the
// section label ("Quincena 1" / "Quincena 2"); the registration column is
// anchor+2 and the amount column anchor+3, data starting two rows below the
// anchor (one sub-header row in between). The sheet has no explicit
// terminator: the section ends at the first row too short to hold both
// columns.

// LedgerSectionParser extracts one fortnight section from a full-period
// ledger grid.
type LedgerSectionParser struct {
	logger logger.Logger
}

// NewLedgerSectionParser creates a ledger section parser.
func NewLedgerSectionParser() *LedgerSectionParser {
	return &LedgerSectionParser{
		logger: logger.GetGlobalLogger().WithComponent("ledger_parser"),
	}
}

// ParseSection extracts the registration/amount pairs of the section whose
// anchor cell contains sectionLabel. A missing section is a soft failure:
// found is false and the entry slice empty. Rows with an empty amount cell
// are skipped (no amount means no entry, not a zero), as are rows whose
// amount fails numeric conversion.
func (p *LedgerSectionParser) ParseSection(grid models.Table, sectionLabel string) (entries []models.LedgerEntry, found bool) {
	anchorRow, anchorCol, ok := findAnchor(grid, sectionLabel)
	if !ok {
		p.logger.WithField("section", sectionLabel).Warn("section label not found in ledger grid")
		return nil, false
	}

	regCol := anchorCol + 2
	amtCol := anchorCol + 3

	for i := anchorRow + 2; i < len(grid); i++ {
		row := grid[i]
		if len(row) <= amtCol {
			break
		}

		amountRaw := strings.TrimSpace(row[amtCol])
		if amountRaw == "" {
			continue
		}

		amount, err := numfmt.Parse(amountRaw)
		if err != nil {
			p.logger.WithFields(logger.Fields{
				"row":   i + 1,
				"value": amountRaw,
			}).Debug("skipping ledger row with unparseable amount")
			continue
		}

		entries = append(entries, models.LedgerEntry{
			Registration: strings.TrimSpace(row[regCol]),
			Amount:       amount,
		})
	}

	p.logger.WithFields(logger.Fields{
		"section": sectionLabel,
		"entries": len(entries),
	}).Info("ledger section parsed")

	return entries, true
}

// findAnchor locates the first cell whose text contains the section label,
// scanning rows top to bottom, cells left to right.
func findAnchor(grid models.Table, label string) (row, col int, ok bool) {
	for i, r := range grid {
		for j, cell := range r {
			if strings.Contains(cell, label) {
				return i, j, true
			}
		}
	}
	return 0, 0, false
}
