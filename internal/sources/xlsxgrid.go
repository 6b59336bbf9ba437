package sources

import (
	"strings"

	"github.com/xuri/excelize/v2"

	"invoice-ledger-reconciler/internal/models"
	apperrors "invoice-ledger-reconciler/pkg/errors"
)

// LedgerWorkbook wraps an XLSX workbook holding one ledger sheet per month.
// Sheet titles start with the month name ("Mayo 2025"), so lookup is a
// case-insensitive prefix match.
type LedgerWorkbook struct {
	file *excelize.File
}

// OpenLedgerWorkbook opens the workbook at path.
func OpenLedgerWorkbook(path string) (*LedgerWorkbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apperrors.FileError(apperrors.CodeFileUnreadable, path, err)
	}
	return &LedgerWorkbook{file: f}, nil
}

// Close releases the workbook.
func (w *LedgerWorkbook) Close() error {
	return w.file.Close()
}

// FindMonthSheet returns the first sheet whose title starts with the month
// name, case-insensitively. A missing sheet is reported as found=false, not
// an error; the caller decides whether that is fatal.
func (w *LedgerWorkbook) FindMonthSheet(month string) (string, bool) {
	prefix := strings.ToLower(strings.TrimSpace(month))
	for _, name := range w.file.GetSheetList() {
		if strings.HasPrefix(strings.ToLower(name), prefix) {
			return name, true
		}
	}
	return "", false
}

// Grid returns the full cell matrix of the named sheet. Excelize trims
// trailing empty cells per row, which matches the ledger section parser's
// short-row sentinel: a row without the amount column ends the section.
func (w *LedgerWorkbook) Grid(sheet string) (models.Table, error) {
	rows, err := w.file.GetRows(sheet)
	if err != nil {
		return nil, apperrors.LedgerError(apperrors.CodeGridUnreadable, sheet, err)
	}

	table := make(models.Table, len(rows))
	for i, row := range rows {
		table[i] = models.Row(row)
	}
	return table, nil
}

// PeriodGrid looks up the sheet for the period's month and returns its
// grid. A missing sheet is a hard error here since nothing downstream can
// run without the grid.
func (w *LedgerWorkbook) PeriodGrid(period Period) (models.Table, error) {
	sheet, found := w.FindMonthSheet(period.Month)
	if !found {
		return nil, apperrors.LedgerError(apperrors.CodeWorksheetNotFound, period.Month, nil)
	}
	return w.Grid(sheet)
}
