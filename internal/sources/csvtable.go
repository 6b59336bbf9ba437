package sources

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"sort"

	"invoice-ledger-reconciler/internal/models"
	apperrors "invoice-ledger-reconciler/pkg/errors"
)

// summaryFile is the fixed name of the final page's summary table export.
const summaryFile = "summary.csv"

// CSVDocumentSource reads a document exported as one CSV cell matrix per
// page (page-01.csv, page-02.csv, ...) plus a summary.csv for the final
// page's summary table. Page order follows the lexical order of the file
// names, which the exporter zero-pads.
type CSVDocumentSource struct {
	dir   string
	pages []string
}

// NewCSVDocumentSource scans dir for page exports.
func NewCSVDocumentSource(dir string) (*CSVDocumentSource, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "page-*.csv"))
	if err != nil {
		return nil, apperrors.FileError(apperrors.CodeFileUnreadable, dir, err)
	}
	if len(matches) == 0 {
		return nil, apperrors.FileError(apperrors.CodeFileNotFound,
			filepath.Join(dir, "page-*.csv"), nil)
	}
	sort.Strings(matches)

	summaryPath := filepath.Join(dir, summaryFile)
	if _, err := os.Stat(summaryPath); err != nil {
		return nil, apperrors.FileError(apperrors.CodeFileNotFound, summaryPath, err)
	}

	return &CSVDocumentSource{dir: dir, pages: matches}, nil
}

// PageCount returns the number of page exports found.
func (s *CSVDocumentSource) PageCount() int {
	return len(s.pages)
}

// PageTable reads the table of the given 1-based page.
func (s *CSVDocumentSource) PageTable(page int) (models.Table, error) {
	if page < 1 || page > len(s.pages) {
		return nil, apperrors.New(apperrors.CategoryDocument, apperrors.CodeMissingPage,
			"page index out of range").WithContext("page", page)
	}
	return readTable(s.pages[page-1])
}

// SummaryTable reads the summary table export.
func (s *CSVDocumentSource) SummaryTable() (models.Table, error) {
	return readTable(filepath.Join(s.dir, summaryFile))
}

// readTable reads a whole CSV file as a cell matrix. Rows may have varying
// widths; blank cells are empty strings, matching the table contract.
func readTable(path string) (models.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.FileError(apperrors.CodeFileNotFound, path, err)
		}
		return nil, apperrors.FileError(apperrors.CodeFileUnreadable, path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, apperrors.FileError(apperrors.CodeFileUnreadable, path, err)
	}

	table := make(models.Table, len(records))
	for i, record := range records {
		table[i] = models.Row(record)
	}
	return table, nil
}
