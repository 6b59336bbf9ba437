package parsers

import "fmt"

// ParseStats accumulates the soft conditions absorbed while parsing a
// document. None of these abort the pipeline; they are surfaced on the
// result so callers can decide how loudly to report them.
type ParseStats struct {
	PagesParsed        int `json:"pages_parsed"`
	ItemsParsed        int `json:"items_parsed"`
	BlankRowsSkipped   int `json:"blank_rows_skipped"`
	CreditNotesSkipped int `json:"credit_notes_skipped"`
	GroupingRows       int `json:"grouping_rows"`
	PagesWithoutHeader int `json:"pages_without_header"`
	CoercedCells       int `json:"coerced_cells"`
}

// Merge adds other's counts into ps.
func (ps *ParseStats) Merge(other *ParseStats) {
	if other == nil {
		return
	}
	ps.PagesParsed += other.PagesParsed
	ps.ItemsParsed += other.ItemsParsed
	ps.BlankRowsSkipped += other.BlankRowsSkipped
	ps.CreditNotesSkipped += other.CreditNotesSkipped
	ps.GroupingRows += other.GroupingRows
	ps.PagesWithoutHeader += other.PagesWithoutHeader
	ps.CoercedCells += other.CoercedCells
}

// HasWarnings reports whether any soft condition occurred.
func (ps *ParseStats) HasWarnings() bool {
	return ps.PagesWithoutHeader > 0 || ps.CoercedCells > 0
}

func (ps *ParseStats) String() string {
	return fmt.Sprintf("Parsed %d pages, %d items (%d credit notes skipped, %d pages without header, %d cells coerced)",
		ps.PagesParsed, ps.ItemsParsed, ps.CreditNotesSkipped, ps.PagesWithoutHeader, ps.CoercedCells)
}
