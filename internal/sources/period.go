// Package sources implements the external collaborators the core consumes:
// the document table source (per-page CSV exports of the extraction step)
// and the ledger grid source (an XLSX workbook with one sheet per month).
package sources

import (
	"fmt"
	"strings"
)

// months in ledger order; worksheet titles start with these names.
var months = []string{
	"Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
	"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre",
}

// Period identifies one half-month section of the ledger: a month plus a
// fortnight number (1 or 2).
type Period struct {
	Month     string `json:"month"`
	Fortnight int    `json:"fortnight"`
}

// ParsePeriod parses the "Mayo - 1" form used in selections and flags.
func ParsePeriod(s string) (Period, error) {
	month, fortnight, found := strings.Cut(s, " - ")
	if !found {
		return Period{}, fmt.Errorf("invalid period %q: expected \"<month> - <fortnight>\"", s)
	}

	month = strings.TrimSpace(month)
	var n int
	switch strings.TrimSpace(fortnight) {
	case "1":
		n = 1
	case "2":
		n = 2
	default:
		return Period{}, fmt.Errorf("invalid fortnight in period %q: expected 1 or 2", s)
	}

	if month == "" {
		return Period{}, fmt.Errorf("invalid period %q: empty month", s)
	}
	return Period{Month: month, Fortnight: n}, nil
}

// String returns the canonical "Mayo - 1" form.
func (p Period) String() string {
	return fmt.Sprintf("%s - %d", p.Month, p.Fortnight)
}

// SectionLabel returns the anchor label of this period's section in the
// ledger sheet ("Quincena 1" / "Quincena 2").
func (p Period) SectionLabel() string {
	return fmt.Sprintf("Quincena %d", p.Fortnight)
}

// Periods lists every month-fortnight combination of a year.
func Periods() []string {
	out := make([]string, 0, len(months)*2)
	for _, m := range months {
		for _, f := range []int{1, 2} {
			out = append(out, Period{Month: m, Fortnight: f}.String())
		}
	}
	return out
}
