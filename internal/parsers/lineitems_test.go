package parsers

import (
	"testing"

	"github.com/shopspring/decimal"

	"invoice-ledger-reconciler/internal/models"
)

func createTestPage() models.Table {
	return models.Table{
		{"Factura 2024-051", "", "", "", "", ""},
		{"Artículo", "Descripción", "Cantidad", "Precio", "Dto.", "Importe"},
		{"ALBARAN 000999", "A:AB1234CD", "", "", "", ""},
		{"P-100", "Filtro de aceite", "2", "12,50", "", "25,00"},
		{"P-200", "Pastillas de freno", "1", "1.399,50", "10%", "1.259,55"},
	}
}

func TestParsePageGroupingContext(t *testing.T) {
	parser, err := NewLineItemParser(nil)
	if err != nil {
		t.Fatalf("NewLineItemParser() error = %v", err)
	}

	items, stats, err := parser.ParsePage(1, createTestPage())
	if err != nil {
		t.Fatalf("ParsePage() error = %v", err)
	}

	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	for i, item := range items {
		if item.Registration != "AB1234CD" {
			t.Errorf("item %d Registration = %q, want %q", i, item.Registration, "AB1234CD")
		}
		if item.DeliveryRef != "000999" {
			t.Errorf("item %d DeliveryRef = %q, want %q", i, item.DeliveryRef, "000999")
		}
	}

	if !items[0].LineTotal.Equal(decimal.RequireFromString("25.00")) {
		t.Errorf("item 0 LineTotal = %s, want 25.00", items[0].LineTotal)
	}
	if !items[1].LineTotal.Equal(decimal.RequireFromString("1259.55")) {
		t.Errorf("item 1 LineTotal = %s, want 1259.55", items[1].LineTotal)
	}
	if !items[1].DiscountPct.Equal(decimal.RequireFromString("10")) {
		t.Errorf("item 1 DiscountPct = %s, want 10", items[1].DiscountPct)
	}

	if stats.GroupingRows != 1 {
		t.Errorf("GroupingRows = %d, want 1", stats.GroupingRows)
	}
	if stats.ItemsParsed != 2 {
		t.Errorf("ItemsParsed = %d, want 2", stats.ItemsParsed)
	}
}

func TestParsePageContextChanges(t *testing.T) {
	table := models.Table{
		{"Artículo", "Descripción", "Cantidad", "Precio", "Dto.", "Importe"},
		{"ALBARAN 000111", "A:AA1111AA", "", "", "", ""},
		{"P-1", "Primera", "1", "10,00", "", "10,00"},
		{"ALBARAN 000222", "A:BB2222BB", "", "", "", ""},
		{"P-2", "Segunda", "1", "20,00", "", "20,00"},
		{"P-3", "Tercera", "1", "30,00", "", "30,00"},
	}

	parser, _ := NewLineItemParser(nil)
	items, _, err := parser.ParsePage(1, table)
	if err != nil {
		t.Fatalf("ParsePage() error = %v", err)
	}

	if len(items) != 3 {
		t.Fatalf("got %d items, want 3", len(items))
	}
	want := []struct{ reg, ref string }{
		{"AA1111AA", "000111"},
		{"BB2222BB", "000222"},
		{"BB2222BB", "000222"},
	}
	for i, w := range want {
		if items[i].Registration != w.reg {
			t.Errorf("item %d Registration = %q, want %q", i, items[i].Registration, w.reg)
		}
		if items[i].DeliveryRef != w.ref {
			t.Errorf("item %d DeliveryRef = %q, want %q", i, items[i].DeliveryRef, w.ref)
		}
	}
}

func TestParsePageCreditNoteExcluded(t *testing.T) {
	table := models.Table{
		{"Artículo", "Descripción", "Cantidad", "Precio", "Dto.", "Importe"},
		{"ALBARAN 000999", "A:AB1234CD", "", "", "", ""},
		{"P-100", "Filtro de aceite", "2", "12,50", "", "25,00"},
		{"P-300", "ABONO por devolución", "1", "-12,50", "", "-12,50"},
	}

	parser, _ := NewLineItemParser(nil)
	items, stats, err := parser.ParsePage(1, table)
	if err != nil {
		t.Fatalf("ParsePage() error = %v", err)
	}

	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
	if items[0].ArticleCode != "P-100" {
		t.Errorf("surviving item = %q, want P-100", items[0].ArticleCode)
	}
	if stats.CreditNotesSkipped != 1 {
		t.Errorf("CreditNotesSkipped = %d, want 1", stats.CreditNotesSkipped)
	}
}

func TestParsePageWithoutHeader(t *testing.T) {
	table := models.Table{
		{"Portada", ""},
		{"Condiciones generales", ""},
	}

	parser, _ := NewLineItemParser(nil)
	items, stats, err := parser.ParsePage(1, table)
	if err != nil {
		t.Fatalf("ParsePage() error = %v", err)
	}
	if len(items) != 0 {
		t.Errorf("got %d items, want 0", len(items))
	}
	if stats.PagesWithoutHeader != 1 {
		t.Errorf("PagesWithoutHeader = %d, want 1", stats.PagesWithoutHeader)
	}
}

func TestParsePageHeaderNeedsExactCell(t *testing.T) {
	// A cell merely containing the marker text is not a header row.
	table := models.Table{
		{"Listado de Artículos", "", "", "", "", ""},
		{"P-100", "Filtro", "1", "10,00", "", "10,00"},
	}

	parser, _ := NewLineItemParser(nil)
	items, stats, err := parser.ParsePage(1, table)
	if err != nil {
		t.Fatalf("ParsePage() error = %v", err)
	}
	if len(items) != 0 {
		t.Errorf("got %d items, want 0", len(items))
	}
	if stats.PagesWithoutHeader != 1 {
		t.Errorf("PagesWithoutHeader = %d, want 1", stats.PagesWithoutHeader)
	}
}

func TestParsePageCoercesCorruptCells(t *testing.T) {
	table := models.Table{
		{"Artículo", "Descripción", "Cantidad", "Precio", "Dto.", "Importe"},
		{"ALBARAN 000999", "A:AB1234CD", "", "", "", ""},
		{"P-100", "Filtro", "N/A", "abc", "??", "25,00"},
	}

	parser, _ := NewLineItemParser(nil)
	items, stats, err := parser.ParsePage(1, table)
	if err != nil {
		t.Fatalf("ParsePage() error = %v", err)
	}

	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
	item := items[0]
	if !item.Quantity.IsZero() || !item.UnitPrice.IsZero() || !item.DiscountPct.IsZero() {
		t.Errorf("corrupt cells not coerced to zero: qty=%s price=%s discount=%s",
			item.Quantity, item.UnitPrice, item.DiscountPct)
	}
	if !item.LineTotal.Equal(decimal.RequireFromString("25.00")) {
		t.Errorf("LineTotal = %s, want 25.00", item.LineTotal)
	}
	if stats.CoercedCells != 3 {
		t.Errorf("CoercedCells = %d, want 3", stats.CoercedCells)
	}
}

func TestParsePageCorruptLineTotalFails(t *testing.T) {
	table := models.Table{
		{"Artículo", "Descripción", "Cantidad", "Precio", "Dto.", "Importe"},
		{"ALBARAN 000999", "A:AB1234CD", "", "", "", ""},
		{"P-100", "Filtro", "1", "10,00", "", "not a number"},
	}

	parser, _ := NewLineItemParser(nil)
	_, _, err := parser.ParsePage(3, table)
	if err == nil {
		t.Fatal("expected error for corrupt line total, got nil")
	}
}

func TestParsePageEmptyLineTotalDefaultsToZero(t *testing.T) {
	table := models.Table{
		{"Artículo", "Descripción", "Cantidad", "Precio", "Dto.", "Importe"},
		{"ALBARAN 000999", "A:AB1234CD", "", "", "", ""},
		{"P-100", "Filtro", "1", "10,00", "", ""},
	}

	parser, _ := NewLineItemParser(nil)
	items, _, err := parser.ParsePage(1, table)
	if err != nil {
		t.Fatalf("ParsePage() error = %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
	if !items[0].LineTotal.IsZero() {
		t.Errorf("LineTotal = %s, want 0", items[0].LineTotal)
	}
}

func TestParsePageBlankRowsSkipped(t *testing.T) {
	table := models.Table{
		{"Artículo", "Descripción", "Cantidad", "Precio", "Dto.", "Importe"},
		{"", "", "", "", "", ""},
		{"ALBARAN 000999", "A:AB1234CD", "", "", "", ""},
		{},
		{"P-100", "Filtro", "1", "10,00", "", "10,00"},
	}

	parser, _ := NewLineItemParser(nil)
	items, stats, err := parser.ParsePage(1, table)
	if err != nil {
		t.Fatalf("ParsePage() error = %v", err)
	}
	if len(items) != 1 {
		t.Errorf("got %d items, want 1", len(items))
	}
	if stats.BlankRowsSkipped != 2 {
		t.Errorf("BlankRowsSkipped = %d, want 2", stats.BlankRowsSkipped)
	}
}

func TestParsePageItemsBeforeGroupingRow(t *testing.T) {
	// Data rows above the first grouping row carry empty context.
	table := models.Table{
		{"Artículo", "Descripción", "Cantidad", "Precio", "Dto.", "Importe"},
		{"P-100", "Filtro", "1", "10,00", "", "10,00"},
	}

	parser, _ := NewLineItemParser(nil)
	items, _, err := parser.ParsePage(1, table)
	if err != nil {
		t.Fatalf("ParsePage() error = %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
	if items[0].Registration != "" || items[0].DeliveryRef != "" {
		t.Errorf("context = (%q, %q), want empty", items[0].Registration, items[0].DeliveryRef)
	}
}
