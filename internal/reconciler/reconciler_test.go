package reconciler

import (
	"testing"

	"github.com/shopspring/decimal"

	"invoice-ledger-reconciler/internal/matcher"
	"invoice-ledger-reconciler/internal/models"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func createTestItem(reg, total string) models.LineItem {
	return models.LineItem{
		Registration: reg,
		LineTotal:    dec(total),
	}
}

func createTestEntry(reg, amount string) models.LedgerEntry {
	return models.LedgerEntry{
		Registration: reg,
		Amount:       dec(amount),
	}
}

func findRow(t *testing.T, rows []models.ComparisonRow, reg string) models.ComparisonRow {
	t.Helper()
	for _, r := range rows {
		if r.Registration == reg {
			return r
		}
	}
	t.Fatalf("no row for registration %q", reg)
	return models.ComparisonRow{}
}

func TestReconcileMatchedGroups(t *testing.T) {
	items := []models.LineItem{
		createTestItem("AB1234CD", "60"),
		createTestItem("AB1234CD", "40"),
		createTestItem("EF5678GH", "200"),
	}
	entries := []models.LedgerEntry{
		createTestEntry("AB1234CD", "100"),
		createTestEntry("EF5678GH", "200"),
	}

	engine, err := NewEngine(nil)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	result, err := engine.Reconcile(items, entries)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	if len(result.Rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(result.Rows))
	}
	for _, row := range result.Rows {
		if row.Status != models.StatusMatch {
			t.Errorf("row %s Status = %s, want %s", row.Registration, row.Status, models.StatusMatch)
		}
	}
	// Matched rows must not get candidate explanations.
	if len(result.Candidates) != 0 {
		t.Errorf("got candidates for matched rows: %v", result.Candidates)
	}
	if result.MatchedRows() != 2 {
		t.Errorf("MatchedRows() = %d, want 2", result.MatchedRows())
	}
	if result.MatchRatio() != 1.0 {
		t.Errorf("MatchRatio() = %g, want 1.0", result.MatchRatio())
	}
}

func TestReconcileOuterJoin(t *testing.T) {
	// Document-only and ledger-only registrations both get rows with the
	// absent side reading zero.
	items := []models.LineItem{createTestItem("AB1234CD", "150")}
	entries := []models.LedgerEntry{createTestEntry("ZZ0000ZZ", "300")}

	engine, _ := NewEngine(nil)
	result, err := engine.Reconcile(items, entries)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	if len(result.Rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(result.Rows))
	}

	docOnly := findRow(t, result.Rows, "AB1234CD")
	if !docOnly.LedgerAmount.IsZero() {
		t.Errorf("document-only LedgerAmount = %s, want 0", docOnly.LedgerAmount)
	}
	if docOnly.Status != models.StatusDocumentGreater {
		t.Errorf("document-only Status = %s, want %s", docOnly.Status, models.StatusDocumentGreater)
	}

	ledgerOnly := findRow(t, result.Rows, "ZZ0000ZZ")
	if !ledgerOnly.DocumentAmount.IsZero() {
		t.Errorf("ledger-only DocumentAmount = %s, want 0", ledgerOnly.DocumentAmount)
	}
	if !ledgerOnly.Difference.Equal(dec("-300")) {
		t.Errorf("ledger-only Difference = %s, want -300", ledgerOnly.Difference)
	}
	if ledgerOnly.Status != models.StatusLedgerGreater {
		t.Errorf("ledger-only Status = %s, want %s", ledgerOnly.Status, models.StatusLedgerGreater)
	}

	// A ledger-only registration has no items to search: the difference
	// stays unexplained.
	if _, ok := result.Candidates["ZZ0000ZZ"]; ok {
		t.Error("candidates present for ledger-only registration")
	}
}

func TestReconcileToleranceBoundary(t *testing.T) {
	items := []models.LineItem{
		createTestItem("UNDER", "100.005"),
		createTestItem("EXACT", "100.01"),
	}
	entries := []models.LedgerEntry{
		createTestEntry("UNDER", "100"),
		createTestEntry("EXACT", "100"),
	}

	engine, _ := NewEngine(nil)
	result, err := engine.Reconcile(items, entries)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	if row := findRow(t, result.Rows, "UNDER"); row.Status != models.StatusMatch {
		t.Errorf("difference below tolerance: Status = %s, want %s", row.Status, models.StatusMatch)
	}
	// A difference of exactly the tolerance is a mismatch.
	if row := findRow(t, result.Rows, "EXACT"); row.Status != models.StatusDocumentGreater {
		t.Errorf("difference at tolerance: Status = %s, want %s", row.Status, models.StatusDocumentGreater)
	}
}

func TestReconcileCandidatesForMismatch(t *testing.T) {
	items := []models.LineItem{
		createTestItem("AB1234CD", "100"),
		createTestItem("AB1234CD", "80"),
	}
	entries := []models.LedgerEntry{createTestEntry("AB1234CD", "100")}

	engine, _ := NewEngine(nil)
	result, err := engine.Reconcile(items, entries)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	found, ok := result.Candidates["AB1234CD"]
	if !ok {
		t.Fatal("no candidates for mismatched registration")
	}
	if len(found) != 1 || found[0].Kind != matcher.KindExactSingle {
		t.Errorf("candidates = %v, want one exact single", found)
	}
	if !found[0].Sum.Equal(dec("100")) {
		t.Errorf("candidate Sum = %s, want 100", found[0].Sum)
	}
}

func TestReconcileSearchDisabled(t *testing.T) {
	items := []models.LineItem{createTestItem("AB1234CD", "150")}
	entries := []models.LedgerEntry{createTestEntry("AB1234CD", "100")}

	engine, _ := NewEngine(&Config{SearchCandidates: false})
	result, err := engine.Reconcile(items, entries)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if result.Candidates != nil {
		t.Errorf("Candidates = %v, want nil with search disabled", result.Candidates)
	}
}

func TestReconcileRegistrationTrimming(t *testing.T) {
	items := []models.LineItem{createTestItem(" AB1234CD ", "100")}
	entries := []models.LedgerEntry{createTestEntry("AB1234CD", "100")}

	engine, _ := NewEngine(nil)
	result, err := engine.Reconcile(items, entries)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if len(result.Rows) != 1 {
		t.Fatalf("got %d rows, want 1: trimming must unify keys", len(result.Rows))
	}
	if result.Rows[0].Status != models.StatusMatch {
		t.Errorf("Status = %s, want %s", result.Rows[0].Status, models.StatusMatch)
	}
}

func TestReconcileTotals(t *testing.T) {
	items := []models.LineItem{
		createTestItem("A", "100"),
		createTestItem("B", "250"),
	}
	entries := []models.LedgerEntry{
		createTestEntry("A", "100"),
		createTestEntry("C", "50"),
	}

	engine, _ := NewEngine(nil)
	result, err := engine.Reconcile(items, entries)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	if !result.TotalDocument.Equal(dec("350")) {
		t.Errorf("TotalDocument = %s, want 350", result.TotalDocument)
	}
	if !result.TotalLedger.Equal(dec("150")) {
		t.Errorf("TotalLedger = %s, want 150", result.TotalLedger)
	}
	if !result.TotalDifference.Equal(dec("200")) {
		t.Errorf("TotalDifference = %s, want 200", result.TotalDifference)
	}
}

func TestReconcileRowOrderDeterministic(t *testing.T) {
	items := []models.LineItem{
		createTestItem("BIG", "500"),
		createTestItem("SMALL", "110"),
		createTestItem("TIE1", "200"),
		createTestItem("TIE2", "200"),
	}
	entries := []models.LedgerEntry{
		createTestEntry("BIG", "100"),
		createTestEntry("SMALL", "100"),
		createTestEntry("TIE1", "150"),
		createTestEntry("TIE2", "150"),
	}

	engine, _ := NewEngine(nil)
	first, err := engine.Reconcile(items, entries)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	wantOrder := []string{"BIG", "TIE1", "TIE2", "SMALL"}
	for i, reg := range wantOrder {
		if first.Rows[i].Registration != reg {
			t.Errorf("row %d = %q, want %q", i, first.Rows[i].Registration, reg)
		}
	}

	// Rerunning on the same inputs reproduces the rows exactly.
	second, err := engine.Reconcile(items, entries)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	for i := range first.Rows {
		if first.Rows[i].Registration != second.Rows[i].Registration {
			t.Errorf("row %d differs between runs: %q vs %q",
				i, first.Rows[i].Registration, second.Rows[i].Registration)
		}
	}
	if first.RunID == second.RunID {
		t.Error("RunID repeated across runs")
	}
}

func TestReconcileEmptyInputs(t *testing.T) {
	engine, _ := NewEngine(nil)
	result, err := engine.Reconcile(nil, nil)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if len(result.Rows) != 0 {
		t.Errorf("got %d rows, want 0", len(result.Rows))
	}
	if result.MatchRatio() != 0 {
		t.Errorf("MatchRatio() = %g, want 0", result.MatchRatio())
	}
}
