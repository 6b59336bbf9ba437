// Package reconciler is the top-level orchestrator: it aggregates invoice
// line items and ledger entries by registration, compares the two sides and
// explains mismatches through the candidate search.
package reconciler

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"invoice-ledger-reconciler/internal/matcher"
	"invoice-ledger-reconciler/internal/models"
	"invoice-ledger-reconciler/pkg/logger"
)

// Config holds the engine's options.
type Config struct {
	// SearchCandidates controls whether mismatched rows get the candidate
	// explanation search.
	SearchCandidates bool
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() *Config {
	return &Config{
		SearchCandidates: true,
	}
}

// Validate checks the configuration. Present for symmetry with the other
// component configs; there is currently nothing to reject.
func (c *Config) Validate() error {
	return nil
}

// Result is the complete outcome of one reconciliation run. Derived data:
// rerunning on unchanged inputs produces an identical result (except RunID
// and GeneratedAt).
type Result struct {
	RunID       uuid.UUID `json:"run_id"`
	GeneratedAt time.Time `json:"generated_at"`

	// Rows ordered by descending absolute difference, ties by ascending
	// registration.
	Rows []models.ComparisonRow `json:"rows"`

	// Candidates maps registrations of mismatched rows to their candidate
	// explanations. Registrations with no explanation possible (no invoice
	// items at all) are absent.
	Candidates map[string][]matcher.Candidate `json:"candidates,omitempty"`

	TotalDocument   decimal.Decimal `json:"total_document"`
	TotalLedger     decimal.Decimal `json:"total_ledger"`
	TotalDifference decimal.Decimal `json:"total_difference"`
}

// MatchedRows counts rows classified as matching.
func (r *Result) MatchedRows() int {
	n := 0
	for i := range r.Rows {
		if r.Rows[i].Status == models.StatusMatch {
			n++
		}
	}
	return n
}

// MatchRatio returns matched rows over total rows, zero when empty.
func (r *Result) MatchRatio() float64 {
	if len(r.Rows) == 0 {
		return 0
	}
	return float64(r.MatchedRows()) / float64(len(r.Rows))
}

// Engine performs reconciliation runs. Stateless between runs; every call
// to Reconcile is a fresh computation.
type Engine struct {
	config *Config
	logger logger.Logger
}

// NewEngine creates a reconciliation engine.
func NewEngine(config *Config) (*Engine, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine configuration: %w", err)
	}
	return &Engine{
		config: config,
		logger: logger.GetGlobalLogger().WithComponent("reconciler"),
	}, nil
}

// Reconcile compares the invoice line items against the ledger entries for
// one period. Both sides are group-summed by trimmed registration, outer-
// joined on the union of keys (absent side defaults to zero), classified
// against the tolerance, and mismatched rows are run through the candidate
// search over that registration's raw, ungrouped items.
func (e *Engine) Reconcile(items []models.LineItem, entries []models.LedgerEntry) (*Result, error) {
	documentSums := groupItems(items)
	ledgerSums := groupEntries(entries)

	// Union of both key sets: a registration present on either side gets a
	// row, with the absent side reading zero.
	keys := make(map[string]struct{}, len(documentSums)+len(ledgerSums))
	for k := range documentSums {
		keys[k] = struct{}{}
	}
	for k := range ledgerSums {
		keys[k] = struct{}{}
	}

	rows := make([]models.ComparisonRow, 0, len(keys))
	totalDocument := decimal.Zero
	totalLedger := decimal.Zero

	for key := range keys {
		docSum := documentSums[key]  // zero value when absent
		ledgerSum := ledgerSums[key] // zero value when absent
		difference := docSum.Sub(ledgerSum)

		rows = append(rows, models.ComparisonRow{
			Registration:   key,
			DocumentAmount: docSum,
			LedgerAmount:   ledgerSum,
			Difference:     difference,
			Status:         models.ClassifyDifference(difference),
		})

		totalDocument = totalDocument.Add(docSum)
		totalLedger = totalLedger.Add(ledgerSum)
	}

	sortRows(rows)

	result := &Result{
		RunID:           uuid.New(),
		GeneratedAt:     time.Now(),
		Rows:            rows,
		TotalDocument:   totalDocument,
		TotalLedger:     totalLedger,
		TotalDifference: totalDocument.Sub(totalLedger),
	}

	if e.config.SearchCandidates {
		result.Candidates = e.searchCandidates(rows, items, ledgerSums)
	}

	e.logger.WithFields(logger.Fields{
		"run_id":     result.RunID.String(),
		"rows":       len(rows),
		"matched":    result.MatchedRows(),
		"total_diff": result.TotalDifference.String(),
	}).Info("reconciliation complete")

	return result, nil
}

// searchCandidates runs the explanation search for every mismatched row.
// The search sees the registration's raw items in document order, not the
// grouped sum.
func (e *Engine) searchCandidates(rows []models.ComparisonRow, items []models.LineItem, ledgerSums map[string]decimal.Decimal) map[string][]matcher.Candidate {
	byKey := make(map[string][]models.LineItem)
	for _, item := range items {
		key := item.TrimmedRegistration()
		byKey[key] = append(byKey[key], item)
	}

	candidates := make(map[string][]matcher.Candidate)
	for i := range rows {
		row := &rows[i]
		if !row.IsMismatch() {
			continue
		}

		registrationItems := byKey[row.Registration]
		if len(registrationItems) == 0 {
			// Ledger-only registration: nothing to search, the whole
			// difference stays unexplained.
			continue
		}

		found := matcher.FindCandidates(registrationItems, ledgerSums[row.Registration])
		if len(found) > 0 {
			candidates[row.Registration] = found
		}
	}
	return candidates
}

// groupItems sums line totals by trimmed registration.
func groupItems(items []models.LineItem) map[string]decimal.Decimal {
	sums := make(map[string]decimal.Decimal)
	for i := range items {
		key := items[i].TrimmedRegistration()
		sums[key] = sums[key].Add(items[i].LineTotal)
	}
	return sums
}

// groupEntries sums amounts by trimmed registration.
func groupEntries(entries []models.LedgerEntry) map[string]decimal.Decimal {
	sums := make(map[string]decimal.Decimal)
	for i := range entries {
		key := entries[i].TrimmedRegistration()
		sums[key] = sums[key].Add(entries[i].Amount)
	}
	return sums
}

// sortRows orders rows by descending absolute difference, breaking ties by
// ascending registration so repeated runs produce identical output.
func sortRows(rows []models.ComparisonRow) {
	sort.Slice(rows, func(i, j int) bool {
		di := rows[i].Difference.Abs()
		dj := rows[j].Difference.Abs()
		if !di.Equal(dj) {
			return di.GreaterThan(dj)
		}
		return rows[i].Registration < rows[j].Registration
	})
}
