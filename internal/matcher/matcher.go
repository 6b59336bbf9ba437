// Package matcher implements the candidate-explanation search run for
// registrations whose invoice and ledger sums disagree. It is a bounded
// brute-force search: invoice line counts per registration are small in
// practice, so nothing beyond exhaustive scans is needed.
package matcher

import (
	"fmt"

	"github.com/shopspring/decimal"

	"invoice-ledger-reconciler/internal/models"
)

// CandidateKind distinguishes the three explanation tiers.
type CandidateKind string

const (
	// KindExactSingle: one item's line total matches the ledger amount.
	KindExactSingle CandidateKind = "exact_single"
	// KindExactPair: two items' summed line totals match the ledger amount.
	KindExactPair CandidateKind = "exact_pair"
	// KindClosest: no exact explanation; the item nearest the ledger amount.
	KindClosest CandidateKind = "closest"
)

// Candidate is one plausible explanation for a discrepancy. Items holds one
// entry for single/closest candidates and two for pairs. Difference is the
// residual: candidate sum minus the ledger amount.
type Candidate struct {
	Kind       CandidateKind     `json:"kind"`
	Items      []models.LineItem `json:"items"`
	Sum        decimal.Decimal   `json:"sum"`
	Difference decimal.Decimal   `json:"difference"`
}

func (c *Candidate) String() string {
	return fmt.Sprintf("Candidate{%s, Sum: %s, Diff: %s}",
		c.Kind, c.Sum.String(), c.Difference.String())
}

// FindCandidates searches one registration's line items for explanations of
// its ledger amount. Tiers are tried in fixed priority order and the first
// non-empty tier wins: all exact single matches, else all exact pairs, else
// the single closest item. Candidate explanations are plausible, not ground
// truth; the caller reports them as such.
//
// A zero target returns nil (nothing to explain), as does an empty item
// list (a ledger-only registration has nothing to search).
func FindCandidates(items []models.LineItem, target decimal.Decimal) []Candidate {
	if target.IsZero() || len(items) == 0 {
		return nil
	}

	if singles := exactSingles(items, target); len(singles) > 0 {
		return singles
	}
	if pairs := exactPairs(items, target); len(pairs) > 0 {
		return pairs
	}
	return []Candidate{closest(items, target)}
}

// exactSingles returns every item whose line total is within tolerance of
// the target.
func exactSingles(items []models.LineItem, target decimal.Decimal) []Candidate {
	var found []Candidate
	for _, item := range items {
		if models.WithinTolerance(item.LineTotal, target) {
			found = append(found, Candidate{
				Kind:       KindExactSingle,
				Items:      []models.LineItem{item},
				Sum:        item.LineTotal,
				Difference: item.LineTotal.Sub(target),
			})
		}
	}
	return found
}

// exactPairs returns every unordered pair of distinct items whose summed
// line totals are within tolerance of the target. All C(n,2) combinations
// are checked.
func exactPairs(items []models.LineItem, target decimal.Decimal) []Candidate {
	if len(items) < 2 {
		return nil
	}

	var found []Candidate
	for i := 0; i < len(items); i++ {
		for j := i + 1; j < len(items); j++ {
			sum := items[i].LineTotal.Add(items[j].LineTotal)
			if models.WithinTolerance(sum, target) {
				found = append(found, Candidate{
					Kind:       KindExactPair,
					Items:      []models.LineItem{items[i], items[j]},
					Sum:        sum,
					Difference: sum.Sub(target),
				})
			}
		}
	}
	return found
}

// closest returns the item whose line total has the smallest absolute
// difference from the target. Ties go to the earliest item in input order.
func closest(items []models.LineItem, target decimal.Decimal) Candidate {
	best := 0
	bestDiff := items[0].LineTotal.Sub(target).Abs()
	for i := 1; i < len(items); i++ {
		diff := items[i].LineTotal.Sub(target).Abs()
		if diff.LessThan(bestDiff) {
			best = i
			bestDiff = diff
		}
	}

	item := items[best]
	return Candidate{
		Kind:       KindClosest,
		Items:      []models.LineItem{item},
		Sum:        item.LineTotal,
		Difference: item.LineTotal.Sub(target),
	}
}
