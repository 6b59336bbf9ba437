package parsers

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"invoice-ledger-reconciler/internal/models"
	apperrors "invoice-ledger-reconciler/pkg/errors"
	"invoice-ledger-reconciler/pkg/logger"
)

// DocumentSource supplies the cell matrices of one invoice document. The
// extraction step that produces them (PDF table detection, exports) is a
// collaborator; this package only consumes its output.
type DocumentSource interface {
	// PageCount returns the number of pages in the document.
	PageCount() int
	// PageTable returns the table of the given 1-based page.
	PageTable(page int) (models.Table, error)
	// SummaryTable returns the final page's summary table.
	SummaryTable() (models.Table, error)
}

// Verification holds the advisory cross-check between figures computed from
// the parsed items and the figures printed on the document. Divergence is
// reported, never enforced.
type Verification struct {
	ComputedPreTax  decimal.Decimal `json:"computed_pre_tax"`
	ComputedTax     decimal.Decimal `json:"computed_tax"`
	ComputedPostTax decimal.Decimal `json:"computed_post_tax"`

	// The same figures with the surcharge folded into the base.
	SurchargedPreTax  decimal.Decimal `json:"surcharged_pre_tax"`
	SurchargedTax     decimal.Decimal `json:"surcharged_tax"`
	SurchargedPostTax decimal.Decimal `json:"surcharged_post_tax"`

	// Computed minus extracted.
	PreTaxDivergence  decimal.Decimal `json:"pre_tax_divergence"`
	TaxDivergence     decimal.Decimal `json:"tax_divergence"`
	PostTaxDivergence decimal.Decimal `json:"post_tax_divergence"`
}

// Diverges reports whether any computed figure differs from the extracted
// one by the tolerance or more.
func (v *Verification) Diverges() bool {
	return !models.WithinTolerance(v.PreTaxDivergence, decimal.Zero) ||
		!models.WithinTolerance(v.TaxDivergence, decimal.Zero) ||
		!models.WithinTolerance(v.PostTaxDivergence, decimal.Zero)
}

// DocumentResult is the full outcome of parsing one document.
type DocumentResult struct {
	Items        []models.LineItem      `json:"items"`
	Totals       *models.DocumentTotals `json:"totals"`
	Verification *Verification          `json:"verification"`
	Stats        *ParseStats            `json:"stats"`
}

// Aggregator drives per-page parsing across a whole document and extracts
// and verifies the document totals.
type Aggregator struct {
	config *Config
	parser *LineItemParser
	logger logger.Logger

	// Concurrency is the maximum number of pages parsed in parallel. Values
	// below 2 mean sequential parsing. Output order is restored by page
	// number either way.
	Concurrency int
}

// NewAggregator creates an aggregator with the given marker configuration.
func NewAggregator(config *Config) (*Aggregator, error) {
	if config == nil {
		config = DefaultConfig()
	}
	parser, err := NewLineItemParser(config)
	if err != nil {
		return nil, err
	}
	return &Aggregator{
		config: config,
		parser: parser,
		logger: logger.GetGlobalLogger().WithComponent("aggregator"),
	}, nil
}

// ParseDocument parses every page, concatenates the items in page order,
// extracts the totals from the summary table and computes the advisory
// verification figures.
func (a *Aggregator) ParseDocument(ctx context.Context, src DocumentSource) (*DocumentResult, error) {
	pageCount := src.PageCount()
	if pageCount == 0 {
		return nil, apperrors.New(apperrors.CategoryDocument, apperrors.CodeMissingPage,
			"document has no pages")
	}

	var (
		items []models.LineItem
		stats = &ParseStats{}
		err   error
	)
	if a.Concurrency > 1 {
		items, stats, err = a.parsePagesConcurrent(ctx, src, pageCount)
	} else {
		items, stats, err = a.parsePagesSequential(ctx, src, pageCount)
	}
	if err != nil {
		return nil, err
	}

	summary, err := src.SummaryTable()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CategoryDocument, apperrors.CodeSummaryLayout,
			"summary table unavailable")
	}

	totals, err := ExtractTotals(summary)
	if err != nil {
		return nil, err
	}
	surcharge, err := ExtractSurcharge(summary)
	if err != nil {
		return nil, err
	}
	totals.Surcharge = surcharge

	verification := a.verify(items, totals)
	if verification.Diverges() {
		a.logger.WithFields(logger.Fields{
			"pre_tax_divergence":  verification.PreTaxDivergence.String(),
			"tax_divergence":      verification.TaxDivergence.String(),
			"post_tax_divergence": verification.PostTaxDivergence.String(),
		}).Warn("computed totals diverge from document totals")
	}

	a.logger.WithFields(logger.Fields{
		"pages": pageCount,
		"items": len(items),
	}).Info("document parsed")

	return &DocumentResult{
		Items:        items,
		Totals:       totals,
		Verification: verification,
		Stats:        stats,
	}, nil
}

func (a *Aggregator) parsePagesSequential(ctx context.Context, src DocumentSource, pageCount int) ([]models.LineItem, *ParseStats, error) {
	var all []models.LineItem
	stats := &ParseStats{}

	for page := 1; page <= pageCount; page++ {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}

		table, err := src.PageTable(page)
		if err != nil {
			return nil, stats, apperrors.Wrap(err, apperrors.CategoryDocument,
				apperrors.CodeMissingPage, fmt.Sprintf("page %d unavailable", page))
		}

		items, pageStats, err := a.parser.ParsePage(page, table)
		if err != nil {
			return nil, stats, err
		}
		a.logger.WithFields(logger.Fields{"page": page, "items": len(items)}).Debug("page parsed")

		all = append(all, items...)
		stats.Merge(pageStats)
	}

	return all, stats, nil
}

// parsePagesConcurrent parses pages in parallel. Each page is independent,
// so only the final concatenation order matters; results are collected per
// page and joined by page number afterwards.
func (a *Aggregator) parsePagesConcurrent(ctx context.Context, src DocumentSource, pageCount int) ([]models.LineItem, *ParseStats, error) {
	type pageResult struct {
		items []models.LineItem
		stats *ParseStats
	}

	semaphore := make(chan struct{}, a.Concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex

	results := make([]pageResult, pageCount)
	var firstErr error

	for page := 1; page <= pageCount; page++ {
		wg.Add(1)

		go func(page int) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			if ctx.Err() != nil {
				return
			}

			table, err := src.PageTable(page)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = apperrors.Wrap(err, apperrors.CategoryDocument,
						apperrors.CodeMissingPage, fmt.Sprintf("page %d unavailable", page))
				}
				mu.Unlock()
				return
			}

			items, pageStats, err := a.parser.ParsePage(page, table)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}

			mu.Lock()
			results[page-1] = pageResult{items: items, stats: pageStats}
			mu.Unlock()
		}(page)
	}

	wg.Wait()

	if firstErr != nil {
		return nil, nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	var all []models.LineItem
	stats := &ParseStats{}
	for _, r := range results {
		all = append(all, r.items...)
		stats.Merge(r.stats)
	}
	return all, stats, nil
}

// verify computes the advisory figures from the parsed items: sum of line
// totals, VAT at the configured rate, and their addition, plus the same
// three with the surcharge included in the base.
func (a *Aggregator) verify(items []models.LineItem, totals *models.DocumentTotals) *Verification {
	preTax := models.SumLineTotals(items)
	tax := preTax.Mul(a.config.VATRate)
	postTax := preTax.Add(tax)

	surchargedPre := preTax.Add(totals.Surcharge)
	surchargedTax := surchargedPre.Mul(a.config.VATRate)

	return &Verification{
		ComputedPreTax:    preTax,
		ComputedTax:       tax,
		ComputedPostTax:   postTax,
		SurchargedPreTax:  surchargedPre,
		SurchargedTax:     surchargedTax,
		SurchargedPostTax: surchargedPre.Add(surchargedTax),
		PreTaxDivergence:  preTax.Sub(totals.PreTax),
		TaxDivergence:     tax.Sub(totals.Tax),
		PostTaxDivergence: postTax.Sub(totals.PostTax),
	}
}
