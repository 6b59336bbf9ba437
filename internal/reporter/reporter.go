// Package reporter renders reconciliation results for humans and machines.
//
// Supported output formats:
//   - Console: human-readable tabular output for terminal display
//   - JSON: structured output for programmatic consumption
//   - CSV: comparison rows for spreadsheet applications
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"invoice-ledger-reconciler/internal/matcher"
	"invoice-ledger-reconciler/internal/models"
	"invoice-ledger-reconciler/internal/reconciler"
)

// OutputFormat selects how a result is rendered.
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
)

// IsValid reports whether the format is supported.
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV:
		return true
	default:
		return false
	}
}

// Config holds report generation options.
type Config struct {
	Format OutputFormat `json:"format"`

	// IncludeCandidates controls whether candidate explanations are
	// rendered (console and JSON only).
	IncludeCandidates bool `json:"include_candidates"`

	// MatchedRows controls whether matching rows appear in console output;
	// mismatches always do.
	MatchedRows bool `json:"matched_rows"`

	// CSVDelimiter for CSV output.
	CSVDelimiter rune `json:"csv_delimiter"`
}

// DefaultConfig returns the default report configuration.
func DefaultConfig() *Config {
	return &Config{
		Format:            FormatConsole,
		IncludeCandidates: true,
		MatchedRows:       true,
		CSVDelimiter:      ',',
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}
	return nil
}

// Generator renders reconciliation results.
type Generator struct {
	config *Config
}

// NewGenerator creates a report generator.
func NewGenerator(config *Config) (*Generator, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}
	return &Generator{config: config}, nil
}

// Generate writes the result to w in the configured format.
func (g *Generator) Generate(result *reconciler.Result, w io.Writer) error {
	if result == nil {
		return fmt.Errorf("reconciliation result cannot be nil")
	}

	switch g.config.Format {
	case FormatJSON:
		return g.generateJSON(result, w)
	case FormatCSV:
		return g.generateCSV(result, w)
	default:
		return g.generateConsole(result, w)
	}
}

func (g *Generator) generateJSON(result *reconciler.Result, w io.Writer) error {
	out := *result
	if !g.config.IncludeCandidates {
		out.Candidates = nil
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(&out)
}

func (g *Generator) generateCSV(result *reconciler.Result, w io.Writer) error {
	cw := csv.NewWriter(w)
	cw.Comma = g.config.CSVDelimiter

	if err := cw.Write([]string{"registration", "document_amount", "ledger_amount", "difference", "status"}); err != nil {
		return err
	}
	for _, row := range result.Rows {
		record := []string{
			row.Registration,
			row.DocumentAmount.StringFixed(2),
			row.LedgerAmount.StringFixed(2),
			row.Difference.StringFixed(2),
			string(row.Status),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func (g *Generator) generateConsole(result *reconciler.Result, w io.Writer) error {
	var b strings.Builder

	b.WriteString("RECONCILIATION REPORT\n")
	b.WriteString(strings.Repeat("=", 70) + "\n")
	fmt.Fprintf(&b, "Run:              %s\n", result.RunID)
	fmt.Fprintf(&b, "Generated:        %s\n", result.GeneratedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Total document:   %s\n", result.TotalDocument.StringFixed(2))
	fmt.Fprintf(&b, "Total ledger:     %s\n", result.TotalLedger.StringFixed(2))
	fmt.Fprintf(&b, "Total difference: %s\n", result.TotalDifference.StringFixed(2))
	fmt.Fprintf(&b, "Matches:          %d/%d (%.1f%%)\n",
		result.MatchedRows(), len(result.Rows), result.MatchRatio()*100)
	if !result.TotalLedger.IsZero() {
		share := result.TotalDifference.Div(result.TotalLedger).InexactFloat64() * 100
		fmt.Fprintf(&b, "Difference share: %.1f%% of ledger total\n", share)
	}

	b.WriteString("\nPER-REGISTRATION COMPARISON\n")
	b.WriteString(strings.Repeat("-", 70) + "\n")
	fmt.Fprintf(&b, "%-16s %12s %12s %12s  %s\n",
		"REGISTRATION", "DOCUMENT", "LEDGER", "DIFFERENCE", "STATUS")
	for _, row := range result.Rows {
		if row.Status == models.StatusMatch && !g.config.MatchedRows {
			continue
		}
		name := row.Registration
		if name == "" {
			name = "(unassigned)"
		}
		fmt.Fprintf(&b, "%-16s %12s %12s %12s  %s\n",
			name,
			row.DocumentAmount.StringFixed(2),
			row.LedgerAmount.StringFixed(2),
			row.Difference.StringFixed(2),
			row.Status)
	}

	if g.config.IncludeCandidates && len(result.Candidates) > 0 {
		b.WriteString("\nCANDIDATE EXPLANATIONS\n")
		b.WriteString(strings.Repeat("-", 70) + "\n")
		for _, row := range result.Rows {
			found, ok := result.Candidates[row.Registration]
			if !ok {
				continue
			}
			fmt.Fprintf(&b, "%s (difference %s):\n",
				row.Registration, row.Difference.StringFixed(2))
			for _, c := range found {
				writeCandidate(&b, &c)
			}
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeCandidate(b *strings.Builder, c *matcher.Candidate) {
	switch c.Kind {
	case matcher.KindExactSingle:
		fmt.Fprintf(b, "  exact item:    %s %s (%s)\n",
			c.Items[0].ArticleCode, c.Items[0].Description, c.Sum.StringFixed(2))
	case matcher.KindExactPair:
		fmt.Fprintf(b, "  exact pair:    %s + %s (sum %s)\n",
			c.Items[0].ArticleCode, c.Items[1].ArticleCode, c.Sum.StringFixed(2))
	case matcher.KindClosest:
		fmt.Fprintf(b, "  closest item:  %s %s (%s, residual %s)\n",
			c.Items[0].ArticleCode, c.Items[0].Description,
			c.Sum.StringFixed(2), c.Difference.StringFixed(2))
	}
}
