package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"invoice-ledger-reconciler/cmd/reconciler/config"
	"invoice-ledger-reconciler/internal/parsers"
	"invoice-ledger-reconciler/internal/reconciler"
	"invoice-ledger-reconciler/internal/reporter"
	"invoice-ledger-reconciler/internal/sources"
	apperrors "invoice-ledger-reconciler/pkg/errors"
	"invoice-ledger-reconciler/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags for the reconcile command
var (
	documentDir  string
	ledgerFile   string
	periodFlag   string
	outputFormat string
	outputFile   string
	concurrency  int
	noCandidates bool
	hideMatched  bool
)

// reconcileCmd represents the reconcile command
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile invoice line items against a ledger fortnight",
	Long: `Reconcile parses the invoice page tables, groups line totals by
registration, and compares each group's sum against the same registration's
sum in the selected fortnight section of the ledger workbook.

This command requires:
- A directory of per-page invoice tables (page-*.csv plus summary.csv)
- A ledger workbook (XLSX, one sheet per month)
- A period selection ("<month> - <fortnight>", e.g. "Mayo - 1")

Examples:
  # Basic reconciliation
  reconciler reconcile --document-dir pages/ --ledger-file ledger.xlsx --period "Mayo - 1"

  # JSON report to a file
  reconciler reconcile --document-dir pages/ --ledger-file ledger.xlsx --period "Mayo - 1" \
    --output-format json --output-file report.json

  # Parse pages in parallel, skip the candidate search
  reconciler reconcile --document-dir pages/ --ledger-file ledger.xlsx --period "Junio - 2" \
    --concurrency 4 --no-candidates`,

	PreRunE: validateReconcileFlags,
	RunE:    runReconcile,
}

// periodsCmd lists the selectable periods.
var periodsCmd = &cobra.Command{
	Use:   "periods",
	Short: "List the selectable ledger periods",
	Run: func(cmd *cobra.Command, args []string) {
		for _, p := range sources.Periods() {
			fmt.Fprintln(cmd.OutOrStdout(), p)
		}
	},
}

func init() {
	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(periodsCmd)

	// Required flags
	reconcileCmd.Flags().StringVarP(&documentDir, "document-dir", "d", "", "directory with page-*.csv and summary.csv (required)")
	reconcileCmd.Flags().StringVarP(&ledgerFile, "ledger-file", "l", "", "path to the ledger XLSX workbook (required)")
	reconcileCmd.Flags().StringVarP(&periodFlag, "period", "p", "", `period to reconcile, e.g. "Mayo - 1" (required)`)

	// Output flags
	reconcileCmd.Flags().StringVarP(&outputFormat, "output-format", "f", "console", "output format: console, json, csv")
	reconcileCmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "output file path (default: stdout)")

	// Processing flags
	reconcileCmd.Flags().IntVar(&concurrency, "concurrency", 1, "maximum pages parsed in parallel")
	reconcileCmd.Flags().BoolVar(&noCandidates, "no-candidates", false, "skip the candidate explanation search")
	reconcileCmd.Flags().BoolVar(&hideMatched, "hide-matched", false, "omit matching registrations from console output")

	// Mark required flags
	reconcileCmd.MarkFlagRequired("document-dir")
	reconcileCmd.MarkFlagRequired("ledger-file")
	reconcileCmd.MarkFlagRequired("period")

	// Bind flags to viper
	viper.BindPFlag("document-dir", reconcileCmd.Flags().Lookup("document-dir"))
	viper.BindPFlag("ledger-file", reconcileCmd.Flags().Lookup("ledger-file"))
	viper.BindPFlag("period", reconcileCmd.Flags().Lookup("period"))
	viper.BindPFlag("output_format", reconcileCmd.Flags().Lookup("output-format"))
	viper.BindPFlag("output-file", reconcileCmd.Flags().Lookup("output-file"))
	viper.BindPFlag("page_concurrency", reconcileCmd.Flags().Lookup("concurrency"))
}

func validateReconcileFlags(cmd *cobra.Command, args []string) error {
	// Get values from viper (allows override from config file)
	documentDir = viper.GetString("document-dir")
	ledgerFile = viper.GetString("ledger-file")
	periodFlag = viper.GetString("period")
	outputFile = viper.GetString("output-file")

	if documentDir == "" {
		return fmt.Errorf("document-dir is required")
	}
	if ledgerFile == "" {
		return fmt.Errorf("ledger-file is required")
	}
	if periodFlag == "" {
		return fmt.Errorf("period is required")
	}

	info, err := os.Stat(documentDir)
	if os.IsNotExist(err) {
		return fmt.Errorf("document directory does not exist: %s", documentDir)
	}
	if err != nil {
		return fmt.Errorf("error accessing document directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("document-dir is not a directory: %s", documentDir)
	}

	if err := validateFileExists(ledgerFile, "ledger workbook"); err != nil {
		return err
	}

	if _, err := sources.ParsePeriod(periodFlag); err != nil {
		return err
	}

	// Validate output file directory exists if specified
	if outputFile != "" {
		dir := filepath.Dir(outputFile)
		if dir != "." {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				return fmt.Errorf("output directory does not exist: %s", dir)
			}
		}
	}

	return nil
}

func validateFileExists(filePath, description string) error {
	if filePath == "" {
		return fmt.Errorf("%s path cannot be empty", description)
	}

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s does not exist: %s", description, filePath)
	}
	if err != nil {
		return fmt.Errorf("error accessing %s: %w", description, err)
	}

	if info.IsDir() {
		return fmt.Errorf("%s is a directory, expected a file: %s", description, filePath)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("%s is not readable: %w", description, err)
	}
	file.Close()

	return nil
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	log := logger.GetGlobalLogger().WithComponent("cli")

	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return apperrors.ConfigurationError("config", cfgFile, err)
	}

	period, err := sources.ParsePeriod(periodFlag)
	if err != nil {
		return apperrors.ConfigurationError("period", periodFlag, err)
	}

	log.WithFields(logger.Fields{
		"document_dir": documentDir,
		"ledger_file":  ledgerFile,
		"period":       period.String(),
	}).Info("Starting reconciliation")

	// Parse the invoice document.
	src, err := sources.NewCSVDocumentSource(documentDir)
	if err != nil {
		return err
	}

	aggregator, err := parsers.NewAggregator(cfg.ParserConfig())
	if err != nil {
		return err
	}
	aggregator.Concurrency = cfg.PageConcurrency

	doc, err := aggregator.ParseDocument(ctx, src)
	if err != nil {
		return err
	}

	// Load the ledger fortnight.
	workbook, err := sources.OpenLedgerWorkbook(ledgerFile)
	if err != nil {
		return err
	}
	defer workbook.Close()

	grid, err := workbook.PeriodGrid(period)
	if err != nil {
		return err
	}

	entries, found := parsers.NewLedgerSectionParser().ParseSection(grid, period.SectionLabel())
	if !found {
		return apperrors.LedgerError(apperrors.CodeGridUnreadable,
			fmt.Sprintf("section %q not found in sheet for %s", period.SectionLabel(), period.Month), nil).
			WithSuggestion("Check that the worksheet contains the fortnight anchor label")
	}

	// Reconcile.
	engine, err := reconciler.NewEngine(&reconciler.Config{
		SearchCandidates: !noCandidates,
	})
	if err != nil {
		return err
	}

	result, err := engine.Reconcile(doc.Items, entries)
	if err != nil {
		return err
	}

	// Generate the report.
	generator, err := reporter.NewGenerator(&reporter.Config{
		Format:            reporter.OutputFormat(cfg.OutputFormat),
		IncludeCandidates: cfg.IncludeCandidates && !noCandidates,
		MatchedRows:       cfg.ShowMatchedRows && !hideMatched,
		CSVDelimiter:      ',',
	})
	if err != nil {
		return err
	}

	output := cmd.OutOrStdout()
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return apperrors.FileError(apperrors.CodeFileUnreadable, outputFile, err).
				WithSuggestion("Check that the output path is writable")
		}
		defer f.Close()
		output = f
	}

	if err := generator.Generate(result, output); err != nil {
		return err
	}

	log.WithFields(logger.Fields{
		"run_id":      result.RunID.String(),
		"rows":        len(result.Rows),
		"matched":     result.MatchedRows(),
		"match_ratio": fmt.Sprintf("%.1f%%", result.MatchRatio()*100),
	}).Info("Reconciliation completed")

	if doc.Stats.HasWarnings() {
		log.Warnf("Parsing finished with warnings: %s", doc.Stats)
	}

	return nil
}
