package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ahua1010/GDG-investment-group-chip-analysis/internal/artifact"
	"github.com/ahua1010/GDG-investment-group-chip-analysis/internal/cli"
	"github.com/ahua1010/GDG-investment-group-chip-analysis/internal/config"
	"github.com/ahua1010/GDG-investment-group-chip-analysis/internal/edgar"
	"github.com/ahua1010/GDG-investment-group-chip-analysis/internal/form4"
	"github.com/ahua1010/GDG-investment-group-chip-analysis/internal/pipeline"
	"github.com/ahua1010/GDG-investment-group-chip-analysis/internal/report"
	"github.com/ahua1010/GDG-investment-group-chip-analysis/internal/sheets"
	"github.com/ahua1010/GDG-investment-group-chip-analysis/internal/storage"
)

func collectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Collect insider transactions and build flow reports",
		Long: `Resolve tickers to SEC CIK numbers, fetch recent Form 4 filings,
parse the reported transactions, and emit aggregated buy/sell flow tables.

A run that loses some tickers or filings still produces reports from
what it collected; the summary lists what failed.`,
		RunE: runCollect,
	}

	cmd.Flags().StringSliceP("tickers", "t", nil, "Ticker symbols to collect (e.g. AAPL,MSFT)")
	cmd.Flags().String("email", "", "Contact email sent in the SEC User-Agent header (required)")
	cmd.Flags().IntP("max-filings", "n", 10, "Maximum Form 4 filings per ticker")
	cmd.Flags().String("staging-dir", "data/staging", "Directory for staged filing artifacts")
	cmd.Flags().StringP("output-dir", "o", "data/reports", "Directory for report artifacts")
	cmd.Flags().Bool("keep-intermediate", false, "Keep intermediate artifacts after the run")
	cmd.Flags().Int("workers", 4, "Parallel parse workers")
	cmd.Flags().Int("max-consecutive-failures", 3, "Skip remaining tickers after this many consecutive ticker failures")
	cmd.Flags().Bool("no-progress", false, "Disable the progress bar")
	cmd.Flags().Bool("excel", false, "Also emit an Excel workbook")
	cmd.Flags().String("db", "", "SQLite database path; when set, collected transactions are persisted")
	cmd.Flags().Bool("export-sheets", false, "Export aggregate tables to Google Sheets")
	cmd.Flags().String("sheets-credentials", "", "Service account credentials file for Google Sheets")
	cmd.Flags().String("sheets-id", "", "Target Google Sheets spreadsheet ID")

	_ = viper.BindPFlag("collect.tickers", cmd.Flags().Lookup("tickers"))
	_ = viper.BindPFlag("collect.email", cmd.Flags().Lookup("email"))
	_ = viper.BindPFlag("collect.max_filings", cmd.Flags().Lookup("max-filings"))
	_ = viper.BindPFlag("collect.staging_dir", cmd.Flags().Lookup("staging-dir"))
	_ = viper.BindPFlag("collect.output_dir", cmd.Flags().Lookup("output-dir"))
	_ = viper.BindPFlag("collect.keep_intermediate", cmd.Flags().Lookup("keep-intermediate"))
	_ = viper.BindPFlag("collect.workers", cmd.Flags().Lookup("workers"))
	_ = viper.BindPFlag("collect.max_consecutive_failures", cmd.Flags().Lookup("max-consecutive-failures"))
	_ = viper.BindPFlag("collect.no_progress", cmd.Flags().Lookup("no-progress"))
	_ = viper.BindPFlag("collect.excel", cmd.Flags().Lookup("excel"))
	_ = viper.BindPFlag("collect.db", cmd.Flags().Lookup("db"))
	_ = viper.BindPFlag("sheets.export", cmd.Flags().Lookup("export-sheets"))
	_ = viper.BindPFlag("sheets.credentials", cmd.Flags().Lookup("sheets-credentials"))
	_ = viper.BindPFlag("sheets.spreadsheet_id", cmd.Flags().Lookup("sheets-id"))

	return cmd
}

func runCollect(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	tickers := viper.GetStringSlice("collect.tickers")
	if len(tickers) == 0 {
		return errors.New("at least one ticker is required (--tickers)")
	}
	email := viper.GetString("collect.email")
	if email == "" {
		return errors.New("a contact email is required (--email or collect.email in the config file)")
	}

	artifacts := artifact.NewManager()
	keep := viper.GetBool("collect.keep_intermediate")
	defer artifacts.Finalize(keep)

	client, err := edgar.NewClient(email)
	if err != nil {
		return fmt.Errorf("failed to create EDGAR client: %w", err)
	}
	fetcher, err := edgar.NewFetcher(client, viper.GetString("collect.staging_dir"), artifacts)
	if err != nil {
		return fmt.Errorf("failed to create fetcher: %w", err)
	}

	cfg := pipeline.DefaultConfig()
	cfg.Tickers = tickers
	cfg.MaxFilings = viper.GetInt("collect.max_filings")
	cfg.MaxConsecutiveFailures = viper.GetInt("collect.max_consecutive_failures")
	cfg.ParseWorkers = viper.GetInt("collect.workers")
	cfg.ShowProgress = !viper.GetBool("collect.no_progress")

	runner := pipeline.NewRunner(
		edgar.NewResolver(client),
		edgar.NewIndexClient(client),
		fetcher,
		form4.NewParser(),
		cfg,
	)

	slog.Info(cli.FormatTitle("Collecting insider transactions..."))

	runReport, err := runner.Run(ctx)
	if err != nil {
		return fmt.Errorf("pipeline failed: %w", err)
	}

	tables := report.Tables(runReport.Transactions, runReport.Aggregates)

	emitter, err := report.NewEmitter(viper.GetString("collect.output_dir"), artifacts)
	if err != nil {
		return fmt.Errorf("failed to create report emitter: %w", err)
	}
	if _, err := emitter.EmitCSV(tables); err != nil {
		return fmt.Errorf("failed to emit CSV reports: %w", err)
	}
	jsonPath, err := emitter.EmitJSON(tables)
	if err != nil {
		return fmt.Errorf("failed to emit JSON report: %w", err)
	}
	if viper.GetBool("collect.excel") {
		if _, err := emitter.EmitExcel(tables); err != nil {
			return fmt.Errorf("failed to emit Excel report: %w", err)
		}
	}

	if dbPath := viper.GetString("collect.db"); dbPath != "" {
		store, err := storage.NewStore(dbPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer func() { _ = store.Close() }()

		inserted, err := store.SaveTransactions(ctx, runReport.Transactions)
		if err != nil {
			return fmt.Errorf("failed to persist transactions: %w", err)
		}
		slog.Info("Persisted transactions", "inserted", inserted, "db", dbPath)
	}

	if viper.GetBool("sheets.export") {
		sheetsCfg, err := config.LoadSheetsConfig()
		if err != nil {
			return fmt.Errorf("invalid sheets configuration: %w", err)
		}
		writer, err := sheets.NewWriter(ctx, sheetsCfg)
		if err != nil {
			return fmt.Errorf("failed to create sheets writer: %w", err)
		}
		if err := writer.Write(ctx, tables); err != nil {
			return fmt.Errorf("failed to export to Google Sheets: %w", err)
		}
	}

	printSummary(runReport, jsonPath)

	if runReport.Status == pipeline.StatusFailed {
		return fmt.Errorf("run %s failed: no transactions collected", runReport.RunID)
	}
	return nil
}

func printSummary(r *pipeline.RunReport, jsonPath string) {
	var b strings.Builder
	fmt.Fprintf(&b, "Run ID:        %s\n", r.RunID)
	fmt.Fprintf(&b, "Status:        %s\n", styleStatus(r.Status))
	fmt.Fprintf(&b, "Duration:      %s\n", r.FinishedAt.Sub(r.StartedAt).Round(10*time.Millisecond))
	fmt.Fprintf(&b, "Tickers:       %d resolved, %d skipped\n", r.TickersResolved, len(r.SkippedTickers))
	fmt.Fprintf(&b, "Filings:       %d fetched, %d parsed\n", r.FilingsFetched, r.FilingsParsed)
	fmt.Fprintf(&b, "Transactions:  %d\n", len(r.Transactions))
	fmt.Fprintf(&b, "Report:        %s", jsonPath)

	if len(r.TickerFailures) > 0 {
		fmt.Fprintf(&b, "\n\n%s", cli.FormatWarning(fmt.Sprintf("%d ticker(s) failed:", len(r.TickerFailures))))
		for _, f := range r.TickerFailures {
			fmt.Fprintf(&b, "\n  %s (%s): %v", f.Ticker, f.Stage, f.Err)
		}
	}
	if len(r.FilingFailures) > 0 {
		fmt.Fprintf(&b, "\n\n%s", cli.FormatWarning(fmt.Sprintf("%d filing(s) failed:", len(r.FilingFailures))))
		for _, f := range r.FilingFailures {
			fmt.Fprintf(&b, "\n  %s %s (%s): %v", f.Ticker, f.AccessionNumber, f.Stage, f.Err)
		}
	}
	if len(r.LineFailures) > 0 {
		fmt.Fprintf(&b, "\n\n%s", cli.FormatWarning(fmt.Sprintf("%d transaction line(s) skipped", len(r.LineFailures))))
	}

	fmt.Println(cli.RenderBox("Insider Flow Collection", b.String()))
}

func styleStatus(s pipeline.Status) string {
	switch s {
	case pipeline.StatusSuccess:
		return cli.FormatSuccess(string(s))
	case pipeline.StatusPartial:
		return cli.FormatWarning(string(s))
	default:
		return cli.FormatError(string(s))
	}
}
