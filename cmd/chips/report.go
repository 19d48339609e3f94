package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ahua1010/GDG-investment-group-chip-analysis/internal/artifact"
	"github.com/ahua1010/GDG-investment-group-chip-analysis/internal/cli"
	"github.com/ahua1010/GDG-investment-group-chip-analysis/internal/flow"
	"github.com/ahua1010/GDG-investment-group-chip-analysis/internal/report"
	"github.com/ahua1010/GDG-investment-group-chip-analysis/internal/storage"
)

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Rebuild flow reports from stored transactions",
		Long: `Read previously collected insider transactions from the SQLite
database and rebuild the aggregated buy/sell flow tables without
contacting SEC EDGAR.`,
		RunE: runInsiderReport,
	}

	cmd.Flags().String("db", "", "SQLite database path (required)")
	cmd.Flags().StringP("ticker", "t", "", "Limit the report to one ticker")
	cmd.Flags().StringP("output-dir", "o", "data/reports", "Directory for report artifacts")
	cmd.Flags().Bool("excel", false, "Also emit an Excel workbook")

	_ = viper.BindPFlag("report.db", cmd.Flags().Lookup("db"))
	_ = viper.BindPFlag("report.ticker", cmd.Flags().Lookup("ticker"))
	_ = viper.BindPFlag("report.output_dir", cmd.Flags().Lookup("output-dir"))
	_ = viper.BindPFlag("report.excel", cmd.Flags().Lookup("excel"))

	return cmd
}

func runInsiderReport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	dbPath := viper.GetString("report.db")
	if dbPath == "" {
		return errors.New("a database path is required (--db or report.db in the config file)")
	}

	store, err := storage.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	ticker := strings.ToUpper(strings.TrimSpace(viper.GetString("report.ticker")))
	transactions, err := store.GetTransactions(ctx, ticker)
	if err != nil {
		return fmt.Errorf("failed to read transactions: %w", err)
	}
	if len(transactions) == 0 {
		total, err := store.CountTransactions(ctx)
		if err != nil {
			return fmt.Errorf("failed to count transactions: %w", err)
		}
		if ticker != "" {
			return fmt.Errorf("no stored transactions for %s (%d total in %s)", ticker, total, dbPath)
		}
		return fmt.Errorf("no stored transactions in %s", dbPath)
	}

	slog.Info(cli.FormatTitle("Rebuilding flow reports..."), "transactions", len(transactions))

	artifacts := artifact.NewManager()
	defer artifacts.Finalize(true)

	tables := report.Tables(transactions, flow.Aggregate(transactions))
	emitter, err := report.NewEmitter(viper.GetString("report.output_dir"), artifacts)
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
	if viper.GetBool("report.excel") {
		if _, err := emitter.EmitExcel(tables); err != nil {
			return fmt.Errorf("failed to emit Excel report: %w", err)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Database:      %s\n", dbPath)
	if ticker != "" {
		fmt.Fprintf(&b, "Ticker:        %s\n", ticker)
	}
	fmt.Fprintf(&b, "Transactions:  %d\n", len(transactions))
	fmt.Fprintf(&b, "Report:        %s", jsonPath)
	fmt.Println(cli.RenderBox("Insider Flow Report", b.String()))
	return nil
}
