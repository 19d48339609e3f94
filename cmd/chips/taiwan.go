package main

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ahua1010/GDG-investment-group-chip-analysis/internal/artifact"
	"github.com/ahua1010/GDG-investment-group-chip-analysis/internal/cli"
	"github.com/ahua1010/GDG-investment-group-chip-analysis/internal/storage"
	"github.com/ahua1010/GDG-investment-group-chip-analysis/internal/twse"
)

func taiwanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "taiwan",
		Short: "Collect Taiwan institutional buy/sell data",
		Long: `Fetch daily institutional-investor (三大法人) buy/sell totals from the
Taiwan Stock Exchange and save them as a dated CSV.`,
		RunE: runTaiwan,
	}

	cmd.Flags().IntP("days", "d", 5, "Trading days of history to fetch, counting back from today")
	cmd.Flags().StringP("output-dir", "o", "data/taiwan_market", "Directory for CSV artifacts")
	cmd.Flags().String("db", "", "SQLite database path; when set, rows are persisted")

	_ = viper.BindPFlag("taiwan.days", cmd.Flags().Lookup("days"))
	_ = viper.BindPFlag("taiwan.output_dir", cmd.Flags().Lookup("output-dir"))
	_ = viper.BindPFlag("taiwan.db", cmd.Flags().Lookup("db"))

	return cmd
}

func runTaiwan(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	artifacts := artifact.NewManager()
	defer artifacts.Finalize(true)

	client := twse.NewClient()

	days := viper.GetInt("taiwan.days")
	end := time.Now()
	start := end.AddDate(0, 0, -days)

	slog.Info(cli.FormatTitle("Collecting Taiwan institutional data..."),
		"start", start.Format("2006-01-02"), "end", end.Format("2006-01-02"))

	rows, err := client.GetRange(ctx, start, end)
	if err != nil {
		return fmt.Errorf("failed to fetch TWSE data: %w", err)
	}
	if len(rows) == 0 {
		slog.Warn(cli.FormatWarning("No trading data in the requested range"))
		return nil
	}

	path, err := twse.SaveCSV(rows, viper.GetString("taiwan.output_dir"), artifacts)
	if err != nil {
		return fmt.Errorf("failed to save TWSE data: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Rows:  %d\n", len(rows))
	fmt.Fprintf(&b, "CSV:   %s", path)

	if dbPath := viper.GetString("taiwan.db"); dbPath != "" {
		store, err := storage.NewStore(dbPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer func() { _ = store.Close() }()

		inserted, err := store.SaveTWRows(ctx, rows)
		if err != nil {
			return fmt.Errorf("failed to persist rows: %w", err)
		}
		fmt.Fprintf(&b, "\nDB:    %d new rows in %s", inserted, dbPath)
	}

	fmt.Println(cli.RenderBox("Taiwan Institutional Flows", b.String()))
	return nil
}
