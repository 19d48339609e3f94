package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ahua1010/GDG-investment-group-chip-analysis/internal/artifact"
	"github.com/ahua1010/GDG-investment-group-chip-analysis/internal/cli"
	"github.com/ahua1010/GDG-investment-group-chip-analysis/internal/marketdata"
)

func flowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flow",
		Short: "Collect US ETF and sector fund-flow data",
		Long: `Fetch daily OHLCV history for broad-market and sector ETFs, derive
fund-flow measures from price change and volume, and save the results
as dated CSV files.`,
		RunE: runFlowCollect,
	}

	cmd.Flags().StringSliceP("etfs", "e", nil, "ETF symbols to collect (defaults to the broad-market set)")
	cmd.Flags().IntP("days", "d", 30, "Days of history to fetch")
	cmd.Flags().StringP("output-dir", "o", "data/us_market", "Directory for CSV artifacts")
	cmd.Flags().Bool("sectors", false, "Also aggregate sector-level flows")
	cmd.Flags().Bool("breadth", false, "Also collect major-index breadth history")

	_ = viper.BindPFlag("flow.etfs", cmd.Flags().Lookup("etfs"))
	_ = viper.BindPFlag("flow.days", cmd.Flags().Lookup("days"))
	_ = viper.BindPFlag("flow.output_dir", cmd.Flags().Lookup("output-dir"))
	_ = viper.BindPFlag("flow.sectors", cmd.Flags().Lookup("sectors"))
	_ = viper.BindPFlag("flow.breadth", cmd.Flags().Lookup("breadth"))

	return cmd
}

func runFlowCollect(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	artifacts := artifact.NewManager()
	defer artifacts.Finalize(true)

	provider := marketdata.NewYahooProvider()
	collector := marketdata.NewCollector(provider, viper.GetString("flow.output_dir"), artifacts)

	symbols := viper.GetStringSlice("flow.etfs")
	days := viper.GetInt("flow.days")
	wantSectors := viper.GetBool("flow.sectors")
	if wantSectors && len(symbols) == 0 {
		for etf := range marketdata.SectorETFs {
			symbols = append(symbols, etf)
		}
	}

	slog.Info(cli.FormatTitle("Collecting ETF fund flows..."))

	bars, err := collector.CollectETFFlows(ctx, symbols, days)
	if err != nil {
		return fmt.Errorf("failed to collect ETF flows: %w", err)
	}

	barsPath, err := collector.SaveBarsCSV(bars, "etf_fund_flows")
	if err != nil {
		return fmt.Errorf("failed to save ETF flows: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Bars:      %d\n", len(bars))
	fmt.Fprintf(&b, "ETF CSV:   %s", barsPath)

	if wantSectors {
		flows := marketdata.SectorFlows(bars)
		sectorPath, err := collector.SaveSectorCSV(flows)
		if err != nil {
			return fmt.Errorf("failed to save sector flows: %w", err)
		}
		fmt.Fprintf(&b, "\nSectors:   %d rows\nSector CSV: %s", len(flows), sectorPath)
	}

	if viper.GetBool("flow.breadth") {
		breadthBars, err := collector.CollectBreadth(ctx, days)
		if err != nil {
			return fmt.Errorf("failed to collect breadth indices: %w", err)
		}
		breadthPath, err := collector.SaveBarsCSV(breadthBars, "market_breadth")
		if err != nil {
			return fmt.Errorf("failed to save breadth indices: %w", err)
		}
		fmt.Fprintf(&b, "\nIndices:   %d bars\nBreadth CSV: %s", len(breadthBars), breadthPath)
	}

	fmt.Println(cli.RenderBox("US Fund Flows", b.String()))
	return nil
}
