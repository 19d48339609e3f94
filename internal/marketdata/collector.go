package marketdata

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/ahua1010/GDG-investment-group-chip-analysis/internal/artifact"
)

// DefaultETFs covers the broad-market ETFs collected when no symbols are
// given.
var DefaultETFs = []string{
	"SPY", "QQQ", "IWM", "DIA",
	"XLF", "XLK", "XLE", "XLV", "XLI", "XLP",
}

// SectorETFs maps sector ETFs to the sector they track.
var SectorETFs = map[string]string{
	"XLF":  "Financials",
	"XLK":  "Technology",
	"XLE":  "Energy",
	"XLV":  "Health Care",
	"XLI":  "Industrials",
	"XLP":  "Consumer Staples",
	"XLY":  "Consumer Discretionary",
	"XLB":  "Materials",
	"XLU":  "Utilities",
	"XLRE": "Real Estate",
}

// BreadthIndices maps major index symbols to display names.
var BreadthIndices = map[string]string{
	"^GSPC": "S&P 500",
	"^NDX":  "NASDAQ 100",
	"^RUT":  "Russell 2000",
	"^DJI":  "Dow Jones",
}

// SectorFlow is one sector's aggregated fund flow for a trading day.
type SectorFlow struct {
	Date               string  `json:"date"`
	Sector             string  `json:"sector"`
	FundFlow           float64 `json:"fund_flow"`
	FundFlowNormalized float64 `json:"fund_flow_normalized"`
	Volume             int64   `json:"volume"`
}

// Provider fetches daily bars for a symbol.
type Provider interface {
	History(ctx context.Context, symbol string, days int) ([]Bar, error)
}

// Collector gathers ETF and index history and writes CSV artifacts.
type Collector struct {
	provider  Provider
	artifacts *artifact.Manager
	outputDir string

	// Pause between symbols so Yahoo doesn't throttle us.
	requestDelay time.Duration
}

// NewCollector creates a collector writing artifacts under outputDir.
func NewCollector(provider Provider, outputDir string, artifacts *artifact.Manager) *Collector {
	return &Collector{
		provider:     provider,
		artifacts:    artifacts,
		outputDir:    outputDir,
		requestDelay: time.Second,
	}
}

// CollectETFFlows fetches fund-flow bars for the given ETFs (DefaultETFs
// when empty). A symbol that fails is logged and skipped, matching the
// partial-failure behavior of the rest of the pipeline.
func (c *Collector) CollectETFFlows(ctx context.Context, symbols []string, days int) ([]Bar, error) {
	if len(symbols) == 0 {
		symbols = DefaultETFs
	}
	return c.collectSymbols(ctx, symbols, days)
}

// CollectBreadth fetches daily bars for the major indices in
// BreadthIndices, giving a market-breadth reference alongside the ETF
// flows. Symbols are fetched in sorted order.
func (c *Collector) CollectBreadth(ctx context.Context, days int) ([]Bar, error) {
	symbols := make([]string, 0, len(BreadthIndices))
	for symbol := range BreadthIndices {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return c.collectSymbols(ctx, symbols, days)
}

func (c *Collector) collectSymbols(ctx context.Context, symbols []string, days int) ([]Bar, error) {
	var all []Bar
	for i, symbol := range symbols {
		if i > 0 {
			select {
			case <-ctx.Done():
				return all, ctx.Err()
			case <-time.After(c.requestDelay):
			}
		}

		bars, err := c.provider.History(ctx, symbol, days)
		if err != nil {
			slog.Warn("Failed to fetch history", "symbol", symbol, "error", err)
			continue
		}
		all = append(all, bars...)
		slog.Debug("Fetched history", "symbol", symbol, "bars", len(bars))
	}

	if len(all) == 0 {
		return nil, fmt.Errorf("no data collected for %d symbols", len(symbols))
	}
	return all, nil
}

// SectorFlows aggregates per-ETF bars into per-sector daily totals.
// Bars whose ticker is not a known sector ETF are ignored.
func SectorFlows(bars []Bar) []SectorFlow {
	type key struct {
		date   string
		sector string
	}
	totals := make(map[key]*SectorFlow)
	for _, bar := range bars {
		sector, ok := SectorETFs[bar.Ticker]
		if !ok {
			continue
		}
		k := key{bar.Date, sector}
		agg, ok := totals[k]
		if !ok {
			agg = &SectorFlow{Date: bar.Date, Sector: sector}
			totals[k] = agg
		}
		agg.FundFlow += bar.FundFlow
		agg.FundFlowNormalized += bar.FundFlowNormalized
		agg.Volume += bar.Volume
	}

	flows := make([]SectorFlow, 0, len(totals))
	for _, agg := range totals {
		flows = append(flows, *agg)
	}
	sort.Slice(flows, func(i, j int) bool {
		if flows[i].Date != flows[j].Date {
			return flows[i].Date < flows[j].Date
		}
		return flows[i].Sector < flows[j].Sector
	})
	return flows
}

// SaveBarsCSV writes bars to a dated CSV tracked as a final artifact.
func (c *Collector) SaveBarsCSV(bars []Bar, name string) (string, error) {
	if err := os.MkdirAll(c.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	path := filepath.Join(c.outputDir, fmt.Sprintf("%s_%s.csv", name, time.Now().Format("20060102")))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"date", "ticker", "open", "high", "low", "close", "volume", "fund_flow", "fund_flow_normalized"}
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("write CSV header: %w", err)
	}
	for _, bar := range bars {
		record := []string{
			bar.Date,
			bar.Ticker,
			strconv.FormatFloat(bar.Open, 'f', 4, 64),
			strconv.FormatFloat(bar.High, 'f', 4, 64),
			strconv.FormatFloat(bar.Low, 'f', 4, 64),
			strconv.FormatFloat(bar.Close, 'f', 4, 64),
			strconv.FormatInt(bar.Volume, 10),
			strconv.FormatFloat(bar.FundFlow, 'f', 2, 64),
			strconv.FormatFloat(bar.FundFlowNormalized, 'f', 4, 64),
		}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("write CSV row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush CSV: %w", err)
	}

	if c.artifacts != nil {
		c.artifacts.Track(path, artifact.RoleFinal)
	}
	return path, nil
}

// SaveSectorCSV writes sector flows to a dated CSV tracked as a final
// artifact.
func (c *Collector) SaveSectorCSV(flows []SectorFlow) (string, error) {
	if err := os.MkdirAll(c.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	path := filepath.Join(c.outputDir, fmt.Sprintf("sector_fund_flows_%s.csv", time.Now().Format("20060102")))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"date", "sector", "fund_flow", "fund_flow_normalized", "volume"}); err != nil {
		return "", fmt.Errorf("write CSV header: %w", err)
	}
	for _, flow := range flows {
		record := []string{
			flow.Date,
			flow.Sector,
			strconv.FormatFloat(flow.FundFlow, 'f', 2, 64),
			strconv.FormatFloat(flow.FundFlowNormalized, 'f', 4, 64),
			strconv.FormatInt(flow.Volume, 10),
		}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("write CSV row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush CSV: %w", err)
	}

	if c.artifacts != nil {
		c.artifacts.Track(path, artifact.RoleFinal)
	}
	return path, nil
}
