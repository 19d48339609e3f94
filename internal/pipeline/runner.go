// Package pipeline orchestrates the Form 4 collection run: resolve tickers,
// list filings, fetch under the shared rate limit, parse, and aggregate.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ahua1010/GDG-investment-group-chip-analysis/internal/common"
	"github.com/ahua1010/GDG-investment-group-chip-analysis/internal/flow"
	"github.com/ahua1010/GDG-investment-group-chip-analysis/internal/model"
	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"
)

// Config holds configuration options for a pipeline run.
type Config struct {
	Tickers []string
	// MaxFilings is the per-ticker cap on Form 4 filings.
	MaxFilings int
	// MaxConsecutiveFailures opens the circuit breaker: after this many
	// consecutive per-ticker failures the remaining tickers are skipped.
	// Zero disables the breaker.
	MaxConsecutiveFailures int
	// ParseWorkers bounds parsing parallelism. Parsing never bypasses the
	// fetch rate limiter; only fetches touch the network.
	ParseWorkers int
	ShowProgress bool
}

// DefaultConfig returns the default pipeline configuration.
func DefaultConfig() Config {
	return Config{
		MaxFilings:             10,
		MaxConsecutiveFailures: 3,
		ParseWorkers:           runtime.NumCPU(),
	}
}

// Runner drives one collection run. All run-scoped mutable state (the
// resolver cache, the rate limiter, the accession dedup set) lives in the
// collaborators constructed for this run, never in package globals.
type Runner struct {
	resolver Resolver
	index    IndexClient
	fetcher  Fetcher
	parser   Parser
	cfg      Config
}

// NewRunner wires a runner from its collaborators.
func NewRunner(resolver Resolver, index IndexClient, fetcher Fetcher, parser Parser, cfg Config) *Runner {
	if cfg.MaxFilings <= 0 {
		cfg.MaxFilings = 10
	}
	if cfg.ParseWorkers <= 0 {
		cfg.ParseWorkers = runtime.NumCPU()
	}

	return &Runner{
		resolver: resolver,
		index:    index,
		fetcher:  fetcher,
		parser:   parser,
		cfg:      cfg,
	}
}

// Run executes the pipeline over the configured tickers. Per-ticker and
// per-filing failures are collected into the report and never abort the
// batch; the returned error is non-nil only for pipeline-fatal conditions
// (unusable staging storage, canceled context).
func (r *Runner) Run(ctx context.Context) (*RunReport, error) {
	report := &RunReport{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}

	// Accession numbers already fetched this run. Shared across tickers so
	// a filing contributes to aggregates exactly once even when the same
	// ticker appears in multiple requested batches.
	seen := make(map[string]bool)

	var staged []*model.RawFiling
	consecutive := 0

	for _, ticker := range r.cfg.Tickers {
		ticker = strings.ToUpper(strings.TrimSpace(ticker))
		if ticker == "" {
			continue
		}

		if err := ctx.Err(); err != nil {
			return report, err
		}

		if r.cfg.MaxConsecutiveFailures > 0 && consecutive >= r.cfg.MaxConsecutiveFailures {
			slog.Warn("Circuit breaker open, skipping ticker", "ticker", ticker)
			report.SkippedTickers = append(report.SkippedTickers, ticker)
			continue
		}

		raws, err := r.collectTicker(ctx, ticker, seen, report)
		if err != nil {
			// Only staging failures and cancellation propagate.
			report.FinishedAt = time.Now()
			report.settleStatus()
			return report, err
		}

		if tickerFailed(report, ticker) {
			consecutive++
		} else {
			consecutive = 0
		}

		staged = append(staged, raws...)
	}

	r.parseAll(ctx, staged, report)

	report.Aggregates = flow.Aggregate(report.Transactions)
	report.FinishedAt = time.Now()
	report.settleStatus()

	slog.Info("Pipeline run finished",
		"run_id", report.RunID,
		"status", report.Status,
		"transactions", len(report.Transactions),
		"ticker_failures", len(report.TickerFailures),
		"filing_failures", len(report.FilingFailures),
		"line_failures", len(report.LineFailures))

	return report, nil
}

// collectTicker resolves one ticker and fetches its filings. The returned
// error is pipeline-fatal only.
func (r *Runner) collectTicker(ctx context.Context, ticker string, seen map[string]bool, report *RunReport) ([]*model.RawFiling, error) {
	cik, err := r.resolver.Resolve(ctx, ticker)
	if err != nil {
		slog.Warn("Ticker resolution failed", "ticker", ticker, "error", err)
		report.TickerFailures = append(report.TickerFailures, TickerFailure{
			Ticker: ticker, Stage: StageResolve, Err: err,
		})
		return nil, nil
	}
	report.TickersResolved++

	company := model.Company{Ticker: ticker, CIK: cik}
	refs, err := r.index.ListFilings(ctx, company, r.cfg.MaxFilings)
	if err != nil {
		slog.Warn("Filing index listing failed", "ticker", ticker, "error", err)
		report.TickerFailures = append(report.TickerFailures, TickerFailure{
			Ticker: ticker, Stage: StageIndex, Err: err,
		})
		return nil, nil
	}

	var bar *progressbar.ProgressBar
	if r.cfg.ShowProgress && len(refs) > 0 {
		bar = progressbar.Default(int64(len(refs)), fmt.Sprintf("Fetching %s filings", ticker))
	}

	var raws []*model.RawFiling
	for _, ref := range refs {
		if bar != nil {
			_ = bar.Add(1)
		}
		if seen[ref.AccessionNumber] {
			continue
		}
		seen[ref.AccessionNumber] = true

		raw, err := r.fetcher.Fetch(ctx, ref)
		if err != nil {
			if errors.Is(err, common.ErrStagingUnavailable) || errors.Is(err, context.Canceled) {
				return raws, err
			}
			slog.Warn("Filing fetch failed",
				"ticker", ticker,
				"accession_number", ref.AccessionNumber,
				"error", err)
			report.FilingFailures = append(report.FilingFailures, FilingFailure{
				Ticker:          ticker,
				AccessionNumber: ref.AccessionNumber,
				Stage:           StageFetch,
				Err:             err,
			})
			continue
		}

		report.FilingsFetched++
		raws = append(raws, raw)
	}

	return raws, nil
}

// parseAll parses staged filings in parallel. Parsing is computational and
// non-blocking, so it fans out across workers without touching the fetch
// rate limiter.
func (r *Runner) parseAll(ctx context.Context, staged []*model.RawFiling, report *RunReport) {
	if len(staged) == 0 {
		return
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.ParseWorkers)

	for _, raw := range staged {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			result, err := r.parser.Parse(raw)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				slog.Warn("Filing parse failed",
					"ticker", raw.Ticker,
					"accession_number", raw.AccessionNumber,
					"error", err)
				report.FilingFailures = append(report.FilingFailures, FilingFailure{
					Ticker:          raw.Ticker,
					AccessionNumber: raw.AccessionNumber,
					Stage:           StageParse,
					Err:             err,
				})
				return nil
			}

			report.FilingsParsed++
			report.Transactions = append(report.Transactions, result.Transactions...)
			report.LineFailures = append(report.LineFailures, result.LineFailures...)
			return nil
		})
	}

	_ = g.Wait()

	// Parallel parsing appends in completion order; restore a stable order
	// so aggregation inputs, and therefore reports, are reproducible.
	sortTransactions(report.Transactions)
}

func tickerFailed(report *RunReport, ticker string) bool {
	for _, f := range report.TickerFailures {
		if f.Ticker == ticker {
			return true
		}
	}
	return false
}

func sortTransactions(txns []model.Transaction) {
	sort.SliceStable(txns, func(i, j int) bool {
		a, b := txns[i], txns[j]
		if a.Ticker != b.Ticker {
			return a.Ticker < b.Ticker
		}
		if !a.TransactionDate.Equal(b.TransactionDate) {
			return a.TransactionDate.Before(b.TransactionDate)
		}
		if a.AccessionNumber != b.AccessionNumber {
			return a.AccessionNumber < b.AccessionNumber
		}
		if a.Code != b.Code {
			return a.Code < b.Code
		}
		return a.Shares < b.Shares
	})
}
