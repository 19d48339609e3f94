package pipeline

import (
	"time"

	"github.com/ahua1010/GDG-investment-group-chip-analysis/internal/flow"
	"github.com/ahua1010/GDG-investment-group-chip-analysis/internal/form4"
	"github.com/ahua1010/GDG-investment-group-chip-analysis/internal/model"
)

// Status summarizes a run's outcome.
type Status string

// Statuses.
const (
	StatusSuccess Status = "success"
	StatusPartial Status = "partial"
	StatusFailed  Status = "failed"
)

// Stage names a pipeline stage for failure reporting.
type Stage string

// Stages.
const (
	StageResolve Stage = "resolve"
	StageIndex   Stage = "index"
	StageFetch   Stage = "fetch"
	StageParse   Stage = "parse"
)

// TickerFailure records a per-ticker failure; the batch continues.
type TickerFailure struct {
	Err    error
	Ticker string
	Stage  Stage
}

// FilingFailure records a per-filing failure; sibling filings continue.
type FilingFailure struct {
	Err             error
	Ticker          string
	AccessionNumber string
	Stage           Stage
}

// RunReport enumerates everything a run produced and everything that
// failed, and why. No single ticker's or filing's failure aborts the batch.
type RunReport struct {
	StartedAt       time.Time
	FinishedAt      time.Time
	RunID           string
	Status          Status
	Transactions    []model.Transaction
	Aggregates      flow.Result
	TickerFailures  []TickerFailure
	FilingFailures  []FilingFailure
	LineFailures    []form4.LineFailure
	SkippedTickers  []string
	TickersResolved int
	FilingsFetched  int
	FilingsParsed   int
}

// Failed reports whether anything at all went wrong during the run.
func (r *RunReport) Failed() bool {
	return len(r.TickerFailures) > 0 || len(r.FilingFailures) > 0 ||
		len(r.LineFailures) > 0 || len(r.SkippedTickers) > 0
}

func (r *RunReport) settleStatus() {
	switch {
	case !r.Failed():
		r.Status = StatusSuccess
	case len(r.Transactions) > 0:
		r.Status = StatusPartial
	default:
		r.Status = StatusFailed
	}
}
