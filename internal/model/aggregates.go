package model

// Aggregate rows are derived views over a Transaction set. They are
// recomputed on every run and never persisted as authoritative state.

// CompanyFlow sums value and shares per (ticker, direction).
type CompanyFlow struct {
	Ticker      string               `json:"ticker"`
	Direction   TransactionDirection `json:"transaction_direction"`
	TotalValue  float64              `json:"total_value"`
	TotalShares float64              `json:"total_shares"`
}

// MonthlyFlow sums value and shares per (year-month, direction) across all
// tickers.
type MonthlyFlow struct {
	YearMonth   string               `json:"year_month"`
	Direction   TransactionDirection `json:"transaction_direction"`
	TotalValue  float64              `json:"total_value"`
	TotalShares float64              `json:"total_shares"`
}

// NetFlow nets buy value against sell value per (ticker, year-month).
type NetFlow struct {
	Ticker    string  `json:"ticker"`
	YearMonth string  `json:"year_month"`
	BuyValue  float64 `json:"buy_value"`
	SellValue float64 `json:"sell_value"`
	NetValue  float64 `json:"net_value"`
}

// CumulativeFlow carries per-ticker running totals over NetFlow periods,
// ordered by year-month ascending.
type CumulativeFlow struct {
	Ticker         string  `json:"ticker"`
	YearMonth      string  `json:"year_month"`
	CumulativeBuy  float64 `json:"cumulative_buy"`
	CumulativeSell float64 `json:"cumulative_sell"`
	CumulativeNet  float64 `json:"cumulative_net"`
}

// Confidence is the buy/sell value ratio per ticker over the full window.
// When no sell value exists the ratio is undefined, never ±Inf or NaN.
type Confidence struct {
	Ticker    string  `json:"ticker"`
	BuyValue  float64 `json:"buy_value"`
	SellValue float64 `json:"sell_value"`
	Ratio     float64 `json:"ratio"`
	Defined   bool    `json:"ratio_defined"`
}

// RecentChange compares the two most recent cumulative periods of a ticker.
// Tickers with fewer than two periods produce no row.
type RecentChange struct {
	Ticker     string  `json:"ticker"`
	Change     float64 `json:"change"`
	ChangePct  float64 `json:"change_pct"`
	PctDefined bool    `json:"change_pct_defined"` // false when the previous net is zero
}
