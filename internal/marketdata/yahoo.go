// Package marketdata collects daily OHLCV history for US ETFs and indices
// and derives simple fund-flow measures from it.
package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

var ErrNoChartData = errors.New("yahoo: no chart data")

// Bar is one trading day of a symbol with derived fund-flow values.
// FundFlow is (close - open) * volume, FundFlowNormalized divides that
// by the close.
type Bar struct {
	Ticker             string  `json:"ticker"`
	Date               string  `json:"date"`
	Open               float64 `json:"open"`
	High               float64 `json:"high"`
	Low                float64 `json:"low"`
	Close              float64 `json:"close"`
	Volume             int64   `json:"volume"`
	FundFlow           float64 `json:"fund_flow"`
	FundFlowNormalized float64 `json:"fund_flow_normalized"`
}

// YahooProvider fetches daily OHLCV bars from the Yahoo Finance v8 chart
// endpoint.
type YahooProvider struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
}

// YahooOption configures a YahooProvider.
type YahooOption func(*YahooProvider)

// WithYahooBaseURL overrides the chart endpoint, used by tests.
func WithYahooBaseURL(url string) YahooOption {
	return func(p *YahooProvider) { p.baseURL = url }
}

// NewYahooProvider creates a provider with sane timeouts.
func NewYahooProvider(opts ...YahooOption) *YahooProvider {
	p := &YahooProvider{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    "https://query2.finance.yahoo.com/v8/finance/chart",
		userAgent:  "chip-analysis/1.0",
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []float64 `json:"open"`
					High   []float64 `json:"high"`
					Low    []float64 `json:"low"`
					Close  []float64 `json:"close"`
					Volume []int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error any `json:"error"`
	} `json:"chart"`
}

// History returns daily bars for symbol covering the last days calendar
// days, oldest first.
func (p *YahooProvider) History(ctx context.Context, symbol string, days int) ([]Bar, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("%w: empty symbol", ErrNoChartData)
	}
	if days <= 0 {
		days = 30
	}

	url := fmt.Sprintf("%s/%s?interval=1d&range=%dd", p.baseURL, symbol, days)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch chart for %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch chart for %s: unexpected status %d", symbol, resp.StatusCode)
	}

	var raw chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode chart for %s: %w", symbol, err)
	}
	if len(raw.Chart.Result) == 0 || len(raw.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoChartData, symbol)
	}

	result := raw.Chart.Result[0]
	quote := result.Indicators.Quote[0]

	bars := make([]Bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(quote.Open) || i >= len(quote.Close) || i >= len(quote.Volume) {
			break
		}
		// Yahoo emits zero-filled entries for halted or partial days.
		if quote.Close[i] <= 0 {
			continue
		}
		bar := Bar{
			Ticker: symbol,
			Date:   time.Unix(ts, 0).UTC().Format("2006-01-02"),
			Open:   quote.Open[i],
			High:   at(quote.High, i),
			Low:    at(quote.Low, i),
			Close:  quote.Close[i],
			Volume: quote.Volume[i],
		}
		bar.FundFlow = (bar.Close - bar.Open) * float64(bar.Volume)
		bar.FundFlowNormalized = bar.FundFlow / bar.Close
		bars = append(bars, bar)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoChartData, symbol)
	}
	return bars, nil
}

func at(values []float64, i int) float64 {
	if i >= len(values) {
		return 0
	}
	return values[i]
}
