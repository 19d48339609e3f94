// Package twse fetches Taiwan Stock Exchange institutional-investor
// (三大法人) daily buy/sell data from the T86 endpoint.
package twse

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ahua1010/GDG-investment-group-chip-analysis/internal/artifact"
)

const (
	defaultBaseURL   = "https://www.twse.com.tw/fund/T86"
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

	// TWSE throttles aggressive clients, so keep a polite gap between
	// daily requests.
	defaultRequestDelay = 3 * time.Second
)

// DailyRow is one stock's institutional buy/sell totals for a trading day.
// Share counts keep the exchange's raw units.
type DailyRow struct {
	Date                string `json:"date"`
	StockCode           string `json:"stock_code"`
	StockName           string `json:"stock_name"`
	ForeignBuy          int64  `json:"foreign_buy"`
	ForeignSell         int64  `json:"foreign_sell"`
	InvestmentTrustBuy  int64  `json:"investment_trust_buy"`
	InvestmentTrustSell int64  `json:"investment_trust_sell"`
	DealerBuy           int64  `json:"dealer_buy"`
	DealerSell          int64  `json:"dealer_sell"`
}

// NetForeign returns foreign investors' net bought shares for the day.
func (r DailyRow) NetForeign() int64 { return r.ForeignBuy - r.ForeignSell }

// Client fetches T86 data over HTTP.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	userAgent    string
	requestDelay time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the T86 endpoint, used by tests.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithRequestDelay overrides the delay between daily requests.
func WithRequestDelay(d time.Duration) Option {
	return func(c *Client) { c.requestDelay = d }
}

// NewClient creates a TWSE client with polite defaults.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		baseURL:      defaultBaseURL,
		userAgent:    defaultUserAgent,
		requestDelay: defaultRequestDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// t86Response is the raw T86 payload. Rows are positional string arrays
// whose layout is described by the fields header.
type t86Response struct {
	Stat   string     `json:"stat"`
	Fields []string   `json:"fields"`
	Data   [][]string `json:"data"`
}

// fieldMapping maps the exchange's Chinese column headers to DailyRow fields.
var fieldMapping = map[string]string{
	"證券代號":    "stock_code",
	"證券名稱":    "stock_name",
	"外陸資買進股數": "foreign_buy",
	"外陸資賣出股數": "foreign_sell",
	"投信買進股數":  "investment_trust_buy",
	"投信賣出股數":  "investment_trust_sell",
	"自營商買進股數": "dealer_buy",
	"自營商賣出股數": "dealer_sell",
}

// GetDaily fetches institutional buy/sell totals for one trading day.
// Returns a nil slice without error on non-trading days, which the
// exchange reports with a non-OK stat.
func (c *Client) GetDaily(ctx context.Context, date time.Time) ([]DailyRow, error) {
	url := fmt.Sprintf("%s?response=json&date=%s&selectType=ALL", c.baseURL, date.Format("20060102"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch T86 for %s: %w", date.Format("2006-01-02"), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch T86 for %s: unexpected status %d", date.Format("2006-01-02"), resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read T86 response: %w", err)
	}

	var payload t86Response
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode T86 response: %w", err)
	}
	if payload.Stat != "OK" {
		slog.Debug("No TWSE data for date", "date", date.Format("2006-01-02"), "stat", payload.Stat)
		return nil, nil
	}

	return parseRows(payload, date)
}

// GetRange fetches every weekday in [start, end], pausing between requests.
// Days the exchange has no data for are skipped silently.
func (c *Client) GetRange(ctx context.Context, start, end time.Time) ([]DailyRow, error) {
	var all []DailyRow
	first := true
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		if day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
			continue
		}
		if !first {
			select {
			case <-ctx.Done():
				return all, ctx.Err()
			case <-time.After(c.requestDelay):
			}
		}
		first = false

		rows, err := c.GetDaily(ctx, day)
		if err != nil {
			return all, err
		}
		all = append(all, rows...)
	}
	return all, nil
}

func parseRows(payload t86Response, date time.Time) ([]DailyRow, error) {
	// Locate each column we care about by header name so the exchange
	// can reorder or append columns without breaking us.
	index := make(map[string]int, len(fieldMapping))
	for i, field := range payload.Fields {
		if name, ok := fieldMapping[strings.TrimSpace(field)]; ok {
			index[name] = i
		}
	}
	for _, name := range []string{"stock_code", "foreign_buy", "foreign_sell"} {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("T86 response missing column %s", name)
		}
	}

	rows := make([]DailyRow, 0, len(payload.Data))
	for _, raw := range payload.Data {
		row := DailyRow{Date: date.Format("2006-01-02")}
		row.StockCode = cell(raw, index, "stock_code")
		row.StockName = cell(raw, index, "stock_name")

		var err error
		if row.ForeignBuy, err = numericCell(raw, index, "foreign_buy"); err != nil {
			slog.Warn("Skipping malformed TWSE row", "stock_code", row.StockCode, "error", err)
			continue
		}
		if row.ForeignSell, err = numericCell(raw, index, "foreign_sell"); err != nil {
			slog.Warn("Skipping malformed TWSE row", "stock_code", row.StockCode, "error", err)
			continue
		}
		row.InvestmentTrustBuy, _ = numericCell(raw, index, "investment_trust_buy")
		row.InvestmentTrustSell, _ = numericCell(raw, index, "investment_trust_sell")
		row.DealerBuy, _ = numericCell(raw, index, "dealer_buy")
		row.DealerSell, _ = numericCell(raw, index, "dealer_sell")

		rows = append(rows, row)
	}
	return rows, nil
}

func cell(raw []string, index map[string]int, name string) string {
	i, ok := index[name]
	if !ok || i >= len(raw) {
		return ""
	}
	return strings.TrimSpace(raw[i])
}

func numericCell(raw []string, index map[string]int, name string) (int64, error) {
	s := cell(raw, index, name)
	if s == "" {
		return 0, nil
	}
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", name, s, err)
	}
	return v, nil
}

// SaveCSV writes rows to dir as a dated CSV and tracks it as a final
// artifact.
func SaveCSV(rows []DailyRow, dir string, artifacts *artifact.Manager) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("tw_institutional_%s.csv", time.Now().Format("20060102")))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{
		"date", "stock_code", "stock_name",
		"foreign_buy", "foreign_sell",
		"investment_trust_buy", "investment_trust_sell",
		"dealer_buy", "dealer_sell", "foreign_net",
	}
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("write CSV header: %w", err)
	}
	for _, r := range rows {
		record := []string{
			r.Date, r.StockCode, r.StockName,
			strconv.FormatInt(r.ForeignBuy, 10),
			strconv.FormatInt(r.ForeignSell, 10),
			strconv.FormatInt(r.InvestmentTrustBuy, 10),
			strconv.FormatInt(r.InvestmentTrustSell, 10),
			strconv.FormatInt(r.DealerBuy, 10),
			strconv.FormatInt(r.DealerSell, 10),
			strconv.FormatInt(r.NetForeign(), 10),
		}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("write CSV row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush CSV: %w", err)
	}

	if artifacts != nil {
		artifacts.Track(path, artifact.RoleFinal)
	}
	return path, nil
}
