package edgar

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ahua1010/GDG-investment-group-chip-analysis/internal/common"
	gocache "github.com/patrickmn/go-cache"
)

const tickerDirectoryPath = "/files/company_tickers.json"

// Resolver maps ticker symbols to zero-padded CIK identifiers using the
// EDGAR company-ticker directory. Resolutions are cached for the lifetime of
// the Resolver, which is constructed per run so repeated runs never share
// state.
type Resolver struct {
	client *Client
	cache  *gocache.Cache
	loaded bool
}

// NewResolver creates a run-scoped resolver.
func NewResolver(client *Client) *Resolver {
	return &Resolver{
		client: client,
		cache:  gocache.New(gocache.NoExpiration, 0),
	}
}

// Resolve returns the issuer's CIK for a ticker. Unknown tickers fail with
// ErrUnknownTicker; the caller treats that as a per-ticker failure, not
// pipeline-fatal.
func (r *Resolver) Resolve(ctx context.Context, ticker string) (string, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return "", fmt.Errorf("%w: empty ticker", common.ErrUnknownTicker)
	}

	if cik, found := r.cache.Get(ticker); found {
		return cik.(string), nil
	}

	// The directory lists every registered company; load it once and cache
	// all entries so sibling tickers resolve without another request.
	if !r.loaded {
		if err := r.loadDirectory(ctx); err != nil {
			return "", fmt.Errorf("ticker directory: %w", err)
		}
		r.loaded = true

		if cik, found := r.cache.Get(ticker); found {
			return cik.(string), nil
		}
	}

	return "", fmt.Errorf("%w: %s", common.ErrUnknownTicker, ticker)
}

func (r *Resolver) loadDirectory(ctx context.Context) error {
	body, err := r.client.get(ctx, r.client.archiveURL+tickerDirectoryPath)
	if err != nil {
		return err
	}

	// Keyed by arbitrary row index, not by ticker.
	var entries map[string]struct {
		CIK    int64  `json:"cik_str"`
		Ticker string `json:"ticker"`
		Title  string `json:"title"`
	}
	if err := json.Unmarshal(body, &entries); err != nil {
		return fmt.Errorf("decode ticker directory: %w", err)
	}

	for _, e := range entries {
		r.cache.Set(strings.ToUpper(e.Ticker), padCIK(e.CIK), gocache.NoExpiration)
	}

	slog.Debug("Loaded EDGAR ticker directory", "companies", len(entries))
	return nil
}

// padCIK renders a CIK in the fixed-width form EDGAR URLs expect.
func padCIK(cik int64) string {
	return fmt.Sprintf("%010d", cik)
}
