// Package edgar talks to the SEC EDGAR filing index and document archive.
package edgar

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ahua1010/GDG-investment-group-chip-analysis/internal/common"
	"golang.org/x/time/rate"
)

const (
	defaultArchiveURL = "https://www.sec.gov"
	defaultDataURL    = "https://data.sec.gov"

	// EDGAR rate-limits by client, not by resource. One request every
	// 150ms stays well inside the published 10 req/s budget.
	defaultMinInterval = 150 * time.Millisecond
)

// Client is the shared EDGAR HTTP surface. Every request of a run, across
// all tickers and filings, goes through one Client so the per-client request
// budget is enforced globally.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	archiveURL string // www host: ticker directory, filing archive
	dataURL    string // data host: submissions index
	userAgent  string
	retryOpts  common.RetryOptions
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURLs overrides the archive and data hosts. Used by tests.
func WithBaseURLs(archiveURL, dataURL string) Option {
	return func(c *Client) {
		c.archiveURL = archiveURL
		c.dataURL = dataURL
	}
}

// WithMinInterval overrides the minimum inter-request interval.
func WithMinInterval(d time.Duration) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithRetryOptions overrides the retry policy.
func WithRetryOptions(opts common.RetryOptions) Option {
	return func(c *Client) {
		c.retryOpts = opts
	}
}

// NewClient creates an EDGAR client. EDGAR requires a User-Agent that
// identifies the caller with a contact email.
func NewClient(email string, opts ...Option) (*Client, error) {
	if email == "" {
		return nil, fmt.Errorf("%w: EDGAR contact email", common.ErrMissingConfig)
	}

	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(defaultMinInterval), 1),
		archiveURL: defaultArchiveURL,
		dataURL:    defaultDataURL,
		userAgent:  fmt.Sprintf("chip-analysis/1.0 (%s)", email),
		retryOpts: common.RetryOptions{
			MaxAttempts:  4,
			InitialDelay: 500 * time.Millisecond,
			MaxDelay:     15 * time.Second,
			Multiplier:   2.0,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// get performs one rate-limited GET with the client's retry policy.
// Timeouts, 5xx and throttling responses are retried; 404 fails immediately
// with ErrFilingNotFound wrapped in.
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	var body []byte

	err := common.WithRetry(ctx, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return &common.RetryableError{Err: err, Retryable: false}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return &common.RetryableError{
				Err:       fmt.Errorf("%w: malformed URL %q: %v", common.ErrFilingNotFound, url, err),
				Retryable: false,
			}
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "application/json, text/plain, */*")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		switch {
		case resp.StatusCode == http.StatusOK:
			// fall through to read
		case resp.StatusCode == http.StatusNotFound:
			return &common.RetryableError{
				Err:       fmt.Errorf("%w: %s", common.ErrFilingNotFound, url),
				Retryable: false,
			}
		case resp.StatusCode == http.StatusTooManyRequests:
			return common.ErrRateLimit
		case resp.StatusCode >= 500:
			return fmt.Errorf("server error %d from %s", resp.StatusCode, url)
		default:
			return &common.RetryableError{
				Err:       fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url),
				Retryable: false,
			}
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		return nil
	}, c.retryOpts)

	return body, err
}
