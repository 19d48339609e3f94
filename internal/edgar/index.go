package edgar

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ahua1010/GDG-investment-group-chip-analysis/internal/common"
	"github.com/ahua1010/GDG-investment-group-chip-analysis/internal/model"
)

const form4Type = "4"

// IndexClient lists the most recent Form 4 filings for an issuer by paging
// through the EDGAR submissions index.
type IndexClient struct {
	client *Client
}

// NewIndexClient creates an index client on the shared EDGAR client.
func NewIndexClient(client *Client) *IndexClient {
	return &IndexClient{client: client}
}

// filingPage is the columnar layout the submissions index uses: parallel
// arrays indexed by filing.
type filingPage struct {
	AccessionNumber []string `json:"accessionNumber"`
	FilingDate      []string `json:"filingDate"`
	Form            []string `json:"form"`
}

type submissionsResponse struct {
	Filings struct {
		Recent filingPage `json:"recent"`
		Files  []struct {
			Name string `json:"name"`
		} `json:"files"`
	} `json:"filings"`
}

// ListFilings returns up to maxCount Form 4 filing references, newest first,
// deduplicated by accession number within and across pages. Running out of
// history is not a failure: fewer than maxCount results come back without
// error. Retry exhaustion on any page fails with ErrIndexUnavailable.
func (ic *IndexClient) ListFilings(ctx context.Context, company model.Company, maxCount int) ([]model.FilingRef, error) {
	if maxCount <= 0 {
		return nil, nil
	}

	url := fmt.Sprintf("%s/submissions/CIK%s.json", ic.client.dataURL, company.CIK)
	body, err := ic.client.get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", common.ErrIndexUnavailable, company.Ticker, err)
	}

	var resp submissionsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %s: decode submissions: %v", common.ErrIndexUnavailable, company.Ticker, err)
	}

	seen := make(map[string]bool)
	refs := ic.collectPage(company, resp.Filings.Recent, seen, nil, maxCount)

	// Older filings live in separate index pages, newest page first. The
	// same accession number can legitimately reappear in adjacent pages due
	// to index drift; the seen set spans pages.
	for _, page := range resp.Filings.Files {
		if len(refs) >= maxCount {
			break
		}

		pageURL := fmt.Sprintf("%s/submissions/%s", ic.client.dataURL, page.Name)
		pageBody, err := ic.client.get(ctx, pageURL)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: page %s: %v", common.ErrIndexUnavailable, company.Ticker, page.Name, err)
		}

		var older filingPage
		if err := json.Unmarshal(pageBody, &older); err != nil {
			return nil, fmt.Errorf("%w: %s: decode page %s: %v", common.ErrIndexUnavailable, company.Ticker, page.Name, err)
		}

		refs = ic.collectPage(company, older, seen, refs, maxCount)
	}

	slog.Debug("Listed Form 4 filings",
		"ticker", company.Ticker,
		"requested", maxCount,
		"found", len(refs))

	return refs, nil
}

func (ic *IndexClient) collectPage(company model.Company, page filingPage, seen map[string]bool, refs []model.FilingRef, maxCount int) []model.FilingRef {
	for i := 0; i < len(page.Form) && len(refs) < maxCount; i++ {
		if page.Form[i] != form4Type {
			continue
		}
		if i >= len(page.AccessionNumber) {
			break
		}

		accession := page.AccessionNumber[i]
		if accession == "" || seen[accession] {
			continue
		}
		seen[accession] = true

		var filed time.Time
		if i < len(page.FilingDate) {
			filed, _ = time.Parse("2006-01-02", page.FilingDate[i])
		}

		refs = append(refs, model.FilingRef{
			AccessionNumber: accession,
			CIK:             company.CIK,
			Ticker:          company.Ticker,
			FilingDate:      filed,
			DocumentURL:     ic.documentURL(company.CIK, accession),
		})
	}
	return refs
}

// documentURL addresses the full text of one submission, which embeds the
// ownership XML document.
func (ic *IndexClient) documentURL(cik, accession string) string {
	return fmt.Sprintf("%s/Archives/edgar/data/%s/%s/%s.txt",
		ic.client.archiveURL,
		strings.TrimLeft(cik, "0"),
		strings.ReplaceAll(accession, "-", ""),
		accession)
}
