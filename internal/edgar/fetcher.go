package edgar

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ahua1010/GDG-investment-group-chip-analysis/internal/artifact"
	"github.com/ahua1010/GDG-investment-group-chip-analysis/internal/common"
	"github.com/ahua1010/GDG-investment-group-chip-analysis/internal/model"
)

const (
	ownershipOpen  = "<ownershipDocument>"
	ownershipClose = "</ownershipDocument>"
	xmlHeader      = "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n"
)

// Fetcher downloads raw Form 4 submissions into the staging directory,
// registering every written file with the artifact manager.
type Fetcher struct {
	client    *Client
	artifacts *artifact.Manager
	staging   string
}

// NewFetcher creates a fetcher writing to stagingDir. An unusable staging
// directory is the one pipeline-fatal condition and surfaces immediately.
func NewFetcher(client *Client, stagingDir string, artifacts *artifact.Manager) (*Fetcher, error) {
	if err := os.MkdirAll(stagingDir, 0o750); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStagingUnavailable, err)
	}

	return &Fetcher{
		client:    client,
		artifacts: artifacts,
		staging:   stagingDir,
	}, nil
}

// Fetch downloads one filing under the shared rate limit, stages the raw
// submission, and extracts the embedded ownership XML section when present.
// 404 and malformed URLs fail immediately with ErrFilingNotFound; transient
// failures are retried and, once exhausted, reported as a per-filing
// FetchError that must not abort sibling fetches.
func (f *Fetcher) Fetch(ctx context.Context, ref model.FilingRef) (*model.RawFiling, error) {
	body, err := f.client.get(ctx, ref.DocumentURL)
	if err != nil {
		if errors.Is(err, common.ErrFilingNotFound) {
			return nil, err
		}
		return nil, &common.FetchError{AccessionNumber: ref.AccessionNumber, Err: err}
	}

	rawPath := filepath.Join(f.staging, ref.AccessionNumber+".txt")
	if err := os.WriteFile(rawPath, body, 0o640); err != nil {
		return nil, fmt.Errorf("%w: write %s: %v", common.ErrStagingUnavailable, rawPath, err)
	}
	f.artifacts.Track(rawPath, artifact.RoleIntermediate)

	raw := &model.RawFiling{
		AccessionNumber: ref.AccessionNumber,
		Ticker:          ref.Ticker,
		FilingDate:      ref.FilingDate,
		Path:            rawPath,
		Content:         body,
		RetrievedAt:     time.Now(),
	}

	// The full submission wraps the ownership document in SGML headers.
	// Extract and stage the XML section; when it is missing the parser
	// reports the filing as malformed.
	if doc, ok := extractOwnershipDocument(body); ok {
		xmlPath := filepath.Join(f.staging, ref.AccessionNumber+".xml")
		if err := os.WriteFile(xmlPath, doc, 0o640); err != nil {
			return nil, fmt.Errorf("%w: write %s: %v", common.ErrStagingUnavailable, xmlPath, err)
		}
		f.artifacts.Track(xmlPath, artifact.RoleIntermediate)
		raw.Content = doc
	}

	return raw, nil
}

func extractOwnershipDocument(body []byte) ([]byte, bool) {
	s := string(body)
	start := strings.Index(s, ownershipOpen)
	if start < 0 {
		return nil, false
	}
	end := strings.Index(s[start:], ownershipClose)
	if end < 0 {
		return nil, false
	}

	doc := s[start : start+end+len(ownershipClose)]
	return []byte(xmlHeader + doc), true
}
