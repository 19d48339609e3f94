package pipeline

import (
	"context"

	"github.com/ahua1010/GDG-investment-group-chip-analysis/internal/form4"
	"github.com/ahua1010/GDG-investment-group-chip-analysis/internal/model"
)

// Resolver maps ticker symbols to CIK identifiers.
type Resolver interface {
	Resolve(ctx context.Context, ticker string) (string, error)
}

// IndexClient lists recent Form 4 filings for one issuer, newest first.
type IndexClient interface {
	ListFilings(ctx context.Context, company model.Company, maxCount int) ([]model.FilingRef, error)
}

// Fetcher downloads one filing document into the staging area.
type Fetcher interface {
	Fetch(ctx context.Context, ref model.FilingRef) (*model.RawFiling, error)
}

// Parser extracts transactions from one staged filing.
type Parser interface {
	Parse(raw *model.RawFiling) (*form4.ParseResult, error)
}
