package model

import "time"

// Company ties a ticker symbol to the regulator-assigned identifier used to
// address its filings. Immutable once resolved; cached for the run.
type Company struct {
	Ticker string // uppercase symbol
	CIK    string // zero-padded 10-digit numeric code
}

// FilingRef identifies one Form 4 submission in the filing index.
// The accession number is the sole deduplication key across re-runs.
type FilingRef struct {
	FilingDate      time.Time
	AccessionNumber string // NNNNNNNNNN-NN-NNNNNN
	CIK             string
	Ticker          string
	DocumentURL     string
}

// RawFiling is the staged on-disk copy of one fetched filing. The artifact
// manager owns the staged files until cleanup.
type RawFiling struct {
	RetrievedAt     time.Time
	FilingDate      time.Time
	AccessionNumber string
	Ticker          string
	Path            string
	Content         []byte
}
