// Package form4 parses ownership XML documents into normalized transactions.
package form4

import (
	"encoding/xml"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/ahua1010/GDG-investment-group-chip-analysis/internal/model"
)

// ParseError reports an unparseable or schema-violating filing. It is
// per-filing: the rest of the batch continues.
type ParseError struct {
	AccessionNumber string
	Reason          string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed filing %s: %s", e.AccessionNumber, e.Reason)
}

// LineFailure records one transaction line that failed numeric or date
// validation. Sibling lines in the same document are still extracted.
type LineFailure struct {
	AccessionNumber string
	Reason          string
	Line            int
}

// ParseResult is the outcome of parsing one filing. Partial extraction is
// legitimate and reported as such through LineFailures.
type ParseResult struct {
	Transactions []model.Transaction
	LineFailures []LineFailure
}

// ownershipDocument mirrors the subset of the Form 4 XML schema the
// pipeline consumes.
type ownershipDocument struct {
	XMLName       xml.Name         `xml:"ownershipDocument"`
	DocumentType  string           `xml:"documentType"`
	Owners        []reportingOwner `xml:"reportingOwner"`
	NonDerivative struct {
		Transactions []transactionEntry `xml:"nonDerivativeTransaction"`
	} `xml:"nonDerivativeTable"`
}

type reportingOwner struct {
	ID struct {
		CIK  string `xml:"rptOwnerCik"`
		Name string `xml:"rptOwnerName"`
	} `xml:"reportingOwnerId"`
}

type transactionEntry struct {
	SecurityTitle   valueElem `xml:"securityTitle"`
	TransactionDate valueElem `xml:"transactionDate"`
	Coding          struct {
		Code string `xml:"transactionCode"`
	} `xml:"transactionCoding"`
	Amounts struct {
		Shares valueElem `xml:"transactionShares"`
		Price  valueElem `xml:"transactionPricePerShare"`
	} `xml:"transactionAmounts"`
}

type valueElem struct {
	Value string `xml:"value"`
}

// Parser converts staged filings into transactions. It holds no state and
// is safe for concurrent use across filings.
type Parser struct{}

// NewParser creates a parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse extracts zero or more transactions from one staged filing.
// Administrative-only filings legitimately yield none. A document that is
// not valid Form 4 XML fails with a ParseError; individual lines with
// invalid numerics are skipped and recorded, not fatal to the filing.
func (p *Parser) Parse(raw *model.RawFiling) (*ParseResult, error) {
	var doc ownershipDocument
	if err := xml.Unmarshal(raw.Content, &doc); err != nil {
		return nil, &ParseError{
			AccessionNumber: raw.AccessionNumber,
			Reason:          fmt.Sprintf("invalid ownership XML: %v", err),
		}
	}

	if strings.TrimSpace(doc.DocumentType) != "4" {
		return nil, &ParseError{
			AccessionNumber: raw.AccessionNumber,
			Reason:          fmt.Sprintf("not a Form 4 document (type %q)", doc.DocumentType),
		}
	}

	reporterName := "Unknown"
	reporterCIK := ""
	if len(doc.Owners) > 0 {
		if name := strings.TrimSpace(doc.Owners[0].ID.Name); name != "" {
			reporterName = name
		}
		reporterCIK = strings.TrimSpace(doc.Owners[0].ID.CIK)
	}

	result := &ParseResult{}
	for i, entry := range doc.NonDerivative.Transactions {
		txn, err := p.parseLine(raw, entry, reporterName, reporterCIK)
		if err != nil {
			result.LineFailures = append(result.LineFailures, LineFailure{
				AccessionNumber: raw.AccessionNumber,
				Line:            i,
				Reason:          err.Error(),
			})
			continue
		}
		result.Transactions = append(result.Transactions, txn)
	}

	return result, nil
}

func (p *Parser) parseLine(raw *model.RawFiling, entry transactionEntry, reporterName, reporterCIK string) (model.Transaction, error) {
	var zero model.Transaction

	date, err := time.Parse("2006-01-02", strings.TrimSpace(entry.TransactionDate.Value))
	if err != nil {
		return zero, fmt.Errorf("invalid transaction date %q", entry.TransactionDate.Value)
	}

	shares, err := parseNonNegative(entry.Amounts.Shares.Value, "share count")
	if err != nil {
		return zero, err
	}

	price, err := parseNonNegative(entry.Amounts.Price.Value, "price per share")
	if err != nil {
		return zero, err
	}

	title := strings.TrimSpace(entry.SecurityTitle.Value)

	txn := model.Transaction{
		Ticker:          raw.Ticker,
		AccessionNumber: raw.AccessionNumber,
		ReporterName:    reporterName,
		ReporterCIK:     reporterCIK,
		TransactionDate: date,
		FilingDate:      raw.FilingDate,
		Code:            model.TransactionCode(strings.TrimSpace(entry.Coding.Code)),
		Security:        model.ClassifySecurity(title),
		SecurityTitle:   title,
		Shares:          shares,
		PricePerShare:   price,
	}

	// A transaction dated after its own filing is a data anomaly; flag it,
	// never clamp it.
	if txn.DaysSinceFiling() < 0 {
		txn.Anomalous = true
		slog.Warn("Transaction dated after filing",
			"accession_number", raw.AccessionNumber,
			"transaction_date", date.Format("2006-01-02"),
			"filing_date", raw.FilingDate.Format("2006-01-02"))
	}

	return txn, nil
}

// parseNonNegative validates a numeric field. Price may legitimately be
// zero for non-cash transactions, but a missing, non-numeric or negative
// value is a validation failure for that line only.
func parseNonNegative(s, field string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("missing %s", field)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("non-numeric %s %q", field, s)
	}
	if v < 0 {
		return 0, fmt.Errorf("negative %s %v", field, v)
	}
	return v, nil
}
