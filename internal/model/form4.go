package model

import (
	"strings"
	"time"
)

// TransactionCode is the one-letter code a Form 4 uses to classify a
// reported transaction.
type TransactionCode string

// Known transaction codes. Anything else is treated as Other.
const (
	CodePurchase   TransactionCode = "P" // open-market or private purchase
	CodeSale       TransactionCode = "S" // open-market or private sale
	CodeGrant      TransactionCode = "A" // grant, award or other acquisition
	CodeExercise   TransactionCode = "M" // exercise or conversion of derivative
	CodeGift       TransactionCode = "G"
	CodeTax        TransactionCode = "F" // shares withheld to cover tax
	CodeToIssuer   TransactionCode = "D" // disposition back to the issuer
	CodeConversion TransactionCode = "C"
	CodeOther      TransactionCode = "J"
)

// TransactionDirection classifies a transaction's effect on insider flow.
type TransactionDirection string

// Directions. Codes outside the buy/sell classes carry DirectionNone and are
// excluded from flow aggregates while staying in the transaction list.
const (
	DirectionBuy  TransactionDirection = "BUY"
	DirectionSell TransactionDirection = "SELL"
	DirectionNone TransactionDirection = ""
)

// Direction is a pure function of the transaction code.
func (c TransactionCode) Direction() TransactionDirection {
	switch c {
	case CodePurchase:
		return DirectionBuy
	case CodeSale:
		return DirectionSell
	default:
		return DirectionNone
	}
}

// SecurityType buckets the security title reported on a transaction line.
type SecurityType string

// Security types.
const (
	SecurityCommonStock SecurityType = "common_stock"
	SecurityRSU         SecurityType = "restricted_stock_unit"
	SecurityOption      SecurityType = "option"
	SecurityOther       SecurityType = "other"
)

// ClassifySecurity maps a filing's free-text security title onto a
// SecurityType bucket.
func ClassifySecurity(title string) SecurityType {
	t := strings.ToLower(title)
	switch {
	case strings.Contains(t, "restricted stock unit") || strings.Contains(t, "rsu"):
		return SecurityRSU
	case strings.Contains(t, "option"):
		return SecurityOption
	case strings.Contains(t, "common"):
		return SecurityCommonStock
	default:
		return SecurityOther
	}
}

// Transaction is one reported transaction line parsed from a Form 4 filing.
type Transaction struct {
	TransactionDate time.Time       `json:"transaction_date"`
	FilingDate      time.Time       `json:"filing_date"`
	Ticker          string          `json:"ticker"`
	AccessionNumber string          `json:"accession_number"`
	ReporterName    string          `json:"reporter_name"`
	ReporterCIK     string          `json:"reporter_cik"`
	Code            TransactionCode `json:"transaction_code"`
	Security        SecurityType    `json:"security_type"`
	SecurityTitle   string          `json:"security_title"`
	Shares          float64         `json:"shares"`
	PricePerShare   float64         `json:"price_per_share"` // zero for non-cash transactions
	Anomalous       bool            `json:"anomalous"`       // transaction dated after the filing itself
}

// TotalValue is always recomputed from shares and price; the value a filing
// reports for itself is never trusted.
func (t Transaction) TotalValue() float64 {
	return t.Shares * t.PricePerShare
}

// YearMonth is the grouping key for monthly aggregates, format YYYY-MM.
func (t Transaction) YearMonth() string {
	return t.TransactionDate.Format("2006-01")
}

// DaysSinceFiling returns filing date minus transaction date in whole days.
// A negative result means the filing reports a transaction dated after the
// filing; such records are flagged Anomalous rather than clamped.
func (t Transaction) DaysSinceFiling() int {
	return int(t.FilingDate.Sub(t.TransactionDate).Hours() / 24)
}
