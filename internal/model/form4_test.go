package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTransactionCodeDirection(t *testing.T) {
	tests := []struct {
		name string
		code TransactionCode
		want TransactionDirection
	}{
		{"purchase is a buy", CodePurchase, DirectionBuy},
		{"sale is a sell", CodeSale, DirectionSell},
		{"grant carries no direction", CodeGrant, DirectionNone},
		{"exercise carries no direction", CodeExercise, DirectionNone},
		{"gift carries no direction", CodeGift, DirectionNone},
		{"tax withholding carries no direction", CodeTax, DirectionNone},
		{"unknown code carries no direction", TransactionCode("X"), DirectionNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.Direction())
		})
	}
}

func TestClassifySecurity(t *testing.T) {
	tests := []struct {
		title string
		want  SecurityType
	}{
		{"Common Stock", SecurityCommonStock},
		{"Class A Common Stock", SecurityCommonStock},
		{"Restricted Stock Units", SecurityRSU},
		{"RSU", SecurityRSU},
		{"Non-Qualified Stock Option", SecurityOption},
		{"Employee Stock Option (right to buy)", SecurityOption},
		{"Series B Preferred", SecurityOther},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifySecurity(tt.title))
		})
	}
}

func TestTransactionTotalValue(t *testing.T) {
	txn := Transaction{Shares: 150, PricePerShare: 12.5}
	assert.InDelta(t, 1875.0, txn.TotalValue(), 1e-9)

	// Zero price yields zero value, not an error.
	free := Transaction{Shares: 1000, PricePerShare: 0}
	assert.Zero(t, free.TotalValue())
}

func TestTransactionYearMonth(t *testing.T) {
	txn := Transaction{TransactionDate: time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)}
	assert.Equal(t, "2024-02", txn.YearMonth())
}

func TestDaysSinceFiling(t *testing.T) {
	txn := Transaction{
		TransactionDate: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		FilingDate:      time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, 2, txn.DaysSinceFiling())

	// A transaction dated after the filing yields a negative delta, which
	// is reported as-is.
	future := Transaction{
		TransactionDate: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		FilingDate:      time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, -3, future.DaysSinceFiling())
}
