package flow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahua1010/GDG-investment-group-chip-analysis/internal/model"
)

func txn(ticker string, code model.TransactionCode, date string, shares, price float64) model.Transaction {
	day, _ := time.Parse("2006-01-02", date)
	return model.Transaction{
		Ticker:          ticker,
		AccessionNumber: "0001-24-" + date,
		TransactionDate: day,
		FilingDate:      day.AddDate(0, 0, 2),
		Code:            code,
		Shares:          shares,
		PricePerShare:   price,
	}
}

func sampleTransactions() []model.Transaction {
	return []model.Transaction{
		txn("AAPL", model.CodePurchase, "2024-01-05", 100, 10), // buy 1000
		txn("AAPL", model.CodeSale, "2024-01-20", 60, 10),      // sell 600
		txn("AAPL", model.CodePurchase, "2024-02-03", 90, 20),  // buy 1800
		txn("AAPL", model.CodeGrant, "2024-02-10", 500, 0),     // no direction
	}
}

func TestAggregateNetFlows(t *testing.T) {
	result := Aggregate(sampleTransactions())

	require.Len(t, result.NetFlows, 2)

	jan := result.NetFlows[0]
	assert.Equal(t, "2024-01", jan.YearMonth)
	assert.InDelta(t, 1000.0, jan.BuyValue, 1e-9)
	assert.InDelta(t, 600.0, jan.SellValue, 1e-9)
	assert.InDelta(t, 400.0, jan.NetValue, 1e-9)

	feb := result.NetFlows[1]
	assert.Equal(t, "2024-02", feb.YearMonth)
	assert.InDelta(t, 1800.0, feb.BuyValue, 1e-9)
	assert.Zero(t, feb.SellValue)
	assert.InDelta(t, 1800.0, feb.NetValue, 1e-9)
}

func TestAggregateCumulativeFlows(t *testing.T) {
	result := Aggregate(sampleTransactions())

	require.Len(t, result.CumulativeFlows, 2)

	final := result.CumulativeFlows[1]
	assert.Equal(t, "2024-02", final.YearMonth)
	assert.InDelta(t, 2800.0, final.CumulativeBuy, 1e-9)
	assert.InDelta(t, 600.0, final.CumulativeSell, 1e-9)
	assert.InDelta(t, 2200.0, final.CumulativeNet, 1e-9)

	// The final cumulative net equals the sum of period nets.
	var sum float64
	for _, n := range result.NetFlows {
		sum += n.NetValue
	}
	assert.InDelta(t, sum, final.CumulativeNet, 1e-9)
}

func TestAggregateCumulativeResetsPerTicker(t *testing.T) {
	txns := append(sampleTransactions(),
		txn("MSFT", model.CodePurchase, "2024-03-01", 10, 50),
	)
	result := Aggregate(txns)

	require.Len(t, result.CumulativeFlows, 3)
	msft := result.CumulativeFlows[2]
	assert.Equal(t, "MSFT", msft.Ticker)
	assert.InDelta(t, 500.0, msft.CumulativeBuy, 1e-9)
	assert.Zero(t, msft.CumulativeSell)
}

func TestAggregateConfidence(t *testing.T) {
	result := Aggregate(sampleTransactions())

	require.Len(t, result.Confidences, 1)
	c := result.Confidences[0]
	assert.True(t, c.Defined)
	assert.InDelta(t, 2800.0/600.0, c.Ratio, 1e-9)
}

func TestAggregateConfidenceUndefinedWithoutSells(t *testing.T) {
	txns := []model.Transaction{
		txn("MSFT", model.CodePurchase, "2024-01-05", 10, 100),
	}
	result := Aggregate(txns)

	require.Len(t, result.Confidences, 1)
	c := result.Confidences[0]
	assert.False(t, c.Defined)
	assert.Zero(t, c.Ratio)
}

func TestAggregateRecentChange(t *testing.T) {
	result := Aggregate(sampleTransactions())

	require.Len(t, result.RecentChanges, 1)
	rc := result.RecentChanges[0]
	assert.InDelta(t, 1800.0, rc.Change, 1e-9) // 2200 - 400
	assert.True(t, rc.PctDefined)
	assert.InDelta(t, 4.5, rc.ChangePct, 1e-9) // 1800 / |400|
}

func TestAggregateRecentChangeNeedsTwoPeriods(t *testing.T) {
	txns := []model.Transaction{
		txn("MSFT", model.CodePurchase, "2024-01-05", 10, 100),
	}
	result := Aggregate(txns)
	assert.Empty(t, result.RecentChanges)
}

func TestAggregateExcludesDirectionlessCodes(t *testing.T) {
	txns := []model.Transaction{
		txn("AAPL", model.CodeGrant, "2024-01-05", 1000, 5),
		txn("AAPL", model.CodeExercise, "2024-01-06", 1000, 5),
		txn("AAPL", model.CodeGift, "2024-01-07", 1000, 0),
	}
	result := Aggregate(txns)

	assert.Empty(t, result.CompanyFlows)
	assert.Empty(t, result.MonthlyFlows)
	assert.Empty(t, result.NetFlows)
}

func TestAggregateIsDeterministic(t *testing.T) {
	txns := sampleTransactions()
	first := Aggregate(txns)
	second := Aggregate(txns)
	assert.Equal(t, first, second)
}

func TestAggregateCompanyAndMonthlyFlows(t *testing.T) {
	result := Aggregate(sampleTransactions())

	require.Len(t, result.CompanyFlows, 2)
	buy := result.CompanyFlows[0]
	assert.Equal(t, model.DirectionBuy, buy.Direction)
	assert.InDelta(t, 2800.0, buy.TotalValue, 1e-9)
	assert.InDelta(t, 190.0, buy.TotalShares, 1e-9)

	sell := result.CompanyFlows[1]
	assert.Equal(t, model.DirectionSell, sell.Direction)
	assert.InDelta(t, 600.0, sell.TotalValue, 1e-9)

	require.Len(t, result.MonthlyFlows, 3)
	assert.Equal(t, "2024-01", result.MonthlyFlows[0].YearMonth)
	assert.Equal(t, model.DirectionBuy, result.MonthlyFlows[0].Direction)
}
