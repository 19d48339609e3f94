// Package flow derives fund-flow aggregates from Form 4 transactions.
package flow

import (
	"sort"

	"github.com/ahua1010/GDG-investment-group-chip-analysis/internal/model"
)

// Result holds the six derived tables. All of them are deterministic
// functions of the input transaction set: re-running aggregation over an
// unchanged set reproduces identical output.
type Result struct {
	CompanyFlows    []model.CompanyFlow
	MonthlyFlows    []model.MonthlyFlow
	NetFlows        []model.NetFlow
	CumulativeFlows []model.CumulativeFlow
	Confidences     []model.Confidence
	RecentChanges   []model.RecentChange
}

// Aggregate computes the derived tables from a transaction set. Pure
// function: no external state, no I/O. Transactions whose code carries no
// direction are excluded from every flow table but remain in the caller's
// transaction list.
func Aggregate(txns []model.Transaction) Result {
	net := netFlows(txns)
	cumulative := cumulativeFlows(net)

	return Result{
		CompanyFlows:    companyFlows(txns),
		MonthlyFlows:    monthlyFlows(txns),
		NetFlows:        net,
		CumulativeFlows: cumulative,
		Confidences:     confidences(txns),
		RecentChanges:   recentChanges(cumulative),
	}
}

func companyFlows(txns []model.Transaction) []model.CompanyFlow {
	type key struct {
		ticker    string
		direction model.TransactionDirection
	}

	sums := make(map[key]*model.CompanyFlow)
	for _, t := range txns {
		dir := t.Code.Direction()
		if dir == model.DirectionNone {
			continue
		}
		k := key{t.Ticker, dir}
		row, ok := sums[k]
		if !ok {
			row = &model.CompanyFlow{Ticker: t.Ticker, Direction: dir}
			sums[k] = row
		}
		row.TotalValue += t.TotalValue()
		row.TotalShares += t.Shares
	}

	rows := make([]model.CompanyFlow, 0, len(sums))
	for _, row := range sums {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Ticker != rows[j].Ticker {
			return rows[i].Ticker < rows[j].Ticker
		}
		return rows[i].Direction < rows[j].Direction
	})
	return rows
}

func monthlyFlows(txns []model.Transaction) []model.MonthlyFlow {
	type key struct {
		yearMonth string
		direction model.TransactionDirection
	}

	sums := make(map[key]*model.MonthlyFlow)
	for _, t := range txns {
		dir := t.Code.Direction()
		if dir == model.DirectionNone {
			continue
		}
		k := key{t.YearMonth(), dir}
		row, ok := sums[k]
		if !ok {
			row = &model.MonthlyFlow{YearMonth: t.YearMonth(), Direction: dir}
			sums[k] = row
		}
		row.TotalValue += t.TotalValue()
		row.TotalShares += t.Shares
	}

	rows := make([]model.MonthlyFlow, 0, len(sums))
	for _, row := range sums {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].YearMonth != rows[j].YearMonth {
			return rows[i].YearMonth < rows[j].YearMonth
		}
		return rows[i].Direction < rows[j].Direction
	})
	return rows
}

func netFlows(txns []model.Transaction) []model.NetFlow {
	type key struct {
		ticker    string
		yearMonth string
	}

	sums := make(map[key]*model.NetFlow)
	for _, t := range txns {
		dir := t.Code.Direction()
		if dir == model.DirectionNone {
			continue
		}
		k := key{t.Ticker, t.YearMonth()}
		row, ok := sums[k]
		if !ok {
			row = &model.NetFlow{Ticker: t.Ticker, YearMonth: t.YearMonth()}
			sums[k] = row
		}
		switch dir {
		case model.DirectionBuy:
			row.BuyValue += t.TotalValue()
		case model.DirectionSell:
			row.SellValue += t.TotalValue()
		}
	}

	rows := make([]model.NetFlow, 0, len(sums))
	for _, row := range sums {
		row.NetValue = row.BuyValue - row.SellValue
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Ticker != rows[j].Ticker {
			return rows[i].Ticker < rows[j].Ticker
		}
		return rows[i].YearMonth < rows[j].YearMonth
	})
	return rows
}

// cumulativeFlows expects net rows sorted by (ticker, year-month ascending),
// which is what netFlows produces.
func cumulativeFlows(net []model.NetFlow) []model.CumulativeFlow {
	rows := make([]model.CumulativeFlow, 0, len(net))

	var buy, sell, netSum float64
	var ticker string
	for _, n := range net {
		if n.Ticker != ticker {
			ticker = n.Ticker
			buy, sell, netSum = 0, 0, 0
		}
		buy += n.BuyValue
		sell += n.SellValue
		netSum += n.NetValue
		rows = append(rows, model.CumulativeFlow{
			Ticker:         n.Ticker,
			YearMonth:      n.YearMonth,
			CumulativeBuy:  buy,
			CumulativeSell: sell,
			CumulativeNet:  netSum,
		})
	}
	return rows
}

func confidences(txns []model.Transaction) []model.Confidence {
	sums := make(map[string]*model.Confidence)
	for _, t := range txns {
		dir := t.Code.Direction()
		if dir == model.DirectionNone {
			continue
		}
		row, ok := sums[t.Ticker]
		if !ok {
			row = &model.Confidence{Ticker: t.Ticker}
			sums[t.Ticker] = row
		}
		switch dir {
		case model.DirectionBuy:
			row.BuyValue += t.TotalValue()
		case model.DirectionSell:
			row.SellValue += t.TotalValue()
		}
	}

	rows := make([]model.Confidence, 0, len(sums))
	for _, row := range sums {
		// Divide-by-zero must never leak downstream as Inf or NaN; the
		// ratio is reported undefined instead.
		if row.SellValue > 0 {
			row.Ratio = row.BuyValue / row.SellValue
			row.Defined = true
		}
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Ticker < rows[j].Ticker })
	return rows
}

// recentChanges expects cumulative rows grouped by ticker in ascending
// period order.
func recentChanges(cumulative []model.CumulativeFlow) []model.RecentChange {
	byTicker := make(map[string][]model.CumulativeFlow)
	var tickers []string
	for _, c := range cumulative {
		if _, ok := byTicker[c.Ticker]; !ok {
			tickers = append(tickers, c.Ticker)
		}
		byTicker[c.Ticker] = append(byTicker[c.Ticker], c)
	}
	sort.Strings(tickers)

	var rows []model.RecentChange
	for _, ticker := range tickers {
		periods := byTicker[ticker]
		if len(periods) < 2 {
			// A single period has no trend; not an error.
			continue
		}

		latest := periods[len(periods)-1]
		previous := periods[len(periods)-2]

		row := model.RecentChange{
			Ticker: ticker,
			Change: latest.CumulativeNet - previous.CumulativeNet,
		}
		if previous.CumulativeNet != 0 {
			row.ChangePct = row.Change / abs(previous.CumulativeNet)
			row.PctDefined = true
		}
		rows = append(rows, row)
	}
	return rows
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
