// Package report serializes the derived tables to CSV, JSON and Excel.
// Column sets and order are part of the contract: the three formats must be
// interchangeable.
package report

import (
	"strconv"

	"github.com/ahua1010/GDG-investment-group-chip-analysis/internal/flow"
	"github.com/ahua1010/GDG-investment-group-chip-analysis/internal/model"
)

// Table names.
const (
	TableTransactions   = "transactions"
	TableCompanyFlow    = "company_flow"
	TableMonthlyFlow    = "monthly_flow"
	TableNetFlow        = "net_flow"
	TableCumulativeFlow = "cumulative_flow"
	TableConfidence     = "confidence"
	TableRecentChange   = "recent_change"
)

// UndefinedRatio is the sentinel emitted where a numeric ratio does not
// exist. It is never a silently propagated Inf or NaN.
const UndefinedRatio = "undefined"

// Table is one output table in column order.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]string
}

// Tables renders the transaction detail and the six aggregate tables.
func Tables(txns []model.Transaction, agg flow.Result) []Table {
	return []Table{
		transactionTable(txns),
		companyFlowTable(agg.CompanyFlows),
		monthlyFlowTable(agg.MonthlyFlows),
		netFlowTable(agg.NetFlows),
		cumulativeFlowTable(agg.CumulativeFlows),
		confidenceTable(agg.Confidences),
		recentChangeTable(agg.RecentChanges),
	}
}

func transactionTable(txns []model.Transaction) Table {
	t := Table{
		Name: TableTransactions,
		Columns: []string{
			"ticker", "accession_number", "reporter_name", "reporter_cik",
			"transaction_date", "transaction_code", "security_type",
			"shares", "price_per_share", "total_value",
			"filing_date", "days_since_filing", "anomalous",
		},
	}
	for _, txn := range txns {
		t.Rows = append(t.Rows, []string{
			txn.Ticker,
			txn.AccessionNumber,
			txn.ReporterName,
			txn.ReporterCIK,
			txn.TransactionDate.Format("2006-01-02"),
			string(txn.Code),
			string(txn.Security),
			formatShares(txn.Shares),
			formatValue(txn.PricePerShare),
			formatValue(txn.TotalValue()),
			txn.FilingDate.Format("2006-01-02"),
			strconv.Itoa(txn.DaysSinceFiling()),
			strconv.FormatBool(txn.Anomalous),
		})
	}
	return t
}

func companyFlowTable(rows []model.CompanyFlow) Table {
	t := Table{
		Name:    TableCompanyFlow,
		Columns: []string{"ticker", "transaction_direction", "total_value", "total_shares"},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			r.Ticker, string(r.Direction), formatValue(r.TotalValue), formatShares(r.TotalShares),
		})
	}
	return t
}

func monthlyFlowTable(rows []model.MonthlyFlow) Table {
	t := Table{
		Name:    TableMonthlyFlow,
		Columns: []string{"year_month", "transaction_direction", "total_value", "total_shares"},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			r.YearMonth, string(r.Direction), formatValue(r.TotalValue), formatShares(r.TotalShares),
		})
	}
	return t
}

func netFlowTable(rows []model.NetFlow) Table {
	t := Table{
		Name:    TableNetFlow,
		Columns: []string{"ticker", "year_month", "buy_value", "sell_value", "net_value"},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			r.Ticker, r.YearMonth, formatValue(r.BuyValue), formatValue(r.SellValue), formatValue(r.NetValue),
		})
	}
	return t
}

func cumulativeFlowTable(rows []model.CumulativeFlow) Table {
	t := Table{
		Name:    TableCumulativeFlow,
		Columns: []string{"ticker", "year_month", "cumulative_buy", "cumulative_sell", "cumulative_net"},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			r.Ticker, r.YearMonth, formatValue(r.CumulativeBuy), formatValue(r.CumulativeSell), formatValue(r.CumulativeNet),
		})
	}
	return t
}

func confidenceTable(rows []model.Confidence) Table {
	t := Table{
		Name:    TableConfidence,
		Columns: []string{"ticker", "buy_value", "sell_value", "ratio"},
	}
	for _, r := range rows {
		ratio := UndefinedRatio
		if r.Defined {
			ratio = strconv.FormatFloat(r.Ratio, 'f', 4, 64)
		}
		t.Rows = append(t.Rows, []string{
			r.Ticker, formatValue(r.BuyValue), formatValue(r.SellValue), ratio,
		})
	}
	return t
}

func recentChangeTable(rows []model.RecentChange) Table {
	t := Table{
		Name:    TableRecentChange,
		Columns: []string{"ticker", "change", "change_pct"},
	}
	for _, r := range rows {
		pct := UndefinedRatio
		if r.PctDefined {
			pct = strconv.FormatFloat(r.ChangePct, 'f', 4, 64)
		}
		t.Rows = append(t.Rows, []string{r.Ticker, formatValue(r.Change), pct})
	}
	return t
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatShares(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
