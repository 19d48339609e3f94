package twse

import (
	"context"
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleT86 = `{
	"stat": "OK",
	"fields": ["證券代號","證券名稱","外陸資買進股數","外陸資賣出股數","投信買進股數","投信賣出股數","自營商買進股數","自營商賣出股數"],
	"data": [
		["2330","台積電","12,345,678","2,345,678","100,000","50,000","30,000","10,000"],
		["2317","鴻海","1,000","5,000","0","0","200","100"]
	]
}`

func TestGetDaily(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "json", r.URL.Query().Get("response"))
		assert.Equal(t, "20240115", r.URL.Query().Get("date"))
		assert.Equal(t, "ALL", r.URL.Query().Get("selectType"))
		w.Write([]byte(sampleT86))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithRequestDelay(0))
	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	rows, err := client.GetDaily(context.Background(), date)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	tsmc := rows[0]
	assert.Equal(t, "2024-01-15", tsmc.Date)
	assert.Equal(t, "2330", tsmc.StockCode)
	assert.Equal(t, "台積電", tsmc.StockName)
	assert.Equal(t, int64(12345678), tsmc.ForeignBuy)
	assert.Equal(t, int64(2345678), tsmc.ForeignSell)
	assert.Equal(t, int64(10000000), tsmc.NetForeign())
	assert.Equal(t, int64(100000), tsmc.InvestmentTrustBuy)

	honhai := rows[1]
	assert.Equal(t, int64(-4000), honhai.NetForeign())
}

func TestGetDailyNonTradingDay(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"stat":"很抱歉，沒有符合條件的資料!"}`))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	rows, err := client.GetDaily(context.Background(), time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Nil(t, rows)
}

func TestGetDailyMissingColumns(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"stat":"OK","fields":["證券代號"],"data":[["2330"]]}`))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	_, err := client.GetDaily(context.Background(), time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing column")
}

func TestGetRangeSkipsWeekends(t *testing.T) {
	var requested []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = append(requested, r.URL.Query().Get("date"))
		w.Write([]byte(sampleT86))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithRequestDelay(0))

	// Fri Jan 12 through Mon Jan 15, 2024. Sat and Sun must be skipped.
	start := time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	rows, err := client.GetRange(context.Background(), start, end)
	require.NoError(t, err)
	assert.Equal(t, []string{"20240112", "20240115"}, requested)
	assert.Len(t, rows, 4)
}

func TestSaveCSV(t *testing.T) {
	dir := t.TempDir()
	rows := []DailyRow{
		{
			Date: "2024-01-15", StockCode: "2330", StockName: "台積電",
			ForeignBuy: 100, ForeignSell: 40,
		},
	}

	path, err := SaveCSV(rows, dir, nil)
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "foreign_net", records[0][9])
	assert.Equal(t, "60", records[1][9])
}
