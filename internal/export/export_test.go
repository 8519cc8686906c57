package export

import (
	"context"
	"database/sql"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/folio/internal/testutil"
	"github.com/leapstack-labs/folio/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResponse() *core.StockAssetResponse {
	return &core.StockAssetResponse{
		StockAssets: []core.StockAsset{
			{
				ID: 1, StockCode: "005930", StockName: "Samsung Electronics", BuyDate: "2024-03-15",
				Quantity: 10, InvestmentBank: "Toss Securities", AccountType: "ISA",
				PurchaseCurrencyType: "KRW", PurchasePrice: 70000, PurchaseAmount: 700000,
				CurrentPrice: 71500, ProfitAmount: 15000, ProfitRate: 2.14,
				Dividend: testutil.Ptr(3650.0),
				Extra:    map[string]float64{"market_value": 715000},
			},
			{
				ID: 2, StockCode: "AAPL", StockName: "Apple", BuyDate: "2024-03-15",
				Quantity: 2, PurchaseCurrencyType: "USD", PurchasePrice: 170,
			},
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name    string
		format  string
		path    string
		want    Format
		wantErr bool
	}{
		{"explicit csv", "csv", "out.bin", FormatCSV, false},
		{"explicit parquet", "PARQUET", "", FormatParquet, false},
		{"from extension", "", "holdings.parquet", FormatParquet, false},
		{"from csv extension", "", "dir/holdings.CSV", FormatCSV, false},
		{"unknown", "xlsx", "", "", true},
		{"no hint", "", "holdings", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFormat(tt.format, tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWrite_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "holdings.csv")
	n, err := New(testutil.NewTestLogger(t)).Write(context.Background(), sampleResponse(), path, FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	header := records[0]
	assert.Equal(t, "id", header[0])
	assert.Equal(t, "market_value", header[len(header)-1], "extras trail the built-in columns")
	assert.Equal(t, "005930", records[1][1])
	assert.Equal(t, "2024-03-15", records[1][3])
	assert.Equal(t, "", records[2][len(header)-1], "a missing extra is NULL")
}

func TestWrite_Parquet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "holdings.parquet")
	_, err := New(nil).Write(context.Background(), sampleResponse(), path, FormatParquet)
	require.NoError(t, err)

	db, err := sql.Open("duckdb", "")
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	var count int
	var dividend sql.NullFloat64
	err = db.QueryRow(`SELECT count(*), max(dividend) FROM read_parquet('` + path + `')`).Scan(&count, &dividend)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	require.True(t, dividend.Valid)
	assert.InDelta(t, 3650, dividend.Float64, 1e-9)
}

func TestWrite_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	n, err := New(nil).Write(context.Background(), &core.StockAssetResponse{}, path, FormatCSV)
	require.NoError(t, err)
	assert.Zero(t, n)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "stock_code", "the header is still written")
}

func TestWrite_BadPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "dir", "out.csv")
	_, err := New(nil).Write(context.Background(), sampleResponse(), path, FormatCSV)
	assert.Error(t, err)
}
