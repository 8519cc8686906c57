package portfolio

import (
	"context"
	"testing"
	"time"

	"github.com/leapstack-labs/folio/internal/formula"
	"github.com/leapstack-labs/folio/internal/sheet"
	"github.com/leapstack-labs/folio/internal/state"
	"github.com/leapstack-labs/folio/internal/testutil"
	"github.com/leapstack-labs/folio/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) time.Time {
	t, err := time.Parse(core.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func ptr(f float64) *float64 { return &f }

func id(i int64) *int64 { return &i }

// setupService returns a service over an in-memory store seeded with two
// stocks, their prices, one dividend and the USD rate.
func setupService(t *testing.T) (*Service, *state.SQLStore) {
	t.Helper()
	ctx := context.Background()
	logger := testutil.NewTestLogger(t)
	store, err := state.Open(ctx, core.StoreConfig{Type: "sqlite", Path: ":memory:"}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(ctx))

	for _, st := range []*core.Stock{
		{Code: "005930", Name: "Samsung Electronics", Currency: "KRW"},
		{Code: "AAPL", Name: "Apple", Currency: "USD"},
		{Code: "NODATA", Name: "No Data", Currency: "KRW"},
	} {
		require.NoError(t, store.SaveStock(ctx, st))
	}
	for _, d := range []*core.StockDaily{
		{Code: "005930", Date: date("2024-03-15"), ClosePrice: 70500},
		{Code: "005930", Date: date("2024-03-18"), OpeningPrice: 71000, HighestPrice: 72000, LowestPrice: 70000, ClosePrice: 71500, TradeVolume: 200},
		{Code: "AAPL", Date: date("2024-03-15"), ClosePrice: 150},
		{Code: "AAPL", Date: date("2024-03-18"), ClosePrice: 172},
	} {
		require.NoError(t, store.SaveDaily(ctx, d))
	}
	require.NoError(t, store.SaveDividend(ctx, "005930", 365))
	require.NoError(t, store.SaveExchangeRate(ctx, "USD", "KRW", 1300))

	svc, err := New(store, nil, logger)
	require.NoError(t, err)
	return svc, store
}

func seedHoldings(t *testing.T, svc *Service) {
	t.Helper()
	_, err := svc.CreateAssets(context.Background(), core.DefaultUserID, []core.AssetRequest{
		{StockCode: "005930", BuyDate: "2024-03-15", Quantity: 10, InvestmentBank: "Toss Securities", AccountType: "ISA", PurchaseCurrencyType: "KRW", PurchasePrice: ptr(70000)},
		{StockCode: "AAPL", BuyDate: "2024-03-15", Quantity: 2, PurchaseCurrencyType: "USD"},
	})
	require.NoError(t, err)
}

func TestBankAccounts(t *testing.T) {
	svc, _ := setupService(t)
	got := svc.BankAccounts()
	assert.Equal(t, core.InvestmentBanks, got.InvestmentBankList)
	assert.Equal(t, core.AccountTypes, got.AccountList)

	got.AccountList[0] = "mutated"
	assert.NotEqual(t, "mutated", core.AccountTypes[0])
}

func TestStocks(t *testing.T) {
	svc, _ := setupService(t)
	list, err := svc.Stocks(context.Background())
	require.NoError(t, err)
	require.Len(t, list.StockList, 3)
	assert.Equal(t, core.StockRef{Name: "Apple", Code: "AAPL"}, list.StockList[0])
}

func TestStockAssets_PurchaseCurrency(t *testing.T) {
	svc, _ := setupService(t)
	seedHoldings(t, svc)

	resp, err := svc.StockAssets(context.Background(), core.DefaultUserID, false)
	require.NoError(t, err)
	require.Len(t, resp.StockAssets, 2)

	samsung := resp.StockAssets[0]
	assert.Equal(t, "Samsung Electronics", samsung.StockName)
	assert.Equal(t, "2024-03-15", samsung.BuyDate)
	assert.InDelta(t, 70000, samsung.PurchasePrice, 1e-9)
	assert.InDelta(t, 71500, samsung.CurrentPrice, 1e-9)
	assert.InDelta(t, 700000, samsung.PurchaseAmount, 1e-9)
	assert.InDelta(t, 15000, samsung.ProfitAmount, 1e-9)
	assert.InDelta(t, 15000.0/70000*100, samsung.ProfitRate, 1e-9)
	assert.InDelta(t, 72000, samsung.HighestPrice, 1e-9)
	assert.Equal(t, int64(200), samsung.StockVolume)
	require.NotNil(t, samsung.Dividend)
	assert.InDelta(t, 3650, *samsung.Dividend, 1e-9)

	apple := resp.StockAssets[1]
	assert.Equal(t, "USD", apple.PurchaseCurrencyType)
	assert.InDelta(t, 150, apple.PurchasePrice, 1e-9, "priced at the purchase date close")
	assert.InDelta(t, 172, apple.CurrentPrice, 1e-9)
	assert.InDelta(t, 44, apple.ProfitAmount, 1e-9)
	assert.Nil(t, apple.Dividend)

	assert.InDelta(t, 715000+344*1300, resp.TotalAssetAmount, 1e-6)
	assert.InDelta(t, 700000+300*1300, resp.TotalInvestAmount, 1e-6)
	assert.InDelta(t, 72200, resp.TotalProfitAmount, 1e-6)
	assert.InDelta(t, 72200.0/1090000*100, resp.TotalProfitRate, 1e-9)
	assert.InDelta(t, 3650, resp.TotalDividendAmount, 1e-9)
}

func TestStockAssets_BaseCurrency(t *testing.T) {
	svc, _ := setupService(t)
	seedHoldings(t, svc)

	resp, err := svc.StockAssets(context.Background(), core.DefaultUserID, true)
	require.NoError(t, err)
	apple := resp.StockAssets[1]
	assert.InDelta(t, 195000, apple.PurchasePrice, 1e-6)
	assert.InDelta(t, 223600, apple.CurrentPrice, 1e-6)
	assert.InDelta(t, 390000, apple.PurchaseAmount, 1e-6)

	// totals do not depend on the row currency
	assert.InDelta(t, 715000+344*1300, resp.TotalAssetAmount, 1e-6)
}

func TestStockAssets_Empty(t *testing.T) {
	svc, _ := setupService(t)
	resp, err := svc.StockAssets(context.Background(), 42, false)
	require.NoError(t, err)
	assert.NotNil(t, resp.StockAssets)
	assert.Empty(t, resp.StockAssets)
	assert.Zero(t, resp.TotalProfitRate)
}

func TestStockAssets_MissingMarketData(t *testing.T) {
	svc, _ := setupService(t)
	_, err := svc.CreateAssets(context.Background(), core.DefaultUserID, []core.AssetRequest{
		{StockCode: "NODATA", BuyDate: "2024-03-15", Quantity: 1, PurchasePrice: ptr(1)},
	})
	require.NoError(t, err)

	_, err = svc.StockAssets(context.Background(), core.DefaultUserID, false)
	assert.ErrorIs(t, err, core.ErrInvalidAsset)
	var missing *MissingMarketDataError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"NODATA"}, missing.Codes)
}

func TestStockAssets_ExtraFormulas(t *testing.T) {
	_, store := setupService(t)
	engine, err := formula.New(map[string]string{"market_value": "current_price * quantity"})
	require.NoError(t, err)

	custom, err := New(store, engine, nil)
	require.NoError(t, err)
	seedHoldings(t, custom)

	resp, err := custom.StockAssets(context.Background(), core.DefaultUserID, false)
	require.NoError(t, err)
	assert.InDelta(t, 715000, resp.StockAssets[0].Extra["market_value"], 1e-9)
}

func TestCreateAssets_Validation(t *testing.T) {
	tests := []struct {
		name    string
		req     core.AssetRequest
		wantErr error
	}{
		{"id present", core.AssetRequest{ID: id(1), StockCode: "AAPL", BuyDate: "2024-01-02"}, core.ErrInvalidAsset},
		{"bad date", core.AssetRequest{StockCode: "AAPL", BuyDate: "2024/01/02"}, core.ErrInvalidAsset},
		{"unknown bank", core.AssetRequest{StockCode: "AAPL", BuyDate: "2024-01-02", InvestmentBank: "Nope"}, core.ErrInvalidAsset},
		{"unknown stock", core.AssetRequest{StockCode: "ZZZZ", BuyDate: "2024-01-02"}, core.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := setupService(t)
			_, err := svc.CreateAssets(context.Background(), core.DefaultUserID, []core.AssetRequest{tt.req})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCreateAssets_DefaultsCurrencyToStock(t *testing.T) {
	svc, _ := setupService(t)
	created, err := svc.CreateAssets(context.Background(), core.DefaultUserID, []core.AssetRequest{
		{StockCode: "AAPL", BuyDate: "2024-03-15", Quantity: 1},
	})
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.NotZero(t, created[0].ID)
	assert.Equal(t, "USD", created[0].PurchaseCurrencyType)
}

func TestUpdateAndDeleteAssets(t *testing.T) {
	svc, store := setupService(t)
	seedHoldings(t, svc)
	ctx := context.Background()

	list, err := store.ListAssets(ctx, core.DefaultUserID)
	require.NoError(t, err)
	first := list[0]

	_, err = svc.UpdateAssets(ctx, core.DefaultUserID, []core.AssetRequest{
		{ID: id(first.ID), StockCode: "005930", BuyDate: "2024-03-15", Quantity: 20, PurchaseCurrencyType: "KRW", PurchasePrice: ptr(70000)},
	})
	require.NoError(t, err)
	got, err := store.GetAssetsByIDs(ctx, []int64{first.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(20), got[first.ID].Quantity)

	_, err = svc.UpdateAssets(ctx, core.DefaultUserID, []core.AssetRequest{
		{StockCode: "005930", BuyDate: "2024-03-15"},
	})
	assert.ErrorIs(t, err, core.ErrInvalidAsset, "id is required")

	_, err = svc.UpdateAssets(ctx, 99, []core.AssetRequest{
		{ID: id(first.ID), StockCode: "005930", BuyDate: "2024-03-15"},
	})
	assert.ErrorIs(t, err, core.ErrNotFound, "another user's holding")

	require.NoError(t, svc.DeleteAsset(ctx, first.ID))
	assert.ErrorIs(t, svc.DeleteAsset(ctx, first.ID), core.ErrNotFound)
}

func TestAssetFields(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	fields, err := svc.AssetFields(ctx)
	require.NoError(t, err)
	assert.Equal(t, sheet.DefaultFields(), fields)

	saved, err := svc.SaveAssetFields(ctx, []core.AssetField{
		{Name: sheet.ColStockName, Required: true, Checked: true},
		{Name: sheet.ColDividend, Checked: true},
	})
	require.NoError(t, err)
	assert.Len(t, saved, 2)

	tests := []struct {
		name   string
		fields []core.AssetField
	}{
		{"unknown field", []core.AssetField{{Name: "bogus"}}},
		{"action column", []core.AssetField{{Name: sheet.ActionColumnID}}},
		{"action column among valid", []core.AssetField{
			{Name: sheet.ColStockName, Required: true, Checked: true},
			{Name: sheet.ActionColumnID, Checked: true},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SaveAssetFields(ctx, tt.fields)
			assert.ErrorIs(t, err, core.ErrInvalidAsset)
		})
	}

	fields, err = svc.AssetFields(ctx)
	require.NoError(t, err)
	assert.Equal(t, saved, fields, "rejected configurations are not stored")
}
