package assetapi_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/leapstack-labs/folio/internal/assetapi"
	"github.com/leapstack-labs/folio/internal/sheet"
	"github.com/leapstack-labs/folio/internal/testutil"
	"github.com/leapstack-labs/folio/internal/testutil/fixture"
	"github.com/leapstack-labs/folio/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, holdings bool) (*assetapi.Client, *fixture.Fixture) {
	t.Helper()
	f := fixture.New(t, holdings)
	ts := f.Server(t)
	c, err := assetapi.New(ts.URL+"/", assetapi.WithLogger(testutil.NewTestLogger(t)))
	require.NoError(t, err)
	return c, f
}

func TestNew_InvalidURL(t *testing.T) {
	_, err := assetapi.New("ftp://example.com")
	assert.Error(t, err)
	_, err = assetapi.New("://")
	assert.Error(t, err)
}

func TestClient_Catalogue(t *testing.T) {
	c, _ := newClient(t, false)
	ctx := context.Background()

	opts, err := c.Options(ctx)
	require.NoError(t, err)
	assert.Contains(t, opts.Banks, "Toss Securities")
	assert.Contains(t, opts.Accounts, "ISA")
	assert.Contains(t, opts.Stocks, core.StockRef{Name: "Apple", Code: "AAPL"})
}

func TestClient_RowSource(t *testing.T) {
	c, _ := newClient(t, true)
	g := sheet.New(sheet.Config{Schema: sheet.DefaultSchema(), Logger: testutil.NewTestLogger(t)})

	res := g.Load(context.Background(), c.RowSource(false))
	require.True(t, res.OK())
	assert.Equal(t, 2, res.Count)

	row, ok := g.Row("1")
	require.True(t, ok)
	assert.Equal(t, "Samsung Electronics", row.Get(sheet.ColStockName).Text())
	assert.Equal(t, "005930", row.Get(sheet.ColStockCode).Text())
}

func TestClient_SaveRoundTrip(t *testing.T) {
	c, f := newClient(t, true)
	ctx := context.Background()
	g := sheet.New(sheet.Config{Schema: sheet.DefaultSchema(), Logger: testutil.NewTestLogger(t)})
	require.True(t, g.Load(ctx, c.RowSource(false)).OK())

	k := sheet.CellKey{RowID: "1", ColumnID: sheet.ColQuantity}
	require.True(t, g.Click(k))
	require.True(t, g.Input(k, "25"))
	require.True(t, g.Commit(k))
	require.True(t, g.DeleteRow("2"))

	require.NoError(t, c.Save(ctx, g.Changes()))
	g.MarkSaved()
	assert.False(t, g.Dirty())

	assets, err := f.Store.ListAssets(ctx, core.DefaultUserID)
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, int64(25), assets[0].Quantity)
}

func TestClient_SaveCreatedRow(t *testing.T) {
	c, f := newClient(t, false)
	ctx := context.Background()

	row := sheet.NewRow("tmp")
	row.IsNew = true
	row.Set(sheet.ColStockCode, sheet.String("MSFT"))
	row.Set(sheet.ColBuyDate, sheet.String("2024-03-15"))
	row.Set(sheet.ColQuantity, sheet.Number(3))
	require.NoError(t, c.Save(ctx, sheet.Changes{Created: []sheet.Row{row}}))

	assets, err := f.Store.ListAssets(ctx, core.DefaultUserID)
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, "USD", assets[0].PurchaseCurrencyType)
}

func loadGrid(t *testing.T, c *assetapi.Client) *sheet.Grid {
	t.Helper()
	ctx := context.Background()
	g := sheet.New(sheet.Config{Schema: sheet.DefaultSchema(), Logger: testutil.NewTestLogger(t)})
	require.True(t, g.Load(ctx, c.RowSource(false)).OK())
	opts, err := c.Options(ctx)
	require.NoError(t, err)
	g.SetOptions(opts)
	return g
}

func editCell(t *testing.T, g *sheet.Grid, rowID, col, text string) {
	t.Helper()
	k := sheet.CellKey{RowID: rowID, ColumnID: col}
	require.True(t, g.Click(k), "click %s", k)
	require.True(t, g.Input(k, text), "input %q into %s", text, k)
	require.True(t, g.Commit(k), "commit %s", k)
}

func TestClient_SaveRetryAfterFailedUpdate(t *testing.T) {
	c, f := newClient(t, true)
	ctx := context.Background()
	g := loadGrid(t, c)

	id := g.AddRow()
	editCell(t, g, id, sheet.ColStockName, "Apple")
	editCell(t, g, id, sheet.ColBuyDate, "2024-01-02")
	editCell(t, g, id, sheet.ColQuantity, "3")
	editCell(t, g, "1", sheet.ColQuantity, "25")
	require.NoError(t, f.Store.DeleteAsset(ctx, 1))

	for i := 0; i < 3; i++ {
		err := c.Save(ctx, g.Changes())
		require.ErrorIs(t, err, core.ErrNotFound, "attempt %d", i+1)
		assert.True(t, g.Dirty(), "a failed save keeps the changes")
	}

	assets, err := f.Store.ListAssets(ctx, core.DefaultUserID)
	require.NoError(t, err)
	require.Len(t, assets, 1, "repeated saves must not register the new row")
	assert.Equal(t, "AAPL", assets[0].StockCode)
	assert.Equal(t, int64(2), assets[0].Quantity)
}

func TestClient_SaveRetryAfterFailedCreate(t *testing.T) {
	c, f := newClient(t, true)
	ctx := context.Background()

	upd := sheet.NewRow("1")
	upd.Set(sheet.ColStockCode, sheet.String("005930"))
	upd.Set(sheet.ColBuyDate, sheet.String("2024-01-02"))
	upd.Set(sheet.ColQuantity, sheet.Number(25))
	created := sheet.NewRow("tmp")
	created.IsNew = true
	created.Set(sheet.ColStockCode, sheet.String("NOPE"))
	created.Set(sheet.ColBuyDate, sheet.String("2024-01-02"))
	created.Set(sheet.ColQuantity, sheet.Number(1))
	ch := sheet.Changes{Created: []sheet.Row{created}, Updated: []sheet.Row{upd}, Deleted: []string{"2"}}

	for i := 0; i < 2; i++ {
		err := c.Save(ctx, ch)
		require.ErrorIs(t, err, core.ErrNotFound, "attempt %d", i+1)
	}

	assets, err := f.Store.ListAssets(ctx, core.DefaultUserID)
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, int64(25), assets[0].Quantity, "updates before the failed create stay applied")

	ch.Created[0].Set(sheet.ColStockCode, sheet.String("MSFT"))
	require.NoError(t, c.Save(ctx, ch), "the retry succeeds once the new row is fixed")
	assets, err = f.Store.ListAssets(ctx, core.DefaultUserID)
	require.NoError(t, err)
	assert.Len(t, assets, 2)
}

func TestClient_SaveUnknownStockName(t *testing.T) {
	c, f := newClient(t, true)
	ctx := context.Background()
	g := loadGrid(t, c)

	editCell(t, g, "1", sheet.ColStockName, "Nonexistent Corp")
	row, ok := g.Row("1")
	require.True(t, ok)
	assert.True(t, row.Get(sheet.ColStockCode).IsNull())

	err := c.Save(ctx, g.Changes())
	require.ErrorIs(t, err, core.ErrInvalidAsset)
	assert.ErrorContains(t, err, "stock_code is required")

	assets, err := f.Store.GetAssetsByIDs(ctx, []int64{1})
	require.NoError(t, err)
	require.Contains(t, assets, int64(1))
	assert.Equal(t, "005930", assets[1].StockCode, "the holding keeps its stock")
}

func TestClient_Errors(t *testing.T) {
	c, _ := newClient(t, false)
	ctx := context.Background()

	err := c.DeleteAsset(ctx, 12345)
	assert.ErrorIs(t, err, core.ErrNotFound)
	var se *assetapi.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.Status)
	assert.NotEmpty(t, se.Detail)

	err = c.CreateAssets(ctx, []core.AssetRequest{{ID: testutil.Ptr(int64(1)), StockCode: "AAPL", BuyDate: "2024-03-15"}})
	assert.ErrorIs(t, err, core.ErrInvalidAsset)
}

func TestClient_AssetFieldResults(t *testing.T) {
	c, _ := newClient(t, false)
	ctx := context.Background()

	res := c.AssetFields(ctx)
	require.True(t, res.OK())
	assert.Equal(t, sheet.DefaultFields(), res.Value)

	saved := c.SaveAssetFields(ctx, nil)
	require.True(t, saved.OK(), "an empty list is a successful save")
	assert.NotNil(t, saved.Value)
	assert.Empty(t, saved.Value)

	schema, res := c.Schema(ctx)
	require.True(t, res.OK())
	assert.Equal(t, sheet.DefaultSchema().IDs(), schema.IDs(), "no checked fields falls back to the default layout")
}

func TestClient_FailedResults(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(ts.Close)
	c, err := assetapi.New(ts.URL)
	require.NoError(t, err)
	ctx := context.Background()

	res := c.SaveAssetFields(ctx, []core.AssetField{{Name: sheet.ColStockName}})
	assert.False(t, res.OK())
	assert.Nil(t, res.Value)

	schema, res := c.Schema(ctx)
	assert.False(t, res.OK())
	assert.Equal(t, sheet.DefaultSchema().IDs(), schema.IDs())

	g := sheet.New(sheet.Config{Schema: sheet.DefaultSchema()})
	fr := g.Load(ctx, c.RowSource(false))
	assert.False(t, fr.OK())
	assert.Empty(t, g.Rows())
}

func TestRequestFromRow(t *testing.T) {
	row := sheet.NewRow("7")
	row.Set(sheet.ColStockCode, sheet.String("AAPL"))
	row.Set(sheet.ColQuantity, sheet.Number(4))
	row.Set(sheet.ColPurchasePrice, sheet.Number(150.5))
	row.Set(sheet.ColCurrencyType, sheet.String("USD"))

	req, err := assetapi.RequestFromRow(row)
	require.NoError(t, err)
	require.NotNil(t, req.ID)
	assert.Equal(t, int64(7), *req.ID)
	assert.Equal(t, int64(4), req.Quantity)
	require.NotNil(t, req.PurchasePrice)
	assert.InDelta(t, 150.5, *req.PurchasePrice, 1e-9)

	row.ID = "not-a-number"
	_, err = assetapi.RequestFromRow(row)
	assert.Error(t, err)

	row.IsNew = true
	req, err = assetapi.RequestFromRow(row)
	require.NoError(t, err)
	assert.Nil(t, req.ID)
}
