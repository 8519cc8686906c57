package seed

import (
	"context"
	"testing"

	"github.com/leapstack-labs/folio/internal/state"
	"github.com/leapstack-labs/folio/internal/testutil"
	"github.com/leapstack-labs/folio/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	ctx := context.Background()
	logger := testutil.NewTestLogger(t)
	store, err := state.Open(ctx, core.StoreConfig{Type: "sqlite", Path: ":memory:"}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(ctx))

	st, err := Load(ctx, store, Options{Holdings: true}, logger)
	require.NoError(t, err)
	assert.Equal(t, Stats{Stocks: 4, Dailies: 8, Dividends: 2, Rates: 1, Assets: 2}, st)

	assets, err := store.ListAssets(ctx, core.DefaultUserID)
	require.NoError(t, err)
	require.Len(t, assets, 2)
	require.NotNil(t, assets[0].PurchasePrice)
	assert.Nil(t, assets[1].PurchasePrice)

	// a second load upserts the catalogue and leaves holdings alone
	st, err = Load(ctx, store, Options{Holdings: true}, logger)
	require.NoError(t, err)
	assert.Zero(t, st.Assets)
	stocks, err := store.ListStocks(ctx)
	require.NoError(t, err)
	assert.Len(t, stocks, 4)
}
