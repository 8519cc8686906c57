// Package fixture builds seeded stores and asset API servers for tests.
package fixture

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/leapstack-labs/folio/internal/portfolio"
	"github.com/leapstack-labs/folio/internal/seed"
	"github.com/leapstack-labs/folio/internal/server"
	"github.com/leapstack-labs/folio/internal/state"
	"github.com/leapstack-labs/folio/internal/testutil"
	"github.com/leapstack-labs/folio/pkg/core"
	"github.com/stretchr/testify/require"
)

// Fixture holds a migrated in-memory store loaded with the bundled seed
// data and the service over it.
type Fixture struct {
	Store   *state.SQLStore
	Service *portfolio.Service
}

// New creates a seeded fixture. With holdings the demo holdings are
// inserted too.
func New(t *testing.T, holdings bool) *Fixture {
	t.Helper()
	ctx := context.Background()
	logger := testutil.NewTestLogger(t)

	store, err := state.Open(ctx, core.StoreConfig{Type: "sqlite", Path: ":memory:"}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(ctx))

	_, err = seed.Load(ctx, store, seed.Options{Holdings: holdings}, logger)
	require.NoError(t, err)

	svc, err := portfolio.New(store, nil, logger)
	require.NoError(t, err)
	return &Fixture{Store: store, Service: svc}
}

// Server starts an httptest server serving the asset API.
func (f *Fixture) Server(t *testing.T) *httptest.Server {
	t.Helper()
	srv := server.New(server.Config{Service: f.Service, Logger: testutil.NewTestLogger(t)})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}
