package ui

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/folio/internal/sheet"
	"github.com/leapstack-labs/folio/internal/testutil"
	"github.com/leapstack-labs/folio/internal/ui/features"
)

const twoColumns = `columns:
  - {id: stock_name, label: Stock, type: identifier, code_field: stock_code}
  - {id: quantity, label: Qty, type: quantity}
`

const threeColumns = `columns:
  - {id: quantity, label: Qty, type: quantity}
  - {id: stock_name, label: Stock, type: identifier, code_field: stock_code}
  - {id: dividend, label: Dividend, type: currencyDerived, dividend: true}
`

func writeLayout(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func setupServer(t *testing.T, layout string) (*Server, *httptest.Server, string) {
	t.Helper()
	fixture := features.SetupTestFixture(t, true)

	path := ""
	if layout != "" {
		path = filepath.Join(t.TempDir(), "layout.yaml")
		writeLayout(t, path, layout)
	}

	srv, err := NewServer(Config{
		Backend:       fixture.Client,
		API:           fixture.Service,
		LayoutPath:    path,
		SessionSecret: "test-secret-key-32-bytes-long!!",
		Logger:        testutil.NewTestLogger(t),
	})
	require.NoError(t, err)

	handler, err := srv.Handler()
	require.NoError(t, err)
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return srv, ts, path
}

func get(t *testing.T, client *http.Client, url string) (int, string) {
	t.Helper()
	resp, err := client.Get(url)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func headerIDs(t *testing.T, body string) []string {
	t.Helper()
	var ids []string
	for _, th := range features.FindAll(features.ParseHTML(t, body), features.ByAttr("data-col", "")) {
		id, _ := features.Attr(th, "data-col")
		ids = append(ids, id)
	}
	return ids
}

func TestNewServer_InvalidLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.yaml")
	writeLayout(t, path, "columns: []\n")

	_, err := NewServer(Config{LayoutPath: path})
	assert.ErrorContains(t, err, "no columns")
}

func TestServer_Routes(t *testing.T) {
	_, ts, _ := setupServer(t, "")
	client := ts.Client()

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantBody   string
	}{
		{"sheet page", "/", http.StatusOK, "data-init"},
		{"in-process api", "/api/v1/stocks", http.StatusOK, "stock_list"},
		{"stylesheet", "/static/sheet.css", http.StatusOK, ".sheet"},
		{"drag glue", "/static/sheet.js", http.StatusOK, "sheet-reorder"},
		{"unknown", "/nope", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := get(t, client, ts.URL+tt.path)
			assert.Equal(t, tt.wantStatus, status)
			assert.Contains(t, body, tt.wantBody)
		})
	}
}

func TestServer_LayoutOverride(t *testing.T) {
	_, ts, _ := setupServer(t, twoColumns)

	_, body := get(t, ts.Client(), ts.URL+"/")
	assert.Equal(t, []string{sheet.ColStockName, sheet.ColQuantity, sheet.ActionColumnID}, headerIDs(t, body))
}

func TestServer_ReloadLayout(t *testing.T) {
	srv, ts, path := setupServer(t, twoColumns)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := ts.Client()
	client.Jar = jar

	_, body := get(t, client, ts.URL+"/")
	require.Len(t, headerIDs(t, body), 3)

	listener := srv.Notifier().Subscribe("")
	defer srv.Notifier().Unsubscribe(listener)

	writeLayout(t, path, threeColumns)
	srv.reloadLayout()

	select {
	case <-listener:
	case <-time.After(time.Second):
		t.Fatal("reloading the layout should notify every stream")
	}

	_, body = get(t, client, ts.URL+"/")
	assert.Equal(t,
		[]string{sheet.ColQuantity, sheet.ColStockName, sheet.ColDividend, sheet.ActionColumnID},
		headerIDs(t, body))
	assert.Equal(t, 1, srv.Registry().Len(), "the session keeps its workspace")

	// a broken file keeps the current layout
	writeLayout(t, path, "columns: [")
	srv.reloadLayout()
	_, body = get(t, client, ts.URL+"/")
	assert.Len(t, headerIDs(t, body), 4)
}

func TestServer_WatchLayout(t *testing.T) {
	srv, ts, path := setupServer(t, twoColumns)
	_, _ = get(t, ts.Client(), ts.URL+"/")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.watchLayout(ctx) }()

	listener := srv.Notifier().Subscribe("")
	defer srv.Notifier().Unsubscribe(listener)

	// give the watcher time to register
	time.Sleep(50 * time.Millisecond)
	writeLayout(t, path, threeColumns)

	select {
	case <-listener:
	case <-time.After(2 * time.Second):
		t.Error("a layout write should trigger a reload")
	}

	cancel()
	require.NoError(t, <-done)
}
