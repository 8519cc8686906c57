// Package assetapi is the sheet clients' HTTP client for the asset API.
package assetapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/leapstack-labs/folio/pkg/core"
)

// Result is the outcome of a call whose empty success must stay distinct
// from a failure.
type Result[T any] struct {
	Value T
	Err   error
}

// OK reports whether the call succeeded.
func (r Result[T]) OK() bool { return r.Err == nil }

// ResultOK wraps a successful value.
func ResultOK[T any](v T) Result[T] { return Result[T]{Value: v} }

// ResultFailed wraps a failure.
func ResultFailed[T any](err error) Result[T] { return Result[T]{Err: err} }

// StatusError is a non-2xx response.
type StatusError struct {
	Method string
	Path   string
	Status int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, e.Detail)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
}

// Is maps API statuses onto the core sentinels.
func (e *StatusError) Is(target error) bool {
	switch target {
	case core.ErrNotFound:
		return e.Status == http.StatusNotFound
	case core.ErrInvalidAsset:
		return e.Status == http.StatusBadRequest
	}
	return false
}

// Client talks to one asset API base URL, e.g. http://localhost:8000.
type Client struct {
	base   *url.URL
	http   *http.Client
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithLogger sets the client's logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a client for baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid api url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid api url %q: scheme must be http or https", baseURL)
	}
	c := &Client{base: u, http: http.DefaultClient, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the API base URL.
func (c *Client) BaseURL() string { return c.base.String() }

// BankAccounts fetches the brokerage and account choices.
func (c *Client) BankAccounts(ctx context.Context) (core.BankAccounts, error) {
	var out core.BankAccounts
	err := c.do(ctx, http.MethodGet, "/api/v1/bank-accounts", nil, nil, &out)
	return out, err
}

// Stocks fetches the stock catalogue.
func (c *Client) Stocks(ctx context.Context) ([]core.StockRef, error) {
	var out core.StockList
	if err := c.do(ctx, http.MethodGet, "/api/v1/stocks", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.StockList, nil
}

// AssetStock fetches the sheet rows and totals.
func (c *Client) AssetStock(ctx context.Context, baseCurrency bool) (*core.StockAssetResponse, error) {
	var out core.StockAssetResponse
	q := url.Values{"base_currency": {strconv.FormatBool(baseCurrency)}}
	if err := c.do(ctx, http.MethodGet, "/api/v1/assetstock", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AssetRecords fetches the sheet rows as raw records keyed by column id.
func (c *Client) AssetRecords(ctx context.Context, baseCurrency bool) ([]map[string]any, error) {
	var out struct {
		StockAssets []map[string]any `json:"stock_assets"`
	}
	q := url.Values{"base_currency": {strconv.FormatBool(baseCurrency)}}
	if err := c.do(ctx, http.MethodGet, "/api/v1/assetstock", q, nil, &out); err != nil {
		return nil, err
	}
	return out.StockAssets, nil
}

// CreateAssets registers new holdings.
func (c *Client) CreateAssets(ctx context.Context, reqs []core.AssetRequest) error {
	return c.do(ctx, http.MethodPost, "/api/v1/assetstock", nil, reqs, nil)
}

// UpdateAssets rewrites existing holdings.
func (c *Client) UpdateAssets(ctx context.Context, reqs []core.AssetRequest) error {
	return c.do(ctx, http.MethodPut, "/api/v1/assetstock", nil, reqs, nil)
}

// DeleteAsset removes one holding.
func (c *Client) DeleteAsset(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/assetstock/"+strconv.FormatInt(id, 10), nil, nil, nil)
}

// AssetFields fetches the field configuration.
func (c *Client) AssetFields(ctx context.Context) Result[[]core.AssetField] {
	var out []core.AssetField
	if err := c.do(ctx, http.MethodGet, "/api/v1/asset-field", nil, nil, &out); err != nil {
		c.logger.Error("failed to fetch asset fields", "error", err)
		return ResultFailed[[]core.AssetField](err)
	}
	if out == nil {
		out = []core.AssetField{}
	}
	return ResultOK(out)
}

// SaveAssetFields replaces the field configuration. A successful result
// carries the updated list, which may be empty.
func (c *Client) SaveAssetFields(ctx context.Context, fields []core.AssetField) Result[[]core.AssetField] {
	if fields == nil {
		fields = []core.AssetField{}
	}
	var out []core.AssetField
	if err := c.do(ctx, http.MethodPut, "/api/v1/asset-field", nil, fields, &out); err != nil {
		c.logger.Error("failed to update asset fields", "error", err)
		return ResultFailed[[]core.AssetField](err)
	}
	if out == nil {
		out = []core.AssetField{}
	}
	return ResultOK(out)
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, body, out any) error {
	u := *c.base
	u.Path = c.base.Path + path
	if q != nil {
		u.RawQuery = q.Encode()
	}

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s %s: %w", method, path, err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("asset api request", "method", method, "path", path)
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{Method: method, Path: path, Status: resp.StatusCode}
		var d core.Detail
		if json.NewDecoder(resp.Body).Decode(&d) == nil {
			se.Detail = d.Detail
		}
		return se
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s: %w", method, path, err)
	}
	return nil
}
