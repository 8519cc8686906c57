package core

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors returned by Store implementations.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidAsset is returned when an asset write violates a constraint.
	ErrInvalidAsset = errors.New("invalid asset")
)

// DailyKey identifies a stock's trading day.
type DailyKey struct {
	Code string
	Date time.Time
}

// Store defines the interface for portfolio persistence.
type Store interface {
	Close() error
	Migrate(ctx context.Context) error

	// Stock catalogue
	SaveStock(ctx context.Context, s *Stock) error
	ListStocks(ctx context.Context) ([]*Stock, error)
	GetStocksByCodes(ctx context.Context, codes []string) (map[string]*Stock, error)

	// Holdings
	SaveAssets(ctx context.Context, assets []*Asset) error
	ListAssets(ctx context.Context, userID int64) ([]*Asset, error)
	GetAssetsByIDs(ctx context.Context, ids []int64) (map[int64]*Asset, error)
	DeleteAsset(ctx context.Context, id int64) error

	// Market data
	SaveDaily(ctx context.Context, d *StockDaily) error
	GetLatestDailies(ctx context.Context, codes []string) (map[string]*StockDaily, error)
	GetDailiesOn(ctx context.Context, keys []DailyKey) (map[DailyKey]*StockDaily, error)
	SaveDividend(ctx context.Context, code string, perShare float64) error
	GetDividends(ctx context.Context, codes []string) (map[string]float64, error)
	SaveExchangeRate(ctx context.Context, source, target string, rate float64) error
	GetExchangeRates(ctx context.Context) (map[string]float64, error)

	// Sheet field configuration
	GetAssetFields(ctx context.Context) ([]AssetField, error)
	SaveAssetFields(ctx context.Context, fields []AssetField) error
}

// RateKey is the GetExchangeRates map key for a currency pair.
func RateKey(source, target string) string {
	return source + "_" + target
}
