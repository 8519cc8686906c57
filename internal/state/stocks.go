package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/leapstack-labs/folio/pkg/core"
)

// --- Stock catalogue ---

// SaveStock inserts or updates a stock by code and sets its ID.
func (s *SQLStore) SaveStock(ctx context.Context, st *core.Stock) error {
	if st == nil || st.Code == "" {
		return fmt.Errorf("stock code is required: %w", core.ErrInvalidAsset)
	}
	err := s.queryRow(ctx, s.db, `
		INSERT INTO stock (code, name, market_index, country, currency)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (code) DO UPDATE SET
			name = excluded.name,
			market_index = excluded.market_index,
			country = excluded.country,
			currency = excluded.currency
		RETURNING id`,
		st.Code, st.Name, st.MarketIndex, st.Country, currencyOrDefault(st.Currency),
	).Scan(&st.ID)
	if err != nil {
		return fmt.Errorf("failed to save stock %s: %w", st.Code, err)
	}
	return nil
}

// ListStocks returns the catalogue ordered by name.
func (s *SQLStore) ListStocks(ctx context.Context) ([]*core.Stock, error) {
	rows, err := s.query(ctx, s.db, `SELECT id, code, name, market_index, country, currency FROM stock ORDER BY name, code`)
	if err != nil {
		return nil, fmt.Errorf("failed to list stocks: %w", err)
	}
	defer rows.Close()
	return scanStocks(rows)
}

// GetStocksByCodes returns the stocks with the given codes keyed by code.
// Unknown codes are absent from the map.
func (s *SQLStore) GetStocksByCodes(ctx context.Context, codes []string) (map[string]*core.Stock, error) {
	out := make(map[string]*core.Stock, len(codes))
	if len(codes) == 0 {
		return out, nil
	}
	rows, err := s.query(ctx, s.db,
		`SELECT id, code, name, market_index, country, currency FROM stock WHERE code IN (`+inClause(len(codes))+`)`,
		stringArgs(codes)...)
	if err != nil {
		return nil, fmt.Errorf("failed to get stocks: %w", err)
	}
	defer rows.Close()
	stocks, err := scanStocks(rows)
	if err != nil {
		return nil, err
	}
	for _, st := range stocks {
		out[st.Code] = st
	}
	return out, nil
}

func scanStocks(rows *sql.Rows) ([]*core.Stock, error) {
	var out []*core.Stock
	for rows.Next() {
		st := &core.Stock{}
		if err := rows.Scan(&st.ID, &st.Code, &st.Name, &st.MarketIndex, &st.Country, &st.Currency); err != nil {
			return nil, fmt.Errorf("failed to scan stock: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func currencyOrDefault(c string) string {
	if c == "" {
		return core.CurrencyKRW
	}
	return c
}

// --- Market data ---

// SaveDaily inserts or replaces one trading day.
func (s *SQLStore) SaveDaily(ctx context.Context, d *core.StockDaily) error {
	_, err := s.exec(ctx, s.db, `
		INSERT INTO stock_daily (code, date, opening_price, highest_price, lowest_price, close_price, trade_volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (code, date) DO UPDATE SET
			opening_price = excluded.opening_price,
			highest_price = excluded.highest_price,
			lowest_price = excluded.lowest_price,
			close_price = excluded.close_price,
			trade_volume = excluded.trade_volume`,
		d.Code, d.Date.Format(core.DateLayout), d.OpeningPrice, d.HighestPrice, d.LowestPrice, d.ClosePrice, d.TradeVolume,
	)
	if err != nil {
		return fmt.Errorf("failed to save daily %s %s: %w", d.Code, d.Date.Format(core.DateLayout), err)
	}
	return nil
}

const dailyColumns = `code, date, opening_price, highest_price, lowest_price, close_price, trade_volume`

// GetLatestDailies returns the most recent trading day of each code.
func (s *SQLStore) GetLatestDailies(ctx context.Context, codes []string) (map[string]*core.StockDaily, error) {
	out := make(map[string]*core.StockDaily, len(codes))
	if len(codes) == 0 {
		return out, nil
	}
	rows, err := s.query(ctx, s.db, `
		SELECT `+dailyColumns+` FROM stock_daily d
		WHERE d.code IN (`+inClause(len(codes))+`)
		AND d.date = (SELECT MAX(date) FROM stock_daily WHERE code = d.code)`,
		stringArgs(codes)...)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest dailies: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		d, err := scanDaily(rows)
		if err != nil {
			return nil, err
		}
		out[d.Code] = d
	}
	return out, rows.Err()
}

// GetDailiesOn returns the trading days matching keys. Missing days are
// absent from the map.
func (s *SQLStore) GetDailiesOn(ctx context.Context, keys []core.DailyKey) (map[core.DailyKey]*core.StockDaily, error) {
	out := make(map[core.DailyKey]*core.StockDaily, len(keys))
	for _, k := range keys {
		row := s.queryRow(ctx, s.db,
			`SELECT `+dailyColumns+` FROM stock_daily WHERE code = ? AND date = ?`,
			k.Code, k.Date.Format(core.DateLayout))
		d, err := scanDaily(row)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[k] = d
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDaily(sc scanner) (*core.StockDaily, error) {
	d := &core.StockDaily{}
	var date dateValue
	err := sc.Scan(&d.Code, &date, &d.OpeningPrice, &d.HighestPrice, &d.LowestPrice, &d.ClosePrice, &d.TradeVolume)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan daily: %w", err)
	}
	d.Date = date.Time
	return d, nil
}

// SaveDividend records the latest per-share dividend of a stock.
func (s *SQLStore) SaveDividend(ctx context.Context, code string, perShare float64) error {
	_, err := s.exec(ctx, s.db, `
		INSERT INTO dividend (stock_code, dividend) VALUES (?, ?)
		ON CONFLICT (stock_code) DO UPDATE SET dividend = excluded.dividend`,
		code, perShare)
	if err != nil {
		return fmt.Errorf("failed to save dividend %s: %w", code, err)
	}
	return nil
}

// GetDividends returns per-share dividends keyed by stock code.
func (s *SQLStore) GetDividends(ctx context.Context, codes []string) (map[string]float64, error) {
	out := make(map[string]float64, len(codes))
	if len(codes) == 0 {
		return out, nil
	}
	rows, err := s.query(ctx, s.db,
		`SELECT stock_code, dividend FROM dividend WHERE stock_code IN (`+inClause(len(codes))+`)`,
		stringArgs(codes)...)
	if err != nil {
		return nil, fmt.Errorf("failed to get dividends: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var code string
		var v float64
		if err := rows.Scan(&code, &v); err != nil {
			return nil, fmt.Errorf("failed to scan dividend: %w", err)
		}
		out[code] = v
	}
	return out, rows.Err()
}

// SaveExchangeRate records the rate converting source into target.
func (s *SQLStore) SaveExchangeRate(ctx context.Context, source, target string, rate float64) error {
	_, err := s.exec(ctx, s.db, `
		INSERT INTO exchange_rate (source_currency, target_currency, rate) VALUES (?, ?, ?)
		ON CONFLICT (source_currency, target_currency) DO UPDATE SET rate = excluded.rate`,
		source, target, rate)
	if err != nil {
		return fmt.Errorf("failed to save exchange rate %s: %w", core.RateKey(source, target), err)
	}
	return nil
}

// GetExchangeRates returns every rate keyed by core.RateKey.
func (s *SQLStore) GetExchangeRates(ctx context.Context) (map[string]float64, error) {
	rows, err := s.query(ctx, s.db, `SELECT source_currency, target_currency, rate FROM exchange_rate`)
	if err != nil {
		return nil, fmt.Errorf("failed to get exchange rates: %w", err)
	}
	defer rows.Close()
	out := make(map[string]float64)
	for rows.Next() {
		var src, dst string
		var rate float64
		if err := rows.Scan(&src, &dst, &rate); err != nil {
			return nil, fmt.Errorf("failed to scan exchange rate: %w", err)
		}
		out[core.RateKey(src, dst)] = rate
	}
	return out, rows.Err()
}

// dateValue scans a date stored as TEXT (SQLite) or DATE (PostgreSQL).
type dateValue struct {
	time.Time
}

func (d *dateValue) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		d.Time = v.UTC()
		return nil
	case string:
		return d.parse(v)
	case []byte:
		return d.parse(string(v))
	case nil:
		d.Time = time.Time{}
		return nil
	default:
		return fmt.Errorf("cannot scan %T into a date", src)
	}
}

func (d *dateValue) parse(s string) error {
	if len(s) > len(core.DateLayout) {
		s = s[:len(core.DateLayout)]
	}
	t, err := time.Parse(core.DateLayout, s)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", s, err)
	}
	d.Time = t
	return nil
}
