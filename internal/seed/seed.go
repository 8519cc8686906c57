// Package seed loads the bundled demo catalogue, market data and holdings
// into a store.
package seed

import (
	"context"
	"embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/leapstack-labs/folio/pkg/core"
)

//go:embed data/*.csv
var dataFS embed.FS

// Stats counts the records written by Load.
type Stats struct {
	Stocks    int
	Dailies   int
	Dividends int
	Rates     int
	Assets    int
}

// Options controls what Load writes.
type Options struct {
	// Holdings also inserts the demo holdings for core.DefaultUserID when
	// the user has none.
	Holdings bool
}

// Load upserts the bundled data into store.
func Load(ctx context.Context, store core.Store, opts Options, logger *slog.Logger) (Stats, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	var st Stats

	err := each("stocks.csv", func(r record) error {
		st.Stocks++
		return store.SaveStock(ctx, &core.Stock{
			Code: r.str("code"), Name: r.str("name"), MarketIndex: r.str("market_index"),
			Country: r.str("country"), Currency: r.str("currency"),
		})
	})
	if err != nil {
		return st, err
	}

	err = each("dailies.csv", func(r record) error {
		d := &core.StockDaily{Code: r.str("code")}
		var err error
		if d.Date, err = r.date("date"); err != nil {
			return err
		}
		if d.OpeningPrice, err = r.float("opening_price"); err != nil {
			return err
		}
		if d.HighestPrice, err = r.float("highest_price"); err != nil {
			return err
		}
		if d.LowestPrice, err = r.float("lowest_price"); err != nil {
			return err
		}
		if d.ClosePrice, err = r.float("close_price"); err != nil {
			return err
		}
		if d.TradeVolume, err = r.int("trade_volume"); err != nil {
			return err
		}
		st.Dailies++
		return store.SaveDaily(ctx, d)
	})
	if err != nil {
		return st, err
	}

	err = each("dividends.csv", func(r record) error {
		v, err := r.float("dividend")
		if err != nil {
			return err
		}
		st.Dividends++
		return store.SaveDividend(ctx, r.str("stock_code"), v)
	})
	if err != nil {
		return st, err
	}

	err = each("rates.csv", func(r record) error {
		v, err := r.float("rate")
		if err != nil {
			return err
		}
		st.Rates++
		return store.SaveExchangeRate(ctx, r.str("source_currency"), r.str("target_currency"), v)
	})
	if err != nil {
		return st, err
	}

	if opts.Holdings {
		n, err := loadHoldings(ctx, store)
		if err != nil {
			return st, err
		}
		st.Assets = n
	}

	logger.Info("seed data loaded",
		"stocks", st.Stocks, "dailies", st.Dailies, "dividends", st.Dividends,
		"rates", st.Rates, "assets", st.Assets)
	return st, nil
}

func loadHoldings(ctx context.Context, store core.Store) (int, error) {
	existing, err := store.ListAssets(ctx, core.DefaultUserID)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}

	var assets []*core.Asset
	err = each("assets.csv", func(r record) error {
		a := &core.Asset{
			UserID:               core.DefaultUserID,
			StockCode:            r.str("stock_code"),
			InvestmentBank:       r.str("investment_bank"),
			AccountType:          r.str("account_type"),
			PurchaseCurrencyType: r.str("purchase_currency_type"),
		}
		var err error
		if a.PurchaseDate, err = r.date("buy_date"); err != nil {
			return err
		}
		if a.Quantity, err = r.int("quantity"); err != nil {
			return err
		}
		if s := r.str("purchase_price"); s != "" {
			p, err := r.float("purchase_price")
			if err != nil {
				return err
			}
			a.PurchasePrice = &p
		}
		assets = append(assets, a)
		return nil
	})
	if err != nil {
		return 0, err
	}
	if err := store.SaveAssets(ctx, assets); err != nil {
		return 0, err
	}
	return len(assets), nil
}

// record is one CSV row addressed by header name.
type record struct {
	file   string
	line   int
	header map[string]int
	fields []string
}

func (r record) str(col string) string {
	i, ok := r.header[col]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return r.fields[i]
}

func (r record) float(col string) (float64, error) {
	v, err := strconv.ParseFloat(r.str(col), 64)
	if err != nil {
		return 0, fmt.Errorf("%s:%d: %s: %w", r.file, r.line, col, err)
	}
	return v, nil
}

func (r record) int(col string) (int64, error) {
	v, err := strconv.ParseInt(r.str(col), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s:%d: %s: %w", r.file, r.line, col, err)
	}
	return v, nil
}

func (r record) date(col string) (time.Time, error) {
	v, err := time.Parse(core.DateLayout, r.str(col))
	if err != nil {
		return time.Time{}, fmt.Errorf("%s:%d: %s: %w", r.file, r.line, col, err)
	}
	return v, nil
}

// each calls fn for every data row of an embedded CSV file.
func each(name string, fn func(record) error) error {
	f, err := dataFS.Open("data/" + name)
	if err != nil {
		return fmt.Errorf("failed to open seed file %s: %w", name, err)
	}
	defer func() { _ = f.Close() }()

	rd := csv.NewReader(f)
	head, err := rd.Read()
	if err != nil {
		return fmt.Errorf("failed to read header of %s: %w", name, err)
	}
	header := make(map[string]int, len(head))
	for i, h := range head {
		header[h] = i
	}

	for line := 2; ; line++ {
		fields, err := rd.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", name, err)
		}
		if err := fn(record{file: name, line: line, header: header, fields: fields}); err != nil {
			return err
		}
	}
}
