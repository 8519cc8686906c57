// Package portfolio implements the asset API's use cases over a core.Store:
// the sheet rows with their derived fields, the catalogue and the field
// configuration.
package portfolio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/leapstack-labs/folio/internal/formula"
	"github.com/leapstack-labs/folio/internal/sheet"
	"github.com/leapstack-labs/folio/pkg/core"
)

// BaseCurrency is the currency of totals and of rows requested in base
// currency.
const BaseCurrency = core.CurrencyKRW

// Service is the asset API's application layer.
type Service struct {
	store    core.Store
	formulas *formula.Engine
	logger   *slog.Logger
}

// New creates a service. A nil engine uses the default formulas.
func New(store core.Store, engine *formula.Engine, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if engine == nil {
		var err error
		engine, err = formula.New(nil, formula.WithLogger(logger))
		if err != nil {
			return nil, err
		}
	}
	return &Service{store: store, formulas: engine, logger: logger}, nil
}

// BankAccounts returns the brokerage and account-type choices.
func (s *Service) BankAccounts() core.BankAccounts {
	return core.BankAccounts{
		InvestmentBankList: append([]string(nil), core.InvestmentBanks...),
		AccountList:        append([]string(nil), core.AccountTypes...),
	}
}

// Stocks returns the catalogue as lookup entries.
func (s *Service) Stocks(ctx context.Context) (core.StockList, error) {
	stocks, err := s.store.ListStocks(ctx)
	if err != nil {
		return core.StockList{}, err
	}
	out := core.StockList{StockList: make([]core.StockRef, 0, len(stocks))}
	for _, st := range stocks {
		out.StockList = append(out.StockList, core.StockRef{Name: st.Name, Code: st.Code})
	}
	return out, nil
}

// MissingMarketDataError lists holdings whose prices cannot be resolved.
type MissingMarketDataError struct {
	Codes []string
}

func (e *MissingMarketDataError) Error() string {
	return fmt.Sprintf("no market data for stock codes %v", e.Codes)
}

// Is makes the error match core.ErrInvalidAsset.
func (e *MissingMarketDataError) Is(target error) bool {
	return target == core.ErrInvalidAsset
}

// StockAssets builds the sheet rows of a user with their derived fields and
// the portfolio totals. With baseCurrency every amount is in BaseCurrency;
// otherwise each row is in its purchase currency. Totals are always in
// BaseCurrency.
func (s *Service) StockAssets(ctx context.Context, userID int64, baseCurrency bool) (*core.StockAssetResponse, error) {
	assets, err := s.store.ListAssets(ctx, userID)
	if err != nil {
		return nil, err
	}
	resp := &core.StockAssetResponse{StockAssets: []core.StockAsset{}}
	if len(assets) == 0 {
		return resp, nil
	}

	md, err := s.loadMarketData(ctx, assets)
	if err != nil {
		return nil, err
	}
	if missing := md.missing(assets); len(missing) > 0 {
		return nil, &MissingMarketDataError{Codes: missing}
	}

	inputs := make([]map[string]float64, len(assets))
	rowCurrencies := make([]string, len(assets))
	for i, a := range assets {
		stock := md.stocks[a.StockCode]
		rowCur := purchaseCurrency(a)
		if baseCurrency {
			rowCur = BaseCurrency
		}
		rowCurrencies[i] = rowCur
		inputs[i] = md.inputs(a, stock, rowCur, s.logger)
	}

	results := s.formulas.EvalAll(ctx, inputs)
	for i, a := range assets {
		if err := results[i].Err; err != nil {
			return nil, fmt.Errorf("asset %d: %w", a.ID, err)
		}
		row := md.row(a, inputs[i], results[i].Values)
		resp.StockAssets = append(resp.StockAssets, row)

		toBase := func(v float64) float64 {
			out, _ := md.fx.Convert(v, rowCurrencies[i], BaseCurrency)
			return out
		}
		resp.TotalAssetAmount += toBase(row.CurrentPrice * float64(row.Quantity))
		resp.TotalInvestAmount += toBase(row.PurchaseAmount)
		if row.Dividend != nil {
			resp.TotalDividendAmount += toBase(*row.Dividend)
		}
	}
	resp.TotalProfitAmount = resp.TotalAssetAmount - resp.TotalInvestAmount
	if resp.TotalInvestAmount != 0 {
		resp.TotalProfitRate = resp.TotalProfitAmount / resp.TotalInvestAmount * 100
	}
	return resp, nil
}

func purchaseCurrency(a *core.Asset) string {
	if a.PurchaseCurrencyType == "" {
		return core.CurrencyKRW
	}
	return a.PurchaseCurrencyType
}

type marketData struct {
	stocks    map[string]*core.Stock
	latest    map[string]*core.StockDaily
	onDate    map[core.DailyKey]*core.StockDaily
	dividends map[string]float64
	fx        Converter
}

func (s *Service) loadMarketData(ctx context.Context, assets []*core.Asset) (*marketData, error) {
	seen := make(map[string]bool)
	var codes []string
	keys := make([]core.DailyKey, 0, len(assets))
	for _, a := range assets {
		if !seen[a.StockCode] {
			seen[a.StockCode] = true
			codes = append(codes, a.StockCode)
		}
		keys = append(keys, core.DailyKey{Code: a.StockCode, Date: a.PurchaseDate})
	}

	md := &marketData{}
	var err error
	if md.stocks, err = s.store.GetStocksByCodes(ctx, codes); err != nil {
		return nil, err
	}
	if md.latest, err = s.store.GetLatestDailies(ctx, codes); err != nil {
		return nil, err
	}
	if md.onDate, err = s.store.GetDailiesOn(ctx, keys); err != nil {
		return nil, err
	}
	if md.dividends, err = s.store.GetDividends(ctx, codes); err != nil {
		return nil, err
	}
	rates, err := s.store.GetExchangeRates(ctx)
	if err != nil {
		return nil, err
	}
	md.fx = NewConverter(rates)
	return md, nil
}

// missing returns the codes lacking a current price, or lacking a purchase
// price and a close on the purchase date.
func (md *marketData) missing(assets []*core.Asset) []string {
	set := make(map[string]bool)
	for _, a := range assets {
		if _, ok := md.latest[a.StockCode]; !ok {
			set[a.StockCode] = true
			continue
		}
		if a.PurchasePrice == nil {
			if _, ok := md.onDate[core.DailyKey{Code: a.StockCode, Date: a.PurchaseDate}]; !ok {
				set[a.StockCode] = true
			}
		}
	}
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func stockCurrency(st *core.Stock) string {
	if st == nil || st.Currency == "" {
		return core.CurrencyKRW
	}
	return st.Currency
}

// inputs returns the formula inputs of one holding expressed in rowCur.
func (md *marketData) inputs(a *core.Asset, st *core.Stock, rowCur string, logger *slog.Logger) map[string]float64 {
	stockCur := stockCurrency(st)
	conv := func(v float64, from string) float64 {
		out, ok := md.fx.Convert(v, from, rowCur)
		if !ok {
			logger.Warn("missing exchange rate, converting at 1", "from", from, "to", rowCur)
		}
		return out
	}

	var purchase float64
	if a.PurchasePrice != nil {
		purchase = conv(*a.PurchasePrice, purchaseCurrency(a))
	} else if d, ok := md.onDate[core.DailyKey{Code: a.StockCode, Date: a.PurchaseDate}]; ok {
		purchase = conv(d.ClosePrice, stockCur)
	}
	latest := md.latest[a.StockCode]
	rate, _ := md.fx.Rate(rowCur, BaseCurrency)

	return map[string]float64{
		formula.InQuantity:         float64(a.Quantity),
		formula.InPurchasePrice:    purchase,
		formula.InLatestClose:      conv(latest.ClosePrice, stockCur),
		formula.InDividendPerShare: conv(md.dividends[a.StockCode], stockCur),
		formula.InExchangeRate:     rate,
		"opening_price":            conv(latest.OpeningPrice, stockCur),
		"highest_price":            conv(latest.HighestPrice, stockCur),
		"lowest_price":             conv(latest.LowestPrice, stockCur),
		"stock_volume":             float64(latest.TradeVolume),
	}
}

// row assembles the wire row of one holding.
func (md *marketData) row(a *core.Asset, in, derived map[string]float64) core.StockAsset {
	st := md.stocks[a.StockCode]
	name := a.StockCode
	if st != nil {
		name = st.Name
	}
	row := core.StockAsset{
		ID:                   a.ID,
		StockCode:            a.StockCode,
		StockName:            name,
		BuyDate:              a.PurchaseDate.Format(core.DateLayout),
		Quantity:             a.Quantity,
		InvestmentBank:       a.InvestmentBank,
		AccountType:          a.AccountType,
		PurchaseCurrencyType: purchaseCurrency(a),
		PurchasePrice:        in[formula.InPurchasePrice],
		OpeningPrice:         in["opening_price"],
		HighestPrice:         in["highest_price"],
		LowestPrice:          in["lowest_price"],
		StockVolume:          int64(in["stock_volume"]),
	}

	builtin := map[string]*float64{
		sheet.ColCurrentPrice:   &row.CurrentPrice,
		sheet.ColPurchaseAmount: &row.PurchaseAmount,
		sheet.ColProfitAmount:   &row.ProfitAmount,
		sheet.ColProfitRate:     &row.ProfitRate,
	}
	for field, v := range derived {
		if dst, ok := builtin[field]; ok {
			*dst = v
			continue
		}
		if field == sheet.ColDividend {
			if _, has := md.dividends[a.StockCode]; has {
				d := v
				row.Dividend = &d
			}
			continue
		}
		if row.Extra == nil {
			row.Extra = make(map[string]float64)
		}
		row.Extra[field] = v
	}
	return row
}

// CreateAssets registers new holdings. Requests must not carry an id and
// must reference catalogued stocks.
func (s *Service) CreateAssets(ctx context.Context, userID int64, reqs []core.AssetRequest) ([]*core.Asset, error) {
	stocks, err := s.stocksFor(ctx, reqs)
	if err != nil {
		return nil, err
	}
	assets := make([]*core.Asset, 0, len(reqs))
	for _, r := range reqs {
		if r.ID != nil {
			return nil, fmt.Errorf("new holdings must not carry an id: %w", core.ErrInvalidAsset)
		}
		a, err := toAsset(r, userID, stocks)
		if err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}
	if err := s.store.SaveAssets(ctx, assets); err != nil {
		return nil, err
	}
	s.logger.Info("assets created", "count", len(assets))
	return assets, nil
}

// UpdateAssets rewrites existing holdings.
func (s *Service) UpdateAssets(ctx context.Context, userID int64, reqs []core.AssetRequest) ([]*core.Asset, error) {
	stocks, err := s.stocksFor(ctx, reqs)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(reqs))
	for _, r := range reqs {
		if r.ID != nil {
			ids = append(ids, *r.ID)
		}
	}
	existing, err := s.store.GetAssetsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	assets := make([]*core.Asset, 0, len(reqs))
	for _, r := range reqs {
		if r.ID == nil {
			return nil, fmt.Errorf("asset id is required: %w", core.ErrInvalidAsset)
		}
		if cur, ok := existing[*r.ID]; !ok || cur.UserID != userID {
			return nil, fmt.Errorf("asset %d: %w", *r.ID, core.ErrNotFound)
		}
		a, err := toAsset(r, userID, stocks)
		if err != nil {
			return nil, err
		}
		a.ID = *r.ID
		assets = append(assets, a)
	}
	if err := s.store.SaveAssets(ctx, assets); err != nil {
		return nil, err
	}
	s.logger.Info("assets updated", "count", len(assets))
	return assets, nil
}

// DeleteAsset removes a holding.
func (s *Service) DeleteAsset(ctx context.Context, id int64) error {
	if err := s.store.DeleteAsset(ctx, id); err != nil {
		return err
	}
	s.logger.Info("asset deleted", "id", id)
	return nil
}

func (s *Service) stocksFor(ctx context.Context, reqs []core.AssetRequest) (map[string]*core.Stock, error) {
	codes := make([]string, 0, len(reqs))
	for _, r := range reqs {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %w", core.ErrInvalidAsset, err)
		}
		if r.PurchaseCurrencyType != "" {
			if _, err := ParseCurrency(r.PurchaseCurrencyType); err != nil {
				return nil, fmt.Errorf("%w: %w", core.ErrInvalidAsset, err)
			}
		}
		codes = append(codes, r.StockCode)
	}
	stocks, err := s.store.GetStocksByCodes(ctx, codes)
	if err != nil {
		return nil, err
	}
	for _, c := range codes {
		if _, ok := stocks[c]; !ok {
			return nil, fmt.Errorf("stock code %s: %w", c, core.ErrNotFound)
		}
	}
	return stocks, nil
}

func toAsset(r core.AssetRequest, userID int64, stocks map[string]*core.Stock) (*core.Asset, error) {
	date, err := time.Parse(core.DateLayout, r.BuyDate)
	if err != nil {
		return nil, fmt.Errorf("%w: buy_date: %w", core.ErrInvalidAsset, err)
	}
	cur := r.PurchaseCurrencyType
	if cur == "" {
		cur = stockCurrency(stocks[r.StockCode])
	}
	return &core.Asset{
		UserID:               userID,
		StockCode:            r.StockCode,
		Quantity:             r.Quantity,
		InvestmentBank:       r.InvestmentBank,
		AccountType:          r.AccountType,
		PurchaseCurrencyType: cur,
		PurchaseDate:         date,
		PurchasePrice:        r.PurchasePrice,
	}, nil
}

// AssetFields returns the field configuration, or the default layout's when
// none has been saved.
func (s *Service) AssetFields(ctx context.Context) ([]core.AssetField, error) {
	fields, err := s.store.GetAssetFields(ctx)
	if errors.Is(err, core.ErrNotFound) {
		return sheet.DefaultFields(), nil
	}
	if err != nil {
		return nil, err
	}
	return fields, nil
}

// SaveAssetFields replaces the field configuration and returns it. Unknown
// field names and the pinned action column are rejected.
func (s *Service) SaveAssetFields(ctx context.Context, fields []core.AssetField) ([]core.AssetField, error) {
	known := make(map[string]bool)
	for _, c := range sheet.Catalog() {
		if !c.Pinned {
			known[c.ID] = true
		}
	}
	for _, f := range fields {
		if !known[f.Name] {
			return nil, fmt.Errorf("%w: unknown field %q", core.ErrInvalidAsset, f.Name)
		}
	}
	if err := s.store.SaveAssetFields(ctx, fields); err != nil {
		return nil, err
	}
	return s.AssetFields(ctx)
}
