package core

import (
	"encoding/json"
	"fmt"
	"time"
)

// DefaultUserID owns every asset while authentication is out of scope.
const DefaultUserID int64 = 1

// DateLayout is the wire and storage layout for calendar dates.
const DateLayout = "2006-01-02"

// Currency codes understood by the asset API.
const (
	CurrencyKRW = "KRW"
	CurrencyUSD = "USD"
)

// InvestmentBanks lists the brokerages a holding can be registered with.
var InvestmentBanks = []string{
	"Toss Securities",
	"Kiwoom Securities",
	"Mirae Asset Securities",
	"Samsung Securities",
	"NH Investment & Securities",
	"KB Securities",
	"Korea Investment & Securities",
	"Shinhan Securities",
}

// AccountTypes lists the account kinds a holding can be registered under.
var AccountTypes = []string{
	"Regular",
	"ISA",
	"Pension Savings",
	"IRP",
	"DC Retirement",
}

// Stock is a listed security.
type Stock struct {
	ID          int64  `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	MarketIndex string `json:"market_index"`
	Country     string `json:"country"`
	Currency    string `json:"currency"`
}

// StockRef is the catalogue entry used by identifier lookups.
type StockRef struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

// StockDaily is one trading day of a stock.
type StockDaily struct {
	Code         string    `json:"code"`
	Date         time.Time `json:"date"`
	OpeningPrice float64   `json:"opening_price"`
	HighestPrice float64   `json:"highest_price"`
	LowestPrice  float64   `json:"lowest_price"`
	ClosePrice   float64   `json:"close_price"`
	TradeVolume  int64     `json:"trade_volume"`
}

// Asset is a holding of a stock owned by a user.
type Asset struct {
	ID                   int64
	UserID               int64
	StockCode            string
	Quantity             int64
	InvestmentBank       string
	AccountType          string
	PurchaseCurrencyType string
	PurchaseDate         time.Time
	// PurchasePrice is nil when the holding should be priced at the close
	// of its purchase date.
	PurchasePrice *float64
}

// AssetField is one entry of the sheet's field configuration.
type AssetField struct {
	Name     string `json:"name"`
	Required bool   `json:"isRequired"`
	Checked  bool   `json:"isChecked"`
}

// BankAccounts is the payload of the bank-accounts endpoint.
type BankAccounts struct {
	InvestmentBankList []string `json:"investment_bank_list"`
	AccountList        []string `json:"account_list"`
}

// StockList is the payload of the stocks endpoint.
type StockList struct {
	StockList []StockRef `json:"stock_list"`
}

// AssetRequest creates or updates a holding.
type AssetRequest struct {
	ID                   *int64   `json:"id,omitempty"`
	StockCode            string   `json:"stock_code"`
	BuyDate              string   `json:"buy_date"`
	Quantity             int64    `json:"quantity"`
	InvestmentBank       string   `json:"investment_bank"`
	AccountType          string   `json:"account_type"`
	PurchaseCurrencyType string   `json:"purchase_currency_type"`
	PurchasePrice        *float64 `json:"purchase_price,omitempty"`
}

// Validate checks the request against the known enumerations.
func (r AssetRequest) Validate() error {
	if r.StockCode == "" {
		return fmt.Errorf("stock_code is required")
	}
	if _, err := time.Parse(DateLayout, r.BuyDate); err != nil {
		return fmt.Errorf("buy_date %q is not a %s date", r.BuyDate, DateLayout)
	}
	if r.Quantity < 0 {
		return fmt.Errorf("quantity must not be negative")
	}
	if r.InvestmentBank != "" && !contains(InvestmentBanks, r.InvestmentBank) {
		return fmt.Errorf("unknown investment bank %q", r.InvestmentBank)
	}
	if r.AccountType != "" && !contains(AccountTypes, r.AccountType) {
		return fmt.Errorf("unknown account type %q", r.AccountType)
	}
	switch r.PurchaseCurrencyType {
	case "", CurrencyKRW, CurrencyUSD:
	default:
		return fmt.Errorf("unknown purchase currency %q", r.PurchaseCurrencyType)
	}
	return nil
}

// StockAsset is one sheet row as served by the asset API. JSON keys are the
// sheet's column ids.
type StockAsset struct {
	ID                   int64    `json:"id"`
	StockCode            string   `json:"stock_code"`
	StockName            string   `json:"stock_name"`
	BuyDate              string   `json:"buy_date"`
	Quantity             int64    `json:"quantity"`
	InvestmentBank       string   `json:"investment_bank"`
	AccountType          string   `json:"account_type"`
	PurchaseCurrencyType string   `json:"purchase_currency_type"`
	PurchasePrice        float64  `json:"purchase_price"`
	PurchaseAmount       float64  `json:"purchase_amount"`
	CurrentPrice         float64  `json:"current_price"`
	OpeningPrice         float64  `json:"opening_price"`
	HighestPrice         float64  `json:"highest_price"`
	LowestPrice          float64  `json:"lowest_price"`
	StockVolume          int64    `json:"stock_volume"`
	ProfitAmount         float64  `json:"profit_amount"`
	ProfitRate           float64  `json:"profit_rate"`
	Dividend             *float64 `json:"dividend"`
	// Extra holds configured derived fields beyond the built-in ones. They
	// are flattened into the JSON object without shadowing built-in keys.
	Extra map[string]float64 `json:"-"`
}

// MarshalJSON implements json.Marshaler.
func (a StockAsset) MarshalJSON() ([]byte, error) {
	type plain StockAsset
	b, err := json.Marshal(plain(a))
	if err != nil || len(a.Extra) == 0 {
		return b, err
	}
	m := make(map[string]any)
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	for k, v := range a.Extra {
		if _, taken := m[k]; !taken {
			m[k] = v
		}
	}
	return json.Marshal(m)
}

// StockAssetResponse is the payload of the assetstock endpoint.
type StockAssetResponse struct {
	StockAssets         []StockAsset `json:"stock_assets"`
	TotalAssetAmount    float64      `json:"total_asset_amount"`
	TotalInvestAmount   float64      `json:"total_invest_amount"`
	TotalProfitRate     float64      `json:"total_profit_rate"`
	TotalProfitAmount   float64      `json:"total_profit_amount"`
	TotalDividendAmount float64      `json:"total_dividend_amount"`
}

// Detail is the error and acknowledgement body of the asset API.
type Detail struct {
	Detail string `json:"detail"`
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
