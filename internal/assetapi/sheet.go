package assetapi

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/leapstack-labs/folio/internal/sheet"
	"github.com/leapstack-labs/folio/pkg/core"
)

// RowSource returns a sheet.RowSource fetching the asset rows.
func (c *Client) RowSource(baseCurrency bool) sheet.RowSource {
	return sheet.RowSourceFunc(func(ctx context.Context) ([]sheet.Row, error) {
		recs, err := c.AssetRecords(ctx, baseCurrency)
		if err != nil {
			return nil, err
		}
		return sheet.RowsFromRecords(recs, c.logger), nil
	})
}

// Options fetches the select and lookup choices of the sheet.
func (c *Client) Options(ctx context.Context) (sheet.Options, error) {
	ba, err := c.BankAccounts(ctx)
	if err != nil {
		return sheet.Options{}, err
	}
	stocks, err := c.Stocks(ctx)
	if err != nil {
		return sheet.Options{}, err
	}
	return sheet.Options{Banks: ba.InvestmentBankList, Accounts: ba.AccountList, Stocks: stocks}, nil
}

// Schema builds the sheet schema from the field configuration. A failed
// fetch falls back to the default layout and is reported in the result.
func (c *Client) Schema(ctx context.Context) (*sheet.Schema, Result[[]core.AssetField]) {
	res := c.AssetFields(ctx)
	if !res.OK() {
		return sheet.DefaultSchema(), res
	}
	schema, err := sheet.NewSchema(sheet.ColumnsFromFields(res.Value))
	if err != nil {
		c.logger.Warn("invalid field configuration, using default layout", "error", err)
		return sheet.DefaultSchema(), res
	}
	return schema, res
}

// RequestFromRow converts an edited sheet row into an API request. Rows
// that are not new must carry a numeric id.
func RequestFromRow(row sheet.Row) (core.AssetRequest, error) {
	req := core.AssetRequest{
		StockCode:            row.Get(sheet.ColStockCode).Text(),
		BuyDate:              row.Get(sheet.ColBuyDate).Text(),
		InvestmentBank:       row.Get(sheet.ColInvestmentBank).Text(),
		AccountType:          row.Get(sheet.ColAccountType).Text(),
		PurchaseCurrencyType: row.Get(sheet.ColCurrencyType).Text(),
	}
	if q, ok := row.Get(sheet.ColQuantity).Float(); ok {
		req.Quantity = int64(q)
	}
	if p, ok := row.Get(sheet.ColPurchasePrice).Float(); ok {
		req.PurchasePrice = &p
	}
	if !row.IsNew {
		id, err := strconv.ParseInt(row.ID, 10, 64)
		if err != nil {
			return core.AssetRequest{}, fmt.Errorf("row %q has no asset id", row.ID)
		}
		req.ID = &id
	}
	return req, nil
}

// Save pushes grid changes: updates, then deletions, then creations. The
// first two are idempotent, so a caller that keeps its changes after an
// error can retry the whole batch. Creations are sent only once everything
// before them succeeded, as a repeated POST would register the holdings
// twice.
func (c *Client) Save(ctx context.Context, ch sheet.Changes) error {
	if ch.Empty() {
		return nil
	}
	created, err := requestsFromRows(ch.Created)
	if err != nil {
		return err
	}
	updated, err := requestsFromRows(ch.Updated)
	if err != nil {
		return err
	}

	if len(updated) > 0 {
		if err := c.UpdateAssets(ctx, updated); err != nil {
			return err
		}
	}
	var errs []error
	for _, id := range ch.Deleted {
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("row %q has no asset id", id))
			continue
		}
		if err := c.DeleteAsset(ctx, n); err != nil && !errors.Is(err, core.ErrNotFound) {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	if len(created) > 0 {
		return c.CreateAssets(ctx, created)
	}
	return nil
}

func requestsFromRows(rows []sheet.Row) ([]core.AssetRequest, error) {
	out := make([]core.AssetRequest, 0, len(rows))
	for _, r := range rows {
		req, err := RequestFromRow(r)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, nil
}
