package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/leapstack-labs/folio/pkg/core"
)

const assetColumns = `id, user_id, stock_code, quantity, investment_bank, account_type,
	purchase_currency_type, purchase_date, purchase_price`

// SaveAssets inserts assets with a zero ID and updates the rest, in one
// transaction. Inserted assets get their new ID. Updating an unknown ID
// fails with core.ErrNotFound and nothing is written.
func (s *SQLStore) SaveAssets(ctx context.Context, assets []*core.Asset) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, a := range assets {
			if a.ID == 0 {
				if err := s.insertAsset(ctx, tx, a); err != nil {
					return err
				}
				continue
			}
			if err := s.updateAsset(ctx, tx, a); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLStore) insertAsset(ctx context.Context, tx *sql.Tx, a *core.Asset) error {
	err := s.queryRow(ctx, tx, `
		INSERT INTO asset (user_id, stock_code, quantity, investment_bank, account_type,
			purchase_currency_type, purchase_date, purchase_price)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		a.UserID, a.StockCode, a.Quantity, a.InvestmentBank, a.AccountType,
		currencyOrDefault(a.PurchaseCurrencyType), a.PurchaseDate.Format(core.DateLayout), nullFloat(a.PurchasePrice),
	).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("failed to insert asset for %s: %w", a.StockCode, err)
	}
	return nil
}

func (s *SQLStore) updateAsset(ctx context.Context, tx *sql.Tx, a *core.Asset) error {
	res, err := s.exec(ctx, tx, `
		UPDATE asset SET stock_code = ?, quantity = ?, investment_bank = ?, account_type = ?,
			purchase_currency_type = ?, purchase_date = ?, purchase_price = ?
		WHERE id = ?`,
		a.StockCode, a.Quantity, a.InvestmentBank, a.AccountType,
		currencyOrDefault(a.PurchaseCurrencyType), a.PurchaseDate.Format(core.DateLayout), nullFloat(a.PurchasePrice),
		a.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update asset %d: %w", a.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update asset %d: %w", a.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("asset %d: %w", a.ID, core.ErrNotFound)
	}
	return nil
}

// ListAssets returns a user's assets in creation order.
func (s *SQLStore) ListAssets(ctx context.Context, userID int64) ([]*core.Asset, error) {
	rows, err := s.query(ctx, s.db, `SELECT `+assetColumns+` FROM asset WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	defer rows.Close()

	var out []*core.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetAssetsByIDs returns the assets with the given IDs keyed by ID.
func (s *SQLStore) GetAssetsByIDs(ctx context.Context, ids []int64) (map[int64]*core.Asset, error) {
	out := make(map[int64]*core.Asset, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.query(ctx, s.db, `SELECT `+assetColumns+` FROM asset WHERE id IN (`+inClause(len(ids))+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get assets: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		out[a.ID] = a
	}
	return out, rows.Err()
}

// DeleteAsset removes an asset. Unknown IDs fail with core.ErrNotFound.
func (s *SQLStore) DeleteAsset(ctx context.Context, id int64) error {
	res, err := s.exec(ctx, s.db, `DELETE FROM asset WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete asset %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete asset %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("asset %d: %w", id, core.ErrNotFound)
	}
	return nil
}

func scanAsset(sc scanner) (*core.Asset, error) {
	a := &core.Asset{}
	var date dateValue
	var price sql.NullFloat64
	err := sc.Scan(&a.ID, &a.UserID, &a.StockCode, &a.Quantity, &a.InvestmentBank, &a.AccountType,
		&a.PurchaseCurrencyType, &date, &price)
	if err != nil {
		return nil, fmt.Errorf("failed to scan asset: %w", err)
	}
	a.PurchaseDate = date.Time
	if price.Valid {
		v := price.Float64
		a.PurchasePrice = &v
	}
	return a, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

// --- Sheet field configuration ---

// GetAssetFields returns the default user's field configuration, or
// core.ErrNotFound when none has been saved.
func (s *SQLStore) GetAssetFields(ctx context.Context) ([]core.AssetField, error) {
	var raw []byte
	err := s.queryRow(ctx, s.db, `SELECT fields FROM asset_field WHERE user_id = ?`, core.DefaultUserID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("asset fields: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get asset fields: %w", err)
	}
	var fields []core.AssetField
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode asset fields: %w", err)
	}
	return fields, nil
}

// SaveAssetFields replaces the default user's field configuration.
func (s *SQLStore) SaveAssetFields(ctx context.Context, fields []core.AssetField) error {
	if fields == nil {
		fields = []core.AssetField{}
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to encode asset fields: %w", err)
	}
	_, err = s.exec(ctx, s.db, `
		INSERT INTO asset_field (user_id, fields) VALUES (?, ?)
		ON CONFLICT (user_id) DO UPDATE SET fields = excluded.fields`,
		core.DefaultUserID, string(raw))
	if err != nil {
		return fmt.Errorf("failed to save asset fields: %w", err)
	}
	return nil
}
