// Package export writes holdings to CSV or Parquet files through an
// in-memory DuckDB database.
package export

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/leapstack-labs/folio/pkg/core"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

// Format is an export file format.
type Format string

// Supported formats.
const (
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
)

// ParseFormat validates a format name. An empty name is inferred from the
// file extension of path.
func ParseFormat(name, path string) (Format, error) {
	if name == "" {
		name = strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	}
	switch Format(strings.ToLower(name)) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatParquet, "pq":
		return FormatParquet, nil
	default:
		return "", fmt.Errorf("unsupported export format %q (want csv or parquet)", name)
	}
}

// tableName is the DuckDB table holdings are staged in.
const tableName = "holdings"

type column struct {
	name  string
	typ   string
	value func(*core.StockAsset) any
}

var columns = []column{
	{"id", "BIGINT", func(a *core.StockAsset) any { return a.ID }},
	{"stock_code", "VARCHAR", func(a *core.StockAsset) any { return a.StockCode }},
	{"stock_name", "VARCHAR", func(a *core.StockAsset) any { return a.StockName }},
	{"buy_date", "DATE", func(a *core.StockAsset) any { return dateOrNull(a.BuyDate) }},
	{"quantity", "BIGINT", func(a *core.StockAsset) any { return a.Quantity }},
	{"investment_bank", "VARCHAR", func(a *core.StockAsset) any { return a.InvestmentBank }},
	{"account_type", "VARCHAR", func(a *core.StockAsset) any { return a.AccountType }},
	{"purchase_currency_type", "VARCHAR", func(a *core.StockAsset) any { return a.PurchaseCurrencyType }},
	{"purchase_price", "DOUBLE", func(a *core.StockAsset) any { return a.PurchasePrice }},
	{"purchase_amount", "DOUBLE", func(a *core.StockAsset) any { return a.PurchaseAmount }},
	{"current_price", "DOUBLE", func(a *core.StockAsset) any { return a.CurrentPrice }},
	{"opening_price", "DOUBLE", func(a *core.StockAsset) any { return a.OpeningPrice }},
	{"highest_price", "DOUBLE", func(a *core.StockAsset) any { return a.HighestPrice }},
	{"lowest_price", "DOUBLE", func(a *core.StockAsset) any { return a.LowestPrice }},
	{"stock_volume", "BIGINT", func(a *core.StockAsset) any { return a.StockVolume }},
	{"profit_amount", "DOUBLE", func(a *core.StockAsset) any { return a.ProfitAmount }},
	{"profit_rate", "DOUBLE", func(a *core.StockAsset) any { return a.ProfitRate }},
	{"dividend", "DOUBLE", func(a *core.StockAsset) any {
		if a.Dividend == nil {
			return nil
		}
		return *a.Dividend
	}},
}

func dateOrNull(s string) any {
	t, err := time.Parse(core.DateLayout, s)
	if err != nil {
		return nil
	}
	return t
}

// Exporter stages holdings in DuckDB and copies them out.
type Exporter struct {
	logger *slog.Logger
}

// New creates an Exporter.
func New(logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Exporter{logger: logger}
}

// Write exports the rows of resp to path and returns the number of rows
// written. Extra derived fields become trailing DOUBLE columns.
func (e *Exporter) Write(ctx context.Context, resp *core.StockAssetResponse, path string, format Format) (int, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return 0, fmt.Errorf("failed to open duckdb connection: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.PingContext(ctx); err != nil {
		return 0, fmt.Errorf("failed to ping duckdb: %w", err)
	}

	var rows []core.StockAsset
	if resp != nil {
		rows = resp.StockAssets
	}
	extras := extraNames(rows)

	if err := e.stage(ctx, db, rows, extras); err != nil {
		return 0, err
	}

	copySQL := fmt.Sprintf("COPY %s TO %s %s", tableName, quoteLiteral(path), copyOptions(format))
	if _, err := db.ExecContext(ctx, copySQL); err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", path, err)
	}

	e.logger.Info("exported holdings", "path", path, "format", format, "rows", len(rows))
	return len(rows), nil
}

func (e *Exporter) stage(ctx context.Context, db *sql.DB, rows []core.StockAsset, extras []string) error {
	defs := make([]string, 0, len(columns)+len(extras))
	for _, c := range columns {
		defs = append(defs, quoteIdent(c.name)+" "+c.typ)
	}
	for _, name := range extras {
		defs = append(defs, quoteIdent(name)+" DOUBLE")
	}
	create := fmt.Sprintf("CREATE TABLE %s (%s)", tableName, strings.Join(defs, ", "))
	if _, err := db.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("failed to create staging table: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(defs)), ", ")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s VALUES (%s)", tableName, placeholders))
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i := range rows {
		args := make([]any, 0, len(defs))
		for _, c := range columns {
			args = append(args, c.value(&rows[i]))
		}
		for _, name := range extras {
			if v, ok := rows[i].Extra[name]; ok {
				args = append(args, v)
			} else {
				args = append(args, nil)
			}
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to stage row %d: %w", rows[i].ID, err)
		}
	}
	return tx.Commit()
}

// extraNames returns the extra field names across rows that don't collide
// with a built-in column, sorted.
func extraNames(rows []core.StockAsset) []string {
	builtin := make(map[string]bool, len(columns))
	for _, c := range columns {
		builtin[c.name] = true
	}
	seen := make(map[string]bool)
	var names []string
	for _, r := range rows {
		for name := range r.Extra {
			if builtin[name] || seen[name] {
				continue
			}
			seen[name] = true
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

func copyOptions(f Format) string {
	if f == FormatParquet {
		return "(FORMAT PARQUET)"
	}
	return "(FORMAT CSV, HEADER true)"
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
