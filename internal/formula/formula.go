// Package formula evaluates the derived (auto-calculated) fields of a holding
// as Starlark expressions over its raw fields.
package formula

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
	"golang.org/x/sync/errgroup"
)

// Formula is one derived field.
type Formula struct {
	Name string
	Expr string
}

// Inputs every holding exposes to formulas. Missing inputs are 0.
const (
	InQuantity         = "quantity"
	InPurchasePrice    = "purchase_price"
	InLatestClose      = "latest_close_price"
	InDividendPerShare = "dividend_per_share"
	InExchangeRate     = "exchange_rate"
)

// Defaults are the built-in derived fields in evaluation order. Later
// formulas may read the results of earlier ones.
func Defaults() []Formula {
	return []Formula{
		{Name: "current_price", Expr: "latest_close_price"},
		{Name: "purchase_amount", Expr: "quantity * purchase_price"},
		{Name: "profit_amount", Expr: "(current_price - purchase_price) * quantity"},
		{Name: "profit_rate", Expr: "safe_div(current_price - purchase_price, purchase_price) * 100"},
		{Name: "dividend", Expr: "quantity * dividend_per_share"},
	}
}

// EvalError reports a formula that failed to evaluate.
type EvalError struct {
	Formula string
	Expr    string
	Message string
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("formula %s: error evaluating %q: %s", e.Formula, e.Expr, e.Message)
}

type compiled struct {
	Formula
	expr syntax.Expr
}

// Engine evaluates a fixed, ordered set of formulas.
type Engine struct {
	formulas []compiled
	builtins starlark.StringDict
	pool     *ThreadPool
	logger   *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithPoolSize bounds the number of pooled threads and of rows evaluated in
// parallel.
func WithPoolSize(n int) Option {
	return func(e *Engine) { e.pool = NewThreadPool(n) }
}

var (
	fileOptions = &syntax.FileOptions{}
	identifier  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// New compiles the default formulas with overrides applied. An override with
// a built-in name replaces that formula in place; other names are appended in
// name order.
func New(overrides map[string]string, opts ...Option) (*Engine, error) {
	e := &Engine{
		builtins: Builtins(),
		pool:     NewThreadPool(0),
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}

	formulas := Defaults()
	known := make(map[string]int, len(formulas))
	for i, f := range formulas {
		known[f.Name] = i
	}
	extra := make([]string, 0, len(overrides))
	for name, expr := range overrides {
		if i, ok := known[name]; ok {
			formulas[i].Expr = expr
			continue
		}
		extra = append(extra, name)
	}
	sort.Strings(extra)
	for _, name := range extra {
		formulas = append(formulas, Formula{Name: name, Expr: overrides[name]})
	}

	for _, f := range formulas {
		if !identifier.MatchString(f.Name) {
			return nil, fmt.Errorf("formula name %q is not an identifier", f.Name)
		}
		expr, err := fileOptions.ParseExpr(f.Name, f.Expr, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to parse formula %s: %w", f.Name, err)
		}
		e.formulas = append(e.formulas, compiled{Formula: f, expr: expr})
	}
	return e, nil
}

// Formulas returns the formulas in evaluation order.
func (e *Engine) Formulas() []Formula {
	out := make([]Formula, len(e.formulas))
	for i, f := range e.formulas {
		out[i] = f.Formula
	}
	return out
}

// Eval evaluates every formula against inputs and returns the derived
// values. Results are numbers; a formula yielding None is omitted.
func (e *Engine) Eval(inputs map[string]float64) (map[string]float64, error) {
	thread := e.pool.Get("formula")
	defer e.pool.Put(thread)

	globals := make(starlark.StringDict, len(e.builtins)+len(inputs)+len(e.formulas))
	for k, v := range e.builtins {
		globals[k] = v
	}
	for _, name := range []string{InQuantity, InPurchasePrice, InLatestClose, InDividendPerShare, InExchangeRate} {
		globals[name] = starlark.Float(0)
	}
	for k, v := range inputs {
		globals[k] = starlark.Float(v)
	}

	out := make(map[string]float64, len(e.formulas))
	for _, f := range e.formulas {
		thread.Name = f.Name
		v, err := starlark.EvalExprOptions(fileOptions, thread, f.expr, globals)
		if err != nil {
			return nil, &EvalError{Formula: f.Name, Expr: f.Expr, Message: err.Error()}
		}
		if v == starlark.None {
			continue
		}
		num, ok := starlark.AsFloat(v)
		if !ok {
			return nil, &EvalError{Formula: f.Name, Expr: f.Expr, Message: fmt.Sprintf("result is %s, not a number", v.Type())}
		}
		out[f.Name] = num
		globals[f.Name] = starlark.Float(num)
	}
	return out, nil
}

// Result is the outcome of evaluating one row.
type Result struct {
	Values map[string]float64
	Err    error
}

// EvalAll evaluates many rows in parallel. Results are returned in input
// order; a failing row does not stop the others.
func (e *Engine) EvalAll(ctx context.Context, rows []map[string]float64) []Result {
	results := make([]Result, len(rows))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.pool.maxSize)

	for i, in := range rows {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = Result{Err: err}
				return nil
			}
			values, err := e.Eval(in)
			if err != nil {
				e.logger.Warn("formula evaluation failed", "row", i, "error", err)
			}
			results[i] = Result{Values: values, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}
