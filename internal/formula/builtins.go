package formula

import (
	"fmt"
	"math"

	"go.starlark.net/starlark"
)

// Builtins returns the functions available to every formula in addition to
// the Starlark universe.
func Builtins() starlark.StringDict {
	return starlark.StringDict{
		"round":    starlark.NewBuiltin("round", round),
		"safe_div": starlark.NewBuiltin("safe_div", safeDiv),
	}
}

// round(x, ndigits=0) rounds half away from zero.
func round(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var x starlark.Value
	ndigits := 0
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "x", &x, "ndigits?", &ndigits); err != nil {
		return nil, err
	}
	f, ok := starlark.AsFloat(x)
	if !ok {
		return nil, errNotNumber(b.Name(), x)
	}
	p := math.Pow(10, float64(ndigits))
	return starlark.Float(math.Round(f*p) / p), nil
}

// safe_div(a, b) is a / b, or 0 when b is 0.
func safeDiv(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var num, den starlark.Value
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 2, &num, &den); err != nil {
		return nil, err
	}
	n, ok := starlark.AsFloat(num)
	if !ok {
		return nil, errNotNumber(b.Name(), num)
	}
	d, ok := starlark.AsFloat(den)
	if !ok {
		return nil, errNotNumber(b.Name(), den)
	}
	if d == 0 {
		return starlark.Float(0), nil
	}
	return starlark.Float(n / d), nil
}

func errNotNumber(fn string, v starlark.Value) error {
	return fmt.Errorf("%s: got %s, want number", fn, v.Type())
}
