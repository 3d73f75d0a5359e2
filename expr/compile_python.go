package expr

import (
	"errors"
	"fmt"
)

// ErrCompile is returned by CompilePython when an expression tree cannot
// be evaluated in memory (it references something only the database can
// resolve: a raw SQL fragment, a subquery, an aggregate). When
// CompilePython returns it, ResultSet.Set recovers locally by reloading
// the cached objects instead of patching them; ResultSet.Cached returns
// it to its caller.
var ErrCompile = errors.New("stormgo/expr: where-clause cannot be compiled to an in-memory predicate")

// Resolver looks up the current in-memory value of a named column on the
// candidate object being tested.
type Resolver func(column Column) (any, bool)

// Predicate is the compiled form: given a Resolver bound to one candidate
// object, report whether it matches.
type Predicate func(resolve Resolver) (bool, error)

// CompilePython compiles a where-expression into an in-memory predicate,
// the direct analogue of store.py's compile_python, used by
// ResultSet.Cached and by ResultSet.Set's cache-patch fast path. Returns
// ErrCompile (wrapped with context) for anything it cannot evaluate
// without the database: Raw fragments, subqueries, aggregates.
func CompilePython(e Expr) (Predicate, error) {
	if e == nil {
		return func(Resolver) (bool, error) { return true, nil }, nil
	}
	switch v := e.(type) {
	case Eq:
		return compareValues(v.Lhs, v.Rhs, func(a, b any) bool { return valuesEqual(a, b) })
	case Ne:
		return compareValues(v.Lhs, v.Rhs, func(a, b any) bool { return !valuesEqual(a, b) })
	case Lt:
		return compareOrdered(v.Lhs, v.Rhs, func(c int) bool { return c < 0 })
	case Le:
		return compareOrdered(v.Lhs, v.Rhs, func(c int) bool { return c <= 0 })
	case Gt:
		return compareOrdered(v.Lhs, v.Rhs, func(c int) bool { return c > 0 })
	case Ge:
		return compareOrdered(v.Lhs, v.Rhs, func(c int) bool { return c >= 0 })
	case In:
		return compileIn(v)
	case And:
		return compileConjunction(v.Exprs, true)
	case Or:
		return compileConjunction(v.Exprs, false)
	default:
		return nil, fmt.Errorf("%w: %T", ErrCompile, e)
	}
}

func valueOf(e Expr, resolve Resolver) (any, bool, error) {
	switch v := e.(type) {
	case Column:
		val, ok := resolve(v)
		return val, ok, nil
	case Literal:
		return v.Value, true, nil
	default:
		return nil, false, fmt.Errorf("%w: %T", ErrCompile, e)
	}
}

func compareValues(lhs, rhs Expr, cmp func(a, b any) bool) (Predicate, error) {
	return func(resolve Resolver) (bool, error) {
		a, ok, err := valueOf(lhs, resolve)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
		b, ok, err := valueOf(rhs, resolve)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
		return cmp(a, b), nil
	}, nil
}

func compareOrdered(lhs, rhs Expr, test func(cmp int) bool) (Predicate, error) {
	return func(resolve Resolver) (bool, error) {
		a, ok, err := valueOf(lhs, resolve)
		if err != nil || !ok {
			return false, err
		}
		b, ok, err := valueOf(rhs, resolve)
		if err != nil || !ok {
			return false, err
		}
		c, ok := compareOrderable(a, b)
		if !ok {
			return false, fmt.Errorf("%w: values not orderable", ErrCompile)
		}
		return test(c), nil
	}, nil
}

func compileIn(v In) (Predicate, error) {
	return func(resolve Resolver) (bool, error) {
		a, ok, err := valueOf(v.Lhs, resolve)
		if err != nil || !ok {
			return false, err
		}
		for _, candidate := range v.Values {
			b, ok, err := valueOf(candidate, resolve)
			if err != nil {
				return false, err
			}
			if ok && valuesEqual(a, b) {
				return true, nil
			}
		}
		return false, nil
	}, nil
}

func compileConjunction(exprs []Expr, isAnd bool) (Predicate, error) {
	preds := make([]Predicate, len(exprs))
	for i, e := range exprs {
		p, err := CompilePython(e)
		if err != nil {
			return nil, err
		}
		preds[i] = p
	}
	return func(resolve Resolver) (bool, error) {
		for _, p := range preds {
			ok, err := p(resolve)
			if err != nil {
				return false, err
			}
			if ok != isAnd {
				return ok, nil
			}
		}
		return isAnd, nil
	}, nil
}

func valuesEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if c, ok := compareOrderable(a, b); ok {
		return c == 0
	}
	return a == b
}

// compareOrderable compares two values numerically or lexically when
// their dynamic types permit it, returning ok=false for anything else
// (structs, UUIDs compared against non-UUIDs, etc.) — callers fall back
// to equality-only comparison or bail with ErrCompile.
func compareOrderable(a, b any) (int, bool) {
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		default:
			return 0, true
		}
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		switch {
		case as < bs:
			return -1, true
		case as > bs:
			return 1, true
		default:
			return 0, true
		}
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
