package expr

// CompareColumns builds the pk-equality conjunction a primary-key lookup,
// update, delete, and reload all need: Column[i] = values[i] ANDed
// together. Grounded on the teacher's query.go WherePK and on store.py's
// module-level compare_columns helper.
func CompareColumns(columns []Column, values []any) Expr {
	if len(columns) == 0 {
		return And{}
	}
	exprs := make([]Expr, len(columns))
	for i, col := range columns {
		exprs[i] = Eq{Lhs: col, Rhs: Literal{Value: values[i]}}
	}
	if len(exprs) == 1 {
		return exprs[0]
	}
	return And{Exprs: exprs}
}

// Conjoin ANDs a set of expressions together, collapsing the trivial
// cases: zero expressions yields nil (no where-clause at all, matching
// store.py's Undef sentinel), one expression is returned unwrapped.
func Conjoin(exprs ...Expr) Expr {
	filtered := exprs[:0:0]
	for _, e := range exprs {
		if e != nil {
			filtered = append(filtered, e)
		}
	}
	switch len(filtered) {
	case 0:
		return nil
	case 1:
		return filtered[0]
	default:
		return And{Exprs: filtered}
	}
}

// ReverseOrder flips an ORDER BY list for ResultSet.Last: Asc<->Desc, and a
// bare expression is wrapped in Desc. Matches store.py's reverse_order,
// including its refusal to special-case an already-Desc(Desc(x)) value —
// double-wrapping is left to the compiler (see spec.md §9 Design Notes).
func ReverseOrder(orderBy []Expr) []Expr {
	reversed := make([]Expr, len(orderBy))
	for i, e := range orderBy {
		switch o := e.(type) {
		case Asc:
			reversed[i] = Desc{Expr: o.Expr}
		case Desc:
			reversed[i] = Asc{Expr: o.Expr}
		default:
			reversed[i] = Desc{Expr: e}
		}
	}
	return reversed
}
