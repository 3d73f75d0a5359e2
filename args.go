package stormgo

import (
	"fmt"
	"sort"

	"github.com/rezakhademix/stormgo/expr"
	"github.com/rezakhademix/stormgo/schema"
	"github.com/rezakhademix/stormgo/variable"
)

// whereForArgs combines positional filter expressions with named-equality
// keyword filters into a single where-clause, the Go realization of
// store.py's module-level get_where_for_args. ci is nil for a tuple
// cls-spec query, where bare keyword filters are not resolvable to a
// single class's columns and so require kwargs to be empty.
func whereForArgs(ci *schema.ClassInfo, args []expr.Expr, kwargs map[string]any) (expr.Expr, error) {
	exprs := append([]expr.Expr{}, args...)

	if len(kwargs) > 0 {
		if ci == nil {
			return nil, fmt.Errorf("stormgo: keyword filters require a single class: %w", ErrFeature)
		}
		// Walk columns in a fixed order (rather than kwargs' randomized
		// map iteration) so that two logically identical Find calls
		// compile to the same SQL text and share a stmtcache entry.
		columns := make([]string, 0, len(kwargs))
		for column := range kwargs {
			columns = append(columns, column)
		}
		sort.Strings(columns)
		for _, column := range columns {
			factory, ok := ci.VariableFactory(column)
			if !ok {
				return nil, fmt.Errorf("stormgo: unknown column %q: %w", column, ErrFeature)
			}
			v, err := variable.FromDB(factory, kwargs[column])
			if err != nil {
				return nil, err
			}
			exprs = append(exprs, expr.Eq{Lhs: expr.Column{Name: column}, Rhs: expr.Literal{Value: v.Get()}})
		}
	}

	return expr.Conjoin(exprs...), nil
}
