package stormgo

import (
	"context"

	"github.com/rezakhademix/stormgo/expr"
	"github.com/rezakhademix/stormgo/schema"
)

// TableSet binds a fixed set of table/join expressions (built by
// Store.Using) to every ResultSet derived from it, the Go realization of
// store.py's TableSet (spec.md §4.1 `using`).
type TableSet struct {
	store  *Store
	tables []expr.Expr
}

// Find builds a ResultSet over a single class, scoped to this TableSet's
// tables (supplemented feature #5: the bound tables carry through every
// ResultSet derived from it, including via Slice/copy).
func (ts *TableSet) Find(ctx context.Context, ci *schema.ClassInfo, args []expr.Expr, kwargs map[string]any) (*ResultSet, error) {
	if err := ts.store.Flush(ctx); err != nil {
		return nil, err
	}
	where, err := whereForArgs(ci, args, kwargs)
	if err != nil {
		return nil, err
	}
	return &ResultSet{
		store:   ts.store,
		classes: []*schema.ClassInfo{ci},
		where:   where,
		tables:  append([]expr.Expr{}, ts.tables...),
	}, nil
}

// FindJoin builds a ResultSet over a tuple cls-spec, scoped to this
// TableSet's tables.
func (ts *TableSet) FindJoin(ctx context.Context, classes []*schema.ClassInfo, args []expr.Expr) (*ResultSet, error) {
	if err := ts.store.Flush(ctx); err != nil {
		return nil, err
	}
	where, err := whereForArgs(nil, args, nil)
	if err != nil {
		return nil, err
	}
	return &ResultSet{
		store:   ts.store,
		classes: append([]*schema.ClassInfo{}, classes...),
		where:   where,
		tables:  append([]expr.Expr{}, ts.tables...),
	}, nil
}
