package stormgo

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rezakhademix/stormgo/expr"
	"github.com/rezakhademix/stormgo/schema"
	"github.com/rezakhademix/stormgo/variable"
)

// ResultSet is a lazy, immutable-by-convention query builder (spec.md §4.2):
// every configuring call (Config, OrderBy, Slice) returns a new *ResultSet
// sharing no mutable state with its parent.
type ResultSet struct {
	store    *Store
	classes  []*schema.ClassInfo
	where    expr.Expr
	tables   []expr.Expr
	orderBy  []expr.Expr
	offset   *int
	limit    *int
	distinct bool
}

func (rs *ResultSet) copy() *ResultSet {
	n := *rs
	n.classes = append([]*schema.ClassInfo{}, rs.classes...)
	n.tables = append([]expr.Expr{}, rs.tables...)
	n.orderBy = append([]expr.Expr{}, rs.orderBy...)
	if rs.offset != nil {
		o := *rs.offset
		n.offset = &o
	}
	if rs.limit != nil {
		l := *rs.limit
		n.limit = &l
	}
	return &n
}

func (rs *ResultSet) isJoin() bool { return len(rs.classes) != 1 }

// Config returns a copy with distinct/offset/limit overridden where the
// corresponding pointer argument is non-nil.
func (rs *ResultSet) Config(distinct *bool, offset, limit *int) *ResultSet {
	n := rs.copy()
	if distinct != nil {
		n.distinct = *distinct
	}
	if offset != nil {
		n.offset = offset
	}
	if limit != nil {
		n.limit = limit
	}
	return n
}

// OrderBy returns a copy ordered by the given expressions (Asc/Desc-wrapped
// columns). Fails with ErrFeature once offset or limit has been set, matching
// store.py's refusal to reorder a sliced result.
func (rs *ResultSet) OrderBy(exprs ...expr.Expr) (*ResultSet, error) {
	if rs.offset != nil || rs.limit != nil {
		return nil, fmt.Errorf("stormgo: order_by: %w", ErrFeature)
	}
	n := rs.copy()
	n.orderBy = append([]expr.Expr{}, exprs...)
	return n, nil
}

// Slice returns the [start:stop) sub-range as a new ResultSet, composing
// with any existing offset/limit exactly as store.py's __getitem__ slice
// branch does.
func (rs *ResultSet) Slice(start int, stop *int) *ResultSet {
	n := rs.copy()

	baseOffset := 0
	if rs.offset != nil {
		baseOffset = *rs.offset
	}
	newOffset := baseOffset + start
	n.offset = &newOffset

	switch {
	case stop != nil && rs.limit != nil:
		remaining := *rs.limit - start
		if remaining < 0 {
			remaining = 0
		}
		bounded := *stop - start
		if bounded < remaining {
			remaining = bounded
		}
		n.limit = &remaining
	case stop != nil:
		bounded := *stop - start
		n.limit = &bounded
	case rs.limit != nil:
		remaining := *rs.limit - start
		if remaining < 0 {
			remaining = 0
		}
		n.limit = &remaining
	default:
		n.limit = nil
	}
	return n
}

// At returns the i-th row (0-based), failing with an out-of-range error
// if no row exists at that index — including i == 0, matching
// store.py's __getitem__ (which always calls any() and raises
// IndexError on a miss, regardless of which index produced it).
func (rs *ResultSet) At(ctx context.Context, i int) (any, error) {
	var obj any
	var err error
	if i == 0 {
		obj, err = rs.Any(ctx)
	} else {
		n := rs.copy()
		base := 0
		if rs.offset != nil {
			base = *rs.offset
		}
		off := base + i
		one := 1
		n.offset = &off
		n.limit = &one
		obj, err = n.Any(ctx)
	}
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, errors.New("stormgo: index out of range")
	}
	return obj, nil
}

func (rs *ResultSet) selectStatement() (*expr.Select, error) {
	columns, err := rs.projectionColumns()
	if err != nil {
		return nil, err
	}
	tables, err := rs.fromTables()
	if err != nil {
		return nil, err
	}
	return &expr.Select{
		Columns:  columns,
		Tables:   tables,
		Where:    rs.where,
		OrderBy:  rs.orderBy,
		Distinct: rs.distinct,
		Offset:   rs.offset,
		Limit:    rs.limit,
	}, nil
}

func (rs *ResultSet) projectionColumns() ([]expr.Expr, error) {
	var cols []expr.Expr
	for _, ci := range rs.classes {
		cols = append(cols, columnExprs(ci.Columns)...)
	}
	return cols, nil
}

func (rs *ResultSet) fromTables() ([]expr.Expr, error) {
	if len(rs.tables) > 0 {
		return rs.tables, nil
	}
	tables := make([]expr.Expr, len(rs.classes))
	for i, ci := range rs.classes {
		tables[i] = expr.Table{Name: ci.Table}
	}
	return tables, nil
}

// Any returns the first matching row under the current where/order/offset,
// forcing limit to 1 while leaving every other builder field untouched.
func (rs *ResultSet) Any(ctx context.Context) (any, error) {
	n := rs.copy()
	one := 1
	n.limit = &one
	sel, err := n.selectStatement()
	if err != nil {
		return nil, err
	}
	row, cols, err := rs.store.selectOne(ctx, sel)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}
	return rs.store.loadObjects(rs.classes, cols, row)
}

// First requires an explicit order and delegates to Any.
func (rs *ResultSet) First(ctx context.Context) (any, error) {
	if len(rs.orderBy) == 0 {
		return nil, ErrUnordered
	}
	return rs.Any(ctx)
}

// Last requires an explicit order and builds a fresh, un-offset, un-sliced
// Select with the order reversed — it never composes with an existing
// limit (spec.md §4.2 Last).
func (rs *ResultSet) Last(ctx context.Context) (any, error) {
	if len(rs.orderBy) == 0 {
		return nil, ErrUnordered
	}
	if rs.limit != nil {
		return nil, fmt.Errorf("stormgo: last: %w", ErrFeature)
	}
	columns, err := rs.projectionColumns()
	if err != nil {
		return nil, err
	}
	tables, err := rs.fromTables()
	if err != nil {
		return nil, err
	}
	one := 1
	sel := &expr.Select{
		Columns:  columns,
		Tables:   tables,
		Where:    rs.where,
		OrderBy:  expr.ReverseOrder(rs.orderBy),
		Distinct: rs.distinct,
		Limit:    &one,
	}
	row, cols, err := rs.store.selectOne(ctx, sel)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}
	return rs.store.loadObjects(rs.classes, cols, row)
}

// One returns the single matching row, failing with ErrNotOne if a second
// row exists. An existing numeric limit is capped down to 2 (never raised),
// matching store.py's min(limit, 2) cap.
func (rs *ResultSet) One(ctx context.Context) (any, error) {
	n := rs.copy()
	two := 2
	if n.limit == nil || *n.limit > 2 {
		n.limit = &two
	}
	sel, err := n.selectStatement()
	if err != nil {
		return nil, err
	}
	rows, err := rs.store.conn.Query(ctx, sel)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	first, err := rows.GetOne()
	if err != nil {
		return nil, err
	}
	if first == nil {
		return nil, nil
	}
	second, err := rows.GetOne()
	if err != nil {
		return nil, err
	}
	if second != nil {
		return nil, ErrNotOne
	}
	return rs.store.loadObjects(rs.classes, rows.Columns(), first)
}

// All materializes every matching row into a slice, draining the cursor.
func (rs *ResultSet) All(ctx context.Context) ([]any, error) {
	sel, err := rs.selectStatement()
	if err != nil {
		return nil, err
	}
	rows, err := rs.store.conn.Query(ctx, sel)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []any
	for {
		row, err := rows.GetOne()
		if err != nil {
			return nil, err
		}
		if row == nil {
			break
		}
		obj, err := rs.store.loadObjects(rs.classes, rows.Columns(), row)
		if err != nil {
			return nil, err
		}
		out = append(out, obj)
	}
	return out, nil
}

func (rs *ResultSet) aggregate(ctx context.Context, agg expr.Expr, column string) (any, error) {
	n := rs.copy()
	n.orderBy = nil
	n.offset = nil
	n.limit = nil
	tables, err := n.fromTables()
	if err != nil {
		return nil, err
	}
	sel := &expr.Select{
		Columns:  []expr.Expr{agg},
		Tables:   tables,
		Where:    n.where,
		Distinct: n.distinct,
	}
	row, _, err := rs.store.selectOne(ctx, sel)
	if err != nil {
		return nil, err
	}
	if row == nil || len(row) == 0 {
		return nil, nil
	}
	result := row[0]
	if column == "" || len(rs.classes) == 0 {
		return result, nil
	}
	ci := rs.classes[0]
	factory, ok := ci.VariableFactory(column)
	if !ok {
		return result, nil
	}
	v, err := variable.FromDB(factory, result)
	if err != nil {
		return nil, err
	}
	return v.Get(), nil
}

func (rs *ResultSet) Count(ctx context.Context) (int64, error) {
	val, err := rs.aggregate(ctx, expr.Count{}, "")
	if err != nil {
		return 0, err
	}
	return toInt64(val), nil
}

func (rs *ResultSet) Max(ctx context.Context, column string) (any, error) {
	return rs.aggregate(ctx, expr.Max{Column: expr.Column{Name: column}}, column)
}

func (rs *ResultSet) Min(ctx context.Context, column string) (any, error) {
	return rs.aggregate(ctx, expr.Min{Column: expr.Column{Name: column}}, column)
}

func (rs *ResultSet) Sum(ctx context.Context, column string) (any, error) {
	return rs.aggregate(ctx, expr.Sum{Column: expr.Column{Name: column}}, column)
}

// Avg always returns a float64, bypassing the column's Variable factory
// entirely — store.py's ResultSet.avg calls _aggregate with no column
// (no coercion) and wraps the raw result in float(), so an integer
// column's factory never gets a chance to truncate AVG's fractional
// result back down to an int64.
func (rs *ResultSet) Avg(ctx context.Context, column string) (float64, error) {
	val, err := rs.aggregate(ctx, expr.Avg{Column: expr.Column{Name: column}}, "")
	if err != nil {
		return 0, err
	}
	return toFloat64(val), nil
}

func toFloat64(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int64:
		return float64(n)
	case int:
		return float64(n)
	default:
		return 0
	}
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	default:
		return 0
	}
}

// ValueIterator streams raw column values (or tuples of them) without
// hydrating domain objects — the lazy counterpart to All(), modeled after
// database/sql.Rows' Next/Scan-by-EOF idiom rather than store.py's
// generator, since Go has no generator primitive.
type ValueIterator struct {
	rows    rowsSource
	columns []string
	cls     *schema.ClassInfo
	single  bool
}

// rowsSource is satisfied by *driverconn.Rows; declared locally so this
// file does not need to name the concrete driverconn type twice.
type rowsSource interface {
	GetOne() ([]any, error)
	Columns() []string
	Close() error
}

// Values returns a lazy iterator over the named columns (1 or more) of
// each matching row. Fails with ErrFeature if no columns are given.
func (rs *ResultSet) Values(ctx context.Context, columns ...string) (*ValueIterator, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("stormgo: values: %w", ErrFeature)
	}
	if rs.isJoin() {
		return nil, fmt.Errorf("stormgo: values: %w", ErrFeature)
	}
	ci := rs.classes[0]
	sel := &expr.Select{
		Columns:  columnExprs(columns),
		Tables:   mustFromTables(rs),
		Where:    rs.where,
		OrderBy:  rs.orderBy,
		Distinct: rs.distinct,
		Offset:   rs.offset,
		Limit:    rs.limit,
	}
	rows, err := rs.store.conn.Query(ctx, sel)
	if err != nil {
		return nil, err
	}
	return &ValueIterator{rows: rows, columns: columns, cls: ci, single: len(columns) == 1}, nil
}

func mustFromTables(rs *ResultSet) []expr.Expr {
	tables, _ := rs.fromTables()
	return tables
}

// Next returns the next value (a scalar if one column was requested, else
// a []any tuple), or io.EOF once exhausted.
func (it *ValueIterator) Next() (any, error) {
	row, err := it.rows.GetOne()
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, io.EOF
	}
	coerced := make([]any, len(row))
	for i, col := range it.columns {
		factory, ok := it.cls.VariableFactory(col)
		if !ok {
			coerced[i] = row[i]
			continue
		}
		v, err := variable.FromDB(factory, row[i])
		if err != nil {
			return nil, err
		}
		coerced[i] = v.Get()
	}
	if it.single {
		return coerced[0], nil
	}
	return coerced, nil
}

// Close releases the underlying cursor.
func (it *ValueIterator) Close() error { return it.rows.Close() }

// setChangeKind distinguishes Set's three kinds of per-column assignment.
type setChangeKind int

const (
	setNone setChangeKind = iota
	setLiteral
	setColumnRef
)

type setChange struct {
	column string
	kind   setChangeKind
	value  any
	ref    string
}

// Set updates every matching row in bulk via a single UPDATE statement,
// then reconciles any cached (already-loaded) objects of the class in
// memory rather than forcing a reload — matching store.py's ResultSet.set.
// args are Eq(Column, Column|Literal) pairs; kwargs map column name to a
// literal value, nil (no-op), or an expr.Column (copy another column's
// current value). Rejects a tuple cls-spec with ErrFeature. For an
// expr.Column assignment, each matching cached object is patched with
// its own current local value of the referenced column; the value the
// database computed for the UPDATE is not read back.
func (rs *ResultSet) Set(ctx context.Context, args []expr.Eq, kwargs map[string]any) error {
	if rs.isJoin() {
		return fmt.Errorf("stormgo: set: %w", ErrFeature)
	}
	ci := rs.classes[0]

	var changes []setChange
	addChange := func(column string, rhs any) error {
		switch v := rhs.(type) {
		case nil:
			changes = append(changes, setChange{column: column, kind: setNone})
		case expr.Column:
			changes = append(changes, setChange{column: column, kind: setColumnRef, ref: v.Name})
		default:
			factory, ok := ci.VariableFactory(column)
			var wrapped any = v
			if ok {
				variableVal, err := variable.FromDB(factory, v)
				if err == nil {
					wrapped = variableVal.Get()
				}
			}
			changes = append(changes, setChange{column: column, kind: setLiteral, value: wrapped})
		}
		return nil
	}

	for _, eq := range args {
		lhs, ok := eq.Lhs.(expr.Column)
		if !ok {
			return fmt.Errorf("stormgo: set: %w", ErrFeature)
		}
		var rhs any
		switch r := eq.Rhs.(type) {
		case expr.Column:
			rhs = r
		case expr.Literal:
			rhs = r.Value
		case nil:
			rhs = nil
		default:
			return fmt.Errorf("stormgo: set: %w", ErrFeature)
		}
		if err := addChange(lhs.Name, rhs); err != nil {
			return err
		}
	}
	for col, val := range kwargs {
		if err := addChange(col, val); err != nil {
			return err
		}
	}

	var updateCols []string
	var updateVals []expr.Expr
	for _, c := range changes {
		if c.kind == setNone {
			continue
		}
		updateCols = append(updateCols, c.column)
		switch c.kind {
		case setLiteral:
			updateVals = append(updateVals, expr.Literal{Value: c.value})
		case setColumnRef:
			updateVals = append(updateVals, expr.Column{Name: c.ref})
		}
	}
	if len(updateCols) > 0 {
		upd := &expr.Update{Table: ci.Table, Columns: updateCols, Values: updateVals, Where: rs.where}
		if _, err := rs.store.conn.Exec(ctx, upd); err != nil {
			return err
		}
	}

	return rs.patchCache(changes)
}

// patchCache reconciles every currently cached object of the class against
// the where-clause, applying changes directly to each matching object's
// Variables (bypassing ObjectInfo.Set, so no changed event fires and the
// object is not marked dirty — it already reflects the database's new
// state). When the where-clause cannot be compiled to an in-memory
// predicate, every cached object of the class is reloaded instead,
// matching store.py's ResultSet.set fallback.
func (rs *ResultSet) patchCache(changes []setChange) error {
	ci := rs.classes[0]
	pred, err := expr.CompilePython(rs.where)
	if err != nil {
		if errors.Is(err, expr.ErrCompile) {
			for _, info := range rs.store.cachedOfClass(ci) {
				if err := rs.store.Reload(context.Background(), info.Obj); err != nil {
					return err
				}
			}
			return nil
		}
		return err
	}

	for _, info := range rs.store.cachedOfClass(ci) {
		resolver := func(col expr.Column) (any, bool) {
			v, ok := info.Variables[col.Name]
			if !ok || !v.IsDefined() {
				return nil, false
			}
			return v.Get(), true
		}
		matched, err := pred(resolver)
		if err != nil {
			return err
		}
		if !matched {
			continue
		}
		for _, c := range changes {
			target, ok := info.Variables[c.column]
			if !ok {
				continue
			}
			switch c.kind {
			case setNone:
				continue
			case setLiteral:
				if err := target.Set(c.value, false); err != nil {
					return err
				}
			case setColumnRef:
				ref, ok := info.Variables[c.ref]
				if !ok {
					continue
				}
				if err := target.Set(ref.Get(), false); err != nil {
					return err
				}
			}
			target.Checkpoint()
		}
		info.SyncFieldsFromVariables()
	}
	return nil
}

// Remove deletes every matching row directly, without touching the
// identity map — the caller is responsible for detaching any affected
// objects still tracked by the Store (spec.md §4.2 Remove). Rejects a
// sliced or tuple-cls-spec result set with ErrFeature.
func (rs *ResultSet) Remove(ctx context.Context) error {
	if rs.isJoin() || rs.offset != nil || rs.limit != nil {
		return fmt.Errorf("stormgo: remove: %w", ErrFeature)
	}
	del := &expr.Delete{Table: rs.classes[0].Table, Where: rs.where}
	_, err := rs.store.conn.Exec(ctx, del)
	return err
}

// Cached returns every currently cached (already loaded) object matching
// this result set's where-clause, evaluated in memory without touching
// the database. Rejects a tuple cls-spec or a custom Using(...) table list
// with ErrFeature.
func (rs *ResultSet) Cached() ([]any, error) {
	if rs.isJoin() || len(rs.tables) > 0 {
		return nil, fmt.Errorf("stormgo: cached: %w", ErrFeature)
	}
	ci := rs.classes[0]
	if rs.where == nil {
		infos := rs.store.cachedOfClass(ci)
		out := make([]any, len(infos))
		for i, info := range infos {
			out[i] = info.Obj
		}
		return out, nil
	}

	pred, err := expr.CompilePython(rs.where)
	if err != nil {
		return nil, err
	}
	var out []any
	for _, info := range rs.store.cachedOfClass(ci) {
		resolver := func(col expr.Column) (any, bool) {
			v, ok := info.Variables[col.Name]
			if !ok || !v.IsDefined() {
				return nil, false
			}
			return v.Get(), true
		}
		matched, err := pred(resolver)
		if err != nil {
			return nil, err
		}
		if matched {
			out = append(out, info.Obj)
		}
	}
	return out, nil
}
