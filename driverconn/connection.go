package driverconn

import (
	"context"
	"database/sql"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/rezakhademix/stormgo/expr"
	"github.com/rezakhademix/stormgo/stmtcache"
	"github.com/rezakhademix/stormgo/variable"
)

// Config configures the pooled *sql.DB underneath one Store's
// Connection. Grounded on the teacher's orm.go ConnectionConfig and
// model.go ConfigureConnectionPool.
type Config struct {
	DriverName      string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	StmtCacheSize   int
}

// Connection is the Store's sole external collaborator for statement
// execution and transaction control (spec.md §6). A Store owns exactly
// one Connection for its lifetime (spec.md §3 Ownership) — there is no
// primary/replica split here (see DESIGN.md for why the teacher's
// resolver.go was not adapted).
type Connection struct {
	db      *sql.DB
	tx      *sql.Tx
	dialect Dialect
	stmts   *stmtcache.Cache
	group   singleflight.Group
}

// Open connects using cfg and returns a ready Connection.
func Open(cfg Config) (*Connection, error) {
	dialect, err := DialectByDriver(cfg.DriverName)
	if err != nil {
		return nil, err
	}
	db, err := openDB(cfg.DriverName, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	return &Connection{
		db:      db,
		dialect: dialect,
		stmts:   stmtcache.New(cfg.StmtCacheSize),
	}, nil
}

// Dialect exposes the connection's SQL dialect to callers that need to
// Compile an expr.Expr before calling Execute/Query.
func (c *Connection) Dialect() expr.Dialect { return c.dialect.Expr }

// prepare returns a *sql.Stmt for query, preparing it at most once even
// under concurrent callers for the same query — grounded on the
// teacher's stmt_cache.go PutAndGet plus golang.org/x/sync/singleflight
// collapsing the concurrent-miss race its own TOCTOU commentary flags.
//
// A statement prepared against an active *sql.Tx is tied to that
// transaction (sql.ErrTxDone once it commits or rolls back), so it must
// never enter the shared, connection-lifetime stmtcache: a later call
// compiling to the same query text would otherwise get handed back a
// dead statement from a transaction that already ended. Inside a
// transaction, prepare bypasses the cache entirely and the returned
// release closes the statement once the caller is done with it.
func (c *Connection) prepare(ctx context.Context, query string) (*sql.Stmt, func(), error) {
	if c.tx != nil {
		stmt, err := c.tx.PrepareContext(ctx, query)
		if err != nil {
			return nil, nil, err
		}
		return stmt, func() { _ = stmt.Close() }, nil
	}

	if stmt, release := c.stmts.Get(query); stmt != nil {
		return stmt, release, nil
	}

	v, err, _ := c.group.Do(query, func() (any, error) {
		return c.db.PrepareContext(ctx, query)
	})
	if err != nil {
		return nil, nil, err
	}
	stmt := v.(*sql.Stmt)
	stmt, release := c.stmts.PutAndGet(query, stmt)
	return stmt, release, nil
}

// Exec runs an Insert/Update/Delete statement and returns rows affected
// and, when the driver supports it, the last auto-assigned insert id.
func (c *Connection) Exec(ctx context.Context, statement expr.Expr) (sql.Result, error) {
	query, args, err := expr.Compile(statement, c.dialect.Expr)
	if err != nil {
		return nil, err
	}
	stmt, release, err := c.prepare(ctx, query)
	if err != nil {
		return nil, WrapQueryError("exec", query, args, err)
	}
	defer release()

	result, err := stmt.ExecContext(ctx, args...)
	if err != nil {
		return nil, WrapQueryError("exec", query, args, err)
	}
	return result, nil
}

// ExecRaw runs a literal SQL string outside the expr.Expr AST — schema
// DDL (CREATE TABLE, CREATE INDEX) and other statements the compiler
// has no node for, grounded on the teacher's connection.go exec
// wrapper. Not used by the Store/ResultSet hot path, which always
// compiles from the AST; callers (migrations, test fixtures) reach for
// this directly.
func (c *Connection) ExecRaw(ctx context.Context, query string, args ...any) (sql.Result, error) {
	stmt, release, err := c.prepare(ctx, query)
	if err != nil {
		return nil, WrapQueryError("exec_raw", query, args, err)
	}
	defer release()

	result, err := stmt.ExecContext(ctx, args...)
	if err != nil {
		return nil, WrapQueryError("exec_raw", query, args, err)
	}
	return result, nil
}

// Rows is the row iterator the Python original calls Result: the Store
// hydrates objects by repeatedly calling GetOne, not by range-looping a
// driver cursor directly, matching store.py's get_one()-based protocol.
type Rows struct {
	rows    *sql.Rows
	columns []string
}

// Query runs a Select and returns its row iterator.
func (c *Connection) Query(ctx context.Context, statement *expr.Select) (*Rows, error) {
	query, args, err := expr.Compile(statement, c.dialect.Expr)
	if err != nil {
		return nil, err
	}
	stmt, release, err := c.prepare(ctx, query)
	if err != nil {
		return nil, WrapQueryError("query", query, args, err)
	}
	defer release()

	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		return nil, WrapQueryError("query", query, args, err)
	}
	columns, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, err
	}
	return &Rows{rows: rows, columns: columns}, nil
}

// GetOne reads the next row as a slice of raw driver values, or returns
// (nil, nil) when the cursor is exhausted — the exact "row tuple or
// none" contract spec.md §6 specifies for Result.get_one.
func (r *Rows) GetOne() ([]any, error) {
	if !r.rows.Next() {
		return nil, r.rows.Err()
	}
	dest := make([]any, len(r.columns))
	ptrs := make([]any, len(r.columns))
	for i := range dest {
		ptrs[i] = &dest[i]
	}
	if err := r.rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	return dest, nil
}

// Columns reports the projected column names in row order.
func (r *Rows) Columns() []string { return r.columns }

// Close releases the underlying cursor.
func (r *Rows) Close() error { return r.rows.Close() }

// SetVariable pushes a raw driver value into v with from_db=true,
// matching spec.md §6's Result.set_variable contract (driver-aware
// coercion lives inside each Variable's Set implementation — see
// stormgo/variable).
func SetVariable(v variable.Variable, raw any) error {
	return v.Set(raw, true)
}

// GetInsertIdentity builds the where-expression identifying the row
// just inserted, for columns whose value the database assigned (e.g. an
// auto-increment primary key). SQLite/MySQL recover it via
// sql.Result.LastInsertId; a dialect with RETURNING support is expected
// to have already filled the primary Variable directly from the
// RETURNING row and never call this.
func (c *Connection) GetInsertIdentity(result sql.Result, pkColumns []string, pkVars []variable.Variable) (expr.Expr, error) {
	if c.dialect.SupportsReturning {
		return nil, fmt.Errorf("stormgo/driverconn: GetInsertIdentity not needed for a RETURNING-capable dialect")
	}
	if len(pkColumns) != 1 {
		return nil, fmt.Errorf("stormgo/driverconn: LastInsertId identity recovery requires exactly one primary key column, got %d", len(pkColumns))
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	if err := pkVars[0].Set(id, true); err != nil {
		return nil, err
	}
	return expr.Eq{Lhs: expr.Column{Name: pkColumns[0]}, Rhs: expr.Literal{Value: id}}, nil
}

// Begin starts a transaction; all subsequent Exec/Query calls route
// through it until Commit or Rollback.
func (c *Connection) Begin(ctx context.Context) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	c.tx = tx
	return nil
}

// Commit commits the active transaction, if any.
func (c *Connection) Commit() error {
	if c.tx == nil {
		return nil
	}
	err := c.tx.Commit()
	c.tx = nil
	return err
}

// Rollback rolls back the active transaction, if any.
func (c *Connection) Rollback() error {
	if c.tx == nil {
		return nil
	}
	err := c.tx.Rollback()
	c.tx = nil
	return err
}

// Close closes the statement cache and the pooled *sql.DB.
func (c *Connection) Close() error {
	c.stmts.Close()
	return c.db.Close()
}
