// Package driverconn is Storm-Go's Connection/Result external
// collaborator (spec.md §6): it executes a compiled statement and
// returns a row iterator, and supports commit/rollback. It knows
// nothing about identity maps, dirty sets, or flush ordering — the
// Store is the only caller.
package driverconn

import (
	"database/sql"
	"fmt"

	// Blank-imported so database/sql recognizes each driver name,
	// exactly as the teacher's orm.go registers all three up front.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"github.com/rezakhademix/stormgo/expr"
)

// Dialect bundles the SQL-generation dialect with driver bookkeeping
// needed for RETURNING vs LastInsertId identity recovery. Grounded on
// the teacher's dialect.go Dialects table.
type Dialect struct {
	Name            string
	Expr            expr.Dialect
	SupportsReturning bool
}

var (
	MySQL = Dialect{Name: "mysql", Expr: expr.QuestionMark, SupportsReturning: false}

	Postgres = Dialect{Name: "pgx", Expr: expr.Dollar, SupportsReturning: true}

	SQLite = Dialect{Name: "sqlite3", Expr: expr.QuestionMark, SupportsReturning: false}
)

// DialectByDriver maps a database/sql driver name to its Dialect.
func DialectByDriver(driverName string) (Dialect, error) {
	switch driverName {
	case "mysql":
		return MySQL, nil
	case "pgx", "postgres", "postgresql":
		return Postgres, nil
	case "sqlite3":
		return SQLite, nil
	default:
		return Dialect{}, fmt.Errorf("stormgo/driverconn: unsupported driver %q", driverName)
	}
}

// openDB opens the pooled *sql.DB for driverName and dsn.
func openDB(driverName, dsn string) (*sql.DB, error) {
	return sql.Open(driverName, dsn)
}
