package expr

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect describes how a target database wants bind parameters spelled.
// Grounded on the teacher's dialect.go Dialects table (PlaceholderChar /
// IncludeIndexInPlaceholder / PlaceHolderGenerator).
type Dialect struct {
	Name                      string
	IncludeIndexInPlaceholder bool
	Placeholder               func(index int) string
}

// QuestionMark is the MySQL/SQLite placeholder style: every bind parameter
// is "?".
var QuestionMark = Dialect{
	Name:                      "question",
	IncludeIndexInPlaceholder: false,
	Placeholder:               func(int) string { return "?" },
}

// Dollar is the Postgres placeholder style: "$1", "$2", ...
var Dollar = Dialect{
	Name:                      "dollar",
	IncludeIndexInPlaceholder: true,
	Placeholder:               func(index int) string { return "$" + strconv.Itoa(index) },
}

// compiler accumulates SQL text and bind parameters while walking the AST.
type compiler struct {
	dialect Dialect
	sb      strings.Builder
	args    []any
}

// Compile renders a top-level statement (*Select, *Insert, *Update,
// *Delete) into parameterized SQL for the given dialect.
func Compile(stmt Expr, dialect Dialect) (string, []any, error) {
	c := &compiler{dialect: dialect}
	switch s := stmt.(type) {
	case *Select:
		if err := c.compileSelect(s); err != nil {
			return "", nil, err
		}
	case *Insert:
		if err := c.compileInsert(s); err != nil {
			return "", nil, err
		}
	case *Update:
		if err := c.compileUpdate(s); err != nil {
			return "", nil, err
		}
	case *Delete:
		if err := c.compileDelete(s); err != nil {
			return "", nil, err
		}
	default:
		return "", nil, fmt.Errorf("stormgo/expr: %T is not a top-level statement", stmt)
	}
	return c.sb.String(), c.args, nil
}

// bind appends a literal value and returns its placeholder text.
func (c *compiler) bind(value any) string {
	c.args = append(c.args, value)
	return c.dialect.Placeholder(len(c.args))
}

func (c *compiler) compileSelect(s *Select) error {
	c.sb.WriteString("SELECT ")
	if s.Distinct {
		c.sb.WriteString("DISTINCT ")
	}
	if len(s.Columns) == 0 {
		c.sb.WriteString("*")
	} else {
		for i, col := range s.Columns {
			if i > 0 {
				c.sb.WriteString(", ")
			}
			if err := c.writeExpr(col); err != nil {
				return err
			}
		}
	}

	if len(s.Tables) == 0 {
		return fmt.Errorf("stormgo/expr: select has no tables")
	}
	c.sb.WriteString(" FROM ")
	for i, t := range s.Tables {
		if i > 0 {
			c.sb.WriteString(", ")
		}
		if err := c.writeTableExpr(t); err != nil {
			return err
		}
	}

	if s.Where != nil {
		c.sb.WriteString(" WHERE ")
		if err := c.writeExpr(s.Where); err != nil {
			return err
		}
	}

	if len(s.GroupBy) > 0 {
		c.sb.WriteString(" GROUP BY ")
		for i, g := range s.GroupBy {
			if i > 0 {
				c.sb.WriteString(", ")
			}
			if err := c.writeExpr(g); err != nil {
				return err
			}
		}
	}

	if s.Having != nil {
		c.sb.WriteString(" HAVING ")
		if err := c.writeExpr(s.Having); err != nil {
			return err
		}
	}

	if len(s.OrderBy) > 0 {
		c.sb.WriteString(" ORDER BY ")
		for i, o := range s.OrderBy {
			if i > 0 {
				c.sb.WriteString(", ")
			}
			if err := c.writeExpr(o); err != nil {
				return err
			}
		}
	}

	if s.Limit != nil {
		c.sb.WriteString(" LIMIT ")
		c.sb.WriteString(strconv.Itoa(*s.Limit))
	}
	if s.Offset != nil {
		c.sb.WriteString(" OFFSET ")
		c.sb.WriteString(strconv.Itoa(*s.Offset))
	}

	return nil
}

func (c *compiler) compileInsert(s *Insert) error {
	c.sb.WriteString("INSERT INTO ")
	c.sb.WriteString(s.Table)
	c.sb.WriteString(" (")
	c.sb.WriteString(strings.Join(s.Columns, ", "))
	c.sb.WriteString(") VALUES (")
	for i, v := range s.Values {
		if i > 0 {
			c.sb.WriteString(", ")
		}
		if err := c.writeExpr(v); err != nil {
			return err
		}
	}
	c.sb.WriteString(")")
	return nil
}

func (c *compiler) compileUpdate(s *Update) error {
	c.sb.WriteString("UPDATE ")
	c.sb.WriteString(s.Table)
	c.sb.WriteString(" SET ")
	for i, col := range s.Columns {
		if i > 0 {
			c.sb.WriteString(", ")
		}
		c.sb.WriteString(col)
		c.sb.WriteString(" = ")
		if err := c.writeExpr(s.Values[i]); err != nil {
			return err
		}
	}
	if s.Where != nil {
		c.sb.WriteString(" WHERE ")
		if err := c.writeExpr(s.Where); err != nil {
			return err
		}
	}
	return nil
}

func (c *compiler) compileDelete(s *Delete) error {
	c.sb.WriteString("DELETE FROM ")
	c.sb.WriteString(s.Table)
	if s.Where != nil {
		c.sb.WriteString(" WHERE ")
		if err := c.writeExpr(s.Where); err != nil {
			return err
		}
	}
	return nil
}

func (c *compiler) writeTableExpr(e Expr) error {
	switch t := e.(type) {
	case Table:
		c.sb.WriteString(t.Name)
		return nil
	case JoinExpr:
		return c.writeJoin(t)
	case *Select:
		c.sb.WriteString("(")
		if err := c.compileSelect(t); err != nil {
			return err
		}
		c.sb.WriteString(")")
		return nil
	default:
		return fmt.Errorf("stormgo/expr: %T is not a valid table expression", e)
	}
}

func (c *compiler) writeJoin(j JoinExpr) error {
	if err := c.writeTableExpr(j.Left); err != nil {
		return err
	}
	switch j.Kind {
	case LeftJoin:
		c.sb.WriteString(" LEFT JOIN ")
	case RightJoin:
		c.sb.WriteString(" RIGHT JOIN ")
	case FullOuterJoin:
		c.sb.WriteString(" FULL OUTER JOIN ")
	default:
		c.sb.WriteString(" JOIN ")
	}
	if err := c.writeTableExpr(j.Right); err != nil {
		return err
	}
	c.sb.WriteString(" ON ")
	return c.writeExpr(j.On)
}

func (c *compiler) writeExpr(e Expr) error {
	switch v := e.(type) {
	case Column:
		if v.Table != "" {
			c.sb.WriteString(v.Table)
			c.sb.WriteString(".")
		}
		c.sb.WriteString(v.Name)
		return nil
	case Literal:
		c.sb.WriteString(c.bind(v.Value))
		return nil
	case Raw:
		c.sb.WriteString(v.SQL)
		c.args = append(c.args, v.Args...)
		return nil
	case Eq:
		return c.writeBinary(v.Lhs, "=", v.Rhs, true)
	case Ne:
		return c.writeBinary(v.Lhs, "!=", v.Rhs, true)
	case Lt:
		return c.writeBinary(v.Lhs, "<", v.Rhs, false)
	case Le:
		return c.writeBinary(v.Lhs, "<=", v.Rhs, false)
	case Gt:
		return c.writeBinary(v.Lhs, ">", v.Rhs, false)
	case Ge:
		return c.writeBinary(v.Lhs, ">=", v.Rhs, false)
	case In:
		return c.writeIn(v)
	case And:
		return c.writeConjunction(v.Exprs, "AND", "1=1")
	case Or:
		return c.writeConjunction(v.Exprs, "OR", "1=0")
	case Asc:
		if err := c.writeExpr(v.Expr); err != nil {
			return err
		}
		c.sb.WriteString(" ASC")
		return nil
	case Desc:
		if err := c.writeExpr(v.Expr); err != nil {
			return err
		}
		c.sb.WriteString(" DESC")
		return nil
	case Count:
		return c.writeAggregate("COUNT", v.Column)
	case Max:
		return c.writeAggregate("MAX", v.Column)
	case Min:
		return c.writeAggregate("MIN", v.Column)
	case Sum:
		return c.writeAggregate("SUM", v.Column)
	case Avg:
		return c.writeAggregate("AVG", v.Column)
	default:
		return fmt.Errorf("stormgo/expr: %T is not a valid value expression", e)
	}
}

// writeBinary handles the "IS NULL"/"IS NOT NULL" special case that a
// nil-valued Eq/Ne represents, matching how the original spec's
// Eq(Column, None) must compile.
func (c *compiler) writeBinary(lhs Expr, op string, rhs Expr, nullable bool) error {
	if nullable {
		if lit, ok := rhs.(Literal); ok && lit.Value == nil {
			if err := c.writeExpr(lhs); err != nil {
				return err
			}
			if op == "=" {
				c.sb.WriteString(" IS NULL")
			} else {
				c.sb.WriteString(" IS NOT NULL")
			}
			return nil
		}
	}
	if err := c.writeExpr(lhs); err != nil {
		return err
	}
	c.sb.WriteString(" ")
	c.sb.WriteString(op)
	c.sb.WriteString(" ")
	return c.writeExpr(rhs)
}

func (c *compiler) writeIn(v In) error {
	if len(v.Values) == 0 {
		c.sb.WriteString("1=0")
		return nil
	}
	if err := c.writeExpr(v.Lhs); err != nil {
		return err
	}
	c.sb.WriteString(" IN (")
	for i, val := range v.Values {
		if i > 0 {
			c.sb.WriteString(", ")
		}
		if err := c.writeExpr(val); err != nil {
			return err
		}
	}
	c.sb.WriteString(")")
	return nil
}

func (c *compiler) writeConjunction(exprs []Expr, sep, empty string) error {
	if len(exprs) == 0 {
		c.sb.WriteString(empty)
		return nil
	}
	c.sb.WriteString("(")
	for i, e := range exprs {
		if i > 0 {
			c.sb.WriteString(" ")
			c.sb.WriteString(sep)
			c.sb.WriteString(" ")
		}
		if err := c.writeExpr(e); err != nil {
			return err
		}
	}
	c.sb.WriteString(")")
	return nil
}

func (c *compiler) writeAggregate(name string, col Expr) error {
	c.sb.WriteString(name)
	c.sb.WriteString("(")
	if col == nil {
		c.sb.WriteString("*")
	} else if err := c.writeExpr(col); err != nil {
		return err
	}
	c.sb.WriteString(")")
	return nil
}
