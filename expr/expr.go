// Package expr is Storm-Go's Expression AST & SQL compiler: the external
// collaborator the core Store/ResultSet rely on only for its shape
// (spec.md §1/§6). It never touches the identity map or flush logic; it
// just builds statements and compiles them to parameterized SQL.
package expr

// Expr is the sum type every node in the AST satisfies. It carries no
// behavior of its own beyond being a marker; Compile type-switches on the
// concrete node.
type Expr interface {
	isExpr()
}

// Column references a table column by name. Table is optional; when set
// it qualifies the column (used in joins).
type Column struct {
	Name  string
	Table string
}

func (Column) isExpr() {}

// Literal wraps a Go value (or a variable.Variable.Get() result) destined
// for a bind parameter.
type Literal struct {
	Value any
}

func (Literal) isExpr() {}

// Eq, Ne, Lt, Le, Gt, Ge are binary comparisons. An Rhs of
// Literal{Value: nil} compiles to "IS NULL" for Eq / "IS NOT NULL" for Ne.
type Eq struct{ Lhs, Rhs Expr }
type Ne struct{ Lhs, Rhs Expr }
type Lt struct{ Lhs, Rhs Expr }
type Le struct{ Lhs, Rhs Expr }
type Gt struct{ Lhs, Rhs Expr }
type Ge struct{ Lhs, Rhs Expr }

func (Eq) isExpr() {}
func (Ne) isExpr() {}
func (Lt) isExpr() {}
func (Le) isExpr() {}
func (Gt) isExpr() {}
func (Ge) isExpr() {}

// In matches Lhs against any of Values.
type In struct {
	Lhs    Expr
	Values []Expr
}

func (In) isExpr() {}

// And / Or combine a list of expressions. An empty And is "true" (no
// filter); an empty Or is "false".
type And struct{ Exprs []Expr }
type Or struct{ Exprs []Expr }

func (And) isExpr() {}
func (Or) isExpr() {}

// Asc / Desc wrap an ordering expression.
type Asc struct{ Expr Expr }
type Desc struct{ Expr Expr }

func (Asc) isExpr()  {}
func (Desc) isExpr() {}

// Count / Max / Min / Sum / Avg are aggregate expressions over a column
// (or over "*" when Column is the zero value, for Count).
type Count struct{ Column Expr }
type Max struct{ Column Expr }
type Min struct{ Column Expr }
type Sum struct{ Column Expr }
type Avg struct{ Column Expr }

func (Count) isExpr() {}
func (Max) isExpr()   {}
func (Min) isExpr()   {}
func (Sum) isExpr()   {}
func (Avg) isExpr()   {}

// JoinKind enumerates the supported join flavors, grounded on the
// teacher's query.go LeftJoin/RightJoin/InnerJoin/FullOuterJoin builders.
type JoinKind int

const (
	InnerJoin JoinKind = iota
	LeftJoin
	RightJoin
	FullOuterJoin
)

// JoinExpr joins Left and Right on On.
type JoinExpr struct {
	Kind  JoinKind
	Left  Expr
	Right Expr
	On    Expr
}

func (JoinExpr) isExpr() {}

// Table is a bare table reference, used as a FROM/JOIN operand when a
// class's table is referenced directly rather than via a subquery.
type Table struct {
	Name string
}

func (Table) isExpr() {}

// Select is a read statement. Tables holds the FROM list (Table, JoinExpr,
// or a nested Select used as a subquery); Columns is the projection list
// (Column or an aggregate); Where may be nil (no filter).
type Select struct {
	Columns  []Expr
	Tables   []Expr
	Where    Expr
	OrderBy  []Expr
	GroupBy  []Expr
	Having   Expr
	Distinct bool
	Limit    *int
	Offset   *int
}

func (*Select) isExpr() {}

// Insert builds an INSERT INTO Table (Columns) VALUES (Values).
type Insert struct {
	Table   string
	Columns []string
	Values  []Expr
}

func (*Insert) isExpr() {}

// Update builds an UPDATE Table SET col=val... WHERE Where.
type Update struct {
	Table   string
	Columns []string
	Values  []Expr
	Where   Expr
}

func (*Update) isExpr() {}

// Delete builds a DELETE FROM Table WHERE Where.
type Delete struct {
	Table string
	Where Expr
}

func (*Delete) isExpr() {}

// Raw escapes to a literal SQL fragment with positional args, matching the
// teacher's query.go Raw()/raw{} escape hatch.
type Raw struct {
	SQL  string
	Args []any
}

func (Raw) isExpr() {}
