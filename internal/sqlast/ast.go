// Package sqlast is the target SQL AST the planner renders into (spec.md
// §4.7, component C5): a typed, dialect-neutral SELECT tree plus a small
// Dialect capability interface that the renderer consults for every
// dialect-specific choice (identifier quoting, placeholders, literals,
// function spelling, and filtered-aggregate support). It mirrors the shape
// of the teacher's internal/duckdbsql AST (ast_stmt.go/ast_expr.go) scaled
// down to exactly the SELECT surface the planner needs to emit — no DML,
// DDL, or set operations, since nothing downstream of the planner ever
// builds those.
//
// Scalar expressions (WHERE/ON/HAVING/GROUP BY/SELECT-list/ORDER BY
// operands) reuse internal/exprlang.Expr rather than a second, parallel
// expression AST: the planner's source formulas and the SQL it emits are
// built from the same closed set of operators (spec.md §4.1), so
// duplicating the tree here would just be two copies of the same ten
// node kinds kept in sync by hand.
package sqlast

import "github.com/semaflow/semaflow/internal/exprlang"

// JoinType mirrors semmodel.JoinType so this package does not need to
// import the semantic-model package just for an enum.
type JoinType int

const (
	JoinLeft JoinType = iota
	JoinInner
	JoinRight
	JoinFull
)

// TableRef is a FROM/JOIN source: either a named table (possibly a CTE
// name) or a nested subquery, always bound to an alias.
type TableRef struct {
	Table    string // physical table name, or a CTE's Name
	Subquery *SelectQuery
	Alias    string
}

// JoinCondition is one equality term of a JOIN's ON clause; multiple terms
// are ANDed together, covering composite join keys without a separate AST
// shape for the single- vs. multi-key case.
type JoinCondition struct {
	Left  exprlang.Expr
	Right exprlang.Expr
}

// Join is one joined source with its ON conditions.
type Join struct {
	Type JoinType
	Ref  TableRef
	On   []JoinCondition
}

// SelectItem is one SELECT-list entry.
type SelectItem struct {
	Expr  exprlang.Expr
	Alias string
}

// OrderByItem is one ORDER BY term.
type OrderByItem struct {
	Expr exprlang.Expr
	Desc bool
}

// CTE is one WITH-clause entry.
type CTE struct {
	Name  string
	Query *SelectQuery
}

// SelectQuery is a complete SELECT statement: an optional WITH clause, one
// FROM source, zero or more JOINs, a WHERE list (ANDed), an optional GROUP
// BY, a HAVING list (ANDed, applied post-aggregation), a SELECT list,
// ORDER BY, and LIMIT/OFFSET. Every field downstream of From is optional in
// the zero-value sense (nil/empty means "clause absent").
type SelectQuery struct {
	CTEs    []CTE
	From    TableRef
	Joins   []Join
	Where   []exprlang.Expr
	GroupBy []exprlang.Expr
	Having  []exprlang.Expr
	Select  []SelectItem
	OrderBy []OrderByItem
	Limit   *int
	Offset  *int
}
