package sqlast

import (
	"fmt"
	"strings"

	"github.com/semaflow/semaflow/internal/exprlang"
)

// Render formats query as a complete SQL string for the given dialect. The
// output is flat (no pretty-printing), in the style of the teacher's
// internal/duckdbsql Format function.
func Render(query *SelectQuery, d Dialect) string {
	f := &formatter{d: d}
	f.writeSelectQuery(query)
	return strings.TrimSpace(f.buf.String())
}

// RenderExpr formats a bare scalar expression for the given dialect. Used
// by callers that need to show a single formula or filter in isolation
// (e.g. CLI explain output) without a surrounding query.
func RenderExpr(expr exprlang.Expr, d Dialect) string {
	f := &formatter{d: d}
	f.writeExpr(expr)
	return strings.TrimSpace(f.buf.String())
}

type formatter struct {
	buf strings.Builder
	d   Dialect
}

func (f *formatter) write(s string)    { f.buf.WriteString(s) }
func (f *formatter) space()            { f.buf.WriteByte(' ') }
func (f *formatter) writeIdent(s string) { f.write(f.d.QuoteIdent(s)) }

func (f *formatter) commaSep(n int, fn func(i int)) {
	for i := 0; i < n; i++ {
		if i > 0 {
			f.write(", ")
		}
		fn(i)
	}
}

func (f *formatter) writeSelectQuery(q *SelectQuery) {
	if len(q.CTEs) > 0 {
		f.write("WITH ")
		f.commaSep(len(q.CTEs), func(i int) {
			cte := q.CTEs[i]
			f.writeIdent(cte.Name)
			f.write(" AS (")
			f.writeSelectQuery(cte.Query)
			f.write(")")
		})
		f.space()
	}

	f.write("SELECT ")
	f.commaSep(len(q.Select), func(i int) {
		item := q.Select[i]
		f.writeExpr(item.Expr)
		if item.Alias != "" {
			f.write(" AS ")
			f.writeIdent(item.Alias)
		}
	})

	f.write(" FROM ")
	f.writeTableRef(q.From)

	for _, j := range q.Joins {
		f.space()
		f.write(joinKeyword(j.Type))
		f.write(" JOIN ")
		f.writeTableRef(j.Ref)
		f.write(" ON ")
		for i, cond := range j.On {
			if i > 0 {
				f.write(" AND ")
			}
			f.writeExpr(cond.Left)
			f.write(" = ")
			f.writeExpr(cond.Right)
		}
	}

	if len(q.Where) > 0 {
		f.write(" WHERE ")
		f.writeAndList(q.Where)
	}

	if len(q.GroupBy) > 0 {
		f.write(" GROUP BY ")
		f.commaSep(len(q.GroupBy), func(i int) { f.writeExpr(q.GroupBy[i]) })
	}

	if len(q.Having) > 0 {
		f.write(" HAVING ")
		f.writeAndList(q.Having)
	}

	if len(q.OrderBy) > 0 {
		f.write(" ORDER BY ")
		f.commaSep(len(q.OrderBy), func(i int) {
			item := q.OrderBy[i]
			f.writeExpr(item.Expr)
			if item.Desc {
				f.write(" DESC")
			}
		})
	}

	if q.Limit != nil {
		fmt.Fprintf(&f.buf, " LIMIT %d", *q.Limit)
	}
	if q.Offset != nil {
		fmt.Fprintf(&f.buf, " OFFSET %d", *q.Offset)
	}
}

func (f *formatter) writeAndList(exprs []exprlang.Expr) {
	for i, e := range exprs {
		if i > 0 {
			f.write(" AND ")
		}
		f.writeExpr(e)
	}
}

func (f *formatter) writeTableRef(t TableRef) {
	if t.Subquery != nil {
		f.write("(")
		f.writeSelectQuery(t.Subquery)
		f.write(")")
	} else {
		f.writeIdent(t.Table)
	}
	if t.Alias != "" {
		f.write(" AS ")
		f.writeIdent(t.Alias)
	}
}

func joinKeyword(t JoinType) string {
	switch t {
	case JoinInner:
		return "INNER"
	case JoinRight:
		return "RIGHT"
	case JoinFull:
		return "FULL"
	default:
		return "LEFT"
	}
}

// writeExpr renders one exprlang.Expr node. Aggregate nodes are desugared
// into a dialect-neutral CASE-WHEN before calling Dialect.RenderAggregation
// when the dialect lacks native FILTER support, so every dialect produces
// an equivalent result for the same filtered measure.
func (f *formatter) writeExpr(expr exprlang.Expr) {
	switch e := expr.(type) {
	case *exprlang.Column:
		if e.Table != "" {
			f.writeIdent(e.Table)
			f.write(".")
		}
		f.writeIdent(e.Name)

	case *exprlang.Literal:
		f.write(f.d.RenderLiteral(e.Value))

	case *exprlang.Case:
		f.write("CASE")
		for _, b := range e.Branches {
			f.write(" WHEN ")
			f.writeExpr(b.Cond)
			f.write(" THEN ")
			f.writeExpr(b.Then)
		}
		if e.Else != nil {
			f.write(" ELSE ")
			f.writeExpr(e.Else)
		}
		f.write(" END")

	case *exprlang.BinaryOp:
		f.write("(")
		f.writeExpr(e.Left)
		f.space()
		f.write(binaryOpSQL(e.Op))
		f.space()
		f.writeExpr(e.Right)
		f.write(")")

	case *exprlang.UnaryOp:
		f.write("(NOT ")
		f.writeExpr(e.Expr)
		f.write(")")

	case *exprlang.Function:
		args := make([]string, len(e.Args))
		for i, a := range e.Args {
			sub := &formatter{d: f.d}
			sub.writeExpr(a)
			args[i] = sub.buf.String()
		}
		f.write(f.d.RenderFunction(e.Name, args))

	case *exprlang.Aggregate:
		operand := &formatter{d: f.d}
		operand.writeExpr(e.Expr)
		exprSQL := operand.buf.String()

		var filterSQL string
		if e.Filter != nil {
			ff := &formatter{d: f.d}
			ff.writeExpr(e.Filter)
			filterSQL = ff.buf.String()
		}

		if filterSQL != "" && !f.d.SupportsFilteredAggregates() {
			exprSQL = fmt.Sprintf("CASE WHEN %s THEN %s ELSE NULL END", filterSQL, exprSQL)
			filterSQL = ""
		}
		f.write(f.d.RenderAggregation(e.Agg, exprSQL, filterSQL))

	case *exprlang.MeasureRef:
		// MeasureRef is resolved away before rendering (internal/planbuild
		// replaces it with the referenced measure's own expression); seeing
		// one here means a stage upstream of rendering has a bug.
		panic(fmt.Sprintf("sqlast: unresolved measure reference %q reached the renderer", e.Name))

	case *exprlang.InExpr:
		if len(e.List) == 0 {
			// spec.md §4.8: "IN () with empty list renders FALSE".
			f.write("FALSE")
			return
		}
		f.writeExpr(e.Expr)
		if e.Negate {
			f.write(" NOT IN (")
		} else {
			f.write(" IN (")
		}
		f.commaSep(len(e.List), func(i int) { f.writeExpr(e.List[i]) })
		f.write(")")

	case *exprlang.LikeExpr:
		if e.CaseInsensitive && f.d.SupportsILike() {
			f.writeExpr(e.Expr)
			f.write(" ILIKE ")
			f.writeExpr(e.Pattern)
			return
		}
		if e.CaseInsensitive {
			// spec.md §4.8: desugar ILIKE on non-ILIKE dialects to a
			// case-folded LIKE.
			f.write("LOWER(")
			f.writeExpr(e.Expr)
			f.write(") LIKE LOWER(")
			f.writeExpr(e.Pattern)
			f.write(")")
			return
		}
		f.writeExpr(e.Expr)
		f.write(" LIKE ")
		f.writeExpr(e.Pattern)

	default:
		panic(fmt.Sprintf("sqlast: unhandled expression node %T", expr))
	}
}

func binaryOpSQL(op exprlang.TokenType) string {
	switch op {
	case exprlang.TokenAnd:
		return "AND"
	case exprlang.TokenOr:
		return "OR"
	case exprlang.TokenEq:
		return "="
	case exprlang.TokenNeq:
		return "<>"
	case exprlang.TokenGt:
		return ">"
	case exprlang.TokenGte:
		return ">="
	case exprlang.TokenLt:
		return "<"
	case exprlang.TokenLte:
		return "<="
	case exprlang.TokenPlus:
		return "+"
	case exprlang.TokenMinus:
		return "-"
	case exprlang.TokenStar:
		return "*"
	case exprlang.TokenSlash:
		return "/"
	case exprlang.TokenPercent:
		return "%"
	default:
		panic(fmt.Sprintf("sqlast: unhandled binary operator token %v", op))
	}
}
