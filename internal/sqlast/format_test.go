package sqlast

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/semaflow/semaflow/internal/exprlang"
	"github.com/semaflow/semaflow/internal/sqlast/dialect"
)

func simpleQuery() *SelectQuery {
	limit := 100
	return &SelectQuery{
		From: TableRef{Table: "orders", Alias: "o"},
		Joins: []Join{
			{
				Type: JoinLeft,
				Ref:  TableRef{Table: "customers", Alias: "c"},
				On: []JoinCondition{
					{Left: &exprlang.Column{Table: "o", Name: "customer_id"}, Right: &exprlang.Column{Table: "c", Name: "id"}},
				},
			},
		},
		GroupBy: []exprlang.Expr{&exprlang.Column{Table: "c", Name: "country"}},
		Select: []SelectItem{
			{Expr: &exprlang.Column{Table: "c", Name: "country"}, Alias: "c__country"},
			{
				Expr: &exprlang.Aggregate{
					Agg:  exprlang.AggSum,
					Expr: &exprlang.Column{Table: "o", Name: "amount"},
				},
				Alias: "o__order_total",
			},
		},
		Limit: &limit,
	}
}

func TestRender_DuckDB_FilterClauseNative(t *testing.T) {
	q := simpleQuery()
	q.Select[1].Expr = &exprlang.Aggregate{
		Agg:    exprlang.AggSum,
		Expr:   &exprlang.Column{Table: "o", Name: "amount"},
		Filter: &exprlang.BinaryOp{Op: exprlang.TokenGt, Left: &exprlang.Column{Table: "o", Name: "amount"}, Right: &exprlang.Literal{Value: exprlang.IntValue(0)}},
	}
	out := Render(q, dialect.DuckDB{})
	assert.Contains(t, out, `SUM("o"."amount") FILTER (WHERE ("o"."amount" > 0))`)
	assert.Contains(t, out, `"orders" AS "o"`)
	assert.Contains(t, out, `LEFT JOIN "customers" AS "c"`)
	assert.Contains(t, out, "LIMIT 100")
}

func TestRender_MySQL_FilterDesugarsToCase(t *testing.T) {
	q := simpleQuery()
	q.Select[1].Expr = &exprlang.Aggregate{
		Agg:    exprlang.AggSum,
		Expr:   &exprlang.Column{Table: "o", Name: "amount"},
		Filter: &exprlang.BinaryOp{Op: exprlang.TokenGt, Left: &exprlang.Column{Table: "o", Name: "amount"}, Right: &exprlang.Literal{Value: exprlang.IntValue(0)}},
	}
	out := Render(q, dialect.MySQL{})
	assert.Contains(t, out, "SUM(CASE WHEN")
	assert.Contains(t, out, "ELSE NULL END)")
	assert.Contains(t, out, "`orders` AS `o`")
	assert.NotContains(t, out, "FILTER")
}

func TestRender_ODBC_BracketQuoting(t *testing.T) {
	out := Render(simpleQuery(), dialect.ODBC{})
	assert.Contains(t, out, "[orders] AS [o]")
	assert.Contains(t, out, "[customers] AS [c]")
}

func TestRenderExpr_CaseExpression(t *testing.T) {
	expr := &exprlang.Case{
		Branches: []exprlang.CaseBranch{
			{Cond: &exprlang.BinaryOp{Op: exprlang.TokenGt, Left: &exprlang.Column{Name: "x"}, Right: &exprlang.Literal{Value: exprlang.IntValue(0)}}, Then: &exprlang.Literal{Value: exprlang.StringValue("pos")}},
		},
		Else: &exprlang.Literal{Value: exprlang.StringValue("non-pos")},
	}
	out := RenderExpr(expr, dialect.DuckDB{})
	assert.Equal(t, `CASE WHEN ("x" > 0) THEN 'pos' ELSE 'non-pos' END`, out)
}

func TestRenderExpr_CountDistinct(t *testing.T) {
	expr := &exprlang.Aggregate{Agg: exprlang.AggCountDistinct, Expr: &exprlang.Column{Table: "o", Name: "customer_id"}}
	out := RenderExpr(expr, dialect.DuckDB{})
	assert.Equal(t, `COUNT(DISTINCT "o"."customer_id")`, out)
}

func TestRenderExpr_UnresolvedMeasureRefPanics(t *testing.T) {
	assert.Panics(t, func() {
		RenderExpr(&exprlang.MeasureRef{Name: "order_total"}, dialect.DuckDB{})
	})
}
