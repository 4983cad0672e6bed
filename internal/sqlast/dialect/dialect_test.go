package dialect

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/semaflow/semaflow/internal/exprlang"
)

func TestQuoteIdent_EscapesEmbeddedQuoteChar(t *testing.T) {
	assert.Equal(t, `"a""b"`, DuckDB{}.QuoteIdent(`a"b`))
	assert.Equal(t, "`a``b`", MySQL{}.QuoteIdent("a`b"))
	assert.Equal(t, "[a]]b]", ODBC{}.QuoteIdent("a]b"))
}

func TestRenderLiteral_Strings(t *testing.T) {
	assert.Equal(t, "'it''s'", DuckDB{}.RenderLiteral(exprlang.StringValue("it's")))
	assert.Equal(t, "NULL", DuckDB{}.RenderLiteral(exprlang.NullValue))
	assert.Equal(t, "TRUE", DuckDB{}.RenderLiteral(exprlang.BoolValue(true)))
}

func TestMySQL_PanicsOnUndesugaredFilter(t *testing.T) {
	assert.Panics(t, func() {
		MySQL{}.RenderAggregation(exprlang.AggSum, "amount", "amount > 0")
	})
}

func TestRenderFunction_SafeDivideDesugarsOnEveryDialect(t *testing.T) {
	want := `CASE WHEN "o"."order_count" = 0 OR "o"."order_count" IS NULL THEN NULL ELSE "o"."order_total" / "o"."order_count" END`
	assert.Equal(t, want, DuckDB{}.RenderFunction("safe_divide", []string{`"o"."order_total"`, `"o"."order_count"`}))
	assert.Equal(t, want, MySQL{}.RenderFunction("safe_divide", []string{`"o"."order_total"`, `"o"."order_count"`}))
	assert.Equal(t, want, ODBC{}.RenderFunction("safe_divide", []string{`"o"."order_total"`, `"o"."order_count"`}))
}

func TestRenderFunction_OtherFunctionsUnaffected(t *testing.T) {
	assert.Equal(t, "ROUND(x, 2)", DuckDB{}.RenderFunction("round", []string{"x", "2"}))
}
