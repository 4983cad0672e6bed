package exprlang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Literals(t *testing.T) {
	expr, err := Parse("1 + 2.5", nil)
	require.NoError(t, err)
	bin, ok := expr.(*BinaryOp)
	require.True(t, ok)
	assert.Equal(t, TokenPlus, bin.Op)
}

func TestParse_QualifiedColumn(t *testing.T) {
	expr, err := Parse("c.country == 'US'", nil)
	require.NoError(t, err)
	bin := expr.(*BinaryOp)
	assert.Equal(t, TokenEq, bin.Op)
	col := bin.Left.(*Column)
	assert.Equal(t, "c", col.Table)
	assert.Equal(t, "country", col.Name)
	lit := bin.Right.(*Literal)
	assert.Equal(t, "US", lit.Value.Str)
}

func TestParse_BareIdentifierResolvesMeasureRef(t *testing.T) {
	expr, err := Parse("safe_divide(order_total, order_count)", map[string]bool{
		"order_total": true, "order_count": true,
	})
	require.NoError(t, err)
	fn := expr.(*Function)
	assert.Equal(t, "safe_divide", fn.Name)
	require.Len(t, fn.Args, 2)
	assert.Equal(t, "order_total", fn.Args[0].(*MeasureRef).Name)
	assert.Equal(t, "order_count", fn.Args[1].(*MeasureRef).Name)
}

func TestParse_BareIdentifierWithoutMeasureIsColumn(t *testing.T) {
	expr, err := Parse("amount", nil)
	require.NoError(t, err)
	col := expr.(*Column)
	assert.Equal(t, "", col.Table)
	assert.Equal(t, "amount", col.Name)
}

func TestParse_Precedence(t *testing.T) {
	// not a == b and c == d  ->  (not (a == b)) and (c == d)
	expr, err := Parse("not a == b and c == d", nil)
	require.NoError(t, err)
	top := expr.(*BinaryOp)
	assert.Equal(t, TokenAnd, top.Op)
	left := top.Left.(*UnaryOp)
	assert.Equal(t, TokenNot, left.Op)
	cmp := left.Expr.(*BinaryOp)
	assert.Equal(t, TokenEq, cmp.Op)
}

func TestParse_ArithmeticPrecedence(t *testing.T) {
	expr, err := Parse("1 + 2 * 3", nil)
	require.NoError(t, err)
	top := expr.(*BinaryOp)
	assert.Equal(t, TokenPlus, top.Op)
	assert.Equal(t, TokenStar, top.Right.(*BinaryOp).Op)
}

func TestParse_UnknownFunctionRejected(t *testing.T) {
	_, err := Parse("dangerous_func(1)", nil)
	require.Error(t, err)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
}

func TestParse_UnbalancedParens(t *testing.T) {
	_, err := Parse("(1 + 2", nil)
	require.Error(t, err)
}

func TestParse_TrailingGarbage(t *testing.T) {
	_, err := Parse("1 + 2 3", nil)
	require.Error(t, err)
}

func TestParse_CallWithMultipleArgs(t *testing.T) {
	expr, err := Parse("coalesce(a, b, 0)", nil)
	require.NoError(t, err)
	fn := expr.(*Function)
	assert.Equal(t, "coalesce", fn.Name)
	assert.Len(t, fn.Args, 3)
}

func TestParse_NullAndBool(t *testing.T) {
	expr, err := Parse("a != null and b == true", nil)
	require.NoError(t, err)
	top := expr.(*BinaryOp)
	assert.Equal(t, TokenAnd, top.Op)
	left := top.Left.(*BinaryOp)
	assert.True(t, left.Right.(*Literal).Value.IsNull())
}

func TestWalk_CollectsNestedColumns(t *testing.T) {
	expr := &Case{
		Branches: []CaseBranch{
			{Cond: &BinaryOp{Op: TokenGt, Left: &Column{Name: "a"}, Right: &Literal{Value: IntValue(1)}}, Then: &Column{Name: "b"}},
		},
		Else: &Column{Name: "c"},
	}
	cols := Columns(expr)
	require.Len(t, cols, 3)
}
