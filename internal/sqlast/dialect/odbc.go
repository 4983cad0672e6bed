package dialect

import (
	"fmt"
	"strings"

	"github.com/semaflow/semaflow/internal/exprlang"
)

// ODBC is the sqlast.Dialect for a generic ODBC-fed warehouse connection:
// bracket-quoted identifiers (SQL Server's convention, the common
// denominator across ODBC drivers that don't support double-quoted
// identifiers without a driver-specific QUOTED_IDENTIFIER setting), no
// FILTER clause, and question-mark placeholders (the ODBC API's own
// parameter-binding convention, which every driver in this family
// supports regardless of the backing database's native placeholder
// style).
type ODBC struct{}

func (ODBC) Name() string { return "odbc" }

func (ODBC) QuoteIdent(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

func (ODBC) Placeholder(index int) string { return "?" }

func (ODBC) RenderLiteral(v exprlang.Value) string { return renderLiteralAnsi(v) }

func (ODBC) RenderFunction(name string, args []string) string {
	return renderFunctionDefault(name, args)
}

func (ODBC) RenderAggregation(agg exprlang.Agg, exprSQL, filterSQL string) string {
	base := renderAggCall(agg, exprSQL)
	if filterSQL == "" {
		return base
	}
	panic(fmt.Sprintf("odbc dialect cannot render a FILTER clause directly: %s", filterSQL))
}

func (ODBC) SupportsFilteredAggregates() bool { return false }

func (ODBC) SupportsILike() bool { return false }
