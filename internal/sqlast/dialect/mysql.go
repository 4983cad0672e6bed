package dialect

import (
	"fmt"

	"github.com/semaflow/semaflow/internal/exprlang"
)

// MySQL is the sqlast.Dialect for MySQL-family targets in their default
// (non-ANSI_QUOTES) SQL mode: identifiers are backtick-quoted, string
// literals are single-quoted, and there is no FILTER clause — the renderer
// always desugars filtered aggregates into CASE-WHEN for this dialect.
// Grounded on dolthub-go-mysql-server/enginetest/queries/ansi_quotes_queries.go,
// which documents that double quotes are only identifier delimiters under
// the non-default ANSI_QUOTES mode — the default mode this dialect targets
// uses backticks.
type MySQL struct{}

func (MySQL) Name() string { return "mysql" }

func (MySQL) QuoteIdent(name string) string {
	escaped := ""
	for _, r := range name {
		if r == '`' {
			escaped += "``"
		} else {
			escaped += string(r)
		}
	}
	return "`" + escaped + "`"
}

func (MySQL) Placeholder(index int) string { return "?" }

func (MySQL) RenderLiteral(v exprlang.Value) string { return renderLiteralAnsi(v) }

func (MySQL) RenderFunction(name string, args []string) string {
	return renderFunctionDefault(name, args)
}

func (MySQL) RenderAggregation(agg exprlang.Agg, exprSQL, filterSQL string) string {
	base := renderAggCall(agg, exprSQL)
	if filterSQL == "" {
		return base
	}
	// MySQL has no FILTER clause; a non-empty filterSQL here would mean the
	// renderer failed to desugar it, which is a renderer bug, not something
	// this dialect can express.
	panic(fmt.Sprintf("mysql dialect cannot render a FILTER clause directly: %s", filterSQL))
}

func (MySQL) SupportsFilteredAggregates() bool { return false }

func (MySQL) SupportsILike() bool { return false }
