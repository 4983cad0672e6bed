package sqlast

import "github.com/semaflow/semaflow/internal/exprlang"

// Dialect is the capability interface the renderer consults for every
// choice that varies across target databases (spec.md §4.7: "dialects
// differ in identifier quoting, placeholder style, and filtered-aggregate
// support"). Adding a new target database means implementing this
// interface, not touching the renderer.
type Dialect interface {
	// Name identifies the dialect for diagnostics and plan metadata.
	Name() string

	// QuoteIdent quotes a single identifier (not a qualified
	// "table.column" — callers quote each part separately).
	QuoteIdent(name string) string

	// Placeholder renders the nth (1-indexed) bound-parameter placeholder.
	// The formatter does not call it: generated SQL carries no bound
	// parameters.
	Placeholder(index int) string

	// RenderLiteral renders a constant value as a SQL literal. Every
	// literal in generated SQL goes through it, both those in model
	// formulas and request-supplied filter values, which the plan builder
	// embeds as literal nodes.
	RenderLiteral(v exprlang.Value) string

	// RenderFunction renders a whitelisted function call given its
	// already-rendered argument expressions.
	RenderFunction(name string, args []string) string

	// RenderAggregation renders "AGG(exprSQL)", optionally with a FILTER
	// clause, given the aggregation kind and the already-rendered operand
	// SQL. filterSQL is "" when the aggregate is unfiltered or when the
	// renderer has already desugared the filter into exprSQL via CASE-WHEN
	// (see SupportsFilteredAggregates).
	RenderAggregation(agg exprlang.Agg, exprSQL, filterSQL string) string

	// SupportsFilteredAggregates reports whether this dialect understands
	// "AGG(x) FILTER (WHERE cond)". When false, the renderer desugars a
	// filtered aggregate into "AGG(CASE WHEN cond THEN x ELSE NULL END)"
	// before calling RenderAggregation, so every dialect produces the same
	// result for the same filtered measure (spec.md §4.8, "filtered
	// aggregates must be semantically equivalent across dialects").
	SupportsFilteredAggregates() bool

	// SupportsILike reports whether this dialect has a native ILIKE
	// operator. When false, the renderer desugars "expr ILIKE pattern"
	// into "LOWER(expr) LIKE LOWER(pattern)" (spec.md §4.8).
	SupportsILike() bool
}
