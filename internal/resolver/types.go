// Package resolver implements spec.md §4.4 (component C6): turning a
// QueryRequest's bare/qualified field names into fully-resolved,
// alias-qualified expressions against one SemanticFlow, detecting
// ambiguous bare names, rejecting measure-targeted filters, and computing
// the set of aliases a plan actually needs to touch.
package resolver

import (
	"github.com/semaflow/semaflow/internal/exprlang"
	"github.com/semaflow/semaflow/internal/semmodel"
)

// ResolvedField is the (public_name, owning_alias, Expr) triple of
// spec.md §3. PublicName is always the canonical "alias.name" form,
// regardless of whether the request spelled it bare or qualified.
type ResolvedField struct {
	PublicName string
	Alias      string
	Name       string
	Expr       exprlang.Expr // qualified: every bare Column stamped with Alias
}

// ResolvedMeasure extends ResolvedField with the Measure definition and,
// for derived measures, the depth-1 base-measure dependencies that must be
// co-materialized (aggregated inside the same alias's scope) even though
// they were not themselves requested.
type ResolvedMeasure struct {
	ResolvedField
	Measure  semmodel.Measure
	BaseDeps []string // base measure names on the same alias, depth-1 only
}

// ResolvedFilter is one request filter after its field has been resolved
// to a dimension.
type ResolvedFilter struct {
	Field ResolvedField
	Op    semmodel.FilterOp
	Value semmodel.FilterValue
}

// ResolvedOrder is one ORDER BY term after its column has been matched
// against a selected dimension or measure.
type ResolvedOrder struct {
	PublicName string
	IsMeasure  bool
	Direction  semmodel.OrderDirection
}

// QueryComponents is the fully-resolved request (spec.md §3): every field
// name has become an alias-qualified expression, filters and order items
// are bound to concrete resolved fields, and required_aliases names every
// alias a plan must visit.
type QueryComponents struct {
	BaseAlias    string
	BaseTableRef semmodel.BaseTableRef

	Dimensions []ResolvedField
	Measures   []ResolvedMeasure
	Filters    []ResolvedFilter
	Order      []ResolvedOrder

	Limit  *int
	Offset *int

	AliasToTable    map[string]string              // alias -> semantic table name
	JoinLookup      map[string]semmodel.FlowJoin    // alias -> FlowJoin (base alias absent)
	RequiredAliases map[string]bool
}
