package semmodel

// FilterOp enumerates the filter operators accepted at request time
// (spec.md §6 input surface).
type FilterOp string

const (
	OpEq       FilterOp = "=="
	OpNeq      FilterOp = "!="
	OpGt       FilterOp = ">"
	OpGte      FilterOp = ">="
	OpLt       FilterOp = "<"
	OpLte      FilterOp = "<="
	OpIn       FilterOp = "in"
	OpNotIn    FilterOp = "not in"
	OpLike     FilterOp = "like"
	OpILike    FilterOp = "ilike"
)

// ValidFilterOps is the whitelist of acceptable filter operators.
var ValidFilterOps = map[FilterOp]bool{
	OpEq: true, OpNeq: true, OpGt: true, OpGte: true, OpLt: true, OpLte: true,
	OpIn: true, OpNotIn: true, OpLike: true, OpILike: true,
}

// FilterValue is a scalar or list value attached to a request filter. Only
// one of Scalar/List is meaningful, selected by IsList.
type FilterValue struct {
	IsList bool
	Scalar interface{}
	List   []interface{}
}

// RequestFilter is one request-time dimension filter (spec.md §3:
// "measure-level filtering done in the request" is a Non-goal — only
// dimension filters are accepted here).
type RequestFilter struct {
	Field string
	Op    FilterOp
	Value FilterValue
}

// OrderDirection is the sort direction of an OrderItem.
type OrderDirection string

const (
	OrderAsc  OrderDirection = "asc"
	OrderDesc OrderDirection = "desc"
)

// OrderItem is one ORDER BY term, referring to a selected dimension or
// measure by its public name (spec.md §4.4).
type OrderItem struct {
	Column    string
	Direction OrderDirection
}

// QueryRequest is the declarative request surface: pick dimensions, pick
// measures, filter, order, paginate, against a named SemanticFlow.
type QueryRequest struct {
	Flow       string
	Dimensions []string
	Measures   []string
	Filters    []RequestFilter
	Order      []OrderItem
	Limit      *int
	Offset     *int
	PageSize   *int   // opaque to the core; pagination is handled externally
	Cursor     string // opaque to the core
}
