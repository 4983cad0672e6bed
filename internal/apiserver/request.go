package apiserver

import (
	"fmt"

	"github.com/semaflow/semaflow/internal/semmodel"
)

// compileRequest is the JSON wire shape of a POST /v1/compile body,
// mapping field-for-field onto semmodel.QueryRequest (spec.md §6's input
// surface). It exists because the core's QueryRequest intentionally
// carries no JSON tags — the core has no opinion on transport encoding.
type compileRequest struct {
	Flow       string              `json:"flow"`
	Dimensions []string            `json:"dimensions"`
	Measures   []string            `json:"measures"`
	Filters    []compileFilter     `json:"filters"`
	Order      []compileOrderItem  `json:"order"`
	Limit      *int                `json:"limit"`
	Offset     *int                `json:"offset"`
}

type compileFilter struct {
	Field string      `json:"field"`
	Op    string      `json:"op"`
	Value interface{} `json:"value"`
}

type compileOrderItem struct {
	Column    string `json:"column"`
	Direction string `json:"direction"`
}

func (r *compileRequest) toQueryRequest() (semmodel.QueryRequest, error) {
	qr := semmodel.QueryRequest{
		Flow:       r.Flow,
		Dimensions: r.Dimensions,
		Measures:   r.Measures,
		Limit:      r.Limit,
		Offset:     r.Offset,
	}

	for _, f := range r.Filters {
		op := semmodel.FilterOp(f.Op)
		if !semmodel.ValidFilterOps[op] {
			return qr, fmt.Errorf("filter %q: unknown operator %q", f.Field, f.Op)
		}
		fv := semmodel.FilterValue{}
		if list, ok := f.Value.([]interface{}); ok {
			fv.IsList = true
			fv.List = list
		} else {
			fv.Scalar = f.Value
		}
		qr.Filters = append(qr.Filters, semmodel.RequestFilter{Field: f.Field, Op: op, Value: fv})
	}

	for _, o := range r.Order {
		dir := semmodel.OrderAsc
		if o.Direction == string(semmodel.OrderDesc) {
			dir = semmodel.OrderDesc
		}
		qr.Order = append(qr.Order, semmodel.OrderItem{Column: o.Column, Direction: dir})
	}

	return qr, nil
}
