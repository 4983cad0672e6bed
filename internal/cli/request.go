package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/semaflow/semaflow/internal/semmodel"
)

// requestFlags holds the common query-request flags shared by "plan" and
// "explain": either a full JSON request file, or a handful of convenience
// flags for the common case of a few dimensions/measures against one flow.
type requestFlags struct {
	flow        string
	dimensions  []string
	measures    []string
	filters     []string
	order       []string
	limit       int
	offset      int
	requestFile string
}

func addRequestFlags(cmd *cobra.Command, f *requestFlags) {
	cmd.Flags().StringVar(&f.flow, "flow", "", "Semantic flow name")
	cmd.Flags().StringArrayVar(&f.dimensions, "dimension", nil, "Dimension to select, as alias.field (repeatable)")
	cmd.Flags().StringArrayVar(&f.measures, "measure", nil, "Measure to select, as alias.field (repeatable)")
	cmd.Flags().StringArrayVar(&f.filters, "filter", nil, `Filter as "field op value", e.g. "o.status == open" (repeatable)`)
	cmd.Flags().StringArrayVar(&f.order, "order", nil, "Order term as column[:desc] (repeatable)")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "Row limit (0 = unset, use the configured default)")
	cmd.Flags().IntVar(&f.offset, "offset", 0, "Row offset")
	cmd.Flags().StringVar(&f.requestFile, "request-file", "", "Path to a JSON query request; overrides the flags above")
}

// wireRequest is the on-disk/flag JSON shape, kept deliberately identical
// to apiserver's compileRequest so the same request body works against
// both the CLI and the HTTP surface.
type wireRequest struct {
	Flow       string          `json:"flow"`
	Dimensions []string        `json:"dimensions"`
	Measures   []string        `json:"measures"`
	Filters    []wireFilter    `json:"filters"`
	Order      []wireOrderItem `json:"order"`
	Limit      *int            `json:"limit"`
	Offset     *int            `json:"offset"`
}

type wireFilter struct {
	Field string      `json:"field"`
	Op    string      `json:"op"`
	Value interface{} `json:"value"`
}

type wireOrderItem struct {
	Column    string `json:"column"`
	Direction string `json:"direction"`
}

func (f *requestFlags) build() (semmodel.QueryRequest, error) {
	if f.requestFile != "" {
		return loadRequestFile(f.requestFile)
	}

	if f.flow == "" {
		return semmodel.QueryRequest{}, fmt.Errorf("--flow is required (or pass --request-file)")
	}

	qr := semmodel.QueryRequest{
		Flow:       f.flow,
		Dimensions: f.dimensions,
		Measures:   f.measures,
	}
	if f.limit > 0 {
		qr.Limit = &f.limit
	}
	if f.offset > 0 {
		qr.Offset = &f.offset
	}

	for _, raw := range f.filters {
		rf, err := parseFilterFlag(raw)
		if err != nil {
			return qr, err
		}
		qr.Filters = append(qr.Filters, rf)
	}

	for _, raw := range f.order {
		field, dir, _ := strings.Cut(raw, ":")
		direction := semmodel.OrderAsc
		if strings.EqualFold(dir, "desc") {
			direction = semmodel.OrderDesc
		}
		qr.Order = append(qr.Order, semmodel.OrderItem{Column: field, Direction: direction})
	}

	return qr, nil
}

// parseFilterFlag parses "field op value" (space-separated, value may
// itself contain spaces) into a RequestFilter.
func parseFilterFlag(raw string) (semmodel.RequestFilter, error) {
	parts := strings.SplitN(raw, " ", 3)
	if len(parts) != 3 {
		return semmodel.RequestFilter{}, fmt.Errorf(`invalid --filter %q: expected "field op value"`, raw)
	}
	field, opStr, valueStr := parts[0], parts[1], parts[2]
	if opStr == "not" && strings.HasPrefix(valueStr, "in ") {
		opStr, valueStr = "not in", strings.TrimPrefix(valueStr, "in ")
	}

	op := semmodel.FilterOp(opStr)
	if !semmodel.ValidFilterOps[op] {
		return semmodel.RequestFilter{}, fmt.Errorf("invalid --filter %q: unknown operator %q", raw, opStr)
	}

	if op == semmodel.OpIn || op == semmodel.OpNotIn {
		items := strings.Split(valueStr, ",")
		list := make([]interface{}, len(items))
		for i, it := range items {
			list[i] = coerceScalar(strings.TrimSpace(it))
		}
		return semmodel.RequestFilter{Field: field, Op: op, Value: semmodel.FilterValue{IsList: true, List: list}}, nil
	}

	return semmodel.RequestFilter{Field: field, Op: op, Value: semmodel.FilterValue{Scalar: coerceScalar(valueStr)}}, nil
}

// coerceScalar tries int, then float, then true/false as a bool, then
// leaves the value as a string —
// good enough for a CLI convenience flag; --request-file carries typed
// JSON values for anything more precise.
func coerceScalar(s string) interface{} {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if s == "true" || s == "false" {
		return s == "true"
	}
	return s
}

func loadRequestFile(path string) (semmodel.QueryRequest, error) {
	b, err := os.ReadFile(path) //nolint:gosec // operator-supplied CLI argument
	if err != nil {
		return semmodel.QueryRequest{}, fmt.Errorf("read request file: %w", err)
	}
	var wr wireRequest
	if err := json.Unmarshal(b, &wr); err != nil {
		return semmodel.QueryRequest{}, fmt.Errorf("parse request file: %w", err)
	}

	qr := semmodel.QueryRequest{
		Flow:       wr.Flow,
		Dimensions: wr.Dimensions,
		Measures:   wr.Measures,
		Limit:      wr.Limit,
		Offset:     wr.Offset,
	}
	for _, f := range wr.Filters {
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
	for _, o := range wr.Order {
		dir := semmodel.OrderAsc
		if o.Direction == string(semmodel.OrderDesc) {
			dir = semmodel.OrderDesc
		}
		qr.Order = append(qr.Order, semmodel.OrderItem{Column: o.Column, Direction: dir})
	}
	return qr, nil
}
