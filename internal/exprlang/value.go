// Package exprlang implements the typed expression model shared by measure
// definitions and the SQL AST, plus the restricted parser used for measure
// filters and derived-measure formulas.
package exprlang

import "time"

// ValueKind discriminates the scalar literal kinds the expression language
// carries. There is no "array"/"struct" kind: literals appearing in filters
// and formulas are always scalar.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindTimestamp
)

// Value is a tagged literal value. Only the field matching Kind is
// meaningful; the others are zero.
type Value struct {
	Kind ValueKind
	Bool bool
	Int  int64
	Flt  float64
	Str  string
	Time time.Time
}

// NullValue is the shared null literal.
var NullValue = Value{Kind: KindNull}

func BoolValue(b bool) Value              { return Value{Kind: KindBool, Bool: b} }
func IntValue(i int64) Value              { return Value{Kind: KindInt, Int: i} }
func FloatValue(f float64) Value          { return Value{Kind: KindFloat, Flt: f} }
func StringValue(s string) Value          { return Value{Kind: KindString, Str: s} }
func TimestampValue(t time.Time) Value    { return Value{Kind: KindTimestamp, Time: t} }

// IsNull reports whether the value is the null literal.
func (v Value) IsNull() bool { return v.Kind == KindNull }
