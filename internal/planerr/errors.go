// Package planerr defines the planner core's error taxonomy (spec.md §7):
// a Kind enum carried by a single PlanError type, built with the formatted
// constructors New and NewValidation, in the style of the
// teacher's internal/domain/errors.go rather than sentinel errors or a
// third-party error-wrapping library. Every stage of the pipeline returns
// a result-or-error — no partial SQL is ever produced.
package planerr

import "fmt"

// Kind enumerates the error taxonomy of spec.md §7.
type Kind string

const (
	KindUnknownFlow          Kind = "UnknownFlow"
	KindUnknownField         Kind = "UnknownField"
	KindAmbiguousField       Kind = "AmbiguousField"
	KindInvalidFilterTarget  Kind = "InvalidFilterTarget"
	KindInvalidOperator      Kind = "InvalidOperator"
	KindUnknownJoinAlias     Kind = "UnknownJoinAlias"
	KindJoinKeyUnknownColumn Kind = "JoinKeyUnknownColumn"
	KindMixedDataSources     Kind = "MixedDataSources"
	KindDerivedOfDerived     Kind = "DerivedOfDerived"
	KindCardinalityRequired  Kind = "CardinalityRequired"
	KindParseError           Kind = "ParseError"
	KindSchemaMismatch       Kind = "SchemaMismatch"
)

// PlanError is a single planning-stage failure: a Kind plus a
// human-readable message naming the offending field/flow/table, per
// spec.md §4.10 ("a human-readable message referring to the offending
// field/flow/table").
type PlanError struct {
	Kind    Kind
	Flow    string
	Table   string
	Field   string
	Message string
}

func (e *PlanError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return string(e.Kind)
}

// New builds a PlanError of the given kind with a formatted message.
func New(kind Kind, format string, args ...interface{}) *PlanError {
	return &PlanError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WithFlow attaches the offending flow name and returns the error for
// chaining.
func (e *PlanError) WithFlow(flow string) *PlanError {
	e.Flow = flow
	return e
}

// WithTable attaches the offending table name and returns the error for
// chaining.
func (e *PlanError) WithTable(table string) *PlanError {
	e.Table = table
	return e
}

// WithField attaches the offending field name and returns the error for
// chaining.
func (e *PlanError) WithField(field string) *PlanError {
	e.Field = field
	return e
}

// ValidationError is one finding from a registry validation pass
// (spec.md §4.3). Unlike PlanError (request-time, short-circuits on the
// first offender), ValidationErrors are collected and returned together in
// strict mode.
type ValidationError struct {
	Kind    Kind
	Flow    string
	Table   string
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewValidation builds a ValidationError of the given kind.
func NewValidation(kind Kind, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WithFlow attaches the offending flow name and returns the error for
// chaining.
func (e *ValidationError) WithFlow(flow string) *ValidationError {
	e.Flow = flow
	return e
}

// WithTable attaches the offending table name and returns the error for
// chaining.
func (e *ValidationError) WithTable(table string) *ValidationError {
	e.Table = table
	return e
}

// WithField attaches the offending field name and returns the error for
// chaining.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// ValidationErrors aggregates every ValidationError found during one
// validation pass. It implements error so it can be returned directly in
// strict mode.
type ValidationErrors []*ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "no validation errors"
	}
	if len(v) == 1 {
		return v[0].Error()
	}
	return fmt.Sprintf("%d validation errors (first: %s)", len(v), v[0].Error())
}
