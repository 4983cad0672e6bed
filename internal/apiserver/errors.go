package apiserver

import (
	"errors"
	"net/http"

	"github.com/semaflow/semaflow/internal/planerr"
)

// httpStatusFromPlanError maps a planerr.Kind to the HTTP status a client
// should see, the way the teacher's api.httpStatusFromDomainError maps its
// own error taxonomy.
func httpStatusFromPlanError(err error) int {
	var planErr *planerr.PlanError
	if errors.As(err, &planErr) {
		switch planErr.Kind {
		case planerr.KindUnknownFlow, planerr.KindUnknownField, planerr.KindUnknownJoinAlias:
			return http.StatusNotFound
		case planerr.KindAmbiguousField, planerr.KindInvalidFilterTarget, planerr.KindInvalidOperator,
			planerr.KindJoinKeyUnknownColumn, planerr.KindMixedDataSources, planerr.KindDerivedOfDerived,
			planerr.KindCardinalityRequired, planerr.KindParseError, planerr.KindSchemaMismatch:
			return http.StatusBadRequest
		}
	}

	var valErrs planerr.ValidationErrors
	if errors.As(err, &valErrs) {
		return http.StatusBadRequest
	}

	return http.StatusInternalServerError
}
