package apiserver

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/semaflow/semaflow/internal/planner"
	"github.com/semaflow/semaflow/internal/registry"
	"github.com/semaflow/semaflow/internal/sqlast"
)

// Handler serves the compile-only HTTP surface: it never executes the SQL
// it produces (spec.md §1, Non-goals — "executing the generated SQL").
type Handler struct {
	holder          *registry.Holder
	dialect         sqlast.Dialect
	defaultRowLimit *int
	logger          *slog.Logger
}

// NewHandler builds a Handler. holder supplies the live registry snapshot
// for each request; dialect is the SQL dialect every compile targets.
func NewHandler(holder *registry.Holder, dialect sqlast.Dialect, defaultRowLimit *int, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{holder: holder, dialect: dialect, defaultRowLimit: defaultRowLimit, logger: logger}
}

type compileResponse struct {
	SQL       string            `json:"sql"`
	ColumnMap map[string]string `json:"column_map"`
}

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Code: status, Message: message})
}

// Compile handles POST /v1/compile: decode a QueryRequest, run it through
// the planner against the current registry snapshot, and return the
// rendered SQL plus its result column mapping.
func (h *Handler) Compile(w http.ResponseWriter, r *http.Request) {
	var req compileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	qr, err := req.toQueryRequest()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reg := h.holder.Load()
	if reg == nil {
		writeError(w, http.StatusServiceUnavailable, "semantic model not loaded")
		return
	}

	result, err := planner.Compile(reg, qr, planner.Options{
		Dialect:         h.dialect,
		DefaultRowLimit: h.defaultRowLimit,
	})
	if err != nil {
		h.logger.Warn("compile failed", "flow", req.Flow, "error", err)
		writeError(w, httpStatusFromPlanError(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, compileResponse{SQL: result.SQL, ColumnMap: result.ColumnMap})
}

// Healthz handles GET /healthz: a liveness probe that needs no auth and no
// registry access.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
