// Package apiserver exposes the compiler as an HTTP service: a single
// POST /v1/compile endpoint that takes a semmodel.QueryRequest and returns
// rendered SQL, gated by bearer-token auth the way the teacher's
// cmd/server wires chi + go-chi/cors + its own JWT middleware
// (SPEC_FULL.md §B lists the chi, cors, JWT and rate-limit dependencies
// wired here).
package apiserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/semaflow/semaflow/internal/config"
	"github.com/semaflow/semaflow/internal/middleware"
	"github.com/semaflow/semaflow/internal/registry"
	"github.com/semaflow/semaflow/internal/sqlast"
	"github.com/semaflow/semaflow/internal/sqlast/dialect"
)

// DialectByName resolves one of SemaFlow's reference dialects by name
// (spec.md §4.8's three reference dialects).
func DialectByName(name string) (sqlast.Dialect, error) {
	switch name {
	case "duckdb", "":
		return dialect.DuckDB{}, nil
	case "mysql":
		return dialect.MySQL{}, nil
	case "odbc":
		return dialect.ODBC{}, nil
	default:
		return nil, fmt.Errorf("unknown dialect %q", name)
	}
}

// NewRouter builds the full chi router: request ID, structured logging,
// panic recovery, CORS, rate limiting, then the authenticated /v1/compile
// route. Bearer-token auth is skipped only when cfg carries neither an
// HS256 secret nor OIDC config, the same development-mode escape hatch the
// teacher's cmd/server uses for /v1 in non-production.
func NewRouter(ctx context.Context, cfg *config.Config, holder *registry.Holder, logger *slog.Logger) (http.Handler, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dialectImpl, err := DialectByName(cfg.Dialect)
	if err != nil {
		return nil, err
	}

	h := NewHandler(holder, dialectImpl, &cfg.DefaultRowLimit, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(middleware.RateLimiter(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		Burst:             cfg.RateLimitBurst,
	}))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/healthz", h.Healthz)

	var jwtValidator middleware.JWTValidator
	switch {
	case cfg.Auth.OIDCEnabled() && cfg.Auth.JWKSURL != "":
		jwtValidator, err = middleware.NewOIDCValidatorFromJWKS(ctx, cfg.Auth.JWKSURL, cfg.Auth.IssuerURL, cfg.Auth.Audience, cfg.Auth.AllowedIssuers)
	case cfg.Auth.OIDCEnabled():
		jwtValidator, err = middleware.NewOIDCValidator(ctx, cfg.Auth.IssuerURL, cfg.Auth.Audience, cfg.Auth.AllowedIssuers)
	case cfg.Auth.JWTSecret != "":
		jwtValidator, err = middleware.NewHS256Validator(cfg.Auth.JWTSecret)
	}
	if err != nil {
		return nil, fmt.Errorf("build jwt validator: %w", err)
	}

	if jwtValidator != nil {
		r.Route("/v1", func(r chi.Router) {
			r.Use(bearerAuth(jwtValidator, logger))
			r.Post("/compile", h.Compile)
		})
	} else if cfg.IsProduction() {
		return nil, fmt.Errorf("no auth configured and ENV=production; refusing to start unauthenticated")
	} else {
		logger.Warn("development mode: /v1/compile auth disabled")
		r.Route("/v1", func(r chi.Router) {
			r.Post("/compile", h.Compile)
		})
	}

	return r, nil
}

// bearerAuth validates the Authorization: Bearer <token> header against
// validator and rejects the request with 401 on failure. SemaFlow has no
// principal/API-key model to provision against (unlike the teacher's
// middleware.Authenticator) — a valid token is sufficient to call compile.
func bearerAuth(validator middleware.JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			claims, err := validator.Validate(r.Context(), token)
			if err != nil {
				logger.Warn("token validation failed", "error", err)
				writeError(w, http.StatusUnauthorized, "invalid bearer token")
				return
			}
			ctx := context.WithValue(r.Context(), principalContextKey{}, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type principalContextKey struct{}

// PrincipalFromContext returns the JWT subject claim of the authenticated
// caller, or "" if the request reached its handler without auth (only
// possible in development mode).
func PrincipalFromContext(ctx context.Context) string {
	sub, _ := ctx.Value(principalContextKey{}).(string)
	return sub
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return h[len(prefix):]
	}
	return ""
}
