// Package config loads process configuration from environment variables,
// following the teacher's internal/config.Config pattern: unset optional
// settings fall back to typed defaults, required-in-production fields fail closed when
// ENV=production, and non-fatal notices are collected into Warnings for
// the caller to log once a logger exists (SPEC_FULL.md §A.3).
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/semaflow/semaflow/internal/validate"
)

// AuthConfig holds bearer-token authentication configuration for the HTTP
// surface (SPEC_FULL.md §B: "bearer-token verification (HS256 dev secret
// or OIDC JWKS) gating the HTTP surface").
type AuthConfig struct {
	IssuerURL      string        // OIDC issuer URL
	JWKSURL        string        // override JWKS URL (skips OIDC discovery)
	JWTSecret      string        // HS256 shared secret for local/dev auth
	Audience       string        // required JWT audience claim
	AllowedIssuers []string      // accepted issuers (defaults to [IssuerURL])
	JWKSCacheTTL   time.Duration // JWKS cache duration (default: 1h)
}

// OIDCEnabled returns true when an external identity provider is configured.
func (a *AuthConfig) OIDCEnabled() bool {
	return a.IssuerURL != "" || a.JWKSURL != ""
}

// Config holds every environment-derived setting SemaFlow's ambient layer
// needs: where the semantic model lives on disk, how the renderer picks
// row limits, validation strictness, the HTTP listen address and its
// guardrails, and auth.
type Config struct {
	ModelDir        string // directory containing tables/ and flows/ (spec.md §6)
	Dialect         string // "duckdb" (default), "mysql", or "odbc" (spec.md §4.8)
	ListenAddr      string // HTTP listen address (default ":8080")
	Env             string // "development" (default) or "production"
	LogLevel        string // debug, info, warn, error (default "info")
	DefaultRowLimit int    // applied by the renderer when a request omits limit (spec.md §4.9)
	ValidationMode  validate.Mode

	SchemaRefreshInterval time.Duration // registryrefresh reload cadence (default 5m)

	RateLimitRPS   float64
	RateLimitBurst int

	CORSAllowedOrigins []string

	Auth AuthConfig

	// Warnings collects non-fatal configuration notices, logged by the
	// caller after the logger is constructed (the teacher's own
	// internal/config.Config.Warnings convention).
	Warnings []string
}

// SlogLevel maps LogLevel to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsProduction reports whether ENV=production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// LoadFromEnv loads configuration from environment variables, applying
// typed defaults and the same production-mode-strictness split the
// teacher's config package uses: insecure defaults that are acceptable in
// development become fatal errors once ENV=production.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		ModelDir:   os.Getenv("SEMAFLOW_MODEL_DIR"),
		Dialect:    os.Getenv("SEMAFLOW_DIALECT"),
		ListenAddr: os.Getenv("LISTEN_ADDR"),
		Env:        os.Getenv("ENV"),
		LogLevel:   os.Getenv("LOG_LEVEL"),
	}

	if v := os.Getenv("DEFAULT_ROW_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("DEFAULT_ROW_LIMIT: %w", err)
		}
		cfg.DefaultRowLimit = n
	}

	cfg.ValidationMode = validate.Mode(os.Getenv("VALIDATION_MODE"))
	switch cfg.ValidationMode {
	case "":
		cfg.ValidationMode = validate.ModeStrict
	case validate.ModeStrict, validate.ModeWarn:
	default:
		return nil, fmt.Errorf("VALIDATION_MODE must be %q or %q, got %q", validate.ModeStrict, validate.ModeWarn, cfg.ValidationMode)
	}

	if v := os.Getenv("SCHEMA_REFRESH_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("SCHEMA_REFRESH_INTERVAL: %w", err)
		}
		cfg.SchemaRefreshInterval = d
	}

	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateLimitRPS = f
		}
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimitBurst = n
		}
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		cfg.CORSAllowedOrigins = origins
	}

	cfg.Auth = AuthConfig{
		IssuerURL: os.Getenv("AUTH_ISSUER_URL"),
		JWKSURL:   os.Getenv("AUTH_JWKS_URL"),
		JWTSecret: os.Getenv("JWT_SECRET"),
		Audience:  os.Getenv("AUTH_AUDIENCE"),
	}
	if v := os.Getenv("AUTH_ALLOWED_ISSUERS"); v != "" {
		cfg.Auth.AllowedIssuers = strings.Split(v, ",")
	}
	if v := os.Getenv("AUTH_JWKS_CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("AUTH_JWKS_CACHE_TTL: %w", err)
		}
		cfg.Auth.JWKSCacheTTL = d
	}
	if cfg.Auth.JWKSCacheTTL == 0 {
		cfg.Auth.JWKSCacheTTL = time.Hour
	}

	// Defaults
	if cfg.ModelDir == "" {
		cfg.ModelDir = "model"
	}
	if cfg.Dialect == "" {
		cfg.Dialect = "duckdb"
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.DefaultRowLimit == 0 {
		cfg.DefaultRowLimit = 1000
	}
	if cfg.SchemaRefreshInterval == 0 {
		cfg.SchemaRefreshInterval = 5 * time.Minute
	}
	if cfg.RateLimitRPS == 0 {
		cfg.RateLimitRPS = 50
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 100
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}

	if cfg.Auth.JWTSecret == "" && !cfg.Auth.OIDCEnabled() {
		cfg.Warnings = append(cfg.Warnings, "no auth configured — set JWT_SECRET or AUTH_ISSUER_URL/AUTH_JWKS_URL; the compile endpoint is served without authentication")
	}

	// Production mode: insecure defaults become fatal.
	if cfg.IsProduction() {
		if cfg.Auth.JWTSecret != "" && !cfg.Auth.OIDCEnabled() {
			return nil, fmt.Errorf("JWT_SECRET-only auth is not allowed in production (ENV=production); configure AUTH_ISSUER_URL or AUTH_JWKS_URL")
		}
		if !cfg.Auth.OIDCEnabled() && cfg.Auth.JWTSecret == "" {
			return nil, fmt.Errorf("auth must be configured in production (ENV=production)")
		}
		if len(cfg.CORSAllowedOrigins) == 1 && cfg.CORSAllowedOrigins[0] == "*" {
			return nil, fmt.Errorf("CORS wildcard (*) is not allowed in production (ENV=production)")
		}
		if cfg.ValidationMode != validate.ModeStrict {
			return nil, fmt.Errorf("VALIDATION_MODE must be %q in production (ENV=production)", validate.ModeStrict)
		}
	}

	return cfg, nil
}

// LoadDotEnv reads a .env file and sets any variables not already in the
// environment. Lines must be in KEY=VALUE format; comments (#) and blank
// lines are skipped. A missing file is not an error.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = stripQuotes(strings.TrimSpace(value))
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// stripQuotes removes surrounding double or single quotes from a value.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
