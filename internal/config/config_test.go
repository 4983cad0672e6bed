package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semaflow/semaflow/internal/validate"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"SEMAFLOW_MODEL_DIR", "LISTEN_ADDR", "ENV", "LOG_LEVEL",
		"DEFAULT_ROW_LIMIT", "VALIDATION_MODE", "SCHEMA_REFRESH_INTERVAL",
		"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "CORS_ALLOWED_ORIGINS",
		"AUTH_ISSUER_URL", "AUTH_JWKS_URL", "JWT_SECRET", "AUTH_AUDIENCE",
		"AUTH_ALLOWED_ISSUERS", "AUTH_JWKS_CACHE_TTL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "model", cfg.ModelDir)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 1000, cfg.DefaultRowLimit)
	assert.Equal(t, validate.ModeStrict, cfg.ValidationMode)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.False(t, cfg.IsProduction())
	assert.NotEmpty(t, cfg.Warnings, "no auth configured should produce a warning")
}

func TestLoadFromEnv_AllVarsSet(t *testing.T) {
	clearEnv(t)
	t.Setenv("SEMAFLOW_MODEL_DIR", "/etc/semaflow/model")
	t.Setenv("LISTEN_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DEFAULT_ROW_LIMIT", "500")
	t.Setenv("VALIDATION_MODE", "warn")
	t.Setenv("RATE_LIMIT_RPS", "10")
	t.Setenv("RATE_LIMIT_BURST", "20")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("JWT_SECRET", "super-secret")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "/etc/semaflow/model", cfg.ModelDir)
	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.Equal(t, 500, cfg.DefaultRowLimit)
	assert.Equal(t, validate.ModeWarn, cfg.ValidationMode)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, "super-secret", cfg.Auth.JWTSecret)
	assert.Empty(t, cfg.Warnings)
}

func TestLoadFromEnv_InvalidValidationMode(t *testing.T) {
	clearEnv(t)
	t.Setenv("VALIDATION_MODE", "lenient")

	_, err := LoadFromEnv()
	require.Error(t, err)
}

func TestLoadFromEnv_InvalidDefaultRowLimit(t *testing.T) {
	clearEnv(t)
	t.Setenv("DEFAULT_ROW_LIMIT", "not-a-number")

	_, err := LoadFromEnv()
	require.Error(t, err)
}

func TestLoadFromEnv_ProductionRequiresAuth(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENV", "production")

	_, err := LoadFromEnv()
	require.Error(t, err)
}

func TestLoadFromEnv_ProductionRejectsSecretOnlyAuth(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENV", "production")
	t.Setenv("JWT_SECRET", "super-secret")

	_, err := LoadFromEnv()
	require.Error(t, err, "HS256-only auth should not be accepted in production")
}

func TestLoadFromEnv_ProductionRejectsWildcardCORS(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENV", "production")
	t.Setenv("AUTH_ISSUER_URL", "https://issuer.example.com")

	_, err := LoadFromEnv()
	require.Error(t, err)
}

func TestLoadFromEnv_ProductionAcceptsOIDCAndExplicitCORS(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENV", "production")
	t.Setenv("AUTH_ISSUER_URL", "https://issuer.example.com")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.True(t, cfg.Auth.OIDCEnabled())
}

func TestLoadFromEnv_ProductionRejectsWarnValidationMode(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENV", "production")
	t.Setenv("AUTH_ISSUER_URL", "https://issuer.example.com")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com")
	t.Setenv("VALIDATION_MODE", "warn")

	_, err := LoadFromEnv()
	require.Error(t, err)
}

func TestAuthConfig_OIDCEnabled(t *testing.T) {
	a := AuthConfig{}
	assert.False(t, a.OIDCEnabled())

	a.IssuerURL = "https://issuer.example.com"
	assert.True(t, a.OIDCEnabled())

	a = AuthConfig{JWKSURL: "https://issuer.example.com/jwks.json"}
	assert.True(t, a.OIDCEnabled())
}

func TestLoadDotEnv_FileNotFound(t *testing.T) {
	err := LoadDotEnv("/nonexistent/.env")
	assert.NoError(t, err)
}

func TestLoadDotEnv_ParsesKeyValue(t *testing.T) {
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("TEST_KEY=test_value\n"), 0o644))

	t.Setenv("TEST_KEY", "")
	require.NoError(t, os.Unsetenv("TEST_KEY"))
	require.NoError(t, LoadDotEnv(envFile))
	assert.Equal(t, "test_value", os.Getenv("TEST_KEY"))
}

func TestLoadDotEnv_SkipsComments(t *testing.T) {
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("# comment\nTEST_COMMENT_KEY=value\n"), 0o644))

	require.NoError(t, os.Unsetenv("TEST_COMMENT_KEY"))
	require.NoError(t, LoadDotEnv(envFile))
	assert.Equal(t, "value", os.Getenv("TEST_COMMENT_KEY"))
}

func TestLoadDotEnv_StripsQuotes(t *testing.T) {
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(`QUOTED_KEY="quoted value"`+"\n"), 0o644))

	require.NoError(t, os.Unsetenv("QUOTED_KEY"))
	require.NoError(t, LoadDotEnv(envFile))
	assert.Equal(t, "quoted value", os.Getenv("QUOTED_KEY"))
}

func TestLoadDotEnv_EnvVarPrecedence(t *testing.T) {
	t.Setenv("TEST_PRECEDENCE_KEY", "from_env")

	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("TEST_PRECEDENCE_KEY=from_file\n"), 0o644))

	require.NoError(t, LoadDotEnv(envFile))
	assert.Equal(t, "from_env", os.Getenv("TEST_PRECEDENCE_KEY"))
}
