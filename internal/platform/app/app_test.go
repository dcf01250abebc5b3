package app

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/multiman/internal/platform/service"
)

const secret = "0123456789abcdef0123456789abcdef"

// isolateEnv points ENV_FILE at a path that does not exist so a developer's
// .env cannot leak into the test.
func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	for _, key := range []string{
		"ENV", "PORT", "JWT_SECRET", "JWT_ISSUER", "ACCESS_TOKEN_TTL", "ADMIN_SIGNUP",
		"DATABASE_FILE", "PEPPER_FILE", "AMQP_URL", "REDIS_ADDR", "REDIS_DB",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	isolateEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "dev", cfg.Env)
	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, "multiman", cfg.Issuer)
	require.Equal(t, 12*time.Hour, cfg.AccessTokenTTL)
	require.Equal(t, service.SignupOpen, cfg.SignupPolicy)
	require.Equal(t, "multiman.activity", cfg.AMQPExchange)
	require.Equal(t, 10*time.Second, cfg.ShutdownGracePeriod)
	require.Empty(t, cfg.RedisAddr)
}

func TestLoadConfig_Overrides(t *testing.T) {
	isolateEnv(t)
	t.Setenv("ENV", "prod")
	t.Setenv("JWT_SECRET", secret)
	t.Setenv("PORT", "9090")
	t.Setenv("ACCESS_TOKEN_TTL", "90")
	t.Setenv("ADMIN_SIGNUP", "Bootstrap")
	t.Setenv("REDIS_DB", "3")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Port)
	require.Equal(t, 90*time.Second, cfg.AccessTokenTTL)
	require.Equal(t, service.SignupBootstrap, cfg.SignupPolicy)
	require.Equal(t, 3, cfg.RedisDB)
}

func TestLoadConfig_Rejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing secret outside dev", map[string]string{"ENV": "prod"}, "JWT_SECRET is required"},
		{"short secret", map[string]string{"JWT_SECRET": "short"}, "at least 32 bytes"},
		{"unknown signup policy", map[string]string{"ADMIN_SIGNUP": "sometimes"}, "ADMIN_SIGNUP"},
		{"bad port", map[string]string{"PORT": "70000"}, "PORT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			require.ErrorContains(t, err, tt.want)
		})
	}
}

func TestLoadConfig_ReadsDotEnv(t *testing.T) {
	isolateEnv(t)
	// godotenv does not override variables that are already set, even
	// when empty, so clear them from the process environment.
	for _, key := range []string{"PORT", "JWT_ISSUER"} {
		require.NoError(t, os.Unsetenv(key))
	}

	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("PORT=7070\nJWT_ISSUER=from-file\n"), 0o600))
	t.Setenv("ENV_FILE", path)
	t.Cleanup(func() {
		_ = os.Unsetenv("PORT")
		_ = os.Unsetenv("JWT_ISSUER")
	})

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, 7070, cfg.Port)
	require.Equal(t, "from-file", cfg.Issuer)
}

func TestApplication_ServesHealth(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		Env:                 "dev",
		LogLevel:            "error",
		LogFormat:           "text",
		Port:                8080,
		DatabaseFile:        filepath.Join(dir, "app.db"),
		PepperFile:          filepath.Join(dir, "pepper"),
		Issuer:              "multiman-test",
		AccessTokenTTL:      time.Hour,
		SignupPolicy:        service.SignupOpen,
		ShutdownGracePeriod: time.Second,
	}

	app, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Shutdown() })

	_, err = os.Stat(cfg.PepperFile)
	require.NoError(t, err, "pepper is created on first start")

	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"ok":true}`, rec.Body.String())

	rec = httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, rec.Body.String(), "redis")

	// A dev instance without JWT_SECRET still issues usable tokens.
	body := `{"email":"ann@example.com","name":"Ann","password":"password123","role":"admin"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body))
	rec = httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Contains(t, rec.Body.String(), "access_token")
}
