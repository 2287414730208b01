package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/catalogpilot/catalogpilot/internal/common/config"
	"github.com/catalogpilot/catalogpilot/internal/common/errorx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeConfig(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()
	content := `
server:
  mode: test
  allowed_origins: ["https://app.example.com"]
database:
  type: sqlite
  dbname: ` + filepath.Join(dir, "api.db") + `
logger:
  level: error
jwt:
  secret_key: this-is-a-very-long-secret-key-for-testing-purposes-only
` + extra
	path := filepath.Join(dir, "apiserver.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestInitLogger(t *testing.T) {
	lg := initLogger(&config.APIServerConfig{})
	require.NotNil(t, lg)
	_ = lg.Sync()
}

func TestInitDatabase_SQLite(t *testing.T) {
	db, err := initDatabase(zap.NewNop(), &config.DatabaseConfig{Type: "sqlite", DBName: filepath.Join(t.TempDir(), "apiserver.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	assert.NoError(t, db.Ping(context.Background()))
}

func TestInitDatabase_Unsupported(t *testing.T) {
	_, err := initDatabase(zap.NewNop(), &config.DatabaseConfig{Type: "oracle"})
	assert.Error(t, err)
}

func TestInitI18n(t *testing.T) {
	tr, err := initI18n(&config.I18nConfig{DefaultLang: "en"})
	require.NoError(t, err)
	msg, ok := tr.Translate("error_unauthorized", "es", nil)
	assert.True(t, ok)
	assert.Equal(t, "Se requiere autenticación", msg)
}

func TestNewApp_ConfigErrors(t *testing.T) {
	_, err := NewApp(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "weak.yaml")
	require.NoError(t, os.WriteFile(path, []byte("jwt:\n  secret_key: short\n"), 0o600))
	_, err = NewApp(context.Background(), path)
	assert.ErrorIs(t, err, config.ErrWeakJWTSecret)
}

func TestAppRouter(t *testing.T) {
	app, err := NewApp(context.Background(), writeConfig(t, "metrics:\n  enabled: true\n"))
	require.NoError(t, err)
	t.Cleanup(app.Close)
	r := app.Router()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/products", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// unknown routes get the JSON error envelope
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), errorx.ErrNotFound.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "catalogpilot_http_requests_total"))
}

func TestAppExecutorRunOnce(t *testing.T) {
	app, err := NewApp(context.Background(), writeConfig(t, ""))
	require.NoError(t, err)
	t.Cleanup(app.Close)

	sum, err := app.executor.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sum.Due)
}
