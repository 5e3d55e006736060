package admin

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cloo-solutions/guardian/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig() *config.Config {
	return &config.Config{
		Port:                "8080",
		Environment:         "development",
		VectorBackend:       config.BackendMemory,
		EmbeddingDimensions: 768,
		EmbeddingBatchSize:  64,
		CORSOrigins:         []string{"*"},
		MaxUploadBytes:      1 << 20,
	}
}

func TestNewApp_MemoryBackend(t *testing.T) {
	app, err := NewApp(context.Background(), memoryConfig(), appOptions{})
	require.NoError(t, err)
	defer app.Close()

	assert.NotNil(t, app.Index)
	assert.NotNil(t, app.Ingest)
	assert.NotNil(t, app.Advisory)
	assert.NotNil(t, app.Query)
	assert.NotNil(t, app.Research)
	assert.Nil(t, app.Archive)

	count, err := app.Index.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestNewApp_UnknownBackend(t *testing.T) {
	cfg := memoryConfig()
	cfg.VectorBackend = "faiss"

	_, err := NewApp(context.Background(), cfg, appOptions{})
	assert.ErrorContains(t, err, `unknown vector backend "faiss"`)
}

func TestNewApp_MissingPromptsFile(t *testing.T) {
	cfg := memoryConfig()
	cfg.PromptsFile = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := NewApp(context.Background(), cfg, appOptions{})
	assert.ErrorContains(t, err, "failed to load prompts")
}

func TestNewRouter_OptionalIntegrations(t *testing.T) {
	app, err := NewApp(context.Background(), memoryConfig(), appOptions{})
	require.NoError(t, err)
	defer app.Close()

	router := newRouter(app)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/documents/policy/download", nil))
	assert.Equal(t, http.StatusNotImplemented, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/web/search", strings.NewReader(`{"query":"gdpr"}`)))
	assert.Equal(t, http.StatusNotImplemented, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/documents/policy", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNewRouter_TokenFromConfig(t *testing.T) {
	cfg := memoryConfig()
	cfg.APIToken = "secret"

	app, err := NewApp(context.Background(), cfg, appOptions{})
	require.NoError(t, err)
	defer app.Close()

	router := newRouter(app)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/documents/policy", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestIndexCmd_RejectsInvalidPDF(t *testing.T) {
	t.Setenv("GUARDIAN_VECTOR_BACKEND", "memory")

	path := filepath.Join(t.TempDir(), "notes.pdf")
	require.NoError(t, os.WriteFile(path, []byte("plain text, not a pdf"), 0o600))

	cmd := IndexCmd()
	cmd.SetArgs([]string{path})
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to index")
}

func TestMigrateCmd_RequiresPGVector(t *testing.T) {
	t.Setenv("GUARDIAN_VECTOR_BACKEND", "memory")

	cmd := MigrateCmd()
	cmd.SetArgs([]string{})
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))

	err := cmd.Execute()
	assert.ErrorContains(t, err, "pgvector backend only")
}

func TestInitTelemetry_NoDSN(t *testing.T) {
	shutdown := initTelemetry(memoryConfig())
	require.NotNil(t, shutdown)
	shutdown()
}
