package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"kbchat/internal/api"
	"kbchat/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sqliteConfig() *config.Config {
	return &config.Config{
		Database: config.DatabaseConfig{Driver: config.DriverSQLite, SQLitePath: ":memory:"},
		LLM:      config.LLMConfig{Provider: config.ProviderOpenAI, BaseURL: "http://127.0.0.1:0", Model: "test"},
		Embedding: config.EmbeddingConfig{
			BaseURL:  "http://127.0.0.1:0",
			Model:    "test",
			CacheTTL: time.Minute,
		},
		RAG:    config.RAGConfig{SimilarityThreshold: 0.3, TopK: 5},
		Ingest: config.IngestConfig{Concurrency: 2, MaxUploadBytes: 1 << 20},
	}
}

func TestNewDependencies_SQLite(t *testing.T) {
	deps, err := NewDependencies(context.Background(), sqliteConfig(), zap.NewNop())
	require.NoError(t, err)
	defer deps.Close()

	assert.NotNil(t, deps.Chat)
	assert.NotNil(t, deps.Ingest)
	assert.NotNil(t, deps.KnowledgeSvc)

	app := api.SetupRouter(deps.Handlers(), deps.Config, zap.NewNop())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/admin/knowledge", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestNewIngestDependencies_SkipsCompleter(t *testing.T) {
	cfg := sqliteConfig()
	cfg.LLM.Provider = "unknown"

	deps, err := NewIngestDependencies(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer deps.Close()

	assert.Nil(t, deps.Completer)
	assert.NotNil(t, deps.Ingest)
}

func TestNewDependencies_UnsupportedDriver(t *testing.T) {
	cfg := sqliteConfig()
	cfg.Database.Driver = "mysql"

	_, err := NewDependencies(context.Background(), cfg, zap.NewNop())
	assert.ErrorContains(t, err, "unsupported database driver")
}
