package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"kbchat/internal/api/handlers"
	"kbchat/internal/dto"
	"kbchat/internal/service"
	"kbchat/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubServices struct{}

func (stubServices) Chat(ctx context.Context, req *dto.ChatRequest) (*dto.ChatResponse, error) {
	return &dto.ChatResponse{Response: "echo: " + req.Message, Sources: []dto.SourceEntry{}}, nil
}

func (stubServices) ImportFile(ctx context.Context, r io.Reader, fileName string) (*service.IngestResult, error) {
	return &service.IngestResult{}, nil
}

func (stubServices) List(ctx context.Context, page, limit int) (*dto.KnowledgeListResponse, error) {
	return &dto.KnowledgeListResponse{Page: page, Limit: limit, Entries: []dto.KnowledgeEntryBrief{}}, nil
}

func (stubServices) Ping(ctx context.Context) error { return nil }

func testConfig(staticDir string) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{StaticDir: staticDir},
		Ingest: config.IngestConfig{MaxUploadBytes: 1024},
	}
}

func stubHandlers() Handlers {
	logger := zap.NewNop()
	stub := stubServices{}
	return Handlers{
		Chat:      handlers.NewChatHandler(stub, logger),
		Knowledge: handlers.NewKnowledgeHandler(stub, stub, logger),
		Health:    handlers.NewHealthHandler(stub, logger),
	}
}

func TestSetupRouter_Routes(t *testing.T) {
	cfg := testConfig(filepath.Join(t.TempDir(), "missing"))
	app := SetupRouter(stubHandlers(), cfg, zap.NewNop())

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{name: "health", method: http.MethodGet, path: "/health", wantStatus: http.StatusOK},
		{name: "chat", method: http.MethodPost, path: "/api/chat", body: `{"message":"hi"}`, wantStatus: http.StatusOK},
		{name: "knowledge list", method: http.MethodGet, path: "/api/admin/knowledge", wantStatus: http.StatusOK},
		{name: "unknown route", method: http.MethodGet, path: "/api/nope", wantStatus: http.StatusNotFound},
		{name: "body too large", method: http.MethodPost, path: "/api/chat", body: `{"message":"` + strings.Repeat("x", 2048) + `"}`, wantStatus: http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body io.Reader
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			}
			req := httptest.NewRequest(tt.method, tt.path, body)
			req.Header.Set("Content-Type", "application/json")

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			// oversized bodies are rejected before any middleware runs
			if tt.wantStatus != http.StatusRequestEntityTooLarge {
				assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
			}
		})
	}
}

func TestSetupRouter_ServesStaticIndex(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>chat</h1>"), 0o644))

	cfg := testConfig(dir)
	app := SetupRouter(stubHandlers(), cfg, zap.NewNop())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<h1>chat</h1>")
}
