// Package app wires configuration into stores, collaborators and services.
package app

import (
	"context"
	"fmt"

	"kbchat/internal/api"
	"kbchat/internal/api/handlers"
	"kbchat/internal/parser"
	"kbchat/internal/repository"
	"kbchat/internal/service"
	"kbchat/pkg/config"
	"kbchat/pkg/postgres"
	"kbchat/pkg/sqlite"

	"go.uber.org/zap"
)

// KnowledgeStore is the store contract plus the health probe.
type KnowledgeStore interface {
	service.KnowledgeStore
	handlers.Pinger
}

// Dependencies holds everything the server and the ingest command share.
type Dependencies struct {
	Config *config.Config
	Logger *zap.Logger

	Knowledge KnowledgeStore
	ChatLogs  service.ChatLogStore

	Embedder  service.Embedder
	Completer service.Completer

	Ingest       *service.IngestService
	KnowledgeSvc *service.KnowledgeService
	RAG          *service.RAGService
	Chat         *service.ChatService

	closers []func()
}

// NewDependencies wires the full server: store, embedder, completer and
// all services.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps, err := NewIngestDependencies(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	if err := deps.initCompleter(ctx); err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to initialize completion model: %w", err)
	}

	deps.RAG = service.NewRAGService(deps.Knowledge, deps.Embedder, deps.Completer, &cfg.RAG, logger)
	deps.Chat = service.NewChatService(deps.RAG, deps.ChatLogs, logger)

	logger.Info("All dependencies initialized",
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("llm_provider", cfg.LLM.Provider),
	)
	return deps, nil
}

// NewIngestDependencies wires only what ingestion needs; no completion
// model is contacted.
func NewIngestDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initStore(ctx); err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	deps.Embedder = service.NewCachedEmbedder(
		service.NewLazyEmbedder(service.NewOpenAIEmbedderFactory(&cfg.Embedding, logger), logger),
		cfg.Embedding.CacheTTL,
	)

	deps.Ingest = service.NewIngestService(deps.Knowledge, deps.Embedder, parser.New(logger), cfg.Ingest.Concurrency, logger)
	deps.KnowledgeSvc = service.NewKnowledgeService(deps.Knowledge, logger)
	return deps, nil
}

// Handlers builds the HTTP handlers for the router.
func (d *Dependencies) Handlers() api.Handlers {
	return api.Handlers{
		Chat:      handlers.NewChatHandler(d.Chat, d.Logger),
		Knowledge: handlers.NewKnowledgeHandler(d.Ingest, d.KnowledgeSvc, d.Logger),
		Health:    handlers.NewHealthHandler(d.Knowledge, d.Logger),
	}
}

// Close releases resources in reverse order of creation.
func (d *Dependencies) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
	d.closers = nil
}

func (d *Dependencies) initStore(ctx context.Context) error {
	switch d.Config.Database.Driver {
	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, d.Config.Database.SQLitePath, d.Logger)
		if err != nil {
			return err
		}
		d.closers = append(d.closers, func() { db.Close() })
		d.Knowledge = repository.NewSQLiteKnowledgeRepository(db, d.Logger)
		d.ChatLogs = repository.NewSQLiteChatLogRepository(db, d.Logger)

	case config.DriverPostgres:
		pool, err := postgres.NewPool(ctx, &d.Config.Database, d.Logger)
		if err != nil {
			return err
		}
		d.closers = append(d.closers, pool.Close)
		if err := postgres.Migrate(ctx, pool, d.Logger); err != nil {
			return err
		}
		d.Knowledge = repository.NewKnowledgeRepository(pool, d.Logger)
		d.ChatLogs = repository.NewChatLogRepository(pool, d.Logger)

	default:
		return fmt.Errorf("unsupported database driver %q", d.Config.Database.Driver)
	}
	return nil
}

func (d *Dependencies) initCompleter(ctx context.Context) error {
	switch d.Config.LLM.Provider {
	case config.ProviderGigaChat:
		completer, err := service.NewGigaChatCompleter(ctx, &d.Config.GigaChat, d.Logger)
		if err != nil {
			return err
		}
		d.closers = append(d.closers, func() { completer.Close() })
		d.Completer = completer

	case config.ProviderOpenAI:
		d.Completer = service.NewOpenAICompleter(&d.Config.LLM, d.Logger)

	default:
		return fmt.Errorf("unsupported LLM provider %q", d.Config.LLM.Provider)
	}
	return nil
}
