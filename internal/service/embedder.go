package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"kbchat/internal/models"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// EmbeddingPurpose tells the embedding collaborator whether the text is a
// search query or a document being indexed. Providers may frame the two
// differently, so the purpose must be passed through unchanged.
type EmbeddingPurpose string

const (
	PurposeQuery    EmbeddingPurpose = "query"
	PurposeDocument EmbeddingPurpose = "document"
)

type Embedder interface {
	Embed(ctx context.Context, text string, purpose EmbeddingPurpose) ([]float32, error)
}

type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type KnowledgeStore interface {
	FetchAll(ctx context.Context) ([]*models.KnowledgeEntry, error)
	CreateBatch(ctx context.Context, entries []*models.KnowledgeEntry) error
	Count(ctx context.Context) (int64, error)
	List(ctx context.Context, limit, offset int) ([]*models.KnowledgeEntry, error)
}

type ChatLogStore interface {
	Create(ctx context.Context, log *models.ChatLog) error
}

// EmbedderFactory builds the embedding handle. It may do network I/O.
type EmbedderFactory func(ctx context.Context) (Embedder, error)

// LazyEmbedder creates its handle on first use. Concurrent first callers
// share one in-flight initialization; a failed initialization is retried by
// the next caller, a successful one is kept for the process lifetime.
type LazyEmbedder struct {
	factory EmbedderFactory
	logger  *zap.Logger

	group  singleflight.Group
	mu     sync.RWMutex
	handle Embedder
}

func NewLazyEmbedder(factory EmbedderFactory, logger *zap.Logger) *LazyEmbedder {
	return &LazyEmbedder{factory: factory, logger: logger}
}

func (l *LazyEmbedder) Embed(ctx context.Context, text string, purpose EmbeddingPurpose) ([]float32, error) {
	handle, err := l.get(ctx)
	if err != nil {
		return nil, err
	}
	return handle.Embed(ctx, text, purpose)
}

func (l *LazyEmbedder) get(ctx context.Context) (Embedder, error) {
	l.mu.RLock()
	handle := l.handle
	l.mu.RUnlock()
	if handle != nil {
		return handle, nil
	}

	v, err, _ := l.group.Do("init", func() (interface{}, error) {
		l.mu.RLock()
		existing := l.handle
		l.mu.RUnlock()
		if existing != nil {
			return existing, nil
		}

		l.logger.Info("Initializing embedding client")
		// detached so one caller's cancellation does not fail the others
		created, err := l.factory(context.WithoutCancel(ctx))
		if err != nil {
			l.logger.Error("Embedding client initialization failed", zap.Error(err))
			return nil, err
		}

		l.mu.Lock()
		l.handle = created
		l.mu.Unlock()
		return created, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	return v.(Embedder), nil
}

// CachedEmbedder keeps embeddings in memory for ttl, keyed by purpose and
// text. A non-positive ttl disables caching.
type CachedEmbedder struct {
	inner Embedder
	cache *cache.Cache
}

func NewCachedEmbedder(inner Embedder, ttl time.Duration) *CachedEmbedder {
	c := &CachedEmbedder{inner: inner}
	if ttl > 0 {
		c.cache = cache.New(ttl, 2*ttl)
	}
	return c
}

func (c *CachedEmbedder) Embed(ctx context.Context, text string, purpose EmbeddingPurpose) ([]float32, error) {
	if c.cache == nil {
		return c.inner.Embed(ctx, text, purpose)
	}
	key := cacheKey(purpose, text)

	if vec, found := c.cache.Get(key); found {
		return vec.([]float32), nil
	}

	vec, err := c.inner.Embed(ctx, text, purpose)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, vec, cache.DefaultExpiration)
	return vec, nil
}

func cacheKey(purpose EmbeddingPurpose, text string) string {
	h := sha256.Sum256([]byte(string(purpose) + ":" + text))
	return hex.EncodeToString(h[:16])
}
