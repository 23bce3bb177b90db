package service

import (
	"context"
	"fmt"
	"io"

	"kbchat/internal/models"
	"kbchat/internal/parser"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// IngestResult reports how many candidate entries made it into the store.
type IngestResult struct {
	Added  int
	Failed int
	Total  int
}

// IngestService embeds parsed entries and persists the ones that succeed.
type IngestService struct {
	store       KnowledgeStore
	embedder    Embedder
	parser      *parser.Parser
	concurrency int
	logger      *zap.Logger
}

func NewIngestService(
	store KnowledgeStore,
	embedder Embedder,
	p *parser.Parser,
	concurrency int,
	logger *zap.Logger,
) *IngestService {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &IngestService{
		store:       store,
		embedder:    embedder,
		parser:      p,
		concurrency: concurrency,
		logger:      logger,
	}
}

// ImportFile parses an uploaded spreadsheet and ingests its entries.
// A file without a single usable row yields ErrNoValidEntries.
func (s *IngestService) ImportFile(ctx context.Context, r io.Reader, fileName string) (*IngestResult, error) {
	entries, err := s.parser.Parse(r, fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", fileName, err)
	}
	if len(entries) == 0 {
		return nil, ErrNoValidEntries
	}

	return s.Ingest(ctx, entries)
}

// Ingest embeds every entry's answer as a document, in parallel up to the
// configured limit. Entries whose embedding fails are logged and left out;
// the rest are stored in one batch. Only a storage failure is returned.
func (s *IngestService) Ingest(ctx context.Context, entries []*models.KnowledgeEntry) (*IngestResult, error) {
	result := &IngestResult{Total: len(entries)}
	if len(entries) == 0 {
		return result, nil
	}

	embedded := make([]*models.KnowledgeEntry, len(entries))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, entry := range entries {
		g.Go(func() error {
			vec, err := s.embedder.Embed(ctx, entry.Answer, PurposeDocument)
			if err != nil {
				s.logger.Warn("Failed to embed knowledge entry, skipping",
					zap.String("question", entry.Question),
					zap.Error(err),
				)
				return nil
			}
			embedded[i] = &models.KnowledgeEntry{
				Category:  entry.Category,
				Question:  entry.Question,
				Answer:    entry.Answer,
				Source:    entry.Source,
				Embedding: vec,
			}
			return nil
		})
	}
	_ = g.Wait()

	ready := make([]*models.KnowledgeEntry, 0, len(entries))
	for _, entry := range embedded {
		if entry != nil {
			ready = append(ready, entry)
		}
	}
	result.Failed = result.Total - len(ready)

	if len(ready) > 0 {
		if err := s.store.CreateBatch(ctx, ready); err != nil {
			return nil, fmt.Errorf("failed to persist knowledge entries: %w", err)
		}
	}
	result.Added = len(ready)

	s.logger.Info("Knowledge ingestion completed",
		zap.Int("added", result.Added),
		zap.Int("failed", result.Failed),
		zap.Int("total", result.Total),
	)

	return result, nil
}
