package service

import (
	"context"
	"fmt"
	"strings"

	"kbchat/pkg/config"

	"go.uber.org/zap"
)

// QueryResult is the answer to one user question. Sources is empty only
// when nothing in the knowledge base was relevant.
type QueryResult struct {
	Response string
	Sources  []ScoredEntry
}

// RAGService answers questions strictly from the knowledge base:
// embed the query, rank the whole corpus, then either short-circuit with
// the fallback message or ask the completion model with a grounded prompt.
type RAGService struct {
	store     KnowledgeStore
	embedder  Embedder
	completer Completer
	config    *config.RAGConfig
	logger    *zap.Logger
}

func NewRAGService(
	store KnowledgeStore,
	embedder Embedder,
	completer Completer,
	cfg *config.RAGConfig,
	logger *zap.Logger,
) *RAGService {
	return &RAGService{
		store:     store,
		embedder:  embedder,
		completer: completer,
		config:    cfg,
		logger:    logger,
	}
}

// ProcessQuery runs the retrieval pipeline for one question. Embedding,
// store and completion failures are returned wrapped in ErrQueryEmbedding,
// ErrKnowledgeUnavailable and ErrCompletion.
func (s *RAGService) ProcessQuery(ctx context.Context, query string) (*QueryResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyMessage
	}

	queryEmbedding, err := s.embedder.Embed(ctx, query, PurposeQuery)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryEmbedding, err)
	}

	entries, err := s.store.FetchAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrKnowledgeUnavailable, err)
	}

	sources := FindSimilar(queryEmbedding, entries, s.threshold(), s.topK())

	s.logger.Info("Knowledge search completed",
		zap.Int("corpus", len(entries)),
		zap.Int("results", len(sources)),
	)

	if len(sources) == 0 {
		return &QueryResult{
			Response: s.FallbackMessage(),
			Sources:  []ScoredEntry{},
		}, nil
	}

	response, err := s.completer.Complete(ctx, s.BuildPrompt(query, sources))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompletion, err)
	}

	return &QueryResult{
		Response: response,
		Sources:  sources,
	}, nil
}

// FallbackMessage is returned verbatim when no entry is relevant.
func (s *RAGService) FallbackMessage() string {
	return "I don't have that information. Please contact us at " + s.config.ContactURL
}

// BuildContext renders the ranked entries as Q/A pairs, best match first.
func (s *RAGService) BuildContext(sources []ScoredEntry) string {
	pairs := make([]string, 0, len(sources))
	for _, source := range sources {
		pairs = append(pairs, fmt.Sprintf("Q: %s\nA: %s", source.Entry.Question, source.Entry.Answer))
	}
	return strings.Join(pairs, "\n\n")
}

// BuildPrompt wraps the context in the grounding instructions.
func (s *RAGService) BuildPrompt(query string, sources []ScoredEntry) string {
	return fmt.Sprintf(
		"You are %s. Answer ONLY using this context:\n\n%s\n\nUser question: %s\n\nIf context doesn't contain answer, say you don't know.",
		s.config.AssistantName,
		s.BuildContext(sources),
		query,
	)
}

func (s *RAGService) threshold() float64 {
	return s.config.SimilarityThreshold
}

func (s *RAGService) topK() int {
	if s.config.TopK <= 0 {
		return DefaultTopK
	}
	return s.config.TopK
}
