package service

import (
	"context"
	"errors"
	"testing"

	"kbchat/internal/models"
	"kbchat/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testRAGConfig() *config.RAGConfig {
	return &config.RAGConfig{
		SimilarityThreshold: DefaultSimilarityThreshold,
		TopK:                DefaultTopK,
		AssistantName:       "Kenmark ITan assistant",
		ContactURL:          "kenmarkitan.com/contact",
	}
}

func TestRAGService_ProcessQuery_Answered(t *testing.T) {
	ctx := context.Background()
	store := &memoryStore{entries: []*models.KnowledgeEntry{
		{Question: "What services do you offer?", Answer: "We build web and mobile apps.", Embedding: []float32{1, 0, 0}},
		{Question: "Where is your office?", Answer: "Mumbai.", Embedding: []float32{0, 1, 0}},
	}}

	embedder := new(mockEmbedder)
	embedder.On("Embed", mock.Anything, "  What do you offer?  ", PurposeQuery).Return([]float32{0.9, 0.1, 0}, nil)

	completer := new(mockCompleter)
	completer.On("Complete", mock.Anything, mock.MatchedBy(func(prompt string) bool {
		return assert.Contains(t, prompt, "Q: What services do you offer?\nA: We build web and mobile apps.") &&
			assert.Contains(t, prompt, "User question:   What do you offer?  \n") &&
			assert.Contains(t, prompt, "You are Kenmark ITan assistant.") &&
			assert.NotContains(t, prompt, "Mumbai.")
	})).Return("We build web and mobile apps.", nil)

	svc := NewRAGService(store, embedder, completer, testRAGConfig(), zap.NewNop())

	result, err := svc.ProcessQuery(ctx, "  What do you offer?  ")
	require.NoError(t, err)
	assert.Equal(t, "We build web and mobile apps.", result.Response)
	require.Len(t, result.Sources, 1)
	assert.Equal(t, "What services do you offer?", result.Sources[0].Entry.Question)
	assert.Greater(t, result.Sources[0].Score, DefaultSimilarityThreshold)

	embedder.AssertExpectations(t)
	completer.AssertNumberOfCalls(t, "Complete", 1)
}

func TestRAGService_ProcessQuery_Fallback(t *testing.T) {
	tests := []struct {
		name    string
		entries []*models.KnowledgeEntry
	}{
		{name: "empty corpus"},
		{name: "nothing relevant", entries: []*models.KnowledgeEntry{
			{Question: "Where is your office?", Answer: "Mumbai.", Embedding: []float32{0, 1}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			embedder := new(mockEmbedder)
			embedder.On("Embed", mock.Anything, "weather?", PurposeQuery).Return([]float32{1, 0}, nil)
			completer := new(mockCompleter)

			svc := NewRAGService(&memoryStore{entries: tt.entries}, embedder, completer, testRAGConfig(), zap.NewNop())

			result, err := svc.ProcessQuery(context.Background(), "weather?")
			require.NoError(t, err)
			assert.Equal(t, "I don't have that information. Please contact us at kenmarkitan.com/contact", result.Response)
			assert.NotNil(t, result.Sources)
			assert.Empty(t, result.Sources)
			completer.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
		})
	}
}

func TestRAGService_ProcessQuery_EmptyMessage(t *testing.T) {
	embedder := new(mockEmbedder)
	completer := new(mockCompleter)
	svc := NewRAGService(&memoryStore{}, embedder, completer, testRAGConfig(), zap.NewNop())

	for _, query := range []string{"", "   ", "\n\t"} {
		_, err := svc.ProcessQuery(context.Background(), query)
		assert.ErrorIs(t, err, ErrEmptyMessage)
	}
	embedder.AssertNotCalled(t, "Embed", mock.Anything, mock.Anything, mock.Anything)
}

func TestRAGService_ProcessQuery_Failures(t *testing.T) {
	boom := errors.New("boom")
	corpus := []*models.KnowledgeEntry{{Question: "q", Answer: "a", Embedding: []float32{1, 0}}}

	tests := []struct {
		name       string
		embedErr   error
		fetchErr   error
		completeEr error
		want       error
	}{
		{name: "embedding fails", embedErr: boom, want: ErrQueryEmbedding},
		{name: "store fails", fetchErr: boom, want: ErrKnowledgeUnavailable},
		{name: "completion fails", completeEr: boom, want: ErrCompletion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			embedder := new(mockEmbedder)
			if tt.embedErr != nil {
				embedder.On("Embed", mock.Anything, mock.Anything, PurposeQuery).Return(nil, tt.embedErr)
			} else {
				embedder.On("Embed", mock.Anything, mock.Anything, PurposeQuery).Return([]float32{1, 0}, nil)
			}
			completer := new(mockCompleter)
			completer.On("Complete", mock.Anything, mock.Anything).Return("", tt.completeEr)

			store := &memoryStore{entries: corpus, fetchErr: tt.fetchErr}
			svc := NewRAGService(store, embedder, completer, testRAGConfig(), zap.NewNop())

			_, err := svc.ProcessQuery(context.Background(), "q")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, boom)
		})
	}
}

func TestRAGService_TopKLimitsSources(t *testing.T) {
	var corpus []*models.KnowledgeEntry
	for i := 0; i < 10; i++ {
		corpus = append(corpus, &models.KnowledgeEntry{Question: "q", Answer: "a", Embedding: []float32{1, float32(i) / 10}})
	}

	embedder := new(mockEmbedder)
	embedder.On("Embed", mock.Anything, mock.Anything, PurposeQuery).Return([]float32{1, 0}, nil)
	completer := new(mockCompleter)
	completer.On("Complete", mock.Anything, mock.Anything).Return("ok", nil)

	cfg := testRAGConfig()
	cfg.TopK = 3
	svc := NewRAGService(&memoryStore{entries: corpus}, embedder, completer, cfg, zap.NewNop())

	result, err := svc.ProcessQuery(context.Background(), "q")
	require.NoError(t, err)
	require.Len(t, result.Sources, 3)
	assert.Same(t, corpus[0], result.Sources[0].Entry)
	assert.Same(t, corpus[1], result.Sources[1].Entry)
	assert.Same(t, corpus[2], result.Sources[2].Entry)
}

func TestRAGService_BuildContext(t *testing.T) {
	svc := NewRAGService(nil, nil, nil, testRAGConfig(), zap.NewNop())

	got := svc.BuildContext([]ScoredEntry{
		{Entry: &models.KnowledgeEntry{Question: "Q1", Answer: "A1"}},
		{Entry: &models.KnowledgeEntry{Question: "Q2", Answer: "A2"}},
	})
	assert.Equal(t, "Q: Q1\nA: A1\n\nQ: Q2\nA: A2", got)
	assert.Empty(t, svc.BuildContext(nil))
}
