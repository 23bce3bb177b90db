package service

import (
	"context"
	"sync"

	"kbchat/internal/models"

	"github.com/stretchr/testify/mock"
)

type mockEmbedder struct {
	mock.Mock
}

func (m *mockEmbedder) Embed(ctx context.Context, text string, purpose EmbeddingPurpose) ([]float32, error) {
	args := m.Called(ctx, text, purpose)
	vec, _ := args.Get(0).([]float32)
	return vec, args.Error(1)
}

type mockCompleter struct {
	mock.Mock
}

func (m *mockCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

type mockChatLogStore struct {
	mock.Mock
}

func (m *mockChatLogStore) Create(ctx context.Context, log *models.ChatLog) error {
	return m.Called(ctx, log).Error(0)
}

// memoryStore is an in-memory KnowledgeStore.
type memoryStore struct {
	mu       sync.Mutex
	entries  []*models.KnowledgeEntry
	fetchErr error
	saveErr  error
	batches  int
}

func (s *memoryStore) FetchAll(ctx context.Context) ([]*models.KnowledgeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	return append([]*models.KnowledgeEntry(nil), s.entries...), nil
}

func (s *memoryStore) CreateBatch(ctx context.Context, entries []*models.KnowledgeEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.batches++
	s.entries = append(s.entries, entries...)
	return nil
}

func (s *memoryStore) Count(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fetchErr != nil {
		return 0, s.fetchErr
	}
	return int64(len(s.entries)), nil
}

func (s *memoryStore) List(ctx context.Context, limit, offset int) ([]*models.KnowledgeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	if offset >= len(s.entries) {
		return []*models.KnowledgeEntry{}, nil
	}
	end := offset + limit
	if end > len(s.entries) {
		end = len(s.entries)
	}
	return s.entries[offset:end], nil
}
