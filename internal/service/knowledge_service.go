package service

import (
	"context"
	"fmt"
	"time"

	"kbchat/internal/dto"

	"go.uber.org/zap"
)

// KnowledgeService serves the admin listing of stored entries.
type KnowledgeService struct {
	store  KnowledgeStore
	logger *zap.Logger
}

func NewKnowledgeService(store KnowledgeStore, logger *zap.Logger) *KnowledgeService {
	return &KnowledgeService{store: store, logger: logger}
}

// List returns one page of entries, newest first. Pages start at 1.
func (s *KnowledgeService) List(ctx context.Context, page, limit int) (*dto.KnowledgeListResponse, error) {
	total, err := s.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count knowledge entries: %w", err)
	}

	entries, err := s.store.List(ctx, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list knowledge entries: %w", err)
	}

	briefs := make([]dto.KnowledgeEntryBrief, len(entries))
	for i, entry := range entries {
		briefs[i] = dto.KnowledgeEntryBrief{
			ID:        entry.ID.String(),
			Category:  entry.Category,
			Question:  entry.Question,
			Answer:    entry.Answer,
			Source:    entry.Source,
			CreatedAt: entry.CreatedAt.Format(time.RFC3339),
		}
	}

	return &dto.KnowledgeListResponse{
		Total:   total,
		Page:    page,
		Limit:   limit,
		Entries: briefs,
	}, nil
}
