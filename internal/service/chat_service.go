package service

import (
	"context"
	"strings"
	"time"

	"kbchat/internal/dto"
	"kbchat/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const anonymousSession = "anonymous"

// ChatService answers chat messages and records them in the chat log.
type ChatService struct {
	rag      *RAGService
	chatLogs ChatLogStore
	logger   *zap.Logger
}

func NewChatService(rag *RAGService, chatLogs ChatLogStore, logger *zap.Logger) *ChatService {
	return &ChatService{
		rag:      rag,
		chatLogs: chatLogs,
		logger:   logger,
	}
}

func (s *ChatService) Chat(ctx context.Context, req *dto.ChatRequest) (*dto.ChatResponse, error) {
	result, err := s.rag.ProcessQuery(ctx, req.Message)
	if err != nil {
		return nil, err
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = anonymousSession
	}

	chatLog := &models.ChatLog{
		ID:          uuid.New(),
		SessionID:   sessionID,
		UserMessage: strings.ToValidUTF8(req.Message, ""),
		BotResponse: strings.ToValidUTF8(result.Response, ""),
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.chatLogs.Create(ctx, chatLog); err != nil {
		s.logger.Warn("Failed to save chat log",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
	}

	sources := make([]dto.SourceEntry, len(result.Sources))
	for i, source := range result.Sources {
		sources[i] = dto.SourceEntry{
			ID:       source.Entry.ID.String(),
			Category: source.Entry.Category,
			Question: source.Entry.Question,
			Answer:   source.Entry.Answer,
			Source:   source.Entry.Source,
			Score:    source.Score,
		}
	}

	return &dto.ChatResponse{
		Response: result.Response,
		Sources:  sources,
	}, nil
}
