package repository

import (
	"context"

	"kbchat/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type ChatLogRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewChatLogRepository(db *pgxpool.Pool, logger *zap.Logger) *ChatLogRepository {
	return &ChatLogRepository{
		db:     db,
		logger: logger,
	}
}

func (r *ChatLogRepository) Create(ctx context.Context, log *models.ChatLog) error {
	query := squirrel.Insert("chat_logs").
		Columns("id", "session_id", "user_message", "bot_response", "created_at").
		Values(log.ID, log.SessionID, log.UserMessage, log.BotResponse, log.CreatedAt).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}
