package repository

import (
	"context"
	"database/sql"

	"kbchat/internal/models"

	"github.com/Masterminds/squirrel"
	"go.uber.org/zap"
)

type SQLiteChatLogRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewSQLiteChatLogRepository(db *sql.DB, logger *zap.Logger) *SQLiteChatLogRepository {
	return &SQLiteChatLogRepository{
		db:     db,
		logger: logger,
	}
}

func (r *SQLiteChatLogRepository) Create(ctx context.Context, log *models.ChatLog) error {
	stmt, args, err := squirrel.Insert("chat_logs").
		Columns("id", "session_id", "user_message", "bot_response", "created_at").
		Values(log.ID.String(), log.SessionID, log.UserMessage, log.BotResponse, log.CreatedAt.UTC().Format(sqliteTimeLayout)).
		ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, stmt, args...)
	return err
}
