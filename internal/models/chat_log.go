package models

import (
	"time"

	"github.com/google/uuid"
)

type ChatLog struct {
	ID          uuid.UUID `db:"id"`
	SessionID   string    `db:"session_id"`
	UserMessage string    `db:"user_message"`
	BotResponse string    `db:"bot_response"`
	CreatedAt   time.Time `db:"created_at"`
}
