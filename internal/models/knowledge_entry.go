package models

import (
	"time"

	"github.com/google/uuid"
)

// KnowledgeEntry is one question/answer pair of the knowledge base.
// Embedding is nil until ingestion completes, and nil when the stored
// value could not be decoded.
type KnowledgeEntry struct {
	ID        uuid.UUID `db:"id"`
	Category  string    `db:"category"`
	Question  string    `db:"question"`
	Answer    string    `db:"answer"`
	Source    string    `db:"source"`
	Embedding []float32 `db:"embedding"`
	CreatedAt time.Time `db:"created_at"`
}
