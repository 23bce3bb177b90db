// Package sqlite opens the single-file knowledge store used for local runs
// and tests. Embeddings are stored as JSON arrays.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS knowledge_entries (
		id         TEXT PRIMARY KEY,
		category   TEXT NOT NULL,
		question   TEXT NOT NULL,
		answer     TEXT NOT NULL,
		source     TEXT NOT NULL,
		embedding  TEXT,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS knowledge_entries_created_at_idx ON knowledge_entries (created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS chat_logs (
		id           TEXT PRIMARY KEY,
		session_id   TEXT NOT NULL,
		user_message TEXT NOT NULL,
		bot_response TEXT NOT NULL,
		created_at   TEXT NOT NULL
	)`,
}

// Open opens (creating if needed) the database at path and applies the
// schema. ":memory:" gives a private in-memory database.
func Open(ctx context.Context, path string, logger *zap.Logger) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// one writer at a time; also keeps ":memory:" on a single connection
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	logger.Info("SQLite database ready", zap.String("path", path))
	return db, nil
}
