package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"kbchat/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// sqliteTimeLayout sorts lexically in creation order.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteKnowledgeRepository keeps knowledge entries in a SQLite file with
// embeddings serialized as JSON arrays.
type SQLiteKnowledgeRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewSQLiteKnowledgeRepository(db *sql.DB, logger *zap.Logger) *SQLiteKnowledgeRepository {
	return &SQLiteKnowledgeRepository{
		db:     db,
		logger: logger,
	}
}

func (r *SQLiteKnowledgeRepository) CreateBatch(ctx context.Context, entries []*models.KnowledgeEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, chunk := range chunkEntries(entries, insertChunkSize) {
		query := squirrel.Insert(knowledgeTable).
			Columns("id", "category", "question", "answer", "source", "embedding", "created_at").
			PlaceholderFormat(squirrel.Question)

		for _, entry := range chunk {
			prepareEntry(entry, now)
			embedding, err := json.Marshal(entry.Embedding)
			if err != nil {
				return fmt.Errorf("failed to encode embedding: %w", err)
			}
			query = query.Values(
				entry.ID.String(), entry.Category, entry.Question, entry.Answer, entry.Source,
				string(embedding), entry.CreatedAt.UTC().Format(sqliteTimeLayout),
			)
		}

		stmt, args, err := query.ToSql()
		if err != nil {
			return fmt.Errorf("failed to build insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			return fmt.Errorf("failed to insert knowledge entries: %w", err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteKnowledgeRepository) FetchAll(ctx context.Context) ([]*models.KnowledgeEntry, error) {
	stmt, args, err := squirrel.Select(append(knowledgeColumns, "embedding")...).
		From(knowledgeTable).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query knowledge entries: %w", err)
	}
	defer rows.Close()

	var results []*models.KnowledgeEntry
	for rows.Next() {
		var raw sql.NullString
		entry, err := r.scanEntry(rows, &raw)
		if err != nil {
			return nil, err
		}
		if raw.Valid {
			if err := json.Unmarshal([]byte(raw.String), &entry.Embedding); err != nil {
				r.logger.Warn("Skipping malformed embedding",
					zap.String("id", entry.ID.String()),
					zap.Error(err),
				)
				entry.Embedding = nil
			}
		}
		results = append(results, entry)
	}

	return results, rows.Err()
}

func (r *SQLiteKnowledgeRepository) Count(ctx context.Context) (int64, error) {
	stmt, args, err := squirrel.Select("COUNT(*)").From(knowledgeTable).ToSql()
	if err != nil {
		return 0, err
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, stmt, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count knowledge entries: %w", err)
	}
	return total, nil
}

func (r *SQLiteKnowledgeRepository) List(ctx context.Context, limit, offset int) ([]*models.KnowledgeEntry, error) {
	stmt, args, err := squirrel.Select(knowledgeColumns...).
		From(knowledgeTable).
		OrderBy("created_at DESC", "id").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		PlaceholderFormat(squirrel.Question).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list knowledge entries: %w", err)
	}
	defer rows.Close()

	results := make([]*models.KnowledgeEntry, 0)
	for rows.Next() {
		entry, err := r.scanEntry(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, entry)
	}
	return results, rows.Err()
}

// scanEntry reads the knowledgeColumns followed by any extra destinations.
func (r *SQLiteKnowledgeRepository) scanEntry(rows *sql.Rows, extra ...any) (*models.KnowledgeEntry, error) {
	var entry models.KnowledgeEntry
	var id, createdAt string

	dest := append([]any{&id, &entry.Category, &entry.Question, &entry.Answer, &entry.Source, &createdAt}, extra...)
	if err := rows.Scan(dest...); err != nil {
		return nil, err
	}

	parsedID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid knowledge entry id %q: %w", id, err)
	}
	entry.ID = parsedID

	entry.CreatedAt, err = time.Parse(sqliteTimeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("invalid created_at for %s: %w", id, err)
	}
	return &entry, nil
}

func (r *SQLiteKnowledgeRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
