package repository

import (
	"context"
	"fmt"
	"time"

	"kbchat/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"
)

const knowledgeTable = "knowledge_entries"

// insertChunkSize keeps one INSERT well under the bind variable limits of
// both SQLite (32766) and PostgreSQL (65535) at seven columns per row.
const insertChunkSize = 500

var knowledgeColumns = []string{"id", "category", "question", "answer", "source", "created_at"}

// KnowledgeRepository keeps knowledge entries in PostgreSQL with pgvector.
type KnowledgeRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewKnowledgeRepository(db *pgxpool.Pool, logger *zap.Logger) *KnowledgeRepository {
	return &KnowledgeRepository{
		db:     db,
		logger: logger,
	}
}

// CreateBatch inserts all entries in one transaction, insertChunkSize rows
// per statement. Entries without an ID or creation time get fresh ones.
func (r *KnowledgeRepository) CreateBatch(ctx context.Context, entries []*models.KnowledgeEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	for _, chunk := range chunkEntries(entries, insertChunkSize) {
		query := squirrel.Insert(knowledgeTable).
			Columns("id", "category", "question", "answer", "source", "embedding", "created_at").
			PlaceholderFormat(squirrel.Dollar)

		for _, entry := range chunk {
			prepareEntry(entry, now)
			query = query.Values(
				entry.ID, entry.Category, entry.Question, entry.Answer, entry.Source,
				pgvector.NewVector(entry.Embedding), entry.CreatedAt,
			)
		}

		sql, args, err := query.ToSql()
		if err != nil {
			return fmt.Errorf("failed to build insert: %w", err)
		}
		if _, err := tx.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("failed to insert knowledge entries: %w", err)
		}
	}
	return tx.Commit(ctx)
}

// FetchAll returns every entry with its embedding. Rows whose vector cannot
// be decoded come back with a nil embedding and never match a query.
func (r *KnowledgeRepository) FetchAll(ctx context.Context) ([]*models.KnowledgeEntry, error) {
	query := squirrel.Select(append(knowledgeColumns, "embedding::text")...).
		From(knowledgeTable).
		OrderBy("created_at ASC").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query knowledge entries: %w", err)
	}
	defer rows.Close()

	var results []*models.KnowledgeEntry
	for rows.Next() {
		var entry models.KnowledgeEntry
		var raw *string
		if err := rows.Scan(
			&entry.ID, &entry.Category, &entry.Question, &entry.Answer, &entry.Source, &entry.CreatedAt, &raw,
		); err != nil {
			return nil, err
		}
		entry.Embedding = r.decodeVector(entry.ID, raw)
		results = append(results, &entry)
	}

	return results, rows.Err()
}

func (r *KnowledgeRepository) Count(ctx context.Context) (int64, error) {
	sql, args, err := squirrel.Select("COUNT(*)").
		From(knowledgeTable).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return 0, err
	}

	var total int64
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count knowledge entries: %w", err)
	}
	return total, nil
}

// List returns entries newest first, without embeddings.
func (r *KnowledgeRepository) List(ctx context.Context, limit, offset int) ([]*models.KnowledgeEntry, error) {
	query := squirrel.Select(knowledgeColumns...).
		From(knowledgeTable).
		OrderBy("created_at DESC", "id").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list knowledge entries: %w", err)
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.KnowledgeEntry, error) {
		var entry models.KnowledgeEntry
		err := row.Scan(&entry.ID, &entry.Category, &entry.Question, &entry.Answer, &entry.Source, &entry.CreatedAt)
		return &entry, err
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *KnowledgeRepository) decodeVector(id uuid.UUID, raw *string) []float32 {
	if raw == nil {
		return nil
	}
	var vec pgvector.Vector
	if err := vec.Scan(*raw); err != nil {
		r.logger.Warn("Skipping malformed embedding",
			zap.String("id", id.String()),
			zap.Error(err),
		)
		return nil
	}
	return vec.Slice()
}

func chunkEntries(entries []*models.KnowledgeEntry, size int) [][]*models.KnowledgeEntry {
	chunks := make([][]*models.KnowledgeEntry, 0, (len(entries)+size-1)/size)
	for size < len(entries) {
		entries, chunks = entries[size:], append(chunks, entries[:size])
	}
	return append(chunks, entries)
}

func prepareEntry(entry *models.KnowledgeEntry, now time.Time) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
}

func (r *KnowledgeRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}
