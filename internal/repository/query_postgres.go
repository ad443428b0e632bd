package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/futig/advisor-backend/internal/entity"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// QueryRepository stores answered questions
type QueryRepository interface {
	Save(ctx context.Context, record *entity.QueryRecord) error
	ListByUser(ctx context.Context, userID string, limit int) ([]entity.QueryRecord, error)
}

var _ QueryRepository = &QueryPostgres{}

const queryColumns = `id, user_id, question, response, category, sources, retrieved_count, degraded, backend_used, processing_ms, created_at`

// QueryPostgres implements QueryRepository using PostgreSQL
type QueryPostgres struct {
	db *pgxpool.Pool
}

func NewQueryPostgres(db *pgxpool.Pool) *QueryPostgres {
	return &QueryPostgres{db: db}
}

// Save inserts the record; saving the same id twice is a no-op so retries stay safe
func (r *QueryPostgres) Save(ctx context.Context, record *entity.QueryRecord) error {
	sources, err := encodeSources(record.Sources)
	if err != nil {
		return err
	}

	query := `INSERT INTO queries (` + queryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING`

	_, err = r.db.Exec(ctx, query,
		toPgUUID(record.ID),
		record.UserID,
		record.Question,
		record.Response,
		string(record.Category),
		sources,
		int32(record.RetrievedCount),
		record.Degraded,
		string(record.BackendUsed),
		record.ProcessingTime.Milliseconds(),
		toPgTimestamptz(record.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert query: %w", err)
	}

	return nil
}

// ListByUser returns the newest records first
func (r *QueryPostgres) ListByUser(ctx context.Context, userID string, limit int) ([]entity.QueryRecord, error) {
	query := `SELECT ` + queryColumns + ` FROM queries WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`

	rows, err := r.db.Query(ctx, query, userID, int32(limit))
	if err != nil {
		return nil, fmt.Errorf("list queries: %w", err)
	}
	defer rows.Close()

	records := make([]entity.QueryRecord, 0, limit)
	for rows.Next() {
		record, err := scanQuery(rows)
		if err != nil {
			return nil, fmt.Errorf("scan query: %w", err)
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate queries: %w", err)
	}

	return records, nil
}

func scanQuery(row pgx.Row) (*entity.QueryRecord, error) {
	var (
		id             pgtype.UUID
		record         entity.QueryRecord
		category       string
		backend        string
		sources        []byte
		retrievedCount int32
		processingMs   int64
		createdAt      pgtype.Timestamptz
	)

	err := row.Scan(
		&id,
		&record.UserID,
		&record.Question,
		&record.Response,
		&category,
		&sources,
		&retrievedCount,
		&record.Degraded,
		&backend,
		&processingMs,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	record.Sources, err = decodeSources(sources)
	if err != nil {
		return nil, err
	}

	record.ID = fromPgUUID(id)
	record.Category = entity.Category(category)
	record.BackendUsed = entity.BackendKind(backend)
	record.RetrievedCount = int(retrievedCount)
	record.ProcessingTime = time.Duration(processingMs) * time.Millisecond
	record.CreatedAt = createdAt.Time

	return &record, nil
}
