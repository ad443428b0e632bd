package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/futig/advisor-backend/internal/entity"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// foreign_key_violation
const pgForeignKeyViolation = "23503"

// FeedbackRepository stores user ratings of answers
type FeedbackRepository interface {
	Save(ctx context.Context, feedback *entity.FeedbackRecord) error
}

var _ FeedbackRepository = &FeedbackPostgres{}

type FeedbackPostgres struct {
	db *pgxpool.Pool
}

func NewFeedbackPostgres(db *pgxpool.Pool) *FeedbackPostgres {
	return &FeedbackPostgres{db: db}
}

func (r *FeedbackPostgres) Save(ctx context.Context, feedback *entity.FeedbackRecord) error {
	query := `INSERT INTO feedback (id, query_id, user_id, rating, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.Exec(ctx, query,
		toPgUUID(feedback.ID),
		toPgUUID(feedback.QueryID),
		feedback.UserID,
		int16(feedback.Rating),
		feedback.Comment,
		toPgTimestamptz(feedback.CreatedAt),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return fmt.Errorf("%w: %s", entity.ErrQueryNotFound, feedback.QueryID)
		}
		return fmt.Errorf("insert feedback: %w", err)
	}

	return nil
}
