package query

import (
	"context"

	"github.com/futig/advisor-backend/internal/entity"
	"github.com/futig/advisor-backend/internal/pkg/formatter"
)

type Pipeline interface {
	ProcessQuery(ctx context.Context, q entity.Query) entity.PipelineResult
	StreamQuery(ctx context.Context, q entity.Query) (entity.PipelineResult, <-chan string)
	Status() entity.ComponentStatus
}

type QueryRepository interface {
	Save(ctx context.Context, record *entity.QueryRecord) error
	ListByUser(ctx context.Context, userID string, limit int) ([]entity.QueryRecord, error)
}

type FeedbackRepository interface {
	Save(ctx context.Context, feedback *entity.FeedbackRecord) error
}

// ModelReloader reloads the local generation model
type ModelReloader interface {
	Reload(ctx context.Context) error
}

type FormatterFactory interface {
	Create(format entity.ResultFormat) (formatter.Formatter, error)
}
