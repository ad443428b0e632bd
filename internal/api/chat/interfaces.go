package chat

import (
	"context"

	"github.com/futig/advisor-backend/internal/entity"
)

type QueryUsecase interface {
	Ask(ctx context.Context, req *entity.ChatRequest) (*entity.Answer, error)
	Stream(ctx context.Context, req *entity.ChatRequest) (*entity.Answer, <-chan string, error)
	SubmitFeedback(ctx context.Context, req *entity.FeedbackRequest) (*entity.FeedbackRecord, error)
	ListHistory(ctx context.Context, userID string, limit int) ([]entity.QueryRecord, error)
	ExportHistory(ctx context.Context, userID, format string) (*entity.ExportFile, error)
	Categories() []entity.CategoryInfo
	Status() entity.ComponentStatus
	ReloadModel(ctx context.Context) error
}
