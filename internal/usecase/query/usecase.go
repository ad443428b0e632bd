package query

import (
	"context"
	"fmt"
	"time"

	"github.com/futig/advisor-backend/internal/entity"
	"github.com/futig/advisor-backend/internal/pkg/formatter"
	pkgRetry "github.com/futig/advisor-backend/internal/pkg/retry"
	"github.com/futig/advisor-backend/internal/pkg/validator"
	"github.com/google/uuid"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const (
	exportTitle        = "상담 기록"
	exportFilePrefix   = "advisor-history"
	exportHeadingLimit = 60
)

// QueryUsecase answers questions and manages their history.
// The repositories are nil when persistence is disabled.
type QueryUsecase struct {
	pipeline     Pipeline
	queryRepo    QueryRepository
	feedbackRepo FeedbackRepository
	reloader     ModelReloader
	formatters   FormatterFactory
	validator    *validator.Validator
	historyRetry pkgRetry.RetryConfig
	logger       *zap.Logger
}

func NewUsecase(
	pipeline Pipeline,
	queryRepo QueryRepository,
	feedbackRepo FeedbackRepository,
	reloader ModelReloader,
	formatters FormatterFactory,
	validator *validator.Validator,
	historyRetry pkgRetry.RetryConfig,
	logger *zap.Logger,
) *QueryUsecase {
	return &QueryUsecase{
		pipeline:     pipeline,
		queryRepo:    queryRepo,
		feedbackRepo: feedbackRepo,
		reloader:     reloader,
		formatters:   formatters,
		validator:    validator,
		historyRetry: historyRetry,
		logger:       logger,
	}
}

// Ask runs the pipeline for one question. Only invalid input is an error;
// failures of the pipeline stages show up as flags on the result.
func (uc *QueryUsecase) Ask(ctx context.Context, req *entity.ChatRequest) (*entity.Answer, error) {
	q, err := uc.toQuery(req)
	if err != nil {
		return nil, err
	}

	result := uc.pipeline.ProcessQuery(ctx, q)

	return &entity.Answer{
		QueryID: uc.saveHistory(ctx, q, result),
		Result:  result,
	}, nil
}

// Stream is Ask with the response text delivered in chunks
func (uc *QueryUsecase) Stream(ctx context.Context, req *entity.ChatRequest) (*entity.Answer, <-chan string, error) {
	q, err := uc.toQuery(req)
	if err != nil {
		return nil, nil, err
	}

	result, chunks := uc.pipeline.StreamQuery(ctx, q)

	return &entity.Answer{
		QueryID: uc.saveHistory(ctx, q, result),
		Result:  result,
	}, chunks, nil
}

func (uc *QueryUsecase) toQuery(req *entity.ChatRequest) (entity.Query, error) {
	category, err := uc.validator.ValidateChat(req)
	if err != nil {
		return entity.Query{}, err
	}

	return entity.Query{
		Question: req.Question,
		Category: category,
		UserID:   req.UserID,
	}, nil
}

// saveHistory stores the answer and returns its id, or uuid.Nil when
// persistence is disabled or every attempt failed
func (uc *QueryUsecase) saveHistory(ctx context.Context, q entity.Query, result entity.PipelineResult) uuid.UUID {
	if uc.queryRepo == nil {
		return uuid.Nil
	}

	record := &entity.QueryRecord{
		ID:             uuid.New(),
		UserID:         q.UserID,
		Question:       q.Question,
		Response:       result.Response,
		Category:       result.Category,
		Sources:        result.Sources,
		RetrievedCount: result.RetrievedCount,
		Degraded:       result.Degraded,
		BackendUsed:    result.BackendUsed,
		ProcessingTime: result.ProcessingTime,
		CreatedAt:      time.Now().UTC(),
	}

	// a client that went away must not lose the record
	saveCtx := context.WithoutCancel(ctx)
	err := uc.historyRetry.Do(saveCtx, func(ctx context.Context) error {
		return uc.queryRepo.Save(ctx, record)
	})
	if err != nil {
		ctxzap.Extract(ctx).Warn("failed to save query history",
			zap.String("query_id", record.ID.String()),
			zap.Error(err),
		)
		return uuid.Nil
	}

	return record.ID
}

// SubmitFeedback stores a rating for a previously answered query
func (uc *QueryUsecase) SubmitFeedback(ctx context.Context, req *entity.FeedbackRequest) (*entity.FeedbackRecord, error) {
	if uc.feedbackRepo == nil {
		return nil, entity.ErrHistoryUnavailable
	}

	queryID, err := uc.validator.ValidateFeedback(req)
	if err != nil {
		return nil, err
	}

	feedback := &entity.FeedbackRecord{
		ID:        uuid.New(),
		QueryID:   queryID,
		UserID:    req.UserID,
		Rating:    req.Rating,
		Comment:   req.Comment,
		CreatedAt: time.Now().UTC(),
	}

	if err := uc.feedbackRepo.Save(ctx, feedback); err != nil {
		return nil, fmt.Errorf("save feedback: %w", err)
	}

	return feedback, nil
}

// ListHistory returns the newest answered queries of a user
func (uc *QueryUsecase) ListHistory(ctx context.Context, userID string, limit int) ([]entity.QueryRecord, error) {
	if uc.queryRepo == nil {
		return nil, entity.ErrHistoryUnavailable
	}

	if err := uc.validator.ValidateUserID(userID); err != nil {
		return nil, err
	}
	limit, err := uc.validator.HistoryLimit(limit)
	if err != nil {
		return nil, err
	}

	records, err := uc.queryRepo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}

	return records, nil
}

// ExportHistory renders the recent history of a user as a document
func (uc *QueryUsecase) ExportHistory(ctx context.Context, userID, format string) (*entity.ExportFile, error) {
	resultFormat, err := uc.validator.ExportFormat(format)
	if err != nil {
		return nil, err
	}

	records, err := uc.ListHistory(ctx, userID, 0)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: user %s", entity.ErrNothingToExport, userID)
	}

	f, err := uc.formatters.Create(resultFormat)
	if err != nil {
		return nil, err
	}

	data, err := f.Format(historyDocument(records))
	if err != nil {
		return nil, fmt.Errorf("format history: %w", err)
	}

	return &entity.ExportFile{
		Filename:    exportFilePrefix + f.FileExtension(),
		ContentType: f.ContentType(),
		Data:        data,
	}, nil
}

func historyDocument(records []entity.QueryRecord) formatter.Document {
	doc := formatter.Document{
		Title:    exportTitle,
		Sections: make([]formatter.Section, 0, len(records)),
	}

	// oldest first reads like a conversation
	for i := len(records) - 1; i >= 0; i-- {
		r := records[i]
		doc.Sections = append(doc.Sections, formatter.Section{
			Heading: fmt.Sprintf("[%s] %s", r.Category.Info().Name, headline(r.Question)),
			Body: fmt.Sprintf("질문: %s\n\n%s\n\n%s",
				r.Question, r.Response, r.CreatedAt.Format("2006-01-02 15:04")),
		})
	}

	return doc
}

func headline(question string) string {
	runes := []rune(question)
	if len(runes) <= exportHeadingLimit {
		return question
	}
	return string(runes[:exportHeadingLimit]) + "…"
}

// Status reports the pipeline components and whether history is stored
func (uc *QueryUsecase) Status() entity.ComponentStatus {
	status := uc.pipeline.Status()
	status.PersistenceEnabled = uc.queryRepo != nil
	return status
}

func (uc *QueryUsecase) Categories() []entity.CategoryInfo {
	return entity.CategoryInfos()
}

// ReloadModel retries loading the local model
func (uc *QueryUsecase) ReloadModel(ctx context.Context) error {
	if uc.reloader == nil {
		return fmt.Errorf("%w: local backend is not configured", entity.ErrBackendNotReady)
	}

	if err := uc.reloader.Reload(ctx); err != nil {
		return fmt.Errorf("reload model: %w", err)
	}

	ctxzap.Info(ctx, "local model reloaded")
	return nil
}
