package query

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/futig/advisor-backend/internal/config"
	"github.com/futig/advisor-backend/internal/entity"
	"github.com/futig/advisor-backend/internal/pkg/formatter"
	pkgRetry "github.com/futig/advisor-backend/internal/pkg/retry"
	"github.com/futig/advisor-backend/internal/pkg/validator"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePipeline struct {
	got    entity.Query
	result entity.PipelineResult
}

func (f *fakePipeline) ProcessQuery(_ context.Context, q entity.Query) entity.PipelineResult {
	f.got = q
	res := f.result
	if res.Category == "" {
		res.Category = q.Category
	}
	return res
}

func (f *fakePipeline) StreamQuery(ctx context.Context, q entity.Query) (entity.PipelineResult, <-chan string) {
	res := f.ProcessQuery(ctx, q)
	ch := make(chan string, 1)
	ch <- res.Response
	close(ch)
	return res, ch
}

func (f *fakePipeline) Status() entity.ComponentStatus {
	return entity.ComponentStatus{EmbeddingMode: "degraded:sha256", IndexSize: 6}
}

type fakeQueryRepo struct {
	mu       sync.Mutex
	failures int
	calls    int
	records  []entity.QueryRecord
}

func (r *fakeQueryRepo) Save(_ context.Context, record *entity.QueryRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls++
	if r.calls <= r.failures {
		return errors.New("connection reset")
	}
	r.records = append(r.records, *record)
	return nil
}

func (r *fakeQueryRepo) ListByUser(_ context.Context, userID string, limit int) ([]entity.QueryRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []entity.QueryRecord
	for i := len(r.records) - 1; i >= 0 && len(out) < limit; i-- {
		if r.records[i].UserID == userID {
			out = append(out, r.records[i])
		}
	}
	return out, nil
}

type fakeFeedbackRepo struct {
	saved []entity.FeedbackRecord
	err   error
}

func (r *fakeFeedbackRepo) Save(_ context.Context, feedback *entity.FeedbackRecord) error {
	if r.err != nil {
		return r.err
	}
	r.saved = append(r.saved, *feedback)
	return nil
}

type fakeReloader struct {
	err   error
	calls int
}

func (r *fakeReloader) Reload(context.Context) error {
	r.calls++
	return r.err
}

func testValidator() *validator.Validator {
	return validator.New(config.APIConfig{MaxQuestionLength: 2000, HistoryLimit: 20, MaxHistoryLimit: 100})
}

func testRetry() pkgRetry.RetryConfig {
	return pkgRetry.RetryConfig{Attempts: 3, Delay: time.Millisecond, MaxDelay: time.Millisecond}
}

func newTestUsecase(p Pipeline, queries *fakeQueryRepo, feedback *fakeFeedbackRepo, reloader ModelReloader) *QueryUsecase {
	var (
		queryRepo    QueryRepository
		feedbackRepo FeedbackRepository
	)
	if queries != nil {
		queryRepo = queries
	}
	if feedback != nil {
		feedbackRepo = feedback
	}

	return NewUsecase(p, queryRepo, feedbackRepo, reloader, formatter.NewFactory(""), testValidator(), testRetry(), zap.NewNop())
}

func healthResult() entity.PipelineResult {
	return entity.PipelineResult{
		Response:       "[건강 전문 상담사] 정기적인 혈압 측정이 중요해요.",
		Category:       entity.CategoryHealth,
		RetrievedCount: 1,
		BackendUsed:    entity.BackendMock,
		Sources:        []entity.RetrievalResult{{DocumentID: 1, Rank: 1, Category: entity.CategoryHealth}},
	}
}

func TestAsk_WithoutPersistence(t *testing.T) {
	p := &fakePipeline{result: healthResult()}
	uc := newTestUsecase(p, nil, nil, nil)

	answer, err := uc.Ask(context.Background(), &entity.ChatRequest{Question: "혈압 관리 방법"})
	require.NoError(t, err)

	assert.Equal(t, uuid.Nil, answer.QueryID)
	assert.Equal(t, entity.CategoryHealth, answer.Result.Category)
	assert.Equal(t, "혈압 관리 방법", p.got.Question)
	assert.Empty(t, p.got.Category, "category left for the classifier")
}

func TestAsk_PassesExplicitCategory(t *testing.T) {
	p := &fakePipeline{}
	uc := newTestUsecase(p, nil, nil, nil)

	_, err := uc.Ask(context.Background(), &entity.ChatRequest{Question: "추천해 주세요", Category: "travel"})
	require.NoError(t, err)
	assert.Equal(t, entity.CategoryTravel, p.got.Category)
}

func TestAsk_RejectsInvalidInput(t *testing.T) {
	uc := newTestUsecase(&fakePipeline{}, nil, nil, nil)

	_, err := uc.Ask(context.Background(), &entity.ChatRequest{Question: "  "})
	assert.ErrorIs(t, err, entity.ErrMissingField)

	_, err = uc.Ask(context.Background(), &entity.ChatRequest{Question: strings.Repeat("가", 2001)})
	assert.ErrorIs(t, err, entity.ErrQuestionTooLong)

	_, err = uc.Ask(context.Background(), &entity.ChatRequest{Question: "q", Category: "sports"})
	assert.ErrorIs(t, err, entity.ErrUnknownCategory)
}

func TestAsk_SavesHistoryWithRetry(t *testing.T) {
	repo := &fakeQueryRepo{failures: 2}
	uc := newTestUsecase(&fakePipeline{result: healthResult()}, repo, nil, nil)

	answer, err := uc.Ask(context.Background(), &entity.ChatRequest{Question: "혈압 관리 방법", UserID: "u1"})
	require.NoError(t, err)

	require.NotEqual(t, uuid.Nil, answer.QueryID)
	assert.Equal(t, 3, repo.calls)

	saved, err := repo.Get(context.Background(), answer.QueryID)
	require.NoError(t, err)
	assert.Equal(t, "u1", saved.UserID)
	assert.Equal(t, entity.BackendMock, saved.BackendUsed)
	assert.Len(t, saved.Sources, 1)
}

func TestAsk_HistoryFailureDoesNotFailRequest(t *testing.T) {
	repo := &fakeQueryRepo{failures: 100}
	uc := newTestUsecase(&fakePipeline{result: healthResult()}, repo, nil, nil)

	answer, err := uc.Ask(context.Background(), &entity.ChatRequest{Question: "혈압 관리 방법"})
	require.NoError(t, err)

	assert.Equal(t, uuid.Nil, answer.QueryID)
	assert.NotEmpty(t, answer.Result.Response)
	assert.Equal(t, 3, repo.calls)
}

func TestStream(t *testing.T) {
	uc := newTestUsecase(&fakePipeline{result: healthResult()}, &fakeQueryRepo{}, nil, nil)

	answer, chunks, err := uc.Stream(context.Background(), &entity.ChatRequest{Question: "혈압 관리 방법"})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, answer.QueryID)

	var got strings.Builder
	for chunk := range chunks {
		got.WriteString(chunk)
	}
	assert.Equal(t, answer.Result.Response, got.String())
}

func TestSubmitFeedback(t *testing.T) {
	feedback := &fakeFeedbackRepo{}
	uc := newTestUsecase(&fakePipeline{}, &fakeQueryRepo{}, feedback, nil)
	queryID := uuid.New()

	saved, err := uc.SubmitFeedback(context.Background(), &entity.FeedbackRequest{
		QueryID: queryID.String(),
		UserID:  "u1",
		Rating:  4,
		Comment: "도움이 됐어요",
	})
	require.NoError(t, err)

	assert.Equal(t, queryID, saved.QueryID)
	assert.NotEqual(t, uuid.Nil, saved.ID)
	require.Len(t, feedback.saved, 1)
	assert.Equal(t, 4, feedback.saved[0].Rating)

	_, err = uc.SubmitFeedback(context.Background(), &entity.FeedbackRequest{QueryID: queryID.String(), Rating: 9})
	assert.ErrorIs(t, err, entity.ErrInvalidParameter)

	feedback.err = entity.ErrQueryNotFound
	_, err = uc.SubmitFeedback(context.Background(), &entity.FeedbackRequest{QueryID: queryID.String(), Rating: 1})
	assert.ErrorIs(t, err, entity.ErrQueryNotFound)
}

func TestHistory_Unavailable(t *testing.T) {
	uc := newTestUsecase(&fakePipeline{}, nil, nil, nil)

	_, err := uc.ListHistory(context.Background(), "u1", 0)
	assert.ErrorIs(t, err, entity.ErrHistoryUnavailable)

	_, err = uc.ExportHistory(context.Background(), "u1", "markdown")
	assert.ErrorIs(t, err, entity.ErrHistoryUnavailable)

	_, err = uc.SubmitFeedback(context.Background(), &entity.FeedbackRequest{QueryID: uuid.NewString(), Rating: 5})
	assert.ErrorIs(t, err, entity.ErrHistoryUnavailable)

	assert.False(t, uc.Status().PersistenceEnabled)
}

func TestListAndExportHistory(t *testing.T) {
	repo := &fakeQueryRepo{}
	uc := newTestUsecase(&fakePipeline{result: healthResult()}, repo, nil, nil)
	ctx := context.Background()

	for _, q := range []string{"첫 번째 질문", "두 번째 질문", "세 번째 질문"} {
		_, err := uc.Ask(ctx, &entity.ChatRequest{Question: q, UserID: "u1"})
		require.NoError(t, err)
	}
	_, err := uc.Ask(ctx, &entity.ChatRequest{Question: "다른 사용자", UserID: "u2"})
	require.NoError(t, err)

	records, err := uc.ListHistory(ctx, "u1", 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "세 번째 질문", records[0].Question)

	_, err = uc.ListHistory(ctx, "", 0)
	assert.ErrorIs(t, err, entity.ErrMissingField)

	file, err := uc.ExportHistory(ctx, "u1", "")
	require.NoError(t, err)
	assert.Equal(t, "advisor-history.md", file.Filename)

	text := string(file.Data)
	assert.True(t, strings.HasPrefix(text, "# 상담 기록\n"))
	assert.Less(t, strings.Index(text, "첫 번째 질문"), strings.Index(text, "세 번째 질문"), "export is oldest first")
	assert.NotContains(t, text, "다른 사용자")

	_, err = uc.ExportHistory(ctx, "nobody", "pdf")
	assert.ErrorIs(t, err, entity.ErrNothingToExport)

	_, err = uc.ExportHistory(ctx, "u1", "xlsx")
	assert.ErrorIs(t, err, entity.ErrUnsupportedFormat)
}

func TestStatus(t *testing.T) {
	uc := newTestUsecase(&fakePipeline{}, &fakeQueryRepo{}, nil, nil)

	status := uc.Status()
	assert.True(t, status.PersistenceEnabled)
	assert.Equal(t, 6, status.IndexSize)
}

func TestReloadModel(t *testing.T) {
	uc := newTestUsecase(&fakePipeline{}, nil, nil, nil)
	assert.ErrorIs(t, uc.ReloadModel(context.Background()), entity.ErrBackendNotReady)

	reloader := &fakeReloader{}
	uc = newTestUsecase(&fakePipeline{}, nil, nil, reloader)
	require.NoError(t, uc.ReloadModel(context.Background()))
	assert.Equal(t, 1, reloader.calls)

	reloader.err = entity.ErrBackendNotReady
	assert.ErrorIs(t, uc.ReloadModel(context.Background()), entity.ErrBackendNotReady)
}
