package chat

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/futig/advisor-backend/internal/entity"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUsecase struct {
	answer    *entity.Answer
	chunks    []string
	err       error
	history   []entity.QueryRecord
	export    *entity.ExportFile
	gotLimit  int
	reloadErr error
}

func (f *fakeUsecase) Ask(_ context.Context, req *entity.ChatRequest) (*entity.Answer, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.answer, nil
}

func (f *fakeUsecase) Stream(ctx context.Context, req *entity.ChatRequest) (*entity.Answer, <-chan string, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	ch := make(chan string, len(f.chunks))
	for _, c := range f.chunks {
		ch <- c
	}
	close(ch)
	return f.answer, ch, nil
}

func (f *fakeUsecase) SubmitFeedback(_ context.Context, req *entity.FeedbackRequest) (*entity.FeedbackRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &entity.FeedbackRecord{ID: uuid.New(), QueryID: uuid.MustParse(req.QueryID), Rating: req.Rating}, nil
}

func (f *fakeUsecase) ListHistory(_ context.Context, userID string, limit int) ([]entity.QueryRecord, error) {
	f.gotLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	return f.history, nil
}

func (f *fakeUsecase) ExportHistory(_ context.Context, userID, format string) (*entity.ExportFile, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.export, nil
}

func (f *fakeUsecase) Categories() []entity.CategoryInfo {
	return entity.CategoryInfos()
}

func (f *fakeUsecase) Status() entity.ComponentStatus {
	return entity.ComponentStatus{EmbeddingMode: "degraded:sha256", EmbeddingDimension: 384, ActiveBackend: entity.BackendMock}
}

func (f *fakeUsecase) ReloadModel(context.Context) error {
	return f.reloadErr
}

func newServer(uc *fakeUsecase) *httptest.Server {
	r := chi.NewRouter()
	RegisterRoutes(r, NewHandler(uc))
	return httptest.NewServer(r)
}

func sampleAnswer() *entity.Answer {
	return &entity.Answer{
		QueryID: uuid.MustParse("7d9f5a2c-8d4e-4c1b-9a35-2f0b6c1e4d11"),
		Result: entity.PipelineResult{
			Response:       "[건강 전문 상담사] 정기적인 혈압 측정이 중요해요.",
			Category:       entity.CategoryHealth,
			RetrievedCount: 1,
			BackendUsed:    entity.BackendMock,
			Sources: []entity.RetrievalResult{
				{DocumentID: 1, Text: "고혈압 관리", Score: 0.8, Rank: 1, Category: entity.CategoryHealth, Metadata: map[string]string{"k": "v"}},
			},
			ProcessingTime: 12 * time.Millisecond,
		},
	}
}

func TestChat(t *testing.T) {
	srv := newServer(&fakeUsecase{answer: sampleAnswer()})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/v1/chat", "application/json", strings.NewReader(`{"question":"혈압 관리 방법"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body entity.ChatResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "7d9f5a2c-8d4e-4c1b-9a35-2f0b6c1e4d11", body.QueryID)
	assert.Equal(t, entity.CategoryHealth, body.Category)
	assert.Equal(t, entity.BackendMock, body.BackendUsed)
	assert.Equal(t, int64(12), body.ProcessingTimeMs)
	require.Len(t, body.Sources, 1)
	assert.Equal(t, 1, body.Sources[0].Rank)
}

func TestChat_OmitsQueryIDWhenNotPersisted(t *testing.T) {
	answer := sampleAnswer()
	answer.QueryID = uuid.Nil
	srv := newServer(&fakeUsecase{answer: answer})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/v1/chat", "application/json", strings.NewReader(`{"question":"q"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	var raw map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	assert.NotContains(t, raw, "query_id")
}

func TestChat_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
	}{
		{name: "malformed json", body: `{"question":`, status: http.StatusBadRequest},
		{name: "validation", body: `{"question":""}`, err: entity.ErrMissingField, status: http.StatusBadRequest},
		{name: "too long", body: `{"question":"q"}`, err: entity.ErrQuestionTooLong, status: http.StatusBadRequest},
		{name: "unknown category", body: `{"question":"q","category":"x"}`, err: entity.ErrUnknownCategory, status: http.StatusBadRequest},
		{name: "unexpected", body: `{"question":"q"}`, err: assert.AnError, status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(&fakeUsecase{answer: sampleAnswer(), err: tt.err})
			defer srv.Close()

			resp, err := http.Post(srv.URL+"/api/v1/chat", "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.status, resp.StatusCode)

			var body entity.ErrorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, http.StatusText(tt.status), body.Error)
		})
	}
}

func TestChatStream(t *testing.T) {
	srv := newServer(&fakeUsecase{answer: sampleAnswer(), chunks: []string{"정기적인 ", "혈압 ", "측정"}})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/v1/chat/stream", "application/json", strings.NewReader(`{"question":"혈압"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	var (
		events []string
		text   strings.Builder
		event  string
	)
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
			events = append(events, event)
		case strings.HasPrefix(line, "data: ") && event == eventChunk:
			var chunk entity.StreamChunk
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &chunk))
			text.WriteString(chunk.Text)
		case strings.HasPrefix(line, "data: ") && event == eventMeta:
			var meta entity.StreamMeta
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &meta))
			assert.Equal(t, entity.CategoryHealth, meta.Category)
			assert.Equal(t, 1, meta.RetrievedCount)
		}
	}
	require.NoError(t, scanner.Err())

	assert.Equal(t, []string{"meta", "chunk", "chunk", "chunk", "done"}, events)
	assert.Equal(t, "정기적인 혈압 측정", text.String())
}

func TestChatStream_ValidationErrorIsJSON(t *testing.T) {
	srv := newServer(&fakeUsecase{err: entity.ErrMissingField})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/v1/chat/stream", "application/json", strings.NewReader(`{"question":" "}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestCategoriesAndStatus(t *testing.T) {
	srv := newServer(&fakeUsecase{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/categories")
	require.NoError(t, err)
	var categories struct {
		Categories []entity.CategoryInfo `json:"categories"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&categories))
	resp.Body.Close()

	require.Len(t, categories.Categories, 4)
	assert.Equal(t, entity.CategoryHealth, categories.Categories[0].ID)
	assert.Equal(t, "건강 상담", categories.Categories[0].Name)

	resp, err = http.Get(srv.URL + "/api/v1/status")
	require.NoError(t, err)
	var status entity.ComponentStatus
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	resp.Body.Close()

	assert.Equal(t, 384, status.EmbeddingDimension)
	assert.Equal(t, entity.BackendMock, status.ActiveBackend)
}

func TestReloadModel(t *testing.T) {
	uc := &fakeUsecase{}
	srv := newServer(uc)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/v1/model/reload", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	uc.reloadErr = entity.ErrBackendNotReady
	resp, err = http.Post(srv.URL+"/api/v1/model/reload", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestSubmitFeedback(t *testing.T) {
	srv := newServer(&fakeUsecase{})
	defer srv.Close()

	queryID := uuid.NewString()
	resp, err := http.Post(srv.URL+"/api/v1/feedback", "application/json",
		strings.NewReader(`{"query_id":"`+queryID+`","user_id":"u1","rating":5}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var body entity.FeedbackResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, queryID, body.QueryID)
	assert.Equal(t, 5, body.Rating)
}

func TestHistory(t *testing.T) {
	uc := &fakeUsecase{history: []entity.QueryRecord{{
		ID:          uuid.New(),
		UserID:      "u1",
		Question:    "혈압 관리 방법",
		Category:    entity.CategoryHealth,
		BackendUsed: entity.BackendMock,
		CreatedAt:   time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	}}}
	srv := newServer(uc)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/history?user_id=u1&limit=5")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 5, uc.gotLimit)

	var body entity.HistoryResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Items, 1)
	assert.Equal(t, "2025-03-01T09:00:00Z", body.Items[0].CreatedAt)

	resp2, err := http.Get(srv.URL + "/api/v1/history?user_id=u1&limit=abc")
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp2.StatusCode)
}

func TestHistory_PersistenceDisabled(t *testing.T) {
	srv := newServer(&fakeUsecase{err: entity.ErrHistoryUnavailable})
	defer srv.Close()

	for _, path := range []string{"/api/v1/history?user_id=u1", "/api/v1/history/export?user_id=u1"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode, path)
	}
}

func TestExportHistory(t *testing.T) {
	srv := newServer(&fakeUsecase{export: &entity.ExportFile{
		Filename:    "advisor-history.md",
		ContentType: "text/markdown; charset=utf-8",
		Data:        []byte("# 상담 기록\n"),
	}})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/history/export?user_id=u1&format=markdown")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/markdown; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Equal(t, `attachment; filename="advisor-history.md"`, resp.Header.Get("Content-Disposition"))
}

func TestExportHistory_NothingToExport(t *testing.T) {
	srv := newServer(&fakeUsecase{err: entity.ErrNothingToExport})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/history/export?user_id=u1")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
