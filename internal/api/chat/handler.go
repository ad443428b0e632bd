package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/futig/advisor-backend/internal/entity"
	"github.com/futig/advisor-backend/internal/pkg/logger"
	"github.com/futig/advisor-backend/internal/pkg/response"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const (
	maxBodyBytes = 1 << 20

	eventMeta  = "meta"
	eventChunk = "chunk"
	eventDone  = "done"
)

type Handler struct {
	usecase QueryUsecase
}

func NewHandler(usecase QueryUsecase) *Handler {
	return &Handler{usecase: usecase}
}

// Chat handles POST /api/v1/chat
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "Chat")

	var req entity.ChatRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	answer, err := h.usecase.Ask(ctx, &req)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	ctxzap.Info(ctx, "question answered",
		zap.String("category", answer.Result.Category.String()),
		zap.String("backend", string(answer.Result.BackendUsed)),
		zap.Bool("degraded", answer.Result.Degraded),
		zap.Int("retrieved", answer.Result.RetrievedCount),
	)

	response.JSON(w, http.StatusOK, toChatResponse(answer))
}

// ChatStream handles POST /api/v1/chat/stream as server-sent events:
// one meta event, chunk events with the answer text and a final done event
func (h *Handler) ChatStream(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "ChatStream")

	var req entity.ChatRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	answer, chunks, err := h.usecase.Stream(ctx, &req)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	stream, err := response.NewEventStream(w)
	if err != nil {
		h.respondError(ctx, w, http.StatusInternalServerError, "streaming unsupported", err)
		return
	}

	if err := stream.Send(eventMeta, toStreamMeta(answer)); err != nil {
		ctxzap.Warn(ctx, "failed to send stream meta", zap.Error(err))
		return
	}

	for chunk := range chunks {
		if err := stream.Send(eventChunk, entity.StreamChunk{Text: chunk}); err != nil {
			// client went away, the producer stops on ctx cancellation
			ctxzap.Debug(ctx, "stream aborted", zap.Error(err))
			return
		}
	}
	if ctx.Err() != nil {
		return
	}

	if err := stream.Send(eventDone, entity.StreamDone{ProcessingTimeMs: answer.Result.ProcessingTime.Milliseconds()}); err != nil {
		ctxzap.Debug(ctx, "failed to send stream end", zap.Error(err))
	}
}

// Categories handles GET /api/v1/categories
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]any{
		"categories": h.usecase.Categories(),
	})
}

// Status handles GET /api/v1/status
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, h.usecase.Status())
}

// ReloadModel handles POST /api/v1/model/reload
func (h *Handler) ReloadModel(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "ReloadModel")

	if err := h.usecase.ReloadModel(ctx); err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{
		"status":  "reloaded",
		"message": "local model loaded",
	})
}

// SubmitFeedback handles POST /api/v1/feedback
func (h *Handler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "SubmitFeedback")

	var req entity.FeedbackRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	feedback, err := h.usecase.SubmitFeedback(ctx, &req)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	ctxzap.Info(ctx, "feedback saved",
		zap.String("query_id", req.QueryID),
		zap.Int("rating", req.Rating),
	)

	response.JSON(w, http.StatusCreated, toFeedbackResponse(feedback))
}

// History handles GET /api/v1/history?user_id=&limit=
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	ctx := logger.WithUser(r.Context(), "History", userID)

	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	records, err := h.usecase.ListHistory(ctx, userID, limit)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	response.JSON(w, http.StatusOK, toHistoryResponse(userID, records))
}

// ExportHistory handles GET /api/v1/history/export?user_id=&format=
func (h *Handler) ExportHistory(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	format := r.URL.Query().Get("format")
	ctx := logger.AddFields(logger.WithUser(r.Context(), "ExportHistory", userID),
		zap.String("format", format),
	)

	file, err := h.usecase.ExportHistory(ctx, userID, format)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	ctxzap.Info(ctx, "history exported", zap.Int("bytes", len(file.Data)))
	response.Attachment(w, file.Filename, file.ContentType, file.Data)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", entity.ErrInvalidFormat, err)
	}
	return nil
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: limit must be a number", entity.ErrInvalidFormat)
	}
	return limit, nil
}

func (h *Handler) respondError(ctx context.Context, w http.ResponseWriter, status int, message string, err error) {
	if status >= http.StatusInternalServerError {
		ctxzap.Error(ctx, message, zap.Error(err))
	} else {
		ctxzap.Info(ctx, message, zap.Error(err))
	}
	response.Error(w, status, fmt.Sprintf("%s: %v", message, err))
}

func (h *Handler) handleUsecaseError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, entity.ErrMissingField),
		errors.Is(err, entity.ErrInvalidFormat),
		errors.Is(err, entity.ErrInvalidParameter),
		errors.Is(err, entity.ErrUnknownCategory),
		errors.Is(err, entity.ErrQuestionTooLong),
		errors.Is(err, entity.ErrUnsupportedFormat):
		h.respondError(ctx, w, http.StatusBadRequest, "invalid request", err)
	case errors.Is(err, entity.ErrQueryNotFound), errors.Is(err, entity.ErrNothingToExport):
		h.respondError(ctx, w, http.StatusNotFound, "resource not found", err)
	case errors.Is(err, entity.ErrHistoryUnavailable), errors.Is(err, entity.ErrBackendNotReady):
		h.respondError(ctx, w, http.StatusServiceUnavailable, "service unavailable", err)
	default:
		h.respondError(ctx, w, http.StatusInternalServerError, "internal server error", err)
	}
}
