package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/futig/advisor-backend/internal/entity"
	pkgRetry "github.com/futig/advisor-backend/internal/pkg/retry"
	"github.com/futig/advisor-backend/internal/telegram/keyboard"
	"github.com/futig/advisor-backend/internal/telegram/render"
	"github.com/futig/advisor-backend/internal/telegram/state"
	"github.com/google/uuid"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// ChatHandler answers questions sent to the bot
type ChatHandler struct {
	bot      BotAPI
	usecase  QueryUsecase
	store    *state.Store
	keyboard *keyboard.Builder
	sender   *MessageSender
	logger   *zap.Logger
}

func NewChatHandler(
	bot BotAPI,
	usecase QueryUsecase,
	store *state.Store,
	sendRetry pkgRetry.RetryConfig,
	logger *zap.Logger,
) *ChatHandler {
	return &ChatHandler{
		bot:      bot,
		usecase:  usecase,
		store:    store,
		keyboard: keyboard.NewBuilder(),
		sender:   NewMessageSender(bot, sendRetry, logger),
		logger:   logger,
	}
}

var _ Handler = &ChatHandler{}

// HandleCommand handles /start, /auto and /help
func (h *ChatHandler) HandleCommand(ctx context.Context, msg *Message) error {
	switch msg.Command {
	case "start":
		return h.sender.Send(ctx, msg.ChatID, render.MsgWelcome, h.keyboard.CategoryKeyboard())
	case "auto":
		h.store.ClearCategory(msg.ChatID)
		return h.sender.Send(ctx, msg.ChatID, render.MsgAuto, nil)
	case "help":
		return h.sender.Send(ctx, msg.ChatID, render.MsgHelp, nil)
	default:
		return h.sender.Send(ctx, msg.ChatID, render.ErrUnknownCommand, nil)
	}
}

// HandleText treats any plain text as a question
func (h *ChatHandler) HandleText(ctx context.Context, msg *Message) error {
	st := h.store.Get(msg.ChatID)

	typing := StartTyping(ctx, h.bot, msg.ChatID, h.logger)
	answer, err := h.usecase.Ask(ctx, &entity.ChatRequest{
		Question: msg.Text,
		Category: st.Category.String(),
		UserID:   userKey(msg.UserID),
	})
	typing.Stop()

	if err != nil {
		switch {
		case errors.Is(err, entity.ErrMissingField):
			return h.sender.Send(ctx, msg.ChatID, render.ErrEmptyQuestion, nil)
		case errors.Is(err, entity.ErrQuestionTooLong):
			return h.sender.Send(ctx, msg.ChatID, render.ErrQuestionTooLong, nil)
		default:
			return fmt.Errorf("ask: %w", err)
		}
	}

	ctxzap.Info(ctx, "telegram question answered",
		zap.String("category", answer.Result.Category.String()),
		zap.String("backend", string(answer.Result.BackendUsed)),
		zap.Bool("degraded", answer.Result.Degraded),
	)

	var markup any
	if answer.QueryID != uuid.Nil {
		queryID := answer.QueryID.String()
		h.store.SetLastQuery(msg.ChatID, queryID)
		markup = h.keyboard.RatingKeyboard(queryID)
	}

	return h.sender.Send(ctx, msg.ChatID, render.Answer(answer.Result), markup)
}

// HandleCallback handles category buttons and ratings
func (h *ChatHandler) HandleCallback(ctx context.Context, msg *Message) error {
	data, err := keyboard.ParseCallback(msg.CallbackData)
	if err != nil {
		h.sender.AnswerCallback(msg.CallbackID, "")
		return err
	}

	switch data.Action {
	case keyboard.ActionCategory:
		return h.selectCategory(ctx, msg, data.Value)
	case keyboard.ActionRate:
		return h.rate(ctx, msg, data.Value)
	default:
		h.sender.AnswerCallback(msg.CallbackID, "")
		return fmt.Errorf("unknown callback action: %s", data.Action)
	}
}

func (h *ChatHandler) selectCategory(ctx context.Context, msg *Message, value string) error {
	h.sender.AnswerCallback(msg.CallbackID, "")

	if value == keyboard.CategoryAuto {
		h.store.ClearCategory(msg.ChatID)
		return h.sender.Send(ctx, msg.ChatID, render.MsgAuto, nil)
	}

	category, err := entity.ParseCategory(value)
	if err != nil {
		return err
	}
	h.store.PinCategory(msg.ChatID, category)

	return h.sender.Send(ctx, msg.ChatID, render.CategoryFixed(category), nil)
}

func (h *ChatHandler) rate(ctx context.Context, msg *Message, value string) error {
	queryID, rating, err := keyboard.ParseRating(value)
	if err != nil {
		h.sender.AnswerCallback(msg.CallbackID, "")
		return err
	}

	_, err = h.usecase.SubmitFeedback(ctx, &entity.FeedbackRequest{
		QueryID: queryID,
		UserID:  userKey(msg.UserID),
		Rating:  rating,
	})
	if err != nil {
		ctxzap.Warn(ctx, "failed to save telegram feedback", zap.Error(err))
		h.sender.AnswerCallback(msg.CallbackID, render.ErrFeedbackFailed)
		return nil
	}

	h.sender.AnswerCallback(msg.CallbackID, render.MsgThanks)
	return nil
}

// userKey namespaces Telegram users in the shared history
func userKey(userID int64) string {
	return "telegram:" + strconv.FormatInt(userID, 10)
}
