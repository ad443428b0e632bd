package handlers

import (
	"context"

	"github.com/futig/advisor-backend/internal/entity"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// QueryUsecase is the subset of query operations the bot needs
type QueryUsecase interface {
	Ask(ctx context.Context, req *entity.ChatRequest) (*entity.Answer, error)
	SubmitFeedback(ctx context.Context, req *entity.FeedbackRequest) (*entity.FeedbackRecord, error)
}

// BotAPI is the Telegram client; *tgbotapi.BotAPI satisfies it
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}
