package telegram

import (
	"context"
	"fmt"

	"github.com/futig/advisor-backend/internal/config"
	"github.com/futig/advisor-backend/internal/telegram/bot"
	"github.com/futig/advisor-backend/internal/telegram/handlers"
	"github.com/futig/advisor-backend/internal/telegram/state"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Bot is the main telegram bot interface
type Bot interface {
	Start(ctx context.Context) error
	Stop() error
}

// NewBot authorizes against the Bot API and wires the chat handler
func NewBot(cfg *config.TelegramConfig, usecase handlers.QueryUsecase, logger *zap.Logger) (Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("create bot API: %w", err)
	}
	api.Debug = false

	logger.Info("telegram bot authorized",
		zap.String("username", api.Self.UserName),
		zap.Int64("id", api.Self.ID),
	)

	store := state.NewStore(cfg.StateTTL)
	chatHandler := handlers.NewChatHandler(api, usecase, store, cfg.SendRetry, logger)

	logger.Info("telegram bot initialized successfully")

	return bot.New(cfg, api, chatHandler, logger), nil
}
