package handlers

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Message represents a normalized Telegram message or button press
type Message struct {
	ChatID       int64
	UserID       int64
	MessageID    int
	Text         string
	Command      string
	CallbackData string
	CallbackID   string
}

// Handler processes normalized updates
type Handler interface {
	HandleCommand(ctx context.Context, msg *Message) error
	HandleText(ctx context.Context, msg *Message) error
	HandleCallback(ctx context.Context, msg *Message) error
}

// FromUpdate normalizes an update, nil for update kinds the bot ignores
func FromUpdate(update tgbotapi.Update) *Message {
	switch {
	case update.Message != nil && update.Message.From != nil && update.Message.Chat != nil:
		m := update.Message
		msg := &Message{
			ChatID:    m.Chat.ID,
			UserID:    m.From.ID,
			MessageID: m.MessageID,
			Text:      m.Text,
		}
		if m.IsCommand() {
			msg.Command = m.Command()
		}
		return msg
	case update.CallbackQuery != nil && update.CallbackQuery.From != nil && update.CallbackQuery.Message != nil && update.CallbackQuery.Message.Chat != nil:
		q := update.CallbackQuery
		return &Message{
			ChatID:       q.Message.Chat.ID,
			UserID:       q.From.ID,
			MessageID:    q.Message.MessageID,
			CallbackData: q.Data,
			CallbackID:   q.ID,
		}
	default:
		return nil
	}
}
