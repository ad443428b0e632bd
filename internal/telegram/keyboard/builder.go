package keyboard

import (
	"strconv"

	"github.com/futig/advisor-backend/internal/entity"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Builder creates inline keyboards
type Builder struct{}

// NewBuilder creates a keyboard builder
func NewBuilder() *Builder {
	return &Builder{}
}

// CategoryKeyboard lists the categories two per row and an automatic option
func (b *Builder) CategoryKeyboard() tgbotapi.InlineKeyboardMarkup {
	var (
		rows [][]tgbotapi.InlineKeyboardButton
		row  []tgbotapi.InlineKeyboardButton
	)

	for _, info := range entity.CategoryInfos() {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(
			info.Name,
			EncodeCallback(ActionCategory, info.ID.String()),
		))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🔎 자동 분류", EncodeCallback(ActionCategory, CategoryAuto)),
	))

	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// RatingKeyboard asks for a 1..5 rating of an answer
func (b *Builder) RatingKeyboard(queryID string) tgbotapi.InlineKeyboardMarkup {
	row := make([]tgbotapi.InlineKeyboardButton, 0, 5)
	for rating := 1; rating <= 5; rating++ {
		label := strconv.Itoa(rating) + "⭐"
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(
			label,
			EncodeCallback(ActionRate, queryID+":"+strconv.Itoa(rating)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}
