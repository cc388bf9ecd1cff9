package telegram

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// sendMessage sends a message to a topic
func (n *Notifier) sendMessage(ctx context.Context, chatID int64, topicID int, text string) (*models.Message, error) {
	return n.sendMessageWithKeyboard(ctx, chatID, topicID, text, nil)
}

// sendMessageWithKeyboard sends a message with inline keyboard
func (n *Notifier) sendMessageWithKeyboard(ctx context.Context, chatID int64, topicID int, text string, keyboard *models.InlineKeyboardMarkup) (*models.Message, error) {
	disabled := true
	params := &bot.SendMessageParams{
		ChatID:             chatID,
		Text:               text,
		ParseMode:          models.ParseModeHTML,
		LinkPreviewOptions: &models.LinkPreviewOptions{IsDisabled: &disabled},
	}

	if keyboard != nil {
		params.ReplyMarkup = keyboard
	}

	if topicID != 0 {
		params.MessageThreadID = topicID
	}

	return n.bot.SendMessage(ctx, params)
}

// allowed reports whether a command comes from the configured chat
func (n *Notifier) allowed(update *models.Update) bool {
	return update.Message != nil && update.Message.Chat.ID == n.chatID
}
