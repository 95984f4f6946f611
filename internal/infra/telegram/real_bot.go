package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"storefront-billing/internal/domain/ports/adapter"
)

// RealChatSink delivers messages to conversations through the Telegram Bot
// API. Only delivery lives here; what the messages say is decided upstream.
type RealChatSink struct {
	bot *tgbotapi.BotAPI
}

var _ adapter.ChatSink = (*RealChatSink)(nil)

func NewRealChatSink(token string) (*RealChatSink, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &RealChatSink{bot: bot}, nil
}

func (s *RealChatSink) SendMessage(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	_, err := s.bot.Send(msg)
	return err
}
