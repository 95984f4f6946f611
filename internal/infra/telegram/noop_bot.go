package telegram

import (
	"context"
	"log"

	"storefront-billing/internal/domain/ports/adapter"
)

// NoopChatSink implements adapter.ChatSink for local/dev runs.
// It logs messages instead of sending real Telegram messages.
type NoopChatSink struct{}

var _ adapter.ChatSink = (*NoopChatSink)(nil)

func NewNoopChatSink() *NoopChatSink {
	return &NoopChatSink{}
}

func (b *NoopChatSink) SendMessage(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	log.Printf("[noop-chat] to chat %d: %s\n", chatID, text)
	return nil
}
