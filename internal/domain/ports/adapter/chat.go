package adapter

import "context"

// ChatSink is the delivery contract toward the chat interface where codes
// are requested and issued. Message formatting lives with the bot, not here.
type ChatSink interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}
