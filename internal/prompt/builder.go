package prompt

import (
	"context"

	"github.com/stupiduntilnot/picrelay/internal/history"
)

// SystemInstruction describes the two reply shapes the model may use. It is
// never stored; Build prepends it to every prompt.
const SystemInstruction = "You are a helpful assistant. You can answer with two types of messages: message and picture. " +
	"If user asks you to draw or paint something, you try to figure out what they want to be " +
	"drawn and reply with a description of the picture " +
	"user asked for with the following format: '[picture] description'. " +
	"Do not add 'the picture is a' in the beginning." +
	"For example: '[picture] a cat sitting on a chair'. " +
	"You should not add anything to the description other than what the user asked for." +
	"The description of the picture should be in English, you should translate it if necessary. " +
	"In other cases you reply with a message in the following format: '[message] message'."

// HistoryReader retrieves a user's recent messages, oldest first.
type HistoryReader interface {
	Recent(ctx context.Context, userID int64, limit int) ([]history.Message, error)
}

// Builder turns stored history into the message list sent to the model.
type Builder struct {
	History HistoryReader
	Limit   int
}

// NewBuilder creates a Builder reading up to limit past messages.
func NewBuilder(h HistoryReader, limit int) *Builder {
	if limit <= 0 {
		limit = history.DefaultLimit
	}
	return &Builder{History: h, Limit: limit}
}

// Build returns the system instruction followed by the user's recent
// history in chronological order.
func (b *Builder) Build(ctx context.Context, userID int64) ([]history.Message, error) {
	past, err := b.History.Recent(ctx, userID, b.Limit)
	if err != nil {
		return nil, err
	}
	return Assemble(SystemInstruction, past), nil
}

// Assemble combines a system prompt and history into one ordered list.
func Assemble(system string, past []history.Message) []history.Message {
	messages := make([]history.Message, 0, 1+len(past))
	messages = append(messages, history.Message{Role: history.RoleSystem, Content: system})
	messages = append(messages, past...)
	return messages
}
