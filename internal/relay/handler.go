package relay

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stupiduntilnot/picrelay/internal/history"
	"github.com/stupiduntilnot/picrelay/internal/image"
	modelpkg "github.com/stupiduntilnot/picrelay/internal/model"
	"github.com/stupiduntilnot/picrelay/internal/reply"
)

// FailureText is sent when the completion call fails.
const FailureText = "Sorry, something went wrong. Please try again later."

// apologyTimeout bounds the failure notice, which is sent on a context
// detached from the (possibly expired) turn context.
const apologyTimeout = 10 * time.Second

// HistoryWriter persists conversation turns.
type HistoryWriter interface {
	Append(ctx context.Context, userID int64, role, content string) error
}

// ContextBuilder produces the message list sent to the model.
type ContextBuilder interface {
	Build(ctx context.Context, userID int64) ([]history.Message, error)
}

// ImageRequester generates a picture for a description.
type ImageRequester interface {
	Request(ctx context.Context, description string) (string, bool)
}

// Sender delivers replies to the chat platform.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendPhoto(ctx context.Context, chatID int64, photoURL string) error
}

// Handler runs one conversation turn per inbound text message.
type Handler struct {
	History     HistoryWriter
	Builder     ContextBuilder
	Model       modelpkg.Provider
	Images      ImageRequester
	Sender      Sender
	Logger      *zap.SugaredLogger
	TurnTimeout time.Duration
}

// Handle persists the user's text, asks the model for a reply, persists the
// raw reply and dispatches it. The chat id doubles as the user id.
func (h *Handler) Handle(ctx context.Context, chatID int64, text string) error {
	if h.TurnTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.TurnTimeout)
		defer cancel()
	}
	log := h.Logger.With("turn_id", uuid.NewString(), "chat_id", chatID)
	log.Infow("New message", "text", text)

	if err := h.History.Append(ctx, chatID, history.RoleUser, text); err != nil {
		return fmt.Errorf("persist user message: %w", err)
	}
	messages, err := h.Builder.Build(ctx, chatID)
	if err != nil {
		return fmt.Errorf("build context: %w", err)
	}
	log.Debugw("Messages history", "count", len(messages), "messages", messages)

	started := time.Now()
	resp, err := h.Model.ChatCompletion(ctx, messages)
	if err != nil {
		log.Errorw("Completion failed", "duration", time.Since(started).String(), "error", err)
		h.apologize(ctx, log, chatID)
		return fmt.Errorf("completion: %w", err)
	}
	log.Infow("Response from model",
		"content", resp.Content,
		"duration", time.Since(started).String(),
		"input_tokens", resp.InputTokens,
		"output_tokens", resp.OutputTokens,
	)

	if err := h.History.Append(ctx, chatID, history.RoleAssistant, resp.Content); err != nil {
		return fmt.Errorf("persist assistant message: %w", err)
	}

	return h.dispatch(ctx, log, chatID, reply.Parse(resp.Content))
}

func (h *Handler) dispatch(ctx context.Context, log *zap.SugaredLogger, chatID int64, action reply.Action) error {
	switch action.Kind {
	case reply.Text:
		if strings.TrimSpace(action.Payload) == "" {
			log.Warnw("Reply has an empty [message] payload, sending it raw", "raw", action.Raw)
			return h.sendText(ctx, chatID, action.Raw)
		}
		return h.sendText(ctx, chatID, action.Payload)
	case reply.Image:
		url, ok := h.Images.Request(ctx, action.Payload)
		if !ok {
			return h.sendText(ctx, chatID, image.ApologyText)
		}
		if err := h.Sender.SendPhoto(ctx, chatID, url); err != nil {
			return fmt.Errorf("send photo: %w", err)
		}
		return nil
	default:
		log.Warnw("Reply has no [message] or [picture] tag, sending it as text", "raw", action.Raw)
		if strings.TrimSpace(action.Raw) == "" {
			return h.sendText(ctx, chatID, FailureText)
		}
		return h.sendText(ctx, chatID, action.Raw)
	}
}

func (h *Handler) sendText(ctx context.Context, chatID int64, text string) error {
	if err := h.Sender.SendMessage(ctx, chatID, text); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func (h *Handler) apologize(ctx context.Context, log *zap.SugaredLogger, chatID int64) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), apologyTimeout)
	defer cancel()
	if err := h.Sender.SendMessage(ctx, chatID, FailureText); err != nil {
		log.Warnw("Failed to send failure notice", "error", err)
	}
}
