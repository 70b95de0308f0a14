package poller

import (
	"context"
	"time"

	"go.uber.org/zap"

	cmdpkg "github.com/stupiduntilnot/picrelay/internal/commander"
)

// UpdateSource delivers inbound updates.
type UpdateSource interface {
	GetUpdates(ctx context.Context, offset int64, timeout int) ([]cmdpkg.Update, error)
}

// MessageHandler processes one inbound text.
type MessageHandler interface {
	Handle(ctx context.Context, chatID int64, text string) error
}

// Poller long-polls an UpdateSource and hands text messages to a
// MessageHandler one at a time, in update order.
type Poller struct {
	Source      UpdateSource
	Handler     MessageHandler
	Logger      *zap.SugaredLogger
	PollTimeout int
	Sleep       time.Duration
	Breaker     *CircuitBreaker

	DropPending        bool
	PendingWindow      time.Duration
	PendingMaxMessages int

	now func() time.Time
}

func (p *Poller) clock() time.Time {
	if p.now != nil {
		return p.now()
	}
	return time.Now()
}

// Run polls until ctx is cancelled. A turn already in progress is allowed to
// finish; its own timeout still applies.
func (p *Poller) Run(ctx context.Context) error {
	if p.Breaker == nil {
		p.Breaker = NewCircuitBreaker(5, 30*time.Second)
	}

	var offset int64
	if p.DropPending {
		bootstrapped, err := BootstrapOffset(ctx, p.Source, p.PendingWindow, p.PendingMaxMessages, p.clock())
		if err != nil {
			p.Logger.Warnw("Bootstrap offset failed, starting from the oldest pending update", "error", err)
		} else {
			offset = bootstrapped
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		if !p.Breaker.Allow(p.clock()) {
			p.wait(ctx)
			continue
		}

		prev := p.Breaker.State()
		next, err := p.PollOnce(ctx, offset)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			p.Breaker.RecordFailure(p.clock())
			p.Logger.Warnw("getUpdates failed", "error", err, "circuit", p.Breaker.State())
			if prev != CircuitOpen && p.Breaker.State() == CircuitOpen {
				p.Logger.Errorw("Polling paused after repeated failures",
					"threshold", p.Breaker.Threshold,
					"cooldown", p.Breaker.Cooldown.String(),
				)
			}
			p.wait(ctx)
			continue
		}
		if prev != CircuitClosed {
			p.Logger.Infow("Polling recovered")
		}
		p.Breaker.RecordSuccess()
		offset = next
	}
}

// PollOnce fetches one batch of updates starting at offset, dispatches the
// text messages and returns the next offset. Handler errors are logged and
// do not stop the batch.
func (p *Poller) PollOnce(ctx context.Context, offset int64) (int64, error) {
	updates, err := p.Source.GetUpdates(ctx, offset, p.PollTimeout)
	if err != nil {
		return offset, err
	}
	for _, update := range updates {
		offset = update.UpdateID + 1

		if update.Message == nil || update.Message.Text == nil {
			continue
		}
		text := *update.Message.Text
		if len(text) == 0 {
			continue
		}

		chatID := update.Message.Chat.ID
		if err := p.Handler.Handle(context.WithoutCancel(ctx), chatID, text); err != nil {
			p.Logger.Errorw("Turn failed", "chat_id", chatID, "update_id", update.UpdateID, "error", err)
		}
	}
	return offset, nil
}

func (p *Poller) wait(ctx context.Context) {
	t := time.NewTimer(p.Sleep)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// BootstrapOffset returns the offset that skips pending updates older than
// window, keeping at most maxMessages of the recent ones.
func BootstrapOffset(ctx context.Context, src UpdateSource, window time.Duration, maxMessages int, now time.Time) (int64, error) {
	updates, err := src.GetUpdates(ctx, 0, 0)
	if err != nil {
		return 0, err
	}
	if len(updates) == 0 {
		return 0, nil
	}

	cutoff := now.Add(-window).Unix()

	var inWindow []cmdpkg.Update
	for _, u := range updates {
		if u.Message != nil && u.Message.Date >= cutoff {
			inWindow = append(inWindow, u)
		}
	}

	if len(inWindow) == 0 {
		return updates[len(updates)-1].UpdateID + 1, nil
	}

	if maxMessages > 0 && len(inWindow) > maxMessages {
		inWindow = inWindow[len(inWindow)-maxMessages:]
	}

	return inWindow[0].UpdateID, nil
}
