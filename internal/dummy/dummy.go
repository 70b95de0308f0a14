// Package dummy provides scripted stand-ins for the chat platform and the
// model provider, used for offline runs and tests.
//
// A script is a comma separated list of actions consumed one per call; the
// last action repeats once the script is exhausted. Actions:
//
//	ok          default success
//	err:<class> fail with an error mentioning class
//	sleep:<ms>  wait, then succeed
//	msg:<text>  deliver text (an update for commanders, a reply for providers)
//	msgb64:<b>  like msg, base64 encoded so the text may contain commas
//	url:<url>   image URL returned by GenerateImage
package dummy

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	cmdpkg "github.com/stupiduntilnot/picrelay/internal/commander"
	"github.com/stupiduntilnot/picrelay/internal/history"
	modelpkg "github.com/stupiduntilnot/picrelay/internal/model"
)

type action struct {
	kind string
	arg  string
}

var actionKinds = []string{"err", "sleep", "msg", "msgb64", "url"}

func parseScript(script string) ([]action, error) {
	if strings.TrimSpace(script) == "" {
		return []action{{kind: "ok"}}, nil
	}
	parts := strings.Split(script, ",")
	actions := make([]action, 0, len(parts))
	for _, p := range parts {
		token := strings.TrimSpace(p)
		if token == "" {
			continue
		}
		if token == "ok" {
			actions = append(actions, action{kind: "ok"})
			continue
		}
		a, err := parseAction(token)
		if err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	if len(actions) == 0 {
		actions = append(actions, action{kind: "ok"})
	}
	return actions, nil
}

func parseAction(token string) (action, error) {
	kind, arg, found := strings.Cut(token, ":")
	if !found {
		return action{}, fmt.Errorf("invalid dummy action: %s", token)
	}
	for _, k := range actionKinds {
		if k != kind {
			continue
		}
		if kind == "msgb64" {
			raw, err := base64.StdEncoding.DecodeString(arg)
			if err != nil {
				return action{}, fmt.Errorf("dummy msgb64 decode failed: %w", err)
			}
			return action{kind: "msg", arg: string(raw)}, nil
		}
		return action{kind: kind, arg: arg}, nil
	}
	return action{}, fmt.Errorf("invalid dummy action: %s", token)
}

type scriptRunner struct {
	actions []action
	index   int
}

func newRunner(script string) (*scriptRunner, error) {
	actions, err := parseScript(script)
	if err != nil {
		return nil, err
	}
	return &scriptRunner{actions: actions}, nil
}

func (r *scriptRunner) next() action {
	if len(r.actions) == 0 {
		return action{kind: "ok"}
	}
	if r.index >= len(r.actions) {
		return r.actions[len(r.actions)-1]
	}
	a := r.actions[r.index]
	r.index++
	return a
}

func sleep(ctx context.Context, arg string) error {
	ms, _ := strconv.Atoi(arg)
	if ms <= 0 {
		return nil
	}
	t := time.NewTimer(time.Duration(ms) * time.Millisecond)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Sent is one outbound delivery recorded by Commander.
type Sent struct {
	ChatID int64
	Text   string
	Photo  string
}

// Commander is a scripted chat platform. Updates it produces come from
// chat 1.
type Commander struct {
	mu       sync.Mutex
	poll     *scriptRunner
	send     *scriptRunner
	updateID int64
	sent     []Sent
}

func NewCommander(pollScript, sendScript string) (*Commander, error) {
	poll, err := newRunner(pollScript)
	if err != nil {
		return nil, err
	}
	send, err := newRunner(sendScript)
	if err != nil {
		return nil, err
	}
	return &Commander{poll: poll, send: send, updateID: 1}, nil
}

func (c *Commander) GetUpdates(ctx context.Context, offset int64, timeout int) ([]cmdpkg.Update, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a := c.poll.next()
	switch a.kind {
	case "err":
		return nil, fmt.Errorf("dummy commander error class=%s", emptyAs(a.arg, "command_source_api"))
	case "sleep":
		return nil, sleep(ctx, a.arg)
	case "msg":
		text := a.arg
		c.updateID++
		return []cmdpkg.Update{
			{
				UpdateID: c.updateID,
				Message: &cmdpkg.Message{
					Chat: cmdpkg.Chat{ID: 1},
					Text: &text,
					Date: time.Now().Unix(),
				},
			},
		}, nil
	default:
		return nil, nil
	}
}

func (c *Commander) SendMessage(ctx context.Context, chatID int64, text string) error {
	return c.deliver(ctx, Sent{ChatID: chatID, Text: text})
}

func (c *Commander) SendPhoto(ctx context.Context, chatID int64, photoURL string) error {
	return c.deliver(ctx, Sent{ChatID: chatID, Photo: photoURL})
}

func (c *Commander) deliver(ctx context.Context, s Sent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	a := c.send.next()
	switch a.kind {
	case "err":
		return fmt.Errorf("dummy commander send error class=%s", emptyAs(a.arg, "command_source_api"))
	case "sleep":
		if err := sleep(ctx, a.arg); err != nil {
			return err
		}
	}
	c.sent = append(c.sent, s)
	return nil
}

// Sent returns a copy of everything delivered so far.
func (c *Commander) Sent() []Sent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Sent(nil), c.sent...)
}

// Provider is a scripted model provider covering both completions and
// image generation.
type Provider struct {
	mu     sync.Mutex
	model  string
	chat   *scriptRunner
	images *scriptRunner
	calls  [][]history.Message
}

func NewProvider(model, chatScript, imageScript string) (*Provider, error) {
	chat, err := newRunner(chatScript)
	if err != nil {
		return nil, err
	}
	images, err := newRunner(imageScript)
	if err != nil {
		return nil, err
	}
	return &Provider{model: model, chat: chat, images: images}, nil
}

func (p *Provider) ChatCompletion(ctx context.Context, messages []history.Message) (modelpkg.CompletionResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, append([]history.Message(nil), messages...))

	a := p.chat.next()
	switch a.kind {
	case "err":
		return modelpkg.CompletionResponse{}, fmt.Errorf("dummy provider error class=%s", emptyAs(a.arg, "provider_api"))
	case "sleep":
		if err := sleep(ctx, a.arg); err != nil {
			return modelpkg.CompletionResponse{}, err
		}
		return completion("[message] dummy-after-sleep"), nil
	case "msg":
		return completion(a.arg), nil
	default:
		return completion("[message] dummy-ok"), nil
	}
}

func (p *Provider) GenerateImage(ctx context.Context, prompt string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	a := p.images.next()
	switch a.kind {
	case "err":
		return "", fmt.Errorf("dummy image error class=%s", emptyAs(a.arg, "provider_api"))
	case "sleep":
		if err := sleep(ctx, a.arg); err != nil {
			return "", err
		}
		return "https://dummy.invalid/image.png", nil
	case "url":
		return a.arg, nil
	default:
		return "https://dummy.invalid/image.png", nil
	}
}

// Calls returns the message lists passed to ChatCompletion so far.
func (p *Provider) Calls() [][]history.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]history.Message(nil), p.calls...)
}

func completion(content string) modelpkg.CompletionResponse {
	return modelpkg.CompletionResponse{Content: content, InputTokens: 1, OutputTokens: 1}
}

func emptyAs(v string, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
