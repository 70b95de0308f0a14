package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf16"

	cmdpkg "github.com/stupiduntilnot/picrelay/internal/commander"
)

// maxMessageChars is the Bot API limit for sendMessage text.
const maxMessageChars = 4096

// Client is a minimal Telegram Bot API client.
type Client struct {
	apiBase    string
	httpClient *http.Client
}

// NewClient creates a Telegram client for the given bot API base URL
// (e.g. "https://api.telegram.org/bot<token>").
func NewClient(apiBase string, requestTimeout time.Duration) *Client {
	return &Client{
		apiBase: strings.TrimRight(apiBase, "/"),
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

// APIBase joins the Bot API root and a bot token.
func APIBase(root, token string) string {
	return fmt.Sprintf("%s/bot%s", strings.TrimRight(root, "/"), token)
}

// Response is the generic Telegram API response wrapper.
type Response struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description,omitempty"`
	ErrorCode   int             `json:"error_code,omitempty"`
	Result      json.RawMessage `json:"result"`
}

type Update = cmdpkg.Update
type Message = cmdpkg.Message
type Chat = cmdpkg.Chat

// GetUpdates calls the getUpdates API and returns the updates that carry a
// message. Other update kinds are consumed but not returned.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout int) ([]Update, error) {
	params := url.Values{}
	params.Set("offset", strconv.FormatInt(offset, 10))
	params.Set("timeout", strconv.Itoa(timeout))
	params.Set("allowed_updates", `["message"]`)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+"/getUpdates?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create getUpdates request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telegram getUpdates request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read getUpdates response: %w", err)
	}

	var tgResp Response
	if err := json.Unmarshal(body, &tgResp); err != nil {
		return nil, fmt.Errorf("failed to parse getUpdates response: %w", err)
	}
	if !tgResp.OK {
		return nil, fmt.Errorf("telegram getUpdates rejected: code=%d %s", tgResp.ErrorCode, tgResp.Description)
	}

	var raws []Update
	if err := json.Unmarshal(tgResp.Result, &raws); err != nil {
		return nil, fmt.Errorf("failed to parse getUpdates result: %w", err)
	}
	updates := make([]Update, 0, len(raws))
	for _, u := range raws {
		if u.Message == nil {
			// Still advances the offset for the caller.
			updates = append(updates, Update{UpdateID: u.UpdateID})
			continue
		}
		updates = append(updates, u)
	}
	return updates, nil
}

// SendMessage sends a text message to the given chat.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	limited := truncate(text, maxMessageChars)
	payload := fmt.Sprintf(`{"chat_id":%d,"text":%s}`, chatID, jsonString(limited))
	if err := c.post(ctx, "sendMessage", payload); err != nil {
		return fmt.Errorf("telegram sendMessage failed: %w", err)
	}
	return nil
}

// SendPhoto sends a picture by URL; Telegram downloads it itself.
func (c *Client) SendPhoto(ctx context.Context, chatID int64, photoURL string) error {
	payload := fmt.Sprintf(`{"chat_id":%d,"photo":%s}`, chatID, jsonString(photoURL))
	if err := c.post(ctx, "sendPhoto", payload); err != nil {
		return fmt.Errorf("telegram sendPhoto failed: %w", err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, method, payload string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+"/"+method, strings.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	var tgResp Response
	if err := json.Unmarshal(body, &tgResp); err != nil {
		return fmt.Errorf("status=%d unparsable body: %s", resp.StatusCode, truncate(string(body), 200))
	}
	if !tgResp.OK {
		return fmt.Errorf("code=%d %s", tgResp.ErrorCode, tgResp.Description)
	}
	return nil
}

// truncate cuts s to at most maxUnits UTF-16 code units, which is how
// Telegram measures text length. A rune is never split.
func truncate(s string, maxUnits int) string {
	units := 0
	for i, r := range s {
		units += utf16.RuneLen(r)
		if units > maxUnits {
			return s[:i]
		}
	}
	return s
}

func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
