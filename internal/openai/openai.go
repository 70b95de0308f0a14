package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/stupiduntilnot/picrelay/internal/history"
	modelpkg "github.com/stupiduntilnot/picrelay/internal/model"
)

// Options configures a Client.
type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	ImageModel string
	ImageSize  string
	Timeout    time.Duration
}

// Client talks to the chat completions and image generation endpoints.
// Requests are attempted exactly once.
type Client struct {
	client     openai.Client
	model      string
	imageModel string
	imageSize  string
}

// NewClient creates an OpenAI client.
func NewClient(opts Options) *Client {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	if opts.Timeout > 0 {
		reqOpts = append(reqOpts, option.WithRequestTimeout(opts.Timeout))
	}
	return &Client{
		client:     openai.NewClient(reqOpts...),
		model:      opts.Model,
		imageModel: opts.ImageModel,
		imageSize:  opts.ImageSize,
	}
}

// ChatCompletion sends the ordered message list with temperature 0 and
// returns the first choice.
func (c *Client) ChatCompletion(ctx context.Context, messages []history.Message) (modelpkg.CompletionResponse, error) {
	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    toParams(messages),
		Temperature: openai.Float(0),
	}
	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return modelpkg.CompletionResponse{}, fmt.Errorf("openai chat completion failed: %w", describe(err))
	}

	result := modelpkg.CompletionResponse{
		InputTokens:  int(resp.Usage.PromptTokens),
		OutputTokens: int(resp.Usage.CompletionTokens),
	}
	if len(resp.Choices) == 0 {
		return result, errors.New("openai chat completion returned no choices")
	}
	result.Content = resp.Choices[0].Message.Content
	return result, nil
}

// GenerateImage requests a single image and returns its URL.
func (c *Client) GenerateImage(ctx context.Context, prompt string) (string, error) {
	params := openai.ImageGenerateParams{
		Prompt:         prompt,
		N:              openai.Int(1),
		ResponseFormat: openai.ImageGenerateParamsResponseFormatURL,
	}
	if c.imageModel != "" {
		params.Model = openai.ImageModel(c.imageModel)
	}
	if c.imageSize != "" {
		params.Size = openai.ImageGenerateParamsSize(c.imageSize)
	}
	resp, err := c.client.Images.Generate(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai image generation failed: %w", describe(err))
	}
	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return "", errors.New("openai image generation returned no url")
	}
	return resp.Data[0].URL, nil
}

func toParams(messages []history.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case history.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case history.RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

// describe keeps the status code of API errors visible in wrapped messages.
func describe(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return fmt.Errorf("status=%d: %w", apiErr.StatusCode, err)
	}
	return err
}
