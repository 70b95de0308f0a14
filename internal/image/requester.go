package image

import (
	"context"
	"strings"

	"go.uber.org/zap"

	modelpkg "github.com/stupiduntilnot/picrelay/internal/model"
)

// ApologyText is sent instead of a picture when generation fails.
const ApologyText = "Sorry, I can't draw this picture"

// Requester wraps the image generation call. Provider failures are logged
// and reported as a missing URL; they never reach the caller as errors.
type Requester struct {
	generator modelpkg.ImageGenerator
	logger    *zap.SugaredLogger
}

func NewRequester(generator modelpkg.ImageGenerator, logger *zap.SugaredLogger) *Requester {
	return &Requester{generator: generator, logger: logger}
}

// Prompt builds the generation prompt for a picture description.
func Prompt(description string) string {
	return "Painting of a " + strings.ToLower(description)
}

// Request makes a single generation attempt and returns the image URL, or
// ok == false if the provider failed.
func (r *Requester) Request(ctx context.Context, description string) (url string, ok bool) {
	prompt := Prompt(description)
	url, err := r.generator.GenerateImage(ctx, prompt)
	if err != nil {
		r.logger.Errorw("Image generation failed", "prompt", prompt, "error", err)
		return "", false
	}
	if url == "" {
		r.logger.Errorw("Image generation returned an empty url", "prompt", prompt)
		return "", false
	}
	return url, true
}
