package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const defaultTranscriptionModel = "whisper-large-v3"

// Transcribe uploads the audio file at path to the hosted Whisper endpoint and
// returns the plain-text transcript. language may be empty for auto-detection.
func (c *Client) Transcribe(ctx context.Context, path, language string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", errors.New("llm transcribe: audio path required")
	}
	if c.cfg.APIKey == "" {
		return "", errors.New("llm transcribe: api key required")
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("llm transcribe: %w", err)
	}
	model := c.cfg.TranscriptionModel
	if model == "" {
		model = defaultTranscriptionModel
	}
	request := openai.AudioRequest{
		Model:    model,
		FilePath: path,
		Format:   openai.AudioResponseFormatText,
		Language: strings.TrimSpace(language),
	}
	return withRetry(ctx, c, "llm transcribe", func(ctx context.Context) (string, error) {
		response, err := c.api.CreateTranscription(ctx, request)
		if err != nil {
			return "", err
		}
		text := strings.TrimSpace(response.Text)
		if text == "" {
			return "", &emptyContentError{Op: "llm transcribe", FinishReason: "no_text"}
		}
		return text, nil
	})
}
