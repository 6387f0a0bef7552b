package summarize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ytsum/internal/logging"
	"ytsum/internal/services"
)

const stageName = "summarize"

// Completer issues one chat completion; retries are the implementation's concern.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Summarizer produces educational summaries of transcripts and merges
// per-chunk summaries into one.
type Summarizer struct {
	client Completer
	model  string
	logger *slog.Logger
}

// New constructs a Summarizer. model is used for logging only; the client
// decides which model is called.
func New(client Completer, model string, logger *slog.Logger) *Summarizer {
	return &Summarizer{
		client: client,
		model:  model,
		logger: logging.NewComponentLogger(logger, "summarize"),
	}
}

// Summarize asks the model for a five-section summary of transcript. A
// non-zero part annotates the prompt with its position in the video.
func (s *Summarizer) Summarize(ctx context.Context, transcript string, part Part) (string, error) {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return "", services.Wrap(services.ErrSummarization, stageName, "summarize", "transcript is empty", nil)
	}
	if !part.IsZero() && (part.Index < 1 || part.Index > part.Total) {
		return "", services.Wrap(services.ErrSummarization, stageName, "summarize", fmt.Sprintf("invalid part %d/%d", part.Index, part.Total), services.ErrValidation)
	}
	return s.request(ctx, "summarize", BuildSummaryPrompt(transcript, part), logging.String("part", part.Label()))
}

// Combine merges ordered chunk summaries with one further request. At least
// two summaries are required and their order is preserved in the prompt.
func (s *Summarizer) Combine(ctx context.Context, summaries []string) (string, error) {
	if len(summaries) < 2 {
		return "", services.Wrap(services.ErrSummarization, stageName, "combine", fmt.Sprintf("need at least 2 summaries, got %d", len(summaries)), services.ErrValidation)
	}
	for i, summary := range summaries {
		if strings.TrimSpace(summary) == "" {
			return "", services.Wrap(services.ErrSummarization, stageName, "combine", fmt.Sprintf("summary for part %d is empty", i+1), services.ErrValidation)
		}
	}
	return s.request(ctx, "combine", BuildCombinePrompt(summaries), logging.Int("parts", len(summaries)))
}

func (s *Summarizer) request(ctx context.Context, op, prompt string, attrs ...logging.Attr) (string, error) {
	logger := logging.WithContext(ctx, s.logger)
	started := time.Now()
	args := append([]logging.Attr{
		logging.String("operation", op),
		logging.String("model", s.model),
		logging.Int("prompt_characters", len(prompt)),
	}, attrs...)
	logger.Info("language model request started", logging.Args(args...)...)

	content, err := s.client.Complete(ctx, SystemPrompt, prompt)
	if err != nil {
		return "", services.Wrap(services.ErrSummarization, stageName, op, "language model request failed", err)
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return "", services.Wrap(services.ErrSummarization, stageName, op, "language model returned an empty response", nil)
	}

	logger.Info("language model request completed",
		logging.String("operation", op),
		logging.Duration("elapsed", time.Since(started)),
		logging.Int("response_characters", len(content)),
	)
	return content, nil
}
