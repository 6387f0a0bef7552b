package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrAcquisition       = errors.New("acquisition error")
	ErrDependencyMissing = errors.New("dependency missing")
	ErrTranscription     = errors.New("transcription error")
	ErrSummarization     = errors.New("summarization error")
	ErrValidation        = errors.New("validation error")
	ErrConfiguration     = errors.New("configuration error")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrValidation
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// PipelineError is the single error surfaced to callers of a pipeline run. It
// records the stage that failed and the input it was working on.
type PipelineError struct {
	Stage string
	Input string
	Err   error
}

func (e *PipelineError) Error() string {
	if e == nil {
		return "<nil>"
	}
	detail := buildDetail(e.Stage, e.Input, "")
	if e.Err == nil {
		return "pipeline: " + detail
	}
	return fmt.Sprintf("pipeline: %s: %v", detail, e.Err)
}

func (e *PipelineError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewPipelineError wraps err with stage and input context. A nil err yields nil.
func NewPipelineError(stage, input string, err error) error {
	if err == nil {
		return nil
	}
	return &PipelineError{Stage: stage, Input: input, Err: err}
}

// Kind returns a short label for the first taxonomy marker found in err.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAcquisition):
		return "acquisition"
	case errors.Is(err, ErrDependencyMissing):
		return "dependency_missing"
	case errors.Is(err, ErrTranscription):
		return "transcription"
	case errors.Is(err, ErrSummarization):
		return "summarization"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrValidation):
		return "validation"
	default:
		return "pipeline"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
