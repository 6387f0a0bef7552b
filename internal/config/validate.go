package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAcquisition(); err != nil {
		return err
	}
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateChunking(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if c.Cleanup.StaleAfterHours < 0 {
		return errors.New("cleanup.stale_after_hours must be >= 0")
	}
	return nil
}

func (c *Config) validateAcquisition() error {
	switch c.Acquisition.Backend {
	case "youtube", "ytdlp":
		return nil
	default:
		return fmt.Errorf("acquisition.backend must be \"youtube\" or \"ytdlp\", got %q", c.Acquisition.Backend)
	}
}

func (c *Config) validateTranscription() error {
	switch c.Transcription.Backend {
	case "local", "api":
	default:
		return fmt.Errorf("transcription.backend must be \"local\" or \"api\", got %q", c.Transcription.Backend)
	}
	if err := ValidateWhisperModel(c.Transcription.Model); err != nil {
		return err
	}
	if lang := c.Transcription.Language; lang != "" && len(lang) != 2 {
		return fmt.Errorf("transcription.language must be an ISO 639-1 code or language name, got %q", lang)
	}
	return nil
}

// ValidateWhisperModel reports whether model is one of WhisperModels.
func ValidateWhisperModel(model string) error {
	if slices.Contains(WhisperModels, model) {
		return nil
	}
	return fmt.Errorf("transcription.model must be one of %s, got %q", strings.Join(WhisperModels, ", "), model)
}

func (c *Config) validateChunking() error {
	if c.Chunking.TriggerSeconds <= 0 {
		return errors.New("chunking.trigger_seconds must be positive")
	}
	if c.Chunking.LengthSeconds <= 0 {
		return errors.New("chunking.length_seconds must be positive")
	}
	if c.Transcription.Backend == "api" {
		// The short path uploads up to the trigger, the long path one chunk.
		window := max(c.Chunking.TriggerSeconds, c.Chunking.LengthSeconds)
		if limit := HostedMaxWindowSeconds(); window > limit {
			return fmt.Errorf("chunking.trigger_seconds and chunking.length_seconds must be <= %d with the api transcription backend (upload limit %d MB), got %d", limit, HostedUploadLimitBytes>>20, window)
		}
	}
	return nil
}

func (c *Config) validateLLM() error {
	if c.LLM.RequestsPerMinute < 0 {
		return errors.New("llm.requests_per_minute must be >= 0")
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		return errors.New("llm.model must be set")
	}
	return nil
}

// RequireAPIKey reports a configuration error when no language model
// credential is available. Commands that only inspect metadata skip it.
func (c *Config) RequireAPIKey() error {
	if strings.TrimSpace(c.LLM.APIKey) != "" {
		return nil
	}
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = "~/.config/ytsum/config.toml"
	}
	return fmt.Errorf("llm.api_key is required. Set GROQ_API_KEY env var or edit %s (create with 'ytsum config init')", defaultPath)
}
