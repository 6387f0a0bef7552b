package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"ytsum/internal/language"
)

// loadDotEnv reads ./.env without overriding variables already set in the
// process environment.
func loadDotEnv() error {
	if _, err := os.Stat(".env"); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat .env: %w", err)
	}
	if err := godotenv.Load(".env"); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAcquisition()
	c.normalizeTranscription()
	if err := c.normalizeChunking(); err != nil {
		return err
	}
	c.normalizeLLM()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeAcquisition() {
	c.Acquisition.Backend = strings.ToLower(strings.TrimSpace(c.Acquisition.Backend))
	if c.Acquisition.Backend == "" {
		c.Acquisition.Backend = defaultAcquisitionBackend
	}
	c.Acquisition.AudioBitrate = strings.ToLower(strings.TrimSpace(c.Acquisition.AudioBitrate))
	if c.Acquisition.AudioBitrate == "" {
		c.Acquisition.AudioBitrate = defaultAudioBitrate
	}
}

func (c *Config) normalizeTranscription() {
	c.Transcription.Backend = strings.ToLower(strings.TrimSpace(c.Transcription.Backend))
	if c.Transcription.Backend == "" {
		c.Transcription.Backend = defaultTranscriptionBack
	}
	c.Transcription.Model = strings.ToLower(strings.TrimSpace(c.Transcription.Model))
	if c.Transcription.Model == "" {
		if value, ok := os.LookupEnv("WHISPER_MODEL"); ok {
			c.Transcription.Model = strings.ToLower(strings.TrimSpace(value))
		}
	}
	if c.Transcription.Model == "" {
		c.Transcription.Model = defaultWhisperModel
	}
	c.Transcription.APIModel = strings.TrimSpace(c.Transcription.APIModel)
	if c.Transcription.APIModel == "" {
		c.Transcription.APIModel = defaultWhisperAPIModel
	}
	c.Transcription.Language = strings.ToLower(strings.TrimSpace(c.Transcription.Language))
	if code := language.ToISO2(c.Transcription.Language); code != "" {
		c.Transcription.Language = code
	}
}

func (c *Config) normalizeChunking() error {
	if c.Chunking.TriggerSeconds == 0 {
		value, err := lookupEnvInt("MAX_CHUNK_LENGTH")
		if err != nil {
			return err
		}
		c.Chunking.TriggerSeconds = value
	}
	if c.Chunking.TriggerSeconds == 0 {
		c.Chunking.TriggerSeconds = defaultChunkTriggerSeconds
	}
	if c.Chunking.LengthSeconds == 0 {
		value, err := lookupEnvInt("CHUNK_LENGTH_SECONDS")
		if err != nil {
			return err
		}
		c.Chunking.LengthSeconds = value
	}
	if c.Chunking.LengthSeconds == 0 {
		c.Chunking.LengthSeconds = defaultChunkLengthSeconds
	}
	return nil
}

func (c *Config) normalizeLLM() {
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv("GROQ_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("OPENAI_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		}
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		if value, ok := os.LookupEnv("GROQ_MODEL"); ok {
			c.LLM.Model = strings.TrimSpace(value)
		}
	}
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	c.LLM.BaseURL = strings.TrimRight(strings.TrimSpace(c.LLM.BaseURL), "/")
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
	if c.LLM.RetryAttempts <= 0 {
		c.LLM.RetryAttempts = defaultLLMRetryAttempts
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func lookupEnvInt(key string) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%s: expected integer seconds, got %q", key, value)
	}
	return parsed, nil
}
