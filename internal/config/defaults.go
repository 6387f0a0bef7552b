package config

const (
	defaultWorkDir             = "~/.cache/ytsum/runs"
	defaultLogDir              = "~/.local/share/ytsum/logs"
	defaultAcquisitionBackend  = "youtube"
	defaultAudioBitrate        = "192k"
	defaultTranscriptionBack   = "local"
	defaultWhisperModel        = "medium"
	defaultWhisperAPIModel     = "whisper-large-v3"
	defaultChunkTriggerSeconds = 1800
	defaultChunkLengthSeconds  = 1800
	defaultLLMBaseURL          = "https://api.groq.com/openai/v1"
	defaultLLMModel            = "llama-3.1-8b-instant"
	defaultLLMTimeoutSeconds   = 120
	defaultLLMRetryAttempts    = 3
	defaultStaleAfterHours     = 24
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Hosted transcription endpoints reject uploads above HostedUploadLimitBytes.
// Audio is re-encoded to HostedUploadBitsPerSecond mono before upload when it
// would not fit, so the longest window one request can carry is fixed.
const (
	HostedUploadLimitBytes    = 25 << 20
	HostedUploadBitsPerSecond = 32_000
)

// HostedMaxWindowSeconds is the longest audio one hosted transcription request
// can carry after re-encoding.
func HostedMaxWindowSeconds() int {
	return int(int64(HostedUploadLimitBytes) * 8 / HostedUploadBitsPerSecond)
}

// WhisperModels lists the accepted local transcription model sizes, smallest
// (fastest) first.
var WhisperModels = []string{"tiny", "base", "small", "medium", "large"}

// Default returns a Config populated with repository defaults. Values that can
// also come from the environment (model names, thresholds, API key) are left
// empty here and resolved during normalization.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir: defaultWorkDir,
			LogDir:  defaultLogDir,
		},
		Acquisition: Acquisition{
			Backend:      defaultAcquisitionBackend,
			AudioBitrate: defaultAudioBitrate,
		},
		Transcription: Transcription{
			Backend:  defaultTranscriptionBack,
			APIModel: defaultWhisperAPIModel,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
			RetryAttempts:  defaultLLMRetryAttempts,
		},
		Cleanup: Cleanup{
			StaleAfterHours: defaultStaleAfterHours,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
