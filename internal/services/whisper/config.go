package whisper

// Config captures runtime settings for local Whisper transcription.
type Config struct {
	// Model is the openai-whisper model size (tiny, base, small, medium, large).
	Model string
	// CUDAEnabled enables GPU acceleration.
	CUDAEnabled bool
}

// Whisper configuration constants.
const (
	DefaultModel   = "medium"
	PackageName    = "openai-whisper"
	EntryPoint     = "whisper"
	CUDAIndexURL   = "https://download.pytorch.org/whl/cu128"
	PypiIndexURL   = "https://pypi.org/simple"
	OutputFormat   = "json"
	Temperature    = "0"
	BeamSize       = "5"
	CPUDevice      = "cpu"
	CUDADevice     = "cuda"
	TaskTranscribe = "transcribe"
)

// UVXCommand is the launcher used to run openai-whisper without a global install.
const UVXCommand = "uvx"
