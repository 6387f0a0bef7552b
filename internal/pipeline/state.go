package pipeline

// State is a step of a pipeline run.
type State string

// Run states. A run moves Idle → Acquiring and then takes either the short
// path (Transcribing → Summarizing) or the long path (Chunking → per chunk
// TranscribingChunk → SummarizingChunk → Combining) before Done. Failed is
// reachable from any non-terminal state.
const (
	StateIdle              State = "idle"
	StateAcquiring         State = "acquiring"
	StateTranscribing      State = "transcribing"
	StateSummarizing       State = "summarizing"
	StateChunking          State = "chunking"
	StateTranscribingChunk State = "transcribing_chunk"
	StateSummarizingChunk  State = "summarizing_chunk"
	StateCombining         State = "combining"
	StateDone              State = "done"
	StateFailed            State = "failed"
)

// IsTerminal reports whether no further transitions follow s.
func (s State) IsTerminal() bool {
	return s == StateDone || s == StateFailed
}

// Stage returns the short stage label used in errors and logs.
func (s State) Stage() string {
	switch s {
	case StateAcquiring:
		return "acquire"
	case StateTranscribing, StateTranscribingChunk:
		return "transcribe"
	case StateSummarizing, StateSummarizingChunk:
		return "summarize"
	case StateChunking:
		return "chunk"
	case StateCombining:
		return "combine"
	case StateIdle:
		return "setup"
	default:
		return string(s)
	}
}

// Label returns a human-readable description of s.
func (s State) Label() string {
	switch s {
	case StateIdle:
		return "Preparing"
	case StateAcquiring:
		return "Downloading audio"
	case StateTranscribing, StateTranscribingChunk:
		return "Transcribing"
	case StateSummarizing, StateSummarizingChunk:
		return "Summarizing"
	case StateChunking:
		return "Splitting audio"
	case StateCombining:
		return "Combining summaries"
	case StateDone:
		return "Done"
	case StateFailed:
		return "Failed"
	default:
		return string(s)
	}
}
