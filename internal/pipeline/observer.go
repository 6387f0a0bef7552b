package pipeline

// Event describes one state transition of a run. Chunk fields are 1-based and
// zero outside the per-chunk states. Events never carry summary text.
type Event struct {
	RunID           string
	State           State
	ChunkIndex      int
	ChunkTotal      int
	Title           string
	DurationSeconds float64
	Err             error
}

// Observer receives run events synchronously on the run's goroutine.
type Observer interface {
	OnEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// OnEvent calls f(e).
func (f ObserverFunc) OnEvent(e Event) { f(e) }

type nopObserver struct{}

func (nopObserver) OnEvent(Event) {}
