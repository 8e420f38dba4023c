package pagetl

// EventKind distinguishes the notifications a run emits.
type EventKind string

const (
	// EventStatus reports a state transition. Err is set for StatusError.
	EventStatus EventKind = "status"
	// EventProgress reports model download progress.
	EventProgress EventKind = "progress"
	// EventLanguageDetected reports the detected source language.
	EventLanguageDetected EventKind = "language_detected"
	// EventChunk carries an intermediate streaming translation of a unit.
	EventChunk EventKind = "chunk"
)

// Event is a copy of one notification of a run. Observers never see the
// orchestrator's own state.
type Event struct {
	RunID string
	Kind  EventKind

	Status Status // EventStatus
	Err    error  // EventStatus with StatusError

	Progress  float64   // EventProgress
	ModelType ModelType // EventProgress

	Language   string  // EventLanguageDetected
	Confidence float64 // EventLanguageDetected

	UnitID  string // EventChunk
	Partial string // EventChunk
}

// Observer receives the events of every run it is subscribed to.
type Observer interface {
	OnEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// OnEvent calls f.
func (f ObserverFunc) OnEvent(ev Event) {
	f(ev)
}
