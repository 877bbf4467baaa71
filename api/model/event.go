package model

// EventType discriminates the lines of a trigger output stream.
type EventType string

const (
	EventStatus  EventType = "status"
	EventStdout  EventType = "stdout"
	EventStderr  EventType = "stderr"
	EventError   EventType = "error"
	EventSuccess EventType = "success"
)

// Event is one unit of the streaming protocol. Seq orders events within a
// single run's stream; it is not part of the wire format.
type Event struct {
	Type    EventType `json:"type"`
	Message string    `json:"message"`
	Seq     int       `json:"-"`
}

// Terminal reports whether the event closes its stream. Exactly one
// terminal event is emitted per run, and it is always the last.
func (e Event) Terminal() bool {
	return e.Type == EventError || e.Type == EventSuccess
}
