package supervisor

import "time"

// EventType captures lifecycle notifications emitted by the supervisor.
type EventType string

const (
	EventTypeSpawned          EventType = "spawned"
	EventTypeSpawnFailed      EventType = "spawn_failed"
	EventTypeKillRequested    EventType = "kill_requested"
	EventTypeExited           EventType = "exited"
	EventTypeCaptureThreshold EventType = "capture_threshold"
	EventTypeDropped          EventType = "dropped"
)

// Event is a single lifecycle notification.
type Event struct {
	Timestamp time.Time
	Process   ID
	PID       int
	Type      EventType
	Message   string
	Level     string
	Err       error
}

// EventSink receives supervisor events. Publish must not block.
type EventSink interface {
	Publish(Event)
}

func (s *Supervisor) emit(h *Handle, t EventType, level, message string, err error) {
	if s.events == nil {
		return
	}
	evt := Event{
		Timestamp: time.Now(),
		Type:      t,
		Message:   message,
		Level:     level,
		Err:       err,
	}
	if h != nil {
		evt.Process = h.id
		evt.PID = h.pid
	}
	s.events.Publish(evt)
}
