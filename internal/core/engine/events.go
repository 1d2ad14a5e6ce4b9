package engine

import (
	"time"

	"studyclock/internal/core/model"
)

// Status represents the engine's current mode.
type Status string

const (
	StatusIdle          Status = "idle"
	StatusRunning       Status = "running"
	StatusPaused        Status = "paused"
	StatusTransitioning Status = "transitioning"
)

// EventType defines the type of engine event.
type EventType string

const (
	EventStateChange  EventType = "state_change"
	EventProgress     EventType = "progress"
	EventSessionEnd   EventType = "session_end"
	EventReminder     EventType = "reminder"
	EventPersistError EventType = "persist_error"
)

// Event represents an engine update for observers.
type Event struct {
	Type      EventType
	Status    Status
	Kind      model.SessionKind
	Remaining time.Duration
	Progress  float64
	Message   string
	At        time.Time
}

// State is the answer to a CurrentState query.
type State struct {
	Status        Status
	Kind          model.SessionKind
	Elapsed       time.Duration
	Planned       time.Duration
	CyclePosition int
}
