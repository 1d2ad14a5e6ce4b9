package model

import "time"

// SessionKind identifies the type of a timed session.
type SessionKind string

const (
	KindFocus SessionKind = "focus"
	KindBreak SessionKind = "break"
	KindLunch SessionKind = "lunch"
)

// Valid reports whether the kind is one of the known session kinds.
func (kind SessionKind) Valid() bool {
	switch kind {
	case KindFocus, KindBreak, KindLunch:
		return true
	}
	return false
}

// SessionStatus describes the lifecycle stage of a single session.
type SessionStatus string

const (
	StatusRunning   SessionStatus = "running"
	StatusPaused    SessionStatus = "paused"
	StatusCompleted SessionStatus = "completed"
	StatusSkipped   SessionStatus = "skipped"
)

// Terminal reports whether the session can no longer change.
func (status SessionStatus) Terminal() bool {
	return status == StatusCompleted || status == StatusSkipped
}

// Session is one instance of a SessionKind being run.
// Once the status is Completed or Skipped the session is a historical
// record and must not be mutated.
type Session struct {
	Kind    SessionKind
	Planned time.Duration
	Elapsed time.Duration
	Status  SessionStatus
}

// Remaining returns the time left before the session completes.
func (session Session) Remaining() time.Duration {
	remaining := session.Planned - session.Elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Statistics holds all-time totals derived from completed sessions.
// Skipped sessions never contribute.
type Statistics struct {
	FocusUnits int
	FocusTime  time.Duration
	RestTime   time.Duration
}

// TrackedTime is the total recorded time across all session kinds.
func (stats Statistics) TrackedTime() time.Duration {
	return stats.FocusTime + stats.RestTime
}

// Efficiency is the ratio of focus time to total tracked time.
// It is always within [0, 1] and is 0 when nothing has been recorded.
func (stats Statistics) Efficiency() float64 {
	tracked := stats.TrackedTime()
	if tracked <= 0 {
		return 0
	}
	ratio := float64(stats.FocusTime) / float64(tracked)
	if ratio < 0 {
		return 0
	}
	if ratio > 1 {
		return 1
	}
	return ratio
}

// CycleConfig contains the session durations and ordering rules for the
// timer cycle.
type CycleConfig struct {
	FocusDuration time.Duration
	BreakDuration time.Duration
	LunchDuration time.Duration

	// LunchAfter is the number of completed focus units after which the
	// next rest becomes a lunch instead of a break.
	LunchAfter int

	// DailyGoal is the number of focus units that count as a full day.
	DailyGoal int

	// RemindAt lists remaining-time marks within a focus session at
	// which a reminder event fires once.
	RemindAt []time.Duration
}

// Duration returns the configured planned duration for a session kind.
func (config CycleConfig) Duration(kind SessionKind) time.Duration {
	switch kind {
	case KindBreak:
		return config.BreakDuration
	case KindLunch:
		return config.LunchDuration
	default:
		return config.FocusDuration
	}
}

// Snapshot is the full persistable state of a timer engine: the live
// session (nil when idle), the cycle position and the statistics totals.
type Snapshot struct {
	Session       *Session
	CyclePosition int
	Stats         Statistics
}

// Progress describes advancement toward the configured daily goal.
type Progress struct {
	Done    time.Duration
	Total   time.Duration
	Percent int
}
