// Package schedule decides which session follows a finished one.
package schedule

import (
	"time"

	"studyclock/internal/core/model"
)

// First returns the session the cycle starts with.
func First(config model.CycleConfig) model.Session {
	return model.Session{
		Kind:    model.KindFocus,
		Planned: config.FocusDuration,
		Status:  model.StatusRunning,
	}
}

// Next returns the kind and planned duration of the session that follows
// a finished session, together with the updated cycle position. It is a
// pure function; a skipped session advances the cycle exactly like a
// completed one.
//
// The cycle position counts focus units finished since the last lunch.
// When it reaches the configured lunch threshold the next rest is a
// lunch and the position resets to zero.
func Next(finished model.SessionKind, cyclePosition int, config model.CycleConfig) (model.SessionKind, time.Duration, int) {
	if finished != model.KindFocus {
		return model.KindFocus, config.FocusDuration, cyclePosition
	}

	cyclePosition++
	if config.LunchAfter > 0 && cyclePosition >= config.LunchAfter {
		return model.KindLunch, config.LunchDuration, 0
	}
	return model.KindBreak, config.BreakDuration, cyclePosition
}
