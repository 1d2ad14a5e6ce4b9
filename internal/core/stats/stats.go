// Package stats accumulates efficiency statistics from finished sessions.
package stats

import "studyclock/internal/core/model"

// Aggregator owns the running statistics totals. It is mutated through
// RecordCompletion only; skipped sessions must never be passed in.
type Aggregator struct {
	totals model.Statistics
}

// New returns an empty aggregator.
func New() *Aggregator {
	return &Aggregator{}
}

// Restore returns an aggregator seeded with previously persisted totals.
func Restore(totals model.Statistics) *Aggregator {
	return &Aggregator{totals: totals}
}

// RecordCompletion folds a completed session into the totals. Sessions
// in any other status are ignored, so a skipped session leaves the
// statistics exactly as if it had never existed.
func (aggregator *Aggregator) RecordCompletion(session model.Session) {
	if session.Status != model.StatusCompleted {
		return
	}

	if session.Kind == model.KindFocus {
		aggregator.totals.FocusUnits++
		aggregator.totals.FocusTime += session.Elapsed
		return
	}
	aggregator.totals.RestTime += session.Elapsed
}

// Totals returns a copy of the current statistics.
func (aggregator *Aggregator) Totals() model.Statistics {
	return aggregator.totals
}

// Reset clears all accumulated totals.
func (aggregator *Aggregator) Reset() {
	aggregator.totals = model.Statistics{}
}
