// Package engine implements the session state machine at the heart of
// the timer: it consumes ticks and user commands, transitions between
// sessions, and notifies observers of every state change.
package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"studyclock/internal/core/model"
	"studyclock/internal/core/schedule"
	"studyclock/internal/core/stats"
)

// ErrInvalidCommand indicates a command that is not valid in the
// engine's current state. The state is left unchanged.
var ErrInvalidCommand = errors.New("command not valid in current state")

// ErrInvalidSnapshot indicates a snapshot that cannot reconstruct a
// consistent engine state.
var ErrInvalidSnapshot = errors.New("invalid snapshot")

// SnapshotStore persists engine snapshots.
type SnapshotStore interface {
	Save(model.Snapshot) error
}

// HistoryRecorder archives finished sessions.
type HistoryRecorder interface {
	Record(session model.Session, endedAt time.Time) error
}

// Options contains the engine's optional collaborators. A nil store or
// recorder disables that concern; the state machine itself never
// depends on either succeeding.
type Options struct {
	Store   SnapshotStore
	History HistoryRecorder
}

// Engine is the state machine that owns the live session and cycle
// position. All mutation is serialized behind one mutex; ticks arrive
// over a channel consumed by the run loop, so no caller mutates state
// from an arbitrary goroutine.
type Engine struct {
	mu            sync.Mutex
	config        model.CycleConfig
	options       Options
	status        Status
	session       model.Session
	cyclePosition int
	dailyUnits    int
	aggregator    *stats.Aggregator
	reminded      map[time.Duration]bool
	events        []chan Event
	stopCh        chan struct{}
	running       bool
}

// New creates an idle engine with the provided cycle configuration.
func New(config model.CycleConfig, options Options) *Engine {
	return &Engine{
		config:     config,
		options:    options,
		status:     StatusIdle,
		aggregator: stats.New(),
		reminded:   make(map[time.Duration]bool),
		stopCh:     make(chan struct{}),
	}
}

// Restore rebuilds the engine's state from a persisted snapshot. It is
// only valid before any session has started.
func (engine *Engine) Restore(snapshot model.Snapshot) error {
	engine.mu.Lock()
	defer engine.mu.Unlock()

	if engine.status != StatusIdle {
		return ErrInvalidCommand
	}
	if snapshot.CyclePosition < 0 {
		return fmt.Errorf("%w: negative cycle position", ErrInvalidSnapshot)
	}

	if snapshot.Session != nil {
		session := *snapshot.Session
		if session.Status != model.StatusRunning && session.Status != model.StatusPaused {
			return fmt.Errorf("%w: unresumable session status %q", ErrInvalidSnapshot, session.Status)
		}
		if !session.Kind.Valid() ||
			session.Planned <= 0 || session.Elapsed < 0 || session.Elapsed > session.Planned {
			return fmt.Errorf("%w: inconsistent session", ErrInvalidSnapshot)
		}
		engine.session = session
		if session.Status == model.StatusPaused {
			engine.status = StatusPaused
		} else {
			engine.status = StatusRunning
		}
	}

	engine.cyclePosition = snapshot.CyclePosition
	engine.aggregator = stats.Restore(snapshot.Stats)
	engine.resetRemindersLocked()
	return nil
}

// SetDailyUnits seeds the count of focus units already completed
// today, typically from the history store at startup. Completions
// after the seed keep counting on top of it.
func (engine *Engine) SetDailyUnits(units int) {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	if units < 0 {
		units = 0
	}
	engine.dailyUnits = units
}

// Subscribe registers a new observer channel.
func (engine *Engine) Subscribe(buffer int) <-chan Event {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Event, buffer)
	engine.mu.Lock()
	engine.events = append(engine.events, ch)
	engine.mu.Unlock()
	return ch
}

// Run consumes tick deltas from the provided channel until Stop is
// called or the channel closes.
func (engine *Engine) Run(ticks <-chan time.Duration) {
	engine.mu.Lock()
	if engine.running {
		engine.mu.Unlock()
		return
	}
	engine.running = true
	engine.mu.Unlock()

	go func() {
		for {
			select {
			case <-engine.stopCh:
				return
			case delta, ok := <-ticks:
				if !ok {
					return
				}
				_ = engine.Tick(delta)
			}
		}
	}()
}

// Stop terminates the run loop, persists a final snapshot and closes
// all observer channels.
func (engine *Engine) Stop() {
	engine.mu.Lock()
	if engine.running {
		close(engine.stopCh)
		engine.running = false
	}
	_ = engine.persistLocked()
	events := engine.events
	engine.events = nil
	engine.mu.Unlock()

	for _, ch := range events {
		close(ch)
	}
}

// Start begins the first focus session. Valid only while idle.
func (engine *Engine) Start() error {
	engine.mu.Lock()
	if engine.status != StatusIdle {
		engine.mu.Unlock()
		return ErrInvalidCommand
	}
	engine.session = schedule.First(engine.config)
	engine.cyclePosition = 0
	engine.status = StatusRunning
	engine.resetRemindersLocked()
	err := engine.persistLocked()
	engine.emitLocked(Event{
		Type:      EventStateChange,
		Status:    StatusRunning,
		Kind:      engine.session.Kind,
		Remaining: engine.session.Remaining(),
		At:        time.Now(),
	})
	engine.mu.Unlock()
	return err
}

// Tick advances the running session by delta. Ticks are ignored while
// idle or paused, so a paused engine never accumulates drift.
func (engine *Engine) Tick(delta time.Duration) error {
	if delta < 0 {
		return ErrInvalidCommand
	}

	engine.mu.Lock()
	if engine.status != StatusRunning {
		engine.mu.Unlock()
		return nil
	}

	before := engine.session.Remaining()
	engine.session.Elapsed += delta
	if engine.session.Elapsed > engine.session.Planned {
		engine.session.Elapsed = engine.session.Planned
	}

	engine.checkRemindersLocked(before, time.Now())

	if engine.session.Elapsed >= engine.session.Planned {
		engine.completeLocked()
	} else {
		engine.emitLocked(Event{
			Type:      EventProgress,
			Status:    engine.status,
			Kind:      engine.session.Kind,
			Remaining: engine.session.Remaining(),
			Progress:  engine.sessionProgressLocked(),
			At:        time.Now(),
		})
	}

	err := engine.persistLocked()
	engine.mu.Unlock()
	return err
}

// Pause freezes the running session.
func (engine *Engine) Pause() error {
	engine.mu.Lock()
	if engine.status != StatusRunning {
		engine.mu.Unlock()
		return ErrInvalidCommand
	}
	engine.status = StatusPaused
	engine.session.Status = model.StatusPaused
	err := engine.persistLocked()
	engine.mu.Unlock()

	engine.emit(Event{Type: EventStateChange, Status: StatusPaused, At: time.Now()})
	return err
}

// Resume unfreezes a paused session.
func (engine *Engine) Resume() error {
	engine.mu.Lock()
	if engine.status != StatusPaused {
		engine.mu.Unlock()
		return ErrInvalidCommand
	}
	engine.status = StatusRunning
	engine.session.Status = model.StatusRunning
	err := engine.persistLocked()
	remaining := engine.session.Remaining()
	kind := engine.session.Kind
	engine.mu.Unlock()

	engine.emit(Event{
		Type:      EventStateChange,
		Status:    StatusRunning,
		Kind:      kind,
		Remaining: remaining,
		At:        time.Now(),
	})
	return err
}

// Skip abandons the current session and moves to the next one in the
// cycle. The skipped session is archived but never counted in the
// statistics totals.
func (engine *Engine) Skip() error {
	engine.mu.Lock()
	if engine.status != StatusRunning && engine.status != StatusPaused {
		engine.mu.Unlock()
		return ErrInvalidCommand
	}

	engine.session.Status = model.StatusSkipped
	engine.session.Elapsed = engine.session.Planned
	finished := engine.session

	engine.status = StatusTransitioning
	engine.emitLocked(Event{
		Type:    EventSessionEnd,
		Status:  StatusTransitioning,
		Kind:    finished.Kind,
		Message: "skipped",
		At:      time.Now(),
	})

	engine.recordHistoryLocked(finished)
	engine.advanceLocked(finished.Kind)
	err := engine.persistLocked()
	engine.mu.Unlock()
	return err
}

// Rewind restarts the current session from zero elapsed time without
// changing its kind or the cycle position. A paused engine resumes.
func (engine *Engine) Rewind() error {
	engine.mu.Lock()
	if engine.status != StatusRunning && engine.status != StatusPaused {
		engine.mu.Unlock()
		return ErrInvalidCommand
	}
	engine.session.Elapsed = 0
	engine.session.Status = model.StatusRunning
	engine.status = StatusRunning
	engine.resetRemindersLocked()
	err := engine.persistLocked()
	remaining := engine.session.Remaining()
	kind := engine.session.Kind
	engine.mu.Unlock()

	engine.emit(Event{
		Type:      EventStateChange,
		Status:    StatusRunning,
		Kind:      kind,
		Remaining: remaining,
		At:        time.Now(),
	})
	return err
}

// Reset discards the current session and cycle position and returns to
// idle. Statistics are historical and stay untouched.
func (engine *Engine) Reset() error {
	engine.mu.Lock()
	engine.status = StatusIdle
	engine.session = model.Session{}
	engine.cyclePosition = 0
	engine.resetRemindersLocked()
	err := engine.persistLocked()
	engine.mu.Unlock()

	engine.emit(Event{Type: EventStateChange, Status: StatusIdle, At: time.Now()})
	return err
}

// ResetStatistics clears the all-time totals. This is the only way the
// statistics ever shrink.
func (engine *Engine) ResetStatistics() error {
	engine.mu.Lock()
	engine.aggregator.Reset()
	err := engine.persistLocked()
	engine.mu.Unlock()
	return err
}

// UpdateConfig swaps the cycle configuration. The committed cycle
// position and the in-flight session keep their current values; only
// sessions created afterwards use the new durations and threshold.
func (engine *Engine) UpdateConfig(config model.CycleConfig) error {
	engine.mu.Lock()
	engine.config = config
	err := engine.persistLocked()
	engine.mu.Unlock()
	return err
}

// CurrentState reports the live session for the presentation layer.
func (engine *Engine) CurrentState() State {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	return State{
		Status:        engine.status,
		Kind:          engine.session.Kind,
		Elapsed:       engine.session.Elapsed,
		Planned:       engine.session.Planned,
		CyclePosition: engine.cyclePosition,
	}
}

// Statistics returns the current all-time totals.
func (engine *Engine) Statistics() model.Statistics {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	return engine.aggregator.Totals()
}

// Progress reports focus time toward the configured daily goal,
// counting today's completed units (seeded via SetDailyUnits) plus the
// in-flight focus session's elapsed time.
func (engine *Engine) Progress() model.Progress {
	engine.mu.Lock()
	defer engine.mu.Unlock()

	block := engine.config.FocusDuration
	goal := engine.config.DailyGoal
	total := time.Duration(goal) * block
	if total <= 0 {
		return model.Progress{}
	}

	done := time.Duration(engine.dailyUnits) * block
	if engine.status != StatusIdle && engine.session.Kind == model.KindFocus &&
		!engine.session.Status.Terminal() {
		done += engine.session.Elapsed
	}
	if done < 0 {
		done = 0
	}
	if done > total {
		done = total
	}

	percent := int(float64(done)/float64(total)*100 + 0.5)
	return model.Progress{Done: done, Total: total, Percent: percent}
}

func (engine *Engine) completeLocked() {
	engine.session.Status = model.StatusCompleted
	finished := engine.session

	engine.status = StatusTransitioning
	engine.emitLocked(Event{
		Type:    EventSessionEnd,
		Status:  StatusTransitioning,
		Kind:    finished.Kind,
		Message: "completed",
		At:      time.Now(),
	})

	engine.aggregator.RecordCompletion(finished)
	if finished.Kind == model.KindFocus {
		engine.dailyUnits++
	}
	engine.recordHistoryLocked(finished)
	engine.advanceLocked(finished.Kind)
}

func (engine *Engine) advanceLocked(finished model.SessionKind) {
	kind, planned, position := schedule.Next(finished, engine.cyclePosition, engine.config)
	engine.cyclePosition = position
	engine.session = model.Session{
		Kind:    kind,
		Planned: planned,
		Status:  model.StatusRunning,
	}
	engine.status = StatusRunning
	engine.resetRemindersLocked()

	engine.emitLocked(Event{
		Type:      EventStateChange,
		Status:    StatusRunning,
		Kind:      kind,
		Remaining: planned,
		At:        time.Now(),
	})
}

func (engine *Engine) recordHistoryLocked(finished model.Session) {
	if engine.options.History == nil {
		return
	}
	if err := engine.options.History.Record(finished, time.Now()); err != nil {
		engine.emitLocked(Event{
			Type:    EventPersistError,
			Status:  engine.status,
			Message: fmt.Sprintf("record history: %v", err),
			At:      time.Now(),
		})
	}
}

func (engine *Engine) checkRemindersLocked(before time.Duration, now time.Time) {
	if engine.session.Kind != model.KindFocus {
		return
	}
	after := engine.session.Remaining()
	for _, mark := range engine.config.RemindAt {
		if mark <= 0 || engine.reminded[mark] {
			continue
		}
		if before > mark && after <= mark {
			engine.reminded[mark] = true
			engine.emitLocked(Event{
				Type:      EventReminder,
				Status:    engine.status,
				Kind:      engine.session.Kind,
				Remaining: after,
				At:        now,
			})
		}
	}
}

func (engine *Engine) resetRemindersLocked() {
	engine.reminded = make(map[time.Duration]bool)
}

func (engine *Engine) sessionProgressLocked() float64 {
	if engine.session.Planned <= 0 {
		return 1
	}
	progress := float64(engine.session.Elapsed) / float64(engine.session.Planned)
	if progress < 0 {
		return 0
	}
	if progress > 1 {
		return 1
	}
	return progress
}

func (engine *Engine) snapshotLocked() model.Snapshot {
	snapshot := model.Snapshot{
		CyclePosition: engine.cyclePosition,
		Stats:         engine.aggregator.Totals(),
	}
	if engine.status != StatusIdle {
		session := engine.session
		snapshot.Session = &session
	}
	return snapshot
}

func (engine *Engine) persistLocked() error {
	if engine.options.Store == nil {
		return nil
	}
	if err := engine.options.Store.Save(engine.snapshotLocked()); err != nil {
		engine.emitLocked(Event{
			Type:    EventPersistError,
			Status:  engine.status,
			Message: err.Error(),
			At:      time.Now(),
		})
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (engine *Engine) emit(event Event) {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	engine.emitLocked(event)
}

func (engine *Engine) emitLocked(event Event) {
	events := append([]chan Event(nil), engine.events...)
	for _, ch := range events {
		select {
		case ch <- event:
		default:
		}
	}
}
