package storage

import (
	"path/filepath"
	"testing"
	"time"

	"studyclock/internal/core/model"
)

func tempHistory(t *testing.T) *HistoryStore {
	t.Helper()
	store, err := NewHistoryStore(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func record(t *testing.T, store *HistoryStore, kind model.SessionKind, elapsed time.Duration, status model.SessionStatus, endedAt time.Time) {
	t.Helper()
	session := model.Session{Kind: kind, Planned: elapsed, Elapsed: elapsed, Status: status}
	if err := store.Record(session, endedAt); err != nil {
		t.Fatalf("record %s %s: %v", kind, status, err)
	}
}

func TestTotalsFromCompletedSessions(t *testing.T) {
	store := tempHistory(t)
	now := time.Now()

	record(t, store, model.KindFocus, 50*time.Minute, model.StatusCompleted, now)
	record(t, store, model.KindBreak, 10*time.Minute, model.StatusCompleted, now)
	record(t, store, model.KindFocus, 50*time.Minute, model.StatusCompleted, now)
	record(t, store, model.KindLunch, 30*time.Minute, model.StatusCompleted, now)

	totals, err := store.Totals()
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	want := model.Statistics{
		FocusUnits: 2,
		FocusTime:  100 * time.Minute,
		RestTime:   40 * time.Minute,
	}
	if totals != want {
		t.Fatalf("want %+v, got %+v", want, totals)
	}
}

func TestSkippedRowsArchivedButExcludedFromTotals(t *testing.T) {
	store := tempHistory(t)
	now := time.Now()

	record(t, store, model.KindFocus, 50*time.Minute, model.StatusCompleted, now)
	record(t, store, model.KindFocus, 50*time.Minute, model.StatusSkipped, now)
	record(t, store, model.KindBreak, 10*time.Minute, model.StatusSkipped, now)

	totals, err := store.Totals()
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	if totals.FocusUnits != 1 || totals.FocusTime != 50*time.Minute || totals.RestTime != 0 {
		t.Fatalf("skipped sessions leaked into totals: %+v", totals)
	}
}

func TestRecordRejectsLiveSession(t *testing.T) {
	store := tempHistory(t)
	session := model.Session{
		Kind: model.KindFocus, Planned: time.Minute, Status: model.StatusRunning,
	}
	if err := store.Record(session, time.Now()); err == nil {
		t.Fatalf("want error for non-terminal session")
	}
}

func TestUnitsSince(t *testing.T) {
	store := tempHistory(t)
	now := time.Now()

	record(t, store, model.KindFocus, 50*time.Minute, model.StatusCompleted, now.Add(-48*time.Hour))
	record(t, store, model.KindFocus, 50*time.Minute, model.StatusCompleted, now.Add(-time.Hour))
	record(t, store, model.KindFocus, 50*time.Minute, model.StatusCompleted, now)
	record(t, store, model.KindFocus, 50*time.Minute, model.StatusSkipped, now)

	units, err := store.UnitsSince(now.Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("units since: %v", err)
	}
	if units != 2 {
		t.Fatalf("want 2 units in window, got %d", units)
	}
}
