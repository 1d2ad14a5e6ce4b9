package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"studyclock/internal/core/model"
)

func tempStore(t *testing.T) *SnapshotStore {
	t.Helper()
	return NewSnapshotStore(filepath.Join(t.TempDir(), "snapshot.yaml"))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := tempStore(t)
	want := model.Snapshot{
		Session: &model.Session{
			Kind:    model.KindFocus,
			Planned: 50 * time.Minute,
			Elapsed: 12 * time.Minute,
			Status:  model.StatusRunning,
		},
		CyclePosition: 2,
		Stats: model.Statistics{
			FocusUnits: 3,
			FocusTime:  150 * time.Minute,
			RestTime:   20 * time.Minute,
		},
	}

	if err := store.Save(want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if got.Session == nil || *got.Session != *want.Session {
		t.Fatalf("session mismatch: want %+v, got %+v", want.Session, got.Session)
	}
	if got.CyclePosition != want.CyclePosition {
		t.Fatalf("cycle position: want %d, got %d", want.CyclePosition, got.CyclePosition)
	}
	if got.Stats != want.Stats {
		t.Fatalf("stats mismatch: want %+v, got %+v", want.Stats, got.Stats)
	}
}

func TestSaveLoadKeepsSubSecondElapsed(t *testing.T) {
	store := tempStore(t)
	want := model.Snapshot{
		Session: &model.Session{
			Kind:    model.KindFocus,
			Planned: 4 * time.Second,
			Elapsed: 1500 * time.Millisecond,
			Status:  model.StatusRunning,
		},
		Stats: model.Statistics{
			FocusUnits: 1,
			FocusTime:  2500 * time.Millisecond,
			RestTime:   750 * time.Millisecond,
		},
	}

	if err := store.Save(want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if got.Session.Elapsed != want.Session.Elapsed {
		t.Fatalf("round trip lost time: want elapsed %s, got %s",
			want.Session.Elapsed, got.Session.Elapsed)
	}
	if got.Stats != want.Stats {
		t.Fatalf("round trip lost stats time: want %+v, got %+v", want.Stats, got.Stats)
	}
}

func TestSaveLoadIdleSnapshot(t *testing.T) {
	store := tempStore(t)
	want := model.Snapshot{Stats: model.Statistics{FocusUnits: 1, FocusTime: 50 * time.Minute}}

	if err := store.Save(want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Session != nil {
		t.Fatalf("want nil session, got %+v", got.Session)
	}
	if got.Stats != want.Stats {
		t.Fatalf("stats mismatch: %+v", got.Stats)
	}
}

func TestLoadMissingFileIsNotFound(t *testing.T) {
	store := tempStore(t)
	if _, err := store.Load(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestLoadGarbageIsCorrupted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.yaml")
	if err := os.WriteFile(path, []byte("{{{not yaml"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewSnapshotStore(path).Load(); !errors.Is(err, ErrCorrupted) {
		t.Fatalf("want ErrCorrupted, got %v", err)
	}
}

func TestLoadUnsupportedVersionIsCorrupted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.yaml")
	if err := os.WriteFile(path, []byte("version: 99\ncycle_position: 0\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewSnapshotStore(path).Load(); !errors.Is(err, ErrCorrupted) {
		t.Fatalf("want ErrCorrupted, got %v", err)
	}
}

func TestLoadInvalidSessionIsCorrupted(t *testing.T) {
	cases := map[string]model.Snapshot{
		"elapsed beyond planned": {
			Session: &model.Session{
				Kind: model.KindFocus, Planned: time.Minute,
				Elapsed: 2 * time.Minute, Status: model.StatusRunning,
			},
		},
		"terminal status": {
			Session: &model.Session{
				Kind: model.KindBreak, Planned: time.Minute,
				Elapsed: time.Minute, Status: model.StatusCompleted,
			},
		},
		"unknown kind": {
			Session: &model.Session{
				Kind: "nap", Planned: time.Minute, Status: model.StatusRunning,
			},
		},
	}

	for name, snapshot := range cases {
		store := tempStore(t)
		if err := store.Save(snapshot); err != nil {
			t.Fatalf("%s: save: %v", name, err)
		}
		if _, err := store.Load(); !errors.Is(err, ErrCorrupted) {
			t.Fatalf("%s: want ErrCorrupted, got %v", name, err)
		}
	}
}

func TestSaveReplacesWithoutLeftovers(t *testing.T) {
	dir := t.TempDir()
	store := NewSnapshotStore(filepath.Join(dir, "snapshot.yaml"))

	first := model.Snapshot{CyclePosition: 1}
	second := model.Snapshot{CyclePosition: 2}
	if err := store.Save(first); err != nil {
		t.Fatalf("save first: %v", err)
	}
	if err := store.Save(second); err != nil {
		t.Fatalf("save second: %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.CyclePosition != 2 {
		t.Fatalf("want latest snapshot, got position %d", got.CyclePosition)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".snapshot-") {
			t.Fatalf("temp file left behind: %s", entry.Name())
		}
	}
}
