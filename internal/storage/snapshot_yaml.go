// Package storage persists timer state: the current snapshot as a YAML
// file and the session history in sqlite.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"studyclock/internal/core/model"
)

const (
	snapshotFileName = "snapshot.yaml"
	snapshotVersion  = 1
)

// ErrNotFound indicates no snapshot has been saved yet.
var ErrNotFound = errors.New("snapshot not found")

// ErrCorrupted indicates the snapshot on disk cannot be trusted. The
// caller is expected to fall back to a fresh idle state.
var ErrCorrupted = errors.New("snapshot corrupted")

type yamlSnapshot struct {
	Version       int          `yaml:"version"`
	Session       *yamlSession `yaml:"session,omitempty"`
	CyclePosition int          `yaml:"cycle_position"`
	Stats         yamlStats    `yaml:"stats"`
}

// Durations are stored as integer milliseconds so partial ticks
// survive the round trip.
type yamlSession struct {
	Kind          string `yaml:"kind"`
	PlannedMillis int64  `yaml:"planned_milliseconds"`
	ElapsedMillis int64  `yaml:"elapsed_milliseconds"`
	Status        string `yaml:"status"`
}

type yamlStats struct {
	FocusUnits  int   `yaml:"focus_units"`
	FocusMillis int64 `yaml:"focus_milliseconds"`
	RestMillis  int64 `yaml:"rest_milliseconds"`
}

// SnapshotStore reads and writes the persisted snapshot file. Saves are
// atomic: a crash mid-write never corrupts the previously durable
// snapshot.
type SnapshotStore struct {
	path string
}

// NewSnapshotStore creates a store backed by the given file path.
func NewSnapshotStore(path string) *SnapshotStore {
	return &SnapshotStore{path: path}
}

// DefaultSnapshotPath returns the snapshot location under the user's
// config directory.
func DefaultSnapshotPath(appName string) (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(configDir, appName, snapshotFileName), nil
}

// Save writes the snapshot to a temporary file in the same directory
// and renames it into place.
func (store *SnapshotStore) Save(snapshot model.Snapshot) error {
	fileData := yamlSnapshot{
		Version:       snapshotVersion,
		CyclePosition: snapshot.CyclePosition,
		Stats: yamlStats{
			FocusUnits:  snapshot.Stats.FocusUnits,
			FocusMillis: int64(snapshot.Stats.FocusTime / time.Millisecond),
			RestMillis:  int64(snapshot.Stats.RestTime / time.Millisecond),
		},
	}
	if snapshot.Session != nil {
		fileData.Session = &yamlSession{
			Kind:          string(snapshot.Session.Kind),
			PlannedMillis: int64(snapshot.Session.Planned / time.Millisecond),
			ElapsedMillis: int64(snapshot.Session.Elapsed / time.Millisecond),
			Status:        string(snapshot.Session.Status),
		}
	}

	serialized, err := yaml.Marshal(fileData)
	if err != nil {
		return fmt.Errorf("marshal snapshot yaml: %w", err)
	}

	dir := filepath.Dir(store.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(serialized); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp snapshot: %w", err)
	}
	if err := os.Rename(tmpName, store.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace snapshot file: %w", err)
	}
	return nil
}

// Load reads the persisted snapshot. It returns ErrNotFound when no
// snapshot exists and ErrCorrupted when the file cannot be parsed or
// fails validation.
func (store *SnapshotStore) Load() (model.Snapshot, error) {
	rawData, err := os.ReadFile(store.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return model.Snapshot{}, ErrNotFound
		}
		return model.Snapshot{}, fmt.Errorf("read snapshot file: %w", err)
	}

	var fileData yamlSnapshot
	if err := yaml.Unmarshal(rawData, &fileData); err != nil {
		return model.Snapshot{}, fmt.Errorf("%w: parse yaml: %v", ErrCorrupted, err)
	}
	if fileData.Version != snapshotVersion {
		return model.Snapshot{}, fmt.Errorf("%w: unsupported version %d", ErrCorrupted, fileData.Version)
	}

	snapshot := model.Snapshot{
		CyclePosition: fileData.CyclePosition,
		Stats: model.Statistics{
			FocusUnits: fileData.Stats.FocusUnits,
			FocusTime:  time.Duration(fileData.Stats.FocusMillis) * time.Millisecond,
			RestTime:   time.Duration(fileData.Stats.RestMillis) * time.Millisecond,
		},
	}
	if fileData.Session != nil {
		snapshot.Session = &model.Session{
			Kind:    model.SessionKind(fileData.Session.Kind),
			Planned: time.Duration(fileData.Session.PlannedMillis) * time.Millisecond,
			Elapsed: time.Duration(fileData.Session.ElapsedMillis) * time.Millisecond,
			Status:  model.SessionStatus(fileData.Session.Status),
		}
	}

	if err := validateSnapshot(snapshot); err != nil {
		return model.Snapshot{}, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	return snapshot, nil
}

func validateSnapshot(snapshot model.Snapshot) error {
	if snapshot.CyclePosition < 0 {
		return errors.New("negative cycle position")
	}
	stats := snapshot.Stats
	if stats.FocusUnits < 0 || stats.FocusTime < 0 || stats.RestTime < 0 {
		return errors.New("negative statistics totals")
	}

	session := snapshot.Session
	if session == nil {
		return nil
	}
	if !session.Kind.Valid() {
		return fmt.Errorf("unknown session kind %q", session.Kind)
	}
	if session.Status != model.StatusRunning && session.Status != model.StatusPaused {
		return fmt.Errorf("unresumable session status %q", session.Status)
	}
	if session.Planned <= 0 {
		return errors.New("non-positive planned duration")
	}
	if session.Elapsed < 0 || session.Elapsed > session.Planned {
		return errors.New("elapsed outside planned range")
	}
	return nil
}
