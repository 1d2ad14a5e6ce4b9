package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"studyclock/internal/core/model"
)

const historyFileName = "history.db"

// HistoryStore archives finished sessions in sqlite so statistics can
// be rebuilt and inspected across days.
type HistoryStore struct {
	db   *sql.DB
	path string
}

// NewHistoryStore opens (creating if needed) the history database.
func NewHistoryStore(dbPath string) (*HistoryStore, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, fmt.Errorf("history db path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("exec %q: %w", pragma, err)
		}
	}

	store := &HistoryStore{db: db, path: dbPath}
	if err := store.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return store, nil
}

// DefaultHistoryPath returns the history database location under the
// user's config directory.
func DefaultHistoryPath(appName string) (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(configDir, appName, historyFileName), nil
}

func (store *HistoryStore) ensureSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		kind            TEXT NOT NULL,
		planned_seconds INTEGER NOT NULL,
		elapsed_seconds INTEGER NOT NULL,
		status          TEXT NOT NULL,
		ended_at        TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_ended ON sessions(ended_at);
	`
	_, err := store.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (store *HistoryStore) Close() error {
	if store.db == nil {
		return nil
	}
	return store.db.Close()
}

// Record appends one finished session. Both completed and skipped
// sessions are archived; aggregate queries filter by status.
func (store *HistoryStore) Record(session model.Session, endedAt time.Time) error {
	if !session.Status.Terminal() {
		return fmt.Errorf("session status %q is not terminal", session.Status)
	}
	_, err := store.db.Exec(`
		INSERT INTO sessions (kind, planned_seconds, elapsed_seconds, status, ended_at)
		VALUES (?, ?, ?, ?, ?)`,
		string(session.Kind),
		int(session.Planned/time.Second),
		int(session.Elapsed/time.Second),
		string(session.Status),
		endedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// Totals rebuilds statistics from all completed sessions on record.
// Skipped sessions are present in the table but contribute nothing.
func (store *HistoryStore) Totals() (model.Statistics, error) {
	row := store.db.QueryRow(`
		SELECT
			COUNT(CASE WHEN kind = 'focus' THEN 1 END),
			COALESCE(SUM(CASE WHEN kind = 'focus' THEN elapsed_seconds END), 0),
			COALESCE(SUM(CASE WHEN kind != 'focus' THEN elapsed_seconds END), 0)
		FROM sessions WHERE status = 'completed'`)

	var units, focusSeconds, restSeconds int64
	if err := row.Scan(&units, &focusSeconds, &restSeconds); err != nil {
		return model.Statistics{}, fmt.Errorf("query totals: %w", err)
	}
	return model.Statistics{
		FocusUnits: int(units),
		FocusTime:  time.Duration(focusSeconds) * time.Second,
		RestTime:   time.Duration(restSeconds) * time.Second,
	}, nil
}

// UnitsSince counts completed focus units that ended at or after the
// given time.
func (store *HistoryStore) UnitsSince(since time.Time) (int, error) {
	row := store.db.QueryRow(`
		SELECT COUNT(*) FROM sessions
		WHERE status = 'completed' AND kind = 'focus' AND ended_at >= ?`,
		since.UTC().Format(time.RFC3339))

	var units int
	if err := row.Scan(&units); err != nil {
		return 0, fmt.Errorf("query units: %w", err)
	}
	return units, nil
}
