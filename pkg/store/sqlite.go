package store

import (
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/itohio/agrimon/pkg/sample"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS readings (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id       TEXT NOT NULL,
	recorded_at  INTEGER,
	date         TEXT NOT NULL,
	time         TEXT NOT NULL,
	crop_temp    REAL,
	air_temp     REAL,
	crop_stress  REAL,
	rainfall     REAL,
	crop_height  REAL,
	tds          REAL,
	ph           REAL,
	turbidity    REAL,
	humidity     REAL,
	temperature  REAL
);
CREATE TABLE IF NOT EXISTS events (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id       TEXT NOT NULL,
	kind         TEXT NOT NULL,
	recorded_at  INTEGER,
	message      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_readings_run ON readings(run_id);
CREATE INDEX IF NOT EXISTS idx_events_kind ON events(kind);
`

// SQLite stores readings and events in a single database file. Rows are
// tagged with the run id of the process that wrote them.
type SQLite struct {
	db    *sql.DB
	runID string
}

// NewSQLite opens (creating if needed) the database at path.
func NewSQLite(path, runID string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open SQLite database: %w", ErrUnavailable, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: failed to ping SQLite database: %w", ErrUnavailable, err)
	}

	// A single writer; avoids SQLITE_BUSY between pooled connections.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: failed to create schema: %w", ErrDataFile, err)
	}

	return &SQLite{db: db, runID: runID}, nil
}

// DB exposes the underlying handle.
func (s *SQLite) DB() *sql.DB {
	return s.db
}

// WriteSnapshot inserts one row into readings.
func (s *SQLite) WriteSnapshot(at time.Time, snap sample.Snapshot) error {
	args := []any{s.runID, unixOrNull(at), FormatDate(at), FormatTime(at)}
	for _, v := range Values(snap) {
		args = append(args, floatOrNull(v))
	}

	_, err := s.db.Exec(`
		INSERT INTO readings (
			run_id, recorded_at, date, time,
			crop_temp, air_temp, crop_stress, rainfall, crop_height,
			tds, ph, turbidity, humidity, temperature
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...)
	if err != nil {
		return fmt.Errorf("failed to insert reading: %w", err)
	}
	return nil
}

// WriteEvent inserts one row into events.
func (s *SQLite) WriteEvent(kind EventKind, at time.Time, message string) error {
	_, err := s.db.Exec(
		`INSERT INTO events (run_id, kind, recorded_at, message) VALUES (?, ?, ?, ?)`,
		s.runID, string(kind), unixOrNull(at), message,
	)
	if err != nil {
		return fmt.Errorf("failed to insert %s event: %w", kind, err)
	}
	return nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func unixOrNull(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

func floatOrNull(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}
