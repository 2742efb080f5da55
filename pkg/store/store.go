// Package store persists snapshots and alert/error events.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/itohio/agrimon/pkg/config"
	"github.com/itohio/agrimon/pkg/sample"
)

// EventKind distinguishes the two event logs.
type EventKind string

const (
	KindAlert EventKind = "alert"
	KindError EventKind = "error"
)

var (
	// ErrUnavailable is returned when the storage medium cannot be prepared.
	ErrUnavailable = errors.New("storage unavailable")
	// ErrDataFile is returned when the data file cannot be created.
	ErrDataFile = errors.New("could not create data file")
	// ErrUnknownBackend is returned by Open for unsupported backends.
	ErrUnknownBackend = errors.New("unknown store backend")
)

// Store is a durable sink for readings and events.
type Store interface {
	WriteSnapshot(at time.Time, s sample.Snapshot) error
	WriteEvent(kind EventKind, at time.Time, message string) error
	Close() error
}

// Open creates the store selected by cfg.Backend.
func Open(cfg config.StoreConfig, runID string) (Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "csv":
		f, err := NewFiles(cfg.Dir, cfg.DataFile, cfg.AlertFile, cfg.ErrorFile)
		if err != nil {
			return nil, err
		}
		return f, nil
	case "sqlite":
		if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		db, err := NewSQLite(filepath.Join(cfg.Dir, cfg.SQLite), runID)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}
