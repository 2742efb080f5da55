package store

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/itohio/agrimon/pkg/sample"
)

// Files is the flat-file store: one CSV data file and two text event logs.
// Every write opens the file in append mode and closes it again, so a removed
// medium only loses the writes made while it is absent.
type Files struct {
	mu sync.Mutex

	dataPath  string
	alertPath string
	errorPath string
}

// NewFiles prepares dir and creates the data file with its header if it is
// empty or missing.
func NewFiles(dir, dataFile, alertFile, errorFile string) (*Files, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	f := &Files{
		dataPath:  filepath.Join(dir, dataFile),
		alertPath: filepath.Join(dir, alertFile),
		errorPath: filepath.Join(dir, errorFile),
	}

	if err := f.ensureHeader(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataFile, err)
	}

	return f, nil
}

// DataPath returns the path of the CSV data file.
func (f *Files) DataPath() string {
	return f.dataPath
}

func (f *Files) ensureHeader() error {
	file, err := os.OpenFile(f.dataPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}
	if info.Size() > 0 {
		return nil
	}

	return writeRecord(file, Header)
}

// WriteSnapshot appends one record to the data file.
func (f *Files) WriteSnapshot(at time.Time, s sample.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	file, err := os.OpenFile(f.dataPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open data file: %w", err)
	}
	defer file.Close()

	if err := writeRecord(file, Row(at, s)); err != nil {
		return fmt.Errorf("failed to write data file: %w", err)
	}
	return nil
}

// WriteEvent appends one line to the alert or error log.
func (f *Files) WriteEvent(kind EventKind, at time.Time, message string) error {
	path := f.errorPath
	if kind == KindAlert {
		path = f.alertPath
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open %s log: %w", kind, err)
	}
	defer file.Close()

	if _, err := fmt.Fprintln(file, FormatEvent(at, message)); err != nil {
		return fmt.Errorf("failed to write %s log: %w", kind, err)
	}
	return nil
}

// Close is a no-op; files are closed after every write.
func (f *Files) Close() error {
	return nil
}

func writeRecord(file *os.File, record []string) error {
	w := csv.NewWriter(file)
	if err := w.Write(record); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}
