// Package sink persists extraction outcomes: successful records to the
// records table, failures and blank cards to the error log.
package sink

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"
)

// ErrHeaderMismatch is returned when an existing table's header differs from
// the expected columns.
var ErrHeaderMismatch = errors.New("existing header does not match")

// CSVAppender appends rows to a delimited table, writing the header only when
// the file is new or empty.
type CSVAppender struct {
	path   string
	header []string

	mu      sync.Mutex
	checked bool
}

// NewCSV returns an appender for path with the given header.
func NewCSV(path string, header []string) *CSVAppender {
	return &CSVAppender{path: path, header: slices.Clone(header)}
}

// Path returns the table location.
func (a *CSVAppender) Path() string {
	return a.path
}

// Header returns the expected header.
func (a *CSVAppender) Header() []string {
	return slices.Clone(a.header)
}

// Append writes rows in a single open-write-close cycle.
func (a *CSVAppender) Append(rows ...[]string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(a.path), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", a.path, err)
	}
	file, err := os.OpenFile(a.path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", a.path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", a.path, err)
	}

	writer := csv.NewWriter(file)
	switch {
	case info.Size() == 0:
		if err := writer.Write(a.header); err != nil {
			return fmt.Errorf("write header to %s: %w", a.path, err)
		}
		a.checked = true
	case !a.checked:
		if err := a.verifyHeader(file); err != nil {
			return err
		}
		a.checked = true
	}
	if info.Size() > 0 && !endsWithNewline(file, info.Size()) {
		// A previous run died mid-row; start a fresh line so the damage stays on one row.
		if _, err := file.WriteString("\n"); err != nil {
			return fmt.Errorf("repair %s: %w", a.path, err)
		}
	}

	if err := writer.WriteAll(rows); err != nil {
		return fmt.Errorf("append to %s: %w", a.path, err)
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", a.path, err)
	}
	return file.Close()
}

func (a *CSVAppender) verifyHeader(file *os.File) error {
	reader := csv.NewReader(io.NewSectionReader(file, 0, 1<<20))
	reader.FieldsPerRecord = -1
	existing, err := reader.Read()
	if err != nil {
		return fmt.Errorf("read header of %s: %w", a.path, err)
	}
	if !slices.Equal(existing, a.header) {
		return fmt.Errorf("%s: %w: have %v, want %v", a.path, ErrHeaderMismatch, existing, a.header)
	}
	return nil
}

func endsWithNewline(file *os.File, size int64) bool {
	last := make([]byte, 1)
	if _, err := file.ReadAt(last, size-1); err != nil {
		return true
	}
	return last[0] == '\n'
}
