// Package ledger tracks which items already have a terminal outcome so a
// resumed run never spends a call on them twice.
//
// The ledger is rebuilt at start-up from the two durable completion logs: the
// records table (its file column) and the error log (its filename column).
// During a run it is updated in memory after each outcome is persisted.
package ledger

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"sync"

	"github.com/manolodalbo/nurse-cadet/internal/logging"
	"github.com/manolodalbo/nurse-cadet/internal/record"
	"github.com/manolodalbo/nurse-cadet/internal/services"
)

// ErrorFilenameColumn is the identity column of the error log.
const ErrorFilenameColumn = "filename"

// Ledger is a concurrency-safe set of completed item identities.
type Ledger struct {
	keyer Keyer

	mu   sync.Mutex
	done map[string]struct{}
}

// New returns an empty ledger.
func New(keyer Keyer) *Ledger {
	if keyer == nil {
		keyer = FilenameKeyer{}
	}
	return &Ledger{keyer: keyer, done: make(map[string]struct{})}
}

// Contains reports whether id already has a terminal outcome.
func (l *Ledger) Contains(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.done[id]
	return ok
}

// Record marks id complete. Recording an id twice is a no-op.
func (l *Ledger) Record(id string) {
	if id == "" {
		return
	}
	l.mu.Lock()
	l.done[id] = struct{}{}
	l.mu.Unlock()
}

// Len returns the number of completed identities.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.done)
}

// LoadStats reports what Load found in each completion log.
type LoadStats struct {
	Records   int
	Errors    int
	Truncated bool
}

// Load builds a ledger from the records table and the error log. Missing files
// contribute nothing. A file without the identity column is ignored with a
// warning. A row with the wrong number of fields (an interrupted write) is
// skipped with a warning; any other parse error stops reading that file,
// keeping the rows read so far. Only unreadable files return an error.
func Load(ctx context.Context, keyer Keyer, recordsPath, errorsPath string, logger *slog.Logger) (*Ledger, LoadStats, error) {
	logger = logging.NewComponentLogger(logger, "ledger")
	ledger := New(keyer)
	var stats LoadStats

	n, truncated, err := ledger.loadColumn(ctx, recordsPath, record.FileColumn, logger)
	if err != nil {
		return nil, stats, err
	}
	stats.Records = n
	stats.Truncated = truncated

	n, truncated, err = ledger.loadColumn(ctx, errorsPath, ErrorFilenameColumn, logger)
	if err != nil {
		return nil, stats, err
	}
	stats.Errors = n
	stats.Truncated = stats.Truncated || truncated

	logger.Info("completion ledger loaded",
		logging.String(logging.FieldEventType, "ledger_loaded"),
		logging.String("keyer", ledger.keyer.Name()),
		logging.Int("records", stats.Records),
		logging.Int("errors", stats.Errors),
		logging.Int("distinct", ledger.Len()),
	)
	return ledger, stats, nil
}

func (l *Ledger) loadColumn(ctx context.Context, path, column string, logger *slog.Logger) (int, bool, error) {
	if path == "" {
		return 0, false, nil
	}
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, services.Wrap(services.ErrStorage, "ledger", "open", path, err)
	}
	defer file.Close()
	if info, err := file.Stat(); err != nil || info.IsDir() {
		if err == nil {
			err = errors.New("is a directory")
		}
		return 0, false, services.Wrap(services.ErrStorage, "ledger", "open", path, err)
	}

	reader := csv.NewReader(file)
	reader.ReuseRecord = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return 0, false, nil
	}
	if err != nil {
		logging.WarnWithContext(logger, "completion log header unreadable; file ignored", "ledger_header_invalid",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "items listed in this file may be processed again"),
		)
		return 0, true, nil
	}
	index := slices.Index(header, column)
	if index < 0 {
		logging.WarnWithContext(logger, "completion log lacks identity column; file ignored", "ledger_column_missing",
			logging.String("path", path),
			logging.String("column", column),
			logging.String(logging.FieldErrorHint, fmt.Sprintf("restore the %q header or move the file aside", column)),
			logging.String(logging.FieldImpact, "items listed in this file may be processed again"),
		)
		return 0, false, nil
	}

	count := 0
	truncated := false
	for {
		if err := ctx.Err(); err != nil {
			return count, truncated, err
		}
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return count, truncated, nil
		}
		if err != nil {
			line := 0
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				line = parseErr.Line
			}
			if errors.Is(err, csv.ErrFieldCount) {
				logging.WarnWithContext(logger, "completion log row has the wrong number of fields; row skipped", "ledger_row_skipped",
					logging.String("path", path),
					logging.Int("line", line),
					logging.String(logging.FieldErrorHint, "a previous run was likely killed mid-write"),
					logging.String(logging.FieldImpact, "the item on this row may be processed again"),
				)
				truncated = true
				continue
			}
			logging.WarnWithContext(logger, "completion log is malformed; remaining rows ignored", "ledger_row_truncated",
				logging.String("path", path),
				logging.Int("line", line),
				logging.Int("rows_loaded", count),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "a previous run was likely killed mid-write; repair or delete the damaged line"),
				logging.String(logging.FieldImpact, "items after the malformed row may be processed again"),
			)
			return count, true, nil
		}
		if id := l.keyer.Normalize(row[index]); id != "" {
			l.Record(id)
			count++
		}
	}
}
