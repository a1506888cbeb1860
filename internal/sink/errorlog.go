package sink

import (
	"github.com/manolodalbo/nurse-cadet/internal/services"
)

// ErrorLogHeader is the error log's header.
var ErrorLogHeader = []string{"filename", "reason"}

// ErrorLog records failed and blank items, one synchronous append per outcome.
type ErrorLog struct {
	table *CSVAppender
}

// NewErrorLog returns an error log at path.
func NewErrorLog(path string) *ErrorLog {
	return &ErrorLog{table: NewCSV(path, ErrorLogHeader)}
}

// Path returns the log location.
func (l *ErrorLog) Path() string {
	return l.table.Path()
}

// Append records one outcome.
func (l *ErrorLog) Append(filename, reason string) error {
	if err := l.table.Append([]string{filename, reason}); err != nil {
		return services.Wrap(services.ErrStorage, "sink", "append error log", "", err)
	}
	return nil
}
