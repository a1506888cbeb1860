package sink

import (
	"context"
	"log/slog"
	"sync"

	"github.com/manolodalbo/nurse-cadet/internal/logging"
	"github.com/manolodalbo/nurse-cadet/internal/record"
	"github.com/manolodalbo/nurse-cadet/internal/services"
)

// Appender is the durable table the sink flushes into.
type Appender interface {
	Append(rows ...[]string) error
}

// Sink buffers records and appends them in batches. A single mutex covers the
// buffer and the flush, so a batch-size flush racing a drain flush can neither
// duplicate nor drop rows.
type Sink struct {
	appender  Appender
	batchSize int
	logger    *slog.Logger
	onFlush   func(rows int)

	mu      sync.Mutex
	buffer  []record.Record
	flushed int
}

// Option customizes a Sink.
type Option func(*Sink)

// WithFlushHook registers a callback invoked after each successful flush.
func WithFlushHook(fn func(rows int)) Option {
	return func(s *Sink) {
		s.onFlush = fn
	}
}

// New returns a sink flushing every batchSize records.
func New(appender Appender, batchSize int, logger *slog.Logger, opts ...Option) *Sink {
	if batchSize <= 0 {
		batchSize = 1
	}
	s := &Sink{
		appender:  appender,
		batchSize: batchSize,
		logger:    logging.NewComponentLogger(logger, "sink"),
		buffer:    make([]record.Record, 0, batchSize),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add buffers rec and flushes when the buffer reaches the batch size.
func (s *Sink) Add(ctx context.Context, rec record.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffer = append(s.buffer, rec)
	if len(s.buffer) < s.batchSize {
		return nil
	}
	return s.flushLocked(ctx)
}

// Flush writes every buffered record.
func (s *Sink) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked(ctx)
}

// Pending returns the number of buffered, unwritten records.
func (s *Sink) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buffer)
}

// Flushed returns the number of records written so far.
func (s *Sink) Flushed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushed
}

func (s *Sink) flushLocked(ctx context.Context) error {
	if len(s.buffer) == 0 {
		return nil
	}
	rows := make([][]string, len(s.buffer))
	for i, rec := range s.buffer {
		rows[i] = rec.Row()
	}
	if err := s.appender.Append(rows...); err != nil {
		return services.Wrap(services.ErrStorage, "sink", "flush records", "", err)
	}
	s.flushed += len(rows)
	s.buffer = s.buffer[:0]
	logging.WithContext(ctx, s.logger).Debug("records flushed",
		logging.String(logging.FieldEventType, "records_flushed"),
		logging.Int("rows", len(rows)),
		logging.Int("total", s.flushed),
	)
	if s.onFlush != nil {
		s.onFlush(len(rows))
	}
	return nil
}
