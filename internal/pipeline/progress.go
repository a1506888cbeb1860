package pipeline

import (
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/manolodalbo/nurse-cadet/internal/logging"
)

// progressReporter tracks handled items within one unit.
type progressReporter interface {
	Start(unit string, total int)
	Step()
	Finish()
}

func newProgressReporter(w io.Writer, logger *slog.Logger) progressReporter {
	if w != nil {
		return &barProgress{writer: w}
	}
	return &logProgress{logger: logger, sampler: logging.NewProgressSampler(10)}
}

// barProgress renders a terminal progress bar per unit.
type barProgress struct {
	writer io.Writer
	bar    *progressbar.ProgressBar
}

func (p *barProgress) Start(unit string, total int) {
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(p.writer),
		progressbar.OptionSetDescription(unit),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionOnCompletion(func() { _, _ = io.WriteString(p.writer, "\n") }),
	)
}

func (p *barProgress) Step() {
	if p.bar != nil {
		_ = p.bar.Add(1)
	}
}

func (p *barProgress) Finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
		p.bar = nil
	}
}

// logProgress emits sampled progress lines for non-interactive runs.
type logProgress struct {
	logger  *slog.Logger
	sampler *logging.ProgressSampler

	mu    sync.Mutex
	unit  string
	total int
	done  int
}

func (p *logProgress) Start(unit string, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.unit, p.total, p.done = unit, total, 0
}

func (p *logProgress) Step() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done++
	if p.sampler.ShouldLog(p.unit, p.done, p.total) {
		p.logger.Info("unit progress",
			logging.String(logging.FieldEventType, "unit_progress"),
			logging.Unit(p.unit),
			logging.Int("done", p.done),
			logging.Int("total", p.total),
		)
	}
}

func (p *logProgress) Finish() {}
