package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/manolodalbo/nurse-cadet/internal/budget"
	"github.com/manolodalbo/nurse-cadet/internal/catalog"
	"github.com/manolodalbo/nurse-cadet/internal/config"
	"github.com/manolodalbo/nurse-cadet/internal/extract"
	"github.com/manolodalbo/nurse-cadet/internal/history"
	"github.com/manolodalbo/nurse-cadet/internal/ledger"
	"github.com/manolodalbo/nurse-cadet/internal/logging"
	"github.com/manolodalbo/nurse-cadet/internal/metrics"
	"github.com/manolodalbo/nurse-cadet/internal/notifications"
	"github.com/manolodalbo/nurse-cadet/internal/pool"
	"github.com/manolodalbo/nurse-cadet/internal/record"
	"github.com/manolodalbo/nurse-cadet/internal/services"
	"github.com/manolodalbo/nurse-cadet/internal/sink"
)

// Extractor turns one image into a record with exactly one service call.
type Extractor interface {
	Extract(ctx context.Context, itemPath string) (record.Record, error)
}

// Deps bundles the collaborators of a run. Only Extractor is required.
type Deps struct {
	Extractor Extractor
	Journal   *history.Store
	Notifier  notifications.Service
	Metrics   *metrics.Recorder
	Logger    *slog.Logger
	// Progress, when set, receives a per-unit progress bar. Otherwise progress
	// is logged at 10% steps.
	Progress io.Writer
	// Sleep and Now replace the pool's cooldown sleep and clock, for tests.
	Sleep func(ctx context.Context, d time.Duration) error
	Now   func() time.Time
}

// Pipeline runs extraction over the pending units described by its config.
type Pipeline struct {
	cfg       *config.Config
	keyer     ledger.Keyer
	extractor Extractor
	journal   *history.Store
	notifier  notifications.Service
	metrics   *metrics.Recorder
	logger    *slog.Logger
	// base is the caller's logger, handed to collaborators that tag their own component.
	base     *slog.Logger
	progress io.Writer
	sleep    func(ctx context.Context, d time.Duration) error
	now      func() time.Time
}

// Summary reports what a run did.
type Summary struct {
	RunID           string
	Units           int
	UnitsProcessed  int
	Calls           int
	Records         int
	Errors          int
	Blanks          int
	Skipped         int
	BudgetSkipped   int
	CallBudget      int
	BudgetExhausted bool
	Interrupted     bool
	Duration        time.Duration
}

// Status maps the summary to a journal status.
func (s Summary) Status() history.RunStatus {
	switch {
	case s.Interrupted:
		return history.RunInterrupted
	case s.BudgetExhausted:
		return history.RunBudgetExhausted
	default:
		return history.RunCompleted
	}
}

// StopMessage is the operator-facing reason the run ended early, or "" when
// it ran to completion.
func (s Summary) StopMessage() string {
	switch {
	case s.Interrupted:
		return "Interrupted; in-flight calls finished and results were saved"
	case s.BudgetExhausted:
		return fmt.Sprintf("Call budget of %d reached; run stopped", s.CallBudget)
	default:
		return ""
	}
}

func (s Summary) totals() history.Totals {
	return history.Totals{
		Calls:          s.Calls,
		UnitsProcessed: s.UnitsProcessed,
		Records:        s.Records,
		Errors:         s.Errors,
		Blanks:         s.Blanks,
		Skipped:        s.Skipped,
		BudgetSkipped:  s.BudgetSkipped,
	}
}

// New validates the configuration and dependencies.
func New(cfg *config.Config, deps Deps) (*Pipeline, error) {
	if cfg == nil {
		return nil, errors.New("pipeline requires a config")
	}
	if deps.Extractor == nil {
		return nil, errors.New("pipeline requires an extractor")
	}
	keyer, err := ledger.KeyerFor(cfg.Pipeline.LedgerKey)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "select ledger key", "", err)
	}
	if err := record.CheckFieldOrder(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "check record layout", "", err)
	}
	p := &Pipeline{
		cfg:       cfg,
		keyer:     keyer,
		extractor: deps.Extractor,
		journal:   deps.Journal,
		notifier:  deps.Notifier,
		metrics:   deps.Metrics,
		logger:    logging.NewComponentLogger(deps.Logger, "pipeline"),
		base:      deps.Logger,
		progress:  deps.Progress,
		sleep:     deps.Sleep,
		now:       deps.Now,
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p, nil
}

// run carries the state shared by every worker of one invocation.
type run struct {
	*Pipeline

	id       string
	ledger   *ledger.Ledger
	governor *budget.Governor
	sink     *sink.Sink
	errorLog *sink.ErrorLog
	progress progressReporter

	records atomic.Int64
	errors  atomic.Int64
	blanks  atomic.Int64
	skipped atomic.Int64
	starved atomic.Int64
}

// Run processes pending units until all are done, the call budget is spent,
// or ctx is cancelled. Cancellation stops new calls, lets in-flight calls
// finish, and flushes results before returning a nil error with
// Summary.Interrupted set. A non-nil error means durable state could not be
// written or read.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	started := p.now()
	lock, err := acquireLock(p.cfg.LockPath())
	if err != nil {
		return Summary{}, err
	}
	defer func() { _ = lock.Unlock() }()

	r := &run{
		Pipeline: p,
		id:       uuid.NewString(),
		governor: budget.New(p.cfg.Pipeline.CallBudget),
		errorLog: sink.NewErrorLog(p.cfg.Paths.ErrorsFile),
	}
	r.sink = sink.New(
		sink.NewCSV(p.cfg.Paths.RecordsFile, record.Header()),
		p.cfg.Pipeline.BatchSize,
		p.base,
		sink.WithFlushHook(p.metrics.RowsFlushed),
	)
	r.progress = newProgressReporter(p.progress, p.logger)
	ctx = services.WithRunID(ctx, r.id)
	logger := logging.WithContext(ctx, p.logger)

	if removed := logging.PruneLogs(logger, p.cfg.Paths.LogDir, p.cfg.Logging.RetentionDays, started); removed > 0 {
		logger.Debug("old log files removed", logging.Int("count", removed))
	}
	r.journalStart(ctx)

	summary, runErr := r.execute(ctx)
	summary.RunID = r.id
	summary.CallBudget = p.cfg.Pipeline.CallBudget
	summary.Duration = p.now().Sub(started)
	r.finish(ctx, summary, runErr)
	return summary, runErr
}

func (r *run) execute(ctx context.Context) (Summary, error) {
	logger := logging.WithContext(ctx, r.logger)
	var summary Summary

	led, _, err := ledger.Load(ctx, r.keyer, r.cfg.Paths.RecordsFile, r.cfg.Paths.ErrorsFile, r.base)
	if err != nil {
		return summary, err
	}
	r.ledger = led

	cat := catalog.Open(r.cfg.Paths.PendingFile, r.cfg.Paths.ProcessedFile, catalog.Options{
		IgnoreDir: r.cfg.Paths.IgnoreDir,
		Extension: r.cfg.Paths.ImageExtension,
	})
	units, err := cat.ListPending(r.cfg.Paths.InputDir)
	if err != nil {
		return summary, services.Wrap(services.ErrStorage, "pipeline", "list pending units", "", err)
	}
	summary.Units = len(units)
	logger.Info("pending units listed",
		logging.String(logging.FieldEventType, "units_listed"),
		logging.Int("units", len(units)),
		logging.Int("call_budget", r.governor.Ceiling()),
	)

	stopWatch := context.AfterFunc(ctx, r.governor.Stop)
	defer stopWatch()

	limiter := pool.NewLimiter(r.cfg.Pipeline.RequestsPerMinute)
	var runErr error
	for _, unit := range units {
		if r.governor.Stopped() || ctx.Err() != nil {
			break
		}
		done, err := r.processUnit(ctx, unit, limiter)
		if err != nil {
			runErr = err
			break
		}
		if !done {
			continue
		}
		if err := cat.MarkProcessed(unit.Name); err != nil {
			runErr = err
			break
		}
		summary.UnitsProcessed++
		r.metrics.Unit(metrics.UnitCompleted)
		logging.WithContext(services.WithUnit(ctx, unit.Name), r.logger).Info("unit processed",
			logging.String(logging.FieldEventType, "unit_processed"),
			logging.Int("items", len(unit.Items)),
		)
	}

	if err := r.sink.Flush(ctx); err != nil && runErr == nil {
		runErr = err
	}

	summary.Calls = r.governor.Count()
	summary.Records = int(r.records.Load())
	summary.Errors = int(r.errors.Load())
	summary.Blanks = int(r.blanks.Load())
	summary.Skipped = int(r.skipped.Load())
	summary.BudgetSkipped = int(r.starved.Load())
	summary.BudgetExhausted = r.governor.Exhausted()
	summary.Interrupted = ctx.Err() != nil
	return summary, runErr
}

// processUnit runs the pool over one unit and reports whether the unit is
// complete and may be marked processed.
func (r *run) processUnit(ctx context.Context, unit catalog.Unit, limiter *rate.Limiter) (bool, error) {
	ctx = services.WithUnit(ctx, unit.Name)
	logger := logging.WithContext(ctx, r.logger)

	if unit.Missing {
		logging.WarnWithContext(logger, "unit folder not found; left pending", "unit_missing",
			logging.String("path", unit.Path),
			logging.String(logging.FieldErrorHint, "check paths.input_dir or remove the folder from the pending list"),
			logging.String(logging.FieldImpact, "unit is skipped this run"),
		)
		r.metrics.Unit(metrics.UnitMissing)
		return false, nil
	}
	if unit.Err != nil {
		logging.WarnWithContext(logger, "unit folder unreadable; left pending", "unit_unreadable",
			logging.String("path", unit.Path),
			logging.Error(unit.Err),
			logging.String(logging.FieldErrorHint, "check permissions under the unit folder"),
			logging.String(logging.FieldImpact, "unit is skipped this run"),
		)
		r.metrics.Unit(metrics.UnitUnreadable)
		return false, nil
	}
	if len(unit.Items) == 0 {
		logger.Info("unit has no images; left pending",
			logging.String(logging.FieldEventType, "unit_empty"),
			logging.String("path", unit.Path),
		)
		r.metrics.Unit(metrics.UnitEmpty)
		return false, nil
	}

	logger.Info("unit started",
		logging.String(logging.FieldEventType, "unit_started"),
		logging.Int("items", len(unit.Items)),
	)
	starvedBefore := r.starved.Load()
	r.progress.Start(unit.Name, len(unit.Items))

	stats, poolErr := pool.Run(ctx, unit.Items, pool.Options{
		Size:     r.cfg.Pipeline.PoolSize,
		Cooldown: r.cfg.Cooldown(),
		Stop:     r.governor.Stopped,
		Limiter:  limiter,
		Sleep:    r.sleep,
		Now:      r.now,
	}, func(ctx context.Context, itemPath string) error {
		defer r.progress.Step()
		return r.handleItem(ctx, unit.Name, itemPath)
	})
	r.progress.Finish()

	if err := r.sink.Flush(ctx); err != nil {
		return false, err
	}
	if poolErr != nil {
		return false, poolErr
	}

	starved := r.starved.Load() - starvedBefore
	complete := stats.Unclaimed == 0 && starved == 0 && ctx.Err() == nil
	if !complete {
		status := metrics.UnitIncomplete
		if ctx.Err() != nil {
			status = metrics.UnitInterrupted
		}
		r.metrics.Unit(status)
		logger.Info("unit left pending",
			logging.String(logging.FieldEventType, "unit_incomplete"),
			logging.Int("claimed", stats.Claimed),
			logging.Int("unclaimed", stats.Unclaimed),
			logging.Int64("budget_skipped", starved),
		)
	}
	return complete, nil
}

// handleItem dedups, reserves budget, extracts, and records the outcome of
// one image. Only durable write failures are returned.
func (r *run) handleItem(ctx context.Context, unit, itemPath string) error {
	key := r.keyer.Key(unit, itemPath)
	ctx = services.WithItem(ctx, key)
	logger := logging.WithContext(ctx, r.logger)

	if r.ledger.Contains(key) {
		r.skipped.Add(1)
		r.metrics.Item(metrics.OutcomeSkipped)
		logger.Debug("item already complete", logging.String(logging.FieldEventType, "item_skipped"))
		return nil
	}
	if !r.governor.Acquire() {
		r.starved.Add(1)
		r.metrics.Item(metrics.OutcomeBudgetSkipped)
		r.journalOutcome(ctx, unit, key, history.OutcomeBudgetSkipped, "")
		return nil
	}

	start := r.now()
	rec, err := r.extractor.Extract(ctx, itemPath)
	r.metrics.Call(r.now().Sub(start))

	switch {
	case err != nil:
		reason := extract.Reason(err)
		if appendErr := r.errorLog.Append(key, reason); appendErr != nil {
			return appendErr
		}
		r.ledger.Record(key)
		r.errors.Add(1)
		r.metrics.Item(metrics.OutcomeError)
		r.journalOutcome(ctx, unit, key, history.OutcomeError, reason)
		logging.WarnWithContext(logger, "extraction failed", "item_failed",
			logging.String("outcome", extract.Outcome(err)),
			logging.String("reason", reason),
			logging.String(logging.FieldErrorHint, "see the error log; delete the row to retry the image"),
			logging.String(logging.FieldImpact, "image recorded in the error log"),
		)
	case rec.IsBlank():
		if appendErr := r.errorLog.Append(key, extract.ReasonBlank); appendErr != nil {
			return appendErr
		}
		r.ledger.Record(key)
		r.blanks.Add(1)
		r.metrics.Item(metrics.OutcomeBlank)
		r.journalOutcome(ctx, unit, key, history.OutcomeBlank, extract.ReasonBlank)
		logger.Info("blank card", logging.String(logging.FieldEventType, "item_blank"))
	default:
		rec.File = key
		if err := r.sink.Add(ctx, rec); err != nil {
			return err
		}
		r.ledger.Record(key)
		r.records.Add(1)
		r.metrics.Item(metrics.OutcomeRecord)
		r.journalOutcome(ctx, unit, key, history.OutcomeRecord, "")
		logger.Debug("record extracted", logging.String(logging.FieldEventType, "item_extracted"))
	}
	return nil
}
