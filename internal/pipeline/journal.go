package pipeline

import (
	"context"
	"log/slog"

	"github.com/manolodalbo/nurse-cadet/internal/history"
	"github.com/manolodalbo/nurse-cadet/internal/logging"
	"github.com/manolodalbo/nurse-cadet/internal/notifications"
)

func (r *run) journalStart(ctx context.Context) {
	if r.journal == nil {
		return
	}
	logger := logging.WithContext(ctx, r.logger)
	if n, err := r.journal.ResetStuckRuns(ctx); err != nil {
		r.journalWarn(logger, "reset stuck runs", err)
	} else if n > 0 {
		logger.Info("earlier runs marked interrupted",
			logging.String(logging.FieldEventType, "journal_reset"),
			logging.Int64("count", n),
		)
	}
	if err := r.journal.StartRun(ctx, r.id, r.cfg.Pipeline.CallBudget); err != nil {
		r.journalWarn(logger, "start run", err)
	}
}

func (r *run) journalOutcome(ctx context.Context, unit, item string, outcome history.Outcome, reason string) {
	if r.journal == nil {
		return
	}
	if err := r.journal.RecordOutcome(ctx, r.id, unit, item, outcome, reason); err != nil {
		r.journalWarn(logging.WithContext(ctx, r.logger), "record outcome", err)
	}
}

func (r *run) journalWarn(logger *slog.Logger, op string, err error) {
	logging.WarnWithContext(logger, "run journal write failed", "journal_write_failed",
		logging.String("operation", op),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check state_dir permissions or delete history.db"),
		logging.String(logging.FieldImpact, "run continues; result tables are unaffected"),
	)
}

// finish closes the journal entry, writes metrics, publishes notifications,
// and logs the summary. None of these can fail the run.
func (r *run) finish(ctx context.Context, summary Summary, runErr error) {
	logger := logging.WithContext(ctx, r.logger)

	if r.journal != nil {
		status := summary.Status()
		message := summary.StopMessage()
		if runErr != nil {
			status = history.RunFailed
			message = runErr.Error()
		}
		if err := r.journal.FinishRun(context.WithoutCancel(ctx), r.id, status, summary.totals(), message); err != nil {
			r.journalWarn(logger, "finish run", err)
		}
	}

	if err := r.metrics.WriteTextfile(r.cfg.Paths.MetricsFile); err != nil {
		logging.WarnWithContext(logger, "metrics textfile not written", "metrics_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.metrics_file"),
			logging.String(logging.FieldImpact, "metrics for this run are lost"),
		)
	}

	r.notify(ctx, summary, runErr)

	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "run_finished"),
		logging.String("status", string(summary.Status())),
		logging.Int("units", summary.Units),
		logging.Int("units_processed", summary.UnitsProcessed),
		logging.Int("calls", summary.Calls),
		logging.Int("records", summary.Records),
		logging.Int("errors", summary.Errors),
		logging.Int("blanks", summary.Blanks),
		logging.Int("skipped", summary.Skipped),
		logging.Int("budget_skipped", summary.BudgetSkipped),
		logging.Duration("duration", summary.Duration),
	}
	if runErr != nil {
		logging.ErrorWithContext(logger, "run failed", "run_failed",
			append(attrs[1:], logging.Error(runErr),
				logging.String(logging.FieldErrorHint, "fix the storage problem and rerun; completed images are skipped"))...)
		return
	}
	if msg := summary.StopMessage(); msg != "" {
		logger.Info(msg, logging.Args(attrs...)...)
		return
	}
	logger.Info("run finished", logging.Args(attrs...)...)
}

func (r *run) notify(ctx context.Context, summary Summary, runErr error) {
	if r.notifier == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	event := notifications.EventRunCompleted
	payload := notifications.Payload{
		"records":  summary.Records,
		"errors":   summary.Errors + summary.Blanks,
		"units":    summary.UnitsProcessed,
		"duration": summary.Duration,
	}
	switch {
	case runErr != nil:
		event = notifications.EventError
		payload = notifications.Payload{"error": runErr, "context": "run " + r.id}
	case summary.BudgetExhausted:
		event = notifications.EventBudgetExhausted
		payload = notifications.Payload{"budget": summary.CallBudget}
	case summary.Interrupted:
		return
	}
	if err := r.notifier.Publish(ctx, event, payload); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, r.logger), "notification failed", "notification_failed",
			logging.String("event", string(event)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
			logging.String(logging.FieldImpact, "run results are unaffected"),
		)
	}
}
