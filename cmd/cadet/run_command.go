package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/manolodalbo/nurse-cadet/internal/config"
	"github.com/manolodalbo/nurse-cadet/internal/extract"
	"github.com/manolodalbo/nurse-cadet/internal/history"
	"github.com/manolodalbo/nurse-cadet/internal/logging"
	"github.com/manolodalbo/nurse-cadet/internal/metrics"
	"github.com/manolodalbo/nurse-cadet/internal/notifications"
	"github.com/manolodalbo/nurse-cadet/internal/pipeline"
	"github.com/manolodalbo/nurse-cadet/internal/preflight"
	"github.com/manolodalbo/nurse-cadet/internal/services/llm"
)

type runOptions struct {
	input         string
	budget        int
	pool          int
	cooldown      int
	rpm           int
	skipPreflight bool
	noProgress    bool
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Extract records from every pending work unit",
		Long: `Run the extraction pipeline in the foreground.

Items already present in the records table or the error log are skipped, so an
interrupted or budget-limited run can simply be started again. Ctrl+C stops new
calls, waits for in-flight calls, and saves their results.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := applyRunOverrides(cmd, cfg, opts); err != nil {
				return err
			}
			if err := cfg.RequireAPIKey(); err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if !opts.skipPreflight {
				if err := preflight.Err(preflight.RunAll(runCtx, cfg, preflight.Options{})); err != nil {
					return err
				}
			}

			deps, cleanup, err := buildRunDeps(cfg, logger)
			if err != nil {
				return err
			}
			defer cleanup()
			if !opts.noProgress && isTerminal(cmd.ErrOrStderr()) {
				deps.Progress = cmd.ErrOrStderr()
			}

			p, err := pipeline.New(cfg, deps)
			if err != nil {
				return err
			}
			summary, err := p.Run(runCtx)
			if err != nil {
				return err
			}
			printRunSummary(cmd.OutOrStdout(), summary)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.input, "input", "", "Base directory of work-unit folders (overrides paths.input_dir)")
	cmd.Flags().IntVar(&opts.budget, "budget", 0, "Maximum recognition calls for this run, 0 for unlimited (overrides pipeline.call_budget)")
	cmd.Flags().IntVar(&opts.pool, "pool", 0, "Concurrent workers per unit (overrides pipeline.pool_size)")
	cmd.Flags().IntVar(&opts.cooldown, "cooldown", 0, "Seconds between one worker's calls (overrides pipeline.cooldown_seconds)")
	cmd.Flags().IntVar(&opts.rpm, "rpm", 0, "Shared cap on call starts per minute (overrides pipeline.requests_per_minute)")
	cmd.Flags().BoolVar(&opts.skipPreflight, "skip-preflight", false, "Skip directory and pending-list checks")
	cmd.Flags().BoolVar(&opts.noProgress, "no-progress", false, "Log progress instead of drawing a progress bar")
	return cmd
}

func applyRunOverrides(cmd *cobra.Command, cfg *config.Config, opts runOptions) error {
	flags := cmd.Flags()
	if flags.Changed("input") {
		input, err := config.ExpandPath(opts.input)
		if err != nil {
			return fmt.Errorf("resolve input directory: %w", err)
		}
		cfg.Paths.InputDir = input
	}
	if flags.Changed("budget") {
		cfg.Pipeline.CallBudget = opts.budget
	}
	if flags.Changed("pool") {
		cfg.Pipeline.PoolSize = opts.pool
	}
	if flags.Changed("cooldown") {
		cfg.Pipeline.CooldownSeconds = opts.cooldown
	}
	if flags.Changed("rpm") {
		cfg.Pipeline.RequestsPerMinute = opts.rpm
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid run options: %w", err)
	}
	return nil
}

// buildRunDeps wires the recognition client, journal, notifier, and metrics.
// A journal that cannot be opened is logged and left out.
func buildRunDeps(cfg *config.Config, logger *slog.Logger) (pipeline.Deps, func(), error) {
	llmCfg := cfg.GetLLM()
	client := llm.NewClient(llm.Config{
		APIKey:         llmCfg.APIKey,
		BaseURL:        llmCfg.BaseURL,
		Model:          llmCfg.Model,
		Referer:        llmCfg.Referer,
		Title:          llmCfg.Title,
		TimeoutSeconds: llmCfg.TimeoutSeconds,
	},
		llm.WithRetryMaxAttempts(llmCfg.MaxAttempts),
		llm.WithLogger(logger),
	)
	extractor, err := extract.New(client,
		extract.WithScale(cfg.Extraction.Scale),
		extract.WithJPEGQuality(cfg.Extraction.JPEGQuality),
		extract.WithValidation(cfg.Extraction.ValidateSchema),
		extract.WithLogger(logger),
	)
	if err != nil {
		return pipeline.Deps{}, nil, err
	}

	deps := pipeline.Deps{
		Extractor: extractor,
		Notifier:  notifications.NewService(cfg),
		Metrics:   metrics.New(),
		Logger:    logger,
	}
	cleanup := func() {}
	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		logging.WarnWithContext(logger, "run journal unavailable", "journal_open_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check state_dir permissions or delete history.db"),
			logging.String(logging.FieldImpact, "this run is not recorded in 'cadet history'"),
		)
	} else {
		deps.Journal = store
		cleanup = func() { _ = store.Close() }
	}
	return deps, cleanup, nil
}

func printRunSummary(out io.Writer, s pipeline.Summary) {
	budget := "unlimited"
	if s.CallBudget > 0 {
		budget = humanize.Comma(int64(s.CallBudget))
	}
	fmt.Fprintln(out, renderKeyValues([][2]string{
		{"Units pending", humanize.Comma(int64(s.Units))},
		{"Units processed", humanize.Comma(int64(s.UnitsProcessed))},
		{"Calls", humanize.Comma(int64(s.Calls))},
		{"Call budget", budget},
		{"Records", humanize.Comma(int64(s.Records))},
		{"Errors", humanize.Comma(int64(s.Errors))},
		{"Blank cards", humanize.Comma(int64(s.Blanks))},
		{"Already done", humanize.Comma(int64(s.Skipped))},
		{"Left for next run", humanize.Comma(int64(s.BudgetSkipped))},
		{"Duration", s.Duration.Round(time.Second).String()},
	}))
	if msg := s.StopMessage(); msg != "" {
		fmt.Fprintln(out, msg)
		return
	}
	if left := s.Units - s.UnitsProcessed; left > 0 {
		fmt.Fprintf(out, "%s left pending (missing, empty, or incomplete)\n", pluralUnits(left))
		return
	}
	fmt.Fprintln(out, "All pending units processed")
}

func pluralUnits(n int) string {
	if n == 1 {
		return "1 unit"
	}
	return humanize.Comma(int64(n)) + " units"
}
