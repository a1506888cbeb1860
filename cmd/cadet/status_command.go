package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/manolodalbo/nurse-cadet/internal/history"
	"github.com/manolodalbo/nurse-cadet/internal/ledger"
	"github.com/manolodalbo/nurse-cadet/internal/logging"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show work-unit progress, result tables, and the last run",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cat, err := ctx.catalog()
			if err != nil {
				return err
			}
			pending, processed, err := cat.Counts()
			if err != nil {
				return err
			}
			keyer, err := ledger.KeyerFor(cfg.Pipeline.LedgerKey)
			if err != nil {
				return err
			}
			_, stats, err := ledger.Load(cmd.Context(), keyer, cfg.Paths.RecordsFile, cfg.Paths.ErrorsFile, logging.NewNop())
			if err != nil {
				return err
			}

			var last *history.Run
			if err := ctx.withJournal(func(store *history.Store) error {
				runs, err := store.ListRuns(cmd.Context(), 1)
				if err != nil {
					return err
				}
				if len(runs) > 0 {
					last = &runs[0]
				}
				return nil
			}); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := isTerminal(out)
			lines := renderSectionHeader("Work units", colorize)
			lines = append(lines,
				renderStatusLine("Pending", pendingKind(pending), humanize.Comma(int64(pending)), colorize),
				renderStatusLine("Processed", statusInfo, humanize.Comma(int64(processed)), colorize),
				"",
			)
			lines = append(lines, renderSectionHeader("Result tables", colorize)...)
			lines = append(lines,
				renderStatusLine("Records", statusInfo, tableDetail(stats.Records, cfg.Paths.RecordsFile), colorize),
				renderStatusLine("Errors", statusInfo, tableDetail(stats.Errors, cfg.Paths.ErrorsFile), colorize),
			)
			if stats.Truncated {
				lines = append(lines, renderStatusLine("Records tail", statusWarn, "last row was incomplete and will be retried", colorize))
			}
			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Last run", colorize)...)
			lines = append(lines, lastRunLines(last, colorize)...)
			fmt.Fprintln(out, strings.Join(lines, "\n"))
			return nil
		},
	}
}

func pendingKind(pending int) statusKind {
	if pending == 0 {
		return statusOK
	}
	return statusInfo
}

func tableDetail(rows int, path string) string {
	return fmt.Sprintf("%s rows (%s)", humanize.Comma(int64(rows)), path)
}

func lastRunLines(run *history.Run, colorize bool) []string {
	if run == nil {
		return []string{renderStatusLine("Run", statusInfo, "none recorded", colorize)}
	}
	kind := statusOK
	switch run.Status {
	case history.RunFailed:
		kind = statusError
	case history.RunBudgetExhausted, history.RunInterrupted:
		kind = statusWarn
	case history.RunRunning:
		kind = statusInfo
	}
	lines := []string{
		renderStatusLine("Status", kind, string(run.Status), colorize),
		renderStatusLine("Started", statusInfo, fmt.Sprintf("%s (%s)", run.StartedAt.Local().Format(time.DateTime), humanize.Time(run.StartedAt)), colorize),
		renderStatusLine("Calls", statusInfo, callsDetail(run.Totals.Calls, run.CallBudget), colorize),
		renderStatusLine("Records / errors", statusInfo, fmt.Sprintf("%s / %s", humanize.Comma(int64(run.Totals.Records)), humanize.Comma(int64(run.Totals.Errors+run.Totals.Blanks))), colorize),
	}
	if run.Message != "" {
		lines = append(lines, renderStatusLine("Message", kind, run.Message, colorize))
	}
	return lines
}

func callsDetail(calls, budget int) string {
	if budget <= 0 {
		return humanize.Comma(int64(calls)) + " (no budget)"
	}
	return fmt.Sprintf("%s of %s", humanize.Comma(int64(calls)), humanize.Comma(int64(budget)))
}
