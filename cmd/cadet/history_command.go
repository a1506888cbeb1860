package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/manolodalbo/nurse-cadet/internal/history"
)

type runJSON struct {
	ID            string     `json:"id"`
	Status        string     `json:"status"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
	CallBudget    int        `json:"call_budget"`
	Calls         int        `json:"calls"`
	Units         int        `json:"units_processed"`
	Records       int        `json:"records"`
	Errors        int        `json:"errors"`
	Blanks        int        `json:"blanks"`
	Skipped       int        `json:"skipped"`
	BudgetSkipped int        `json:"budget_skipped"`
	Message       string     `json:"message,omitempty"`
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent runs from the run journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withJournal(func(store *history.Store) error {
				runs, err := store.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if asJSON {
					out := make([]runJSON, 0, len(runs))
					for _, run := range runs {
						out = append(out, toRunJSON(run))
					}
					return writeJSON(cmd, out)
				}
				if len(runs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderHistoryTable(runs))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of runs to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func toRunJSON(run history.Run) runJSON {
	return runJSON{
		ID:            run.ID,
		Status:        string(run.Status),
		StartedAt:     run.StartedAt,
		FinishedAt:    run.FinishedAt,
		CallBudget:    run.CallBudget,
		Calls:         run.Totals.Calls,
		Units:         run.Totals.UnitsProcessed,
		Records:       run.Totals.Records,
		Errors:        run.Totals.Errors,
		Blanks:        run.Totals.Blanks,
		Skipped:       run.Totals.Skipped,
		BudgetSkipped: run.Totals.BudgetSkipped,
		Message:       run.Message,
	}
}

func renderHistoryTable(runs []history.Run) string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		duration := "-"
		if run.FinishedAt != nil {
			duration = run.Duration().Round(time.Second).String()
		}
		rows = append(rows, []string{
			shortID(run.ID),
			humanize.Time(run.StartedAt),
			string(run.Status),
			humanize.Comma(int64(run.Totals.Calls)),
			humanize.Comma(int64(run.Totals.Records)),
			humanize.Comma(int64(run.Totals.Errors + run.Totals.Blanks)),
			humanize.Comma(int64(run.Totals.UnitsProcessed)),
			duration,
		})
	}
	return renderTable(
		[]string{"Run", "Started", "Status", "Calls", "Records", "Errors", "Units", "Duration"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
	)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
