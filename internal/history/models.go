package history

import "time"

// RunStatus is the lifecycle state of a journaled run.
type RunStatus string

const (
	RunRunning         RunStatus = "running"
	RunCompleted       RunStatus = "completed"
	RunBudgetExhausted RunStatus = "budget_exhausted"
	RunInterrupted     RunStatus = "interrupted"
	RunFailed          RunStatus = "failed"
)

// Outcome classifies what happened to one item.
type Outcome string

const (
	OutcomeRecord        Outcome = "record"
	OutcomeError         Outcome = "error"
	OutcomeBlank         Outcome = "blank"
	OutcomeSkipped       Outcome = "skipped"
	OutcomeBudgetSkipped Outcome = "budget_skipped"
)

// Totals are the counters stored with a finished run.
type Totals struct {
	Calls          int
	UnitsProcessed int
	Records        int
	Errors         int
	Blanks         int
	Skipped        int
	BudgetSkipped  int
}

// Run is one journaled pipeline run.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt *time.Time
	Status     RunStatus
	CallBudget int
	Totals     Totals
	Message    string
}

// Duration returns the run's wall time, or zero while it is still open.
func (r Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
