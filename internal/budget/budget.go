// Package budget enforces the per-run ceiling on recognition calls.
package budget

import "sync"

// Governor counts calls across all workers and raises a stop flag once the
// ceiling is reached. The count never exceeds the ceiling.
type Governor struct {
	mu      sync.Mutex
	ceiling int
	count   int
	stopped bool
	reason  StopReason
}

// StopReason records why the governor stopped.
type StopReason string

const (
	ReasonExhausted StopReason = "budget_exhausted"
	ReasonStopped   StopReason = "stopped"
)

// New returns a governor allowing ceiling calls. A ceiling of zero or less
// means unlimited.
func New(ceiling int) *Governor {
	return &Governor{ceiling: ceiling}
}

// Acquire reserves one call. It returns false once the governor has stopped;
// the caller must then skip the item without calling the service. The call
// that reaches the ceiling is granted and sets the stop flag.
func (g *Governor) Acquire() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.stopped {
		return false
	}
	g.count++
	if g.ceiling > 0 && g.count >= g.ceiling {
		g.stopped = true
		g.reason = ReasonExhausted
	}
	return true
}

// Stop raises the stop flag without consuming budget, for example on interrupt.
func (g *Governor) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.stopped {
		g.stopped = true
		g.reason = ReasonStopped
	}
}

// Stopped reports whether new calls are refused.
func (g *Governor) Stopped() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stopped
}

// Exhausted reports whether the stop was caused by reaching the ceiling.
func (g *Governor) Exhausted() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.reason == ReasonExhausted
}

// Count returns the number of calls granted so far.
func (g *Governor) Count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.count
}

// Ceiling returns the configured ceiling (zero or less means unlimited).
func (g *Governor) Ceiling() int {
	return g.ceiling
}
