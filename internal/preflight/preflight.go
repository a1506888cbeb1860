package preflight

import (
	"context"

	"github.com/manolodalbo/nurse-cadet/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Options selects optional checks.
type Options struct {
	// CheckLLM issues one live request to the recognition service. Each
	// request may count against the provider's quota.
	CheckLLM bool
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config, opts Options) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckReadableDir("Input directory", cfg.Paths.InputDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckPendingList(cfg.Paths.PendingFile),
	}
	if cfg.Paths.LogDir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}

	if opts.CheckLLM {
		results = append(results, CheckLLM(ctx, "Recognition service", cfg.GetLLM()))
	}

	return results
}
