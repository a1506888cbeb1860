package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/manolodalbo/nurse-cadet/internal/preflight"
)

func newPreflightCommand(ctx *commandContext) *cobra.Command {
	var checkLLM bool

	cmd := &cobra.Command{
		Use:   "preflight",
		Short: "Check directories, the pending list, and optionally the recognition service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if checkLLM {
				if err := cfg.RequireAPIKey(); err != nil {
					return err
				}
			}
			results := preflight.RunAll(cmd.Context(), cfg, preflight.Options{CheckLLM: checkLLM})

			out := cmd.OutOrStdout()
			colorize := isTerminal(out)
			for _, line := range renderSectionHeader("Preflight", colorize) {
				fmt.Fprintln(out, line)
			}
			for _, result := range results {
				kind := statusOK
				if !result.Passed {
					kind = statusError
				}
				fmt.Fprintln(out, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}
			return preflight.Err(results)
		},
	}
	cmd.Flags().BoolVar(&checkLLM, "check-llm", false, "Send one live request to the recognition service (uses quota)")
	return cmd
}
