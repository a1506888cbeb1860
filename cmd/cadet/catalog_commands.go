package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/manolodalbo/nurse-cadet/internal/config"
)

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the pending and processed work-unit lists",
	}
	catalogCmd.AddCommand(newCatalogInitCommand(ctx))
	return catalogCmd
}

func newCatalogInitCommand(ctx *commandContext) *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Add every unknown folder under the input directory to the pending list",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			base := cfg.Paths.InputDir
			if input != "" {
				if base, err = config.ExpandPath(input); err != nil {
					return fmt.Errorf("resolve input directory: %w", err)
				}
			}
			cat, err := ctx.catalog()
			if err != nil {
				return err
			}
			added, err := cat.Seed(base)
			if err != nil {
				return err
			}
			pending, processed, err := cat.Counts()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Added %d folders from %s\n", added, base)
			fmt.Fprintf(out, "Pending: %d, processed: %d\n", pending, processed)
			return nil
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "Base directory to scan (defaults to paths.input_dir)")
	return cmd
}
