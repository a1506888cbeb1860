package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/manolodalbo/nurse-cadet/internal/config"
	"github.com/manolodalbo/nurse-cadet/internal/sink"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the records table and error log to an Excel workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			target := strings.TrimSpace(output)
			if target == "" {
				records := cfg.Paths.RecordsFile
				target = strings.TrimSuffix(records, filepath.Ext(records)) + ".xlsx"
			} else if target, err = config.ExpandPath(target); err != nil {
				return fmt.Errorf("resolve output path: %w", err)
			}
			stats, err := sink.ExportWorkbook(cfg.Paths.RecordsFile, cfg.Paths.ErrorsFile, target)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d records and %d errors to %s\n", stats.Records, stats.Errors, stats.Path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Workbook path (defaults to the records table with .xlsx)")
	return cmd
}
