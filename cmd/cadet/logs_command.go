package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/manolodalbo/nurse-cadet/internal/logs"
)

type logsOptions struct {
	lines  int
	follow bool
	raw    bool
	file   string
	filter logs.Filter
}

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var opts logsOptions

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the newest run log, optionally following it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := opts.file
			if path == "" {
				if path, err = logs.Latest(cfg.Paths.LogDir); err != nil {
					if errors.Is(err, logs.ErrNoLogs) {
						fmt.Fprintf(cmd.OutOrStdout(), "No log files in %s\n", cfg.Paths.LogDir)
						return nil
					}
					return err
				}
			}
			followCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return streamLogs(followCtx, cmd.OutOrStdout(), path, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.lines, "lines", "n", 50, "Number of trailing lines to read before filtering")
	cmd.Flags().BoolVarP(&opts.follow, "follow", "f", false, "Keep printing new lines until interrupted")
	cmd.Flags().BoolVar(&opts.raw, "raw", false, "Print JSON lines unchanged")
	cmd.Flags().StringVar(&opts.file, "file", "", "Read this log file instead of the newest one")
	cmd.Flags().StringVar(&opts.filter.Level, "level", "", "Minimum level (debug, info, warn, error)")
	cmd.Flags().StringVar(&opts.filter.RunID, "run", "", "Only lines from runs whose ID starts with this prefix")
	cmd.Flags().StringVar(&opts.filter.Unit, "unit", "", "Only lines about this work unit")
	cmd.Flags().StringVar(&opts.filter.Event, "event", "", "Only lines with this event_type")
	cmd.Flags().StringVar(&opts.filter.Search, "search", "", "Only lines containing this text (case-insensitive)")
	return cmd
}

func streamLogs(ctx context.Context, out io.Writer, path string, opts logsOptions) error {
	result, err := logs.Tail(ctx, path, logs.TailOptions{Offset: -1, Limit: opts.lines})
	if err != nil {
		return err
	}
	for {
		for _, line := range result.Lines {
			entry := logs.Parse(line)
			if !opts.filter.Match(entry) {
				continue
			}
			if opts.raw {
				fmt.Fprintln(out, line)
			} else {
				fmt.Fprintln(out, logs.Format(entry))
			}
		}
		if !opts.follow {
			return nil
		}
		result, err = logs.Tail(ctx, path, logs.TailOptions{Offset: result.Offset, Follow: true, Wait: 30 * time.Second})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
