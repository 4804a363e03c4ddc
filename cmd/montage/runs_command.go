package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"montage/internal/ledger"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect recorded pipeline runs",
	}

	runsCmd.AddCommand(newRunsListCommand(ctx))
	runsCmd.AddCommand(newRunsShowCommand(ctx))

	return runsCmd
}

func newRunsListCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLedger(func(store *ledger.Store) error {
				runs, err := store.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintln(out, "No runs recorded")
					return nil
				}

				colorize := shouldColorize(out)
				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					rows = append(rows, []string{
						run.ID,
						colorizeStatus(run.Status, colorize),
						run.TileSpec,
						run.Workspace,
						run.StartedAt.Local().Format(time.RFC3339),
					})
				}
				table := renderTable(
					[]string{"ID", "Status", "Tile Spec", "Workspace", "Started"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				)
				fmt.Fprintln(out, table)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to show")
	return cmd
}

func newRunsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the stage breakdown of one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLedger(func(store *ledger.Store) error {
				run, err := store.GetRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if run == nil {
					return fmt.Errorf("run %s not found", args[0])
				}

				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				fmt.Fprintf(out, "Run:       %s\n", run.ID)
				fmt.Fprintf(out, "Status:    %s\n", colorizeStatus(run.Status, colorize))
				fmt.Fprintf(out, "Tile spec: %s\n", run.TileSpec)
				fmt.Fprintf(out, "Workspace: %s\n", run.Workspace)
				fmt.Fprintf(out, "Started:   %s\n", run.StartedAt.Local().Format(time.RFC3339))
				if run.FinishedAt != nil {
					fmt.Fprintf(out, "Finished:  %s\n", run.FinishedAt.Local().Format(time.RFC3339))
				}
				if run.ErrorMessage != "" {
					fmt.Fprintf(out, "Error:     %s\n", run.ErrorMessage)
				}

				stages, err := store.StagesForRun(cmd.Context(), run.ID)
				if err != nil {
					return err
				}
				if len(stages) == 0 {
					fmt.Fprintln(out, "No stages recorded")
					return nil
				}

				rows := make([][]string, 0, len(stages))
				for _, stage := range stages {
					rows = append(rows, []string{
						stage.Stage,
						colorizeStatus(stage.Status, colorize),
						stage.Duration.Round(time.Millisecond).String(),
						stage.Artifact,
					})
				}
				table := renderTable(
					[]string{"Stage", "Status", "Duration", "Artifact"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
				)
				fmt.Fprintln(out, table)
				return nil
			})
		},
	}
}

func (c *commandContext) withLedger(fn func(*ledger.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := ledger.Open(cfg.Paths.LedgerPath)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
)

func colorizeStatus(status ledger.Status, colorize bool) string {
	if !colorize {
		return string(status)
	}
	switch status {
	case ledger.StatusCompleted:
		return ansiGreen + string(status) + ansiReset
	case ledger.StatusFailed:
		return ansiRed + string(status) + ansiReset
	case ledger.StatusRunning:
		return ansiYellow + string(status) + ansiReset
	default:
		return string(status)
	}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
