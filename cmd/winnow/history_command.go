package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"winnow/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded scan and merge runs",
	}
	historyCmd.AddCommand(newHistoryListCommand(ctx))
	historyCmd.AddCommand(newHistoryShowCommand(ctx))
	historyCmd.AddCommand(newHistoryClearCommand(ctx))
	return historyCmd
}

func (c *commandContext) withHistory(fn func(*history.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := history.Open(cfg.HistoryDBPath())
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func newHistoryListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				runs, err := store.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, runs)
				}
				if len(runs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No recorded runs")
					return nil
				}

				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					summary := fmt.Sprintf("%d groups, %s", run.Groups, humanize.IBytes(uint64(run.BytesSaved)))
					if run.Kind == "merge" {
						summary = fmt.Sprintf("%d merged, %d duplicates, %d renamed", run.Merged, run.Duplicates, run.Renamed)
					}
					rows = append(rows, []string{
						run.ID,
						run.Kind,
						run.StartedAt.Local().Format("2006-01-02 15:04"),
						run.Root,
						yesNo(run.DryRun),
						summary,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Kind", "Started", "Root", "Dry", "Summary"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum runs to list (0 for all)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit machine-readable JSON")
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run and its duplicate groups",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				run, groups, err := store.GetRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, map[string]any{"run": run, "groups": groupsJSON(groups)})
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Run %s (%s) on %s\n", run.ID, run.Kind, run.Root)
				fmt.Fprintf(out, "Started %s, finished %s, dry-run: %s\n",
					run.StartedAt.Local().Format("2006-01-02 15:04:05"),
					run.FinishedAt.Local().Format("2006-01-02 15:04:05"),
					yesNo(run.DryRun))
				if run.Kind == "merge" {
					fmt.Fprintf(out, "Merged %d, duplicates %d, renamed %d, errors %d\n",
						run.Merged, run.Duplicates, run.Renamed, run.Errors)
					return nil
				}
				renderGroups(cmd, groups)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit machine-readable JSON")
	return cmd
}

func newHistoryClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				if err := store.Clear(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "History cleared")
				return nil
			})
		},
	}
}
