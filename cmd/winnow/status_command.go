package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"winnow/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show configuration, directory access, and external binaries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			dirChecks := []preflight.Result{
				preflight.CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
				preflight.CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
				preflight.CheckDirectoryAccess("Quarantine directory", cfg.Paths.QuarantineDir),
			}
			depChecks := preflight.CheckSystemDeps(cfg)

			if jsonOut {
				return writeJSON(cmd, map[string]any{
					"directories":  dirChecks,
					"dependencies": depChecks,
				})
			}

			out := cmd.OutOrStdout()
			rows := make([][]string, 0, len(dirChecks))
			for _, check := range dirChecks {
				rows = append(rows, []string{check.Name, passFail(check.Passed), check.Detail})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Directory", "Status", "Detail"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft},
			))

			rows = rows[:0]
			for _, dep := range depChecks {
				status := "missing"
				if dep.Available {
					status = "ok"
				}
				rows = append(rows, []string{dep.Name, status, dep.Command, dep.Description})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Binary", "Status", "Command", "Purpose"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit machine-readable JSON")
	return cmd
}

func passFail(passed bool) string {
	if passed {
		return "ok"
	}
	return "failed"
}
