package main

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"winnow/internal/history"
	"winnow/internal/merge"
	"winnow/internal/preflight"
	"winnow/internal/runcontrol"
)

func newMergeCommand(ctx *commandContext) *cobra.Command {
	var (
		modeFlag   string
		dupeFlag   string
		dryRun     bool
		jsonOut    bool
		noHistory  bool
		skipChecks bool
	)

	cmd := &cobra.Command{
		Use:   "merge <master> <incoming>",
		Short: "Fold an incoming tree into a master tree without data loss",
		Long: `Merge reconciles the incoming tree into the master tree. Files whose
content already exists in the master are duplicates and handled per
--duplicates; new files are copied (or moved, with --transfer move)
into the mirrored path, renamed with a timestamp suffix when the
destination already exists.

Quarantined duplicates land in a sibling directory named
<incoming>_duplicates and are skipped by later merges.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger(cmd)
			if err != nil {
				return err
			}

			mode, ok := merge.ParseMode(modeFlag)
			if !ok {
				return fmt.Errorf("unknown transfer mode %q (copy, move)", modeFlag)
			}
			dupeAction, ok := merge.ParseDuplicateAction(dupeFlag)
			if !ok {
				return fmt.Errorf("unknown duplicate action %q (ignore, delete, quarantine)", dupeFlag)
			}

			master, incoming := args[0], args[1]
			if !skipChecks {
				if res := preflight.CheckDirectoryAccess("Master root", master); !res.Passed && !dryRun {
					return fmt.Errorf("%s: %s", res.Name, res.Detail)
				}
				if res := preflight.CheckReadAccess("Incoming root", incoming); !res.Passed {
					return fmt.Errorf("%s: %s", res.Name, res.Detail)
				}
				if mode == merge.ModeCopy && !dryRun {
					if res := preflight.CheckFreeSpace("Master root", master, treeSize(incoming)); !res.Passed {
						return fmt.Errorf("%s: %s", res.Name, res.Detail)
					}
				}
			}

			if !dryRun {
				release, err := acquireLock(cfg)
				if err != nil {
					return err
				}
				defer release()
			}

			gate := runcontrol.NewGate()
			runCtx, stop := runContext(cmd.Context(), gate, logger)
			defer stop()

			engine := &merge.Engine{
				Mode:            mode,
				DuplicateAction: dupeAction,
				DryRun:          dryRun,
				Gate:            gate,
				Progress:        newProgress(cmd.ErrOrStderr()),
				Logger:          logger,
			}

			started := time.Now()
			result, err := engine.Merge(runCtx, master, incoming)
			if err != nil {
				return err
			}

			if !noHistory {
				store, err := history.Open(cfg.HistoryDBPath())
				if err == nil {
					run := &history.Run{
						Kind:       "merge",
						Root:       master,
						StartedAt:  started,
						FinishedAt: time.Now(),
						DryRun:     dryRun,
						Action:     string(dupeAction),
						Merged:     result.Stats.Merged,
						Duplicates: result.Stats.Duplicates,
						Renamed:    result.Stats.Renamed,
						Errors:     result.Stats.Errors,
					}
					err = store.RecordRun(cmd.Context(), run, nil)
					_ = store.Close()
				}
				if err != nil {
					logger.Warn("history not recorded", "error", err)
				}
			}

			if jsonOut {
				return writeJSON(cmd, map[string]any{
					"master":    master,
					"incoming":  incoming,
					"stats":     result.Stats,
					"decisions": result.Decisions,
				})
			}
			renderMergeResult(cmd, result, dryRun)
			return nil
		},
	}

	cmd.Flags().StringVar(&modeFlag, "transfer", "copy", "How new files enter the master tree: copy or move")
	cmd.Flags().StringVar(&dupeFlag, "duplicates", "ignore", "What to do with incoming duplicates: ignore, delete, quarantine")
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Report what would happen without changing files")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit machine-readable JSON")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "Do not record this run in the history database")
	cmd.Flags().BoolVar(&skipChecks, "skip-checks", false, "Skip directory and free-space preflight checks")
	return cmd
}

// treeSize sums the incoming tree, best effort, for the free-space
// preflight.
func treeSize(root string) uint64 {
	var total uint64
	_ = filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil || entry.IsDir() || !entry.Type().IsRegular() {
			return nil
		}
		if info, err := entry.Info(); err == nil {
			total += uint64(info.Size())
		}
		return nil
	})
	return total
}
