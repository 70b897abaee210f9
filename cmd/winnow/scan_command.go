package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"winnow/internal/config"
	"winnow/internal/dupe"
	"winnow/internal/exact"
	"winnow/internal/history"
	"winnow/internal/perceptual"
	"winnow/internal/preflight"
	"winnow/internal/resolve"
	"winnow/internal/runcontrol"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var (
		modeFlag      string
		actionFlag    string
		keepFlag      string
		moveToFlag    string
		threadsFlag   int
		threshold     int
		ignoreExts    []string
		ignoreFolders []string
		dryRun        bool
		jsonOut       bool
		noHistory     bool
	)

	cmd := &cobra.Command{
		Use:   "scan <root>",
		Short: "Find duplicate files under a directory tree",
		Long: `Scan walks the tree under <root> and reports duplicate groups.

Exact mode confirms byte-identical content through size buckets, a
partial-hash pre-screen, and a full-content hash. Perceptual mode
fingerprints images and videos and clusters files within a Hamming
distance threshold.

SIGUSR1 pauses and resumes a running scan; SIGINT stops it and reports
the groups confirmed so far.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger(cmd)
			if err != nil {
				return err
			}

			action, ok := dupe.ParseAction(actionFlag)
			if !ok {
				return fmt.Errorf("unknown action %q (delete, move, quarantine, review)", actionFlag)
			}
			keepValue := keepFlag
			if keepValue == "" {
				keepValue = cfg.Scan.KeepPolicy
			}
			policy, ok := resolve.ParseKeepPolicy(keepValue)
			if !ok {
				return fmt.Errorf("unknown keep policy %q (oldest, largest)", keepValue)
			}
			if modeFlag != "exact" && modeFlag != "perceptual" {
				return fmt.Errorf("unknown mode %q (exact, perceptual)", modeFlag)
			}

			scanCfg := dupe.ScanConfig{
				Threads:          threadsFlag,
				Threshold:        threshold,
				IgnoreExtensions: append(append([]string{}, cfg.Scan.IgnoreExtensions...), ignoreExts...),
				IgnoreFolders:    append(append([]string{}, cfg.Scan.IgnoreFolders...), ignoreFolders...),
				DryRun:           dryRun,
				Action:           action,
			}
			if scanCfg.Threads == 0 {
				scanCfg.Threads = cfg.Scan.Threads
			}
			if !cmd.Flags().Changed("threshold") {
				scanCfg.Threshold = cfg.Scan.SimilarityThreshold
			}
			if action == dupe.ActionMove {
				if moveToFlag == "" {
					return fmt.Errorf("--move-to is required with --action move")
				}
				expanded, err := config.ExpandPath(moveToFlag)
				if err != nil {
					return err
				}
				scanCfg.MoveTo = expanded
			}

			if res := preflight.CheckReadAccess("Scan root", args[0]); !res.Passed {
				return fmt.Errorf("%s: %s", res.Name, res.Detail)
			}
			if modeFlag == "perceptual" {
				for _, dep := range preflight.CheckSystemDeps(cfg) {
					if !dep.Available {
						logger.Warn("missing media binary, videos will be skipped",
							"name", dep.Name, "detail", dep.Detail)
					}
				}
			}

			mutating := action != dupe.ActionReview && !dryRun
			if mutating {
				release, err := acquireLock(cfg)
				if err != nil {
					return err
				}
				defer release()
			}

			gate := runcontrol.NewGate()
			runCtx, stop := runContext(cmd.Context(), gate, logger)
			defer stop()
			progress := newProgress(cmd.ErrOrStderr())

			var engine dupe.Engine
			switch modeFlag {
			case "exact":
				engine = exact.New(gate, progress, logger)
			case "perceptual":
				engine = perceptual.New(perceptual.Fingerprinter{
					FFmpegBinary:   cfg.Media.FFmpegBinary,
					FFprobeBinary:  cfg.Media.FFprobeBinary,
					MinVideoFrames: int64(cfg.Media.MinVideoFrames),
				}, gate, progress, logger)
			}

			started := time.Now()
			groups, err := engine.Scan(runCtx, args[0], scanCfg)
			if err != nil {
				return err
			}

			resolver := resolve.Resolver{
				Policy:        policy,
				Action:        action,
				MoveTo:        scanCfg.MoveTo,
				QuarantineDir: cfg.Paths.QuarantineDir,
				DryRun:        dryRun,
				Logger:        logger,
			}
			resolution := resolver.Resolve(groups)

			if !noHistory {
				if err := recordScanRun(cmd, cfg, modeFlag, args[0], started, action, dryRun, groups, resolution); err != nil {
					logger.Warn("history not recorded", "error", err)
				}
			}

			if jsonOut {
				return writeJSON(cmd, map[string]any{
					"mode":   modeFlag,
					"root":   args[0],
					"groups": groupsJSON(groups),
					"stats":  resolution.Stats,
				})
			}
			renderGroups(cmd, groups)
			renderResolution(cmd, resolution, action, dryRun)
			return nil
		},
	}

	cmd.Flags().StringVarP(&modeFlag, "mode", "m", "exact", "Scan mode: exact or perceptual")
	cmd.Flags().StringVarP(&actionFlag, "action", "a", "review", "What to do with duplicates: delete, move, quarantine, review")
	cmd.Flags().StringVar(&keepFlag, "keep", "", "Which file to keep: oldest or largest")
	cmd.Flags().StringVar(&moveToFlag, "move-to", "", "Destination directory for --action move")
	cmd.Flags().IntVarP(&threadsFlag, "threads", "t", 0, "Worker count for hashing and fingerprinting")
	cmd.Flags().IntVar(&threshold, "threshold", 0, "Maximum summed Hamming distance for perceptual matches")
	cmd.Flags().StringSliceVar(&ignoreExts, "ignore-ext", nil, "Extensions to skip (repeatable)")
	cmd.Flags().StringSliceVar(&ignoreFolders, "ignore-folder", nil, "Folder names to skip (repeatable)")
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Report what would happen without changing files")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit machine-readable JSON")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "Do not record this run in the history database")
	return cmd
}

func recordScanRun(cmd *cobra.Command, cfg *config.Config, mode, root string, started time.Time, action dupe.Action, dryRun bool, groups []dupe.Group, resolution resolve.Result) error {
	store, err := history.Open(cfg.HistoryDBPath())
	if err != nil {
		return err
	}
	defer store.Close()

	var files int
	for _, g := range groups {
		files += len(g.Files)
	}
	run := &history.Run{
		Kind:       mode,
		Root:       root,
		StartedAt:  started,
		FinishedAt: time.Now(),
		DryRun:     dryRun,
		Action:     string(action),
		Files:      files,
		BytesSaved: resolution.Stats.BytesSaved,
		Errors:     resolution.Stats.Errors,
	}
	if err := store.RecordRun(cmd.Context(), run, groups); err != nil {
		return err
	}
	return nil
}

func renderResolution(cmd *cobra.Command, result resolve.Result, action dupe.Action, dryRun bool) {
	out := cmd.OutOrStdout()
	if action == dupe.ActionReview {
		return
	}
	verb := map[dupe.Action]string{
		dupe.ActionDelete:     "Deleted",
		dupe.ActionMove:       "Moved",
		dupe.ActionQuarantine: "Quarantined",
	}[action]
	count := result.Stats.Deleted + result.Stats.Moved + result.Stats.Quarantined
	if dryRun {
		fmt.Fprintf(out, "Dry run: would have %s %d files (%s)\n",
			map[dupe.Action]string{
				dupe.ActionDelete:     "deleted",
				dupe.ActionMove:       "moved",
				dupe.ActionQuarantine: "quarantined",
			}[action], count, humanize.IBytes(uint64(result.Stats.BytesSaved)))
		return
	}
	fmt.Fprintf(out, "%s %d files, reclaimed %s", verb, count, humanize.IBytes(uint64(result.Stats.BytesSaved)))
	if result.Stats.Errors > 0 {
		fmt.Fprintf(out, " (%d errors, see log)", result.Stats.Errors)
	}
	fmt.Fprintln(out)
}
