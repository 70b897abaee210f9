package exact

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"winnow/internal/dupe"
	"winnow/internal/logging"
	"winnow/internal/runcontrol"
	"winnow/internal/scanner"
)

// Engine locates byte-identical duplicate groups under a root.
type Engine struct {
	gate     *runcontrol.Gate
	progress runcontrol.Reporter
	logger   *slog.Logger
}

// New constructs an exact engine sharing the run's gate and progress
// sink. Any argument may be nil.
func New(gate *runcontrol.Gate, progress runcontrol.Reporter, logger *slog.Logger) *Engine {
	if progress == nil {
		progress = runcontrol.NopReporter
	}
	return &Engine{gate: gate, progress: progress, logger: logging.OrNop(logger)}
}

type hashKey struct {
	size int64
	hash string
}

type hashResult struct {
	rec  dupe.FileRecord
	hash string
	err  error
}

// Scan walks root and returns the confirmed duplicate groups. A
// canceled run returns the groups fully confirmed before the stop with
// a nil error; only bad roots fail.
func (e *Engine) Scan(ctx context.Context, root string, cfg dupe.ScanConfig) ([]dupe.Group, error) {
	e.logger.Info("exact scan started", logging.String("root", root))

	ix, err := scanner.Walk(ctx, root, cfg, e.gate, e.progress, e.logger)
	if err != nil {
		return nil, err
	}

	var candidates []dupe.FileRecord
	for _, bucket := range ix.SizeCandidates() {
		candidates = append(candidates, bucket...)
	}
	e.logger.Info("size pre-filter complete",
		logging.Int("files", len(ix.Files)),
		logging.Int("candidates", len(candidates)))
	if ctx.Err() != nil || len(candidates) == 0 {
		return nil, nil
	}

	// Phase B: partial-hash pre-screen. Most size collisions are
	// coincidental; 4 KiB eliminates them without full reads.
	partial := make(map[hashKey][]dupe.FileRecord)
	completed := 0
	total := len(candidates)
	e.progress.Report(0, total, "pre-screening files")
	_ = runcontrol.Collect(ctx, cfg.Workers(), e.gate, candidates,
		func(_ context.Context, rec dupe.FileRecord) hashResult {
			hash, err := PartialHash(rec.Path)
			return hashResult{rec: rec, hash: hash, err: err}
		},
		func(res hashResult) {
			completed++
			e.progress.Report(completed, total, fmt.Sprintf("pre-screening: %d/%d", completed, total))
			if res.err != nil {
				e.logger.Warn("partial hash failed, skipping", logging.String("path", res.rec.Path), logging.Error(res.err))
				return
			}
			key := hashKey{size: res.rec.Size, hash: res.hash}
			partial[key] = append(partial[key], res.rec)
		})
	if ctx.Err() != nil {
		e.logger.Info("exact scan stopped during pre-screen")
		return nil, nil
	}

	var confirmTasks []dupe.FileRecord
	for _, files := range partial {
		if len(files) > 1 {
			confirmTasks = append(confirmTasks, files...)
		}
	}
	if len(confirmTasks) == 0 {
		e.logger.Info("exact scan complete", logging.Int("groups", 0))
		return nil, nil
	}

	// Phase C: full-content confirmation. The pre-screen is only a
	// filter; membership is decided here.
	confirmed := make(map[hashKey][]dupe.FileRecord)
	completed = 0
	total = len(confirmTasks)
	e.progress.Report(0, total, "hashing content")
	_ = runcontrol.Collect(ctx, cfg.Workers(), e.gate, confirmTasks,
		func(taskCtx context.Context, rec dupe.FileRecord) hashResult {
			hash, err := FullHash(taskCtx, e.gate, rec.Path)
			return hashResult{rec: rec, hash: hash, err: err}
		},
		func(res hashResult) {
			completed++
			e.progress.Report(completed, total, fmt.Sprintf("hashing: %d/%d", completed, total))
			if res.err != nil {
				if ctx.Err() == nil {
					e.logger.Warn("full hash failed, skipping", logging.String("path", res.rec.Path), logging.Error(res.err))
				}
				return
			}
			key := hashKey{size: res.rec.Size, hash: res.hash}
			confirmed[key] = append(confirmed[key], res.rec)
		})

	groups := assembleGroups(confirmed)
	stopped := ctx.Err() != nil
	e.logger.Info("exact scan complete",
		logging.Int("groups", len(groups)),
		logging.Bool("stopped", stopped))
	return groups, nil
}

// assembleGroups turns the confirmed buckets into groups ordered oldest
// first, with groups themselves ordered by representative path so
// repeated runs report identically.
func assembleGroups(confirmed map[hashKey][]dupe.FileRecord) []dupe.Group {
	var groups []dupe.Group
	for _, files := range confirmed {
		if len(files) < 2 {
			continue
		}
		sort.Slice(files, func(i, j int) bool {
			if !files[i].Created.Equal(files[j].Created) {
				return files[i].Created.Before(files[j].Created)
			}
			return files[i].Path < files[j].Path
		})
		groups = append(groups, dupe.Group{Files: files})
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Representative().Path < groups[j].Representative().Path
	})
	return groups
}
