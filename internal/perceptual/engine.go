package perceptual

import (
	"context"
	"fmt"
	"log/slog"

	"winnow/internal/dupe"
	"winnow/internal/logging"
	"winnow/internal/runcontrol"
	"winnow/internal/scanner"
)

// Engine finds visually similar images and videos.
type Engine struct {
	fp       Fingerprinter
	gate     *runcontrol.Gate
	progress runcontrol.Reporter
	logger   *slog.Logger
}

// New constructs a perceptual engine. Any of gate, progress, and logger
// may be nil.
func New(fp Fingerprinter, gate *runcontrol.Gate, progress runcontrol.Reporter, logger *slog.Logger) *Engine {
	if progress == nil {
		progress = runcontrol.NopReporter
	}
	return &Engine{fp: fp, gate: gate, progress: progress, logger: logging.OrNop(logger)}
}

type fpResult struct {
	rec dupe.FileRecord
	fp  *Fingerprint
	err error
}

// Scan fingerprints every image and video under root and clusters the
// results within cfg.Threshold. A canceled run clusters whatever was
// fully fingerprinted before the stop and returns it with a nil error.
func (e *Engine) Scan(ctx context.Context, root string, cfg dupe.ScanConfig) ([]dupe.Group, error) {
	e.logger.Info("perceptual scan started",
		logging.String("root", root),
		logging.Int("threshold", cfg.Threshold))

	ix, err := scanner.Walk(ctx, root, cfg, e.gate, e.progress, e.logger)
	if err != nil {
		return nil, err
	}
	candidates := ix.Filter(func(name string) bool {
		return KindOf(name) != KindNone
	})
	e.logger.Info("media pre-filter complete",
		logging.Int("files", len(ix.Files)),
		logging.Int("candidates", len(candidates)))
	if len(candidates) == 0 {
		return nil, nil
	}

	var fingerprints []Fingerprint
	skipped := 0
	completed := 0
	total := len(candidates)
	e.progress.Report(0, total, "fingerprinting media")
	_ = runcontrol.Collect(ctx, cfg.Workers(), e.gate, candidates,
		func(taskCtx context.Context, rec dupe.FileRecord) fpResult {
			fp, err := e.fp.Compute(taskCtx, rec)
			return fpResult{rec: rec, fp: fp, err: err}
		},
		func(res fpResult) {
			completed++
			e.progress.Report(completed, total, fmt.Sprintf("fingerprinting: %d/%d", completed, total))
			switch {
			case res.err != nil:
				if ctx.Err() == nil {
					e.logger.Warn("fingerprint failed, skipping", logging.String("path", res.rec.Path), logging.Error(res.err))
				}
				skipped++
			case res.fp == nil:
				e.logger.Debug("not fingerprintable, skipping", logging.String("path", res.rec.Path))
				skipped++
			default:
				fingerprints = append(fingerprints, *res.fp)
			}
		})

	groups := Cluster(fingerprints, cfg.Threshold)
	e.logger.Info("perceptual scan complete",
		logging.Int("fingerprinted", len(fingerprints)),
		logging.Int("skipped", skipped),
		logging.Int("groups", len(groups)),
		logging.Bool("stopped", ctx.Err() != nil))
	return groups, nil
}
