package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"winnow/internal/dupe"
	"winnow/internal/logging"
	"winnow/internal/runcontrol"
)

// Index is the result of walking one root.
type Index struct {
	// Files holds every record in walk order.
	Files []dupe.FileRecord
	// BySize buckets records by exact byte size.
	BySize map[int64][]dupe.FileRecord
	// Skipped counts files dropped by stat failures.
	Skipped int
}

// SizeCandidates returns only the buckets that can possibly contain
// duplicates (two or more files of the same size).
func (ix *Index) SizeCandidates() map[int64][]dupe.FileRecord {
	candidates := make(map[int64][]dupe.FileRecord)
	for size, files := range ix.BySize {
		if len(files) > 1 {
			candidates[size] = files
		}
	}
	return candidates
}

// Filter returns the records whose base name satisfies allow.
func (ix *Index) Filter(allow func(name string) bool) []dupe.FileRecord {
	var out []dupe.FileRecord
	for _, rec := range ix.Files {
		if allow(filepath.Base(rec.Path)) {
			out = append(out, rec)
		}
	}
	return out
}

// ValidateRoot resolves root and fails fast when it does not exist or
// is not a directory. This is the only fatal configuration check.
func ValidateRoot(root string) (string, error) {
	abs, err := filepath.Abs(strings.TrimSpace(root))
	if err != nil {
		return "", fmt.Errorf("resolve root %q: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("root %q: %w", abs, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("root %q is not a directory", abs)
	}
	return abs, nil
}

// Walk indexes the tree under root. Ignored folders are skipped whole,
// ignored extensions per file, and anything under cfg.MoveTo is
// excluded so a scan never indexes its own output. Per-file stat
// failures are logged and skipped. Cancellation or pause-then-cancel
// ends the walk early with the partial index and no error; the caller
// inspects ctx to distinguish a stopped run.
func Walk(ctx context.Context, root string, cfg dupe.ScanConfig, gate *runcontrol.Gate, progress runcontrol.Reporter, logger *slog.Logger) (*Index, error) {
	logger = logging.OrNop(logger)
	if progress == nil {
		progress = runcontrol.NopReporter
	}

	absRoot, err := ValidateRoot(root)
	if err != nil {
		return nil, err
	}

	var excluded string
	if strings.TrimSpace(cfg.MoveTo) != "" {
		if abs, err := filepath.Abs(cfg.MoveTo); err == nil {
			excluded = abs
		}
	}

	ix := &Index{BySize: make(map[int64][]dupe.FileRecord)}
	progress.Report(0, 0, "scanning file sizes")

	walkErr := filepath.WalkDir(absRoot, func(path string, entry fs.DirEntry, err error) error {
		if gate.Wait(ctx) != nil {
			return filepath.SkipAll
		}
		if err != nil {
			logger.Warn("walk error, skipping", logging.String("path", path), logging.Error(err))
			if entry != nil && entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if entry.IsDir() {
			if path != absRoot && cfg.IgnoresFolder(entry.Name()) {
				return filepath.SkipDir
			}
			if excluded != "" && path == excluded {
				return filepath.SkipDir
			}
			return nil
		}
		if !entry.Type().IsRegular() {
			return nil
		}
		if cfg.IgnoresExtension(entry.Name()) {
			return nil
		}

		info, err := entry.Info()
		if err != nil {
			ix.Skipped++
			logger.Warn("stat failed, skipping", logging.String("path", path), logging.Error(err))
			return nil
		}

		rec := dupe.FileRecord{Path: path, Size: info.Size(), Created: info.ModTime()}
		ix.Files = append(ix.Files, rec)
		ix.BySize[rec.Size] = append(ix.BySize[rec.Size], rec)
		if len(ix.Files)%100 == 0 {
			progress.Report(0, 0, fmt.Sprintf("scanning: %d files", len(ix.Files)))
		}
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("walk %s: %w", absRoot, walkErr)
	}
	return ix, nil
}
