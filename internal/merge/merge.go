package merge

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"winnow/internal/exact"
	"winnow/internal/fileutil"
	"winnow/internal/logging"
	"winnow/internal/runcontrol"
	"winnow/internal/scanner"
)

// Mode selects whether merged files are copied or moved out of the
// incoming tree.
type Mode string

const (
	ModeCopy Mode = "copy"
	ModeMove Mode = "move"
)

// ParseMode normalizes a user-supplied mode string. Empty selects copy.
func ParseMode(value string) (Mode, bool) {
	switch Mode(strings.ToLower(strings.TrimSpace(value))) {
	case "":
		return ModeCopy, true
	case ModeCopy:
		return ModeCopy, true
	case ModeMove:
		return ModeMove, true
	default:
		return "", false
	}
}

// DuplicateAction selects what happens to incoming files already present
// in the master tree.
type DuplicateAction string

const (
	DuplicateIgnore     DuplicateAction = "ignore"
	DuplicateDelete     DuplicateAction = "delete"
	DuplicateQuarantine DuplicateAction = "quarantine"
)

// ParseDuplicateAction normalizes a user-supplied duplicate action.
// Empty selects ignore.
func ParseDuplicateAction(value string) (DuplicateAction, bool) {
	switch DuplicateAction(strings.ToLower(strings.TrimSpace(value))) {
	case "":
		return DuplicateIgnore, true
	case DuplicateIgnore:
		return DuplicateIgnore, true
	case DuplicateDelete:
		return DuplicateDelete, true
	case DuplicateQuarantine:
		return DuplicateQuarantine, true
	default:
		return "", false
	}
}

// Decision tags the outcome for one incoming file.
type Decision string

const (
	DecisionMerged    Decision = "merged"
	DecisionRenamed   Decision = "renamed"
	DecisionDuplicate Decision = "duplicate"
	DecisionError     Decision = "error"
)

// Record is the per-file merge outcome.
type Record struct {
	Source   string
	Dest     string
	Decision Decision
	Detail   string
}

// Stats are the run-level counters. A renamed file also counts as
// merged; dry and live runs on identical input produce identical stats.
type Stats struct {
	Merged     int
	Duplicates int
	Renamed    int
	Errors     int
}

// Result carries the counters plus the full per-file decision trail.
type Result struct {
	Stats     Stats
	Decisions []Record
}

// Engine folds an incoming tree into a master tree without data loss.
type Engine struct {
	Mode            Mode
	DuplicateAction DuplicateAction
	DryRun          bool
	Gate            *runcontrol.Gate
	Progress        runcontrol.Reporter
	Logger          *slog.Logger

	// now is swappable for rename-collision tests.
	now func() time.Time
}

// QuarantineDir returns the engine's duplicate holding area: a sibling
// of the incoming root, excluded from enumeration so quarantined files
// are never reprocessed.
func QuarantineDir(incomingRoot string) string {
	return filepath.Clean(incomingRoot) + "_duplicates"
}

// Merge reconciles incoming into master. Per-file failures increment the
// error counter and the run continues; a canceled run returns the
// decisions made so far with a nil error.
func (e *Engine) Merge(ctx context.Context, masterRoot, incomingRoot string) (Result, error) {
	logger := logging.OrNop(e.Logger)
	progress := e.Progress
	if progress == nil {
		progress = runcontrol.NopReporter
	}

	master, err := scanner.ValidateRoot(masterRoot)
	if err != nil {
		return Result{}, err
	}
	incoming, err := scanner.ValidateRoot(incomingRoot)
	if err != nil {
		return Result{}, err
	}
	logger.Info("merge started",
		logging.String("master", master),
		logging.String("incoming", incoming),
		logging.String("mode", string(e.mode())),
		logging.Bool("dry_run", e.DryRun))

	progress.Report(0, 0, "indexing master tree")
	index := buildMasterIndex(ctx, master, e.Gate, logger)

	progress.Report(0, 0, "enumerating incoming tree")
	files, err := enumerateIncoming(ctx, incoming, QuarantineDir(incoming), e.Gate)
	if err != nil {
		return Result{}, err
	}

	var result Result
	// Destinations claimed during this run, so dry runs report the
	// same collisions a live run would create.
	claimed := make(map[string]struct{})
	// Master hashes computed once per candidate path.
	masterHashes := make(map[string]string)

	total := len(files)
	for i, source := range files {
		if e.Gate.Wait(ctx) != nil {
			logger.Info("merge stopped", logging.Int("processed", i))
			break
		}
		progress.Report(i+1, total, fmt.Sprintf("merging: %d/%d", i+1, total))

		rec := e.mergeOne(ctx, source, master, incoming, index, masterHashes, claimed, logger)
		result.Decisions = append(result.Decisions, rec)
		switch rec.Decision {
		case DecisionMerged:
			result.Stats.Merged++
		case DecisionRenamed:
			result.Stats.Merged++
			result.Stats.Renamed++
		case DecisionDuplicate:
			result.Stats.Duplicates++
		case DecisionError:
			result.Stats.Errors++
		}
	}

	logger.Info("merge complete",
		logging.Int("merged", result.Stats.Merged),
		logging.Int("duplicates", result.Stats.Duplicates),
		logging.Int("renamed", result.Stats.Renamed),
		logging.Int("errors", result.Stats.Errors))
	return result, nil
}

func (e *Engine) mode() Mode {
	if e.Mode == "" {
		return ModeCopy
	}
	return e.Mode
}

func (e *Engine) clock() time.Time {
	if e.now != nil {
		return e.now()
	}
	return time.Now()
}

// mergeOne decides and executes the outcome for a single incoming file.
func (e *Engine) mergeOne(ctx context.Context, source, master, incoming string, index map[int64][]string, masterHashes map[string]string, claimed map[string]struct{}, logger *slog.Logger) Record {
	info, err := os.Stat(source)
	if err != nil {
		logger.Error("stat failed", logging.String("path", source), logging.Error(err))
		return Record{Source: source, Decision: DecisionError, Detail: err.Error()}
	}

	// Size-prefiltered, hash-confirmed duplicate test against the
	// master tree, short-circuiting on the first content match.
	if candidates := index[info.Size()]; len(candidates) > 0 {
		sourceHash, err := exact.FullHash(ctx, e.Gate, source)
		if err != nil {
			logger.Error("hash failed", logging.String("path", source), logging.Error(err))
			return Record{Source: source, Decision: DecisionError, Detail: err.Error()}
		}
		for _, candidate := range candidates {
			hash, ok := masterHashes[candidate]
			if !ok {
				hash, err = exact.FullHash(ctx, e.Gate, candidate)
				if err != nil {
					logger.Warn("master hash failed, skipping candidate", logging.String("path", candidate), logging.Error(err))
					continue
				}
				masterHashes[candidate] = hash
			}
			if hash == sourceHash {
				return e.handleDuplicate(source, incoming, candidate, claimed, logger)
			}
		}
	}

	return e.placeNew(source, master, incoming, claimed, logger)
}

// handleDuplicate applies the duplicate action to an incoming file whose
// content already exists in the master tree.
func (e *Engine) handleDuplicate(source, incoming, match string, claimed map[string]struct{}, logger *slog.Logger) Record {
	rec := Record{Source: source, Dest: match, Decision: DecisionDuplicate}
	switch e.DuplicateAction {
	case DuplicateDelete:
		if e.DryRun {
			logger.Info("dry-run: would delete duplicate", logging.String("path", source))
			return rec
		}
		if err := os.Remove(source); err != nil {
			logger.Error("delete failed", logging.String("path", source), logging.Error(err))
			return Record{Source: source, Decision: DecisionError, Detail: err.Error()}
		}
		logger.Info("deleted duplicate", logging.String("path", source), logging.String("match", match))
	case DuplicateQuarantine:
		rel, err := filepath.Rel(incoming, source)
		if err != nil {
			rel = filepath.Base(source)
		}
		dest := e.claimDestination(filepath.Join(QuarantineDir(incoming), rel), claimed)
		rec.Dest = dest
		if e.DryRun {
			logger.Info("dry-run: would quarantine duplicate",
				logging.String("path", source), logging.String("dest", dest))
			return rec
		}
		if err := moveInto(source, dest); err != nil {
			logger.Error("quarantine failed", logging.String("path", source), logging.Error(err))
			return Record{Source: source, Decision: DecisionError, Detail: err.Error()}
		}
		logger.Info("quarantined duplicate", logging.String("path", source), logging.String("dest", dest))
	default:
		logger.Info("duplicate left in place", logging.String("path", source), logging.String("match", match))
	}
	return rec
}

// placeNew mirrors the incoming-relative path under the master root,
// renaming with a timestamp suffix on destination collision.
func (e *Engine) placeNew(source, master, incoming string, claimed map[string]struct{}, logger *slog.Logger) Record {
	rel, err := filepath.Rel(incoming, source)
	if err != nil {
		rel = filepath.Base(source)
	}
	target := filepath.Join(master, rel)
	dest := e.claimDestination(target, claimed)

	decision := DecisionMerged
	if dest != target {
		decision = DecisionRenamed
	}
	rec := Record{Source: source, Dest: dest, Decision: decision}

	if e.DryRun {
		logger.Info("dry-run: would merge",
			logging.String("path", source),
			logging.String("dest", dest),
			logging.Bool("renamed", decision == DecisionRenamed))
		return rec
	}

	op := copyInto
	if e.mode() == ModeMove {
		op = moveInto
	}
	if err := op(source, dest); err != nil {
		logger.Error("merge failed", logging.String("path", source), logging.Error(err))
		return Record{Source: source, Decision: DecisionError, Detail: err.Error()}
	}
	logger.Info("merged file",
		logging.String("path", source),
		logging.String("dest", dest),
		logging.Bool("renamed", decision == DecisionRenamed))
	return rec
}

// claimDestination reserves a collision-free destination, consulting
// both this run's claims and the disk. Dry runs stat too, so simulated
// collisions match live behavior.
func (e *Engine) claimDestination(target string, claimed map[string]struct{}) string {
	dest := target
	if taken(dest, claimed) {
		stamp := e.clock()
		for {
			dest = fileutil.TimestampPath(target, stamp)
			if !taken(dest, claimed) {
				break
			}
			stamp = stamp.Add(time.Second)
		}
	}
	claimed[dest] = struct{}{}
	return dest
}

func taken(dest string, claimed map[string]struct{}) bool {
	if _, ok := claimed[dest]; ok {
		return true
	}
	_, err := os.Stat(dest)
	return err == nil
}

func copyInto(src, dest string) error {
	if err := fileutil.EnsureParent(dest); err != nil {
		return err
	}
	return fileutil.CopyFileVerified(src, dest)
}

func moveInto(src, dest string) error {
	if err := fileutil.EnsureParent(dest); err != nil {
		return err
	}
	return fileutil.MoveFile(src, dest)
}

// buildMasterIndex maps file size to master paths, best effort: stat
// failures are skipped, never fatal.
func buildMasterIndex(ctx context.Context, master string, gate *runcontrol.Gate, logger *slog.Logger) map[int64][]string {
	index := make(map[int64][]string)
	_ = filepath.WalkDir(master, func(path string, entry fs.DirEntry, err error) error {
		if gate.Wait(ctx) != nil {
			return filepath.SkipAll
		}
		if err != nil {
			logger.Warn("master walk error, skipping", logging.String("path", path), logging.Error(err))
			if entry != nil && entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if entry.IsDir() || !entry.Type().IsRegular() {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			logger.Warn("master stat failed, skipping", logging.String("path", path), logging.Error(err))
			return nil
		}
		index[info.Size()] = append(index[info.Size()], path)
		return nil
	})
	return index
}

// enumerateIncoming lists every regular file under the incoming root,
// excluding the engine's own quarantine directory.
func enumerateIncoming(ctx context.Context, incoming, quarantine string, gate *runcontrol.Gate) ([]string, error) {
	var files []string
	err := filepath.WalkDir(incoming, func(path string, entry fs.DirEntry, err error) error {
		if gate.Wait(ctx) != nil {
			return filepath.SkipAll
		}
		if err != nil {
			if entry != nil && entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if entry.IsDir() {
			if path == quarantine {
				return filepath.SkipDir
			}
			return nil
		}
		if entry.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("enumerate %s: %w", incoming, err)
	}
	return files, nil
}
