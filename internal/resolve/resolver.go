package resolve

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"winnow/internal/dupe"
	"winnow/internal/fileutil"
	"winnow/internal/logging"
)

// Stats aggregates what a resolution run did (or would do, under
// dry-run; the counts are identical either way).
type Stats struct {
	Groups      int
	Deleted     int
	Moved       int
	Quarantined int
	Reviewed    int
	Errors      int
	BytesSaved  int64
}

// Result carries the run statistics plus the groups deferred to manual
// review, which resolution never touches on disk.
type Result struct {
	Stats  Stats
	Review []dupe.Group
}

// Resolver applies a keep policy and an action to duplicate groups.
// Mutations run single-threaded, after all analysis has finished.
type Resolver struct {
	Policy KeepPolicy
	Action dupe.Action
	// MoveTo is the destination directory for ActionMove.
	MoveTo string
	// QuarantineDir is the destination directory for ActionQuarantine.
	QuarantineDir string
	DryRun        bool
	Logger        *slog.Logger

	// now is swappable for rename-collision tests.
	now func() time.Time
}

// Resolve walks every group, keeps the policy winner, and applies the
// action to the rest. One bad file never aborts its group or the run.
func (r *Resolver) Resolve(groups []dupe.Group) Result {
	logger := logging.OrNop(r.Logger)
	policy := r.Policy
	if policy == "" {
		policy = KeepOldest
	}
	action := r.Action
	if action == "" {
		action = dupe.ActionReview
	}

	var result Result
	// Destinations claimed earlier in this run. Live runs need it when
	// two same-named duplicates land in one directory within the same
	// second; dry runs need it to report the same rename count a live
	// run would.
	claimed := make(map[string]struct{})

	for _, group := range groups {
		result.Stats.Groups++
		ordered := policy.Order(group.Files)
		kept := ordered[0]

		if action == dupe.ActionReview {
			result.Stats.Reviewed++
			result.Review = append(result.Review, dupe.Group{Files: ordered})
			logger.Info("group deferred to review",
				logging.String("kept", kept.Path),
				logging.Int("duplicates", len(ordered)-1))
			continue
		}

		logger.Info("resolving group",
			logging.String("kept", kept.Path),
			logging.Int("duplicates", len(ordered)-1))
		for _, duplicate := range ordered[1:] {
			if err := r.apply(action, duplicate, claimed, logger); err != nil {
				result.Stats.Errors++
				logger.Error("resolution failed, continuing",
					logging.String("path", duplicate.Path),
					logging.Error(err))
				continue
			}
			result.Stats.BytesSaved += duplicate.Size
			switch action {
			case dupe.ActionDelete:
				result.Stats.Deleted++
			case dupe.ActionMove:
				result.Stats.Moved++
			case dupe.ActionQuarantine:
				result.Stats.Quarantined++
			}
		}
	}
	return result
}

func (r *Resolver) apply(action dupe.Action, rec dupe.FileRecord, claimed map[string]struct{}, logger *slog.Logger) error {
	switch action {
	case dupe.ActionDelete:
		if r.DryRun {
			logger.Info("dry-run: would delete", logging.String("path", rec.Path))
			return nil
		}
		if err := os.Remove(rec.Path); err != nil {
			return err
		}
		logger.Info("deleted duplicate", logging.String("path", rec.Path))
		return nil
	case dupe.ActionMove:
		return r.relocate(rec, r.MoveTo, claimed, logger)
	case dupe.ActionQuarantine:
		return r.relocate(rec, r.QuarantineDir, claimed, logger)
	default:
		return fmt.Errorf("unsupported action %q", action)
	}
}

func (r *Resolver) relocate(rec dupe.FileRecord, destDir string, claimed map[string]struct{}, logger *slog.Logger) error {
	if destDir == "" {
		return fmt.Errorf("no destination directory configured")
	}
	dest := filepath.Join(destDir, filepath.Base(rec.Path))
	if r.taken(dest, claimed) {
		// Bump the timestamp until the name is free; several duplicates
		// of the same base name can arrive within one second.
		stamp := r.clock()()
		for next := fileutil.TimestampPath(dest, stamp); ; next = fileutil.TimestampPath(dest, stamp) {
			if !r.taken(next, claimed) {
				dest = next
				break
			}
			stamp = stamp.Add(time.Second)
		}
	}
	claimed[dest] = struct{}{}

	if r.DryRun {
		logger.Info("dry-run: would move",
			logging.String("path", rec.Path),
			logging.String("dest", dest))
		return nil
	}
	if err := fileutil.EnsureParent(dest); err != nil {
		return err
	}
	if err := fileutil.MoveFile(rec.Path, dest); err != nil {
		return err
	}
	logger.Info("moved duplicate",
		logging.String("path", rec.Path),
		logging.String("dest", dest))
	return nil
}

// taken consults both the claims from this run and the disk; dry runs
// stat too, so their rename decisions match what a live run would do.
func (r *Resolver) taken(dest string, claimed map[string]struct{}) bool {
	if _, ok := claimed[dest]; ok {
		return true
	}
	_, err := os.Stat(dest)
	return err == nil
}

func (r *Resolver) clock() func() time.Time {
	if r.now != nil {
		return r.now
	}
	return time.Now
}
