package dupe

import (
	"context"
	"strings"
	"time"
)

// FileRecord describes one file observed during a scan. Records are
// rebuilt on every run and discarded after resolution.
type FileRecord struct {
	Path    string
	Size    int64
	Created time.Time
}

// Group is an ordered set of files judged equal or similar. The first
// element is the representative (kept); the rest are duplicate
// candidates. A group always has at least two members.
type Group struct {
	Files []FileRecord
}

// Representative returns the file that resolution keeps.
func (g Group) Representative() FileRecord {
	return g.Files[0]
}

// Duplicates returns the members after the representative.
func (g Group) Duplicates() []FileRecord {
	return g.Files[1:]
}

// WastedBytes is the total size of the non-representative members.
func (g Group) WastedBytes() int64 {
	var total int64
	for _, f := range g.Duplicates() {
		total += f.Size
	}
	return total
}

// Action selects what resolution does with duplicate members.
type Action string

const (
	ActionReview     Action = "review"
	ActionDelete     Action = "delete"
	ActionMove       Action = "move"
	ActionQuarantine Action = "quarantine"
)

var actionSet = map[Action]struct{}{
	ActionReview:     {},
	ActionDelete:     {},
	ActionMove:       {},
	ActionQuarantine: {},
}

// Valid reports whether the action is one of the known values.
func (a Action) Valid() bool {
	_, ok := actionSet[a]
	return ok
}

// ParseAction normalizes a user-supplied action string.
func ParseAction(value string) (Action, bool) {
	action := Action(strings.ToLower(strings.TrimSpace(value)))
	if action == "" {
		return ActionReview, true
	}
	return action, action.Valid()
}

// ScanConfig carries the per-run tuning shared by both engines.
type ScanConfig struct {
	// Threads bounds the hashing/fingerprinting worker pool.
	Threads int
	// Threshold is the maximum summed Hamming distance for the
	// perceptual engine. Zero means exact fingerprint matches only.
	Threshold int
	// IgnoreExtensions are lower-cased filename suffixes to skip.
	IgnoreExtensions []string
	// IgnoreFolders are folder names skipped case-insensitively.
	IgnoreFolders []string
	// MoveTo is the destination root for the move action. Paths under
	// it are excluded from indexing so a scan never chases its own
	// output.
	MoveTo string
	// DryRun simulates resolution without touching the filesystem.
	DryRun bool
	Action Action
}

// Workers returns the configured thread count, defaulting to 4.
func (c ScanConfig) Workers() int {
	if c.Threads <= 0 {
		return 4
	}
	return c.Threads
}

// IgnoresExtension reports whether the file name ends with one of the
// configured suffixes.
func (c ScanConfig) IgnoresExtension(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range c.IgnoreExtensions {
		if ext == "" {
			continue
		}
		if strings.HasSuffix(lower, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}

// IgnoresFolder reports whether the folder name matches an ignore entry.
func (c ScanConfig) IgnoresFolder(name string) bool {
	for _, folder := range c.IgnoreFolders {
		if folder != "" && strings.EqualFold(folder, name) {
			return true
		}
	}
	return false
}

// Engine is the shared scan capability: both the exact and perceptual
// engines walk a root and emit duplicate groups. The merge engine is a
// separate capability and deliberately does not implement Engine.
type Engine interface {
	Scan(ctx context.Context, root string, cfg ScanConfig) ([]Group, error)
}
