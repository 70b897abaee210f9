package resolve

import (
	"sort"
	"strings"

	"winnow/internal/dupe"
)

// KeepPolicy decides which member of a group survives resolution.
type KeepPolicy string

const (
	// KeepOldest keeps the earliest-created member.
	KeepOldest KeepPolicy = "oldest"
	// KeepLargest keeps the biggest member, breaking ties on age.
	KeepLargest KeepPolicy = "largest"
)

// ParseKeepPolicy normalizes a user-supplied policy string. Empty input
// selects the oldest-kept default.
func ParseKeepPolicy(value string) (KeepPolicy, bool) {
	switch KeepPolicy(strings.ToLower(strings.TrimSpace(value))) {
	case "":
		return KeepOldest, true
	case KeepOldest:
		return KeepOldest, true
	case KeepLargest:
		return KeepLargest, true
	default:
		return "", false
	}
}

// Order returns a sorted copy of files with the kept member first. The
// sort is total (path is the final tie-break) so resolution is
// deterministic for any input order.
func (p KeepPolicy) Order(files []dupe.FileRecord) []dupe.FileRecord {
	sorted := append([]dupe.FileRecord(nil), files...)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if p == KeepLargest && a.Size != b.Size {
			return a.Size > b.Size
		}
		if !a.Created.Equal(b.Created) {
			return a.Created.Before(b.Created)
		}
		return a.Path < b.Path
	})
	return sorted
}
