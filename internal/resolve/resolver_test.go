package resolve

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"winnow/internal/dupe"
	"winnow/internal/testsupport"
)

// fiveCopies lays out identical content in five subfolders with the
// oldest file first, returning the group the engines would emit.
func fiveCopies(t *testing.T, root string) dupe.Group {
	t.Helper()
	content := []byte("identical!")
	base := time.Now().Add(-time.Hour).Truncate(time.Second)
	var files []dupe.FileRecord
	for i, sub := range []string{"one", "two", "three", "four", "five"} {
		path := filepath.Join(root, sub, "file.bin")
		created := base.Add(time.Duration(i) * time.Minute)
		testsupport.WriteFileAt(t, path, content, created)
		files = append(files, dupe.FileRecord{Path: path, Size: int64(len(content)), Created: created})
	}
	return dupe.Group{Files: files}
}

func TestResolveDeleteKeepsOldest(t *testing.T) {
	root := t.TempDir()
	group := fiveCopies(t, root)

	r := Resolver{Action: dupe.ActionDelete}
	result := r.Resolve([]dupe.Group{group})

	if result.Stats.Deleted != 4 {
		t.Fatalf("deleted = %d, want 4", result.Stats.Deleted)
	}
	if want := int64(4 * 10); result.Stats.BytesSaved != want {
		t.Fatalf("bytes saved = %d, want %d", result.Stats.BytesSaved, want)
	}
	if _, err := os.Stat(group.Files[0].Path); err != nil {
		t.Fatalf("oldest file must survive: %v", err)
	}
	for _, f := range group.Files[1:] {
		if _, err := os.Stat(f.Path); !os.IsNotExist(err) {
			t.Fatalf("duplicate %s should be gone", f.Path)
		}
	}
}

func TestResolveDryRunMatchesLiveStats(t *testing.T) {
	dryRoot := t.TempDir()
	liveRoot := t.TempDir()
	dryGroup := fiveCopies(t, dryRoot)
	liveGroup := fiveCopies(t, liveRoot)

	dry := (&Resolver{Action: dupe.ActionDelete, DryRun: true}).Resolve([]dupe.Group{dryGroup})
	live := (&Resolver{Action: dupe.ActionDelete}).Resolve([]dupe.Group{liveGroup})

	if dry.Stats != live.Stats {
		t.Fatalf("dry-run stats %+v != live stats %+v", dry.Stats, live.Stats)
	}
	for _, f := range dryGroup.Files {
		if _, err := os.Stat(f.Path); err != nil {
			t.Fatalf("dry run must not touch %s: %v", f.Path, err)
		}
	}
}

func TestResolveMoveRenamesOnCollision(t *testing.T) {
	root := t.TempDir()
	dest := filepath.Join(root, "dupes")
	group := fiveCopies(t, root)

	fixed := time.Unix(1756000000, 0)
	r := Resolver{Action: dupe.ActionMove, MoveTo: dest, now: func() time.Time { return fixed }}
	result := r.Resolve([]dupe.Group{group})

	if result.Stats.Moved != 4 {
		t.Fatalf("moved = %d, want 4", result.Stats.Moved)
	}
	// All four duplicates share the base name file.bin; one lands
	// plain, the rest need a collision-breaking suffix.
	entries, err := os.ReadDir(dest)
	if err != nil {
		t.Fatalf("read dest: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("dest holds %d files, want 4", len(entries))
	}
}

func TestResolveReviewTouchesNothing(t *testing.T) {
	root := t.TempDir()
	group := fiveCopies(t, root)

	result := (&Resolver{Action: dupe.ActionReview}).Resolve([]dupe.Group{group})
	if result.Stats.Reviewed != 1 {
		t.Fatalf("reviewed = %d, want 1", result.Stats.Reviewed)
	}
	if len(result.Review) != 1 || len(result.Review[0].Files) != 5 {
		t.Fatalf("review hand-off missing the group: %+v", result.Review)
	}
	if result.Review[0].Representative().Path != group.Files[0].Path {
		t.Fatal("review groups must arrive pre-sorted by the keep policy")
	}
	for _, f := range group.Files {
		if _, err := os.Stat(f.Path); err != nil {
			t.Fatalf("review must not touch %s: %v", f.Path, err)
		}
	}
}

func TestResolveQuarantine(t *testing.T) {
	root := t.TempDir()
	quarantine := filepath.Join(root, "quarantine")
	group := fiveCopies(t, root)

	result := (&Resolver{Action: dupe.ActionQuarantine, QuarantineDir: quarantine}).Resolve([]dupe.Group{group})
	if result.Stats.Quarantined != 4 {
		t.Fatalf("quarantined = %d, want 4", result.Stats.Quarantined)
	}
	entries, err := os.ReadDir(quarantine)
	if err != nil {
		t.Fatalf("read quarantine: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("quarantine holds %d files, want 4", len(entries))
	}
}

func TestResolveContinuesPastErrors(t *testing.T) {
	root := t.TempDir()
	group := fiveCopies(t, root)
	// Pre-delete one duplicate so its removal fails.
	if err := os.Remove(group.Files[2].Path); err != nil {
		t.Fatal(err)
	}

	result := (&Resolver{Action: dupe.ActionDelete}).Resolve([]dupe.Group{group})
	if result.Stats.Errors != 1 {
		t.Fatalf("errors = %d, want 1", result.Stats.Errors)
	}
	if result.Stats.Deleted != 3 {
		t.Fatalf("deleted = %d, want 3 (run continues past the bad file)", result.Stats.Deleted)
	}
}

func TestResolveLargestPolicy(t *testing.T) {
	root := t.TempDir()
	small := filepath.Join(root, "small.bin")
	big := filepath.Join(root, "big.bin")
	testsupport.WriteFileAt(t, small, []byte("ab"), time.Now().Add(-2*time.Hour))
	testsupport.WriteFileAt(t, big, []byte("abcdef"), time.Now().Add(-time.Hour))

	group := dupe.Group{Files: []dupe.FileRecord{
		{Path: small, Size: 2, Created: time.Now().Add(-2 * time.Hour)},
		{Path: big, Size: 6, Created: time.Now().Add(-time.Hour)},
	}}

	(&Resolver{Policy: KeepLargest, Action: dupe.ActionDelete}).Resolve([]dupe.Group{group})
	if _, err := os.Stat(big); err != nil {
		t.Fatalf("largest file must survive: %v", err)
	}
	if _, err := os.Stat(small); !os.IsNotExist(err) {
		t.Fatal("smaller duplicate should be deleted")
	}
}
