package merge

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"winnow/internal/testsupport"
)

func TestMergePhotoScenario(t *testing.T) {
	master := t.TempDir()
	incoming := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(master, "photo.jpg"), []byte("contentX10"))
	testsupport.WriteFile(t, filepath.Join(incoming, "copy", "photo.jpg"), []byte("contentX10"))
	testsupport.WriteFile(t, filepath.Join(incoming, "new", "pic.png"), []byte("contentY"))

	result, err := (&Engine{}).Merge(context.Background(), master, incoming)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	want := Stats{Merged: 1, Duplicates: 1}
	if result.Stats != want {
		t.Fatalf("stats = %+v, want %+v", result.Stats, want)
	}
	if _, err := os.Stat(filepath.Join(master, "new", "pic.png")); err != nil {
		t.Fatalf("novel file must land under the master root: %v", err)
	}
}

func TestMergeDuplicateDetectionIgnoresNames(t *testing.T) {
	master := t.TempDir()
	incoming := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(master, "a", "keeper.bin"), []byte("shared"))
	testsupport.WriteFile(t, filepath.Join(incoming, "b", "renamed.dat"), []byte("shared"))

	result, err := (&Engine{}).Merge(context.Background(), master, incoming)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if result.Stats.Duplicates != 1 || result.Stats.Merged != 0 {
		t.Fatalf("stats = %+v, want one duplicate and nothing merged", result.Stats)
	}
}

func TestMergeSameSizeDifferentContentIsNew(t *testing.T) {
	master := t.TempDir()
	incoming := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(master, "one.bin"), []byte("aaaa"))
	testsupport.WriteFile(t, filepath.Join(incoming, "two.bin"), []byte("bbbb"))

	result, err := (&Engine{}).Merge(context.Background(), master, incoming)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if result.Stats.Merged != 1 || result.Stats.Duplicates != 0 {
		t.Fatalf("stats = %+v, want size collision confirmed as new", result.Stats)
	}
}

func TestMergeRenamesOnCollision(t *testing.T) {
	master := t.TempDir()
	incoming := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(master, "report.txt"), []byte("master version"))
	testsupport.WriteFile(t, filepath.Join(incoming, "report.txt"), []byte("different one!"))

	fixed := time.Unix(1756000000, 0)
	engine := &Engine{now: func() time.Time { return fixed }}
	result, err := engine.Merge(context.Background(), master, incoming)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if result.Stats.Renamed != 1 || result.Stats.Merged != 1 {
		t.Fatalf("stats = %+v, want renamed=1 merged=1", result.Stats)
	}
	renamed := filepath.Join(master, "report_1756000000.txt")
	if _, err := os.Stat(renamed); err != nil {
		t.Fatalf("timestamped destination missing: %v", err)
	}
	content, err := os.ReadFile(filepath.Join(master, "report.txt"))
	if err != nil || string(content) != "master version" {
		t.Fatalf("master file must be untouched, got %q (%v)", content, err)
	}
}

func TestMergeMoveModeRemovesSource(t *testing.T) {
	master := t.TempDir()
	incoming := t.TempDir()
	source := filepath.Join(incoming, "doc.txt")
	testsupport.WriteFile(t, source, []byte("fresh"))

	result, err := (&Engine{Mode: ModeMove}).Merge(context.Background(), master, incoming)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if result.Stats.Merged != 1 {
		t.Fatalf("stats = %+v, want merged=1", result.Stats)
	}
	if _, err := os.Stat(source); !os.IsNotExist(err) {
		t.Fatal("move mode must remove the incoming file")
	}
	if _, err := os.Stat(filepath.Join(master, "doc.txt")); err != nil {
		t.Fatalf("moved file missing from master: %v", err)
	}
}

func TestMergeQuarantinesDuplicates(t *testing.T) {
	master := t.TempDir()
	incomingParent := t.TempDir()
	incoming := filepath.Join(incomingParent, "inbox")
	testsupport.WriteFile(t, filepath.Join(master, "x.bin"), []byte("dup content"))
	testsupport.WriteFile(t, filepath.Join(incoming, "sub", "x.bin"), []byte("dup content"))

	result, err := (&Engine{DuplicateAction: DuplicateQuarantine}).Merge(context.Background(), master, incoming)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if result.Stats.Duplicates != 1 {
		t.Fatalf("stats = %+v, want duplicates=1", result.Stats)
	}
	quarantined := filepath.Join(QuarantineDir(incoming), "sub", "x.bin")
	if _, err := os.Stat(quarantined); err != nil {
		t.Fatalf("duplicate should be quarantined at %s: %v", quarantined, err)
	}

	// A second merge must not reprocess the quarantine directory.
	again, err := (&Engine{DuplicateAction: DuplicateQuarantine}).Merge(context.Background(), master, incoming)
	if err != nil {
		t.Fatalf("second Merge: %v", err)
	}
	if again.Stats.Duplicates != 0 {
		t.Fatalf("quarantined files were reprocessed: %+v", again.Stats)
	}
}

func TestMergeDeleteDuplicates(t *testing.T) {
	master := t.TempDir()
	incoming := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(master, "k.bin"), []byte("same"))
	dup := filepath.Join(incoming, "k.bin")
	testsupport.WriteFile(t, dup, []byte("same"))

	result, err := (&Engine{DuplicateAction: DuplicateDelete}).Merge(context.Background(), master, incoming)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if result.Stats.Duplicates != 1 {
		t.Fatalf("stats = %+v, want duplicates=1", result.Stats)
	}
	if _, err := os.Stat(dup); !os.IsNotExist(err) {
		t.Fatal("duplicate should be deleted")
	}
}

func TestMergeDryRunMatchesLiveStats(t *testing.T) {
	build := func(t *testing.T) (string, string) {
		master := t.TempDir()
		incoming := t.TempDir()
		testsupport.WriteFile(t, filepath.Join(master, "photo.jpg"), []byte("contentX10"))
		testsupport.WriteFile(t, filepath.Join(master, "clash.txt"), []byte("old"))
		testsupport.WriteFile(t, filepath.Join(incoming, "copy", "photo.jpg"), []byte("contentX10"))
		testsupport.WriteFile(t, filepath.Join(incoming, "new", "pic.png"), []byte("contentY"))
		testsupport.WriteFile(t, filepath.Join(incoming, "clash.txt"), []byte("new"))
		return master, incoming
	}

	dryMaster, dryIncoming := build(t)
	dry, err := (&Engine{DryRun: true}).Merge(context.Background(), dryMaster, dryIncoming)
	if err != nil {
		t.Fatalf("dry Merge: %v", err)
	}

	liveMaster, liveIncoming := build(t)
	live, err := (&Engine{}).Merge(context.Background(), liveMaster, liveIncoming)
	if err != nil {
		t.Fatalf("live Merge: %v", err)
	}

	if dry.Stats != live.Stats {
		t.Fatalf("dry stats %+v != live stats %+v", dry.Stats, live.Stats)
	}

	// The dry run must not have mutated either tree.
	var count int
	err = filepath.WalkDir(dryMaster, func(path string, entry os.DirEntry, err error) error {
		if err == nil && !entry.IsDir() {
			count++
		}
		return nil
	})
	if err != nil || count != 2 {
		t.Fatalf("dry master tree has %d files, want 2 (%v)", count, err)
	}
}

func TestMergeDryRunSimulatesIntraRunCollisions(t *testing.T) {
	master := t.TempDir()
	incoming := t.TempDir()
	// Two distinct incoming files target the same destination name via
	// different subfolders only when flattened... here both are new and
	// collide with the pre-existing master file.
	testsupport.WriteFile(t, filepath.Join(master, "n.txt"), []byte("0"))
	testsupport.WriteFile(t, filepath.Join(incoming, "n.txt"), []byte("1"))

	fixed := time.Unix(1756000100, 0)
	dry, err := (&Engine{DryRun: true, now: func() time.Time { return fixed }}).Merge(context.Background(), master, incoming)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if dry.Stats.Renamed != 1 {
		t.Fatalf("dry run must simulate the rename, stats = %+v", dry.Stats)
	}
	if len(dry.Decisions) != 1 || !strings.Contains(dry.Decisions[0].Dest, "_1756000100") {
		t.Fatalf("decision should carry the simulated timestamped dest: %+v", dry.Decisions)
	}
}

func TestMergeContinuesPastErrors(t *testing.T) {
	master := t.TempDir()
	incoming := t.TempDir()
	unreadable := filepath.Join(incoming, "locked.bin")
	// Same size as a master file so the hash path runs and fails.
	testsupport.WriteFile(t, filepath.Join(master, "m.bin"), []byte("12345"))
	testsupport.WriteFile(t, unreadable, []byte("54321"))
	testsupport.WriteFile(t, filepath.Join(incoming, "fine.txt"), []byte("ok"))
	if err := os.Chmod(unreadable, 0o000); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(unreadable, 0o644) })
	if os.Getuid() == 0 {
		t.Skip("permission errors are not enforced for root")
	}

	result, err := (&Engine{}).Merge(context.Background(), master, incoming)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if result.Stats.Errors != 1 {
		t.Fatalf("errors = %d, want 1", result.Stats.Errors)
	}
	if result.Stats.Merged != 1 {
		t.Fatalf("merged = %d, want 1 (run continues past the bad file)", result.Stats.Merged)
	}
}

func TestMergeCanceledReturnsPartialResult(t *testing.T) {
	master := t.TempDir()
	incoming := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(incoming, "a.txt"), []byte("a"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := (&Engine{}).Merge(ctx, master, incoming)
	if err != nil {
		t.Fatalf("canceled merge should not error, got %v", err)
	}
	if len(result.Decisions) != 0 {
		t.Fatalf("canceled-before-start merge made %d decisions", len(result.Decisions))
	}
}

func TestMergeBadRoots(t *testing.T) {
	good := t.TempDir()
	missing := filepath.Join(t.TempDir(), "nope")
	if _, err := (&Engine{}).Merge(context.Background(), missing, good); err == nil {
		t.Fatal("expected error for missing master root")
	}
	if _, err := (&Engine{}).Merge(context.Background(), good, missing); err == nil {
		t.Fatal("expected error for missing incoming root")
	}
}

func TestParseHelpers(t *testing.T) {
	if mode, ok := ParseMode(""); !ok || mode != ModeCopy {
		t.Fatalf("ParseMode(\"\") = %q, %v", mode, ok)
	}
	if _, ok := ParseMode("sync"); ok {
		t.Fatal("unknown mode should fail")
	}
	if action, ok := ParseDuplicateAction(" Quarantine "); !ok || action != DuplicateQuarantine {
		t.Fatalf("ParseDuplicateAction = %q, %v", action, ok)
	}
	if _, ok := ParseDuplicateAction("shred"); ok {
		t.Fatal("unknown duplicate action should fail")
	}
}
