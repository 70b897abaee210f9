package scanner

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"winnow/internal/dupe"
	"winnow/internal/runcontrol"
	"winnow/internal/testsupport"
)

func TestWalkBucketsBySize(t *testing.T) {
	root := t.TempDir()
	testsupport.Tree(t, root, map[string][]byte{
		"a/one.txt":   []byte("xxxx"),
		"b/two.txt":   []byte("yyyy"),
		"c/three.txt": []byte("zzzzzz"),
	})

	ix, err := Walk(context.Background(), root, dupe.ScanConfig{}, nil, nil, nil)
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if len(ix.Files) != 3 {
		t.Fatalf("files = %d, want 3", len(ix.Files))
	}
	if got := len(ix.BySize[4]); got != 2 {
		t.Fatalf("size-4 bucket = %d, want 2", got)
	}

	candidates := ix.SizeCandidates()
	if len(candidates) != 1 {
		t.Fatalf("candidates = %d buckets, want 1", len(candidates))
	}
	if _, ok := candidates[4]; !ok {
		t.Fatal("size-4 bucket should survive the candidate filter")
	}
}

func TestWalkHonorsIgnoreRules(t *testing.T) {
	root := t.TempDir()
	testsupport.Tree(t, root, map[string][]byte{
		"keep/data.bin":        []byte("data"),
		"Node_Modules/dep.js":  []byte("data"),
		"keep/trace.log":       []byte("data"),
		"keep/nested/more.bin": []byte("data"),
	})

	cfg := dupe.ScanConfig{
		IgnoreExtensions: []string{".log"},
		IgnoreFolders:    []string{"node_modules"},
	}
	ix, err := Walk(context.Background(), root, cfg, nil, nil, nil)
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	for _, rec := range ix.Files {
		if strings.Contains(rec.Path, "Node_Modules") {
			t.Fatalf("ignored folder was walked: %s", rec.Path)
		}
		if strings.HasSuffix(rec.Path, ".log") {
			t.Fatalf("ignored extension was indexed: %s", rec.Path)
		}
	}
	if len(ix.Files) != 2 {
		t.Fatalf("files = %d, want 2", len(ix.Files))
	}
}

func TestWalkExcludesMoveToSubtree(t *testing.T) {
	root := t.TempDir()
	moveTo := filepath.Join(root, "quarantine")
	testsupport.Tree(t, root, map[string][]byte{
		"file.bin":           []byte("data"),
		"quarantine/old.bin": []byte("data"),
	})

	ix, err := Walk(context.Background(), root, dupe.ScanConfig{MoveTo: moveTo}, nil, nil, nil)
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if len(ix.Files) != 1 {
		t.Fatalf("files = %d, want 1 (quarantine excluded)", len(ix.Files))
	}
}

func TestWalkFailsFastOnBadRoot(t *testing.T) {
	if _, err := Walk(context.Background(), filepath.Join(t.TempDir(), "nope"), dupe.ScanConfig{}, nil, nil, nil); err == nil {
		t.Fatal("expected error for missing root")
	}

	root := t.TempDir()
	file := filepath.Join(root, "plain.txt")
	testsupport.WriteFile(t, file, []byte("x"))
	if _, err := Walk(context.Background(), file, dupe.ScanConfig{}, nil, nil, nil); err == nil {
		t.Fatal("expected error for non-directory root")
	}
}

func TestWalkStopsOnCancel(t *testing.T) {
	root := t.TempDir()
	files := make(map[string][]byte)
	for i := 0; i < 50; i++ {
		files[filepath.Join("d", string(rune('a'+i%26)), filepath.Base(t.Name())+string(rune('a'+i)))] = []byte("content")
	}
	testsupport.Tree(t, root, files)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ix, err := Walk(ctx, root, dupe.ScanConfig{}, runcontrol.NewGate(), nil, nil)
	if err != nil {
		t.Fatalf("Walk after cancel should return partial index, got error: %v", err)
	}
	if len(ix.Files) != 0 {
		t.Fatalf("canceled walk indexed %d files, want 0", len(ix.Files))
	}
}
