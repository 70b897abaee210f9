// Package testsupport builds throwaway file trees for engine tests.
package testsupport

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"
)

// WriteFile creates path (and parents) with the given content.
func WriteFile(t testing.TB, path string, content []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteFileAt creates path with content and pins its modification time,
// which the engines treat as the creation time for keep-oldest ordering.
func WriteFileAt(t testing.TB, path string, content []byte, mtime time.Time) {
	t.Helper()
	WriteFile(t, path, content)
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("chtimes %s: %v", path, err)
	}
}

// FillFile writes size bytes of a repeating pattern, for tests that only
// care about byte counts.
func FillFile(t testing.TB, path string, size int64) {
	t.Helper()
	if size <= 0 {
		size = 1
	}
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = byte('a' + i%23)
	}
	WriteFile(t, path, buf)
}

// Tree creates every entry of files under root with distinct mtimes
// spaced one minute apart in map-key order of the sorted paths, so
// creation ordering in tests is deterministic.
func Tree(t testing.TB, root string, files map[string][]byte) {
	t.Helper()
	base := time.Now().Add(-24 * time.Hour).Truncate(time.Second)
	i := 0
	for _, rel := range sortedKeys(files) {
		WriteFileAt(t, filepath.Join(root, rel), files[rel], base.Add(time.Duration(i)*time.Minute))
		i++
	}
}

func sortedKeys(files map[string][]byte) []string {
	keys := make([]string, 0, len(files))
	for k := range files {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
