package exact

import (
	"context"
	"path/filepath"
	"testing"

	"winnow/internal/testsupport"
)

func TestPartialHashOnlyCoversLeadingBytes(t *testing.T) {
	dir := t.TempDir()
	prefix := make([]byte, partialHashBytes)
	for i := range prefix {
		prefix[i] = byte(i % 251)
	}

	a := filepath.Join(dir, "a.bin")
	b := filepath.Join(dir, "b.bin")
	testsupport.WriteFile(t, a, append(append([]byte{}, prefix...), "tail-one"...))
	testsupport.WriteFile(t, b, append(append([]byte{}, prefix...), "tail-two"...))

	ha, err := PartialHash(a)
	if err != nil {
		t.Fatalf("PartialHash(a): %v", err)
	}
	hb, err := PartialHash(b)
	if err != nil {
		t.Fatalf("PartialHash(b): %v", err)
	}
	if ha != hb {
		t.Fatal("files sharing the first 4096 bytes should share a partial hash")
	}
}

func TestPartialHashShortFile(t *testing.T) {
	dir := t.TempDir()
	short := filepath.Join(dir, "short.txt")
	testsupport.WriteFile(t, short, []byte("tiny"))

	h1, err := PartialHash(short)
	if err != nil {
		t.Fatalf("PartialHash: %v", err)
	}
	other := filepath.Join(dir, "other.txt")
	testsupport.WriteFile(t, other, []byte("tiny"))
	h2, err := PartialHash(other)
	if err != nil {
		t.Fatalf("PartialHash: %v", err)
	}
	if h1 != h2 {
		t.Fatal("identical short files should hash identically")
	}
}

func TestFullHashChunkSizeInvariant(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.bin")
	testsupport.FillFile(t, path, 10_000)

	ctx := context.Background()
	want, err := fullHash(ctx, nil, path, 7)
	if err != nil {
		t.Fatalf("fullHash chunk=7: %v", err)
	}
	for _, chunk := range []int{64, 4096, 1 << 20} {
		got, err := fullHash(ctx, nil, path, chunk)
		if err != nil {
			t.Fatalf("fullHash chunk=%d: %v", chunk, err)
		}
		if got != want {
			t.Fatalf("digest differs at chunk=%d", chunk)
		}
	}
}

func TestFullHashAbortsOnCancel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.bin")
	testsupport.FillFile(t, path, 4096)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := FullHash(ctx, nil, path); err == nil {
		t.Fatal("expected context error from canceled hash")
	}
}

func TestFullHashMissingFile(t *testing.T) {
	if _, err := FullHash(context.Background(), nil, filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
