package exact

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"os"

	"winnow/internal/runcontrol"
)

const (
	// partialHashBytes is the leading byte range hashed by the
	// pre-screen phase.
	partialHashBytes = 4096
	// fullHashChunkSize bounds memory while streaming arbitrarily
	// large files; the digest is invariant to this value.
	fullHashChunkSize = 1 << 20
)

// PartialHash digests the first 4096 bytes of the file. Files shorter
// than that are hashed whole.
func PartialHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf := make([]byte, partialHashBytes)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", err
	}
	sum := sha256.Sum256(buf[:n])
	return hex.EncodeToString(sum[:]), nil
}

// FullHash streams the entire file content through SHA-256 in fixed
// chunks, honoring the pause gate between chunks and aborting on the
// next chunk boundary after cancellation.
func FullHash(ctx context.Context, gate *runcontrol.Gate, path string) (string, error) {
	return fullHash(ctx, gate, path, fullHashChunkSize)
}

func fullHash(ctx context.Context, gate *runcontrol.Gate, path string, chunkSize int) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	hasher := sha256.New()
	buf := make([]byte, chunkSize)
	for {
		if err := gate.Wait(ctx); err != nil {
			return "", err
		}
		n, err := f.Read(buf)
		if n > 0 {
			hasher.Write(buf[:n])
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
