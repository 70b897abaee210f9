package perceptual

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/corona10/goimagehash"
	_ "golang.org/x/image/bmp"

	"winnow/internal/dupe"
	"winnow/internal/media/frames"
)

// Kind classifies what fingerprinting strategy applies to a file.
type Kind int

const (
	KindNone Kind = iota
	KindImage
	KindVideo
)

var imageExtensions = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".bmp": {},
}

var videoExtensions = map[string]struct{}{
	".mp4": {}, ".mkv": {}, ".avi": {}, ".mov": {}, ".webm": {},
	".m4v": {}, ".wmv": {}, ".flv": {}, ".mpg": {}, ".mpeg": {},
}

// KindOf classifies a file name by extension.
func KindOf(name string) Kind {
	ext := strings.ToLower(filepath.Ext(name))
	if _, ok := imageExtensions[ext]; ok {
		return KindImage
	}
	if _, ok := videoExtensions[ext]; ok {
		return KindVideo
	}
	return KindNone
}

// framePositions are the relative sample points for video fingerprints.
var framePositions = [3]float64{0.1, 0.5, 0.9}

// Fingerprint is an ordered hash tuple: one hash for an image, three
// for a video. Tuples of unequal length never compare as similar, so an
// image cannot cluster with a video.
type Fingerprint struct {
	Record dupe.FileRecord
	Hashes []*goimagehash.ImageHash
}

// Fingerprinter computes fingerprints. It holds the external binary
// configuration so engines stay free of media concerns.
type Fingerprinter struct {
	FFmpegBinary  string
	FFprobeBinary string
	// MinVideoFrames is the floor below which a video is considered
	// too short to sample meaningfully and is skipped.
	MinVideoFrames int64
}

const defaultMinVideoFrames = 10

func (f Fingerprinter) minFrames() int64 {
	if f.MinVideoFrames <= 0 {
		return defaultMinVideoFrames
	}
	return f.MinVideoFrames
}

// Compute fingerprints one file according to its kind. Unsupported
// kinds and undersampleable videos return a nil fingerprint with a nil
// error; the caller skips them. Decode and probe failures are errors.
func (f Fingerprinter) Compute(ctx context.Context, rec dupe.FileRecord) (*Fingerprint, error) {
	switch KindOf(rec.Path) {
	case KindImage:
		return f.imageFingerprint(rec)
	case KindVideo:
		return f.videoFingerprint(ctx, rec)
	default:
		return nil, nil
	}
}

func (f Fingerprinter) imageFingerprint(rec dupe.FileRecord) (*Fingerprint, error) {
	file, err := os.Open(rec.Path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", rec.Path, err)
	}
	hash, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return nil, fmt.Errorf("hash %s: %w", rec.Path, err)
	}
	return &Fingerprint{Record: rec, Hashes: []*goimagehash.ImageHash{hash}}, nil
}

// videoFingerprint samples three frames at fixed relative positions.
// The tuple is all-or-nothing: if any frame fails to extract or hash,
// the whole file is skipped rather than fingerprinted partially.
func (f Fingerprinter) videoFingerprint(ctx context.Context, rec dupe.FileRecord) (*Fingerprint, error) {
	info, err := frames.Probe(ctx, f.FFprobeBinary, rec.Path)
	if err != nil {
		return nil, err
	}
	if info.FrameCount < f.minFrames() {
		return nil, nil
	}
	if info.Duration <= 0 {
		return nil, nil
	}

	hashes := make([]*goimagehash.ImageHash, 0, len(framePositions))
	for _, pos := range framePositions {
		frame, err := frames.ExtractAt(ctx, f.FFmpegBinary, rec.Path, info.Duration*pos)
		if err != nil {
			return nil, err
		}
		hash, err := goimagehash.PerceptionHash(frame)
		if err != nil {
			return nil, fmt.Errorf("hash frame of %s: %w", rec.Path, err)
		}
		hashes = append(hashes, hash)
	}
	return &Fingerprint{Record: rec, Hashes: hashes}, nil
}
