package frames

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os/exec"
	"strings"

	"winnow/internal/media/ffprobe"
)

// Info summarizes the probe results a fingerprinting pass needs.
type Info struct {
	FrameCount int64
	Duration   float64
	Width      int
	Height     int
}

// Probe inspects path with ffprobe and reports its video geometry and
// frame total. Containers without a video stream return an error.
func Probe(ctx context.Context, ffprobeBinary, path string) (Info, error) {
	result, err := ffprobe.Inspect(ctx, ffprobeBinary, path)
	if err != nil {
		return Info{}, err
	}
	stream := result.VideoStream()
	if stream == nil {
		return Info{}, fmt.Errorf("probe %s: no video stream", path)
	}
	return Info{
		FrameCount: result.FrameCount(),
		Duration:   result.DurationSeconds(),
		Width:      stream.Width,
		Height:     stream.Height,
	}, nil
}

// ExtractAt decodes the frame nearest the given timestamp. The frame is
// piped from ffmpeg as PNG so nothing touches disk.
func ExtractAt(ctx context.Context, ffmpegBinary, path string, seconds float64) (image.Image, error) {
	ffmpegBinary = strings.TrimSpace(ffmpegBinary)
	if ffmpegBinary == "" {
		ffmpegBinary = "ffmpeg"
	}
	if seconds < 0 {
		seconds = 0
	}

	cmd := exec.CommandContext(ctx, ffmpegBinary, extractArgs(path, seconds)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg extract %s@%.2fs: %w: %s", path, seconds, err, strings.TrimSpace(stderr.String()))
	}
	if stdout.Len() == 0 {
		return nil, errors.New("ffmpeg extract: empty frame output")
	}

	img, err := png.Decode(&stdout)
	if err != nil {
		return nil, fmt.Errorf("decode extracted frame: %w", err)
	}
	return img, nil
}

// extractArgs seeks before the input for speed; a single output frame is
// encoded as PNG on stdout.
func extractArgs(path string, seconds float64) []string {
	return []string{
		"-v", "error",
		"-hide_banner",
		"-ss", fmt.Sprintf("%.3f", seconds),
		"-i", path,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"pipe:1",
	}
}
