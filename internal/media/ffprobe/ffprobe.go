package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// Result represents the parsed output from an ffprobe inspection.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index        int    `json:"index"`
	CodecName    string `json:"codec_name"`
	CodecType    string `json:"codec_type"`
	Duration     string `json:"duration"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	NBFrames     string `json:"nb_frames"`
	AvgFrameRate string `json:"avg_frame_rate"`
}

// Format captures container-level metadata extracted by ffprobe.
type Format struct {
	Filename   string `json:"filename"`
	NBStreams  int    `json:"nb_streams"`
	Duration   string `json:"duration"`
	FormatName string `json:"format_name"`
}

// Inspect executes ffprobe against the provided path and decodes the JSON response.
func Inspect(ctx context.Context, binary string, path string) (Result, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, errors.New("ffprobe inspect: empty path")
	}

	cmd := exec.CommandContext(ctx, binary, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return Result{}, fmt.Errorf("ffprobe inspect: %w: %s", err, strings.TrimSpace(string(output)))
	}

	var result Result
	if err := json.Unmarshal(output, &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	return result, nil
}

// VideoStream returns the first video stream, or nil when the container
// carries none.
func (r Result) VideoStream() *Stream {
	for i, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "video") {
			return &r.Streams[i]
		}
	}
	return nil
}

// DurationSeconds returns the container duration in seconds, or 0 when unavailable.
func (r Result) DurationSeconds() float64 {
	d := parseFloat(r.Format.Duration)
	if math.IsNaN(d) || d < 0 {
		return 0
	}
	return d
}

// FrameCount reports the video frame total. Containers that record
// nb_frames are trusted directly; otherwise the count is estimated from
// duration and the average frame rate. Returns 0 when neither source is
// usable.
func (r Result) FrameCount() int64 {
	stream := r.VideoStream()
	if stream == nil {
		return 0
	}
	if n := parseFloat(stream.NBFrames); !math.IsNaN(n) && n > 0 {
		return int64(n)
	}

	duration := parseFloat(stream.Duration)
	if math.IsNaN(duration) || duration <= 0 {
		duration = r.DurationSeconds()
	}
	fps := parseRate(stream.AvgFrameRate)
	if duration <= 0 || fps <= 0 {
		return 0
	}
	return int64(math.Round(duration * fps))
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	if parsed, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return parsed
	}
	return math.NaN()
}

// parseRate handles ffprobe rational rates like "30000/1001" as well as
// plain decimals.
func parseRate(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	if num, den, ok := strings.Cut(cleaned, "/"); ok {
		n := parseFloat(num)
		d := parseFloat(den)
		if math.IsNaN(n) || math.IsNaN(d) || d == 0 {
			return 0
		}
		return n / d
	}
	rate := parseFloat(cleaned)
	if math.IsNaN(rate) || rate < 0 {
		return 0
	}
	return rate
}
