// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// This package has no winnow-specific dependencies and could be extracted
// as a standalone library.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Stream: individual audio/video stream properties
//   - Format: container-level metadata (duration, format name)
//
// Primary entry point:
//   - Inspect: executes ffprobe and returns parsed Result
//
// Helper methods on Result locate the video stream and derive the frame
// total, estimating from duration and frame rate when the container does
// not record nb_frames.
package ffprobe
