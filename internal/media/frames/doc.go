// Package frames probes video files and extracts individual frames by
// shelling out to ffprobe and ffmpeg. Frames are piped back as PNG and
// decoded in-process.
package frames
