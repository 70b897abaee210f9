package deps

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Unconfigured", Command: "  ", Optional: true},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Detail != "" {
		t.Fatalf("expected first requirement available, got %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary unavailable with detail, got %#v", results[1])
	}
	if results[2].Available || results[2].Detail != "command not configured" {
		t.Fatalf("expected unconfigured detail, got %#v", results[2])
	}
}

func TestResolveBinaryPrefersConfigured(t *testing.T) {
	if got := ResolveBinary("/opt/ffmpeg/bin/ffmpeg", "ffmpeg"); got != "/opt/ffmpeg/bin/ffmpeg" {
		t.Fatalf("ResolveBinary = %q, want configured path", got)
	}
}

func TestResolveBinaryFallsBackToPath(t *testing.T) {
	binDir := t.TempDir()
	stub := filepath.Join(binDir, "ffprobe")
	if err := os.WriteFile(stub, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	t.Setenv("PATH", binDir)

	if got := ResolveBinary("", "ffprobe"); got != stub {
		t.Fatalf("ResolveBinary = %q, want %q", got, stub)
	}

	t.Setenv("PATH", "")
	if got := ResolveBinary("", "ffprobe"); got != "ffprobe" {
		t.Fatalf("ResolveBinary = %q, want bare name", got)
	}
}
