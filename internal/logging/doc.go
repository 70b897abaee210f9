// Package logging constructs the slog loggers used across winnow and
// provides the attribute helpers engines log with. Console output is a
// compact single-line format; JSON output is standard slog JSON.
package logging
