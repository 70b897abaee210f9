// Package main hosts the winnow CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into scan,
// merge, and history operations against the internal engines. It
// centralizes configuration resolution, signal wiring for pause and
// stop, mutation locking, and structured logging setup so subcommands
// can focus on user experience instead of plumbing.
//
// Keep this package lean: add new functionality by extending the
// internal packages first, then surface it through dedicated commands
// or flags here.
package main
