// Package preflight validates the environment before a run mutates
// anything: directory access, free space on merge destinations, and the
// external binaries perceptual scans depend on.
package preflight
