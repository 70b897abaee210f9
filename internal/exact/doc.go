// Package exact finds byte-identical files through a three-phase
// pipeline: size buckets, a cheap partial-hash pre-screen, and a
// streamed full-content hash confirmation.
package exact
