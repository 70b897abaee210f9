// Package dupe holds the shared data model for duplicate detection:
// file records, duplicate groups, scan configuration, and the engine
// contract implemented by the exact and perceptual scanners.
package dupe
