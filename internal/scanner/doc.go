// Package scanner walks a directory tree into file records, applying
// ignore rules and grouping by size. It is the indexing phase shared by
// both dedup engines.
package scanner
