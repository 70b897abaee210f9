// Package history records completed scan and merge runs in a SQLite
// database so past results can be listed and re-inspected. Each run row
// carries its counters; duplicate groups and their members are stored
// relationally with order preserved.
package history
