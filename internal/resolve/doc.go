// Package resolve turns duplicate groups into filesystem outcomes. A
// keep policy picks the surviving member; the configured action deletes,
// moves, or quarantines the rest, or defers the whole group to manual
// review. Dry runs report the same statistics a live run would while
// mutating nothing.
package resolve
