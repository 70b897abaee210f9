// Package fileutil provides the filesystem primitives shared by the
// resolver and merge engines: streamed copies, cross-device moves, and
// collision-safe destination naming.
package fileutil
