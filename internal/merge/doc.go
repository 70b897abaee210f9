// Package merge folds an incoming directory tree into a master tree
// without losing data. Incoming files already present byte-for-byte in
// the master are duplicates and handled per the configured duplicate
// action; new files are copied or moved into the mirrored path, renamed
// with a timestamp suffix on collision.
package merge
