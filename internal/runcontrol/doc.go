// Package runcontrol provides the cooperative stop/pause substrate and
// the bounded worker pool shared by every engine. Stop is an ordinary
// context cancellation injected by the caller; pause is a toggleable
// gate that holds workers at chunk boundaries without dropping state.
package runcontrol
