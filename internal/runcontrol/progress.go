package runcontrol

// Reporter receives progress ticks from a running engine. Implementations
// must be safe for concurrent use; ticks may arrive from worker
// goroutines. A total of zero marks an indeterminate phase such as the
// initial directory walk.
type Reporter interface {
	Report(completed, total int, message string)
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(completed, total int, message string)

// Report calls f.
func (f ReporterFunc) Report(completed, total int, message string) {
	f(completed, total, message)
}

// NopReporter discards all progress ticks.
var NopReporter Reporter = ReporterFunc(func(int, int, string) {})
