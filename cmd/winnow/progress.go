package main

import (
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"winnow/internal/runcontrol"
)

// newProgress returns a terminal progress bar when stderr is a TTY and
// a no-op reporter otherwise; log lines already cover non-interactive
// runs.
func newProgress(out io.Writer) runcontrol.Reporter {
	file, ok := out.(*os.File)
	if !ok || !isatty.IsTerminal(file.Fd()) {
		return runcontrol.NopReporter
	}
	return &barReporter{out: file}
}

// barReporter adapts progressbar to the Reporter interface, rebuilding
// the bar whenever a new phase changes the total.
type barReporter struct {
	mu    sync.Mutex
	out   io.Writer
	bar   *progressbar.ProgressBar
	total int
}

func (b *barReporter) Report(completed, total int, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.bar == nil || total != b.total {
		b.total = total
		size := int64(total)
		if total <= 0 {
			// Indeterminate phase: spinner only.
			size = -1
		}
		b.bar = progressbar.NewOptions64(size,
			progressbar.OptionSetWriter(b.out),
			progressbar.OptionSetDescription(message),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionShowCount(),
			progressbar.OptionSetPredictTime(false),
		)
	}

	b.bar.Describe(message)
	if total > 0 {
		_ = b.bar.Set(completed)
	} else {
		_ = b.bar.Add(1)
	}
}
