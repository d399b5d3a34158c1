// Package progress provides progress indicators for long-running operations.
package progress

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"github.com/klauern/treesync/internal/logging"
	"github.com/klauern/treesync/internal/ui"
)

// Bar wraps progressbar functionality with integration to treesync's UI and logging.
type Bar struct {
	bar     *progressbar.ProgressBar
	enabled bool
	desc    string
	count   int64
}

// Options configures the progress indicator behavior.
type Options struct {
	// Max is the total number of steps. -1 shows a spinner for work of
	// unknown size, such as a directory walk.
	Max int64
	// Description is the prefix text shown before the indicator.
	Description string
	// Writer is the output destination. Defaults to os.Stderr.
	Writer io.Writer
	// Force shows the indicator even when Writer is not a terminal.
	Force bool
}

// DefaultOptions returns a spinner suitable for directory walks.
func DefaultOptions() Options {
	return Options{
		Max:         -1,
		Description: "Syncing",
		Writer:      os.Stderr,
	}
}

// New creates a new progress indicator with the given options.
// The indicator is only shown if:
//   - Colors are enabled (respects NO_COLOR and --no-color)
//   - Output is a terminal
//   - Not in debug mode (to avoid interfering with logs)
func New(opts Options) *Bar {
	if opts.Writer == nil {
		opts.Writer = os.Stderr
	}

	b := &Bar{
		enabled: opts.Force || shouldShowProgress(opts.Writer),
		desc:    opts.Description,
	}

	if !b.enabled {
		logging.Debug(fmt.Sprintf("%s started", opts.Description))
		return b
	}

	b.bar = progressbar.NewOptions64(
		opts.Max,
		progressbar.OptionSetDescription(opts.Description),
		progressbar.OptionSetWriter(opts.Writer),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(15),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(opts.Writer, "\n")
		}),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionEnableColorCodes(ui.IsColorEnabled()),
	)

	return b
}

// Visit advances the indicator by one directory and shows its name.
func (b *Bar) Visit(dir string) {
	b.count++
	if !b.enabled {
		return
	}
	b.bar.Describe(fmt.Sprintf("%s %s", b.desc, filepath.Base(dir)))
	_ = b.bar.Add(1)
}

// Count returns the number of visited directories.
func (b *Bar) Count() int64 {
	return b.count
}

// Enabled reports whether the indicator is drawn.
func (b *Bar) Enabled() bool {
	return b.enabled
}

// Finish completes the indicator and logs completion.
func (b *Bar) Finish() error {
	if !b.enabled {
		logging.Debug(fmt.Sprintf("%s completed", b.desc), logging.Count(int(b.count)))
		return nil
	}
	return b.bar.Finish()
}

// Clear removes the indicator from the terminal, for example before a prompt.
func (b *Bar) Clear() error {
	if !b.enabled {
		return nil
	}
	return b.bar.Clear()
}

// shouldShowProgress determines if progress indicators should be displayed.
// Progress is disabled if:
//   - Not outputting to a terminal
//   - Colors are disabled (NO_COLOR, --no-color)
//   - Logger is at debug level (to avoid interfering with debug output)
func shouldShowProgress(w io.Writer) bool {
	if !ui.IsColorEnabled() {
		return false
	}

	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return false
	}

	if logging.Default().Enabled(context.Background(), logging.LevelDebug) {
		return false
	}

	return true
}
