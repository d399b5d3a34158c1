package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/klauern/treesync/internal/progress"
	"github.com/klauern/treesync/internal/sync"
	"github.com/klauern/treesync/internal/ui"
)

// reporter prints the event stream of a run. Warnings are always shown,
// failed operations marked as errors; other operations only in verbose
// mode or during a dry run.
type reporter struct {
	out     io.Writer
	verbose bool
	bar     *progress.Bar
}

func newReporter(out io.Writer, verbose bool, bar *progress.Bar) *reporter {
	return &reporter{out: out, verbose: verbose, bar: bar}
}

// Handle is a sync.EventHandler.
func (r *reporter) Handle(e sync.Event) {
	switch e.Kind {
	case sync.EventVisit:
		if r.bar != nil {
			r.bar.Visit(e.Path)
		}
		return
	case sync.EventMatch:
		return
	case sync.EventWarning, sync.EventClash:
		if e.Err != nil {
			r.print(ui.StatusError(describe(e)))
		} else {
			r.print(ui.StatusWarning(describe(e)))
		}
		return
	case sync.EventSkip:
		if r.verbose {
			r.print(ui.StatusSkipped(describe(e)))
		}
		return
	}

	if !r.verbose && !e.DryRun {
		return
	}
	r.print(ui.StatusChange(symbol(e.Kind), describe(e)))
}

func (r *reporter) print(line string) {
	if r.bar != nil {
		_ = r.bar.Clear()
	}
	fmt.Fprintln(r.out, line)
}

func symbol(k sync.EventKind) string {
	switch k {
	case sync.EventCopy:
		return ui.SymbolCopy
	case sync.EventOverwrite:
		return ui.SymbolReplace
	case sync.EventRename:
		return ui.SymbolRename
	case sync.EventDelete:
		return ui.SymbolDelete
	case sync.EventTimeSync:
		return ui.SymbolTime
	case sync.EventMakeDir:
		return ui.SymbolMakeDir
	default:
		return ui.SymbolDeclined
	}
}

// describe renders the message part of an event line.
func describe(e sync.Event) string {
	var msg string
	switch e.Kind {
	case sync.EventCopy, sync.EventOverwrite:
		msg = fmt.Sprintf("%s %s -> %s (%s)", e.Kind, e.Path, e.Target, humanize.Bytes(uint64(max(e.Size, 0))))
	case sync.EventRename:
		msg = fmt.Sprintf("rename %s -> %s", e.Path, e.Target)
		if e.Temporary {
			msg += " (temporary)"
		}
	case sync.EventDeclined:
		msg = fmt.Sprintf("skipped %s %s", e.Op, firstNonEmpty(e.Target, e.Path))
	case sync.EventClash:
		msg = fmt.Sprintf("%s and %s: %s", e.Path, e.Target, e.Message)
	case sync.EventWarning, sync.EventSkip:
		msg = fmt.Sprintf("%s: %s", e.Path, e.Message)
		if e.Err != nil {
			msg += fmt.Sprintf(" (%v)", e.Err)
		}
	default:
		msg = fmt.Sprintf("%s %s", e.Kind, e.Path)
	}
	if e.DryRun {
		msg = "[dry run] " + msg
	}
	return msg
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// summaryRows converts the counters of a run into summary box rows.
func summaryRows(s *sync.Summary) []ui.Row {
	return []ui.Row{
		{Label: "Scanned", Value: humanize.Comma(int64(s.Scanned))},
		{Label: "Matched", Value: humanize.Comma(int64(s.Matched))},
		{Label: "Renamed", Value: humanize.Comma(int64(s.Renamed))},
		{Label: "Time-synced", Value: humanize.Comma(int64(s.TimeSynced))},
		{Label: "Copied", Value: humanize.Comma(int64(s.Copied))},
		{Label: "Deleted", Value: humanize.Comma(int64(s.Deleted))},
		{Label: "Warnings", Value: humanize.Comma(int64(s.Warnings)), Highlight: s.Warnings > 0},
		{Label: "Duration", Value: s.Duration.Round(time.Millisecond).String()},
	}
}

func summaryTitle(s *sync.Summary) string {
	if s.DryRun {
		return "Dry run - no changes made"
	}
	return "Sync complete"
}
