package sync

import (
	"fmt"
	"strings"
	"time"
)

// EventKind identifies what an Event reports.
type EventKind string

const (
	// EventVisit is emitted when a directory pair is entered.
	EventVisit EventKind = "visit"

	// EventMatch reports a source file paired with a target file.
	EventMatch EventKind = "match"

	// EventCopy reports a new file copied to the target.
	EventCopy EventKind = "copy"

	// EventOverwrite reports a target file replaced by a source file.
	EventOverwrite EventKind = "overwrite"

	// EventRename reports a target entry renamed.
	EventRename EventKind = "rename"

	// EventDelete reports a target entry removed.
	EventDelete EventKind = "delete"

	// EventTimeSync reports a modification time copied to the target.
	EventTimeSync EventKind = "timesync"

	// EventMakeDir reports a target directory created.
	EventMakeDir EventKind = "mkdir"

	// EventSkip reports an entry left alone for structural reasons.
	EventSkip EventKind = "skip"

	// EventDeclined reports an operation refused by its policy or the user.
	EventDeclined EventKind = "declined"

	// EventWarning reports a failure that did not stop the run.
	EventWarning EventKind = "warning"

	// EventClash reports sibling source files that cannot be told apart.
	EventClash EventKind = "clash"
)

// IsChange reports whether the event describes a modification of the target.
func (k EventKind) IsChange() bool {
	switch k {
	case EventCopy, EventOverwrite, EventRename, EventDelete, EventTimeSync, EventMakeDir:
		return true
	default:
		return false
	}
}

// Event is one entry of the ordered stream a run produces.
type Event struct {
	// Kind is what happened.
	Kind EventKind

	// Path is the primary path: the source of a copy or rename, or the entry
	// affected by a delete, time sync or warning.
	Path string

	// Target is the destination path, when there is one.
	Target string

	// Size is the number of bytes copied, for copies and overwrites.
	Size int64

	// Op is the operation a declined event refers to.
	Op Operation

	// Temporary marks a rename to a temporary name.
	Temporary bool

	// DryRun marks an operation that was reported but not performed.
	DryRun bool

	// Message adds context for skips, warnings and clashes.
	Message string

	// Err is the underlying failure of a warning.
	Err error
}

// String renders the event on one line.
func (e Event) String() string {
	var sb strings.Builder
	sb.WriteString(string(e.Kind))
	if e.Path != "" {
		sb.WriteString(" " + e.Path)
	}
	if e.Target != "" {
		sb.WriteString(" -> " + e.Target)
	}
	if e.Message != "" {
		sb.WriteString(": " + e.Message)
	}
	if e.Err != nil {
		fmt.Fprintf(&sb, " (%v)", e.Err)
	}
	return sb.String()
}

// EventHandler receives events in the order they happen.
type EventHandler func(Event)

// Summary aggregates the counters of a run.
type Summary struct {
	// Scanned counts source entries considered.
	Scanned int
	// Matched counts source files paired with a target file.
	Matched int
	// Renamed counts renames to a final name.
	Renamed int
	// TimeSynced counts modification times copied to files and directories.
	TimeSynced int
	// Copied counts new and overwritten files.
	Copied int
	// Deleted counts removed target entries.
	Deleted int
	// Warnings counts non-fatal failures, ambiguities and clashes.
	Warnings int

	// Duration is the wall time of the run.
	Duration time.Duration

	// DryRun indicates that no changes were made.
	DryRun bool
}

// TotalChanged returns the number of modifications made or planned.
func (s *Summary) TotalChanged() int {
	return s.Renamed + s.TimeSynced + s.Copied + s.Deleted
}

// Success returns true if the run produced no warnings.
func (s *Summary) Success() bool {
	return s.Warnings == 0
}

// String returns a human-readable summary of the run.
func (s *Summary) String() string {
	var sb strings.Builder

	if s.DryRun {
		sb.WriteString("Dry run - no changes made\n")
	}

	sb.WriteString(fmt.Sprintf("  Scanned:     %d\n", s.Scanned))
	sb.WriteString(fmt.Sprintf("  Matched:     %d\n", s.Matched))
	sb.WriteString(fmt.Sprintf("  Renamed:     %d\n", s.Renamed))
	sb.WriteString(fmt.Sprintf("  Time-synced: %d\n", s.TimeSynced))
	sb.WriteString(fmt.Sprintf("  Copied:      %d\n", s.Copied))
	sb.WriteString(fmt.Sprintf("  Deleted:     %d\n", s.Deleted))
	sb.WriteString(fmt.Sprintf("  Warnings:    %d\n", s.Warnings))

	return sb.String()
}
