package sync

import (
	"fmt"
	"time"

	"github.com/klauern/treesync/internal/filter"
	"github.com/klauern/treesync/internal/match"
)

// Mode selects between syncing a directory tree and a single file.
type Mode string

const (
	// ModeAuto picks ModeDirectory or ModeFile from the type of the source.
	ModeAuto Mode = "auto"

	// ModeDirectory syncs a directory tree.
	ModeDirectory Mode = "dir"

	// ModeFile syncs a single file.
	ModeFile Mode = "file"
)

// IsValid returns true if the mode is recognized.
func (m Mode) IsValid() bool {
	switch m {
	case ModeAuto, ModeDirectory, ModeFile:
		return true
	default:
		return false
	}
}

// DefaultTolerance absorbs the 2 second timestamp granularity of FAT volumes.
const DefaultTolerance = 2 * time.Second

// Config is the fully resolved description of one sync run. It is not
// modified by the engine.
type Config struct {
	// Source and Target are the paths being synchronized.
	Source string
	Target string

	// Mode selects directory or single-file sync.
	Mode Mode

	// Keys are the record attributes used for matching.
	Keys match.Keys

	// Tolerance is the largest modification time difference treated as equal.
	Tolerance time.Duration

	// Policies govern renames, time syncs, overwrites and deletes.
	Policies Policies

	// SourceFilter and TargetFilter restrict the entries considered on each
	// side. Nil filters include everything.
	SourceFilter *filter.PathFilter
	TargetFilter *filter.PathFilter

	// Recursive descends into subdirectories.
	Recursive bool

	// DryRun reports operations without performing them.
	DryRun bool

	// ResolveSymlinks resolves symbolic links before comparing the source
	// and target paths. Only meaningful on the OS filesystem.
	ResolveSymlinks bool
}

// DefaultConfig returns a configuration with default matching and policies.
func DefaultConfig() Config {
	return Config{
		Mode:      ModeAuto,
		Keys:      match.Keys{Name: true, Size: true, Time: true},
		Tolerance: DefaultTolerance,
		Policies:  DefaultPolicies(),
		Recursive: true,
	}
}

// Comparator returns the comparator for file matching.
func (c Config) Comparator() match.Comparator {
	keys := c.Keys
	keys.Size = true
	return match.Comparator{Keys: keys, Tolerance: c.Tolerance}
}

// Validate checks the configuration values that do not depend on the filesystem.
func (c Config) Validate() error {
	if !c.Mode.IsValid() {
		return fmt.Errorf("invalid mode %q (valid: auto, dir, file)", c.Mode)
	}
	if c.Tolerance < 0 {
		return fmt.Errorf("tolerance must not be negative, got %s", c.Tolerance)
	}
	return c.Policies.Validate()
}
