// Package config provides configuration management for treesync.
// It supports YAML and TOML configuration files, environment variables, and sensible defaults.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/klauern/treesync/internal/filter"
	"github.com/klauern/treesync/internal/match"
	"github.com/klauern/treesync/internal/sync"
	"github.com/klauern/treesync/internal/util"
)

// Config represents the complete treesync configuration.
type Config struct {
	// Sync configures traversal behavior
	Sync SyncConfig `yaml:"sync" toml:"sync"`

	// Match configures how source and target files are paired
	Match MatchConfig `yaml:"match" toml:"match"`

	// Policy configures whether each operation is performed, skipped or asked about
	Policy PolicyConfig `yaml:"policy" toml:"policy"`

	// Filter configures include and exclude patterns
	Filter FilterConfig `yaml:"filter" toml:"filter"`

	// Output configures display preferences
	Output OutputConfig `yaml:"output" toml:"output"`
}

// SyncConfig holds traversal settings.
type SyncConfig struct {
	// Mode is auto, dir or file
	Mode string `yaml:"mode" toml:"mode"`
	// Recursive descends into subdirectories
	Recursive bool `yaml:"recursive" toml:"recursive"`
	// DryRun reports operations without performing them
	DryRun bool `yaml:"dry_run" toml:"dry_run"`
	// ResolveSymlinks resolves links before comparing source and target paths
	ResolveSymlinks bool `yaml:"resolve_symlinks" toml:"resolve_symlinks"`
}

// MatchConfig holds matching settings.
type MatchConfig struct {
	// Keys is a comma-separated list of name, size, time and crc
	Keys string `yaml:"keys" toml:"keys"`
	// Tolerance is the largest time difference treated as equal
	Tolerance time.Duration `yaml:"tolerance" toml:"tolerance"`
}

// PolicyConfig holds the policy of each operation (always, never, ask).
type PolicyConfig struct {
	Rename    string `yaml:"rename" toml:"rename"`
	TimeSync  string `yaml:"timesync" toml:"timesync"`
	Overwrite string `yaml:"overwrite" toml:"overwrite"`
	Delete    string `yaml:"delete" toml:"delete"`
}

// FilterConfig holds filter patterns. Patterns are globs unless prefixed
// with "regex:"; a "not:" prefix inverts a pattern.
type FilterConfig struct {
	// Include and Exclude apply to source entries
	Include []string `yaml:"include,omitempty" toml:"include,omitempty"`
	Exclude []string `yaml:"exclude,omitempty" toml:"exclude,omitempty"`
	// TargetInclude and TargetExclude apply to target entries
	TargetInclude []string `yaml:"target_include,omitempty" toml:"target_include,omitempty"`
	TargetExclude []string `yaml:"target_exclude,omitempty" toml:"target_exclude,omitempty"`
	// ExcludeFrom lists gitignore-style files excluding entries on both sides
	ExcludeFrom []string `yaml:"exclude_from,omitempty" toml:"exclude_from,omitempty"`
	// By is "path" to match relative paths or "name" to match file names
	By string `yaml:"by" toml:"by"`
	// LowerCase lower-cases paths before matching
	LowerCase bool `yaml:"lowercase" toml:"lowercase"`
}

// OutputConfig holds display preferences.
type OutputConfig struct {
	// Color controls color output (auto, always, never)
	Color string `yaml:"color" toml:"color"`
	// Verbose reports every operation instead of only the summary
	Verbose bool `yaml:"verbose" toml:"verbose"`
	// Progress shows a spinner while directories are visited
	Progress bool `yaml:"progress" toml:"progress"`
	// LogFile additionally writes debug logs to a rotating file
	LogFile string `yaml:"log_file,omitempty" toml:"log_file,omitempty"`
}

// Filter key modes.
const (
	FilterByPath = "path"
	FilterByName = "name"
)

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Sync: SyncConfig{
			Mode:      string(sync.ModeAuto),
			Recursive: true,
		},
		Match: MatchConfig{
			Keys:      "name,size,time",
			Tolerance: sync.DefaultTolerance,
		},
		Policy: PolicyConfig{
			Rename:    string(sync.PolicyAlways),
			TimeSync:  string(sync.PolicyAlways),
			Overwrite: string(sync.PolicyAsk),
			Delete:    string(sync.PolicyAsk),
		},
		Filter: FilterConfig{
			By: FilterByPath,
		},
		Output: OutputConfig{
			Color:    "auto",
			Verbose:  false,
			Progress: true,
		},
	}
}

// configFileName is the name of the config file.
const configFileName = "config.yaml"

// FilePath returns the path to the default config file.
func FilePath() string {
	return filepath.Join(util.TreesyncConfigPath(), configFileName)
}

// Load loads the configuration from the default location, merging with defaults.
// A config.toml next to the missing config.yaml is used instead.
// If no config file exists, returns the default configuration.
func Load() (*Config, error) {
	path := FilePath()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		alt := strings.TrimSuffix(path, filepath.Ext(path)) + ".toml"
		if _, err := os.Stat(alt); err != nil {
			cfg := Default()
			cfg.applyEnvironment()
			return cfg, nil
		}
		path = alt
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific path. Files ending in
// .toml are parsed as TOML, everything else as YAML.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	// #nosec G304 - path is provided by caller
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if isTOML(path) {
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	cfg.applyEnvironment()
	return cfg, nil
}

// Save writes the configuration to the default config file.
func (c *Config) Save() error {
	return c.SaveToPath(FilePath())
}

// SaveToPath writes the configuration to a specific path, as TOML when the
// path ends in .toml.
func (c *Config) SaveToPath(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := c.Marshal(isTOML(path))
	if err != nil {
		return err
	}

	// #nosec G306 - config file should be readable by user
	return os.WriteFile(path, data, 0o644)
}

// Marshal renders the configuration as YAML, or TOML when asTOML is set.
func (c *Config) Marshal(asTOML bool) ([]byte, error) {
	if asTOML {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(c); err != nil {
			return nil, fmt.Errorf("failed to encode config: %w", err)
		}
		return buf.Bytes(), nil
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return data, nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// applyEnvironment applies environment variable overrides.
// Environment variables follow the pattern TREESYNC_<SECTION>_<KEY>.
func (c *Config) applyEnvironment() {
	// Sync settings
	if v := os.Getenv("TREESYNC_SYNC_MODE"); v != "" {
		c.Sync.Mode = v
	}
	if v := os.Getenv("TREESYNC_SYNC_RECURSIVE"); v != "" {
		c.Sync.Recursive = parseBool(v)
	}
	if v := os.Getenv("TREESYNC_SYNC_DRY_RUN"); v != "" {
		c.Sync.DryRun = parseBool(v)
	}

	// Match settings
	if v := os.Getenv("TREESYNC_MATCH_KEYS"); v != "" {
		c.Match.Keys = v
	}
	if v := os.Getenv("TREESYNC_MATCH_TOLERANCE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Match.Tolerance = d
		}
	}

	// Policy settings
	if v := os.Getenv("TREESYNC_POLICY_RENAME"); v != "" {
		c.Policy.Rename = v
	}
	if v := os.Getenv("TREESYNC_POLICY_TIMESYNC"); v != "" {
		c.Policy.TimeSync = v
	}
	if v := os.Getenv("TREESYNC_POLICY_OVERWRITE"); v != "" {
		c.Policy.Overwrite = v
	}
	if v := os.Getenv("TREESYNC_POLICY_DELETE"); v != "" {
		c.Policy.Delete = v
	}

	// Filter settings - comma-separated lists
	if v := os.Getenv("TREESYNC_FILTER_INCLUDE"); v != "" {
		c.Filter.Include = splitList(v)
	}
	if v := os.Getenv("TREESYNC_FILTER_EXCLUDE"); v != "" {
		c.Filter.Exclude = splitList(v)
	}
	if v := os.Getenv("TREESYNC_FILTER_BY"); v != "" {
		c.Filter.By = v
	}

	// Output settings
	if v := os.Getenv("TREESYNC_OUTPUT_COLOR"); v != "" {
		c.Output.Color = v
	}
	if v := os.Getenv("TREESYNC_OUTPUT_VERBOSE"); v != "" {
		c.Output.Verbose = parseBool(v)
	}
	if v := os.Getenv("TREESYNC_OUTPUT_LOG_FILE"); v != "" {
		c.Output.LogFile = v
	}
}

// parseBool parses a boolean from common string representations.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// splitList splits a comma-separated string. Empty segments are filtered out.
func splitList(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// Policies parses the policy section.
func (c *Config) Policies() (sync.Policies, error) {
	var p sync.Policies
	for _, field := range []struct {
		op    sync.Operation
		value string
	}{
		{sync.OpRename, c.Policy.Rename},
		{sync.OpTimeSync, c.Policy.TimeSync},
		{sync.OpOverwrite, c.Policy.Overwrite},
		{sync.OpDelete, c.Policy.Delete},
	} {
		policy, err := sync.ParsePolicy(field.value)
		if err != nil {
			return sync.Policies{}, fmt.Errorf("policy.%s: %w", field.op, err)
		}
		p.Set(field.op, policy)
	}
	return p, nil
}

// Validate checks every value that can be checked without touching the filesystem.
func (c *Config) Validate() error {
	if mode := sync.Mode(c.Sync.Mode); !mode.IsValid() {
		return fmt.Errorf("sync.mode: invalid mode %q (valid: auto, dir, file)", c.Sync.Mode)
	}
	if _, err := match.ParseKeys(c.Match.Keys); err != nil {
		return fmt.Errorf("match.keys: %w", err)
	}
	if c.Match.Tolerance < 0 {
		return fmt.Errorf("match.tolerance: must not be negative, got %s", c.Match.Tolerance)
	}
	if _, err := c.Policies(); err != nil {
		return err
	}
	switch c.Filter.By {
	case FilterByPath, FilterByName:
	default:
		return fmt.Errorf("filter.by: invalid value %q (valid: path, name)", c.Filter.By)
	}
	switch c.Output.Color {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("output.color: invalid value %q (valid: auto, always, never)", c.Output.Color)
	}
	return nil
}

// ToSync resolves the configuration into the immutable run description for
// source and target. Filter patterns are compiled here.
func (c *Config) ToSync(source, target string) (sync.Config, error) {
	if err := c.Validate(); err != nil {
		return sync.Config{}, err
	}

	keys, _ := match.ParseKeys(c.Match.Keys)
	policies, _ := c.Policies()

	byName := c.Filter.By == FilterByName
	srcFilter, err := c.pathFilter(filter.Spec{
		Include:     c.Filter.Include,
		Exclude:     c.Filter.Exclude,
		ExcludeFrom: c.Filter.ExcludeFrom,
	}, byName)
	if err != nil {
		return sync.Config{}, fmt.Errorf("source filter: %w", err)
	}
	dstFilter, err := c.pathFilter(filter.Spec{
		Include:     c.Filter.TargetInclude,
		Exclude:     c.Filter.TargetExclude,
		ExcludeFrom: c.Filter.ExcludeFrom,
	}, byName)
	if err != nil {
		return sync.Config{}, fmt.Errorf("target filter: %w", err)
	}

	return sync.Config{
		Source:          util.ExpandPath(source, ""),
		Target:          util.ExpandPath(target, ""),
		Mode:            sync.Mode(c.Sync.Mode),
		Keys:            keys,
		Tolerance:       c.Match.Tolerance,
		Policies:        policies,
		SourceFilter:    srcFilter,
		TargetFilter:    dstFilter,
		Recursive:       c.Sync.Recursive,
		DryRun:          c.Sync.DryRun,
		ResolveSymlinks: c.Sync.ResolveSymlinks,
	}, nil
}

func (c *Config) pathFilter(spec filter.Spec, byName bool) (*filter.PathFilter, error) {
	root, err := filter.Build(spec)
	if err != nil {
		return nil, err
	}
	return filter.NewPathFilter(root, byName, c.Filter.LowerCase), nil
}

// Exists returns true if a config file exists.
func Exists() bool {
	_, err := os.Stat(FilePath())
	return err == nil
}
