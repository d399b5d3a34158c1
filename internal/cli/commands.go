package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/klauern/treesync/internal/config"
	"github.com/klauern/treesync/internal/fsio"
	"github.com/klauern/treesync/internal/logging"
	"github.com/klauern/treesync/internal/progress"
	"github.com/klauern/treesync/internal/sync"
	"github.com/klauern/treesync/internal/ui"
)

func configFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to a YAML or TOML config file (default: $TREESYNC_HOME/config.yaml)",
	}
}

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Show or create the configuration file",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Print the effective configuration",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:  "format",
						Value: "yaml",
						Usage: "Output format: yaml or toml",
					},
				},
				Action: func(_ context.Context, cmd *cli.Command) error {
					cfg, err := loadConfig(cmd.String("config"))
					if err != nil {
						return err
					}
					format := strings.ToLower(cmd.String("format"))
					if format != "yaml" && format != "toml" {
						return fmt.Errorf("invalid format %q (valid: yaml, toml)", cmd.String("format"))
					}
					data, err := cfg.Marshal(format == "toml")
					if err != nil {
						return err
					}
					fmt.Print(string(data))
					return nil
				},
			},
			{
				Name:  "init",
				Usage: "Write the default configuration file",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:    "force",
						Aliases: []string{"f"},
						Usage:   "Overwrite an existing config file",
					},
				},
				Action: func(_ context.Context, cmd *cli.Command) error {
					path := cmd.String("config")
					if path == "" {
						path = config.FilePath()
					}
					if _, err := os.Stat(path); err == nil && !cmd.Bool("force") {
						return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
					}
					if err := config.Default().SaveToPath(path); err != nil {
						return err
					}
					fmt.Println(ui.StatusSuccess("Wrote " + path))
					return nil
				},
			},
			{
				Name:  "path",
				Usage: "Print the default config file location",
				Action: func(_ context.Context, _ *cli.Command) error {
					fmt.Println(config.FilePath())
					return nil
				},
			},
		},
	}
}

func syncCommand() *cli.Command {
	return &cli.Command{
		Name:      "sync",
		Usage:     "Make target an up-to-date copy of source",
		ArgsUsage: "<source> <target>",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:    "mode",
				Aliases: []string{"m"},
				Usage:   "Sync mode: auto, dir or file",
			},
			&cli.StringFlag{
				Name:  "match",
				Usage: "Comma-separated match keys: name, size, time, crc",
			},
			&cli.DurationFlag{
				Name:  "tolerance",
				Usage: "Largest modification time difference treated as equal",
			},
			&cli.StringFlag{
				Name:  "rename",
				Usage: "Rename policy: always, never or ask",
			},
			&cli.StringFlag{
				Name:  "timesync",
				Usage: "Time sync policy: always, never or ask",
			},
			&cli.StringFlag{
				Name:  "overwrite",
				Usage: "Overwrite policy: always, never or ask",
			},
			&cli.StringFlag{
				Name:  "delete",
				Usage: "Delete policy: always, never or ask",
			},
			&cli.BoolFlag{
				Name:    "yes",
				Aliases: []string{"y"},
				Usage:   "Set every policy to always (per-operation flags still apply)",
			},
			&cli.StringSliceFlag{
				Name:  "include",
				Usage: "Only sync source entries matching a pattern (repeatable)",
			},
			&cli.StringSliceFlag{
				Name:  "exclude",
				Usage: "Skip source entries matching a pattern (repeatable)",
			},
			&cli.StringSliceFlag{
				Name:  "target-include",
				Usage: "Only consider target entries matching a pattern (repeatable)",
			},
			&cli.StringSliceFlag{
				Name:  "target-exclude",
				Usage: "Leave target entries matching a pattern alone (repeatable)",
			},
			&cli.StringSliceFlag{
				Name:  "exclude-from",
				Usage: "Read gitignore-style exclude patterns from a file (repeatable)",
			},
			&cli.StringFlag{
				Name:  "filter-by",
				Usage: "Match patterns against the relative path or the name",
			},
			&cli.BoolFlag{
				Name:  "lowercase",
				Usage: "Lower-case paths before pattern matching",
			},
			&cli.BoolFlag{
				Name:  "no-recursive",
				Usage: "Only sync the top-level directory",
			},
			&cli.BoolFlag{
				Name:    "dry-run",
				Aliases: []string{"d"},
				Usage:   "Report what would change without modifying the target",
			},
			&cli.BoolFlag{
				Name:  "resolve-symlinks",
				Usage: "Resolve symbolic links before checking that source and target differ",
			},
			&cli.BoolFlag{
				Name:  "no-progress",
				Usage: "Hide the progress spinner",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args := cmd.Args()
			if args.Len() != 2 {
				return fmt.Errorf("sync requires exactly 2 arguments: <source> <target>, got %d", args.Len())
			}

			cfg, err := loadConfig(cmd.String("config"))
			if err != nil {
				return &sync.FatalError{Message: "invalid configuration", Code: sync.CodeConfig, Err: err}
			}
			applySyncFlags(cmd, cfg)
			applyOutput(cmd, cfg)

			runCfg, err := cfg.ToSync(args.Get(0), args.Get(1))
			if err != nil {
				return &sync.FatalError{Message: "invalid configuration", Code: sync.CodeConfig, Err: err}
			}

			return runSync(ctx, runCfg, cfg.Output.Verbose || verbose(cmd), cfg.Output.Progress)
		},
	}
}

// loadConfig reads path, or the default config file when path is empty.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}

// applySyncFlags overrides configuration values with the flags that were set.
func applySyncFlags(cmd *cli.Command, cfg *config.Config) {
	if cmd.IsSet("mode") {
		cfg.Sync.Mode = cmd.String("mode")
	}
	if cmd.IsSet("match") {
		cfg.Match.Keys = cmd.String("match")
	}
	if cmd.IsSet("tolerance") {
		cfg.Match.Tolerance = cmd.Duration("tolerance")
	}

	if cmd.Bool("yes") {
		always := string(sync.PolicyAlways)
		cfg.Policy = config.PolicyConfig{Rename: always, TimeSync: always, Overwrite: always, Delete: always}
	}
	for flag, field := range map[string]*string{
		"rename":    &cfg.Policy.Rename,
		"timesync":  &cfg.Policy.TimeSync,
		"overwrite": &cfg.Policy.Overwrite,
		"delete":    &cfg.Policy.Delete,
	} {
		if cmd.IsSet(flag) {
			*field = cmd.String(flag)
		}
	}

	cfg.Filter.Include = append(cfg.Filter.Include, cmd.StringSlice("include")...)
	cfg.Filter.Exclude = append(cfg.Filter.Exclude, cmd.StringSlice("exclude")...)
	cfg.Filter.TargetInclude = append(cfg.Filter.TargetInclude, cmd.StringSlice("target-include")...)
	cfg.Filter.TargetExclude = append(cfg.Filter.TargetExclude, cmd.StringSlice("target-exclude")...)
	cfg.Filter.ExcludeFrom = append(cfg.Filter.ExcludeFrom, cmd.StringSlice("exclude-from")...)
	if cmd.IsSet("filter-by") {
		cfg.Filter.By = cmd.String("filter-by")
	}
	if cmd.Bool("lowercase") {
		cfg.Filter.LowerCase = true
	}

	if cmd.Bool("no-recursive") {
		cfg.Sync.Recursive = false
	}
	if cmd.Bool("dry-run") {
		cfg.Sync.DryRun = true
	}
	if cmd.Bool("resolve-symlinks") {
		cfg.Sync.ResolveSymlinks = true
	}
	if cmd.Bool("no-progress") {
		cfg.Output.Progress = false
	}
}

// applyOutput applies the output section where no global flag overrides it.
func applyOutput(cmd *cli.Command, cfg *config.Config) {
	if !cmd.Bool("no-color") {
		switch cfg.Output.Color {
		case "never":
			ui.DisableColors()
		case "always":
			ui.EnableColors()
		}
	}

	if cfg.Output.LogFile != "" && !cmd.IsSet("log-file") {
		opts := loggingOptions(cmd)
		opts.File = cfg.Output.LogFile
		logging.SetDefault(logging.New(opts))
	}
}

// runSync performs one run on the OS filesystem and prints its summary.
func runSync(ctx context.Context, cfg sync.Config, verbose, showProgress bool) error {
	var bar *progress.Bar
	if showProgress && !verbose {
		bar = progress.New(progress.DefaultOptions())
	}
	rep := newReporter(os.Stdout, verbose, bar)

	opts := []sync.Option{sync.WithEventHandler(rep.Handle)}
	if cfg.Policies.Asks() && stdinIsTerminal() {
		prompter := NewPrompter(os.Stdin, os.Stdout)
		if bar != nil {
			prompter.beforePrompt = func() { _ = bar.Clear() }
		}
		opts = append(opts, sync.WithDecider(prompter))
	}

	ctx = logging.NewContext(ctx, logging.With(slog.Bool("dry_run", cfg.DryRun)))
	summary, err := sync.New(cfg, fsio.NewOS(), opts...).Run(ctx)
	if bar != nil {
		_ = bar.Finish()
	}

	var fatal *sync.FatalError
	if errors.As(err, &fatal) && (fatal.Code == sync.CodeConfig || fatal.Code == sync.CodeInvalidPaths) {
		return err
	}

	fmt.Println(strings.TrimRight(ui.SummaryBox(summaryTitle(summary), summaryRows(summary)), "\n"))
	return err
}
