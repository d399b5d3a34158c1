package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauern/treesync/internal/logging"
	"github.com/klauern/treesync/internal/sync"
	"github.com/klauern/treesync/internal/util"
)

// runCaptured runs the CLI with args and returns what it printed to stdout.
func runCaptured(t *testing.T, args ...string) (string, error) {
	t.Helper()

	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	outC := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		outC <- buf.String()
	}()

	err := Run(context.Background(), append([]string{"treesync", "--no-color"}, args...))

	if err := w.Close(); err != nil {
		t.Fatalf("failed to close pipe writer: %v", err)
	}
	os.Stdout = old
	return <-outC, err
}

func TestVersionVariables(t *testing.T) {
	// Version should be set (even if to "dev")
	if Version == "" {
		t.Error("Version should not be empty")
	}

	// Commit and BuildDate should have defaults
	if Commit == "" {
		t.Error("Commit should not be empty")
	}
	if BuildDate == "" {
		t.Error("BuildDate should not be empty")
	}
}

func TestConfigureLogging(t *testing.T) {
	tests := map[string]struct {
		args      []string
		wantDebug bool
		wantInfo  bool
	}{
		"no flags only logs warnings": {
			args: []string{"treesync", "version"},
		},
		"verbose flag enables info level": {
			args:     []string{"treesync", "--verbose", "version"},
			wantInfo: true,
		},
		"debug flag enables debug level": {
			args:      []string{"treesync", "--debug", "version"},
			wantDebug: true,
			wantInfo:  true,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			// Capture stderr (where logs go)
			oldStderr := os.Stderr
			r, w, _ := os.Pipe()
			os.Stderr = w

			oldStdout := os.Stdout
			stdoutR, stdoutW, _ := os.Pipe()
			os.Stdout = stdoutW

			logging.SetDefault(logging.New(logging.DefaultOptions()))

			err := Run(context.Background(), tt.args)

			if err := w.Close(); err != nil {
				t.Fatalf("failed to close pipe writer: %v", err)
			}
			os.Stderr = oldStderr
			if err := stdoutW.Close(); err != nil {
				t.Fatalf("failed to close stdout pipe writer: %v", err)
			}
			os.Stdout = oldStdout

			// Drain pipes to prevent test hangs
			_, _ = io.Copy(io.Discard, r)
			_ = r.Close()
			_, _ = io.Copy(io.Discard, stdoutR)
			_ = stdoutR.Close()

			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}

			logger := slog.Default()
			if got := logger.Enabled(context.Background(), slog.LevelDebug); got != tt.wantDebug {
				t.Errorf("debug enabled = %v, want %v", got, tt.wantDebug)
			}
			if got := logger.Enabled(context.Background(), slog.LevelInfo); got != tt.wantInfo {
				t.Errorf("info enabled = %v, want %v", got, tt.wantInfo)
			}
		})
	}
	logging.SetDefault(logging.New(logging.DefaultOptions()))
}

// syncFixture creates a source tree and an empty target location.
func syncFixture(t *testing.T) (src, dst string) {
	t.Helper()
	root := t.TempDir()
	src = filepath.Join(root, "src")
	dst = filepath.Join(root, "dst")
	util.WriteFile(t, filepath.Join(src, "a.txt"), "alpha")
	util.WriteFile(t, filepath.Join(src, "docs", "b.md"), "bravo")
	util.WriteFile(t, filepath.Join(src, "tmp", "c.log"), "charlie")
	return src, dst
}

func TestSyncCommand(t *testing.T) {
	tests := map[string]struct {
		args      func(src, dst string) []string
		wantCode  int
		wantOut   []string
		wantFiles []string
		noFiles   []string
	}{
		"copies tree with yes": {
			args:      func(src, dst string) []string { return []string{"sync", "--yes", src, dst} },
			wantOut:   []string{"Sync complete", "Copied", "3"},
			wantFiles: []string{"a.txt", "docs/b.md", "tmp/c.log"},
		},
		"dry run leaves target alone": {
			args:    func(src, dst string) []string { return []string{"sync", "-y", "--dry-run", src, dst} },
			wantOut: []string{"Dry run - no changes made", "[dry run] copy"},
			noFiles: []string{"a.txt"},
		},
		"verbose lists operations": {
			args:      func(src, dst string) []string { return []string{"--verbose", "sync", "-y", src, dst} },
			wantOut:   []string{"+ copy ", "a.txt -> "},
			wantFiles: []string{"a.txt"},
		},
		"exclude pattern": {
			args:      func(src, dst string) []string { return []string{"sync", "-y", "--exclude", "*.log", src, dst} },
			wantFiles: []string{"a.txt", "docs/b.md"},
			noFiles:   []string{"tmp/c.log"},
		},
		"non recursive": {
			args:      func(src, dst string) []string { return []string{"sync", "-y", "--no-recursive", src, dst} },
			wantFiles: []string{"a.txt"},
			noFiles:   []string{"docs/b.md"},
		},
		"missing target argument": {
			args:     func(src, _ string) []string { return []string{"sync", src} },
			wantCode: 1,
		},
		"too many arguments": {
			args:     func(src, dst string) []string { return []string{"sync", src, dst, dst} },
			wantCode: 1,
		},
		"invalid policy": {
			args:     func(src, dst string) []string { return []string{"sync", "--delete", "sometimes", src, dst} },
			wantCode: int(sync.CodeConfig),
		},
		"invalid match keys": {
			args:     func(src, dst string) []string { return []string{"sync", "-y", "--match", "colour", src, dst} },
			wantCode: int(sync.CodeConfig),
		},
		"ask policy without a console": {
			args:     func(src, dst string) []string { return []string{"sync", src, dst} },
			wantCode: int(sync.CodeConfig),
			noFiles:  []string{"a.txt"},
		},
		"missing source": {
			args:     func(src, dst string) []string { return []string{"sync", "-y", src + "-missing", dst} },
			wantCode: int(sync.CodeInvalidPaths),
		},
		"target inside source": {
			args:     func(src, _ string) []string { return []string{"sync", "-y", src, filepath.Join(src, "docs")} },
			wantCode: int(sync.CodeInvalidPaths),
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			src, dst := syncFixture(t)
			output, err := runCaptured(t, tt.args(src, dst)...)

			if got := sync.ExitCode(err); got != tt.wantCode {
				t.Fatalf("exit code = %d (error %v), want %d", got, err, tt.wantCode)
			}
			for _, want := range tt.wantOut {
				if !strings.Contains(output, want) {
					t.Errorf("output = %q, want substring %q", output, want)
				}
			}
			for _, f := range tt.wantFiles {
				if _, err := os.Stat(filepath.Join(dst, f)); err != nil {
					t.Errorf("expected %s in target: %v", f, err)
				}
			}
			for _, f := range tt.noFiles {
				if _, err := os.Stat(filepath.Join(dst, f)); err == nil {
					t.Errorf("%s should not exist in target", f)
				}
			}
		})
	}
}

func TestSyncCommand_SecondRunIsNoop(t *testing.T) {
	src, dst := syncFixture(t)
	if _, err := runCaptured(t, "sync", "-y", src, dst); err != nil {
		t.Fatalf("first run: %v", err)
	}

	output, err := runCaptured(t, "--verbose", "sync", "-y", src, dst)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	for _, unwanted := range []string{"copy ", "rename ", "delete "} {
		if strings.Contains(output, unwanted) {
			t.Errorf("second run output %q should not contain %q", output, unwanted)
		}
	}
}

func TestSyncCommand_RenameAndDelete(t *testing.T) {
	src, dst := syncFixture(t)
	if _, err := runCaptured(t, "sync", "-y", src, dst); err != nil {
		t.Fatalf("first run: %v", err)
	}

	if err := os.Rename(filepath.Join(src, "a.txt"), filepath.Join(src, "renamed.txt")); err != nil {
		t.Fatal(err)
	}
	if err := os.RemoveAll(filepath.Join(src, "tmp")); err != nil {
		t.Fatal(err)
	}

	output, err := runCaptured(t, "--verbose", "sync", "-y", src, dst)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if !strings.Contains(output, "rename ") {
		t.Errorf("output %q should report a rename", output)
	}
	if _, err := os.Stat(filepath.Join(dst, "renamed.txt")); err != nil {
		t.Errorf("renamed.txt missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dst, "tmp")); err == nil {
		t.Error("tmp should be deleted from the target")
	}
}

func TestSyncCommand_FileMode(t *testing.T) {
	src, dst := syncFixture(t)
	if err := os.MkdirAll(dst, 0o750); err != nil {
		t.Fatal(err)
	}

	_, err := runCaptured(t, "sync", "-y", filepath.Join(src, "a.txt"), dst)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dst, "a.txt"))
	if err != nil {
		t.Fatalf("a.txt missing: %v", err)
	}
	if string(data) != "alpha" {
		t.Errorf("content = %q, want alpha", data)
	}
}

func TestSyncCommand_ConfigFile(t *testing.T) {
	src, dst := syncFixture(t)
	cfgPath := filepath.Join(t.TempDir(), "treesync.toml")
	util.WriteFile(t, cfgPath, `
[sync]
mode = "dir"
recursive = true

[policy]
rename = "always"
timesync = "always"
overwrite = "always"
delete = "always"

[filter]
exclude = ["*.log"]
by = "name"
`)

	if _, err := runCaptured(t, "sync", "--config", cfgPath, src, dst); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dst, "tmp", "c.log")); err == nil {
		t.Error("c.log should be excluded by the config file")
	}
	if _, err := os.Stat(filepath.Join(dst, "docs", "b.md")); err != nil {
		t.Errorf("b.md missing: %v", err)
	}
}

func TestConfigCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	output, err := runCaptured(t, "config", "init", "--config", path)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(output, "Wrote "+path) {
		t.Errorf("init output = %q", output)
	}

	if _, err := runCaptured(t, "config", "init", "--config", path); err == nil {
		t.Error("config init should refuse to overwrite without --force")
	}
	if _, err := runCaptured(t, "config", "init", "--force", "--config", path); err != nil {
		t.Errorf("config init --force: %v", err)
	}

	output, err = runCaptured(t, "config", "show", "--config", path)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	for _, want := range []string{"sync:", "mode: auto", "overwrite: ask"} {
		if !strings.Contains(output, want) {
			t.Errorf("show output missing %q:\n%s", want, output)
		}
	}

	output, err = runCaptured(t, "config", "show", "--format", "toml", "--config", path)
	if err != nil {
		t.Fatalf("config show --format toml: %v", err)
	}
	if !strings.Contains(output, "[policy]") {
		t.Errorf("toml output missing [policy]:\n%s", output)
	}

	if _, err := runCaptured(t, "config", "show", "--format", "json"); err == nil {
		t.Error("config show should reject unknown formats")
	}

	output, err = runCaptured(t, "config", "path")
	if err != nil {
		t.Fatalf("config path: %v", err)
	}
	if !strings.HasSuffix(strings.TrimSpace(output), filepath.Join(".treesync", "config.yaml")) {
		t.Errorf("config path = %q", output)
	}
}
