// Package e2e provides testing infrastructure for end-to-end CLI tests.
// It includes a harness for running CLI commands, fixture management for
// source and target trees, and assertions on output and files.
package e2e

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauern/treesync/internal/cli"
	"github.com/klauern/treesync/internal/sync"
)

// Result contains the outcome of running a CLI command.
type Result struct {
	// Stdout contains the captured standard output.
	Stdout string
	// Err is the error returned by the CLI command, if any.
	Err error
	// ExitCode is the status the treesync binary would exit with.
	ExitCode int
}

// Success returns true if the command completed without error.
func (r *Result) Success() bool {
	return r.Err == nil
}

// Harness provides a test harness for running E2E CLI tests.
// It manages environment isolation, temp directories, and output capture.
type Harness struct {
	t       *testing.T
	homeDir string
	env     map[string]string
}

// NewHarness creates a new E2E test harness with an isolated TREESYNC_HOME.
func NewHarness(t *testing.T) *Harness {
	t.Helper()

	homeDir := t.TempDir()

	h := &Harness{
		t:       t,
		homeDir: homeDir,
		env:     make(map[string]string),
	}

	h.SetEnv("TREESYNC_HOME", filepath.Join(homeDir, ".treesync"))

	return h
}

// SetEnv sets an environment variable for CLI commands run through this harness.
// The environment will be restored after the test completes.
func (h *Harness) SetEnv(key, value string) {
	h.t.Helper()
	h.env[key] = value
	h.t.Setenv(key, value)
}

// HomeDir returns the isolated home directory for this test harness.
func (h *Harness) HomeDir() string {
	return h.homeDir
}

// ConfigPath returns the default config file location inside the harness home.
func (h *Harness) ConfigPath() string {
	return filepath.Join(h.env["TREESYNC_HOME"], "config.yaml")
}

// Run executes a CLI command with the given arguments and captures the output.
// Colors are always disabled so output can be compared as plain text.
func (h *Harness) Run(args ...string) *Result {
	h.t.Helper()
	return h.run(args)
}

// RunWithStdin executes a CLI command with stdin input and captures output.
func (h *Harness) RunWithStdin(stdin string, args ...string) *Result {
	h.t.Helper()

	oldStdin := os.Stdin
	stdinR, stdinW, err := os.Pipe()
	if err != nil {
		h.t.Fatalf("failed to create stdin pipe: %v", err)
	}
	go func() {
		defer func() {
			_ = stdinW.Close()
		}()
		_, _ = stdinW.WriteString(stdin)
	}()
	os.Stdin = stdinR
	defer func() {
		os.Stdin = oldStdin
		_ = stdinR.Close()
	}()

	return h.run(args)
}

func (h *Harness) run(args []string) *Result {
	h.t.Helper()

	if len(args) == 0 || args[0] != "treesync" {
		args = append([]string{"treesync"}, args...)
	}
	args = append([]string{args[0], "--no-color"}, args[1:]...)

	oldStdout := os.Stdout
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		h.t.Fatalf("failed to create stdout pipe: %v", err)
	}
	os.Stdout = stdoutW

	// Read stdout concurrently; a sync that prints more than the pipe
	// buffer would otherwise block.
	var stdoutBuf bytes.Buffer
	var copyErr error
	copyDone := make(chan struct{})
	go func() {
		defer close(copyDone)
		_, copyErr = io.Copy(&stdoutBuf, stdoutR)
	}()

	cmdErr := cli.Run(context.Background(), args)

	if err := stdoutW.Close(); err != nil {
		h.t.Fatalf("failed to close stdout pipe writer: %v", err)
	}
	os.Stdout = oldStdout

	<-copyDone
	if copyErr != nil {
		h.t.Fatalf("failed to read captured stdout: %v", copyErr)
	}

	return &Result{
		Stdout:   stdoutBuf.String(),
		Err:      cmdErr,
		ExitCode: sync.ExitCode(cmdErr),
	}
}
