package e2e

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"testing"
)

// describe renders the result for failure messages.
func (r *Result) describe() string {
	return fmt.Sprintf("exit %d, error: %v\nstdout:\n%s", r.ExitCode, r.Err, r.Stdout)
}

// AssertSuccess fails the test if the command did not succeed.
func AssertSuccess(t *testing.T, r *Result) {
	t.Helper()
	if !r.Success() {
		t.Fatalf("expected success, got %s", r.describe())
	}
}

// AssertError fails the test if the command succeeded.
func AssertError(t *testing.T, r *Result) {
	t.Helper()
	if r.Success() {
		t.Fatalf("expected an error, got %s", r.describe())
	}
}

// AssertExitCode fails the test if the exit code doesn't match.
func AssertExitCode(t *testing.T, r *Result, want int) {
	t.Helper()
	if r.ExitCode != want {
		t.Errorf("expected exit code %d, got %s", want, r.describe())
	}
}

// AssertErrorContains fails the test unless the command failed with an
// error mentioning substr.
func AssertErrorContains(t *testing.T, r *Result, substr string) {
	t.Helper()
	AssertError(t, r)
	if !strings.Contains(r.Err.Error(), substr) {
		t.Errorf("expected error to contain %q, got %q", substr, r.Err)
	}
}

// AssertOutputContains fails the test if stdout doesn't contain substr.
func AssertOutputContains(t *testing.T, r *Result, substr string) {
	t.Helper()
	if !strings.Contains(r.Stdout, substr) {
		t.Errorf("expected output to contain %q, got %s", substr, r.describe())
	}
}

// AssertOutputNotContains fails the test if stdout contains substr.
func AssertOutputNotContains(t *testing.T, r *Result, substr string) {
	t.Helper()
	if strings.Contains(r.Stdout, substr) {
		t.Errorf("expected output without %q, got %s", substr, r.describe())
	}
}

// AssertFileExists fails the test if nothing exists at path.
func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected %s to exist: %v", path, err)
	}
}

// AssertFileEquals fails the test if the file content is not exactly want.
func AssertFileEquals(t *testing.T, path, want string) {
	t.Helper()
	if got := readFile(t, path); got != want {
		t.Errorf("content of %s = %q, want %q", path, got, want)
	}
}

// AssertFileContains fails the test if the file doesn't contain substr.
func AssertFileContains(t *testing.T, path, substr string) {
	t.Helper()
	if got := readFile(t, path); !strings.Contains(got, substr) {
		t.Errorf("expected %s to contain %q, got:\n%s", path, substr, got)
	}
}

// AssertTree fails the test if the fixture does not hold exactly the given entries.
func AssertTree(t *testing.T, f *Fixture, want ...string) {
	t.Helper()
	got := f.Tree()
	if !slices.Equal(got, want) {
		t.Errorf("tree of %s mismatch\nexpected: %q\ngot: %q", f.Root(), want, got)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	// #nosec G304 - path is provided by test code
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(data)
}
