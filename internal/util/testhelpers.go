//nolint:revive // var-naming - package name is meaningful
package util

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
)

// CreateTempDir creates a temporary directory for testing
func CreateTempDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "treesync-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() {
		_ = os.RemoveAll(dir)
	})
	return dir
}

// WriteFile writes content to a file in the test directory
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
}

// WriteFileAt writes content to path on fsys, creating parents, and sets its
// modification time.
func WriteFileAt(t *testing.T, fsys afero.Fs, path, content string, mtime time.Time) {
	t.Helper()
	if err := fsys.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	if err := afero.WriteFile(fsys, path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	if err := fsys.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("failed to set file time: %v", err)
	}
}

// MkdirAt creates a directory on fsys and sets its modification time.
func MkdirAt(t *testing.T, fsys afero.Fs, path string, mtime time.Time) {
	t.Helper()
	if err := fsys.MkdirAll(path, 0o750); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	if err := fsys.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("failed to set directory time: %v", err)
	}
}

// ReadFile returns the content of path on fsys.
func ReadFile(t *testing.T, fsys afero.Fs, path string) string {
	t.Helper()
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(data)
}

// AssertNoError fails the test if err is not nil
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertEqual fails if got != want
func AssertEqual[T comparable](t *testing.T, got, want T) {
	t.Helper()
	if got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}
