package e2e

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"
)

// Fixture provides helpers for creating and inspecting directory trees.
type Fixture struct {
	t       *testing.T
	baseDir string
}

// NewFixture creates a new fixture helper rooted at the given directory.
func NewFixture(t *testing.T, baseDir string) *Fixture {
	t.Helper()
	return &Fixture{
		t:       t,
		baseDir: baseDir,
	}
}

// Root returns the fixture base directory.
func (f *Fixture) Root() string {
	return f.baseDir
}

// WriteFile writes content to a file relative to the fixture base directory.
// It creates parent directories as needed.
func (f *Fixture) WriteFile(relPath, content string) string {
	f.t.Helper()
	fullPath := filepath.Join(f.baseDir, relPath)

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		f.t.Fatalf("failed to create directory %s: %v", dir, err)
	}

	if err := os.WriteFile(fullPath, []byte(content), 0o600); err != nil {
		f.t.Fatalf("failed to write file %s: %v", fullPath, err)
	}

	return fullPath
}

// WriteFileAt writes a file and sets its modification time.
func (f *Fixture) WriteFileAt(relPath, content string, mtime time.Time) string {
	f.t.Helper()
	fullPath := f.WriteFile(relPath, content)
	f.SetModTime(relPath, mtime)
	return fullPath
}

// SetModTime changes the modification time of an existing entry.
func (f *Fixture) SetModTime(relPath string, mtime time.Time) {
	f.t.Helper()
	if err := os.Chtimes(f.Path(relPath), mtime, mtime); err != nil {
		f.t.Fatalf("failed to set time of %s: %v", relPath, err)
	}
}

// ModTime returns the modification time of an entry.
func (f *Fixture) ModTime(relPath string) time.Time {
	f.t.Helper()
	info, err := os.Stat(f.Path(relPath))
	if err != nil {
		f.t.Fatalf("failed to stat %s: %v", relPath, err)
	}
	return info.ModTime()
}

// Rename moves an entry within the fixture.
func (f *Fixture) Rename(from, to string) {
	f.t.Helper()
	if err := os.Rename(f.Path(from), f.Path(to)); err != nil {
		f.t.Fatalf("failed to rename %s to %s: %v", from, to, err)
	}
}

// Remove deletes an entry and everything below it.
func (f *Fixture) Remove(relPath string) {
	f.t.Helper()
	if err := os.RemoveAll(f.Path(relPath)); err != nil {
		f.t.Fatalf("failed to remove %s: %v", relPath, err)
	}
}

// MkdirAll creates a directory and all parent directories relative to the base.
func (f *Fixture) MkdirAll(relPath string) string {
	f.t.Helper()
	fullPath := filepath.Join(f.baseDir, relPath)

	if err := os.MkdirAll(fullPath, 0o750); err != nil {
		f.t.Fatalf("failed to create directory %s: %v", fullPath, err)
	}

	return fullPath
}

// Path returns the full path for a relative path.
func (f *Fixture) Path(relPath string) string {
	return filepath.Join(f.baseDir, relPath)
}

// Exists returns true if the file or directory exists.
func (f *Fixture) Exists(relPath string) bool {
	f.t.Helper()
	_, err := os.Stat(f.Path(relPath))
	return err == nil
}

// ReadFile reads and returns the content of a file.
func (f *Fixture) ReadFile(relPath string) string {
	f.t.Helper()
	fullPath := filepath.Join(f.baseDir, relPath)

	// #nosec G304 - fullPath is constructed from trusted test fixture base and test-provided path
	data, err := os.ReadFile(fullPath)
	if err != nil {
		f.t.Fatalf("failed to read file %s: %v", fullPath, err)
	}

	return string(data)
}

// Tree returns the sorted slash-separated relative paths of every entry
// below the base directory. Directories end in "/".
func (f *Fixture) Tree() []string {
	f.t.Helper()
	var out []string
	if _, err := os.Stat(f.baseDir); os.IsNotExist(err) {
		return out
	}
	err := filepath.WalkDir(f.baseDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == f.baseDir {
			return nil
		}
		rel, err := filepath.Rel(f.baseDir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			rel += "/"
		}
		out = append(out, rel)
		return nil
	})
	if err != nil {
		f.t.Fatalf("failed to walk %s: %v", f.baseDir, err)
	}
	sort.Strings(out)
	return out
}

// SourceFixture returns a fixture for the source tree inside the harness home.
func (h *Harness) SourceFixture() *Fixture {
	h.t.Helper()
	dir := filepath.Join(h.homeDir, "source")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		h.t.Fatalf("failed to create source directory: %v", err)
	}
	return NewFixture(h.t, dir)
}

// TargetFixture returns a fixture for the target tree inside the harness
// home. The directory is not created, so a first sync creates it.
func (h *Harness) TargetFixture() *Fixture {
	h.t.Helper()
	return NewFixture(h.t, filepath.Join(h.homeDir, "target"))
}

// TempFixture creates a fixture helper for a new temporary directory.
func (h *Harness) TempFixture() *Fixture {
	h.t.Helper()

	tempDir := h.t.TempDir()
	return NewFixture(h.t, tempDir)
}
