// Package fsio provides the raw file operations the sync engine delegates to.
// The engine never touches the filesystem directly; it goes through Service so
// runs can be executed against the OS or an in-memory filesystem.
package fsio

import (
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/afero"

	"github.com/klauern/treesync/internal/logging"
)

const (
	// DirPerm is the permission used for created directories (rwxr-x---).
	DirPerm = 0o750
)

// Kind classifies a directory entry.
type Kind int

const (
	// KindFile is a regular file.
	KindFile Kind = iota
	// KindDir is a directory.
	KindDir
	// KindOther is anything else (symlink, device, socket, pipe).
	KindOther
)

// String returns a human-readable string for Kind.
func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDir:
		return "directory"
	default:
		return "other"
	}
}

// Entry is a metadata snapshot of one directory entry.
type Entry struct {
	Name    string
	Kind    Kind
	Size    int64
	ModTime time.Time
}

// IsDir reports whether the entry is a directory.
func (e Entry) IsDir() bool {
	return e.Kind == KindDir
}

// Service is the narrow I/O surface used by the sync engine.
type Service interface {
	// ListChildren returns the entries of dir sorted by name.
	ListChildren(dir string) ([]Entry, error)
	// Stat returns the entry for path without following a final symlink.
	// Missing paths yield an error satisfying errors.Is(err, fs.ErrNotExist).
	Stat(path string) (Entry, error)
	// StatFollow is Stat for the roots of a run: symlinks are followed.
	StatFollow(path string) (Entry, error)
	// ComputeCRC32 reads the whole file and returns its IEEE CRC-32.
	ComputeCRC32(path string) (uint32, error)
	// CopyFile copies src to dst, replacing dst, and preserves the modification time.
	CopyFile(src, dst string) error
	// Rename moves src to dst.
	Rename(src, dst string) error
	// Delete removes a file, or a directory with all its contents.
	Delete(path string) error
	// SetModTime sets the modification time of path.
	SetModTime(path string, t time.Time) error
	// MakeDir creates path and any missing parents.
	MakeDir(path string) error
}

// FS implements Service on top of an afero filesystem.
type FS struct {
	fs afero.Fs
}

// New creates a Service backed by the given afero filesystem.
func New(fsys afero.Fs) *FS {
	return &FS{fs: fsys}
}

// NewOS creates a Service backed by the operating system filesystem.
func NewOS() *FS {
	return New(afero.NewOsFs())
}

// NewInMemory creates a Service backed by an in-memory filesystem.
func NewInMemory() *FS {
	return New(afero.NewMemMapFs())
}

// Raw returns the underlying afero filesystem.
//
//nolint:ireturn // exposes the adapter target.
func (f *FS) Raw() afero.Fs {
	return f.fs
}

// ListChildren implements Service.ListChildren.
func (f *FS) ListChildren(dir string) ([]Entry, error) {
	infos, err := afero.ReadDir(f.fs, dir)
	if err != nil {
		return nil, fmt.Errorf("fsio: list %q: %w", dir, err)
	}
	entries := make([]Entry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, entryFromInfo(info))
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// Stat implements Service.Stat.
func (f *FS) Stat(path string) (Entry, error) {
	info, err := lstat(f.fs, path)
	if err != nil {
		return Entry{}, fmt.Errorf("fsio: stat %q: %w", path, err)
	}
	return entryFromInfo(info), nil
}

// StatFollow implements Service.StatFollow.
func (f *FS) StatFollow(path string) (Entry, error) {
	info, err := f.fs.Stat(path)
	if err != nil {
		return Entry{}, fmt.Errorf("fsio: stat %q: %w", path, err)
	}
	e := entryFromInfo(info)
	e.Name = filepath.Base(path)
	return e, nil
}

// ComputeCRC32 implements Service.ComputeCRC32.
func (f *FS) ComputeCRC32(path string) (uint32, error) {
	file, err := f.fs.Open(path)
	if err != nil {
		return 0, fmt.Errorf("fsio: open %q: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	h := crc32.NewIEEE()
	if _, err := io.Copy(h, file); err != nil {
		return 0, fmt.Errorf("fsio: read %q: %w", path, err)
	}
	return h.Sum32(), nil
}

// CopyFile implements Service.CopyFile.
func (f *FS) CopyFile(src, dst string) error {
	srcInfo, err := f.fs.Stat(src)
	if err != nil {
		return fmt.Errorf("fsio: stat source %q: %w", src, err)
	}

	srcFile, err := f.fs.Open(src)
	if err != nil {
		return fmt.Errorf("fsio: open source %q: %w", src, err)
	}
	defer func() { _ = srcFile.Close() }()

	dstFile, err := f.fs.OpenFile(dst, os.O_RDWR|os.O_CREATE|os.O_TRUNC, srcInfo.Mode().Perm())
	if err != nil {
		return fmt.Errorf("fsio: create destination %q: %w", dst, err)
	}

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		_ = dstFile.Close()
		return fmt.Errorf("fsio: copy content to %q: %w", dst, err)
	}
	if err := dstFile.Close(); err != nil {
		return fmt.Errorf("fsio: close destination %q: %w", dst, err)
	}

	mtime := srcInfo.ModTime()
	if err := f.fs.Chtimes(dst, mtime, mtime); err != nil {
		return fmt.Errorf("fsio: set time on %q: %w", dst, err)
	}

	logging.Debug("copied file", logging.Source(src), logging.Target(dst))
	return nil
}

// Rename implements Service.Rename.
func (f *FS) Rename(src, dst string) error {
	if err := f.fs.Rename(src, dst); err != nil {
		return fmt.Errorf("fsio: rename %q to %q: %w", src, dst, err)
	}
	return nil
}

// Delete implements Service.Delete.
func (f *FS) Delete(path string) error {
	info, err := lstat(f.fs, path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("fsio: stat %q: %w", path, err)
	}

	if info.IsDir() {
		if err := f.fs.RemoveAll(path); err != nil {
			return fmt.Errorf("fsio: remove directory %q: %w", path, err)
		}
		logging.Debug("removed directory", logging.Path(path))
		return nil
	}
	if err := f.fs.Remove(path); err != nil {
		return fmt.Errorf("fsio: remove %q: %w", path, err)
	}
	logging.Debug("removed file", logging.Path(path))
	return nil
}

// SetModTime implements Service.SetModTime.
func (f *FS) SetModTime(path string, t time.Time) error {
	if err := f.fs.Chtimes(path, t, t); err != nil {
		return fmt.Errorf("fsio: set time on %q: %w", path, err)
	}
	return nil
}

// MakeDir implements Service.MakeDir.
func (f *FS) MakeDir(path string) error {
	if err := f.fs.MkdirAll(path, DirPerm); err != nil {
		return fmt.Errorf("fsio: mkdir %q: %w", path, err)
	}
	return nil
}

// lstat uses Lstat where the filesystem supports it so symlinks are reported as such.
func lstat(fsys afero.Fs, path string) (os.FileInfo, error) {
	if l, ok := fsys.(afero.Lstater); ok {
		info, _, err := l.LstatIfPossible(path)
		return info, err
	}
	return fsys.Stat(path)
}

func entryFromInfo(info os.FileInfo) Entry {
	e := Entry{
		Name:    filepath.Base(info.Name()),
		ModTime: info.ModTime(),
	}
	switch {
	case info.IsDir():
		e.Kind = KindDir
	case info.Mode().IsRegular():
		e.Kind = KindFile
		e.Size = info.Size()
	default:
		e.Kind = KindOther
	}
	return e
}
