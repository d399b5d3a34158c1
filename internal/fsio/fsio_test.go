package fsio

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/klauern/treesync/internal/util"
)

var stamp = time.Date(2023, 6, 1, 8, 30, 0, 0, time.UTC)

func TestKind_String(t *testing.T) {
	tests := map[Kind]string{
		KindFile:  "file",
		KindDir:   "directory",
		KindOther: "other",
	}
	for k, want := range tests {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", int(k), got, want)
		}
	}
}

func TestListChildren(t *testing.T) {
	svc := NewInMemory()
	mem := svc.Raw()
	util.WriteFileAt(t, mem, "/root/b.txt", "bb", stamp)
	util.WriteFileAt(t, mem, "/root/a.txt", "a", stamp)
	util.MkdirAt(t, mem, "/root/c", stamp)

	entries, err := svc.ListChildren("/root")
	util.AssertNoError(t, err)

	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	want := []struct {
		name string
		kind Kind
		size int64
	}{
		{"a.txt", KindFile, 1},
		{"b.txt", KindFile, 2},
		{"c", KindDir, 0},
	}
	for i, w := range want {
		e := entries[i]
		if e.Name != w.name || e.Kind != w.kind || e.Size != w.size {
			t.Errorf("entry %d = %+v, want name=%s kind=%s size=%d", i, e, w.name, w.kind, w.size)
		}
		if !e.ModTime.Equal(stamp) {
			t.Errorf("entry %s time = %v, want %v", e.Name, e.ModTime, stamp)
		}
	}
}

func TestListChildren_Missing(t *testing.T) {
	if _, err := NewInMemory().ListChildren("/nope"); err == nil {
		t.Error("ListChildren() on a missing directory should fail")
	}
}

func TestStat(t *testing.T) {
	svc := NewInMemory()
	util.WriteFileAt(t, svc.Raw(), "/d/f", "data", stamp)

	e, err := svc.Stat("/d/f")
	util.AssertNoError(t, err)
	util.AssertEqual(t, e.Kind, KindFile)
	util.AssertEqual(t, e.Size, int64(4))
	util.AssertEqual(t, e.IsDir(), false)

	d, err := svc.Stat("/d")
	util.AssertNoError(t, err)
	util.AssertEqual(t, d.IsDir(), true)

	_, err = svc.Stat("/d/missing")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Stat() on missing path error = %v, want fs.ErrNotExist", err)
	}
}

func TestComputeCRC32(t *testing.T) {
	svc := NewInMemory()
	util.WriteFileAt(t, svc.Raw(), "/hello", "hello", stamp)
	util.WriteFileAt(t, svc.Raw(), "/empty", "", stamp)

	crc, err := svc.ComputeCRC32("/hello")
	util.AssertNoError(t, err)
	util.AssertEqual(t, crc, uint32(0x3610a686))

	crc, err = svc.ComputeCRC32("/empty")
	util.AssertNoError(t, err)
	util.AssertEqual(t, crc, uint32(0))

	if _, err := svc.ComputeCRC32("/missing"); err == nil {
		t.Error("ComputeCRC32() on a missing file should fail")
	}
}

func TestCopyFile(t *testing.T) {
	svc := NewInMemory()
	mem := svc.Raw()
	util.WriteFileAt(t, mem, "/src/f", "short", stamp)
	util.WriteFileAt(t, mem, "/dst/f", "a much longer old content", stamp.Add(time.Hour))

	util.AssertNoError(t, svc.CopyFile("/src/f", "/dst/f"))

	util.AssertEqual(t, util.ReadFile(t, mem, "/dst/f"), "short")
	info, err := mem.Stat("/dst/f")
	util.AssertNoError(t, err)
	if !info.ModTime().Equal(stamp) {
		t.Errorf("copied time = %v, want %v", info.ModTime(), stamp)
	}

	if err := svc.CopyFile("/src/missing", "/dst/x"); err == nil {
		t.Error("CopyFile() from a missing source should fail")
	}
}

func TestRename(t *testing.T) {
	svc := NewInMemory()
	mem := svc.Raw()
	util.WriteFileAt(t, mem, "/d/a", "A", stamp)

	util.AssertNoError(t, svc.Rename("/d/a", "/d/b"))

	util.AssertEqual(t, util.ReadFile(t, mem, "/d/b"), "A")
	if _, err := mem.Stat("/d/a"); !os.IsNotExist(err) {
		t.Errorf("old name still present: %v", err)
	}
}

func TestDelete(t *testing.T) {
	svc := NewInMemory()
	mem := svc.Raw()
	util.WriteFileAt(t, mem, "/d/file", "x", stamp)
	util.WriteFileAt(t, mem, "/d/tree/nested/deep", "y", stamp)

	tests := []string{"/d/file", "/d/tree", "/d/never-existed"}
	for _, p := range tests {
		t.Run(filepath.Base(p), func(t *testing.T) {
			util.AssertNoError(t, svc.Delete(p))
			if ok, _ := afero.Exists(mem, p); ok {
				t.Errorf("%s still exists", p)
			}
		})
	}
}

func TestSetModTimeAndMakeDir(t *testing.T) {
	svc := NewInMemory()
	mem := svc.Raw()

	util.AssertNoError(t, svc.MakeDir("/a/b/c"))
	ok, err := afero.DirExists(mem, "/a/b/c")
	util.AssertNoError(t, err)
	util.AssertEqual(t, ok, true)

	util.AssertNoError(t, svc.SetModTime("/a/b", stamp))
	e, err := svc.Stat("/a/b")
	util.AssertNoError(t, err)
	if !e.ModTime.Equal(stamp) {
		t.Errorf("time = %v, want %v", e.ModTime, stamp)
	}
}

func TestStat_SymlinkIsOther(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "real.txt")
	util.WriteFile(t, target, "real")
	link := filepath.Join(dir, "link.txt")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	svc := NewOS()
	e, err := svc.Stat(link)
	util.AssertNoError(t, err)
	util.AssertEqual(t, e.Kind, KindOther)

	entries, err := svc.ListChildren(dir)
	util.AssertNoError(t, err)
	kinds := map[string]Kind{}
	for _, e := range entries {
		kinds[e.Name] = e.Kind
	}
	util.AssertEqual(t, kinds["real.txt"], KindFile)
	util.AssertEqual(t, kinds["link.txt"], KindOther)
}

func TestStatFollow_SymlinkedDir(t *testing.T) {
	dir := t.TempDir()
	realDir := filepath.Join(dir, "real")
	util.WriteFile(t, filepath.Join(realDir, "a.txt"), "a")
	link := filepath.Join(dir, "link")
	if err := os.Symlink(realDir, link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	svc := NewOS()
	e, err := svc.StatFollow(link)
	util.AssertNoError(t, err)
	util.AssertEqual(t, e.Kind, KindDir)
	util.AssertEqual(t, e.Name, "link")

	e, err = svc.Stat(link)
	util.AssertNoError(t, err)
	util.AssertEqual(t, e.Kind, KindOther)

	if _, err := svc.StatFollow(filepath.Join(dir, "missing")); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("StatFollow() on missing path error = %v, want fs.ErrNotExist", err)
	}
}
