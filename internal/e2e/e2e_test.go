package e2e_test

import (
	"testing"
	"time"

	"github.com/klauern/treesync/internal/e2e"
)

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// seed writes a small source tree with distinct sizes and fixed times.
func seed(src *e2e.Fixture) {
	src.WriteFileAt("a.txt", "1", base)
	src.WriteFileAt("b.txt", "22", base.Add(time.Minute))
	src.WriteFileAt("docs/readme.md", "333", base.Add(2*time.Minute))
	src.WriteFileAt("docs/guide/intro.md", "4444", base.Add(3*time.Minute))
}

func TestVersionCommand(t *testing.T) {
	h := e2e.NewHarness(t)

	result := h.Run("version")

	e2e.AssertSuccess(t, result)
	e2e.AssertOutputContains(t, result, "treesync version")
}

func TestInitialSyncAndRerun(t *testing.T) {
	h := e2e.NewHarness(t)
	src, dst := h.SourceFixture(), h.TargetFixture()
	seed(src)

	result := h.Run("sync", "--yes", src.Root(), dst.Root())
	e2e.AssertSuccess(t, result)
	e2e.AssertOutputContains(t, result, "Sync complete")

	e2e.AssertTree(t, dst, "a.txt", "b.txt", "docs/", "docs/guide/", "docs/guide/intro.md", "docs/readme.md")
	e2e.AssertFileEquals(t, dst.Path("docs/guide/intro.md"), "4444")
	if got := dst.ModTime("b.txt"); !got.Equal(src.ModTime("b.txt")) {
		t.Errorf("b.txt time = %v, want %v", got, src.ModTime("b.txt"))
	}

	result = h.Run("--verbose", "sync", "--yes", src.Root(), dst.Root())
	e2e.AssertSuccess(t, result)
	e2e.AssertOutputNotContains(t, result, "+ copy")
	e2e.AssertOutputNotContains(t, result, "→ rename")
}

func TestRenameCycleUsesTemporaryName(t *testing.T) {
	h := e2e.NewHarness(t)
	src, dst := h.SourceFixture(), h.TargetFixture()
	seed(src)
	e2e.AssertSuccess(t, h.Run("sync", "-y", src.Root(), dst.Root()))

	// swap a.txt and b.txt in the source
	src.Rename("a.txt", "swap")
	src.Rename("b.txt", "a.txt")
	src.Rename("swap", "b.txt")

	// Without the name key the swapped files still pair up by size and time.
	result := h.Run("--verbose", "sync", "-y", "--match", "size,time", src.Root(), dst.Root())
	e2e.AssertSuccess(t, result)
	e2e.AssertOutputContains(t, result, ".sync (temporary)")
	e2e.AssertOutputNotContains(t, result, "+ copy")
	e2e.AssertOutputNotContains(t, result, "* overwrite")

	e2e.AssertFileEquals(t, dst.Path("a.txt"), "22")
	e2e.AssertFileEquals(t, dst.Path("b.txt"), "1")
	e2e.AssertTree(t, dst, "a.txt", "b.txt", "docs/", "docs/guide/", "docs/guide/intro.md", "docs/readme.md")
}

func TestOverwriteAndDelete(t *testing.T) {
	h := e2e.NewHarness(t)
	src, dst := h.SourceFixture(), h.TargetFixture()
	seed(src)
	e2e.AssertSuccess(t, h.Run("sync", "-y", src.Root(), dst.Root()))

	src.WriteFileAt("docs/readme.md", "changed content", base.Add(time.Hour))
	src.Remove("docs/guide")
	dst.WriteFile("extra.log", "left over")

	result := h.Run("--verbose", "sync", "-y", src.Root(), dst.Root())
	e2e.AssertSuccess(t, result)
	e2e.AssertOutputContains(t, result, "overwrite")
	e2e.AssertOutputContains(t, result, "- delete")

	e2e.AssertFileEquals(t, dst.Path("docs/readme.md"), "changed content")
	e2e.AssertTree(t, dst, "a.txt", "b.txt", "docs/", "docs/readme.md")
}

func TestPoliciesNever(t *testing.T) {
	h := e2e.NewHarness(t)
	src, dst := h.SourceFixture(), h.TargetFixture()
	seed(src)
	e2e.AssertSuccess(t, h.Run("sync", "-y", src.Root(), dst.Root()))

	dst.WriteFile("keep.me", "target only")
	src.WriteFileAt("a.txt", "9", base.Add(time.Hour))

	result := h.Run("sync", "-y", "--delete", "never", "--overwrite", "never", src.Root(), dst.Root())
	e2e.AssertSuccess(t, result)

	e2e.AssertFileExists(t, dst.Path("keep.me"))
	e2e.AssertFileEquals(t, dst.Path("a.txt"), "1")
}

func TestDryRunChangesNothing(t *testing.T) {
	h := e2e.NewHarness(t)
	src, dst := h.SourceFixture(), h.TargetFixture()
	seed(src)

	result := h.Run("sync", "-y", "--dry-run", src.Root(), dst.Root())
	e2e.AssertSuccess(t, result)
	e2e.AssertOutputContains(t, result, "Dry run - no changes made")
	e2e.AssertOutputContains(t, result, "[dry run] copy")

	e2e.AssertTree(t, dst)
}

func TestFiltersAndNonRecursive(t *testing.T) {
	h := e2e.NewHarness(t)
	src, dst := h.SourceFixture(), h.TargetFixture()
	seed(src)

	result := h.Run("sync", "-y", "--include", "*.md", src.Root(), dst.Root())
	e2e.AssertSuccess(t, result)
	e2e.AssertTree(t, dst, "docs/", "docs/guide/", "docs/guide/intro.md", "docs/readme.md")

	other := h.TempFixture()
	result = h.Run("sync", "-y", "--no-recursive", src.Root(), other.Root())
	e2e.AssertSuccess(t, result)
	e2e.AssertTree(t, other, "a.txt", "b.txt")
}

func TestSingleFile(t *testing.T) {
	h := e2e.NewHarness(t)
	src := h.SourceFixture()
	src.WriteFileAt("report.csv", "x,y\n", base)
	dst := h.TempFixture()

	result := h.Run("sync", "-y", src.Path("report.csv"), dst.Root())
	e2e.AssertSuccess(t, result)
	e2e.AssertFileEquals(t, dst.Path("report.csv"), "x,y\n")

	result = h.Run("sync", "-y", "--mode", "file", src.Path("report.csv"), dst.Path("renamed.csv"))
	e2e.AssertSuccess(t, result)
	e2e.AssertFileEquals(t, dst.Path("renamed.csv"), "x,y\n")
}

func TestConfigFileDrivesSync(t *testing.T) {
	h := e2e.NewHarness(t)
	src, dst := h.SourceFixture(), h.TargetFixture()
	seed(src)

	e2e.AssertSuccess(t, h.Run("config", "init"))
	e2e.AssertFileContains(t, h.ConfigPath(), "policy:")

	// the default config asks before deleting, which fails without a console
	result := h.RunWithStdin("", "sync", src.Root(), dst.Root())
	e2e.AssertExitCode(t, result, 2)
	e2e.AssertErrorContains(t, result, "ask")

	h.SetEnv("TREESYNC_POLICY_OVERWRITE", "always")
	h.SetEnv("TREESYNC_POLICY_DELETE", "always")
	h.SetEnv("TREESYNC_FILTER_EXCLUDE", "docs/guide/*")
	result = h.Run("sync", src.Root(), dst.Root())
	e2e.AssertSuccess(t, result)
	e2e.AssertTree(t, dst, "a.txt", "b.txt", "docs/", "docs/readme.md")
}

func TestInvalidInvocations(t *testing.T) {
	tests := map[string]struct {
		args     func(src, dst string) []string
		wantCode int
		wantErr  string
	}{
		"same directory": {
			args:     func(src, _ string) []string { return []string{"sync", "-y", src, src} },
			wantCode: 3,
		},
		"target below source": {
			args:     func(src, _ string) []string { return []string{"sync", "-y", src, src + "/docs"} },
			wantCode: 3,
		},
		"missing source": {
			args:     func(src, dst string) []string { return []string{"sync", "-y", src + "/nope", dst} },
			wantCode: 3,
		},
		"bad tolerance": {
			args:     func(src, dst string) []string { return []string{"sync", "-y", "--tolerance", "-1s", src, dst} },
			wantCode: 2,
			wantErr:  "tolerance",
		},
		"bad filter": {
			args:     func(src, dst string) []string { return []string{"sync", "-y", "--exclude", "regex:(", src, dst} },
			wantCode: 2,
			wantErr:  "source filter",
		},
		"file onto directory in dir mode": {
			args: func(src, dst string) []string {
				return []string{"sync", "-y", "--mode", "dir", src + "/a.txt", dst}
			},
			wantCode: 3,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			h := e2e.NewHarness(t)
			src, dst := h.SourceFixture(), h.TargetFixture()
			seed(src)

			result := h.Run(tt.args(src.Root(), dst.Root())...)
			e2e.AssertError(t, result)
			e2e.AssertExitCode(t, result, tt.wantCode)
			if tt.wantErr != "" {
				e2e.AssertErrorContains(t, result, tt.wantErr)
			}
		})
	}
}
