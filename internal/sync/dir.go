package sync

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/klauern/treesync/internal/fsio"
	"github.com/klauern/treesync/internal/match"
	"github.com/klauern/treesync/internal/record"
	"github.com/klauern/treesync/internal/rename"
)

type frameKind int

const (
	// frameVisit synchronizes the contents of a directory pair.
	frameVisit frameKind = iota
	// frameFinishTime copies the source directory time once every
	// descendant has been processed.
	frameFinishTime
)

// frame is one entry of the traversal stack.
type frame struct {
	kind    frameKind
	source  string
	target  string
	rel     string // "/" separated path below the roots, "" for the roots
	include bool   // the directory passes the source filter
	modTime time.Time
	ready   bool // the target directory exists, or would in a dry run
}

// dirState is the working set of one visited directory pair.
type dirState struct {
	frame

	exists   bool
	srcFiles *record.List
	srcDirs  *record.List
	dstFiles *record.List
	dstDirs  *record.List

	// present holds the names currently taken in the target directory.
	present mapset.Set[string]
	// overwrites maps unmatched source files to the unmatched target file
	// holding the same name.
	overwrites map[int]int
	// moved maps renamed target paths to their current location.
	moved map[string]string
}

func newDirState(f frame) *dirState {
	return &dirState{
		frame:      f,
		srcFiles:   record.NewList(),
		srcDirs:    record.NewList(),
		dstFiles:   record.NewList(),
		dstDirs:    record.NewList(),
		present:    mapset.NewThreadUnsafeSet[string](),
		overwrites: make(map[int]int),
		moved:      make(map[string]string),
	}
}

// current returns where a target entry lives after this directory's renames.
func (d *dirState) current(p string) string {
	if m, ok := d.moved[p]; ok {
		return m
	}
	return p
}

// runDir walks the source tree depth first with an explicit stack. Each
// directory pushes a finishTime entry below its children so the directory
// time is copied after all of its contents have been written.
func (s *Syncer) runDir(ctx context.Context, target string) error {
	root, err := s.fs.StatFollow(s.cfg.Source)
	if err != nil {
		return fatalf(CodeInvalidPaths, err, "cannot access source %s", s.cfg.Source)
	}

	stack := []frame{{
		kind:    frameVisit,
		source:  s.cfg.Source,
		target:  target,
		include: true,
		modTime: root.ModTime,
	}}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.kind == frameFinishTime {
			if err := s.finishTime(ctx, f); err != nil {
				return err
			}
			continue
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		d, ok, err := s.visit(ctx, f)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		f.kind = frameFinishTime
		f.ready = d.exists
		stack = append(stack, f)

		if !s.cfg.Recursive {
			continue
		}
		children := s.children(d)
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
	return nil
}

// visit synchronizes the files of one directory pair. ok is false when the
// subtree is skipped.
func (s *Syncer) visit(ctx context.Context, f frame) (*dirState, bool, error) {
	s.emit(Event{Kind: EventVisit, Path: f.source, Target: f.target})
	d := newDirState(f)

	if ok := s.loadSource(d); !ok {
		return nil, false, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	ok, err := s.loadTarget(ctx, d)
	if err != nil || !ok {
		return nil, false, err
	}

	fileWork := true
	if a, b, clash := match.FindClash(d.srcFiles, s.cmp); clash {
		s.emit(Event{
			Kind:    EventClash,
			Path:    d.srcFiles.At(a).Path,
			Target:  d.srcFiles.At(b).Path,
			Message: fmt.Sprintf("files cannot be told apart by %s, skipping files in %s", s.cmp.Keys, f.source),
		})
		fileWork = false
	}

	if fileWork {
		if unique := match.Match(d.srcFiles, d.dstFiles, s.cmp); !unique {
			s.warn(f.source, "ambiguous matching, pairing is not unique", nil)
		}
		for _, r := range d.srcFiles.All() {
			if r.Matched() {
				s.emit(Event{Kind: EventMatch, Path: r.Path, Target: d.dstFiles.At(r.Match).Path})
			}
		}
		d.planOverwrites()
	}
	match.MatchDirs(d.srcDirs, d.dstDirs)

	if err := s.deleteUnmatched(ctx, d, fileWork); err != nil {
		return nil, false, err
	}
	if !fileWork {
		return d, true, nil
	}
	if err := s.renameMatched(ctx, d); err != nil {
		return nil, false, err
	}
	if err := s.copyUnmatched(ctx, d); err != nil {
		return nil, false, err
	}
	if err := s.syncFileTimes(ctx, d); err != nil {
		return nil, false, err
	}
	return d, true, nil
}

// loadSource lists the source directory. Files must pass the source filter;
// directories are always traversed.
func (s *Syncer) loadSource(d *dirState) bool {
	entries, err := s.fs.ListChildren(d.source)
	if err != nil {
		s.warn(d.source, "cannot list source directory", err)
		return false
	}

	for _, e := range entries {
		p := filepath.Join(d.source, e.Name)
		switch e.Kind {
		case fsio.KindDir:
			d.srcDirs.Add(record.New(p, e, nil))
		case fsio.KindFile:
			if !s.cfg.SourceFilter.Includes(path.Join(d.rel, e.Name)) {
				continue
			}
			d.srcFiles.Add(record.New(p, e, s.checksum))
		default:
			s.skip(p, "not a regular file or directory")
			continue
		}
		s.summary.Scanned++
	}
	return true
}

// loadTarget inspects the target directory. A missing directory is created
// now when it passes the source filter and on first write otherwise.
func (s *Syncer) loadTarget(ctx context.Context, d *dirState) (bool, error) {
	entry, err := s.stat(d.frame)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if d.include {
			return s.ensureDir(d), nil
		}
		return true, nil
	case err != nil:
		s.warn(d.target, "cannot access target directory", err)
		return false, nil
	case !entry.IsDir():
		s.skip(d.target, fmt.Sprintf("target is a %s, not a directory", entry.Kind))
		return false, nil
	}

	d.exists = true
	entries, err := s.fs.ListChildren(d.target)
	if err != nil {
		s.warn(d.target, "cannot list target directory", err)
		return false, nil
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	for _, e := range entries {
		d.present.Add(e.Name)
		p := filepath.Join(d.target, e.Name)
		switch e.Kind {
		case fsio.KindDir:
			d.dstDirs.Add(record.New(p, e, nil))
		case fsio.KindFile:
			if s.cfg.TargetFilter.Includes(path.Join(d.rel, e.Name)) {
				d.dstFiles.Add(record.New(p, e, s.checksum))
			}
		}
	}
	return true, nil
}

// ensureDir creates the target directory if it does not exist yet.
func (s *Syncer) ensureDir(d *dirState) bool {
	if d.exists {
		return true
	}
	if !s.cfg.DryRun {
		if err := s.fs.MakeDir(d.target); err != nil {
			s.warn(d.target, "cannot create directory", err)
			return false
		}
	}
	s.emit(Event{Kind: EventMakeDir, Path: d.target})
	d.exists = true
	return true
}

// planOverwrites pairs unmatched source files with the unmatched target file
// of the same name.
func (d *dirState) planOverwrites() {
	byName := make(map[string]int)
	for _, j := range d.dstFiles.Unmatched() {
		byName[d.dstFiles.At(j).Name] = j
	}
	for _, i := range d.srcFiles.Unmatched() {
		if j, ok := byName[d.srcFiles.At(i).Name]; ok {
			d.overwrites[i] = j
		}
	}
}

// deleteUnmatched removes target entries without a source counterpart,
// files before directories.
func (s *Syncer) deleteUnmatched(ctx context.Context, d *dirState, fileWork bool) error {
	if fileWork {
		reserved := mapset.NewThreadUnsafeSet[int]()
		for _, j := range d.overwrites {
			reserved.Add(j)
		}
		for _, j := range d.dstFiles.Unmatched() {
			if reserved.Contains(j) {
				continue
			}
			if err := s.deleteEntry(ctx, d, d.dstFiles.At(j)); err != nil {
				return err
			}
		}
	}

	for _, j := range d.dstDirs.Unmatched() {
		r := d.dstDirs.At(j)
		if !s.cfg.TargetFilter.Includes(path.Join(d.rel, r.BaseName()) + "/") {
			continue
		}
		if err := s.deleteEntry(ctx, d, r); err != nil {
			return err
		}
	}
	return nil
}

func (s *Syncer) deleteEntry(ctx context.Context, d *dirState, r *record.Record) error {
	ok, err := s.allow(ctx, Question{Op: OpDelete, Target: r.Path})
	if err != nil || !ok {
		return err
	}
	if !s.cfg.DryRun {
		if err := s.fs.Delete(r.Path); err != nil {
			s.warn(r.Path, "cannot delete", err)
			return ctx.Err()
		}
	}
	s.emit(Event{Kind: EventDelete, Path: r.Path})
	d.present.Remove(r.BaseName())
	return ctx.Err()
}

// renameMatched renames matched target files to the names of their sources.
// Renames whose target name is held by an entry that stays put are dropped
// before asking; the approved rest are sequenced.
func (s *Syncer) renameMatched(ctx context.Context, d *dirState) error {
	var wanted []rename.Pair
	for _, r := range d.srcFiles.All() {
		if !r.Matched() || r.SameName {
			continue
		}
		wanted = append(wanted, rename.Pair{Source: d.dstFiles.At(r.Match).Path, Target: filepath.Join(d.target, r.Name)})
	}
	if len(wanted) == 0 {
		return nil
	}
	wanted = s.pruneBlocked(d, wanted)

	approved := make([]rename.Pair, 0, len(wanted))
	for _, p := range wanted {
		ok, err := s.allow(ctx, Question{Op: OpRename, Source: p.Source, Target: p.Target})
		if err != nil {
			return err
		}
		if ok {
			approved = append(approved, p)
		}
	}
	if len(approved) < len(wanted) {
		// a declined rename keeps its name taken
		approved = s.pruneBlocked(d, approved)
	}
	if len(approved) == 0 {
		return nil
	}

	seq := rename.Sequencer{Exists: func(p string) bool {
		return d.present.Contains(filepath.Base(p)) || s.exists(p)
	}}
	ops, err := seq.Sequence(approved)
	if err != nil {
		return renameFatal(d.target, err)
	}

	// origin tracks which original target file sits at each path.
	origin := make(map[string]string, len(ops))
	for _, p := range approved {
		origin[p.Source] = p.Source
	}

	// temps holds temporary names still in use; cancellation waits until
	// every broken cycle is closed again.
	temps := mapset.NewThreadUnsafeSet[string]()
	for _, op := range ops {
		if !s.cfg.DryRun {
			if err := s.fs.Rename(op.Source, op.Target); err != nil {
				s.warn(op.Source, "cannot rename, skipping remaining renames in this directory", err)
				break
			}
		}
		s.emit(Event{Kind: EventRename, Path: op.Source, Target: op.Target, Temporary: op.Temporary})

		orig := origin[op.Source]
		delete(origin, op.Source)
		origin[op.Target] = orig
		d.present.Remove(filepath.Base(op.Source))
		d.present.Add(filepath.Base(op.Target))

		if op.Temporary {
			temps.Add(op.Target)
		}
		temps.Remove(op.Source)
		if temps.Cardinality() == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
	}

	for at, orig := range origin {
		d.moved[orig] = at
	}
	return ctx.Err()
}

// pruneBlocked drops renames whose target name is taken by an entry that is
// not itself being renamed away. Dropping one rename can block another, so
// the check repeats until nothing changes.
func (s *Syncer) pruneBlocked(d *dirState, pairs []rename.Pair) []rename.Pair {
	for {
		moving := mapset.NewThreadUnsafeSet[string]()
		for _, p := range pairs {
			moving.Add(filepath.Base(p.Source))
		}

		kept := make([]rename.Pair, 0, len(pairs))
		for _, p := range pairs {
			name := filepath.Base(p.Target)
			if d.present.Contains(name) && !moving.Contains(name) {
				s.warn(p.Source, fmt.Sprintf("cannot rename to %s, the name is taken", name), nil)
				continue
			}
			kept = append(kept, p)
		}

		if len(kept) == len(pairs) {
			return kept
		}
		pairs = kept
	}
}

// copyUnmatched copies source files without a match. A file whose name is
// held by an unmatched target file replaces it under the overwrite policy.
func (s *Syncer) copyUnmatched(ctx context.Context, d *dirState) error {
	for _, i := range d.srcFiles.Unmatched() {
		r := d.srcFiles.At(i)

		if j, ok := d.overwrites[i]; ok {
			dst := d.dstFiles.At(j).Path
			allowed, err := s.allow(ctx, Question{Op: OpOverwrite, Source: r.Path, Target: dst})
			if err != nil {
				return err
			}
			if !allowed {
				continue
			}
			if err := s.copyFile(r.Path, dst); err != nil {
				s.warn(r.Path, "cannot overwrite", err)
			} else {
				s.emit(Event{Kind: EventOverwrite, Path: r.Path, Target: dst, Size: r.Size})
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			continue
		}

		dst := filepath.Join(d.target, r.Name)
		if d.present.Contains(r.Name) {
			s.warn(dst, "cannot copy, the name is taken by an entry that was kept", nil)
			continue
		}
		if !s.ensureDir(d) {
			return nil
		}
		if err := s.copyFile(r.Path, dst); err != nil {
			s.warn(r.Path, "cannot copy", err)
		} else {
			s.emit(Event{Kind: EventCopy, Path: r.Path, Target: dst, Size: r.Size})
			d.present.Add(r.Name)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}

// syncFileTimes copies modification times onto matched files whose times differ.
func (s *Syncer) syncFileTimes(ctx context.Context, d *dirState) error {
	for _, r := range d.srcFiles.All() {
		if !r.Matched() || r.SameTime {
			continue
		}
		dst := d.current(d.dstFiles.At(r.Match).Path)
		if err := s.syncTime(ctx, r.Path, dst, r.ModTime); err != nil {
			return err
		}
	}
	return nil
}

// syncTime sets the modification time of dst to t, subject to the time
// sync policy.
func (s *Syncer) syncTime(ctx context.Context, src, dst string, t time.Time) error {
	ok, err := s.allow(ctx, Question{Op: OpTimeSync, Source: src, Target: dst})
	if err != nil || !ok {
		return err
	}
	if !s.cfg.DryRun {
		if err := s.fs.SetModTime(dst, t); err != nil {
			s.warn(dst, "cannot set modification time", err)
			return ctx.Err()
		}
	}
	s.emit(Event{Kind: EventTimeSync, Path: dst})
	return ctx.Err()
}

// finishTime copies the source directory time onto the target directory
// after its subtree is done.
func (s *Syncer) finishTime(ctx context.Context, f frame) error {
	if !f.include || !f.ready {
		return nil
	}
	entry, err := s.stat(f)
	switch {
	case err == nil && entry.ModTime.Equal(f.modTime):
		return nil
	case err != nil && !s.cfg.DryRun:
		s.warn(f.target, "cannot read directory time", err)
		return nil
	}
	return s.syncTime(ctx, f.source, f.target, f.modTime)
}

// stat looks up the target directory of f. The target root may be a
// symlink to a directory; below it links are not followed.
func (s *Syncer) stat(f frame) (fsio.Entry, error) {
	if f.rel == "" {
		return s.fs.StatFollow(f.target)
	}
	return s.fs.Stat(f.target)
}

// children returns the visit frames of the source subdirectories in name order.
func (s *Syncer) children(d *dirState) []frame {
	out := make([]frame, 0, d.srcDirs.Len())
	for _, r := range d.srcDirs.All() {
		name := r.BaseName()
		rel := path.Join(d.rel, name)
		out = append(out, frame{
			kind:    frameVisit,
			source:  r.Path,
			target:  filepath.Join(d.target, name),
			rel:     rel,
			include: s.cfg.SourceFilter.Includes(rel + "/"),
			modTime: r.ModTime,
		})
	}
	return out
}
