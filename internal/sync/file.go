package sync

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/klauern/treesync/internal/fsio"
	"github.com/klauern/treesync/internal/match"
	"github.com/klauern/treesync/internal/record"
)

// runFile syncs a single file. Filters do not apply.
//
// A missing target is copied. A target that differs under the configured
// keys (name excluded) is overwritten. A matching target is renamed to the
// source name if needed and gets the source modification time.
func (s *Syncer) runFile(ctx context.Context, target string) error {
	srcEntry, err := s.fs.StatFollow(s.cfg.Source)
	if err != nil {
		return fatalf(CodeInvalidPaths, err, "cannot access source %s", s.cfg.Source)
	}
	s.summary.Scanned++
	src := record.New(s.cfg.Source, srcEntry, s.checksum)

	dstEntry, err := s.fs.Stat(target)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return s.copyNewFile(ctx, src, target)
	case err != nil:
		s.warn(target, "cannot access target", err)
		return nil
	case dstEntry.Kind != fsio.KindFile:
		s.skip(target, fmt.Sprintf("target is a %s, not a file", dstEntry.Kind))
		return nil
	}
	dst := record.New(target, dstEntry, s.checksum)

	cmp := s.cmp
	cmp.Keys.Name = false
	match.Match(record.NewList(src), record.NewList(dst), cmp)

	if !src.Matched() {
		ok, err := s.allow(ctx, Question{Op: OpOverwrite, Source: src.Path, Target: target})
		if err != nil || !ok {
			return err
		}
		if err := s.copyFile(src.Path, target); err != nil {
			s.warn(src.Path, "cannot overwrite", err)
			return ctx.Err()
		}
		s.emit(Event{Kind: EventOverwrite, Path: src.Path, Target: target, Size: src.Size})
		return ctx.Err()
	}

	s.emit(Event{Kind: EventMatch, Path: src.Path, Target: target})
	current := target

	if !src.SameName {
		want := filepath.Join(filepath.Dir(target), src.Name)
		renamed, err := s.renameFile(ctx, target, want)
		if err != nil {
			return err
		}
		if renamed {
			current = want
		}
	}

	if !src.SameTime {
		return s.syncTime(ctx, src.Path, current, src.ModTime)
	}
	return nil
}

// copyNewFile copies src to a target path that does not exist yet, creating
// the parent directory if necessary.
func (s *Syncer) copyNewFile(ctx context.Context, src *record.Record, target string) error {
	parent := filepath.Dir(target)
	if _, err := s.fs.Stat(parent); errors.Is(err, fs.ErrNotExist) {
		if !s.cfg.DryRun {
			if err := s.fs.MakeDir(parent); err != nil {
				s.warn(parent, "cannot create directory", err)
				return nil
			}
		}
		s.emit(Event{Kind: EventMakeDir, Path: parent})
	}

	if err := s.copyFile(src.Path, target); err != nil {
		s.warn(src.Path, "cannot copy", err)
		return ctx.Err()
	}
	s.emit(Event{Kind: EventCopy, Path: src.Path, Target: target, Size: src.Size})
	return ctx.Err()
}

// renameFile renames from to to, subject to the rename policy. A taken
// target name is reported and left alone.
func (s *Syncer) renameFile(ctx context.Context, from, to string) (bool, error) {
	if s.exists(to) {
		s.warn(from, fmt.Sprintf("cannot rename to %s, the name is taken", filepath.Base(to)), nil)
		return false, nil
	}
	ok, err := s.allow(ctx, Question{Op: OpRename, Source: from, Target: to})
	if err != nil || !ok {
		return false, err
	}
	if !s.cfg.DryRun {
		if err := s.fs.Rename(from, to); err != nil {
			s.warn(from, "cannot rename", err)
			return false, ctx.Err()
		}
	}
	s.emit(Event{Kind: EventRename, Path: from, Target: to})
	return true, ctx.Err()
}
