package sync

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/klauern/treesync/internal/fsio"
	"github.com/klauern/treesync/internal/logging"
	"github.com/klauern/treesync/internal/match"
	"github.com/klauern/treesync/internal/validation"
)

// Syncer runs one-way synchronizations from a source to a target.
type Syncer struct {
	cfg     Config
	fs      fsio.Service
	decider Decider
	handler EventHandler

	// per run
	log     *slog.Logger
	cmp     match.Comparator
	policy  *resolver
	summary *Summary
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithDecider sets the Decider consulted for PolicyAsk operations.
func WithDecider(d Decider) Option {
	return func(s *Syncer) { s.decider = d }
}

// WithEventHandler sets the receiver of the event stream.
func WithEventHandler(h EventHandler) Option {
	return func(s *Syncer) { s.handler = h }
}

// New creates a Syncer for cfg performing I/O through fsys.
func New(cfg Config, fsys fsio.Service, opts ...Option) *Syncer {
	s := &Syncer{cfg: cfg, fs: fsys}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the configuration of the syncer.
func (s *Syncer) Config() Config {
	return s.cfg
}

// Run performs the synchronization and returns its counters. Log records
// go to the logger carried by ctx, if any.
//
// Per-entry failures are reported as warning events and do not stop the
// run. A *FatalError is returned for invalid configuration or paths and
// for rename ordering failures; ctx.Err() is returned when ctx is cancelled
// and ErrQuit when the Decider answers AnswerQuit. The summary is valid in
// every case and reflects the work done up to that point.
func (s *Syncer) Run(ctx context.Context) (*Summary, error) {
	defer logging.Timer("sync")()
	start := time.Now()

	s.log = logging.WithContext(ctx)

	s.summary = &Summary{DryRun: s.cfg.DryRun}
	s.cmp = s.cfg.Comparator()
	s.policy = newResolver(s.cfg.Policies, s.decider)

	err := s.run(ctx)
	s.summary.Duration = time.Since(start)

	if err != nil {
		s.log.Debug("sync stopped",
			logging.Source(s.cfg.Source),
			logging.Target(s.cfg.Target),
			logging.Err(err),
		)
	}
	return s.summary, err
}

func (s *Syncer) run(ctx context.Context) error {
	if err := s.cfg.Validate(); err != nil {
		return fatalf(CodeConfig, err, "invalid configuration")
	}
	if s.decider == nil && s.cfg.Policies.Asks() {
		return fatalf(CodeConfig, nil, "a policy is set to %q but no decision provider is available", PolicyAsk)
	}

	mode, target, err := s.resolve()
	if err != nil {
		return err
	}

	expect := validation.ExpectDir
	if mode == ModeFile {
		expect = validation.ExpectFile
	}
	checked, err := validation.ValidateSourceTarget(s.cfg.Source, target, validation.Options{
		Source:          expect,
		Stat:            s.fs.StatFollow,
		ResolveSymlinks: s.cfg.ResolveSymlinks,
	})
	if err != nil {
		return fatalf(CodeInvalidPaths, err, "invalid source or target")
	}
	for _, w := range checked.Warnings {
		s.log.Debug(w)
	}
	s.log.Debug(checked.Summary())

	s.log.Debug("starting sync",
		logging.Source(s.cfg.Source),
		logging.Target(target),
		logging.Operation(string(mode)),
		slog.String("keys", s.cmp.Keys.String()),
		slog.Duration("tolerance", s.cmp.Tolerance),
	)

	if mode == ModeFile {
		return s.runFile(ctx, target)
	}
	return s.runDir(ctx, target)
}

// resolve settles ModeAuto from the source type and, in file mode, turns a
// directory target into the path of the file inside it.
func (s *Syncer) resolve() (Mode, string, error) {
	mode := s.cfg.Mode
	target := s.cfg.Target

	if mode == ModeAuto {
		src, err := s.fs.StatFollow(s.cfg.Source)
		if err != nil {
			return "", "", fatalf(CodeInvalidPaths, err, "cannot access source %s", s.cfg.Source)
		}
		mode = ModeDirectory
		if src.Kind == fsio.KindFile {
			mode = ModeFile
		}
	}

	if mode == ModeFile {
		if t, err := s.fs.StatFollow(target); err == nil && t.IsDir() {
			target = filepath.Join(target, filepath.Base(s.cfg.Source))
		}
	}
	return mode, target, nil
}

// allow resolves the policy for q. Declined operations are reported.
func (s *Syncer) allow(ctx context.Context, q Question) (bool, error) {
	ok, err := s.policy.allow(ctx, q)
	if err != nil {
		return false, err
	}
	if !ok {
		s.emit(Event{Kind: EventDeclined, Op: q.Op, Path: q.Source, Target: q.Target})
	}
	return ok, nil
}

// emit updates the counters for e and passes it to the handler.
func (s *Syncer) emit(e Event) {
	if e.Kind.IsChange() {
		e.DryRun = s.cfg.DryRun
	}

	switch e.Kind {
	case EventMatch:
		s.summary.Matched++
	case EventCopy, EventOverwrite:
		s.summary.Copied++
	case EventRename:
		if !e.Temporary {
			s.summary.Renamed++
		}
	case EventDelete:
		s.summary.Deleted++
	case EventTimeSync:
		s.summary.TimeSynced++
	case EventWarning, EventClash:
		s.summary.Warnings++
	}

	switch e.Kind {
	case EventWarning, EventClash:
		s.log.Info(e.Message, logging.Path(e.Path), logging.Err(e.Err))
	case EventVisit:
	default:
		s.log.Debug(string(e.Kind), logging.Path(e.Path), logging.Target(e.Target))
	}

	if s.handler != nil {
		s.handler(e)
	}
}

func (s *Syncer) warn(path, message string, err error) {
	s.emit(Event{Kind: EventWarning, Path: path, Message: message, Err: err})
}

func (s *Syncer) skip(path, message string) {
	s.emit(Event{Kind: EventSkip, Path: path, Message: message})
}

// checksum is the record.ChecksumFunc of a run. Read failures become
// warnings and a zero checksum.
func (s *Syncer) checksum(path string) uint32 {
	crc, err := s.fs.ComputeCRC32(path)
	if err != nil {
		s.warn(path, "cannot compute checksum", err)
		return 0
	}
	return crc
}

// exists reports whether path is present on the target filesystem.
func (s *Syncer) exists(path string) bool {
	_, err := s.fs.Stat(path)
	return err == nil || !errors.Is(err, fs.ErrNotExist)
}

// copyFile copies src to dst unless running dry.
func (s *Syncer) copyFile(src, dst string) error {
	if s.cfg.DryRun {
		return nil
	}
	if err := s.fs.CopyFile(src, dst); err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return nil
}
