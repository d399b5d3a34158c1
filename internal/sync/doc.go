// Package sync implements one-way synchronization of a target directory tree
// or file from a source.
//
// # Features
//
// The sync package supports:
//   - Directory mode: a depth-first walk over the source tree that copies,
//     renames, overwrites and deletes target entries and copies
//     modification times
//   - File mode: a single file copied, overwritten, renamed or time-synced
//   - Matching on name, size, modification time (with tolerance) and CRC-32
//   - Include and exclude filters on either side
//   - Per-operation policies (always, never, ask)
//   - Dry-run mode for previewing changes
//
// # Matching
//
// Files in a source directory are paired with files in the target directory
// by the keys in Config.Keys. Size is always compared. Without the name key
// a file renamed in the source is found in the target by its content
// attributes and renamed there instead of being copied again. Directories
// are paired by name.
//
// Two source files that the enabled keys cannot tell apart make matching in
// their directory meaningless. Such a directory is reported with a clash
// event and its files are left alone; its subdirectories are still visited.
//
// # Operations
//
// Within a directory, operations run in this order:
//   - unmatched target files, then directories, are deleted (OpDelete)
//   - matched target files are renamed to the source name (OpRename);
//     rename cycles are broken through a temporary ".sync" name
//   - unmatched source files are copied; a target file with the same name
//     is overwritten (OpOverwrite)
//   - matched files with differing times get the source time (OpTimeSync)
//
// Directory times are copied after everything below the directory is done.
//
// # Policies
//
// Each operation class has a Policy. PolicyAsk consults the Decider passed
// with WithDecider; answering AnswerAlways or AnswerNever fixes the policy
// for the rest of the run:
//
//	syncer := sync.New(cfg, fsio.NewOS(),
//	    sync.WithDecider(prompt),
//	    sync.WithEventHandler(func(e sync.Event) {
//	        fmt.Println(e)
//	    }),
//	)
//	summary, err := syncer.Run(ctx)
//	if err != nil {
//	    os.Exit(sync.ExitCode(err))
//	}
//	fmt.Print(summary)
//
// # Errors
//
// Failures on single entries are reported as warning events and counted in
// Summary.Warnings; the run continues. Invalid paths or configuration and
// rename ordering failures stop the run with a *FatalError carrying an exit
// code. Cancelling the context stops the run at the next safe point.
// Completed operations are never rolled back, and a stopped run can simply
// be started again.
package sync
