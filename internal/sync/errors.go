package sync

import (
	"errors"
	"fmt"

	"github.com/klauern/treesync/internal/rename"
)

// Code is the process exit status associated with a fatal error.
type Code int

const (
	// CodeGeneral is used for failures without a more specific code.
	CodeGeneral Code = 1
	// CodeConfig reports an unusable configuration.
	CodeConfig Code = 2
	// CodeInvalidPaths reports a source/target pair that cannot be synchronized.
	CodeInvalidPaths Code = 3
	// CodeRenameClash reports two renames sharing a target.
	CodeRenameClash Code = 4
	// CodeTempName reports that no temporary name was available to break a
	// rename cycle.
	CodeTempName Code = 5
)

// FatalError stops a run. Operations completed before it stay in place.
type FatalError struct {
	Message string
	Code    Code
	Err     error
}

// Error implements error.
func (e *FatalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *FatalError) Unwrap() error {
	return e.Err
}

// ExitCode returns the process exit status for err: the FatalError code, 0
// for nil and CodeGeneral otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var fatal *FatalError
	if errors.As(err, &fatal) {
		return int(fatal.Code)
	}
	return int(CodeGeneral)
}

func fatalf(code Code, err error, format string, args ...any) *FatalError {
	return &FatalError{Message: fmt.Sprintf(format, args...), Code: code, Err: err}
}

// renameFatal converts a sequencer failure into a FatalError.
func renameFatal(dir string, err error) error {
	var clash *rename.ClashError
	switch {
	case errors.As(err, &clash):
		return fatalf(CodeRenameClash, err, "cannot order renames in %s", dir)
	case errors.Is(err, rename.ErrNoTempName):
		return fatalf(CodeTempName, err, "cannot break rename cycle in %s", dir)
	default:
		return fatalf(CodeGeneral, err, "cannot order renames in %s", dir)
	}
}
