// Package validation provides pre-sync checks of the source and target paths.
package validation

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/klauern/treesync/internal/fsio"
)

// Error represents a validation failure with context.
type Error struct {
	// Field is the name of the field or component that failed validation
	Field string
	// Message describes the validation failure
	Message string
	// Err is the underlying error (if any)
	Err error
}

// Error returns a formatted validation error message.
func (ve *Error) Error() string {
	if ve.Err != nil {
		return fmt.Sprintf("validation failed for %q: %s: %v", ve.Field, ve.Message, ve.Err)
	}
	return fmt.Sprintf("validation failed for %q: %s", ve.Field, ve.Message)
}

// Unwrap returns the underlying error for errors.Is/As.
func (ve *Error) Unwrap() error {
	return ve.Err
}

// Errors collects multiple validation errors.
type Errors []error

// Error returns a formatted error message for all validation failures.
func (ve Errors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}
	return fmt.Sprintf("%d validation errors:\n- %s", len(ve), errors.Join(ve...))
}

// Expect is the entry type the source must have.
type Expect int

const (
	// ExpectAny accepts a file or a directory.
	ExpectAny Expect = iota
	// ExpectDir requires a directory.
	ExpectDir
	// ExpectFile requires a regular file.
	ExpectFile
)

// Options configures validation behavior.
type Options struct {
	// Source is the entry type the source must have.
	Source Expect
	// Stat looks up entries. Required for the existence checks; when nil only
	// the path relationship is checked.
	Stat func(path string) (fsio.Entry, error)
	// ResolveSymlinks resolves symbolic links on the OS filesystem before the
	// paths are compared.
	ResolveSymlinks bool
}

// DefaultOptions returns the default validation options.
func DefaultOptions() Options {
	return Options{
		Source:          ExpectAny,
		ResolveSymlinks: true,
	}
}

// Result contains the outcome of a validation check.
type Result struct {
	// Valid indicates whether all validations passed
	Valid bool
	// Warnings contains non-fatal validation issues
	Warnings []string
	// Errors contains validation failures that prevent the operation
	Errors []error
	// Source and Target are the canonical forms of the validated paths.
	Source string
	Target string
}

// AddError adds an error to the validation result.
func (r *Result) AddError(err error) {
	r.Valid = false
	r.Errors = append(r.Errors, err)
}

// AddWarning adds a warning to the validation result.
func (r *Result) AddWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// HasErrors returns true if there are any validation errors.
func (r *Result) HasErrors() bool {
	return len(r.Errors) > 0
}

// Error returns the combined validation error message.
func (r *Result) Error() error {
	if !r.HasErrors() {
		return nil
	}
	if len(r.Errors) == 1 {
		return r.Errors[0]
	}
	return Errors(r.Errors)
}

// Summary returns a human-readable summary of the validation result.
func (r *Result) Summary() string {
	if r.Valid && len(r.Warnings) == 0 {
		return "All validations passed"
	}
	var msg string
	if r.Valid {
		msg = "Validation passed with warnings"
	} else {
		msg = "Validation failed"
	}
	if len(r.Warnings) > 0 {
		msg += fmt.Sprintf(" (%d warning(s))", len(r.Warnings))
	}
	return msg
}

// ValidateSourceTarget checks that source and target can be synchronized:
// both are given, they are different paths and neither contains the other.
// With a Stat function it also checks that the source exists with the
// expected type.
func ValidateSourceTarget(source, target string, opts Options) (*Result, error) {
	result := &Result{Valid: true}

	if err := ValidatePath(source, "source"); err != nil {
		result.AddError(err)
	}
	if err := ValidatePath(target, "target"); err != nil {
		result.AddError(err)
	}
	if result.HasErrors() {
		return result, result.Error()
	}

	src, err := CanonicalPath(source, opts.ResolveSymlinks)
	if err != nil {
		result.AddError(&Error{Field: "source", Message: "cannot resolve path", Err: err})
	}
	dst, err := CanonicalPath(target, opts.ResolveSymlinks)
	if err != nil {
		result.AddError(&Error{Field: "target", Message: "cannot resolve path", Err: err})
	}
	if result.HasErrors() {
		return result, result.Error()
	}
	result.Source, result.Target = src, dst

	if err := CheckRelationship(src, dst); err != nil {
		result.AddError(err)
	}

	if opts.Stat != nil {
		if err := validateSource(source, opts); err != nil {
			result.AddError(err)
		}
		if _, err := opts.Stat(target); errors.Is(err, fs.ErrNotExist) {
			result.AddWarning(fmt.Sprintf("target does not exist and will be created: %s", target))
		}
	}

	if result.HasErrors() {
		return result, result.Error()
	}
	return result, nil
}

func validateSource(source string, opts Options) error {
	entry, err := opts.Stat(source)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Error{
				Field:   "source",
				Message: fmt.Sprintf("path does not exist: %s", source),
				Err:     err,
			}
		}
		return &Error{
			Field:   "source",
			Message: fmt.Sprintf("cannot access path: %s", source),
			Err:     err,
		}
	}

	switch opts.Source {
	case ExpectDir:
		if entry.Kind != fsio.KindDir {
			return &Error{
				Field:   "source",
				Message: fmt.Sprintf("path is not a directory: %s", source),
			}
		}
	case ExpectFile:
		if entry.Kind != fsio.KindFile {
			return &Error{
				Field:   "source",
				Message: fmt.Sprintf("path is not a regular file: %s", source),
			}
		}
	default:
		if entry.Kind == fsio.KindOther {
			return &Error{
				Field:   "source",
				Message: fmt.Sprintf("path is neither a file nor a directory: %s", source),
			}
		}
	}
	return nil
}

// CheckRelationship reports an error when the canonical paths are equal or
// one is an ancestor of the other.
func CheckRelationship(source, target string) error {
	switch {
	case source == target:
		return &Error{
			Field:   "target",
			Message: fmt.Sprintf("source and target are the same path: %s", source),
		}
	case IsAncestor(source, target):
		return &Error{
			Field:   "target",
			Message: fmt.Sprintf("target %s is inside source %s", target, source),
		}
	case IsAncestor(target, source):
		return &Error{
			Field:   "target",
			Message: fmt.Sprintf("source %s is inside target %s", source, target),
		}
	}
	return nil
}

// IsAncestor reports whether dir strictly contains path. Both must be clean
// absolute paths.
func IsAncestor(dir, path string) bool {
	if dir == path {
		return false
	}
	prefix := dir
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(path, prefix)
}

// CanonicalPath returns the absolute, cleaned form of path. With
// resolveSymlinks set, symbolic links are resolved when the path exists on
// the OS filesystem.
func CanonicalPath(path string, resolveSymlinks bool) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("cannot convert to absolute path: %w", err)
	}
	if resolveSymlinks {
		if resolved, err := filepath.EvalSymlinks(abs); err == nil {
			abs = resolved
		}
	}
	return filepath.Clean(abs), nil
}

// ValidatePath checks that a path argument is present.
func ValidatePath(path, field string) error {
	if strings.TrimSpace(path) == "" {
		return &Error{
			Field:   field,
			Message: "path cannot be empty",
		}
	}
	return nil
}
