package shared

import (
	"errors"
	"fmt"
	"io/fs"
	"syscall"
)

var (
	// Run-terminal pipeline errors
	ErrFileAccess        = fmt.Errorf("file missing or not accessible")
	ErrFileInUse         = fmt.Errorf("file locked by another process")
	ErrResourceExhausted = fmt.Errorf("out of memory or disk space")
	ErrCanceled          = fmt.Errorf("operation canceled")
	ErrNoData            = fmt.Errorf("no records match the filter")
	ErrUnclassified      = fmt.Errorf("unclassified failure")

	// Input validation errors
	ErrInvalidFilter   = fmt.Errorf("invalid filter")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrMissingArgument = fmt.Errorf("missing required argument")
)

// ClassifyPathError maps an I/O error onto the pipeline error taxonomy,
// preserving the underlying error via wrapping. Nil stays nil.
func ClassifyPathError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %v", ErrFileAccess, err)
	case errors.Is(err, syscall.EBUSY), errors.Is(err, syscall.ETXTBSY):
		return fmt.Errorf("%w: %v", ErrFileInUse, err)
	case errors.Is(err, syscall.ENOSPC), errors.Is(err, syscall.EDQUOT), errors.Is(err, syscall.ENOMEM):
		return fmt.Errorf("%w: %v", ErrResourceExhausted, err)
	default:
		return fmt.Errorf("%w: %v", ErrUnclassified, err)
	}
}
