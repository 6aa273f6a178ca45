package service

import (
	"errors"
	"fmt"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrFileRead       = errors.New("file read failed")
	ErrUploadTooLarge = errors.New("upload exceeds size limit")
	ErrSuperseded     = errors.New("load superseded by a newer upload")
	ErrNoData         = errors.New("no dataset loaded")
)

// FileReadError reports a failure to read the upload stream.
type FileReadError struct {
	Err error
}

func (e *FileReadError) Error() string {
	return fmt.Sprintf("%s: %v", ErrFileRead, e.Err)
}

// Is matches ErrFileRead.
func (e *FileReadError) Is(target error) bool { return target == ErrFileRead }

func (e *FileReadError) Unwrap() error { return e.Err }
