package sampledata

import "errors"

var (
	// ErrUnexpectedStatus is returned when the server answers an upload with a non-200 status.
	ErrUnexpectedStatus = errors.New("unexpected upload status")
	// ErrVerification is returned when the server's summary disagrees with what was sent.
	ErrVerification = errors.New("upload verification failed")
	// ErrInvalidConfig is returned for a run configuration that cannot generate anything.
	ErrInvalidConfig = errors.New("invalid sample configuration")
)
