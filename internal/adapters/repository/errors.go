package repository

import "errors"

// Sentinel kinds for standings errors.
var (
	ErrNotFound         = errors.New("student not found")
	ErrInvalidLimit     = errors.New("invalid standings limit")
	ErrDuplicateStudent = errors.New("duplicate student in standings")
)
