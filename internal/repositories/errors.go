package repositories

import "errors"

var (
	// ErrNotFound reports that no provider settings have been saved yet.
	ErrNotFound = errors.New("record not found")
	// ErrConflict reports a history record whose ID is already stored.
	ErrConflict = errors.New("record conflict")
)
