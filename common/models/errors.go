package models

import "errors"

var (
	// ErrNetwork marks a request to the data service that could not complete
	ErrNetwork = errors.New("data service unavailable")

	// ErrConflict is returned when (record_id, tag_text) already exists
	ErrConflict = errors.New("tag already exists")

	// ErrNotFound is returned when a tag (or record) does not exist
	ErrNotFound = errors.New("not found")

	// ErrValidation is returned for empty tag text
	ErrValidation = errors.New("tag text must not be empty")

	// ErrPending is returned when removing a placeholder whose insert is still in flight
	ErrPending = errors.New("tag is still being saved")
)
