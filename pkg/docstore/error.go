package docstore

import "errors"

var (
	// ErrNotFound is returned when a requested record doesn't exist.
	ErrNotFound = errors.New("record not found")

	// ErrConnection is returned when the document store is unreachable.
	ErrConnection = errors.New("document store connection failed")
)
