package cache

import "errors"

var (
	// ErrNotFound is returned when a key is absent or has expired.
	ErrNotFound = errors.New("cache key not found")

	// ErrConnection is returned when the cache backend is unreachable.
	ErrConnection = errors.New("cache connection failed")
)
