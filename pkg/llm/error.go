package llm

import "errors"

var (
	// ErrCompletion is returned when a completion request fails.
	ErrCompletion = errors.New("completion failed")

	// ErrEmptyResponse is returned when a provider responds without any
	// usable content.
	ErrEmptyResponse = errors.New("empty completion response")
)
