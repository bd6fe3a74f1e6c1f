package ai

import (
	"errors"
	"fmt"
)

// ErrEmptyResponse is returned when a provider answers without any text.
var ErrEmptyResponse = errors.New("generation endpoint returned no text")

// StatusError captures non-2xx responses from a generation endpoint.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Body == "" {
		return fmt.Sprintf("%s request failed: status %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s request failed: status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// ReconstructionError means the assembled model output could not be parsed
// even after salvage. Text holds the salvaged buffer for diagnosis.
type ReconstructionError struct {
	Text string
	Err  error
}

func (e *ReconstructionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("failed to parse generated recipes: %v", e.Err)
}

func (e *ReconstructionError) Unwrap() error {
	return e.Err
}
