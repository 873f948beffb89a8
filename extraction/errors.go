package extraction

import (
	"errors"
	"fmt"
)

var (
	// ErrJobFailed indicates the service reported an async job as failed or aborted.
	ErrJobFailed = errors.New("extraction job failed")

	// ErrEmptyResponse indicates a response that carried none of the expected fields.
	ErrEmptyResponse = errors.New("empty response from extraction service")
)

// APIError is a non-success answer from the service.
type APIError struct {
	Path    string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("extraction %s: status %d: %s", e.Path, e.Status, e.Message)
}
