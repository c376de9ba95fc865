package poller

import (
	"errors"
	"fmt"

	"producttracker/watcher/internal/domain"
)

var (
	ErrNoJobID    = errors.New("poll target has no job id")
	ErrNotRunning = errors.New("job is not running")
)

// TransportError covers network failures, non-success responses and
// undecodable bodies. It stops polling for good.
type TransportError struct {
	JobID domain.JobID
	Err   error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("polling job %s status: %v", e.JobID, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
