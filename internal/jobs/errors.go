package jobs

import "errors"

// Domain errors for job record operations.
var (
	ErrNotFound = errors.New("job not found")

	ErrDuplicate = errors.New("job already exists")

	// ErrInvalidTransition indicates a status change the state machine
	// does not permit from the job's current status, such as confirming
	// an already-confirmed upload.
	ErrInvalidTransition = errors.New("invalid job status transition")

	// ErrNoneQueued indicates no queued job was available to claim.
	ErrNoneQueued = errors.New("no queued jobs")
)
