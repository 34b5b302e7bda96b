package quota

import "errors"

// Domain errors for quota operations.
var (
	// ErrExceeded indicates the owner's free allotment is spent.
	ErrExceeded = errors.New("quota exceeded")

	ErrNotFound = errors.New("quota record not found")

	ErrInvalidTier = errors.New("invalid tier")
)
