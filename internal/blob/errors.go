package blob

import "errors"

// Blob store errors returned by System implementations.
var (
	// ErrNotFound indicates the requested key does not exist in storage.
	ErrNotFound = errors.New("blob: key not found")

	// ErrPermissionDenied indicates insufficient permissions to access the key.
	ErrPermissionDenied = errors.New("blob: permission denied")

	// ErrInvalidKey indicates the key is malformed or contains invalid
	// characters. This includes empty keys and path traversal attempts.
	ErrInvalidKey = errors.New("blob: invalid key")

	// ErrBadSignature indicates a presigned URL signature that does not
	// verify against the signing secret.
	ErrBadSignature = errors.New("blob: signature mismatch")

	// ErrExpired indicates a presigned URL past its validity window.
	ErrExpired = errors.New("blob: url expired")
)
