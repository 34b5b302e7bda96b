// Package jobs provides the durable record store for conversion jobs.
// It is the single source of truth for job state: every status change is
// an atomic compare-and-swap against the expected current status, so the
// state machine cannot be violated by concurrent writers.
package jobs

import (
	"time"

	"github.com/google/uuid"
)

// Status represents a conversion job's position in the state machine:
//
//	PENDING_UPLOAD -> QUEUED -> PROCESSING -> COMPLETED | FAILED
//
// with a bounded PROCESSING -> QUEUED self-loop on transient failure.
type Status string

// Job status constants.
const (
	StatusPendingUpload Status = "PENDING_UPLOAD"
	StatusQueued        Status = "QUEUED"
	StatusProcessing    Status = "PROCESSING"
	StatusCompleted     Status = "COMPLETED"
	StatusFailed        Status = "FAILED"
)

// Terminal reports whether no further transitions can occur.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPendingUpload, StatusQueued, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// CanTransition reports whether the state machine permits moving from s to next.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusPendingUpload:
		return next == StatusQueued || next == StatusFailed
	case StatusQueued:
		return next == StatusProcessing
	case StatusProcessing:
		return next == StatusQueued || next == StatusCompleted || next == StatusFailed
	default:
		return false
	}
}

// ErrorKind classifies why a request or job failed. Only terminal kinds
// are persisted on the job record; the rest surface at the API boundary.
type ErrorKind string

// Error kind constants.
const (
	KindUnsupportedType    ErrorKind = "UNSUPPORTED_TYPE"
	KindForbidden          ErrorKind = "FORBIDDEN"
	KindInvalidState       ErrorKind = "INVALID_STATE"
	KindQuotaExceeded      ErrorKind = "QUOTA_EXCEEDED"
	KindNoTablesFound      ErrorKind = "NO_TABLES_FOUND"
	KindUnparsableDocument ErrorKind = "UNPARSABLE_DOCUMENT"
	KindTransient          ErrorKind = "TRANSIENT"
	KindRetriesExhausted   ErrorKind = "RETRIES_EXHAUSTED"
	KindNotReady           ErrorKind = "NOT_READY"
)

// Retryable reports whether the kind permits another extraction attempt.
// Transient failures are the only retryable category.
func (k ErrorKind) Retryable() bool {
	return k == KindTransient
}

// ConversionJob is the durable record of one PDF-to-spreadsheet
// conversion. OwnerID and SourceKey are set at creation and never
// mutated; ResultKey is set only on COMPLETED and ErrorKind/ErrorDetail
// only on FAILED.
type ConversionJob struct {
	ID           uuid.UUID  `json:"id"`
	OwnerID      string     `json:"owner_id"`
	Status       Status     `json:"status"`
	SourceKey    string     `json:"source_key"`
	ResultKey    *string    `json:"result_key,omitempty"`
	ErrorKind    *ErrorKind `json:"error_kind,omitempty"`
	ErrorDetail  *string    `json:"error_detail,omitempty"`
	Warnings     []string   `json:"warnings,omitempty"`
	AttemptCount int        `json:"attempt_count"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
