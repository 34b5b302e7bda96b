package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sheetdrop/sheetdrop/pkg/pagination"
)

// SweepResult reports what a stuck-job sweep reclaimed.
type SweepResult struct {
	Requeued  int
	Exhausted int
}

// System defines the job record store operations. Creation and queries
// are unconditional; every status change takes the expected current
// status as a precondition and fails with ErrInvalidTransition when the
// record has moved on, which keeps concurrent workers from double
// processing a job.
type System interface {
	// Create inserts a new PENDING_UPLOAD record. The caller supplies the
	// id so the source key can embed it before the row exists.
	Create(ctx context.Context, id uuid.UUID, ownerID, sourceKey string) (*ConversionJob, error)
	Find(ctx context.Context, id uuid.UUID) (*ConversionJob, error)
	List(ctx context.Context, ownerID string, page pagination.PageRequest, filters Filters) (*pagination.PageResult[ConversionJob], error)

	// MarkQueued transitions PENDING_UPLOAD -> QUEUED.
	MarkQueued(ctx context.Context, id uuid.UUID) (*ConversionJob, error)

	// Claim atomically acquires the oldest QUEUED job for processing,
	// transitioning it to PROCESSING and incrementing its attempt count.
	// At most one caller can claim a given job. Returns ErrNoneQueued
	// when the queue is empty.
	Claim(ctx context.Context) (*ConversionJob, error)

	// Requeue returns a PROCESSING job to QUEUED after a transient failure.
	Requeue(ctx context.Context, id uuid.UUID) (*ConversionJob, error)

	// Complete transitions PROCESSING -> COMPLETED, recording the result
	// key and any extraction warnings in the same atomic update.
	Complete(ctx context.Context, id uuid.UUID, resultKey string, warnings []string) (*ConversionJob, error)

	// Fail transitions the job from the expected status to FAILED with
	// the given terminal error kind and human-readable detail.
	Fail(ctx context.Context, id uuid.UUID, from Status, kind ErrorKind, detail string) (*ConversionJob, error)

	// SweepStuck reclaims PROCESSING jobs whose last update is older than
	// ceiling: jobs with attempts remaining return to QUEUED, the rest
	// fail with RETRIES_EXHAUSTED.
	SweepStuck(ctx context.Context, ceiling time.Duration, maxAttempts int) (*SweepResult, error)
}
