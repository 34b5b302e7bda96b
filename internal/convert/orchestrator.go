package convert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/sheetdrop/sheetdrop/internal/blob"
	"github.com/sheetdrop/sheetdrop/internal/config"
	"github.com/sheetdrop/sheetdrop/internal/extract"
	"github.com/sheetdrop/sheetdrop/internal/jobs"
	"github.com/sheetdrop/sheetdrop/internal/quota"
	"github.com/sheetdrop/sheetdrop/pkg/pagination"
)

const pdfContentType = "application/pdf"

// Orchestrator implements System over the jobs, quota, blob, and
// extraction collaborators.
type Orchestrator struct {
	jobs    jobs.System
	quotas  quota.System
	blobs   blob.System
	engine  Extractor
	blobCfg config.BlobConfig
	cfg     config.ConvertConfig
	logger  *slog.Logger
}

// NewOrchestrator creates the conversion pipeline orchestrator.
func NewOrchestrator(
	jobSys jobs.System,
	quotaSys quota.System,
	blobSys blob.System,
	engine Extractor,
	blobCfg config.BlobConfig,
	cfg config.ConvertConfig,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		jobs:    jobSys,
		quotas:  quotaSys,
		blobs:   blobSys,
		engine:  engine,
		blobCfg: blobCfg,
		cfg:     cfg,
		logger:  logger.With("system", "convert"),
	}
}

// RequestUpload validates the upload declaration before any state
// exists, so a rejection here costs nothing. Quota is deliberately not
// checked yet: admission happens at confirmation, when the document is
// actually present.
func (o *Orchestrator) RequestUpload(ctx context.Context, ownerID string, req UploadRequest) (*UploadGrant, error) {
	if req.ContentType != pdfContentType {
		return nil, fmt.Errorf("%w: got %q", ErrUnsupportedType, req.ContentType)
	}
	if req.SizeBytes > o.blobCfg.MaxUploadSizeBytes() {
		return nil, fmt.Errorf("%w: %d bytes declared, %d allowed",
			ErrTooLarge, req.SizeBytes, o.blobCfg.MaxUploadSizeBytes())
	}

	filename := req.Filename
	if filename == "" {
		filename = "document.pdf"
	}

	id := uuid.New()
	key := blob.SourceKey(ownerID, id, filename)

	job, err := o.jobs.Create(ctx, id, ownerID, key)
	if err != nil {
		return nil, fmt.Errorf("creating job record: %w", err)
	}

	desc, err := o.blobs.IssueUploadURL(key, req.ContentType, o.blobCfg.UploadTTLDuration())
	if err != nil {
		return nil, fmt.Errorf("issuing upload url: %w", err)
	}

	o.logger.Info("upload granted", "job", job.ID, "owner", ownerID, "key", key)
	return &UploadGrant{Job: job, Upload: desc}, nil
}

// ConfirmUpload is the admission point. The quota slot is reserved
// before the job is enqueued so a burst of confirmations cannot
// over-admit; if enqueueing then fails the slot is returned.
func (o *Orchestrator) ConfirmUpload(ctx context.Context, ownerID string, jobID uuid.UUID) (*jobs.ConversionJob, error) {
	job, err := o.Find(ctx, ownerID, jobID)
	if err != nil {
		return nil, err
	}

	if job.Status != jobs.StatusPendingUpload {
		return nil, jobs.ErrInvalidTransition
	}

	exists, err := o.blobs.Exists(ctx, job.SourceKey)
	if err != nil {
		return nil, fmt.Errorf("checking source object: %w", err)
	}
	if !exists {
		return nil, ErrNoUpload
	}

	if _, err := o.quotas.CheckAndReserve(ctx, ownerID); err != nil {
		if errors.Is(err, quota.ErrExceeded) {
			if _, failErr := o.jobs.Fail(ctx, jobID, jobs.StatusPendingUpload,
				jobs.KindQuotaExceeded, "conversion quota exceeded for the current period"); failErr != nil {
				o.logger.Error("failing over-quota job", "job", jobID, "error", failErr)
			}
			return nil, err
		}
		return nil, fmt.Errorf("reserving quota: %w", err)
	}

	queued, err := o.jobs.MarkQueued(ctx, jobID)
	if err != nil {
		if releaseErr := o.quotas.Release(ctx, ownerID); releaseErr != nil {
			o.logger.Error("releasing quota after failed enqueue", "owner", ownerID, "error", releaseErr)
		}
		return nil, err
	}

	o.logger.Info("job queued", "job", queued.ID, "owner", ownerID)
	return queued, nil
}

func (o *Orchestrator) Find(ctx context.Context, ownerID string, jobID uuid.UUID) (*jobs.ConversionJob, error) {
	job, err := o.jobs.Find(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.OwnerID != ownerID {
		return nil, ErrForbidden
	}
	return job, nil
}

func (o *Orchestrator) List(ctx context.Context, ownerID string, page pagination.PageRequest, filters jobs.Filters) (*pagination.PageResult[jobs.ConversionJob], error) {
	return o.jobs.List(ctx, ownerID, page, filters)
}

func (o *Orchestrator) DownloadURL(ctx context.Context, ownerID string, jobID uuid.UUID) (string, error) {
	job, err := o.Find(ctx, ownerID, jobID)
	if err != nil {
		return "", err
	}

	if job.Status != jobs.StatusCompleted || job.ResultKey == nil {
		return "", fmt.Errorf("%w: job is %s", ErrNotReady, job.Status)
	}

	return o.blobs.IssueDownloadURL(*job.ResultKey, o.blobCfg.DownloadTTLDuration())
}

// ProcessNext runs one extraction attempt end to end. Failures are
// routed by kind: transient failures requeue while attempts remain,
// everything else is terminal.
func (o *Orchestrator) ProcessNext(ctx context.Context) (bool, error) {
	job, err := o.jobs.Claim(ctx)
	if err != nil {
		if errors.Is(err, jobs.ErrNoneQueued) {
			return false, nil
		}
		return false, err
	}

	logger := o.logger.With("job", job.ID, "attempt", job.AttemptCount)
	logger.Info("processing job")

	data, err := o.blobs.Retrieve(ctx, job.SourceKey)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return true, o.failTerminal(ctx, job, jobs.KindUnparsableDocument, "source document is missing from storage")
		}
		return true, o.failTransient(ctx, job, fmt.Sprintf("reading source document: %v", err))
	}

	result, err := o.engine.Extract(ctx, data)
	if err != nil {
		var failure *extract.Failure
		if errors.As(err, &failure) {
			if failure.Retryable() {
				return true, o.failTransient(ctx, job, failure.Detail)
			}
			return true, o.failTerminal(ctx, job, terminalKind(failure.Kind), failure.Detail)
		}
		return true, o.failTransient(ctx, job, fmt.Sprintf("extraction error: %v", err))
	}

	artifact, err := extract.Workbook(result.Tables)
	if err != nil {
		return true, o.failTransient(ctx, job, fmt.Sprintf("building workbook: %v", err))
	}

	resultKey := blob.ResultKey(job.OwnerID, job.ID)
	if err := o.blobs.Store(ctx, resultKey, artifact); err != nil {
		return true, o.failTransient(ctx, job, fmt.Sprintf("storing workbook: %v", err))
	}

	if _, err := o.jobs.Complete(ctx, job.ID, resultKey, result.Warnings); err != nil {
		return true, fmt.Errorf("completing job %s: %w", job.ID, err)
	}

	logger.Info("job completed", "tables", len(result.Tables), "warnings", len(result.Warnings))
	return true, nil
}

// failTransient requeues the job when attempts remain and otherwise
// fails it with RETRIES_EXHAUSTED. The attempt count was incremented at
// claim time, so the comparison is against attempts already spent.
func (o *Orchestrator) failTransient(ctx context.Context, job *jobs.ConversionJob, detail string) error {
	if job.AttemptCount >= o.cfg.MaxAttempts {
		o.logger.Warn("job exhausted retries", "job", job.ID, "attempts", job.AttemptCount, "detail", detail)
		_, err := o.jobs.Fail(ctx, job.ID, jobs.StatusProcessing, jobs.KindRetriesExhausted,
			fmt.Sprintf("failed after %d attempts: %s", job.AttemptCount, detail))
		return err
	}

	o.logger.Warn("job requeued after transient failure", "job", job.ID, "attempt", job.AttemptCount, "detail", detail)
	_, err := o.jobs.Requeue(ctx, job.ID)
	return err
}

func (o *Orchestrator) failTerminal(ctx context.Context, job *jobs.ConversionJob, kind jobs.ErrorKind, detail string) error {
	o.logger.Warn("job failed", "job", job.ID, "kind", kind, "detail", detail)
	_, err := o.jobs.Fail(ctx, job.ID, jobs.StatusProcessing, kind, detail)
	return err
}

func terminalKind(kind extract.FailureKind) jobs.ErrorKind {
	switch kind {
	case extract.FailureNoTables:
		return jobs.KindNoTablesFound
	default:
		return jobs.KindUnparsableDocument
	}
}
