// Package convert orchestrates the PDF-to-spreadsheet pipeline: the
// upload handshake, quota admission, the extraction worker pool, and
// result delivery. It composes the jobs, quota, blob, and extract
// systems and owns every rule about how a job moves between them.
package convert

import (
	"context"

	"github.com/google/uuid"

	"github.com/sheetdrop/sheetdrop/internal/blob"
	"github.com/sheetdrop/sheetdrop/internal/extract"
	"github.com/sheetdrop/sheetdrop/internal/jobs"
	"github.com/sheetdrop/sheetdrop/pkg/pagination"
)

// UploadRequest carries the client's declaration of what it intends to
// upload. The declared size is validated here; the blob handler enforces
// the cap again on the actual bytes.
type UploadRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
}

// UploadGrant is the handshake response: the created job plus the
// presigned location the client must PUT the document to.
type UploadGrant struct {
	Job    *jobs.ConversionJob    `json:"job"`
	Upload *blob.UploadDescriptor `json:"upload"`
}

// Extractor runs table detection over raw PDF bytes.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (*extract.Result, error)
}

// System defines the conversion pipeline operations exposed to handlers
// and workers.
type System interface {
	// RequestUpload validates the declaration, reserves a job record in
	// PENDING_UPLOAD, and issues a presigned upload URL.
	RequestUpload(ctx context.Context, ownerID string, req UploadRequest) (*UploadGrant, error)

	// ConfirmUpload verifies the document landed, admits the job against
	// the owner's quota, and enqueues it for extraction.
	ConfirmUpload(ctx context.Context, ownerID string, jobID uuid.UUID) (*jobs.ConversionJob, error)

	// Find returns a job visible to the given owner.
	Find(ctx context.Context, ownerID string, jobID uuid.UUID) (*jobs.ConversionJob, error)

	// List returns the owner's jobs, newest first.
	List(ctx context.Context, ownerID string, page pagination.PageRequest, filters jobs.Filters) (*pagination.PageResult[jobs.ConversionJob], error)

	// DownloadURL returns a presigned URL for a completed job's spreadsheet.
	DownloadURL(ctx context.Context, ownerID string, jobID uuid.UUID) (string, error)

	// ProcessNext claims and runs one queued job to a terminal or requeued
	// state. It reports whether a job was claimed.
	ProcessNext(ctx context.Context) (bool, error)
}
