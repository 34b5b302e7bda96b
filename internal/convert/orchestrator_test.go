package convert_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sheetdrop/sheetdrop/internal/blob"
	"github.com/sheetdrop/sheetdrop/internal/config"
	"github.com/sheetdrop/sheetdrop/internal/convert"
	"github.com/sheetdrop/sheetdrop/internal/extract"
	"github.com/sheetdrop/sheetdrop/internal/jobs"
	"github.com/sheetdrop/sheetdrop/internal/quota"
	"github.com/sheetdrop/sheetdrop/pkg/lifecycle"
	"github.com/sheetdrop/sheetdrop/pkg/pagination"
)

// fakeJobs reproduces the record store's state machine semantics in
// memory so orchestrator behavior can be exercised without a database.
type fakeJobs struct {
	mu    sync.Mutex
	jobs  map[uuid.UUID]*jobs.ConversionJob
	order []uuid.UUID
}

func newFakeJobs() *fakeJobs {
	return &fakeJobs{jobs: make(map[uuid.UUID]*jobs.ConversionJob)}
}

func (f *fakeJobs) Create(ctx context.Context, id uuid.UUID, ownerID, sourceKey string) (*jobs.ConversionJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now()
	job := &jobs.ConversionJob{
		ID:        id,
		OwnerID:   ownerID,
		Status:    jobs.StatusPendingUpload,
		SourceKey: sourceKey,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.jobs[id] = job
	f.order = append(f.order, id)
	return copyJob(job), nil
}

func (f *fakeJobs) Find(ctx context.Context, id uuid.UUID) (*jobs.ConversionJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	job, ok := f.jobs[id]
	if !ok {
		return nil, jobs.ErrNotFound
	}
	return copyJob(job), nil
}

func (f *fakeJobs) List(ctx context.Context, ownerID string, page pagination.PageRequest, filters jobs.Filters) (*pagination.PageResult[jobs.ConversionJob], error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var items []jobs.ConversionJob
	for _, id := range f.order {
		job := f.jobs[id]
		if job.OwnerID != ownerID {
			continue
		}
		if filters.Status != nil && job.Status != *filters.Status {
			continue
		}
		items = append(items, *copyJob(job))
	}

	result := pagination.NewPageResult(items, len(items), 1, len(items)+1)
	return &result, nil
}

func (f *fakeJobs) MarkQueued(ctx context.Context, id uuid.UUID) (*jobs.ConversionJob, error) {
	return f.transition(id, jobs.StatusPendingUpload, func(j *jobs.ConversionJob) {
		j.Status = jobs.StatusQueued
	})
}

func (f *fakeJobs) Claim(ctx context.Context) (*jobs.ConversionJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, id := range f.order {
		job := f.jobs[id]
		if job.Status == jobs.StatusQueued {
			job.Status = jobs.StatusProcessing
			job.AttemptCount++
			job.UpdatedAt = time.Now()
			return copyJob(job), nil
		}
	}
	return nil, jobs.ErrNoneQueued
}

func (f *fakeJobs) Requeue(ctx context.Context, id uuid.UUID) (*jobs.ConversionJob, error) {
	return f.transition(id, jobs.StatusProcessing, func(j *jobs.ConversionJob) {
		j.Status = jobs.StatusQueued
	})
}

func (f *fakeJobs) Complete(ctx context.Context, id uuid.UUID, resultKey string, warnings []string) (*jobs.ConversionJob, error) {
	return f.transition(id, jobs.StatusProcessing, func(j *jobs.ConversionJob) {
		j.Status = jobs.StatusCompleted
		j.ResultKey = &resultKey
		j.Warnings = warnings
	})
}

func (f *fakeJobs) Fail(ctx context.Context, id uuid.UUID, from jobs.Status, kind jobs.ErrorKind, detail string) (*jobs.ConversionJob, error) {
	return f.transition(id, from, func(j *jobs.ConversionJob) {
		j.Status = jobs.StatusFailed
		j.ErrorKind = &kind
		j.ErrorDetail = &detail
	})
}

func (f *fakeJobs) SweepStuck(ctx context.Context, ceiling time.Duration, maxAttempts int) (*jobs.SweepResult, error) {
	return &jobs.SweepResult{}, nil
}

func (f *fakeJobs) transition(id uuid.UUID, from jobs.Status, apply func(*jobs.ConversionJob)) (*jobs.ConversionJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	job, ok := f.jobs[id]
	if !ok {
		return nil, jobs.ErrNotFound
	}
	if job.Status != from {
		return nil, jobs.ErrInvalidTransition
	}

	apply(job)
	job.UpdatedAt = time.Now()
	return copyJob(job), nil
}

func copyJob(j *jobs.ConversionJob) *jobs.ConversionJob {
	out := *j
	return &out
}

// fakeBlob is a map-backed blob store.
type fakeBlob struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeBlob() *fakeBlob {
	return &fakeBlob{objects: make(map[string][]byte)}
}

func (f *fakeBlob) Store(ctx context.Context, key string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	return nil
}

func (f *fakeBlob) Retrieve(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	if !ok {
		return nil, blob.ErrNotFound
	}
	return data, nil
}

func (f *fakeBlob) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

func (f *fakeBlob) Exists(ctx context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok, nil
}

func (f *fakeBlob) IssueUploadURL(key, contentType string, ttl time.Duration) (*blob.UploadDescriptor, error) {
	return &blob.UploadDescriptor{
		URL:     "http://blobs.test/blob/" + key,
		Method:  "PUT",
		Fields:  map[string]string{"Content-Type": contentType},
		Expires: time.Now().Add(ttl),
	}, nil
}

func (f *fakeBlob) IssueDownloadURL(key string, ttl time.Duration) (string, error) {
	return "http://blobs.test/blob/" + key, nil
}

func (f *fakeBlob) Verify(method, key, contentType string, expires int64, signature string) error {
	return nil
}

func (f *fakeBlob) Start(lc *lifecycle.Coordinator) error {
	return nil
}

type fakeExtractor struct {
	fn func(ctx context.Context, data []byte) (*extract.Result, error)
}

func (f *fakeExtractor) Extract(ctx context.Context, data []byte) (*extract.Result, error) {
	return f.fn(ctx, data)
}

type fixture struct {
	orch   *convert.Orchestrator
	jobs   *fakeJobs
	blobs  *fakeBlob
	quotas quota.System
}

func okExtractor() *fakeExtractor {
	return &fakeExtractor{
		fn: func(ctx context.Context, data []byte) (*extract.Result, error) {
			return &extract.Result{
				Tables: []extract.Table{
					{PageNumber: 1, Rows: [][]string{{"a", "b"}, {"c", "d"}}},
				},
			}, nil
		},
	}
}

func newFixture(t *testing.T, allotment, maxAttempts int, extractor convert.Extractor) *fixture {
	t.Helper()

	blobCfg := config.BlobConfig{PresignSecret: "test-secret"}
	if err := blobCfg.Finalize(); err != nil {
		t.Fatalf("finalize blob config: %v", err)
	}

	convertCfg := config.ConvertConfig{MaxAttempts: maxAttempts}
	if err := convertCfg.Finalize(); err != nil {
		t.Fatalf("finalize convert config: %v", err)
	}

	quotaCfg := config.QuotaConfig{FreeAllotment: allotment}
	if err := quotaCfg.Finalize(); err != nil {
		t.Fatalf("finalize quota config: %v", err)
	}

	jobStore := newFakeJobs()
	blobStore := newFakeBlob()
	quotaSys := quota.NewMemory(&quotaCfg)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	orch := convert.NewOrchestrator(jobStore, quotaSys, blobStore, extractor, blobCfg, convertCfg, logger)

	return &fixture{orch: orch, jobs: jobStore, blobs: blobStore, quotas: quotaSys}
}

// requestAndUpload runs the handshake through a completed upload.
func (f *fixture) requestAndUpload(t *testing.T, owner string) *jobs.ConversionJob {
	t.Helper()

	grant, err := f.orch.RequestUpload(context.Background(), owner, convert.UploadRequest{
		Filename:    "report.pdf",
		ContentType: "application/pdf",
		SizeBytes:   1024,
	})
	if err != nil {
		t.Fatalf("RequestUpload: %v", err)
	}

	if err := f.blobs.Store(context.Background(), grant.Job.SourceKey, []byte("%PDF-1.7 test")); err != nil {
		t.Fatalf("storing source: %v", err)
	}
	return grant.Job
}

func TestRequestUploadRejectsNonPDF(t *testing.T) {
	f := newFixture(t, 5, 3, okExtractor())

	_, err := f.orch.RequestUpload(context.Background(), "user-1", convert.UploadRequest{
		Filename:    "cats.png",
		ContentType: "image/png",
		SizeBytes:   100,
	})
	if !errors.Is(err, convert.ErrUnsupportedType) {
		t.Errorf("expected ErrUnsupportedType, got %v", err)
	}
}

func TestRequestUploadRejectsOversize(t *testing.T) {
	f := newFixture(t, 5, 3, okExtractor())

	_, err := f.orch.RequestUpload(context.Background(), "user-1", convert.UploadRequest{
		Filename:    "huge.pdf",
		ContentType: "application/pdf",
		SizeBytes:   1 << 40,
	})
	if !errors.Is(err, convert.ErrTooLarge) {
		t.Errorf("expected ErrTooLarge, got %v", err)
	}
}

func TestUploadHandshake(t *testing.T) {
	f := newFixture(t, 5, 3, okExtractor())

	grant, err := f.orch.RequestUpload(context.Background(), "user-1", convert.UploadRequest{
		Filename:    "report.pdf",
		ContentType: "application/pdf",
		SizeBytes:   1024,
	})
	if err != nil {
		t.Fatalf("RequestUpload: %v", err)
	}

	if grant.Job.Status != jobs.StatusPendingUpload {
		t.Errorf("status = %s, want %s", grant.Job.Status, jobs.StatusPendingUpload)
	}
	if grant.Upload.Method != "PUT" {
		t.Errorf("method = %s, want PUT", grant.Upload.Method)
	}
	if grant.Upload.URL == "" {
		t.Error("expected a presigned URL")
	}
}

func TestConfirmUpload(t *testing.T) {
	f := newFixture(t, 5, 3, okExtractor())
	job := f.requestAndUpload(t, "user-1")

	confirmed, err := f.orch.ConfirmUpload(context.Background(), "user-1", job.ID)
	if err != nil {
		t.Fatalf("ConfirmUpload: %v", err)
	}
	if confirmed.Status != jobs.StatusQueued {
		t.Errorf("status = %s, want %s", confirmed.Status, jobs.StatusQueued)
	}

	rec, err := f.quotas.Get(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("quota get: %v", err)
	}
	if rec.UsedCount != 1 {
		t.Errorf("used count = %d, want 1", rec.UsedCount)
	}
}

func TestConfirmUploadBeforeBytesArrive(t *testing.T) {
	f := newFixture(t, 5, 3, okExtractor())

	grant, err := f.orch.RequestUpload(context.Background(), "user-1", convert.UploadRequest{
		Filename:    "report.pdf",
		ContentType: "application/pdf",
	})
	if err != nil {
		t.Fatalf("RequestUpload: %v", err)
	}

	_, err = f.orch.ConfirmUpload(context.Background(), "user-1", grant.Job.ID)
	if !errors.Is(err, convert.ErrNoUpload) {
		t.Errorf("expected ErrNoUpload, got %v", err)
	}

	// The failed confirmation must not consume quota.
	rec, _ := f.quotas.Get(context.Background(), "user-1")
	if rec.UsedCount != 0 {
		t.Errorf("used count = %d, want 0", rec.UsedCount)
	}
}

func TestDoubleConfirm(t *testing.T) {
	f := newFixture(t, 5, 3, okExtractor())
	job := f.requestAndUpload(t, "user-1")

	if _, err := f.orch.ConfirmUpload(context.Background(), "user-1", job.ID); err != nil {
		t.Fatalf("first confirm: %v", err)
	}

	_, err := f.orch.ConfirmUpload(context.Background(), "user-1", job.ID)
	if !errors.Is(err, jobs.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}

	// The rejected confirmation must not double-consume quota.
	rec, _ := f.quotas.Get(context.Background(), "user-1")
	if rec.UsedCount != 1 {
		t.Errorf("used count = %d, want 1", rec.UsedCount)
	}
}

func TestConfirmForeignJob(t *testing.T) {
	f := newFixture(t, 5, 3, okExtractor())
	job := f.requestAndUpload(t, "user-1")

	_, err := f.orch.ConfirmUpload(context.Background(), "user-2", job.ID)
	if !errors.Is(err, convert.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
}

func TestConfirmOverQuota(t *testing.T) {
	f := newFixture(t, 1, 3, okExtractor())

	first := f.requestAndUpload(t, "user-1")
	if _, err := f.orch.ConfirmUpload(context.Background(), "user-1", first.ID); err != nil {
		t.Fatalf("first confirm: %v", err)
	}

	second := f.requestAndUpload(t, "user-1")
	_, err := f.orch.ConfirmUpload(context.Background(), "user-1", second.ID)
	if !errors.Is(err, quota.ErrExceeded) {
		t.Fatalf("expected ErrExceeded, got %v", err)
	}

	// The over-quota job is failed terminally with the quota kind.
	failed, findErr := f.jobs.Find(context.Background(), second.ID)
	if findErr != nil {
		t.Fatalf("find: %v", findErr)
	}
	if failed.Status != jobs.StatusFailed {
		t.Errorf("status = %s, want %s", failed.Status, jobs.StatusFailed)
	}
	if failed.ErrorKind == nil || *failed.ErrorKind != jobs.KindQuotaExceeded {
		t.Errorf("error kind = %v, want %s", failed.ErrorKind, jobs.KindQuotaExceeded)
	}
}

func TestPaidTierUnmetered(t *testing.T) {
	f := newFixture(t, 1, 3, okExtractor())

	if _, err := f.quotas.SetTier(context.Background(), "user-1", quota.TierPaid); err != nil {
		t.Fatalf("set tier: %v", err)
	}

	for i := 0; i < 3; i++ {
		job := f.requestAndUpload(t, "user-1")
		if _, err := f.orch.ConfirmUpload(context.Background(), "user-1", job.ID); err != nil {
			t.Fatalf("confirm %d: %v", i, err)
		}
	}
}

func TestProcessNextSuccess(t *testing.T) {
	extractor := &fakeExtractor{
		fn: func(ctx context.Context, data []byte) (*extract.Result, error) {
			return &extract.Result{
				Tables:   []extract.Table{{PageNumber: 1, Rows: [][]string{{"a", "b"}, {"c", "d"}}}},
				Warnings: []string{"page 2 skipped: damaged content stream"},
			}, nil
		},
	}
	f := newFixture(t, 5, 3, extractor)

	job := f.requestAndUpload(t, "user-1")
	if _, err := f.orch.ConfirmUpload(context.Background(), "user-1", job.ID); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	claimed, err := f.orch.ProcessNext(context.Background())
	if err != nil {
		t.Fatalf("ProcessNext: %v", err)
	}
	if !claimed {
		t.Fatal("expected a job to be claimed")
	}

	done, _ := f.jobs.Find(context.Background(), job.ID)
	if done.Status != jobs.StatusCompleted {
		t.Fatalf("status = %s, want %s", done.Status, jobs.StatusCompleted)
	}
	if done.ResultKey == nil {
		t.Fatal("expected a result key")
	}
	if len(done.Warnings) != 1 {
		t.Errorf("warnings = %v, want one entry", done.Warnings)
	}

	if exists, _ := f.blobs.Exists(context.Background(), *done.ResultKey); !exists {
		t.Error("result artifact missing from blob store")
	}
}

func TestProcessNextEmptyQueue(t *testing.T) {
	f := newFixture(t, 5, 3, okExtractor())

	claimed, err := f.orch.ProcessNext(context.Background())
	if err != nil {
		t.Fatalf("ProcessNext: %v", err)
	}
	if claimed {
		t.Error("nothing should be claimed from an empty queue")
	}
}

func TestProcessNextNoTables(t *testing.T) {
	extractor := &fakeExtractor{
		fn: func(ctx context.Context, data []byte) (*extract.Result, error) {
			return nil, &extract.Failure{
				Kind:   extract.FailureNoTables,
				Detail: "no tables were found in this document",
			}
		},
	}
	f := newFixture(t, 5, 3, extractor)

	job := f.requestAndUpload(t, "user-1")
	if _, err := f.orch.ConfirmUpload(context.Background(), "user-1", job.ID); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	if _, err := f.orch.ProcessNext(context.Background()); err != nil {
		t.Fatalf("ProcessNext: %v", err)
	}

	failed, _ := f.jobs.Find(context.Background(), job.ID)
	if failed.Status != jobs.StatusFailed {
		t.Fatalf("status = %s, want %s", failed.Status, jobs.StatusFailed)
	}
	if failed.ErrorKind == nil || *failed.ErrorKind != jobs.KindNoTablesFound {
		t.Errorf("error kind = %v, want %s", failed.ErrorKind, jobs.KindNoTablesFound)
	}
	if failed.AttemptCount != 1 {
		t.Errorf("attempt count = %d, want 1 (no retries for empty documents)", failed.AttemptCount)
	}

	// A processed attempt still counts against quota even when it finds
	// no tables.
	rec, _ := f.quotas.Get(context.Background(), "user-1")
	if rec.UsedCount != 1 {
		t.Errorf("used count = %d, want 1", rec.UsedCount)
	}
}

func TestProcessNextUnparsableNoRetry(t *testing.T) {
	extractor := &fakeExtractor{
		fn: func(ctx context.Context, data []byte) (*extract.Result, error) {
			return nil, &extract.Failure{
				Kind:   extract.FailureUnparsable,
				Detail: "document is password protected",
			}
		},
	}
	f := newFixture(t, 5, 3, extractor)

	job := f.requestAndUpload(t, "user-1")
	if _, err := f.orch.ConfirmUpload(context.Background(), "user-1", job.ID); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	if _, err := f.orch.ProcessNext(context.Background()); err != nil {
		t.Fatalf("ProcessNext: %v", err)
	}

	failed, _ := f.jobs.Find(context.Background(), job.ID)
	if failed.Status != jobs.StatusFailed {
		t.Fatalf("status = %s, want %s", failed.Status, jobs.StatusFailed)
	}
	if failed.ErrorKind == nil || *failed.ErrorKind != jobs.KindUnparsableDocument {
		t.Errorf("error kind = %v, want %s", failed.ErrorKind, jobs.KindUnparsableDocument)
	}
	if failed.AttemptCount != 1 {
		t.Errorf("attempt count = %d, want 1", failed.AttemptCount)
	}
}

func TestProcessNextTransientRetriesExhausted(t *testing.T) {
	const maxAttempts = 3

	extractor := &fakeExtractor{
		fn: func(ctx context.Context, data []byte) (*extract.Result, error) {
			return nil, &extract.Failure{
				Kind:   extract.FailureTransient,
				Detail: "extraction timed out",
			}
		},
	}
	f := newFixture(t, 5, maxAttempts, extractor)

	job := f.requestAndUpload(t, "user-1")
	if _, err := f.orch.ConfirmUpload(context.Background(), "user-1", job.ID); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	// Each attempt requeues until the budget runs out.
	for i := 0; i < maxAttempts; i++ {
		claimed, err := f.orch.ProcessNext(context.Background())
		if err != nil {
			t.Fatalf("ProcessNext attempt %d: %v", i+1, err)
		}
		if !claimed {
			t.Fatalf("attempt %d: expected a claim", i+1)
		}

		current, _ := f.jobs.Find(context.Background(), job.ID)
		if i < maxAttempts-1 {
			if current.Status != jobs.StatusQueued {
				t.Fatalf("attempt %d: status = %s, want %s", i+1, current.Status, jobs.StatusQueued)
			}
		}
	}

	final, _ := f.jobs.Find(context.Background(), job.ID)
	if final.Status != jobs.StatusFailed {
		t.Fatalf("status = %s, want %s", final.Status, jobs.StatusFailed)
	}
	if final.ErrorKind == nil || *final.ErrorKind != jobs.KindRetriesExhausted {
		t.Errorf("error kind = %v, want %s", final.ErrorKind, jobs.KindRetriesExhausted)
	}
	if final.AttemptCount != maxAttempts {
		t.Errorf("attempt count = %d, want %d", final.AttemptCount, maxAttempts)
	}

	if claimed, _ := f.orch.ProcessNext(context.Background()); claimed {
		t.Error("terminal job must not be claimable")
	}
}

func TestDownloadURL(t *testing.T) {
	f := newFixture(t, 5, 3, okExtractor())

	job := f.requestAndUpload(t, "user-1")
	if _, err := f.orch.ConfirmUpload(context.Background(), "user-1", job.ID); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	// Not ready while queued.
	if _, err := f.orch.DownloadURL(context.Background(), "user-1", job.ID); !errors.Is(err, convert.ErrNotReady) {
		t.Errorf("expected ErrNotReady, got %v", err)
	}

	if _, err := f.orch.ProcessNext(context.Background()); err != nil {
		t.Fatalf("ProcessNext: %v", err)
	}

	url, err := f.orch.DownloadURL(context.Background(), "user-1", job.ID)
	if err != nil {
		t.Fatalf("DownloadURL: %v", err)
	}
	if url == "" {
		t.Error("expected a download URL")
	}

	// Other owners cannot fetch the artifact.
	if _, err := f.orch.DownloadURL(context.Background(), "user-2", job.ID); !errors.Is(err, convert.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
}

func TestFindUnknownJob(t *testing.T) {
	f := newFixture(t, 5, 3, okExtractor())

	_, err := f.orch.Find(context.Background(), "user-1", uuid.New())
	if !errors.Is(err, jobs.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListFiltersByStatus(t *testing.T) {
	f := newFixture(t, 5, 3, okExtractor())

	first := f.requestAndUpload(t, "user-1")
	if _, err := f.orch.ConfirmUpload(context.Background(), "user-1", first.ID); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	f.requestAndUpload(t, "user-1")

	status := jobs.StatusQueued
	result, err := f.orch.List(context.Background(), "user-1",
		pagination.PageRequest{Page: 1, PageSize: 10}, jobs.Filters{Status: &status})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(result.Data) != 1 {
		t.Fatalf("filtered list = %d jobs, want 1", len(result.Data))
	}
	if result.Data[0].ID != first.ID {
		t.Errorf("unexpected job %s", result.Data[0].ID)
	}
}
