// Package blob provides the blob store adapter for conversion jobs.
// It defines a System interface with presigned upload/download URL
// capability and includes a filesystem implementation suitable for
// development and single-node deployments. Presigned URLs are the only
// mechanism by which raw file bytes cross the client boundary; the API
// process never proxies file content.
package blob

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sheetdrop/sheetdrop/pkg/lifecycle"
)

// UploadDescriptor describes a presigned upload location. Fields carry
// the values the client must send alongside the upload request.
type UploadDescriptor struct {
	URL     string            `json:"url"`
	Method  string            `json:"method"`
	Fields  map[string]string `json:"fields"`
	Expires time.Time         `json:"expires"`
}

// System defines blob store operations. Implementations handle the
// underlying storage mechanism while providing key-addressed access and
// time-limited signed URLs.
type System interface {
	// Store saves data at the specified key, overwriting any existing
	// content. Returns ErrInvalidKey if the key is malformed.
	Store(ctx context.Context, key string, data []byte) error

	// Retrieve returns the data stored at the specified key.
	// Returns ErrNotFound if the key does not exist.
	Retrieve(ctx context.Context, key string) ([]byte, error)

	// Delete removes the data at the specified key. Deleting a missing
	// key is not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether the key holds readable data.
	Exists(ctx context.Context, key string) (bool, error)

	// IssueUploadURL returns a presigned descriptor permitting a single
	// PUT of the given content type to key within ttl.
	IssueUploadURL(key, contentType string, ttl time.Duration) (*UploadDescriptor, error)

	// IssueDownloadURL returns a presigned GET URL for key valid for ttl.
	IssueDownloadURL(key string, ttl time.Duration) (string, error)

	// Verify checks a presigned request's signature and expiry. The blob
	// store enforces URL expiry, not the components that issue the URLs.
	Verify(method, key, contentType string, expires int64, signature string) error

	// Start registers lifecycle hooks with the coordinator.
	Start(lc *lifecycle.Coordinator) error
}

// SourceKey builds the namespaced key for a job's uploaded PDF.
// Keys are scoped by owner then job so each job's objects are unique.
func SourceKey(ownerID string, jobID uuid.UUID, filename string) string {
	return fmt.Sprintf("users/%s/jobs/%s/source/%s", ownerID, jobID, sanitizeFilename(filename))
}

// ResultKey builds the namespaced key for a job's generated spreadsheet.
func ResultKey(ownerID string, jobID uuid.UUID) string {
	return fmt.Sprintf("users/%s/jobs/%s/result/tables.xlsx", ownerID, jobID)
}

func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	replacer := strings.NewReplacer(
		" ", "_",
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
	)
	return replacer.Replace(name)
}
