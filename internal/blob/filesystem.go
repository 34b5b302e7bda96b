package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sheetdrop/sheetdrop/internal/config"
	"github.com/sheetdrop/sheetdrop/pkg/lifecycle"
)

// filesystem implements System using the local filesystem.
// Blobs are stored as files under a configurable base path, with keys
// mapping directly to relative file paths. Signed URLs are validated by
// the Handler, which fronts this store over HTTP.
type filesystem struct {
	basePath string
	baseURL  string
	signer   *signer
	logger   *slog.Logger
}

// New creates a filesystem blob store. The base path is resolved to an
// absolute path during construction; directory creation is deferred to
// Start for lifecycle integration.
func New(cfg *config.BlobConfig, logger *slog.Logger) (System, error) {
	if cfg.BasePath == "" {
		return nil, fmt.Errorf("base_path required")
	}

	absPath, err := filepath.Abs(cfg.BasePath)
	if err != nil {
		return nil, fmt.Errorf("resolve base_path: %w", err)
	}

	return &filesystem{
		basePath: absPath,
		baseURL:  strings.TrimSuffix(cfg.PublicBaseURL, "/"),
		signer:   newSigner(cfg.PresignSecret),
		logger:   logger.With("system", "blob"),
	}, nil
}

func (f *filesystem) Start(lc *lifecycle.Coordinator) error {
	f.logger.Info("starting blob store", "base_path", f.basePath)

	lc.OnStartup(func() {
		if err := os.MkdirAll(f.basePath, 0755); err != nil {
			f.logger.Error("blob store initialization failed", "error", err)
			return
		}
		f.logger.Info("blob store directory initialized")
	})

	return nil
}

func (f *filesystem) Store(ctx context.Context, key string, data []byte) error {
	path, err := f.fullPath(key)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}

func (f *filesystem) Retrieve(ctx context.Context, key string) ([]byte, error) {
	path, err := f.fullPath(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		if errors.Is(err, fs.ErrPermission) {
			return nil, ErrPermissionDenied
		}
		return nil, fmt.Errorf("read file: %w", err)
	}

	return data, nil
}

func (f *filesystem) Delete(ctx context.Context, key string) error {
	path, err := f.fullPath(key)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if errors.Is(err, fs.ErrPermission) {
			return ErrPermissionDenied
		}
		return fmt.Errorf("remove file: %w", err)
	}

	f.cleanupEmptyDirs(filepath.Dir(path))
	return nil
}

func (f *filesystem) Exists(ctx context.Context, key string) (bool, error) {
	path, err := f.fullPath(key)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		if errors.Is(err, fs.ErrPermission) {
			return false, ErrPermissionDenied
		}
		return false, fmt.Errorf("stat file: %w", err)
	}

	return true, nil
}

func (f *filesystem) IssueUploadURL(key, contentType string, ttl time.Duration) (*UploadDescriptor, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	expires := time.Now().Add(ttl)
	return &UploadDescriptor{
		URL:    f.signer.signedURL(f.baseURL, "PUT", key, contentType, expires.Unix()),
		Method: "PUT",
		Fields: map[string]string{
			"Content-Type": contentType,
		},
		Expires: expires,
	}, nil
}

func (f *filesystem) IssueDownloadURL(key string, ttl time.Duration) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}

	expires := time.Now().Add(ttl).Unix()
	return f.signer.signedURL(f.baseURL, "GET", key, "", expires), nil
}

func (f *filesystem) Verify(method, key, contentType string, expires int64, signature string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	return f.signer.verify(method, key, contentType, expires, signature, time.Now())
}

func (f *filesystem) cleanupEmptyDirs(dir string) {
	for dir != f.basePath && strings.HasPrefix(dir, f.basePath) {
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return
		}
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}

func (f *filesystem) fullPath(key string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}

	fullPath := filepath.Join(f.basePath, filepath.Clean(key))
	if !strings.HasPrefix(fullPath, f.basePath) {
		return "", ErrInvalidKey
	}

	return fullPath, nil
}

func validateKey(key string) error {
	if key == "" {
		return ErrInvalidKey
	}

	cleaned := filepath.Clean(key)
	if strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return ErrInvalidKey
	}
	return nil
}
