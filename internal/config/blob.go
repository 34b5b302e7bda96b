package config

import (
	"fmt"
	"os"
	"time"

	"github.com/docker/go-units"
)

// Environment variable names for blob store configuration.
const (
	EnvBlobBasePath      = "BLOB_BASE_PATH"
	EnvBlobMaxUploadSize = "BLOB_MAX_UPLOAD_SIZE"
	EnvBlobPresignSecret = "BLOB_PRESIGN_SECRET"
	EnvBlobPublicBaseURL = "BLOB_PUBLIC_BASE_URL"
)

// BlobConfig contains blob store configuration, including the presigned
// URL signing secret and time-to-live windows.
type BlobConfig struct {
	// BasePath is the root directory for filesystem-backed blob storage.
	BasePath string `toml:"base_path"`

	// MaxUploadSize caps the declared size of an uploaded document,
	// expressed in human-readable form (e.g. "25MB").
	MaxUploadSize    string `toml:"max_upload_size"`
	maxUploadSizeVal int64

	// PresignSecret keys the HMAC used to sign upload and download URLs.
	PresignSecret string `toml:"presign_secret"`

	// PublicBaseURL is the externally reachable base for presigned URLs.
	PublicBaseURL string `toml:"public_base_url"`

	UploadTTL   string `toml:"upload_ttl"`
	DownloadTTL string `toml:"download_ttl"`
}

// MaxUploadSizeBytes returns the parsed upload cap in bytes.
func (c *BlobConfig) MaxUploadSizeBytes() int64 {
	return c.maxUploadSizeVal
}

// UploadTTLDuration parses and returns the upload URL validity window.
func (c *BlobConfig) UploadTTLDuration() time.Duration {
	d, _ := time.ParseDuration(c.UploadTTL)
	return d
}

// DownloadTTLDuration parses and returns the download URL validity window.
func (c *BlobConfig) DownloadTTLDuration() time.Duration {
	d, _ := time.ParseDuration(c.DownloadTTL)
	return d
}

// Finalize applies defaults, loads environment overrides, and validates the blob configuration.
func (c *BlobConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge applies values from overlay configuration that differ from zero values.
func (c *BlobConfig) Merge(overlay *BlobConfig) {
	if overlay.BasePath != "" {
		c.BasePath = overlay.BasePath
	}
	if overlay.MaxUploadSize != "" {
		c.MaxUploadSize = overlay.MaxUploadSize
	}
	if overlay.PresignSecret != "" {
		c.PresignSecret = overlay.PresignSecret
	}
	if overlay.PublicBaseURL != "" {
		c.PublicBaseURL = overlay.PublicBaseURL
	}
	if overlay.UploadTTL != "" {
		c.UploadTTL = overlay.UploadTTL
	}
	if overlay.DownloadTTL != "" {
		c.DownloadTTL = overlay.DownloadTTL
	}
}

func (c *BlobConfig) loadDefaults() {
	if c.BasePath == "" {
		c.BasePath = ".data/blobs"
	}
	if c.MaxUploadSize == "" {
		c.MaxUploadSize = "25MB"
	}
	if c.PublicBaseURL == "" {
		c.PublicBaseURL = "http://localhost:8080"
	}
	if c.UploadTTL == "" {
		c.UploadTTL = "15m"
	}
	if c.DownloadTTL == "" {
		c.DownloadTTL = "1h"
	}
}

func (c *BlobConfig) loadEnv() {
	if v := os.Getenv(EnvBlobBasePath); v != "" {
		c.BasePath = v
	}
	if v := os.Getenv(EnvBlobMaxUploadSize); v != "" {
		c.MaxUploadSize = v
	}
	if v := os.Getenv(EnvBlobPresignSecret); v != "" {
		c.PresignSecret = v
	}
	if v := os.Getenv(EnvBlobPublicBaseURL); v != "" {
		c.PublicBaseURL = v
	}
}

func (c *BlobConfig) validate() error {
	if c.BasePath == "" {
		return fmt.Errorf("base_path required")
	}
	if c.PresignSecret == "" {
		return fmt.Errorf("presign_secret required")
	}

	size, err := units.FromHumanSize(c.MaxUploadSize)
	if err != nil {
		return fmt.Errorf("invalid max_upload_size: %w", err)
	}
	if size <= 0 {
		return fmt.Errorf("max_upload_size must be positive")
	}
	c.maxUploadSizeVal = size

	if _, err := time.ParseDuration(c.UploadTTL); err != nil {
		return fmt.Errorf("invalid upload_ttl: %w", err)
	}
	if _, err := time.ParseDuration(c.DownloadTTL); err != nil {
		return fmt.Errorf("invalid download_ttl: %w", err)
	}
	return nil
}
