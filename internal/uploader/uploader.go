// Package uploader ships harness run directories to external storage.
package uploader

import (
	"context"
	"strings"

	"seki/internal/config"
)

// Uploader publishes a run directory and returns its remote location.
type Uploader interface {
	Enabled() bool
	UploadDir(ctx context.Context, dir string) (string, error)
}

// NoopUploader keeps runs local.
type NoopUploader struct{}

func (n NoopUploader) Enabled() bool {
	return false
}

func (n NoopUploader) UploadDir(ctx context.Context, dir string) (string, error) {
	return "", nil
}

// New selects the configured backend. S3 wins when both are enabled.
func New(cfg config.StorageConfig) (Uploader, error) {
	switch {
	case cfg.S3.Enabled:
		return NewS3(cfg.S3)
	case cfg.GCS.Enabled:
		return NewGCS(cfg.GCS)
	default:
		return NoopUploader{}, nil
	}
}

// contentTypeFor maps run artifacts to upload content types so stored
// objects render directly in a browser. Unknown names get no type.
func contentTypeFor(name string) string {
	switch {
	case strings.HasSuffix(name, ".json"):
		return "application/json"
	case strings.HasSuffix(name, ".md"):
		return "text/markdown"
	case strings.HasSuffix(name, ".txt"):
		return "text/plain"
	case strings.HasSuffix(name, ".tar.zst"):
		return "application/zstd"
	default:
		return ""
	}
}
