package uploader

import (
	"context"
	"testing"

	"seki/internal/config"
)

func TestNewDefaultsToNoop(t *testing.T) {
	up, err := New(config.StorageConfig{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, ok := up.(NoopUploader); !ok {
		t.Fatalf("uploader type %T, want NoopUploader", up)
	}
	if up.Enabled() {
		t.Fatalf("noop reports enabled")
	}
	location, err := up.UploadDir(context.Background(), t.TempDir())
	if err != nil || location != "" {
		t.Fatalf("noop upload: %q %v", location, err)
	}
}

func TestDisabledBackendsUploadNothing(t *testing.T) {
	s3up, err := NewS3(config.S3Config{})
	if err != nil {
		t.Fatalf("new s3: %v", err)
	}
	if s3up.Enabled() {
		t.Fatalf("disabled s3 reports enabled")
	}
	if location, err := s3up.UploadDir(context.Background(), t.TempDir()); err != nil || location != "" {
		t.Fatalf("disabled s3 upload: %q %v", location, err)
	}

	gcsup, err := NewGCS(config.GCSConfig{})
	if err != nil {
		t.Fatalf("new gcs: %v", err)
	}
	if gcsup.Enabled() {
		t.Fatalf("disabled gcs reports enabled")
	}
	if location, err := gcsup.UploadDir(context.Background(), t.TempDir()); err != nil || location != "" {
		t.Fatalf("disabled gcs upload: %q %v", location, err)
	}
}

func TestContentTypeFor(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"summary.json", "application/json"},
		{"README.md", "text/markdown"},
		{"grammar.txt", "text/plain"},
		{"run.tar.zst", "application/zstd"},
		{"plan.bin", ""},
	}
	for _, tc := range cases {
		if got := contentTypeFor(tc.name); got != tc.want {
			t.Errorf("contentTypeFor(%q) = %q, want %q", tc.name, got, tc.want)
		}
	}
}
