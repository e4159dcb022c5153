package blob

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestOpenSelectsDriver(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		driver string
		want   Driver
	}{
		{"", DriverFilesystem},
		{"fs", DriverFilesystem},
		{"memory", DriverMemory},
	}
	for _, tc := range cases {
		t.Run(string(tc.want)+"/"+tc.driver, func(t *testing.T) {
			t.Setenv("ROCOLLECTIONS_BLOB_DRIVER", tc.driver)
			t.Setenv("ROCOLLECTIONS_BLOB_FS_ROOT", filepath.Join(t.TempDir(), "blobs"))
			s, err := Open(ctx)
			if err != nil {
				t.Fatalf("open: %v", err)
			}
			if s.Driver() != tc.want {
				t.Fatalf("driver %s, want %s", s.Driver(), tc.want)
			}
			if _, err := s.Put(ctx, "k", strings.NewReader("v"), PutOptions{}); err != nil {
				t.Fatalf("put: %v", err)
			}
			if _, err := s.Put(ctx, "k", strings.NewReader("v"), PutOptions{}); !errors.Is(err, ErrExists) {
				t.Fatalf("expected ErrExists, got %v", err)
			}
			if _, err := s.Head(ctx, "missing"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestOpenS3RequiresBucket(t *testing.T) {
	t.Setenv("ROCOLLECTIONS_BLOB_DRIVER", "s3")
	t.Setenv("ROCOLLECTIONS_BLOB_S3_BUCKET", "")
	if _, err := Open(context.Background()); err == nil {
		t.Fatalf("expected missing bucket error")
	}
	t.Setenv("ROCOLLECTIONS_BLOB_S3_BUCKET", "bkt")
	t.Setenv("ROCOLLECTIONS_BLOB_S3_ACCESS_KEY_ID", "AKIA")
	t.Setenv("ROCOLLECTIONS_BLOB_S3_SECRET_ACCESS_KEY", "SECRET")
	s, err := Open(context.Background())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if s.Driver() != DriverS3 {
		t.Fatalf("driver %s", s.Driver())
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Setenv("ROCOLLECTIONS_BLOB_DRIVER", "ftp")
	if _, err := Open(context.Background()); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}
