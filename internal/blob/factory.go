package blob

import (
	"context"
	"fmt"
	"os"

	"github.com/Involve-Digital/DoctrineCollectionsReadonly/internal/infra/blob/fs"
	"github.com/Involve-Digital/DoctrineCollectionsReadonly/internal/infra/blob/memory"
	"github.com/Involve-Digital/DoctrineCollectionsReadonly/internal/infra/blob/s3"
)

// Open selects a Store implementation using environment variables.
//
//	ROCOLLECTIONS_BLOB_DRIVER: fs|s3|memory (default fs)
//	ROCOLLECTIONS_BLOB_FS_ROOT: directory root when driver=fs (default ./blobdata)
//	(S3 variables are documented on s3.OpenFromEnv)
func Open(ctx context.Context) (Store, error) {
	driver := os.Getenv("ROCOLLECTIONS_BLOB_DRIVER")
	if driver == "" {
		driver = string(DriverFilesystem)
	}
	switch Driver(driver) {
	case DriverFilesystem:
		return NewFilesystem(os.Getenv("ROCOLLECTIONS_BLOB_FS_ROOT"))
	case DriverS3:
		s, err := s3.OpenFromEnv(ctx)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}

// NewFilesystem returns a filesystem store rooted at root.
func NewFilesystem(root string) (Store, error) {
	s, err := fs.New(root)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// NewMemory returns an empty in-memory store.
func NewMemory() Store { return memory.New() }
