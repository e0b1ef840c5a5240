package blob

import (
	"context"
	"fmt"
	"os"

	"colonybot/internal/infra/blob/fs"
	memorystore "colonybot/internal/infra/blob/memory"
	infraS3 "colonybot/internal/infra/blob/s3"
)

// Environment variables read by Open.
const (
	EnvDriver = "COLONYBOT_BLOB_DRIVER"
	EnvFSRoot = "COLONYBOT_BLOB_FS_ROOT"
)

// Open selects the blob store backing the blob key/value driver.
//
//	COLONYBOT_BLOB_DRIVER: fs|s3|memory (default fs)
//	COLONYBOT_BLOB_FS_ROOT: directory root when driver=fs (default ./blobdata)
//	(S3 specific variables documented in internal/infra/blob/s3)
func Open(ctx context.Context) (Store, error) {
	driver := os.Getenv(EnvDriver)
	if driver == "" {
		driver = string(DriverFilesystem)
	}
	switch Driver(driver) {
	case DriverFilesystem:
		return NewFilesystem(os.Getenv(EnvFSRoot))
	case DriverS3:
		s, err := infraS3.OpenFromEnv(ctx)
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

// NewFilesystem returns a store keeping each blob as a file under root.
func NewFilesystem(root string) (Store, error) {
	s, err := fs.New(root)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// NewMemory returns a process-local store; state is lost on exit.
func NewMemory() Store { return memorystore.New() }

// NewMockS3ForTests returns the S3 store wired to an in-process fake bucket.
func NewMockS3ForTests() Store { return infraS3.NewMockForTests() }
