package core

import (
	"context"
	"fmt"
	"os"

	"colonybot/internal/blob"
	"colonybot/internal/infra/persistence/blobkv"
	"colonybot/internal/infra/persistence/memory"
	"colonybot/internal/infra/persistence/postgres"
	"colonybot/internal/infra/persistence/sqlite"
	"colonybot/pkg/domain"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
	StorageBlob     StorageDriver = "blob"     // one object per key in a blob store
)

// Environment variables read by OpenPersistentStore.
const (
	EnvStorageDriver = "COLONYBOT_STORAGE_DRIVER"
	EnvSQLitePath    = "COLONYBOT_SQLITE_PATH"
	EnvPostgresDSN   = "COLONYBOT_POSTGRES_DSN"
	EnvBlobPrefix    = "COLONYBOT_BLOB_KV_PREFIX"
)

type PersistentStore = domain.PersistentStore

// OpenPersistentStore selects a backend using environment variables.
// Defaults to sqlite when unset.
//
//	COLONYBOT_STORAGE_DRIVER: memory|sqlite|postgres|blob (default sqlite)
//	COLONYBOT_SQLITE_PATH: path to sqlite file (default ./colonybot.db)
//	COLONYBOT_POSTGRES_DSN: postgres DSN when driver=postgres
//	COLONYBOT_BLOB_KV_PREFIX: object key prefix when driver=blob (default kv/)
//	(blob backend selection documented in internal/blob)
func OpenPersistentStore(ctx context.Context) (PersistentStore, error) {
	driver := os.Getenv(EnvStorageDriver)
	if driver == "" {
		driver = string(StorageSQLite)
	}
	return OpenStorage(ctx, StorageDriver(driver), StorageSettings{
		SQLitePath:  os.Getenv(EnvSQLitePath),
		PostgresDSN: os.Getenv(EnvPostgresDSN),
		BlobPrefix:  os.Getenv(EnvBlobPrefix),
	})
}

// StorageSettings carries backend specific parameters for OpenStorage.
type StorageSettings struct {
	SQLitePath  string
	PostgresDSN string
	BlobPrefix  string
}

// OpenStorage opens the backend named by driver.
func OpenStorage(ctx context.Context, driver StorageDriver, settings StorageSettings) (PersistentStore, error) {
	switch driver {
	case StorageMemory:
		return memory.NewStore(), nil
	case StorageSQLite:
		s, err := sqlite.NewStore(settings.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case StoragePostgres:
		ps, err := postgres.NewStore(ctx, settings.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return ps, nil
	case StorageBlob:
		blobs, err := blob.Open(ctx)
		if err != nil {
			return nil, fmt.Errorf("open blob storage: %w", err)
		}
		return blobkv.NewStore(blobs, settings.BlobPrefix), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
