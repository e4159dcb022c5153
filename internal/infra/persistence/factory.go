// Package persistence selects the storage backend for named collections.
package persistence

import (
	"context"
	"fmt"
	"os"

	"github.com/Involve-Digital/DoctrineCollectionsReadonly/internal/infra/persistence/postgres"
	"github.com/Involve-Digital/DoctrineCollectionsReadonly/internal/infra/persistence/sqlcollection"
	"github.com/Involve-Digital/DoctrineCollectionsReadonly/internal/infra/persistence/sqlite"
	"github.com/Involve-Digital/DoctrineCollectionsReadonly/pkg/collection"
)

// Driver identifies a concrete storage implementation.
type Driver string

const (
	DriverMemory   Driver = "memory"   // in-memory only (tests / ephemeral)
	DriverSQLite   Driver = "sqlite"   // embedded sqlite file
	DriverPostgres Driver = "postgres" // PostgreSQL server
)

// Store is a collection that can be queried and must be closed.
type Store[K comparable, V any] interface {
	collection.Collection[K, V]
	collection.Queryable[K, V]
	Close() error
}

type memoryStore[K comparable, V any] struct {
	*collection.ArrayCollection[K, V]
}

func (memoryStore[K, V]) Close() error { return nil }

// DriverFromEnv reports the configured driver, sqlite when unset.
func DriverFromEnv() Driver {
	if d := os.Getenv("ROCOLLECTIONS_STORAGE_DRIVER"); d != "" {
		return Driver(d)
	}
	return DriverSQLite
}

// OpenFromEnv opens collection name on the backend chosen by environment
// variables:
//
//	ROCOLLECTIONS_STORAGE_DRIVER: memory|sqlite|postgres (default sqlite)
//	ROCOLLECTIONS_SQLITE_PATH: path to sqlite file (default ./collections.db)
//	ROCOLLECTIONS_POSTGRES_DSN: postgres DSN when driver=postgres
func OpenFromEnv[K comparable, V any](ctx context.Context, name string) (Store[K, V], error) {
	switch driver := DriverFromEnv(); driver {
	case DriverMemory:
		return memoryStore[K, V]{collection.NewArrayCollection[K, V]()}, nil
	case DriverSQLite:
		return store(sqlite.Open[K, V](ctx, os.Getenv("ROCOLLECTIONS_SQLITE_PATH"), name))
	case DriverPostgres:
		return store(postgres.Open[K, V](ctx, os.Getenv("ROCOLLECTIONS_POSTGRES_DSN"), name))
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}

func store[K comparable, V any](c *sqlcollection.Collection[K, V], err error) (Store[K, V], error) {
	if err != nil {
		return nil, err
	}
	return c, nil
}
