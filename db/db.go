// Package db defines the filegate store facade. Callers depend on the
// iface.Database contract; the Redis engine underneath is an implementation
// detail selected here.
package db

import (
	"context"

	"github.com/filegate/filegate/db/iface"
	"github.com/filegate/filegate/db/redis"
)

// Database wraps the store interface for convenience at call sites.
type Database = iface.Database

// ReadOnlyDatabase wraps the read-side store interface.
type ReadOnlyDatabase = iface.ReadOnlyDatabase

// Store errors re-exported from the engine. Match with errors.Is.
var (
	ErrNotFound      = redis.ErrNotFound
	ErrAlreadyExists = redis.ErrAlreadyExists
	ErrTransient     = redis.ErrTransient
)

// Config holds store connection parameters.
type Config = redis.Config

// NewDB connects to the backing store and returns the database abstraction.
func NewDB(ctx context.Context, cfg *Config) (Database, error) {
	return redis.NewStore(ctx, cfg)
}
