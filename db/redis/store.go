// Package redis implements the filegate store on a Redis backend. All
// cross-process invariants (token compare-and-set transitions, quota
// counters, set idempotence) are enforced server side, either by single
// commands or by the Lua scripts in scripts.go, so the three filegate
// processes can share one store without in-process locking.
package redis

import (
	"context"
	"net"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "db")

// Store errors surfaced to callers. Wrapped with operation context; match
// with errors.Is.
var (
	// ErrNotFound is returned when no record exists under the requested key.
	ErrNotFound = errors.New("not found in store")
	// ErrAlreadyExists is returned when an insert collides with an existing
	// primary key.
	ErrAlreadyExists = errors.New("already exists in store")
	// ErrTransient marks retryable connectivity failures.
	ErrTransient = errors.New("transient store failure")
)

// tokenGrace is how long past its expiry a token record stays readable
// before the store evicts it. User records are never evicted.
const tokenGrace = 24 * time.Hour

// actionLogCap bounds the operator action log length.
const actionLogCap = 1000

// Config holds connection parameters for the store.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// Store is the Redis-backed implementation of the filegate database
// interface.
type Store struct {
	client *redis.Client
}

// NewStore connects to Redis, verifies connectivity, and returns the store.
func NewStore(ctx context.Context, cfg *Config) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	s := &Store{client: client}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.Ping(pingCtx); err != nil {
		if cerr := client.Close(); cerr != nil {
			log.WithError(cerr).Debug("Could not close client after failed ping")
		}
		return nil, err
	}
	return s, nil
}

// Ping verifies store connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return mapError(s.client.Ping(ctx).Err(), "ping")
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.client.Close()
}

// mapError normalizes engine errors into the store taxonomy: missing keys
// become ErrNotFound, connectivity failures become ErrTransient, context
// errors pass through, and anything else is wrapped as-is.
func mapError(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, redis.Nil) {
		return errors.Wrap(ErrNotFound, op)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return errors.Wrap(err, op)
	}
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, redis.TxFailedErr) {
		return errors.Wrapf(ErrTransient, "%s: %v", op, err)
	}
	return errors.Wrap(err, op)
}
