// Package store provides session persistence backends for flowbot.
//
// It defines the Store contract owned by the dialogue engine's persistence
// boundary and includes a volatile in-memory backend and a Redis-backed one.
// Both refresh a session's expiry on every write.
package store

import (
	"context"
	"time"

	"github.com/neositio/flowbot/internal/models"
)

// DefaultSessionTTL is the expiry applied to a session when the caller does
// not configure one.
const DefaultSessionTTL = time.Hour

// Store is the session persistence contract. Get returns nil without error
// when no session exists for the correspondent. Set persists the record with
// the given expiry, replacing any previous record and its expiry. List
// returns all live sessions keyed by correspondent identifier.
type Store interface {
	Get(ctx context.Context, id string) (*models.Session, error)
	Set(ctx context.Context, id string, session models.Session, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) (map[string]models.Session, error)
	Close() error
}

// Opts holds configuration options for store backends.
type Opts struct {
	RedisURL  string // connection URL for the Redis backend
	KeyPrefix string // key namespace for the Redis backend
}

// Option defines a configuration option for store backends.
type Option func(*Opts)

// WithRedisURL sets the Redis connection URL.
func WithRedisURL(url string) Option {
	return func(o *Opts) {
		o.RedisURL = url
	}
}

// WithKeyPrefix sets the Redis key namespace.
func WithKeyPrefix(prefix string) Option {
	return func(o *Opts) {
		o.KeyPrefix = prefix
	}
}
