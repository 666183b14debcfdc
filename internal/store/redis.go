package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/neositio/flowbot/internal/models"
)

// DefaultKeyPrefix namespaces flowbot session keys in Redis.
const DefaultKeyPrefix = "flowbot:session:"

// connectTimeout bounds the startup connectivity check.
const connectTimeout = 5 * time.Second

// RedisStore persists sessions in Redis. Expiry is supplied atomically with
// every SET, so writing a session always refreshes its TTL.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a Redis-backed session store. The connection URL is
// required; construction fails fast when it is absent or the server is
// unreachable.
func NewRedisStore(opts ...Option) (*RedisStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("redis session store requires a connection URL")
	}
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	client := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	slog.Info("store.NewRedisStore: connected", "addr", redisOpts.Addr, "prefix", prefix)
	return &RedisStore{client: client, prefix: prefix}, nil
}

// NewRedisStoreFromClient wraps an existing Redis client. Used by tests.
func NewRedisStoreFromClient(client *redis.Client, opts ...Option) *RedisStore {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

// Get returns the session for id, or nil if absent.
func (s *RedisStore) Get(ctx context.Context, id string) (*models.Session, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		slog.Error("store.RedisStore Get error", "error", err, "id", id)
		return nil, fmt.Errorf("failed to get session from redis: %w", err)
	}
	var session models.Session
	if err := json.Unmarshal(data, &session); err != nil {
		slog.Error("store.RedisStore Get unmarshal error", "error", err, "id", id)
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &session, nil
}

// Set persists the session with the given expiry. A zero or negative ttl
// stores the session without expiry.
func (s *RedisStore) Set(ctx context.Context, id string, session models.Session, ttl time.Duration) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := s.client.Set(ctx, s.key(id), data, ttl).Err(); err != nil {
		slog.Error("store.RedisStore Set error", "error", err, "id", id)
		return fmt.Errorf("failed to save session to redis: %w", err)
	}
	return nil
}

// Delete removes the session for id. Deleting an absent session is not an error.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		slog.Error("store.RedisStore Delete error", "error", err, "id", id)
		return fmt.Errorf("failed to delete session from redis: %w", err)
	}
	return nil
}

// List returns all live sessions keyed by correspondent identifier.
func (s *RedisStore) List(ctx context.Context) (map[string]models.Session, error) {
	out := make(map[string]models.Session)
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		data, err := s.client.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				// Expired between SCAN and GET.
				continue
			}
			return nil, fmt.Errorf("failed to get session %q from redis: %w", key, err)
		}
		var session models.Session
		if err := json.Unmarshal(data, &session); err != nil {
			slog.Warn("store.RedisStore List skipping undecodable session", "key", key, "error", err)
			continue
		}
		out[key[len(s.prefix):]] = session
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan redis sessions: %w", err)
	}
	return out, nil
}

// Flush removes every session under the store's prefix. Used on shutdown
// when a full reset is requested.
func (s *RedisStore) Flush(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan redis sessions: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to flush redis sessions: %w", err)
	}
	slog.Info("store.RedisStore flushed sessions", "count", len(keys))
	return nil
}

// Close releases the underlying Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
