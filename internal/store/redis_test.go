package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/neositio/flowbot/internal/models"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisStoreFromClient(client), mr
}

func TestRedisStoreContract(t *testing.T) {
	s, _ := newTestRedisStore(t)
	runStoreContract(t, s)
}

func TestRedisStoreExpiry(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestRedisStore(t)

	session := models.Session{Flow: "flow-main", Step: 0, Data: map[string]string{}}
	if err := s.Set(ctx, "506111", session, time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	got, err := s.Get(ctx, "506111")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected expired session to be absent, got %+v", got)
	}
}

func TestRedisStoreWriteRefreshesExpiry(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestRedisStore(t)

	session := models.Session{Flow: "flow-main", Step: 0, Data: map[string]string{}}
	if err := s.Set(ctx, "506111", session, time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mr.FastForward(30 * time.Second)

	session.Step = 1
	if err := s.Set(ctx, "506111", session, time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mr.FastForward(45 * time.Second)

	got, err := s.Get(ctx, "506111")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.Step != 1 {
		t.Errorf("expected refreshed session to survive the original deadline, got %+v", got)
	}
}

func TestRedisStoreFlush(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestRedisStore(t)

	for _, id := range []string{"506111", "506222"} {
		if err := s.Set(ctx, id, models.Session{Flow: "flow-main"}, time.Minute); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if err := s.Flush(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	all, err := s.List(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("expected flush to remove all sessions, got %v", all)
	}
}

func TestNewRedisStoreRequiresURL(t *testing.T) {
	if _, err := NewRedisStore(); err == nil {
		t.Error("expected error when no redis URL is configured")
	}
}
