package store

import (
	"context"
	"testing"
	"time"

	"github.com/neositio/flowbot/internal/models"
)

func TestMemoryStoreContract(t *testing.T) {
	runStoreContract(t, NewMemoryStore())
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	session := models.Session{Flow: "flow-main", Step: 0, Data: map[string]string{}}
	if err := s.Set(ctx, "506111", session, 10*time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := s.Get(ctx, "506111")
	if err != nil || got == nil {
		t.Fatalf("expected live session, got %+v (err %v)", got, err)
	}

	time.Sleep(20 * time.Millisecond)

	got, err = s.Get(ctx, "506111")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected expired session to be absent, got %+v", got)
	}
	all, err := s.List(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("expected no live sessions, got %v", all)
	}
}

func TestMemoryStoreWriteRefreshesExpiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	session := models.Session{Flow: "flow-main", Step: 0, Data: map[string]string{}}
	if err := s.Set(ctx, "506111", session, 15*time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	// The rewrite replaces the entry, deadline included.
	session.Step = 1
	if err := s.Set(ctx, "506111", session, 50*time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	got, err := s.Get(ctx, "506111")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.Step != 1 {
		t.Errorf("expected refreshed session to survive the original deadline, got %+v", got)
	}
}

func TestMemoryStoreZeroTTLNeverExpires(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	if err := s.Set(ctx, "506111", models.Session{Flow: "flow-main"}, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := s.Get(ctx, "506111")
	if err != nil || got == nil {
		t.Errorf("expected session without expiry to persist, got %+v (err %v)", got, err)
	}
}
