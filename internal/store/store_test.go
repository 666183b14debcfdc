package store

import (
	"context"
	"testing"
	"time"

	"github.com/neositio/flowbot/internal/models"
)

// runStoreContract exercises the Store contract shared by every backend.
func runStoreContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	got, err := s.Get(ctx, "50688888888")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected absent session, got %+v", got)
	}

	session := models.Session{Flow: "flow-main", Step: 1, Data: map[string]string{"nombre": "Juan"}}
	if err := s.Set(ctx, "50688888888", session, time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err = s.Get(ctx, "50688888888")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil {
		t.Fatal("expected session, got nil")
	}
	if got.Flow != "flow-main" || got.Step != 1 || got.Data["nombre"] != "Juan" {
		t.Errorf("session not stored correctly: %+v", got)
	}

	all, err := s.List(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("expected 1 session, got %d", len(all))
	}
	if _, ok := all["50688888888"]; !ok {
		t.Errorf("List missing correspondent: %v", all)
	}

	// A retrieved session is the caller's copy: mutating its data must not
	// reach the stored record without an explicit Set.
	got.Data["opcion"] = "9"
	again, err := s.Get(ctx, "50688888888")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again == nil {
		t.Fatal("expected session, got nil")
	}
	if _, leaked := again.Data["opcion"]; leaked {
		t.Errorf("mutation of retrieved session leaked into the store: %+v", again)
	}
	listed, err := s.List(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry, ok := listed["50688888888"]; ok {
		entry.Data["extra"] = "x"
	}
	again, err = s.Get(ctx, "50688888888")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, leaked := again.Data["extra"]; leaked {
		t.Errorf("mutation of listed session leaked into the store: %+v", again)
	}

	// The map handed to Set stays the caller's too.
	session.Data["late"] = "x"
	again, err = s.Get(ctx, "50688888888")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, leaked := again.Data["late"]; leaked {
		t.Errorf("mutation of the map passed to Set leaked into the store: %+v", again)
	}
	delete(session.Data, "late")

	// Overwriting replaces the whole record.
	session.Step = 2
	if err := s.Set(ctx, "50688888888", session, time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err = s.Get(ctx, "50688888888")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.Step != 2 {
		t.Errorf("overwrite not applied: %+v", got)
	}

	if err := s.Delete(ctx, "50688888888"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err = s.Get(ctx, "50688888888")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected session deleted, got %+v", got)
	}

	// Deleting an absent session is not an error.
	if err := s.Delete(ctx, "50688888888"); err != nil {
		t.Errorf("unexpected error deleting absent session: %v", err)
	}
}
