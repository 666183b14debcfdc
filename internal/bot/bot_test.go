package bot

import (
	"testing"

	"github.com/neositio/flowbot/internal/flow"
	"github.com/neositio/flowbot/internal/models"
	"github.com/neositio/flowbot/internal/store"
)

func testCatalog(t *testing.T) *flow.Catalog {
	t.Helper()
	catalog, err := flow.NewCatalog(models.FlowSet{
		{
			ID:       "flow-main",
			Alias:    "main",
			Kind:     models.FlowKindMain,
			Triggers: []string{"hola"},
			Steps:    []models.Step{{Prompt: "¿Tu nombre?", Key: "name"}},
		},
	})
	if err != nil {
		t.Fatalf("failed to build catalog: %v", err)
	}
	return catalog
}

func TestBuildStoreDefaultsToMemory(t *testing.T) {
	s, err := buildStore(Config{}, nil)
	if err != nil {
		t.Fatalf("buildStore failed: %v", err)
	}
	defer s.Close()
	if _, ok := s.(*store.MemoryStore); !ok {
		t.Errorf("expected *store.MemoryStore, got %T", s)
	}
}

func TestBuildStoreRejectsUnknownBackend(t *testing.T) {
	if _, err := buildStore(Config{StoreBackend: "etcd"}, nil); err == nil {
		t.Fatal("expected error for unknown store backend")
	}
}

func TestBuildStoreRedisRequiresURL(t *testing.T) {
	if _, err := buildStore(Config{StoreBackend: StoreRedis}, nil); err == nil {
		t.Fatal("expected error for redis backend without URL")
	}
}

func TestBuildResponderScripted(t *testing.T) {
	sessions := store.NewMemoryStore()
	defer sessions.Close()

	responder, err := buildResponder(Config{}, testCatalog(t), sessions, nil)
	if err != nil {
		t.Fatalf("buildResponder failed: %v", err)
	}
	if _, ok := responder.(*flow.Engine); !ok {
		t.Errorf("expected *flow.Engine, got %T", responder)
	}
}

func TestBuildResponderChatModeNeedsAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	sessions := store.NewMemoryStore()
	defer sessions.Close()

	if _, err := buildResponder(Config{ChatMode: true}, testCatalog(t), sessions, nil); err == nil {
		t.Fatal("expected error when chat mode has no API key")
	}
}

func TestBuildServiceRejectsUnknownTransport(t *testing.T) {
	if _, err := buildService(Config{Transport: "telegram"}, Options{}); err == nil {
		t.Fatal("expected error for unknown transport")
	}
}
