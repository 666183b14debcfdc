package main

import (
	"path/filepath"
	"testing"

	"github.com/neositio/flowbot/internal/bot"
)

func TestLoadEnvironmentConfigDefaults(t *testing.T) {
	t.Setenv("FLOWBOT_STATE_DIR", "")
	t.Setenv("FLOWS_FILE", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("SESSION_STORE", "")

	config := loadEnvironmentConfig()

	if config.StateDir != DefaultStateDir {
		t.Errorf("Expected default state dir %q, got %q", DefaultStateDir, config.StateDir)
	}
	expectedFlows := filepath.Join("data", DefaultFlowsFileName)
	if config.FlowsFile != expectedFlows {
		t.Errorf("Expected default flows file %q, got %q", expectedFlows, config.FlowsFile)
	}
	if config.StoreBackend != "" {
		t.Errorf("Expected empty store backend without REDIS_URL, got %q", config.StoreBackend)
	}
}

func TestLoadEnvironmentConfigRedisImpliesRedisStore(t *testing.T) {
	t.Setenv("SESSION_STORE", "")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	config := loadEnvironmentConfig()

	if config.StoreBackend != string(bot.StoreRedis) {
		t.Errorf("Expected REDIS_URL to imply redis store backend, got %q", config.StoreBackend)
	}
}

func TestLoadEnvironmentConfigExplicitStoreWins(t *testing.T) {
	t.Setenv("SESSION_STORE", "memory")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	config := loadEnvironmentConfig()

	if config.StoreBackend != "memory" {
		t.Errorf("Expected explicit SESSION_STORE to win, got %q", config.StoreBackend)
	}
}
