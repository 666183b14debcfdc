package flow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/neositio/flowbot/internal/models"
)

// loadTimeout bounds the remote flow-document fetch.
const loadTimeout = 10 * time.Second

// LoadDefinitions loads the flow document. When apiBase is set, it fetches
// GET {apiBase}/flows and falls back to the local document on any failure;
// otherwise it reads the local document directly. A missing or malformed
// source is an error the caller treats as fatal at startup.
func LoadDefinitions(ctx context.Context, apiBase, path string) (models.FlowSet, error) {
	if apiBase != "" {
		defs, err := loadFromAPI(ctx, apiBase)
		if err == nil {
			slog.Info("flow.LoadDefinitions: flows loaded from API", "base", apiBase, "count", len(defs))
			return defs, nil
		}
		slog.Warn("flow.LoadDefinitions: failed to load flows from API, falling back to local document", "error", err, "base", apiBase, "path", path)
	}
	defs, err := loadFromFile(path)
	if err != nil {
		return nil, err
	}
	slog.Info("flow.LoadDefinitions: flows loaded from local document", "path", path, "count", len(defs))
	return defs, nil
}

func loadFromAPI(ctx context.Context, base string) (models.FlowSet, error) {
	ctx, cancel := context.WithTimeout(ctx, loadTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/flows", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build flows request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch flows: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("flows endpoint returned status %d", resp.StatusCode)
	}
	var defs models.FlowSet
	if err := json.NewDecoder(resp.Body).Decode(&defs); err != nil {
		return nil, fmt.Errorf("failed to decode flows response: %w", err)
	}
	return defs, nil
}

func loadFromFile(path string) (models.FlowSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read flow document %s: %w", path, err)
	}
	var defs models.FlowSet
	if err := json.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("failed to parse flow document %s: %w", path, err)
	}
	return defs, nil
}
