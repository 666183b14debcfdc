// Package flow implements the dialogue engine for flowbot.
//
// It holds the validated flow catalog, the per-correspondent session state
// machine, the prompt template renderer, and the alternative free-form LLM
// flow. Flow definitions are validated eagerly when the catalog is built;
// a malformed catalog never reaches the message-handling path.
package flow

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/neositio/flowbot/internal/models"
)

// Catalog is the validated, in-memory index of all flow definitions, keyed
// by identifier and by alias. Declaration order is preserved for trigger
// search.
type Catalog struct {
	flows   models.FlowSet
	byID    map[string]*models.Flow
	byAlias map[string]*models.Flow
}

// NewCatalog validates the flow definitions and builds the catalog. All
// validation failures are fatal; the catalog is never built partially.
func NewCatalog(defs models.FlowSet) (*Catalog, error) {
	c := &Catalog{
		flows:   defs,
		byID:    make(map[string]*models.Flow, len(defs)),
		byAlias: make(map[string]*models.Flow, len(defs)),
	}
	for i := range defs {
		f := &defs[i]
		if _, exists := c.byID[f.ID]; exists {
			return nil, fmt.Errorf("flow %q (id %s): %w", f.Alias, f.ID, models.ErrDuplicateFlowID)
		}
		if _, exists := c.byAlias[f.Alias]; exists {
			return nil, fmt.Errorf("flow %q (id %s): %w", f.Alias, f.ID, models.ErrDuplicateFlowAlias)
		}
		c.byID[f.ID] = f
		c.byAlias[f.Alias] = f
	}
	for _, f := range defs {
		if err := c.validateFlow(f); err != nil {
			return nil, err
		}
	}
	slog.Info("flow.NewCatalog: flows validated", "count", len(defs))
	return c, nil
}

func (c *Catalog) validateFlow(f models.Flow) error {
	switch f.Kind {
	case models.FlowKindMain:
		if len(f.Triggers) == 0 {
			return fmt.Errorf("flow %q (id %s): %w", f.Alias, f.ID, models.ErrMainWithoutTrigger)
		}
	case models.FlowKindSubflow:
		if len(f.Triggers) > 0 {
			return fmt.Errorf("flow %q (id %s): %w", f.Alias, f.ID, models.ErrSubflowWithTrigger)
		}
	default:
		return fmt.Errorf("flow %q (id %s) has kind %q: %w", f.Alias, f.ID, f.Kind, models.ErrUnknownFlowKind)
	}
	if len(f.Steps) == 0 {
		return fmt.Errorf("flow %q (id %s): %w", f.Alias, f.ID, models.ErrFlowWithoutSteps)
	}
	for i, step := range f.Steps {
		for _, ref := range step.Subflows {
			target, ok := c.byID[ref.Flow]
			if !ok {
				return fmt.Errorf("flow %q (id %s) step %d references %q: %w", f.Alias, f.ID, i, ref.Flow, models.ErrDanglingSubflowRef)
			}
			if target.Kind != models.FlowKindSubflow {
				return fmt.Errorf("flow %q (id %s) step %d references %q of kind %q: %w", f.Alias, f.ID, i, ref.Flow, target.Kind, models.ErrNotASubflow)
			}
		}
	}
	return nil
}

// ByID returns the flow with the given identifier.
func (c *Catalog) ByID(id string) (*models.Flow, bool) {
	f, ok := c.byID[id]
	return f, ok
}

// ByAlias returns the flow declared under the given alias.
func (c *Catalog) ByAlias(alias string) (*models.Flow, bool) {
	f, ok := c.byAlias[alias]
	return f, ok
}

// FindByTrigger returns the first main flow, in declaration order, that has
// a trigger phrase contained in the lowercased text.
func (c *Catalog) FindByTrigger(text string) (*models.Flow, bool) {
	msg := strings.ToLower(text)
	for i := range c.flows {
		f := &c.flows[i]
		if f.Kind != models.FlowKindMain {
			continue
		}
		for _, trigger := range f.Triggers {
			if strings.Contains(msg, trigger) {
				return f, true
			}
		}
	}
	return nil, false
}

// Definitions returns the flow definitions in declaration order.
func (c *Catalog) Definitions() models.FlowSet {
	return c.flows
}
