package flow

import (
	"errors"
	"testing"

	"github.com/neositio/flowbot/internal/models"
)

func mainFlow(alias, id string, triggers ...string) models.Flow {
	return models.Flow{
		ID:       id,
		Alias:    alias,
		Kind:     models.FlowKindMain,
		Triggers: triggers,
		Steps:    []models.Step{{Prompt: "¿nombre?", Key: "nombre"}},
	}
}

func subFlow(alias, id string) models.Flow {
	return models.Flow{
		ID:    id,
		Alias: alias,
		Kind:  models.FlowKindSubflow,
		Steps: []models.Step{{Prompt: "¿detalle?", Key: "detalle"}},
	}
}

func TestNewCatalogValid(t *testing.T) {
	defs := models.FlowSet{mainFlow("main", "f1", "hola"), subFlow("cafe", "f2")}
	defs[0].Steps = append(defs[0].Steps, models.Step{
		Prompt:   "menú",
		Key:      "opcion",
		Subflows: models.SubflowSet{{Flow: "f2", Match: "1", Label: "Café"}},
	})
	c, err := NewCatalog(defs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f, ok := c.ByID("f2"); !ok || f.Alias != "cafe" {
		t.Errorf("ByID lookup failed: %+v, %v", f, ok)
	}
	if f, ok := c.ByAlias("main"); !ok || f.ID != "f1" {
		t.Errorf("ByAlias lookup failed: %+v, %v", f, ok)
	}
}

func TestNewCatalogUnknownKind(t *testing.T) {
	f := mainFlow("main", "f1", "hola")
	f.Kind = "mainflow"
	_, err := NewCatalog(models.FlowSet{f})
	if !errors.Is(err, models.ErrUnknownFlowKind) {
		t.Errorf("expected ErrUnknownFlowKind, got %v", err)
	}
}

func TestNewCatalogMainWithoutTriggers(t *testing.T) {
	f := mainFlow("main", "f1")
	_, err := NewCatalog(models.FlowSet{f})
	if !errors.Is(err, models.ErrMainWithoutTrigger) {
		t.Errorf("expected ErrMainWithoutTrigger, got %v", err)
	}
}

func TestNewCatalogSubflowWithTriggers(t *testing.T) {
	f := subFlow("cafe", "f2")
	f.Triggers = []string{"café"}
	_, err := NewCatalog(models.FlowSet{f})
	if !errors.Is(err, models.ErrSubflowWithTrigger) {
		t.Errorf("expected ErrSubflowWithTrigger, got %v", err)
	}
}

func TestNewCatalogDanglingSubflowReference(t *testing.T) {
	f := mainFlow("main", "f1", "hola")
	f.Steps[0].Subflows = models.SubflowSet{{Flow: "missing", Match: "1", Label: "Café"}}
	_, err := NewCatalog(models.FlowSet{f})
	if !errors.Is(err, models.ErrDanglingSubflowRef) {
		t.Errorf("expected ErrDanglingSubflowRef, got %v", err)
	}
}

func TestNewCatalogSubflowReferenceToMainFlow(t *testing.T) {
	f := mainFlow("main", "f1", "hola")
	f.Steps[0].Subflows = models.SubflowSet{{Flow: "f3", Match: "1", Label: "Otro"}}
	other := mainFlow("otro", "f3", "otro")
	_, err := NewCatalog(models.FlowSet{f, other})
	if !errors.Is(err, models.ErrNotASubflow) {
		t.Errorf("expected ErrNotASubflow, got %v", err)
	}
}

func TestNewCatalogDuplicateID(t *testing.T) {
	_, err := NewCatalog(models.FlowSet{mainFlow("a", "f1", "hola"), mainFlow("b", "f1", "adiós")})
	if !errors.Is(err, models.ErrDuplicateFlowID) {
		t.Errorf("expected ErrDuplicateFlowID, got %v", err)
	}
}

func TestNewCatalogDuplicateAlias(t *testing.T) {
	// JSON allows repeated object keys, so two flows can arrive under the
	// same alias; the catalog must reject them rather than last-wins.
	_, err := NewCatalog(models.FlowSet{mainFlow("main", "f1", "hola"), mainFlow("main", "f2", "adiós")})
	if !errors.Is(err, models.ErrDuplicateFlowAlias) {
		t.Errorf("expected ErrDuplicateFlowAlias, got %v", err)
	}
}

func TestNewCatalogEmptySteps(t *testing.T) {
	f := mainFlow("main", "f1", "hola")
	f.Steps = nil
	_, err := NewCatalog(models.FlowSet{f})
	if !errors.Is(err, models.ErrFlowWithoutSteps) {
		t.Errorf("expected ErrFlowWithoutSteps, got %v", err)
	}
}

func TestFindByTrigger(t *testing.T) {
	c, err := NewCatalog(models.FlowSet{
		mainFlow("pedidos", "f1", "pedido"),
		mainFlow("main", "f2", "hola", "quiero"),
		subFlow("cafe", "f3"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Substring match, case-insensitive.
	f, ok := c.FindByTrigger("HOLA, buenas tardes")
	if !ok || f.ID != "f2" {
		t.Errorf("expected f2, got %+v (ok=%v)", f, ok)
	}

	// Declaration order wins when several flows match.
	f, ok = c.FindByTrigger("quiero hacer un pedido")
	if !ok || f.ID != "f1" {
		t.Errorf("expected first declared flow f1, got %+v (ok=%v)", f, ok)
	}

	// Subflows are never trigger targets.
	if _, ok := c.FindByTrigger("xyzzy"); ok {
		t.Error("expected no match")
	}
}
