package flow

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/neositio/flowbot/internal/models"
	"github.com/neositio/flowbot/internal/store"
)

// DefaultFlowAlias is the alias of the distinguished fallback flow started
// when no trigger matches and strict mode is off.
const DefaultFlowAlias = "main"

// Fixed user-facing replies. The engine never returns an error to its
// caller; every failure is rendered as one of these.
const (
	ReplyNotUnderstood  = "No entendí tu mensaje."
	ReplyInvalidOption  = "❌ Opción no válida, intenta otra vez."
	ReplyInvalidSubflow = "❌ Opción no válida"
	ReplyFlowCompleted  = "✅ Flujo completado."
	ReplyInternalError  = "⚠️ Algo salió mal, intenta de nuevo en un momento."
	ReplyStoreFailure   = "⚠️ No pude guardar tu respuesta, intenta de nuevo en un momento."
)

// TriggerDataKey is the session data key holding the message that started
// the session.
const TriggerDataKey = "trigger"

// Config holds dialogue engine behavior settings.
type Config struct {
	// StrictMode makes unmatched first messages answer with a fixed reply
	// instead of falling back to the default flow.
	StrictMode bool
	// SessionTTL is the expiry applied on every session write.
	SessionTTL time.Duration
}

// Engine advances per-correspondent sessions through the flows of a catalog.
// Messages from the same correspondent are serialized with a keyed mutex
// held across the whole get→mutate→set of one message; messages from
// different correspondents never contend.
type Engine struct {
	catalog  *Catalog
	sessions store.Store
	cfg      Config
	locks    sync.Map // correspondent id -> *sync.Mutex
}

// NewEngine creates a dialogue engine over the given catalog and session store.
func NewEngine(catalog *Catalog, sessions store.Store, cfg Config) *Engine {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = store.DefaultSessionTTL
	}
	slog.Debug("flow.NewEngine: engine created", "strict_mode", cfg.StrictMode, "session_ttl", cfg.SessionTTL)
	return &Engine{catalog: catalog, sessions: sessions, cfg: cfg}
}

func (e *Engine) lockFor(id string) *sync.Mutex {
	mu, _ := e.locks.LoadOrStore(id, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// HandleMessage processes one inbound message and returns the reply text.
// The reply is always non-empty.
func (e *Engine) HandleMessage(ctx context.Context, id, text string) string {
	mu := e.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	session, err := e.sessions.Get(ctx, id)
	if err != nil {
		slog.Error("Engine HandleMessage: session store unavailable", "error", err, "id", id)
		return ReplyStoreFailure
	}
	if session == nil {
		flow, ok := e.catalog.FindByTrigger(text)
		if !ok {
			if e.cfg.StrictMode {
				slog.Debug("Engine HandleMessage: no trigger matched in strict mode", "id", id)
				return ReplyNotUnderstood
			}
			flow, ok = e.catalog.ByAlias(DefaultFlowAlias)
			if !ok {
				slog.Error("Engine HandleMessage: default flow missing from catalog", "alias", DefaultFlowAlias)
				return ReplyInternalError
			}
		}
		return e.startSession(ctx, id, flow, text)
	}
	return e.advanceSession(ctx, id, session, text)
}

// startSession creates a session at step 0 of the flow and returns the
// rendered first prompt.
func (e *Engine) startSession(ctx context.Context, id string, flow *models.Flow, trigger string) string {
	session := models.Session{
		Flow: flow.ID,
		Step: 0,
		Data: map[string]string{TriggerDataKey: trigger},
	}
	if err := e.sessions.Set(ctx, id, session, e.cfg.SessionTTL); err != nil {
		slog.Error("Engine startSession: failed to persist session", "error", err, "id", id, "flow", flow.ID)
		return ReplyStoreFailure
	}
	slog.Info("Engine startSession: session started", "id", id, "flow", flow.ID, "alias", flow.Alias)
	return Render(flow.Steps[0].Prompt, session.Data)
}

// advanceSession applies one inbound message to an existing session:
// collect the answer for the current step, then either jump into a subflow,
// advance to the next step, or finish the flow.
func (e *Engine) advanceSession(ctx context.Context, id string, session *models.Session, text string) string {
	flow, ok := e.catalog.ByID(session.Flow)
	if !ok {
		slog.Error("Engine advanceSession: session references unknown flow", "id", id, "session", *session)
		return ReplyInternalError
	}
	if session.Step < 0 || session.Step >= len(flow.Steps) {
		slog.Error("Engine advanceSession: session step out of range", "id", id, "session", *session, "steps", len(flow.Steps))
		return ReplyInternalError
	}
	step := flow.Steps[session.Step]
	normalized := strings.ToLower(text)
	if session.Data == nil {
		session.Data = make(map[string]string)
	}

	switch step.Kind() {
	case models.StepKindChoice:
		key, matched := step.Options.Match(normalized)
		if !matched {
			slog.Debug("Engine advanceSession: invalid option", "id", id, "flow", flow.ID, "step", session.Step)
			return ReplyInvalidOption
		}
		if step.Key != "" {
			session.Data[step.Key] = key
		}
	case models.StepKindAnswer:
		session.Data[step.Key] = text
	case models.StepKindTransition:
		// A transition step may still collect an answer of its own before
		// the jump; options here are as strict as on a choice step.
		if len(step.Options) > 0 {
			key, matched := step.Options.Match(normalized)
			if !matched {
				slog.Debug("Engine advanceSession: invalid option", "id", id, "flow", flow.ID, "step", session.Step)
				return ReplyInvalidOption
			}
			if step.Key != "" {
				session.Data[step.Key] = key
			}
		} else if step.Key != "" {
			session.Data[step.Key] = text
		}
		return e.enterSubflow(ctx, id, session, step, normalized)
	}
	return e.advanceStep(ctx, id, session, flow)
}

// enterSubflow matches the answer against the step's subflow trigger pairs
// and, on a match, switches the session into the subflow at step 0. The
// pair's label is stored under the step's own key in place of the raw match.
func (e *Engine) enterSubflow(ctx context.Context, id string, session *models.Session, step models.Step, normalized string) string {
	for _, ref := range step.Subflows {
		if normalized != strings.ToLower(ref.Match) && normalized != strings.ToLower(ref.Label) {
			continue
		}
		target, ok := e.catalog.ByID(ref.Flow)
		if !ok {
			slog.Error("Engine enterSubflow: subflow missing from catalog", "id", id, "subflow", ref.Flow, "session", *session)
			return ReplyInternalError
		}
		if target.Kind != models.FlowKindSubflow {
			slog.Error("Engine enterSubflow: referenced flow is not a subflow", "id", id, "subflow", ref.Flow, "kind", target.Kind)
			return ReplyInternalError
		}
		session.Flow = target.ID
		session.Step = 0
		if step.Key != "" {
			session.Data[step.Key] = ref.Label
		}
		if err := e.sessions.Set(ctx, id, *session, e.cfg.SessionTTL); err != nil {
			slog.Error("Engine enterSubflow: failed to persist session", "error", err, "id", id)
			return ReplyStoreFailure
		}
		slog.Info("Engine enterSubflow: session switched to subflow", "id", id, "subflow", target.ID)
		return Render(target.Steps[0].Prompt, session.Data)
	}
	slog.Debug("Engine enterSubflow: no subflow trigger matched", "id", id, "flow", session.Flow, "step", session.Step)
	return ReplyInvalidSubflow
}

// advanceStep moves the session to the next step, finishing the flow when
// the next step is terminal or the step sequence is exhausted. Terminal
// prompts are rendered before the session record is removed.
func (e *Engine) advanceStep(ctx context.Context, id string, session *models.Session, flow *models.Flow) string {
	session.Step++
	if session.Step < len(flow.Steps) {
		next := flow.Steps[session.Step]
		if next.Kind() == models.StepKindTerminal {
			reply := Render(next.Prompt, session.Data)
			if err := e.sessions.Delete(ctx, id); err != nil {
				slog.Error("Engine advanceStep: failed to delete finished session", "error", err, "id", id)
				return ReplyStoreFailure
			}
			slog.Info("Engine advanceStep: flow finished at terminal step", "id", id, "flow", flow.ID)
			return reply
		}
		if err := e.sessions.Set(ctx, id, *session, e.cfg.SessionTTL); err != nil {
			slog.Error("Engine advanceStep: failed to persist session", "error", err, "id", id)
			return ReplyStoreFailure
		}
		return Render(next.Prompt, session.Data)
	}

	if err := e.sessions.Delete(ctx, id); err != nil {
		slog.Error("Engine advanceStep: failed to delete exhausted session", "error", err, "id", id)
		return ReplyStoreFailure
	}
	slog.Info("Engine advanceStep: flow exhausted", "id", id, "flow", flow.ID)
	return ReplyFlowCompleted
}
