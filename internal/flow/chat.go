package flow

import (
	"context"
	"log/slog"
	"sync"

	"github.com/neositio/flowbot/internal/genai"
)

// maxHistoryTurns bounds the per-correspondent conversation history kept in
// memory; older turns are dropped from the front.
const maxHistoryTurns = 40

// salesSystemPrompt steers the free-form flow. It mirrors the scripted
// catalog so both engines sell the same menu.
const salesSystemPrompt = `# Bot de Ventas - Café Neositio y Helados

Eres un asistente de ventas experto de *Café Neositio y Helados*:
- **Cafés premium**: Latte, Americano, Cappuccino, Mocha, Espresso.
- **Helados artesanales**: Chocolate, Vainilla, Fresa, Menta, Mango.
- **Pizzas frescas**: Pepperoni, Hawaiana, Margarita, Cuatro Quesos, Vegetariana.

Tu objetivo es guiar al usuario a completar su compra rápidamente, sin
inventar información, precios, envíos u horarios. Responde en español con
mensajes cortos (máximo 2-3 líneas), persuasivos y naturales, usando emojis.
Si el usuario se desvía, redirige: "¡Vamos a elegir algo delicioso! ¿Café,
helado o pizza?".

## Reglas del flujo
1. Inicia solo con triggers: "hola", "pedido", "quiero".
2. Si la entrada es ambigua, responde: "¡Hola! 😊 Dime, ¿cuál es tu nombre?" y espera.
3. Pregunta en orden: nombre, producto, detalles del producto, confirmación.
4. Reconoce respuestas válidas de forma flexible (número o palabra, sin distinguir mayúsculas).
5. Si la respuesta no coincide, pide una opción válida y repite la pregunta una sola vez.
6. Siempre confirma antes de finalizar: si dice "sí" u "ok", responde
   "¡Pedido recibido! Disfrútalo 😊". Si no, regresa a la selección de producto.`

// completer is the slice of the GenAI client the chat flow needs.
type completer interface {
	Complete(ctx context.Context, systemPrompt string, history []genai.Message) (string, error)
}

// ChatFlow is the free-form alternative to the structured Engine: it keeps a
// flat per-correspondent conversation history and delegates every reply to
// the language model.
type ChatFlow struct {
	client    completer
	mu        sync.Mutex
	histories map[string][]genai.Message
}

// NewChatFlow creates a free-form flow over the given GenAI client.
func NewChatFlow(client completer) *ChatFlow {
	return &ChatFlow{client: client, histories: make(map[string][]genai.Message)}
}

// HandleMessage appends the inbound text to the correspondent's history,
// asks the model for the next reply, and records it. The reply is always
// non-empty; completion failures are rendered as a fixed user-facing text.
func (f *ChatFlow) HandleMessage(ctx context.Context, id, text string) string {
	f.mu.Lock()
	history := append(f.histories[id], genai.Message{Role: genai.RoleUser, Content: text})
	if len(history) > maxHistoryTurns {
		history = history[len(history)-maxHistoryTurns:]
	}
	f.histories[id] = history
	f.mu.Unlock()

	reply, err := f.client.Complete(ctx, salesSystemPrompt, history)
	if err != nil {
		slog.Error("ChatFlow HandleMessage: completion failed", "error", err, "id", id)
		return ReplyInternalError
	}

	f.mu.Lock()
	f.histories[id] = append(f.histories[id], genai.Message{Role: genai.RoleAssistant, Content: reply})
	f.mu.Unlock()
	return reply
}
