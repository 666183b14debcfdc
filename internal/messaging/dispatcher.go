package messaging

import (
	"context"
	"log/slog"
	"strings"
)

// Responder produces the reply for one inbound message. The returned text
// is always non-empty; failures are rendered as user-facing text by the
// responder itself.
type Responder interface {
	HandleMessage(ctx context.Context, id, text string) string
}

// Dispatcher connects a messaging service to a responder: every inbound
// message is answered with the responder's reply over the same transport.
type Dispatcher struct {
	service   Service
	responder Responder
}

// NewDispatcher creates a dispatcher over the given service and responder.
func NewDispatcher(service Service, responder Responder) *Dispatcher {
	return &Dispatcher{service: service, responder: responder}
}

// Run consumes inbound messages until the context is cancelled or the
// service's response channel closes. Send failures are logged and do not
// stop the loop.
func (d *Dispatcher) Run(ctx context.Context) {
	slog.Debug("Dispatcher Run: starting message loop")
	for {
		select {
		case <-ctx.Done():
			slog.Debug("Dispatcher Run: context cancelled")
			return
		case response, ok := <-d.service.Responses():
			if !ok {
				slog.Debug("Dispatcher Run: responses channel closed")
				return
			}
			if strings.TrimSpace(response.Body) == "" {
				continue
			}
			slog.Info("Dispatcher received message", "from", response.From, "body_length", len(response.Body))
			reply := d.responder.HandleMessage(ctx, response.From, response.Body)
			if err := d.service.SendMessage(ctx, response.From, reply); err != nil {
				slog.Error("Dispatcher failed to send reply", "error", err, "to", response.From)
			}
		}
	}
}
