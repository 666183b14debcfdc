package messaging

import (
	"context"
	"log/slog"
	"sync"

	"github.com/neositio/flowbot/internal/models"
	"github.com/neositio/flowbot/internal/twiliowhatsapp"
)

// TwilioService implements Service using the Twilio WhatsApp REST API.
// Outbound sends go through the REST client; inbound delivery would arrive
// via Twilio webhooks, which this deployment does not expose, so the
// responses channel stays idle.
type TwilioService struct {
	client    twiliowhatsapp.Sender
	responses chan models.Response
	done      chan struct{}
	mu        sync.RWMutex
	stopped   bool
}

// NewTwilioService creates a TwilioService wrapping the given sender.
func NewTwilioService(client twiliowhatsapp.Sender) *TwilioService {
	return &TwilioService{
		client:    client,
		responses: make(chan models.Response, DefaultChannelBufferSize),
		done:      make(chan struct{}),
	}
}

// ValidateAndCanonicalizeRecipient validates and canonicalizes a WhatsApp
// phone number.
func (s *TwilioService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return canonicalizePhone(recipient)
}

// Start is a no-op; Twilio has no live inbound connection.
func (s *TwilioService) Start(ctx context.Context) error {
	return nil
}

// Stop closes the service. Safe to call more than once.
func (s *TwilioService) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil
	}
	s.stopped = true
	close(s.done)
	close(s.responses)
	slog.Info("TwilioService stopped")
	return nil
}

// SendMessage sends a text message via the Twilio REST API.
func (s *TwilioService) SendMessage(ctx context.Context, to string, body string) error {
	s.mu.RLock()
	if s.stopped {
		s.mu.RUnlock()
		return ErrServiceStopped
	}
	s.mu.RUnlock()

	canonical, err := s.ValidateAndCanonicalizeRecipient(to)
	if err != nil {
		slog.Error("TwilioService SendMessage validation error", "error", err, "to", to)
		return err
	}
	return s.client.SendMessage(ctx, "+"+canonical, body)
}

// Responses returns the channel of incoming correspondent messages.
func (s *TwilioService) Responses() <-chan models.Response {
	return s.responses
}
