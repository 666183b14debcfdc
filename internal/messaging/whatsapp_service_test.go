package messaging

import (
	"context"
	"testing"
	"time"

	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"

	"github.com/neositio/flowbot/internal/whatsapp"
)

func TestValidateAndCanonicalizeRecipient(t *testing.T) {
	s := NewWhatsAppService(whatsapp.NewMockClient())

	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"+506 8888-8888", "50688888888", false},
		{"50688888888", "50688888888", false},
		{"", "", true},
		{"abc", "", true},
		{"12345", "", true},
	}
	for _, tc := range cases {
		got, err := s.ValidateAndCanonicalizeRecipient(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("%q: expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: unexpected error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("%q: expected %q, got %q", tc.in, tc.want, got)
		}
	}
}

func TestWhatsAppServiceSendMessageWithMock(t *testing.T) {
	s := NewWhatsAppService(whatsapp.NewMockClient())
	if err := s.SendMessage(context.Background(), "50688888888", "hola"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := s.SendMessage(context.Background(), "not-a-number", "hola"); err == nil {
		t.Error("expected validation error")
	}
}

func TestWhatsAppServiceStartWithMock(t *testing.T) {
	s := NewWhatsAppService(whatsapp.NewMockClient())
	if err := s.Start(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	// Repeated stop is a no-op.
	if err := s.Stop(); err != nil {
		t.Errorf("unexpected error on repeated stop: %v", err)
	}
}

func TestWhatsAppServiceDropsEventsAfterStop(t *testing.T) {
	s := NewWhatsAppService(whatsapp.NewMockClient())
	if err := s.Stop(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// whatsmeow may still deliver events while disconnecting; a late event
	// must be dropped, not panic on the closed response channel.
	text := "hola"
	evt := &events.Message{
		Info: types.MessageInfo{
			MessageSource: types.MessageSource{
				Chat:   types.NewJID("50688888888", "s.whatsapp.net"),
				Sender: types.NewJID("50688888888", "s.whatsapp.net"),
			},
			Timestamp: time.Now(),
		},
		Message: &waE2E.Message{Conversation: &text},
	}
	s.handleIncomingMessage(evt)

	if _, ok := <-s.Responses(); ok {
		t.Error("expected no message forwarded after stop")
	}
}
