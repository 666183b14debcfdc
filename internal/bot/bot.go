// Package bot wires the flowbot modules into a running service: flow
// catalog, session store, dialogue engine, messaging transport, and the
// flow editor API. Everything is held on an explicit service value built by
// Run; nothing lives in package globals.
package bot

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/neositio/flowbot/internal/api"
	"github.com/neositio/flowbot/internal/flow"
	"github.com/neositio/flowbot/internal/genai"
	"github.com/neositio/flowbot/internal/lockfile"
	"github.com/neositio/flowbot/internal/messaging"
	"github.com/neositio/flowbot/internal/store"
	"github.com/neositio/flowbot/internal/twiliowhatsapp"
	"github.com/neositio/flowbot/internal/whatsapp"
)

// Transport selects the messaging channel.
type Transport string

const (
	TransportWhatsmeow Transport = "whatsmeow"
	TransportTwilio    Transport = "twilio"
	TransportConsole   Transport = "console"
)

// StoreBackend selects the session store implementation.
type StoreBackend string

const (
	StoreMemory StoreBackend = "memory"
	StoreRedis  StoreBackend = "redis"
)

// ConsoleCorrespondentID is the fixed correspondent identity used in console
// mode, where there is no phone number to key sessions by.
const ConsoleCorrespondentID = "50688888888"

// Config holds the service-level settings resolved by the caller from
// environment and flags.
type Config struct {
	FlowsPath    string
	FlowAPIBase  string
	StateDir     string
	Transport    Transport
	StoreBackend StoreBackend
	ChatMode     bool
	StrictMode   bool
	SessionTTL   time.Duration
	ResetStore   bool
}

// Options bundles the per-module option slices built by the caller.
type Options struct {
	WhatsApp []whatsapp.Option
	Twilio   []twiliowhatsapp.Option
	Store    []store.Option
	GenAI    []genai.Option
	API      []api.Option
}

// Run builds the service from the configuration and blocks until the context
// is cancelled or a termination signal arrives.
func Run(ctx context.Context, cfg Config, opts Options) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	lock, err := lockfile.Acquire(cfg.StateDir)
	if err != nil {
		return fmt.Errorf("failed to lock state directory: %w", err)
	}
	defer lock.Release()

	defs, err := flow.LoadDefinitions(ctx, cfg.FlowAPIBase, cfg.FlowsPath)
	if err != nil {
		return fmt.Errorf("failed to load flow definitions: %w", err)
	}
	catalog, err := flow.NewCatalog(defs)
	if err != nil {
		return fmt.Errorf("failed to build flow catalog: %w", err)
	}

	sessions, err := buildStore(cfg, opts.Store)
	if err != nil {
		return err
	}
	defer sessions.Close()
	if cfg.ResetStore {
		defer flushStore(sessions)
	}

	responder, err := buildResponder(cfg, catalog, sessions, opts.GenAI)
	if err != nil {
		return err
	}

	apiServer := api.NewServer(cfg.FlowsPath, opts.API...)
	go func() {
		if err := apiServer.Start(); err != nil {
			slog.Error("bot.Run: api server stopped", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("bot.Run: api server shutdown failed", "error", err)
		}
	}()

	if cfg.Transport == TransportConsole {
		return runConsole(ctx, responder)
	}

	service, err := buildService(cfg, opts)
	if err != nil {
		return err
	}
	if err := service.Start(ctx); err != nil {
		return fmt.Errorf("failed to start messaging service: %w", err)
	}
	defer func() {
		if err := service.Stop(); err != nil {
			slog.Error("bot.Run: messaging service stop failed", "error", err)
		}
	}()

	slog.Info("bot.Run: service started", "transport", cfg.Transport, "store", cfg.StoreBackend, "chat_mode", cfg.ChatMode, "strict_mode", cfg.StrictMode)
	messaging.NewDispatcher(service, responder).Run(ctx)
	slog.Info("bot.Run: shutting down")
	return nil
}

func buildStore(cfg Config, opts []store.Option) (store.Store, error) {
	switch cfg.StoreBackend {
	case StoreRedis:
		s, err := store.NewRedisStore(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to connect session store: %w", err)
		}
		return s, nil
	case StoreMemory, "":
		return store.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

func flushStore(s store.Store) {
	rs, ok := s.(*store.RedisStore)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rs.Flush(ctx); err != nil {
		slog.Error("bot.Run: session store flush failed", "error", err)
	}
}

func buildResponder(cfg Config, catalog *flow.Catalog, sessions store.Store, opts []genai.Option) (messaging.Responder, error) {
	if cfg.ChatMode {
		client, err := genai.NewClient(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create GenAI client: %w", err)
		}
		return flow.NewChatFlow(client), nil
	}
	return flow.NewEngine(catalog, sessions, flow.Config{
		StrictMode: cfg.StrictMode,
		SessionTTL: cfg.SessionTTL,
	}), nil
}

func buildService(cfg Config, opts Options) (messaging.Service, error) {
	switch cfg.Transport {
	case TransportWhatsmeow, "":
		client, err := whatsapp.NewClient(opts.WhatsApp...)
		if err != nil {
			return nil, fmt.Errorf("failed to create WhatsApp client: %w", err)
		}
		return messaging.NewWhatsAppService(client), nil
	case TransportTwilio:
		client, err := twiliowhatsapp.NewClient(opts.Twilio...)
		if err != nil {
			return nil, fmt.Errorf("failed to create Twilio client: %w", err)
		}
		return messaging.NewTwilioService(client), nil
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}
}

// runConsole drives the responder from stdin lines under a fixed
// correspondent identity. Useful for trying flows without a WhatsApp
// account.
func runConsole(ctx context.Context, responder messaging.Responder) error {
	slog.Info("bot.Run: console mode", "correspondent", ConsoleCorrespondentID)
	fmt.Println("flowbot console: type a message, Ctrl+C to exit")

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if line == "" {
				continue
			}
			reply := responder.HandleMessage(ctx, ConsoleCorrespondentID, line)
			fmt.Println(reply)
		}
	}
}
