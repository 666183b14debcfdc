// Package api provides the HTTP flow-editor endpoints for flowbot.
//
// It exposes the flow document for reading and replaces it after validating
// the submitted definitions against a full catalog build. Edits take effect
// on the next process start; the running engine keeps its loaded catalog.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// DefaultAddr is the default listen address for the flow editor API.
const DefaultAddr = ":3000"

// Opts holds configuration options for the API server.
type Opts struct {
	Addr string
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) {
		o.Addr = addr
	}
}

// Server serves the flow editor endpoints.
type Server struct {
	addr       string
	flowsPath  string
	httpServer *http.Server
}

// NewServer creates a flow editor server over the given flow document path.
func NewServer(flowsPath string, opts ...Option) *Server {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	return &Server{addr: cfg.Addr, flowsPath: flowsPath}
}

// Handler returns the route table. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/flows", s.flowsHandler)
	mux.HandleFunc("/health", s.healthHandler)
	return mux
}

// Start begins serving and blocks until the server stops.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	slog.Info("api.Server starting", "addr", s.addr, "flows_path", s.flowsPath)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	slog.Info("api.Server shutting down")
	return s.httpServer.Shutdown(ctx)
}
