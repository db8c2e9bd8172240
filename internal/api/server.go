package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/hearth-core/internal/core"
	"github.com/nerrad567/hearth-core/internal/infrastructure/config"
	"github.com/nerrad567/hearth-core/internal/infrastructure/logging"
	"github.com/nerrad567/hearth-core/internal/recorder"
	"github.com/nerrad567/hearth-core/internal/remote"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config config.APIConfig
	Stream config.StreamConfig
	Logger *logging.Logger
	Hub    *core.Hub

	// Forwarder replays local events to registered peers. If nil, the
	// server creates its own over the hub's bus; inject one to share it
	// with other components.
	Forwarder *remote.Forwarder

	// History, when set, mounts the recorded-history endpoints under
	// /api/history.
	History *recorder.Recorder

	Version string
}

// Server exposes a hub over the HTTP wire protocol.
//
// It manages the HTTP listener, routes, middleware and the WebSocket event
// stream. The server is created with New() and started with Start().
type Server struct {
	cfg       config.APIConfig
	streamCfg config.StreamConfig
	logger    *logging.Logger
	hub       *core.Hub
	forwarder *remote.Forwarder
	history   *recorder.Recorder
	version   string

	server  *http.Server
	streams *streamRegistry
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (config, logger, hub)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Hub == nil {
		return nil, fmt.Errorf("hub is required")
	}
	if deps.Config.Password == "" {
		return nil, fmt.Errorf("api password is required")
	}

	forwarder := deps.Forwarder
	if forwarder == nil {
		forwarder = remote.NewForwarder(deps.Hub.Bus, "", deps.Logger)
	}

	return &Server{
		cfg:       deps.Config,
		streamCfg: deps.Stream,
		logger:    deps.Logger,
		hub:       deps.Hub,
		forwarder: forwarder,
		history:   deps.History,
		version:   deps.Version,
		streams:   newStreamRegistry(deps.Logger),
	}, nil
}

// Start begins listening for HTTP connections.
//
// It builds the router and launches the HTTP listener in a background
// goroutine. The server is stopped with Close().
//
// Parameters:
//   - ctx: Context for startup cancellation (not the listener lifetime)
//
// Returns:
//   - error: If the server fails to start
func (s *Server) Start(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("starting api server: %w", ctx.Err())
	default:
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       s.cfg.GetReadTimeout(),
		ReadHeaderTimeout: s.cfg.GetReadTimeout(),
		WriteTimeout:      s.cfg.GetWriteTimeout(),
		IdleTimeout:       s.cfg.GetIdleTimeout(),
	}

	go func() {
		s.logger.Info("api server listening", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It disconnects stream clients, then waits up to 10 seconds for in-flight
// requests to complete before forcefully closing remaining connections.
//
// Returns:
//   - error: If shutdown encounters an error
func (s *Server) Close() error {
	s.streams.closeAll()

	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("api server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down api server: %w", err)
	}
	return nil
}

// Forwarder returns the event forwarder the server registers peers with.
func (s *Server) Forwarder() *remote.Forwarder {
	return s.forwarder
}

// HealthCheck verifies the API server is running and responsive.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
