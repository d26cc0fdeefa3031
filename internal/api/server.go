package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/gray-logic-dialogue/internal/audit"
	"github.com/nerrad567/gray-logic-dialogue/internal/dialogue"
	"github.com/nerrad567/gray-logic-dialogue/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-dialogue/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// HealthChecker is a dependency that can report its health. The MQTT and
// InfluxDB clients satisfy it.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Logger   *logging.Logger
	Dialogue *dialogue.Service
	Catalogs dialogue.Catalogs
	// Hub, if set, is used instead of a hub created by Start. Pass it when
	// the hub is also registered as a dialogue observer.
	Hub *Hub
	// Turns, if set, serves the turn journal at /turns.
	Turns audit.Repository
	// Health lists optional dependencies reported by /health, by name.
	Health  map[string]HealthChecker
	Version string
}

// Server is the HTTP API server for the dialogue service.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg      config.APIConfig
	wsCfg    config.WebSocketConfig
	logger   *logging.Logger
	dialogue *dialogue.Service
	catalogs dialogue.Catalogs
	health   map[string]HealthChecker
	version  string
	server   *http.Server
	hub      *Hub
	turns    audit.Repository
	cancel   context.CancelFunc
}

// New creates a new API server with the given dependencies.
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Dialogue == nil {
		return nil, fmt.Errorf("dialogue service is required")
	}
	if deps.Catalogs == nil {
		return nil, fmt.Errorf("catalog store is required")
	}

	return &Server{
		cfg:      deps.Config,
		wsCfg:    deps.WS,
		logger:   deps.Logger,
		dialogue: deps.Dialogue,
		catalogs: deps.Catalogs,
		health:   deps.Health,
		version:  deps.Version,
		hub:      deps.Hub,
		turns:    deps.Turns,
	}, nil
}

// Start begins listening for HTTP connections in a background goroutine.
// The server can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
	}
	go s.hub.Run(srvCtx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("API server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server, waiting up to 10 seconds for
// in-flight requests to complete.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
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
