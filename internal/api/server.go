package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/gray-logic-simlock/internal/action"
	"github.com/nerrad567/gray-logic-simlock/internal/audit"
	"github.com/nerrad567/gray-logic-simlock/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-simlock/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-simlock/internal/lock"
)

// gracefulShutdownTimeout bounds how long Close waits for in-flight requests.
const gracefulShutdownTimeout = 10 * time.Second

// HealthCheckFunc reports whether an optional component is healthy.
type HealthCheckFunc func(ctx context.Context) error

// Deps holds the dependencies required by the device host.
type Deps struct {
	Config     config.APIConfig
	WS         config.WebSocketConfig
	Thing      config.ThingConfig
	Logger     *logging.Logger
	Device     *lock.Device
	Dispatcher *action.Dispatcher
	Audit      audit.Repository           // optional; /audit returns 503 without it
	Checks     map[string]HealthCheckFunc // optional components reported by /health
	Version    string
}

// Server is the HTTP and websocket device host for one lock.
type Server struct {
	cfg        config.APIConfig
	wsCfg      config.WebSocketConfig
	thing      config.ThingConfig
	logger     *logging.Logger
	device     *lock.Device
	dispatcher *action.Dispatcher
	auditRepo  audit.Repository
	checks     map[string]HealthCheckFunc
	version    string

	hub    *Hub
	server *http.Server
	cancel context.CancelFunc
}

// New creates the device host and subscribes its websocket hub to device
// property changes and action status transitions. Nothing listens until
// Start is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Device == nil {
		return nil, fmt.Errorf("device is required")
	}
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("action dispatcher is required")
	}

	s := &Server{
		cfg:        deps.Config,
		wsCfg:      deps.WS,
		thing:      deps.Thing,
		logger:     deps.Logger,
		device:     deps.Device,
		dispatcher: deps.Dispatcher,
		auditRepo:  deps.Audit,
		checks:     deps.Checks,
		version:    deps.Version,
	}
	s.hub = NewHub(s.wsCfg, s.logger)

	s.device.OnPropertyChange(s.hub.BroadcastProperty)
	s.dispatcher.OnStatus(s.hub.BroadcastAction)

	return s, nil
}

// Start runs the websocket hub and begins listening in the background.
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)
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
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("device host starting with TLS", "address", s.server.Addr, "cert", s.cfg.TLS.CertFile)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("device host starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("device host error", "error", err)
		}
	}()

	return nil
}

// Close stops the hub and shuts the listener down, waiting up to ten
// seconds for in-flight requests.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("device host shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down device host: %w", err)
	}
	return nil
}

// HealthCheck reports whether the listener has been started.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}
	if s.server == nil {
		return fmt.Errorf("device host not started")
	}
	return nil
}
