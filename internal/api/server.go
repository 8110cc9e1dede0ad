package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/spaces-core/internal/audit"
	"github.com/nerrad567/spaces-core/internal/auth"
	"github.com/nerrad567/spaces-core/internal/infrastructure/config"
	"github.com/nerrad567/spaces-core/internal/infrastructure/logging"
	"github.com/nerrad567/spaces-core/internal/space"
	"github.com/nerrad567/spaces-core/internal/telemetry"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// HealthChecker is implemented by optional backends reported on /health and
// /status.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config    config.APIConfig
	WS        config.WebSocketConfig
	RateLimit config.RateLimitConfig
	Logger    *logging.Logger
	Auth      *auth.Service
	Spaces    *space.Service
	Tokens    *auth.TokenService
	AuditRepo audit.Repository   // optional: /audit returns 500 without it
	Hub       *Hub               // optional: owned by the server when nil
	Metrics   *telemetry.Metrics // optional
	DB        HealthChecker      // optional
	MQTT      HealthChecker      // optional
	InfluxDB  HealthChecker      // optional
	Version   string
}

// Server is the HTTP API server.
//
// It owns the listener, routes, middleware and the WebSocket ticket store.
// Create it with New and start it with Start.
type Server struct {
	cfg       config.APIConfig
	wsCfg     config.WebSocketConfig
	logger    *logging.Logger
	auth      *auth.Service
	spaces    *space.Service
	tokens    *auth.TokenService
	auditRepo audit.Repository
	metrics   *telemetry.Metrics
	db        HealthChecker
	mqtt      HealthChecker
	influx    HealthChecker
	version   string
	startTime time.Time

	hub         *Hub
	externalHub bool
	tickets     *ticketStore
	limiter     *ipRateLimiter // nil when rate limiting is disabled
	router      http.Handler
	server      *http.Server
	cancel      context.CancelFunc
}

// New creates an API server. The server is not started until Start is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Auth == nil || deps.Tokens == nil {
		return nil, fmt.Errorf("auth service and token service are required")
	}
	if deps.Spaces == nil {
		return nil, fmt.Errorf("space service is required")
	}

	s := &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		logger:    deps.Logger,
		auth:      deps.Auth,
		spaces:    deps.Spaces,
		tokens:    deps.Tokens,
		auditRepo: deps.AuditRepo,
		metrics:   deps.Metrics,
		db:        deps.DB,
		mqtt:      deps.MQTT,
		influx:    deps.InfluxDB,
		version:   deps.Version,
		startTime: time.Now(),
		tickets:   newTicketStore(),
	}

	if deps.Hub != nil {
		s.hub = deps.Hub
		s.externalHub = true
	} else {
		s.hub = NewHub(deps.WS, deps.Logger)
	}
	if s.metrics != nil {
		s.hub.SetClientObserver(s.metrics.SetWSClients)
	}

	if deps.RateLimit.Enabled {
		s.limiter = newIPRateLimiter(deps.RateLimit.RequestsPerMinute, deps.RateLimit.Burst)
	}

	s.router = s.buildRouter()
	return s, nil
}

// Handler returns the fully wired router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start launches the HTTP listener and background loops. The listener runs
// until Close is called.
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if !s.externalHub {
		go s.hub.Run(srvCtx)
	}
	go s.tickets.cleanLoop(srvCtx)
	if s.limiter != nil {
		go s.limiter.cleanLoop(srvCtx)
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the server, waiting up to 10 seconds for
// in-flight requests.
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

// HealthCheck reports whether the server has been started.
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
