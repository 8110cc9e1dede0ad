package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// defaultWSPath is used when the WebSocket path is not configured.
const defaultWSPath = "/ws"

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	// Operational endpoints (no auth required)
	r.Get("/health", s.handleHealth)
	r.Get("/status", s.handleStatus)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	// Identity bootstrap, rate limited per client IP
	r.Group(func(r chi.Router) {
		r.Use(s.rateLimitMiddleware)
		r.Post("/signup", s.handleSignup)
		r.Post("/login", s.handleLogin)
	})

	// WebSocket authenticates with a ticket, validated in the handler
	wsPath := s.wsCfg.Path
	if wsPath == "" {
		wsPath = defaultWSPath
	}
	r.Get(wsPath, s.handleWebSocket)

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Get("/dashboard", s.handleDashboard)
		r.Post("/create-room", s.handleCreateRoom)
		r.Post("/join-room", s.handleJoinRoom)
		r.Get("/search-room", s.handleSearchRoom)
		r.Get("/check-space", s.handleCheckSpace)
		r.Post("/exit-room", s.handleExitRoom)

		r.Post("/ws-ticket", s.handleWSTicket)
		r.Get("/audit", s.handleListAuditLogs)
	})

	return r
}
