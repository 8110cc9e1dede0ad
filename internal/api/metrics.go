package api

import (
	"context"
	"net/http"
	"runtime"
	"time"
)

// healthCheckTimeout bounds each backend probe on /health and /status.
const healthCheckTimeout = 2 * time.Second

// StatusReport is the body of GET /status.
type StatusReport struct {
	Timestamp     string            `json:"timestamp"`
	Version       string            `json:"version"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Runtime       RuntimeMetrics    `json:"runtime"`
	WebSocket     WSMetrics         `json:"websocket"`
	Backends      map[string]string `json:"backends"`
	Totals        Totals            `json:"totals"`
}

// Totals counts stored accounts and spaces. A count that could not be read
// is -1.
type Totals struct {
	Users  int `json:"users"`
	Spaces int `json:"spaces"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WSMetrics contains WebSocket hub statistics.
type WSMetrics struct {
	ConnectedClients int `json:"connected_clients"`
}

// Backend states reported by checkBackends.
const (
	backendOK          = "ok"
	backendDisabled    = "disabled"
	backendUnavailable = "unavailable"
)

// checkBackends probes every configured backend. The database is required;
// a failure there makes the server unhealthy. MQTT and InfluxDB only degrade
// event delivery.
func (s *Server) checkBackends(ctx context.Context) (map[string]string, bool) {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	probe := func(name string, hc HealthChecker) string {
		if hc == nil {
			return backendDisabled
		}
		if err := hc.HealthCheck(ctx); err != nil {
			s.logger.Warn("backend health check failed", "backend", name, "error", err)
			return backendUnavailable
		}
		return backendOK
	}

	report := map[string]string{
		"database": probe("database", s.db),
		"mqtt":     probe("mqtt", s.mqtt),
		"influxdb": probe("influxdb", s.influx),
	}
	healthy := report["database"] != backendUnavailable
	return report, healthy
}

// handleHealth answers 200 when the database is reachable and 503 otherwise.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report, healthy := s.checkBackends(r.Context())

	status, code := "ok", http.StatusOK
	if !healthy {
		status, code = "unavailable", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status":   status,
		"version":  s.version,
		"backends": report,
	})
}

// handleStatus returns runtime, WebSocket and backend statistics.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	backends, _ := s.checkBackends(r.Context())

	writeJSON(w, http.StatusOK, StatusReport{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		WebSocket: WSMetrics{
			ConnectedClients: s.hub.ClientCount(),
		},
		Backends: backends,
		Totals:   s.totals(r.Context()),
	})
}

// totals reads the account and space counts for /status.
func (s *Server) totals(ctx context.Context) Totals {
	t := Totals{Users: -1, Spaces: -1}

	if n, err := s.auth.CountUsers(ctx); err != nil {
		s.logger.Warn("counting users failed", "error", err)
	} else {
		t.Users = n
	}
	if n, err := s.spaces.Count(ctx); err != nil {
		s.logger.Warn("counting spaces failed", "error", err)
	} else {
		t.Spaces = n
	}
	return t
}
