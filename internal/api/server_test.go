package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nerrad567/spaces-core/internal/apperr"
	"github.com/nerrad567/spaces-core/internal/audit"
	"github.com/nerrad567/spaces-core/internal/auth"
	"github.com/nerrad567/spaces-core/internal/events"
	"github.com/nerrad567/spaces-core/internal/infrastructure/config"
	"github.com/nerrad567/spaces-core/internal/infrastructure/database"
	"github.com/nerrad567/spaces-core/internal/infrastructure/logging"
	"github.com/nerrad567/spaces-core/internal/space"
	"github.com/nerrad567/spaces-core/internal/telemetry"
	_ "github.com/nerrad567/spaces-core/migrations" // registers the schema
)

// testSecret is long enough to pass config validation.
const testSecret = "test-secret-key-at-least-32-characters-long"

// testEnv bundles a server with the collaborators tests inspect.
type testEnv struct {
	srv     *Server
	router  http.Handler
	db      *database.DB
	metrics *telemetry.Metrics
	tokens  *auth.TokenService
}

// testServer creates a Server over real services backed by a temporary
// SQLite database. Options adjust the Deps before New is called.
func testServer(t *testing.T, opts ...func(*Deps)) *testEnv {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "api-test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // test cleanup

	if err := db.Migrate(t.Context()); err != nil {
		t.Fatalf("applying migrations: %v", err)
	}

	log := logging.Discard()
	wsCfg := config.WebSocketConfig{
		Path:           "/ws",
		MaxMessageSize: 8192,
		PingInterval:   30,
		PongTimeout:    10,
	}

	hub := NewHub(wsCfg, log)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	metrics := telemetry.New()
	auditRepo := audit.NewSQLiteRepository(db.DB)
	sink := events.Fanout{
		metrics,
		audit.NewRecorder(auditRepo, log),
		events.NewBroadcastSink(hub),
	}

	hasher := &auth.Hasher{Algorithm: auth.AlgorithmBcrypt, Cost: 4}
	tokens := auth.NewTokenService(testSecret, 0)

	deps := Deps{
		Config: config.APIConfig{
			Host: "127.0.0.1",
			Timeouts: config.APITimeoutConfig{
				Read:  5,
				Write: 5,
				Idle:  5,
			},
		},
		WS:        wsCfg,
		Logger:    log,
		Auth:      auth.NewService(auth.NewUserRepository(db.DB), hasher, tokens, sink),
		Spaces:    space.NewService(space.NewSQLiteRepository(db.DB), hasher, sink),
		Tokens:    tokens,
		AuditRepo: auditRepo,
		Hub:       hub,
		Metrics:   metrics,
		DB:        db,
		Version:   "test",
	}
	for _, opt := range opts {
		opt(&deps)
	}

	srv, err := New(deps)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	return &testEnv{
		srv:     srv,
		router:  srv.Handler(),
		db:      db,
		metrics: metrics,
		tokens:  tokens,
	}
}

// do sends a request through the router. body is JSON-encoded unless it is
// already a string; a non-empty token is sent as a bearer credential.
func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		r = strings.NewReader(string(data))
	}

	req := httptest.NewRequest(method, path, r)
	if r != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// signupAndLogin creates an account and returns its access token.
func (e *testEnv) signupAndLogin(t *testing.T, username, password string) string {
	t.Helper()

	creds := credentialsRequest{Username: username, Password: password}
	if w := e.do(t, http.MethodPost, "/signup", "", creds); w.Code != http.StatusOK {
		t.Fatalf("signup status = %d, want 200; body: %s", w.Code, w.Body.String())
	}

	w := e.do(t, http.MethodPost, "/login", "", creds)
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, want 200; body: %s", w.Code, w.Body.String())
	}
	var resp loginResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal login response: %v", err)
	}
	return resp.Token
}

// expectMessage asserts the status code and the {"message"} body.
func expectMessage(t *testing.T, w *httptest.ResponseRecorder, status int, msg string) {
	t.Helper()

	if w.Code != status {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, status, w.Body.String())
	}
	var resp messageResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v; body: %s", err, w.Body.String())
	}
	if resp.Message != msg {
		t.Errorf("message = %q, want %q", resp.Message, msg)
	}
}

// scrapeMetrics returns the Prometheus exposition text.
func (e *testEnv) scrapeMetrics(t *testing.T) string {
	t.Helper()

	w := e.do(t, http.MethodGet, "/metrics", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("metrics status = %d, want 200", w.Code)
	}
	return w.Body.String()
}

// ─── Construction ──────────────────────────────────────────────────

func TestNew_RequiresDependencies(t *testing.T) {
	env := testServer(t)
	full := Deps{
		Logger: logging.Discard(),
		Auth:   env.srv.auth,
		Spaces: env.srv.spaces,
		Tokens: env.tokens,
	}

	tests := []struct {
		name   string
		mutate func(*Deps)
	}{
		{"no logger", func(d *Deps) { d.Logger = nil }},
		{"no auth", func(d *Deps) { d.Auth = nil }},
		{"no tokens", func(d *Deps) { d.Tokens = nil }},
		{"no spaces", func(d *Deps) { d.Spaces = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := full
			tt.mutate(&deps)
			if _, err := New(deps); err == nil {
				t.Error("New() should fail")
			}
		})
	}

	srv, err := New(full)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if srv.Hub() == nil {
		t.Error("New() should create a hub when none is supplied")
	}
	if srv.limiter != nil {
		t.Error("limiter should be nil when rate limiting is disabled")
	}
}

func TestServer_HealthCheck(t *testing.T) {
	env := testServer(t)

	if err := env.srv.HealthCheck(t.Context()); err == nil {
		t.Error("HealthCheck() should fail before Start")
	}
	if err := env.srv.Close(); err != nil {
		t.Errorf("Close() before Start error = %v", err)
	}
}

// ─── Health and Status ─────────────────────────────────────────────

type failingChecker struct{}

func (failingChecker) HealthCheck(context.Context) error {
	return errors.New("dial tcp 10.0.0.1:1883: connection refused")
}

func TestHealth(t *testing.T) {
	env := testServer(t)

	w := env.do(t, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var resp struct {
		Status   string            `json:"status"`
		Version  string            `json:"version"`
		Backends map[string]string `json:"backends"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status = %q, want ok", resp.Status)
	}
	if resp.Version != "test" {
		t.Errorf("version = %q, want test", resp.Version)
	}
	want := map[string]string{"database": "ok", "mqtt": "disabled", "influxdb": "disabled"}
	for k, v := range want {
		if resp.Backends[k] != v {
			t.Errorf("backends[%s] = %q, want %q", k, resp.Backends[k], v)
		}
	}
}

func TestHealth_OptionalBackendDown(t *testing.T) {
	env := testServer(t, func(d *Deps) { d.MQTT = failingChecker{} })

	w := env.do(t, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"mqtt":"unavailable"`) {
		t.Errorf("body should report mqtt unavailable: %s", w.Body.String())
	}
	if strings.Contains(w.Body.String(), "connection refused") {
		t.Error("health response must not leak backend error details")
	}
}

func TestHealth_DatabaseDown(t *testing.T) {
	env := testServer(t)
	env.db.Close() //nolint:errcheck // simulating an outage

	w := env.do(t, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
}

func TestStatus(t *testing.T) {
	env := testServer(t)

	w := env.do(t, http.MethodGet, "/status", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var report StatusReport
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if report.Version != "test" {
		t.Errorf("version = %q, want test", report.Version)
	}
	if report.Runtime.Goroutines <= 0 {
		t.Errorf("goroutines = %d, want > 0", report.Runtime.Goroutines)
	}
	if report.WebSocket.ConnectedClients != 0 {
		t.Errorf("connected_clients = %d, want 0", report.WebSocket.ConnectedClients)
	}
	if report.Backends["database"] != "ok" {
		t.Errorf("backends[database] = %q, want ok", report.Backends["database"])
	}
	if report.Totals != (Totals{Users: 0, Spaces: 0}) {
		t.Errorf("totals on empty database = %+v, want zeros", report.Totals)
	}
}

func TestStatus_Totals(t *testing.T) {
	env := testServer(t)
	alice := env.signupAndLogin(t, "alice", "pw1")
	env.signupAndLogin(t, "bob", "pw2")
	env.createRoom(t, alice, "alpha", "secret")
	env.createRoom(t, alice, "beta", "secret")
	env.createRoom(t, alice, "gamma", "secret")

	w := env.do(t, http.MethodGet, "/status", "", nil)
	var report StatusReport
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if want := (Totals{Users: 2, Spaces: 3}); report.Totals != want {
		t.Errorf("totals = %+v, want %+v", report.Totals, want)
	}
}

func TestStatus_TotalsUnavailable(t *testing.T) {
	env := testServer(t)
	env.db.Close() //nolint:errcheck // simulating an unreachable database

	w := env.do(t, http.MethodGet, "/status", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var report StatusReport
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if want := (Totals{Users: -1, Spaces: -1}); report.Totals != want {
		t.Errorf("totals = %+v, want %+v", report.Totals, want)
	}
}

func TestMetrics_RecordsRequests(t *testing.T) {
	env := testServer(t)

	env.do(t, http.MethodGet, "/health", "", nil)
	body := env.scrapeMetrics(t)

	if !strings.Contains(body, `spaces_http_requests_total{method="GET",route="/health",status="200"} 1`) {
		t.Errorf("metrics should count the /health request:\n%s", body)
	}
}

func TestMetrics_NotMountedWithoutCollector(t *testing.T) {
	env := testServer(t, func(d *Deps) { d.Metrics = nil })

	w := env.do(t, http.MethodGet, "/metrics", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

// ─── Middleware ────────────────────────────────────────────────────

func TestRequestID_Generated(t *testing.T) {
	env := testServer(t)

	w := env.do(t, http.MethodGet, "/health", "", nil)
	if id := w.Header().Get("X-Request-ID"); len(id) != requestIDBytes*2 {
		t.Errorf("X-Request-ID = %q, want %d hex chars", id, requestIDBytes*2)
	}
}

func TestRequestID_PreservesClient(t *testing.T) {
	env := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "client-id-123")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "client-id-123" {
		t.Errorf("X-Request-ID = %q, want client-id-123", got)
	}
}

func TestCORS_Preflight(t *testing.T) {
	env := testServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/create-room", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Headers"); !strings.Contains(got, "Authorization") {
		t.Errorf("Access-Control-Allow-Headers = %q, should include Authorization", got)
	}
}

func TestCORS_DisallowedOrigin(t *testing.T) {
	env := testServer(t, func(d *Deps) {
		d.Config.CORS.AllowedOrigins = []string{"https://spaces.example"}
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Access-Control-Allow-Origin = %q, want empty", got)
	}
}

func TestNotFound(t *testing.T) {
	env := testServer(t)

	w := env.do(t, http.MethodGet, "/nonexistent", "", nil)
	expectMessage(t, w, http.StatusNotFound, "Not found")
}

func TestMethodNotAllowed(t *testing.T) {
	env := testServer(t)

	w := env.do(t, http.MethodGet, "/signup", "", nil)
	expectMessage(t, w, http.StatusMethodNotAllowed, "Method not allowed")
}

func TestRecovery(t *testing.T) {
	env := testServer(t)

	h := env.srv.recoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	expectMessage(t, w, http.StatusInternalServerError, msgInternal)
}

func TestBodySizeLimit(t *testing.T) {
	env := testServer(t, func(d *Deps) { d.Config.MaxBodyBytes = 16 })

	body := `{"username":"` + strings.Repeat("a", 64) + `","password":"pw"}`
	w := env.do(t, http.MethodPost, "/signup", "", body)
	expectMessage(t, w, http.StatusRequestEntityTooLarge, msgBodyTooLarge)
}

func TestStatusMap(t *testing.T) {
	tests := []struct {
		name string
		m    statusMap
		err  error
		want int
	}{
		{"validation default", defaultStatuses, apperr.New(apperr.Validation, "bad"), http.StatusBadRequest},
		{"conflict default", defaultStatuses, apperr.New(apperr.Conflict, "taken"), http.StatusBadRequest},
		{"not found default", defaultStatuses, apperr.New(apperr.NotFound, "missing"), http.StatusBadRequest},
		{"unauthorized default", defaultStatuses, apperr.New(apperr.Unauthorized, "no"), http.StatusBadRequest},
		{"not found on search", searchStatuses, apperr.New(apperr.NotFound, "missing"), http.StatusNotFound},
		{"conflict on check", checkStatuses, apperr.New(apperr.Conflict, "taken"), http.StatusForbidden},
		{"internal ignores map", checkStatuses, apperr.Internalf(errors.New("disk"), "writing"), http.StatusInternalServerError},
		{"plain error is internal", searchStatuses, errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := testServer(t)
			w := httptest.NewRecorder()
			env.srv.writeServiceError(w, httptest.NewRequest(http.MethodGet, "/", nil), tt.m, tt.err)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}
