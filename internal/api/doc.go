// Package api provides the HTTP API and WebSocket server for spaces.
//
// Public routes cover signup, login, health, status and Prometheus metrics.
// Every other route sits behind the bearer token gate, which injects the
// caller's auth.Identity into the request context or answers 401 with a
// generic body. Domain errors from the services carry an apperr.Kind that
// each route maps to a status code; handlers never choose codes for
// themselves.
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api
