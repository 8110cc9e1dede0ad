package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/spaces-core/internal/apperr"
)

// Client-facing messages not owned by a service.
const (
	msgUnauthorized    = "Unauthorized"
	msgInternal        = "Internal server error"
	msgInvalidBody     = "Invalid JSON body"
	msgBodyTooLarge    = "Request body too large"
	msgTooManyRequests = "Too many requests"
)

// messageResponse is the body of every failure and of most successes.
type messageResponse struct {
	Message string `json:"message"`
}

// statusMap overrides the status code for error kinds on one route. Kinds
// not listed answer 400, except Internal which always answers 500.
type statusMap map[apperr.Kind]int

// Per-route overrides.
var (
	defaultStatuses = statusMap{}
	searchStatuses  = statusMap{apperr.NotFound: http.StatusNotFound}
	checkStatuses   = statusMap{apperr.Conflict: http.StatusForbidden}
)

func (m statusMap) status(kind apperr.Kind) int {
	if kind == apperr.Internal {
		return http.StatusInternalServerError
	}
	if code, ok := m[kind]; ok {
		return code
	}
	return http.StatusBadRequest
}

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeMessage writes {"message": msg}.
func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, messageResponse{Message: msg})
}

// writeServiceError maps a service error to a response using the route's
// status map. Internal failures are logged with their cause and answered
// with a generic message.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, m statusMap, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.Internal {
		s.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", requestIDFrom(r.Context()),
			"error", err,
		)
		writeMessage(w, http.StatusInternalServerError, msgInternal)
		return
	}
	writeMessage(w, m.status(kind), apperr.MessageOf(err, msgInternal))
}

// decodeJSON reads the request body into v, answering 400 or 413 and
// returning false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeMessage(w, http.StatusRequestEntityTooLarge, msgBodyTooLarge)
			return false
		}
		writeMessage(w, http.StatusBadRequest, msgInvalidBody)
		return false
	}
	return true
}
