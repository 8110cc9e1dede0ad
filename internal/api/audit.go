package api

import (
	"net/http"
	"strconv"

	"github.com/nerrad567/spaces-core/internal/audit"
)

// handleListAuditLogs returns the caller's own audit trail, newest first.
//
// Query parameters:
//   - action: filter by event type (space.created, user.logged_in, ...)
//   - limit: max results (default 50, max 200)
//   - offset: pagination offset
func (s *Server) handleListAuditLogs(w http.ResponseWriter, r *http.Request) {
	if s.auditRepo == nil {
		writeMessage(w, http.StatusInternalServerError, msgInternal)
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		UserID: identityFrom(r).UserID,
		Action: q.Get("action"),
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	result, err := s.auditRepo.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list audit logs", "error", err, "request_id", requestIDFrom(r.Context()))
		writeMessage(w, http.StatusInternalServerError, msgInternal)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
