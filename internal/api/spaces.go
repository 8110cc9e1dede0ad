package api

import (
	"net/http"

	"github.com/nerrad567/spaces-core/internal/space"
)

// Success messages.
const (
	msgNoSpaces     = "No spaces joined yet"
	msgSpaceCreated = "Space created successfully"
	msgRoomJoined   = "Room joined successfully"
	msgRoomExited   = "Room exited successfully"
)

// spaceRequest is the body of the space mutation routes.
type spaceRequest struct {
	SpaceName     string `json:"spaceName"`
	SpacePassword string `json:"spacePassword"`
	Description   string `json:"description"`
}

// dashboardResponse lists the caller's spaces. Message is set only when the
// list is empty.
type dashboardResponse struct {
	Message string        `json:"message,omitempty"`
	Spaces  []space.Space `json:"spaces"`
}

// handleDashboard lists the spaces the caller has joined.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	spaces, err := s.spaces.ListForUser(r.Context(), identityFrom(r))
	if err != nil {
		s.writeServiceError(w, r, defaultStatuses, err)
		return
	}

	resp := dashboardResponse{Spaces: spaces}
	if len(spaces) == 0 {
		resp.Message = msgNoSpaces
		resp.Spaces = []space.Space{}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleCreateRoom creates a space owned by the caller.
func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req spaceRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if _, err := s.spaces.Create(r.Context(), identityFrom(r), req.SpaceName, req.SpacePassword, req.Description); err != nil {
		s.writeServiceError(w, r, defaultStatuses, err)
		return
	}
	writeMessage(w, http.StatusOK, msgSpaceCreated)
}

// handleJoinRoom adds the caller to a space.
func (s *Server) handleJoinRoom(w http.ResponseWriter, r *http.Request) {
	var req spaceRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if _, err := s.spaces.Join(r.Context(), identityFrom(r), req.SpaceName, req.SpacePassword); err != nil {
		s.writeServiceError(w, r, defaultStatuses, err)
		return
	}
	writeMessage(w, http.StatusOK, msgRoomJoined)
}

// handleExitRoom removes the caller from a space.
func (s *Server) handleExitRoom(w http.ResponseWriter, r *http.Request) {
	var req spaceRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if _, err := s.spaces.Leave(r.Context(), identityFrom(r), req.SpaceName); err != nil {
		s.writeServiceError(w, r, defaultStatuses, err)
		return
	}
	writeMessage(w, http.StatusOK, msgRoomExited)
}

// handleSearchRoom returns spaces whose name contains ?spaceName=. An absent
// or empty parameter matches every space. No matches answers 404.
func (s *Server) handleSearchRoom(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.spaces.Search(r.Context(), r.URL.Query().Get("spaceName"))
	if err != nil {
		s.writeServiceError(w, r, searchStatuses, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rooms": rooms})
}

// handleCheckSpace reports whether ?spaceName= is free: 200 when it is, 403
// when an existing name contains it.
func (s *Server) handleCheckSpace(w http.ResponseWriter, r *http.Request) {
	if err := s.spaces.CheckName(r.Context(), r.URL.Query().Get("spaceName")); err != nil {
		s.writeServiceError(w, r, checkStatuses, err)
		return
	}
	writeMessage(w, http.StatusOK, space.MsgSpaceNotFound)
}
