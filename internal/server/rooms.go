package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Popotomimi/NLWBACKEND/internal/logging"
)

// handleCreateRoom handles POST /api/rooms.
func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		s.writeError(w, r, http.StatusBadRequest, "name is required")
		return
	}

	room, err := s.rooms.CreateRoom(r.Context(), req.Name, strings.TrimSpace(req.Description))
	if err != nil {
		logging.FromContext(r.Context()).Error("room creation failed", slog.Any("error", err))
		s.writeError(w, r, http.StatusInternalServerError, "failed to create room")
		return
	}

	s.writeJSON(w, r, http.StatusCreated, roomResponse{
		ID:          room.ID,
		Name:        room.Name,
		Description: room.Description,
		CreatedAt:   room.CreatedAt,
	})
}

// handleListRooms handles GET /api/rooms, returning all rooms newest first
// with their question counts.
func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.rooms.ListRooms(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Error("room listing failed", slog.Any("error", err))
		s.writeError(w, r, http.StatusInternalServerError, "failed to list rooms")
		return
	}

	out := make([]roomResponse, len(rooms))
	for i, room := range rooms {
		count := room.QuestionCount
		out[i] = roomResponse{
			ID:             room.ID,
			Name:           room.Name,
			Description:    room.Description,
			CreatedAt:      room.CreatedAt,
			QuestionsCount: &count,
		}
	}
	s.writeJSON(w, r, http.StatusOK, out)
}
