package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Popotomimi/NLWBACKEND/internal/logging"
	"github.com/Popotomimi/NLWBACKEND/internal/rag"
	"github.com/Popotomimi/NLWBACKEND/internal/store"
)

// handleCreateQuestion handles POST /api/rooms/{roomID}/questions. It runs
// the full question pipeline and responds 201 with the persisted question ID
// and the answer, which is null when the room's transcriptions held nothing
// relevant.
func (s *Server) handleCreateQuestion(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("roomID")
	log := logging.FromContext(r.Context())

	var req questionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	start := time.Now()
	q, err := s.asker.Ask(r.Context(), roomID, req.Question)
	elapsed := time.Since(start)

	if err != nil {
		var verr *rag.ValidationError
		if errors.As(err, &verr) {
			s.writeError(w, r, http.StatusBadRequest, verr.Error())
			return
		}

		s.metrics.observeQuestion(outcomeError, elapsed)
		log.Error("question pipeline failed",
			slog.String("room_id", roomID),
			slog.Any("error", err),
		)
		s.writeError(w, r, http.StatusInternalServerError, "failed to process question")
		return
	}

	outcome := outcomeAnswered
	if q.Answer == nil {
		outcome = outcomeNoContext
	}
	s.metrics.observeQuestion(outcome, elapsed)

	s.writeJSON(w, r, http.StatusCreated, questionResponse{
		QuestionID: q.ID,
		Answer:     q.Answer,
	})
}

// handleListQuestions handles GET /api/rooms/{roomID}/questions, returning
// the room's stored questions newest first.
func (s *Server) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("roomID")

	if _, err := s.rooms.GetRoom(r.Context(), roomID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, r, http.StatusNotFound, "room not found")
			return
		}
		logging.FromContext(r.Context()).Error("room lookup failed", slog.Any("error", err))
		s.writeError(w, r, http.StatusInternalServerError, "failed to load room")
		return
	}

	questions, err := s.rooms.ListQuestions(r.Context(), roomID)
	if err != nil {
		logging.FromContext(r.Context()).Error("question listing failed", slog.Any("error", err))
		s.writeError(w, r, http.StatusInternalServerError, "failed to list questions")
		return
	}

	out := make([]questionRecord, len(questions))
	for i, q := range questions {
		out[i] = questionRecord{
			ID:        q.ID,
			Question:  q.Text,
			Answer:    q.Answer,
			CreatedAt: q.CreatedAt,
		}
	}
	s.writeJSON(w, r, http.StatusOK, out)
}
