package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/Popotomimi/NLWBACKEND/internal/logging"
	"github.com/Popotomimi/NLWBACKEND/internal/store"
)

// handleUploadAudio handles POST /api/rooms/{roomID}/audio. The audio file
// travels as the "file" field of a multipart form. It is transcribed, split
// into chunks, embedded and indexed under the room, making the content
// available to subsequent questions.
func (s *Server) handleUploadAudio(w http.ResponseWriter, r *http.Request) {
	if s.transcriber == nil || s.ingestor == nil {
		s.writeError(w, r, http.StatusServiceUnavailable, "audio ingestion is not configured")
		return
	}

	roomID := r.PathValue("roomID")
	log := logging.FromContext(r.Context())

	if _, err := s.rooms.GetRoom(r.Context(), roomID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, r, http.StatusNotFound, "room not found")
			return
		}
		log.Error("room lookup failed", slog.Any("error", err))
		s.writeError(w, r, http.StatusInternalServerError, "failed to load room")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, "audio file is required in the \"file\" form field")
		return
	}
	defer file.Close()

	transcription, err := s.transcriber.Transcribe(r.Context(), header.Filename, file)
	if err != nil {
		log.Error("transcription failed",
			slog.String("room_id", roomID),
			slog.String("filename", header.Filename),
			slog.Any("error", err),
		)
		s.writeError(w, r, http.StatusBadGateway, "failed to transcribe audio")
		return
	}

	chunks, err := s.ingestor.Ingest(r.Context(), roomID, transcription)
	if err != nil {
		log.Error("ingestion failed",
			slog.String("room_id", roomID),
			slog.Any("error", err),
		)
		s.writeError(w, r, http.StatusInternalServerError, "failed to index transcription")
		return
	}

	s.metrics.audioChunksIndexed.Add(float64(chunks))
	s.writeJSON(w, r, http.StatusCreated, uploadAudioResponse{Chunks: chunks})
}
