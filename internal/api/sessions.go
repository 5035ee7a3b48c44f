package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/discoursa/debate-engine/internal/auth"
	"github.com/discoursa/debate-engine/internal/session"
	"github.com/discoursa/debate-engine/pkg/models"
)

// handleCreateSession starts a new debate on a topic. Stance derivation and
// subtopic generation happen here via one-shot provider calls.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Topic string `json:"topic"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Topic = strings.TrimSpace(req.Topic)
	if req.Topic == "" {
		respondError(w, http.StatusBadRequest, "topic is required")
		return
	}

	claims, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if !s.rateLimiter.allow(claims.UserID) {
		respondError(w, http.StatusTooManyRequests, "debate limit reached, try again later")
		return
	}

	sess, err := s.engine.CreateSession(r.Context(), req.Topic)
	if err != nil {
		respondError(w, statusForError(err), "failed to create session")
		return
	}

	respondJSON(w, http.StatusCreated, toSessionModel(sess))
}

// handleGetSession returns session metadata
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id, ok := parseSessionID(w, r)
	if !ok {
		return
	}

	sess, err := s.engine.GetSession(r.Context(), id)
	if err != nil {
		respondError(w, statusForError(err), "failed to fetch session")
		return
	}

	respondJSON(w, http.StatusOK, toSessionModel(sess))
}

// handlePostTurn processes one user turn and returns the assistant rebuttal
func (s *Server) handlePostTurn(w http.ResponseWriter, r *http.Request) {
	id, ok := parseSessionID(w, r)
	if !ok {
		return
	}

	var req struct {
		Text string `json:"text"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		respondError(w, http.StatusBadRequest, "text is required")
		return
	}

	turn, err := s.engine.PostTurn(r.Context(), id, req.Text)
	if err != nil {
		respondError(w, statusForError(err), "failed to process turn")
		return
	}

	respondJSON(w, http.StatusCreated, s.toTurnModel(turn))
}

// handleGetTranscript returns the ordered turn history with scores
func (s *Server) handleGetTranscript(w http.ResponseWriter, r *http.Request) {
	id, ok := parseSessionID(w, r)
	if !ok {
		return
	}

	turns, err := s.engine.GetTranscript(r.Context(), id)
	if err != nil {
		respondError(w, statusForError(err), "failed to fetch transcript")
		return
	}

	response := make([]models.Turn, 0, len(turns))
	for _, turn := range turns {
		response = append(response, s.toTurnModel(turn))
	}

	respondJSON(w, http.StatusOK, response)
}

// handleConcludeSession explicitly closes a debate
func (s *Server) handleConcludeSession(w http.ResponseWriter, r *http.Request) {
	id, ok := parseSessionID(w, r)
	if !ok {
		return
	}

	if err := s.engine.ConcludeSession(r.Context(), id); err != nil {
		respondError(w, statusForError(err), "failed to conclude session")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": string(session.StatusConcluded)})
}

// handleDeleteSession removes a debate and its transcript
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id, ok := parseSessionID(w, r)
	if !ok {
		return
	}

	if err := s.engine.DeleteSession(r.Context(), id); err != nil {
		respondError(w, statusForError(err), "failed to delete session")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func parseSessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "sessionID")
	if raw == "" {
		respondError(w, http.StatusBadRequest, "session id is required")
		return uuid.Nil, false
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid session id")
		return uuid.Nil, false
	}

	return id, true
}

func toSessionModel(sess *session.Session) models.Session {
	return models.Session{
		ID:        sess.ID.String(),
		Topic:     sess.Topic,
		Subtopics: sess.Subtopics,
		Stance:    sess.Stance,
		Status:    string(sess.Status),
		CreatedAt: sess.CreatedAt,
	}
}

func (s *Server) toTurnModel(turn *session.Turn) models.Turn {
	m := models.Turn{
		ID:        turn.ID.String(),
		Index:     turn.Index,
		Speaker:   string(turn.Speaker),
		Text:      turn.Text,
		CreatedAt: turn.CreatedAt,
	}

	for _, pid := range turn.PassageIDs {
		m.PassageIDs = append(m.PassageIDs, pid.String())
	}

	for _, score := range turn.Scores {
		m.Scores = append(m.Scores, models.Score{
			Drift:         score.Drift,
			Hallucination: score.Hallucination,
			DriftFlagged:  score.Drift > s.driftThreshold,
			CreatedAt:     score.CreatedAt,
		})
	}

	return m
}
