package auction

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/squadbid/squadbid/go/internal/catalog"
	"github.com/squadbid/squadbid/go/internal/models"
	"github.com/squadbid/squadbid/go/internal/users"
)

// Service exposes the auction App over HTTP JSON endpoints
type Service struct {
	app *App
}

// NewService creates a new auction service
func NewService(app *App) *Service {
	return &Service{app: app}
}

// RegisterRoutes mounts the session endpoints on mux
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auctions", s.handleCreateSession)
	mux.HandleFunc("GET /api/auctions", s.handleListSessions)
	mux.HandleFunc("GET /api/auctions/{id}", s.handleGetSession)
	mux.HandleFunc("DELETE /api/auctions/{id}", s.handleDeleteSession)
	mux.HandleFunc("GET /api/auctions/{id}/time", s.handleTimeLeft)
	mux.HandleFunc("GET /api/auctions/{id}/won", s.handleListWonPlayers)
	mux.HandleFunc("POST /api/auctions/{id}/join", s.handleJoinSession)
	mux.HandleFunc("POST /api/auctions/{id}/start", s.handleStartSession)
	mux.HandleFunc("POST /api/auctions/{id}/bid", s.handlePlaceBid)
	mux.HandleFunc("POST /api/auctions/{id}/skip", s.handleCastSkipVote)
	mux.HandleFunc("POST /api/auctions/{id}/next", s.handleAdvance)
	mux.HandleFunc("POST /api/auctions/{id}/pause", s.handlePauseSession)
	mux.HandleFunc("POST /api/auctions/{id}/resume", s.handleResumeSession)
	mux.HandleFunc("POST /api/auctions/{id}/end", s.handleEndSession)
}

func (s *Service) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sess, err := s.app.CreateSession(r.Context(), req)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Service) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.app.ListSessions(r.Context())
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Service) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	sess, err := s.app.GetSession(r.Context(), id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Service) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	userID, ok := queryUserID(w, r)
	if !ok {
		return
	}
	if err := s.app.DeleteSession(r.Context(), id, userID); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) handleTimeLeft(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	tl, err := s.app.TimeLeft(r.Context(), id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tl)
}

func (s *Service) handleListWonPlayers(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	won, err := s.app.ListWonPlayers(r.Context(), id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, won)
}

func (s *Service) handleJoinSession(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req JoinSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sess, err := s.app.JoinSession(r.Context(), id, req)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Service) handleStartSession(w http.ResponseWriter, r *http.Request) {
	s.hostAction(w, r, s.app.StartSession)
}

func (s *Service) handlePlaceBid(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req PlaceBidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sess, err := s.app.PlaceBid(r.Context(), id, req)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Service) handleCastSkipVote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req SkipVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sess, err := s.app.CastSkipVote(r.Context(), id, req)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Service) handleAdvance(w http.ResponseWriter, r *http.Request) {
	s.hostAction(w, r, s.app.AdvanceCurrentItem)
}

func (s *Service) handlePauseSession(w http.ResponseWriter, r *http.Request) {
	s.hostAction(w, r, s.app.PauseSession)
}

func (s *Service) handleResumeSession(w http.ResponseWriter, r *http.Request) {
	s.hostAction(w, r, s.app.ResumeSession)
}

func (s *Service) handleEndSession(w http.ResponseWriter, r *http.Request) {
	s.hostAction(w, r, s.app.EndSession)
}

// hostAction handles the shared shape of host-only POST endpoints whose body
// is {"user_id": ...}.
func (s *Service) hostAction(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, sessionID, userID uuid.UUID) (*models.Session, error)) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body struct {
		UserID uuid.UUID `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sess, err := fn(r.Context(), id, body.UserID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return uuid.Nil, false
	}
	return id, true
}

func queryUserID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, err := uuid.Parse(r.URL.Query().Get("user_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid or missing user_id")
		return uuid.Nil, false
	}
	return userID, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeAppError maps domain errors onto HTTP status codes.
func writeAppError(w http.ResponseWriter, err error) {
	if br, ok := IsBidRejected(err); ok {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":    br.Error(),
			"reason":   string(br.Reason),
			"required": br.Required,
			"offered":  br.Offered,
		})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, ErrSessionNotFound),
		errors.Is(err, users.ErrUserNotFound),
		errors.Is(err, catalog.ErrPlayerNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrNotHost), errors.Is(err, ErrNotParticipant):
		status = http.StatusForbidden
	case errors.Is(err, ErrAlreadyJoined), errors.Is(err, ErrAlreadyVoted),
		errors.Is(err, ErrSessionNotPending), errors.Is(err, ErrSessionNotActive),
		errors.Is(err, ErrSessionNotPaused), errors.Is(err, ErrSessionCompleted),
		errors.Is(err, ErrNoCurrentItem), errors.Is(err, ErrNoPlayersAvailable),
		errors.Is(err, ErrNoParticipants), errors.Is(err, ErrInsufficientBudget):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("request failed")
	}
	writeError(w, status, err.Error())
}
