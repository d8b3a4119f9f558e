package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/coinduel/dueljack/internal/game"
)

// Server exposes the match manager over HTTP: a small JSON API for actions
// and a WebSocket stream of per-viewer projections.
type Server struct {
	manager  *Manager
	logger   *log.Logger
	upgrader websocket.Upgrader
}

// NewServer creates the HTTP layer on top of manager
func NewServer(manager *Manager, logger *log.Logger) *Server {
	return &Server{
		manager: manager,
		logger:  logger.WithPrefix("http"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Match access is guarded upstream; the stream itself only
				// carries what the viewer is allowed to see.
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Routes builds the router
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Route("/matches", func(r chi.Router) {
		r.Post("/", s.handleCreateMatch)
		r.Route("/{matchID}", func(r chi.Router) {
			r.Get("/", s.handleGetMatch)
			r.Post("/actions", s.handleAction)
			r.Post("/forfeit", s.handleForfeit)
			r.Get("/ws", s.handleWS)
		})
	})
	return r
}

type createMatchRequest struct {
	Player1 string `json:"player1"`
	Player2 string `json:"player2"`
	Stake   int    `json:"stake"`
	Mode    string `json:"mode"`
}

type actionRequest struct {
	Actor  string      `json:"actor"`
	Action game.Action `json:"action"`
}

type forfeitRequest struct {
	Actor string `json:"actor"`
}

func (s *Server) handleCreateMatch(w http.ResponseWriter, r *http.Request) {
	var req createMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Mode == "" {
		req.Mode = "classic"
	}
	view, err := s.manager.Create(r.Context(), req.Player1, req.Player2, req.Stake, req.Mode)
	if err != nil {
		s.writeGameError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, view)
}

func (s *Server) handleGetMatch(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "matchID")
	viewer := r.URL.Query().Get("viewer")
	view, err := s.manager.View(r.Context(), matchID, viewer)
	if err != nil {
		s.writeGameError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "matchID")
	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	view, err := s.manager.Act(r.Context(), matchID, req.Actor, req.Action)
	if err != nil {
		s.writeGameError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleForfeit(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "matchID")
	var req forfeitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	view, err := s.manager.Forfeit(r.Context(), matchID, req.Actor)
	if err != nil {
		s.writeGameError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("writing response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// writeGameError maps engine errors onto HTTP statuses
func (s *Server) writeGameError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrUnknownMatch), errors.Is(err, game.ErrUnknownBox):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, game.ErrInvalidBet):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, game.ErrIllegalAction), errors.Is(err, game.ErrConcurrentModification):
		s.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, game.ErrMatchFaulted):
		s.writeError(w, http.StatusInternalServerError, err.Error())
	default:
		s.writeError(w, http.StatusBadRequest, err.Error())
	}
}
