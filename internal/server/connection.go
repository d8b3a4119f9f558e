package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// handleWS upgrades the request and streams the viewer's projection of the
// match: the current view immediately, then a fresh view after every state
// change until the client disconnects.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "matchID")
	viewer := r.URL.Query().Get("viewer")

	// Reject unknown matches before upgrading.
	view, err := s.manager.View(r.Context(), matchID, viewer)
	if err != nil {
		s.writeGameError(w, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "match", matchID, "error", err)
		return
	}

	views, cancel := s.manager.Subscribe(matchID, viewer)
	defer cancel()
	defer conn.Close()

	s.logger.Info("viewer connected", "match", matchID, "viewer", viewer)

	// Read loop exists only to surface disconnects and answer pings.
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(view); err != nil {
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case v, ok := <-views:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(v); err != nil {
				s.logger.Debug("viewer write failed", "match", matchID, "viewer", viewer, "error", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			s.logger.Info("viewer disconnected", "match", matchID, "viewer", viewer)
			return
		}
	}
}
