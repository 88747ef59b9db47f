package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

const keepAlivePingInterval = 10 * time.Second

// handleQuestionEvents streams reply events for a question over a websocket.
// Events are produced by the observer on reply creation and like toggles.
func (s *Server) handleQuestionEvents(w http.ResponseWriter, r *http.Request) {
	questionID := chi.URLParam(r, "id")
	if _, err := s.store.GetQuestionByID(r.Context(), questionID); err != nil {
		respondError(w, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "questionId", questionID, "error", err)
		return
	}
	defer conn.Close()

	ch, cancel := s.observer.Subscribe(questionID)
	defer cancel()

	// Drain incoming frames so close handshakes are noticed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(keepAlivePingInterval)
	defer ping.Stop()

	for {
		select {
		case ev := <-ch:
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
