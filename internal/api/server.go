package api

import (
	"net/http"

	"github.com/campusgrid/forum-service/internal/auth"
	"github.com/campusgrid/forum-service/internal/events"
	"github.com/campusgrid/forum-service/internal/logger"
	"github.com/campusgrid/forum-service/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
)

// Server holds the handler dependencies. It is constructed once at process
// start and shared by every request.
type Server struct {
	store    storage.Storage
	verifier *auth.TokenVerifier
	observer *events.Observer
	log      *logger.Logger
	upgrader websocket.Upgrader
}

func NewServer(store storage.Storage, verifier *auth.TokenVerifier, observer *events.Observer, log *logger.Logger) *Server {
	return &Server{
		store:    store,
		verifier: verifier,
		observer: observer,
		log:      log.With("component", "api"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Routes assembles the router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", s.handleHealth)

	r.Route("/questions", func(r chi.Router) {
		r.Get("/", s.handleListQuestions)
		r.Get("/{id}", s.handleGetQuestion)
		r.Get("/{id}/events", s.handleQuestionEvents)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Post("/", s.handleCreateQuestion)
			r.Post("/{id}/delete", s.handleDeleteQuestion)
			r.Post("/{id}/reply", s.handleCreateReply)
			r.Post("/{id}/reply/{replyID}/delete", s.handleDeleteReply)
			r.Post("/{id}/reply/{replyID}/like", s.handleToggleLike)
		})
	})

	r.Route("/alumni-messages", func(r chi.Router) {
		r.Get("/", s.handleListAlumniMessages)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Post("/", s.handleCreateAlumniMessage)
			r.Delete("/{id}", s.handleDeleteAlumniMessage)
		})
	})

	r.Route("/reports", func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Post("/", s.handleCreateReport)
		r.Get("/", s.handleListReports)
		r.Patch("/{id}", s.handleResolveReport)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondOK(w, map[string]bool{"ok": true})
}
