package api

import (
	"net/http"

	"github.com/campusgrid/forum-service/internal/auth"
	"github.com/campusgrid/forum-service/internal/domain"
	"github.com/go-chi/chi/v5"
)

type createAlumniMessageRequest struct {
	UniversityID string `json:"universityId"`
	Content      string `json:"content"`
}

func (s *Server) handleCreateAlumniMessage(w http.ResponseWriter, r *http.Request) {
	actor, err := identity(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req createAlumniMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.UniversityID == "" {
		respondError(w, domain.ErrInvalidInput)
		return
	}

	message, err := s.store.CreateAlumniMessage(r.Context(), &domain.AlumniMessage{
		UniversityID: req.UniversityID,
		AuthorID:     actor.UserID,
		Content:      req.Content,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, map[string]any{"message": message})
}

func (s *Server) handleListAlumniMessages(w http.ResponseWriter, r *http.Request) {
	universityID := r.URL.Query().Get("universityId")
	messages, err := s.store.ListAlumniMessages(r.Context(), universityID, paginationFromQuery(r))
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, map[string]any{"messages": messages})
}

func (s *Server) handleDeleteAlumniMessage(w http.ResponseWriter, r *http.Request) {
	actor, err := identity(r)
	if err != nil {
		respondError(w, err)
		return
	}
	id := chi.URLParam(r, "id")

	message, err := s.store.GetAlumniMessageByID(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	if !auth.CanModify(actor, message.AuthorID) {
		respondError(w, domain.ErrForbidden)
		return
	}

	if err := s.store.DeleteAlumniMessage(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, map[string]bool{"ok": true})
}
