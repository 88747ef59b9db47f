package api

import (
	"net/http"
	"strconv"

	"github.com/campusgrid/forum-service/internal/auth"
	"github.com/campusgrid/forum-service/internal/domain"
	"github.com/campusgrid/forum-service/internal/storage"
	"github.com/go-chi/chi/v5"
)

type createQuestionRequest struct {
	UniversityID string `json:"universityId"`
	Title        string `json:"title"`
	Content      string `json:"content"`
}

func (s *Server) handleCreateQuestion(w http.ResponseWriter, r *http.Request) {
	actor, err := identity(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req createQuestionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.UniversityID == "" {
		respondError(w, domain.ErrInvalidInput)
		return
	}

	question, err := s.store.CreateQuestion(r.Context(), &domain.Question{
		UniversityID: req.UniversityID,
		AuthorID:     actor.UserID,
		Title:        req.Title,
		Content:      req.Content,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, map[string]any{"question": question})
}

func (s *Server) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	universityID := r.URL.Query().Get("universityId")
	questions, err := s.store.ListQuestions(r.Context(), universityID, paginationFromQuery(r))
	if err != nil {
		// A failed query is an error, not an empty feed.
		respondError(w, err)
		return
	}
	respondOK(w, map[string]any{"questions": questions})
}

func (s *Server) handleGetQuestion(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	question, err := s.store.GetQuestionByID(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	replies, err := s.store.ListReplies(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, map[string]any{"question": question, "replies": replies})
}

func (s *Server) handleDeleteQuestion(w http.ResponseWriter, r *http.Request) {
	actor, err := identity(r)
	if err != nil {
		respondError(w, err)
		return
	}
	id := chi.URLParam(r, "id")

	question, err := s.store.GetQuestionByID(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	if !auth.CanModify(actor, question.AuthorID) {
		respondError(w, domain.ErrForbidden)
		return
	}

	if err := s.store.DeleteQuestion(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, map[string]bool{"ok": true})
}

func paginationFromQuery(r *http.Request) storage.PaginationArgs {
	var args storage.PaginationArgs
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		args.Limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v > 0 {
		args.Offset = v
	}
	return args
}
