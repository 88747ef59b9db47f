package api

import (
	"net/http"

	"github.com/campusgrid/forum-service/internal/auth"
	"github.com/campusgrid/forum-service/internal/domain"
	"github.com/campusgrid/forum-service/internal/events"
	"github.com/go-chi/chi/v5"
)

type createReplyRequest struct {
	Content  string  `json:"content"`
	ParentID *string `json:"parentId,omitempty"`
}

func (s *Server) handleCreateReply(w http.ResponseWriter, r *http.Request) {
	actor, err := identity(r)
	if err != nil {
		respondError(w, err)
		return
	}
	questionID := chi.URLParam(r, "id")

	var req createReplyRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	reply, err := s.store.CreateReply(r.Context(), &domain.Reply{
		QuestionID: questionID,
		ParentID:   req.ParentID,
		AuthorID:   actor.UserID,
		Content:    req.Content,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	s.observer.Publish(questionID, events.Event{Type: events.TypeReplyCreated, Reply: reply})
	respondOK(w, map[string]any{"reply": reply})
}

// replyInQuestion loads a reply and rejects ids that exist but belong to a
// different question than the one in the path.
func (s *Server) replyInQuestion(r *http.Request) (*domain.Reply, error) {
	questionID := chi.URLParam(r, "id")
	replyID := chi.URLParam(r, "replyID")

	reply, err := s.store.GetReplyByID(r.Context(), replyID)
	if err != nil {
		return nil, err
	}
	if reply.QuestionID != questionID {
		return nil, domain.ErrNotFound
	}
	return reply, nil
}

func (s *Server) handleDeleteReply(w http.ResponseWriter, r *http.Request) {
	actor, err := identity(r)
	if err != nil {
		respondError(w, err)
		return
	}

	reply, err := s.replyInQuestion(r)
	if err != nil {
		respondError(w, err)
		return
	}
	if !auth.CanModify(actor, reply.AuthorID) {
		respondError(w, domain.ErrForbidden)
		return
	}

	if err := s.store.DeleteReply(r.Context(), reply.ID); err != nil {
		respondError(w, err)
		return
	}

	// Best-effort convergence: the deletion is already committed, so a failed
	// recount must not fail the request. It leaves the counter stale until the
	// next recount, which is why it is logged loudly.
	if _, err := s.store.RecountReplies(r.Context(), reply.QuestionID); err != nil {
		s.log.Warn("recount after reply deletion failed",
			"questionId", reply.QuestionID, "replyId", reply.ID, "error", err)
	}

	respondOK(w, map[string]bool{"ok": true})
}

func (s *Server) handleToggleLike(w http.ResponseWriter, r *http.Request) {
	actor, err := identity(r)
	if err != nil {
		respondError(w, err)
		return
	}

	reply, err := s.replyInQuestion(r)
	if err != nil {
		respondError(w, err)
		return
	}

	refreshed, err := s.store.ToggleReplyLike(r.Context(), reply.ID, actor.UserID)
	if err != nil {
		respondError(w, err)
		return
	}

	s.observer.Publish(refreshed.QuestionID, events.Event{Type: events.TypeReplyLiked, Reply: refreshed})
	respondOK(w, map[string]any{"reply": refreshed})
}
