package api

import (
	"net/http"

	"github.com/campusgrid/forum-service/internal/domain"
	"github.com/go-chi/chi/v5"
)

type createReportRequest struct {
	TargetType string `json:"targetType"`
	TargetID   string `json:"targetId"`
	Reason     string `json:"reason"`
}

var reportableTargets = map[string]bool{
	"question":       true,
	"reply":          true,
	"alumni_message": true,
}

func (s *Server) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	actor, err := identity(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req createReportRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if !reportableTargets[req.TargetType] || req.TargetID == "" {
		respondError(w, domain.ErrInvalidInput)
		return
	}

	report, err := s.store.CreateReport(r.Context(), &domain.Report{
		TargetType: req.TargetType,
		TargetID:   req.TargetID,
		ReporterID: actor.UserID,
		Reason:     req.Reason,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, map[string]any{"report": report})
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	actor, err := identity(r)
	if err != nil {
		respondError(w, err)
		return
	}
	if !actor.IsAdmin() {
		respondError(w, domain.ErrForbidden)
		return
	}

	reports, err := s.store.ListReports(r.Context(), r.URL.Query().Get("status"), paginationFromQuery(r))
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, map[string]any{"reports": reports})
}

type resolveReportRequest struct {
	Status string `json:"status"`
}

// handleResolveReport moves a report to resolved or ignored. Admin only,
// regardless of who reported or owns the target.
func (s *Server) handleResolveReport(w http.ResponseWriter, r *http.Request) {
	actor, err := identity(r)
	if err != nil {
		respondError(w, err)
		return
	}
	if !actor.IsAdmin() {
		respondError(w, domain.ErrForbidden)
		return
	}

	var req resolveReportRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.Status != domain.ReportStatusResolved && req.Status != domain.ReportStatusIgnored {
		respondError(w, domain.ErrInvalidInput)
		return
	}

	if _, err := s.store.SetReportStatus(r.Context(), chi.URLParam(r, "id"), req.Status); err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, map[string]bool{"ok": true})
}
