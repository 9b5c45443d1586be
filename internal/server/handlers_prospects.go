package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jonathan/prospector/internal/server/middleware"
	"github.com/jonathan/prospector/internal/types"
)

// ToggleResponse reports whether the company is saved after a toggle.
type ToggleResponse struct {
	Saved bool `json:"saved"`
}

// handleListProspects returns the caller's saved companies, newest first.
func (s *Server) handleListProspects(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	companies, err := s.deps.Prospects.ListProspects(r.Context(), userID)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	if companies == nil {
		companies = []types.Company{}
	}
	s.jsonResponse(w, http.StatusOK, companies)
}

// handleToggleProspect saves or unsaves a company for the caller.
func (s *Server) handleToggleProspect(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	saved, err := s.deps.Prospects.ToggleProspect(r.Context(), userID, chi.URLParam(r, "companyId"))
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, ToggleResponse{Saved: saved})
}
