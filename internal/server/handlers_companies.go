package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/jonathan/prospector/internal/apperr"
	"github.com/jonathan/prospector/internal/filters"
)

// handleSearchCompanies runs a filtered search from query parameters.
func (s *Server) handleSearchCompanies(w http.ResponseWriter, r *http.Request) {
	page, err := s.deps.Search.Search(r.Context(), filters.Normalize(filters.FromQuery(r.URL.Query())))
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, page)
}

// handleBasicAISearch translates the query with the model, then searches.
func (s *Server) handleBasicAISearch(w http.ResponseWriter, r *http.Request) {
	query, page, pageSize, ok := s.aiSearchParams(w, r)
	if !ok {
		return
	}
	result, err := s.deps.Search.BasicAISearch(r.Context(), query, page, pageSize)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

// handleAdvancedAISearch runs the two-phase search.
func (s *Server) handleAdvancedAISearch(w http.ResponseWriter, r *http.Request) {
	query, page, pageSize, ok := s.aiSearchParams(w, r)
	if !ok {
		return
	}
	result, err := s.deps.Search.AdvancedSearch(r.Context(), query, page, pageSize)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

func (s *Server) aiSearchParams(w http.ResponseWriter, r *http.Request) (string, int, int, bool) {
	q := r.URL.Query()
	query := strings.TrimSpace(q.Get("query"))
	if query == "" {
		s.errorResponse(w, r, badRequest("query is required"))
		return "", 0, 0, false
	}
	p := filters.Normalize(filters.Raw{Page: q.Get("page"), PageSize: q.Get("pageSize")})
	return query, p.Page, p.PageSize, true
}

// handleGetCompany returns the stored company; clients poll it for the summary.
func (s *Server) handleGetCompany(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	company, err := s.deps.Companies.GetCompany(r.Context(), id)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	if company == nil {
		s.errorResponse(w, r, apperr.NotFound("company", id))
		return
	}
	setSummaryStatus(w, company.HasSummary())
	s.jsonResponse(w, http.StatusOK, company)
}

// handleEnsureSummary enqueues enrichment when the summary is missing and
// returns the company as currently stored.
func (s *Server) handleEnsureSummary(w http.ResponseWriter, r *http.Request) {
	company, err := s.deps.Enrichment.EnsureSummary(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	setSummaryStatus(w, company.HasSummary())
	s.jsonResponse(w, http.StatusOK, company)
}

func setSummaryStatus(w http.ResponseWriter, ready bool) {
	if ready {
		w.Header().Set("X-Summary-Status", "ready")
		return
	}
	w.Header().Set("X-Summary-Status", "pending")
	w.Header().Set("Retry-After", strconv.Itoa(int(SummaryRetryAfter.Seconds())))
}
