package server

import (
	"net/http"

	"github.com/cockroachdb/errors"

	"github.com/jonathan/prospector/internal/apperr"
	"github.com/jonathan/prospector/internal/search"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ErrBadRequest marks malformed requests.
var ErrBadRequest = errors.New("bad request")

func badRequest(msg string) error {
	return errors.Mark(errors.New(msg), ErrBadRequest)
}

// HTTPStatus returns the status code and error code for an error.
func HTTPStatus(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case apperr.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	case apperr.IsValidation(err):
		return http.StatusBadGateway, "translation_failed"
	case errors.Is(err, search.ErrAIUnavailable):
		return http.StatusServiceUnavailable, "ai_unavailable"
	case apperr.IsTransient(err):
		return http.StatusServiceUnavailable, "upstream_unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// errorResponse maps err to a status and writes it. Internal details of 5xx
// errors are logged, not returned.
func (s *Server) errorResponse(w http.ResponseWriter, r *http.Request, err error) {
	status, code := HTTPStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Errorw("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		msg = "internal server error"
	} else {
		s.logger.Infow("Request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	s.jsonResponse(w, status, ErrorResponse{Error: code, Message: msg})
}
