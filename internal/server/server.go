// Package server provides the HTTP API for company search, enrichment and saved prospects.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/jonathan/prospector/internal/server/middleware"
	"github.com/jonathan/prospector/internal/server/ratelimit"
	"github.com/jonathan/prospector/internal/store"
	"github.com/jonathan/prospector/internal/types"
)

// SummaryRetryAfter is how long clients wait before polling a pending summary again.
const SummaryRetryAfter = 3 * time.Second

// Searcher runs company searches.
type Searcher interface {
	Search(ctx context.Context, p types.Predicates) (types.SearchPage, error)
	BasicAISearch(ctx context.Context, query string, page, pageSize int) (types.SearchPage, error)
	AdvancedSearch(ctx context.Context, query string, page, pageSize int) (types.SearchPage, error)
}

// SummaryEnsurer triggers enrichment of companies without a summary.
type SummaryEnsurer interface {
	EnsureSummary(ctx context.Context, companyID string) (*types.Company, error)
}

// Deps are the services behind the API.
type Deps struct {
	Search      Searcher
	Enrichment  SummaryEnsurer
	Companies   store.Companies
	Prospects   store.Prospects
	RateLimiter *ratelimit.Limiter       // nil disables rate limiting
	Tokens      middleware.TokenValidator // nil disables bearer tokens
	DefaultUser string
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	deps        Deps
	rateLimiter *ratelimit.Limiter
	logger      *zap.SugaredLogger
}

// New creates a server listening on addr.
func New(addr string, deps Deps, logger *zap.SugaredLogger) *Server {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if deps.DefaultUser == "" {
		deps.DefaultUser = "demo-user"
	}
	s := &Server{deps: deps, rateLimiter: deps.RateLimiter, logger: logger}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      90 * time.Second, // AI searches wait on a model and a web search
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(s.withLogging)
	r.Use(chimw.Recoverer)
	r.Use(s.withCORS)
	r.Use(s.withRateLimit)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Route("/companies", func(r chi.Router) {
			r.Get("/", s.handleSearchCompanies)
			r.Get("/basic-ai-search", s.handleBasicAISearch)
			r.Get("/advanced-ai-search", s.handleAdvancedAISearch)
			r.Get("/{id}", s.handleGetCompany)
			r.Get("/{id}/ensureSummary", s.handleEnsureSummary)
			r.Post("/{id}/ensureSummary", s.handleEnsureSummary)
		})
		r.Route("/prospects", func(r chi.Router) {
			r.Use(middleware.Identity(s.deps.Tokens, s.deps.DefaultUser))
			r.Get("/", s.handleListProspects)
			r.Post("/{companyId}", s.handleToggleProspect)
		})
	})
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Infow("Server starting", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	s.logger.Infow("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
	s.logger.Infow("Server stopped")
	return nil
}

// withCORS allows every origin.
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-User")
		w.Header().Set("Access-Control-Expose-Headers", "Retry-After, X-Summary-Status")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withRateLimit rejects clients over their budget with 429.
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.rateLimiter == nil {
			next.ServeHTTP(w, r)
			return
		}
		allowed, info := s.rateLimiter.Allow(clientID(r), r.URL.Path, r.Method)
		setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, r, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withLogging logs every request with its status and duration.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Infow("Request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", chimw.GetReqID(r.Context()))
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warnw("Error encoding JSON response", "error", err)
	}
}

// clientID is the caller IP; RealIP has already applied forwarding headers.
func clientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

func setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	}
}

func (s *Server) rateLimitResponse(w http.ResponseWriter, r *http.Request, info ratelimit.Info) {
	response := map[string]any{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}
	if info.RetryAfter > 0 {
		secs := int(info.RetryAfter.Round(time.Second).Seconds())
		response["retry_after"] = max(secs, 1)
		w.Header().Set("Retry-After", strconv.Itoa(max(secs, 1)))
	}
	s.logger.Infow("Rate limit exceeded", "client", clientID(r), "path", r.URL.Path, "limit", info.Limit)
	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
