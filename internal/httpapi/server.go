// Package httpapi exposes the resolver over HTTP.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/titledex/titledex/internal/logging"
	"github.com/titledex/titledex/internal/resolve"
)

// Server answers resolve queries against one resolver.
type Server struct {
	resolver *resolve.Resolver
	log      zerolog.Logger
}

// New returns a server over the given resolver.
func New(r *resolve.Resolver) *Server {
	return &Server{resolver: r, log: logging.Named("http")}
}

// Router builds the route table:
//
//	GET /healthz             liveness probe
//	GET /v1/resolve?q=&year= resolve one title query
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/v1/resolve", s.handleResolve)
	return r
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, http.StatusBadRequest, "missing query parameter q")
		return
	}
	year := 0
	if ys := r.URL.Query().Get("year"); ys != "" {
		n, err := strconv.Atoi(ys)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "year must be a positive integer")
			return
		}
		year = n
	}

	entity, err := s.resolver.Resolve(r.Context(), q, year)
	var amb *resolve.AmbiguousError
	switch {
	case errors.As(err, &amb):
		writeJSON(w, http.StatusMultipleChoices, map[string]any{
			"error":      amb.Error(),
			"candidates": amb.Candidates,
		})
	case errors.Is(err, resolve.ErrNotFound):
		writeError(w, http.StatusNotFound, "title not found")
	case err != nil:
		s.log.Error().Str("query", q).Err(err).Msg("resolve failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	default:
		writeJSON(w, http.StatusOK, entity)
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
