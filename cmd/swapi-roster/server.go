package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/swapi-roster/pkg/enrich"
	"github.com/Sternrassler/swapi-roster/pkg/logging"
	"github.com/Sternrassler/swapi-roster/pkg/metrics"
	"github.com/Sternrassler/swapi-roster/pkg/roster"
	"github.com/Sternrassler/swapi-roster/pkg/swapi"
)

// server exposes the roster over HTTP.
type server struct {
	roster   *roster.Roster
	enricher *enrich.Enricher
	redis    *redis.Client
	logger   zerolog.Logger

	mu      sync.RWMutex
	loaded  bool
	summary roster.Summary
	loadErr error
}

func newServer(r *roster.Roster, enricher *enrich.Enricher, rdb *redis.Client) *server {
	return &server{
		roster:   r,
		enricher: enricher,
		redis:    rdb,
		logger:   logging.NewLogger(logging.ComponentServer),
	}
}

// finishLoad records the outcome of the initial load and marks the server ready.
func (s *server) finishLoad(summary roster.Summary, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = true
	s.summary = summary
	s.loadErr = err
	if err != nil {
		s.logger.Error().Err(err).Str(logging.FieldRunID, summary.RunID).Msg("Initial load incomplete")
	}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(logging.RequestLogger(s.logger))

	r.Get("/health", healthHandler)
	r.Get("/ready", s.readyHandler)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/characters", func(r chi.Router) {
		r.Get("/", s.listCharacters)
		r.Get("/{id}", s.getCharacter)
		r.Post("/{id}/favorite", s.toggleFavorite)
	})

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

type readyResponse struct {
	Status  string          `json:"status"`
	Summary *roster.Summary `json:"summary,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func (s *server) readyHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	loaded, summary, loadErr := s.loaded, s.summary, s.loadErr
	s.mu.RUnlock()

	if !loaded {
		writeJSON(w, http.StatusServiceUnavailable, readyResponse{Status: "loading"})
		return
	}

	if s.redis != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.redis.Ping(ctx).Err(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, readyResponse{Status: "redis unavailable", Error: err.Error()})
			return
		}
	}

	resp := readyResponse{Status: "ready", Summary: &summary}
	if loadErr != nil {
		resp.Error = loadErr.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) listCharacters(w http.ResponseWriter, r *http.Request) {
	chars, err := s.roster.Snapshot(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	if fav := r.URL.Query().Get("favorite"); fav != "" {
		want, err := strconv.ParseBool(fav)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "favorite must be a boolean"})
			return
		}
		filtered := chars[:0]
		for _, c := range chars {
			if c.Favorite == want {
				filtered = append(filtered, c)
			}
		}
		chars = filtered
	}

	writeJSON(w, http.StatusOK, chars)
}

type characterResponse struct {
	swapi.Character
	Details enrich.Details `json:"details"`
}

func (s *server) getCharacter(w http.ResponseWriter, r *http.Request) {
	c, err := s.roster.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	details := s.enricher.Details(r.Context(), c)
	writeJSON(w, http.StatusOK, characterResponse{Character: c, Details: details})
}

type favoriteResponse struct {
	URL      string `json:"url"`
	Favorite bool   `json:"is_favorite"`
}

func (s *server) toggleFavorite(w http.ResponseWriter, r *http.Request) {
	c, err := s.roster.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	fav, err := s.roster.ToggleFavorite(r.Context(), c.URL)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.logger.Info().Str(logging.FieldURL, c.URL).Bool("is_favorite", fav).Msg("Favorite toggled")
	writeJSON(w, http.StatusOK, favoriteResponse{URL: c.URL, Favorite: fav})
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, roster.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, roster.ErrStopped), errors.Is(err, context.Canceled):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	default:
		s.logger.Error().Err(err).Msg("Request failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
