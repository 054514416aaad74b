package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"lifequest/internal/engine"
)

// Server is the local read API other processes (voice pipeline, health
// sync, briefing renderer) consume. Writes go through the same engine
// entry points as the CLI, so idempotency and the regulator still apply.
type Server struct {
	svc     *engine.Service
	log     *slog.Logger
	router  chi.Router
	started time.Time
}

func New(svc *engine.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		svc:     svc,
		log:     logger,
		started: time.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/skills", s.handleSkills)
		r.Get("/today", s.handleToday)
		r.Get("/audit", s.handleAudit)
		r.Post("/quests/{questID}/complete", s.handleComplete)
		r.Post("/awards", s.handleAward)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.started).Seconds(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
