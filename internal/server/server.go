// Package server exposes the temporal core over a small HTTP API: raw-log
// ingest (which triggers background recomputes), daily state reads, the
// gate decision, and the tomorrow outlook.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/quietloop/wellspring/internal/engine"
	"github.com/quietloop/wellspring/internal/store"
)

// Server is the wellspring HTTP API server.
type Server struct {
	db      *store.DB
	engine  *engine.Engine
	log     *zap.Logger
	router  chi.Router
	version string
	started time.Time
}

// New creates a new Server.
func New(db *store.DB, eng *engine.Engine, log *zap.Logger, version string) *Server {
	s := &Server{
		db:      db,
		engine:  eng,
		log:     log,
		version: version,
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
	r.Use(middleware.RealIP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/users/{userID}", func(r chi.Router) {
			// Raw-log ingest; each write schedules a background
			// recompute for the record's day.
			r.Post("/metrics", s.handleAddMetric)
			r.Post("/workouts", s.handleAddWorkout)
			r.Post("/habits", s.handleAddHabit)
			r.Post("/symptoms", s.handleAddSymptom)
			r.Post("/labs", s.handleAddLab)
			r.Post("/journal", s.handleAddJournal)
			r.Post("/nutrition", s.handleAddNutrition)
			r.Post("/overrides", s.handleAddOverride)

			// Read-only decision surface.
			r.Get("/days/{dayKey}/state", s.handleDailyState)
			r.Get("/days/{dayKey}/gate", s.handleGate)
			r.Get("/days/{dayKey}/outlook", s.handleOutlook)
		})
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := true
	if err := s.db.Ping(); err != nil {
		dbOK = false
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Seconds(),
		"db":      dbOK,
		"db_path": s.db.Path,
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
