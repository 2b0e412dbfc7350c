package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"adsbactions/pkg/flight"
	"adsbactions/pkg/proximity"
	"adsbactions/pkg/registry"
	"adsbactions/pkg/rules"
	"adsbactions/pkg/stats"
)

// Reloader lets the admin subset reload the rule configuration in place
// without restarting the process (spec.md §4.9 hot-reload supplement).
type Reloader func() error

// Checkpointer lets the admin subset force an out-of-band checkpoint
// (pkg/ingest's normal time-driven one runs independently).
type Checkpointer func()

// Deps are the running process's collaborators the server reports on or
// drives. Every field is read-only from the server's perspective except
// the two admin callbacks.
type Deps struct {
	Registry  *registry.Registry
	Stats     *stats.Stats
	Proximity *proximity.Engine
	Rules     *rules.Engine

	Reload     Reloader
	Checkpoint Checkpointer
}

// Server is the chi-routed introspection API: public read-only snapshot
// endpoints, a JWT-guarded admin subset, and a /live websocket feed.
type Server struct {
	router *chi.Mux
	deps   Deps
	auth   *AuthService
	hub    *hub
	logger *log.Logger
}

// NewServer builds a Server and wires its routes. auth may be nil, in
// which case the admin subset and login endpoint are not registered.
func NewServer(deps Deps, auth *AuthService, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(os.Stderr, "api: ", log.LstdFlags)
	}
	s := &Server{
		router: chi.NewRouter(),
		deps:   deps,
		auth:   auth,
		hub:    newHub(logger),
		logger: logger,
	}
	s.routes()
	return s
}

// Broadcast pushes ev to every connected /live client. Typically called
// from a proximity or rules callback, not from an HTTP handler.
func (s *Server) Broadcast(ev Event) { s.hub.Broadcast(ev) }

func (s *Server) routes() {
	r := s.router

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Compress(5))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/flights", s.handleListFlights)
		r.Get("/flights/{id}", s.handleGetFlight)
		r.Get("/stats", s.handleStats)
		r.Get("/los", s.handleListLOS)
		r.Get("/rules/report", s.handleRulesReport)

		if s.auth != nil {
			r.Post("/auth/login", s.handleLogin)

			r.Group(func(r chi.Router) {
				r.Use(s.authMiddleware)
				r.Post("/admin/reload", s.handleReload)
				r.Post("/admin/checkpoint", s.handleCheckpoint)
			})
		}

		r.Get("/live", s.hub.serveWS)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		token := strings.TrimPrefix(authHeader, "Bearer ")
		if err := s.auth.ValidateToken(token); err != nil {
			http.Error(w, "invalid or expired token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	token, err := s.auth.Login(req.Password)
	if err != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"token": token})
}

func (s *Server) handleListFlights(w http.ResponseWriter, r *http.Request) {
	flights := s.deps.Registry.Snapshot()
	out := make([]*flight.Flight, 0, len(flights))
	out = append(out, flights...)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(out),
		"flights": out,
	})
}

func (s *Server) handleGetFlight(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	f, ok := s.deps.Registry.Get(id)
	if !ok {
		http.Error(w, "flight not found", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, f)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.deps.Stats.Snapshot())
}

func (s *Server) handleListLOS(w http.ResponseWriter, r *http.Request) {
	if s.deps.Proximity == nil {
		respondJSON(w, http.StatusOK, map[string]interface{}{"count": 0, "records": []interface{}{}})
		return
	}
	records := s.deps.Proximity.Snapshot()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(records),
		"records": records,
	})
}

func (s *Server) handleRulesReport(w http.ResponseWriter, r *http.Request) {
	if s.deps.Rules == nil {
		respondJSON(w, http.StatusOK, []interface{}{})
		return
	}
	respondJSON(w, http.StatusOK, s.deps.Rules.ExecutionLog().Report())
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if s.deps.Reload == nil {
		http.Error(w, "reload not supported by this process", http.StatusNotImplemented)
		return
	}
	if err := s.deps.Reload(); err != nil {
		http.Error(w, fmt.Sprintf("reload failed: %v", err), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"reloaded": true})
}

func (s *Server) handleCheckpoint(w http.ResponseWriter, r *http.Request) {
	if s.deps.Checkpoint == nil {
		http.Error(w, "checkpoint not supported by this process", http.StatusNotImplemented)
		return
	}
	s.deps.Checkpoint()
	respondJSON(w, http.StatusOK, map[string]interface{}{"checkpointed": true})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Run starts an HTTP server on addr and blocks until ctx is cancelled,
// then shuts down gracefully within 10 seconds.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Printf("api: listening on %s", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
