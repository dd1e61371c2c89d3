// Package api provides the REST boundary: log ingestion and querying,
// session endpoints, the file drive, and the viewer SPA.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/poslog/poslog/internal/auth"
	"github.com/poslog/poslog/internal/drive"
	"github.com/poslog/poslog/internal/storage"
)

// Server is the REST API server.
type Server struct {
	store  storage.Storage
	guard  *auth.Guard
	drive  *drive.Store
	router *chi.Mux
	server *http.Server

	maxBodyBytes int64
	clientDist   string
}

// Options tunes the server beyond its collaborators.
type Options struct {
	// MaxBodyBytes caps JSON request bodies; 0 means the 1MB default.
	MaxBodyBytes int64

	// ClientDist is the viewer SPA directory, served with an index.html
	// fallback when it exists.
	ClientDist string
}

// NewServer creates a new API server.
func NewServer(addr string, store storage.Storage, guard *auth.Guard, driveStore *drive.Store, opts Options) *Server {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1_000_000
	}

	s := &Server{
		store:        store,
		guard:        guard,
		drive:        driveStore,
		router:       chi.NewRouter(),
		maxBodyBytes: opts.MaxBodyBytes,
		clientDist:   opts.ClientDist,
	}

	// Middleware
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))
	s.router.Use(corsAllowAll)

	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/logs", func(r chi.Router) {
			// JSON bodies only; the drive routes carry their own upload
			// size limit.
			r.Use(s.limitBody)
			// Ingestion stays open so external systems can log without a
			// session.
			r.Post("/", s.ingestLog)

			r.Group(func(r chi.Router) {
				r.Use(guard.RequireAuth)
				r.Get("/", s.listLogs)
				r.Get("/scenarios", s.listScenarios)
				r.Delete("/", s.deleteAllLogs)
				r.Delete("/{id}", s.deleteLog)
			})
		})

		r.Route("/auth", func(r chi.Router) {
			r.Use(s.limitBody)
			r.Post("/login", s.login)
			r.Get("/status", s.authStatus)
			r.Post("/logout", s.logout)
			r.With(guard.RequireAuth).Post("/refresh", s.refresh)
		})

		r.Route("/drive", func(r chi.Router) {
			r.Use(guard.RequireAuth)
			r.Get("/", s.listFiles)
			r.Post("/", s.uploadFile)
			r.Get("/{filename}", s.downloadFile)
			r.Delete("/{filename}", s.deleteFile)
		})
	})

	// Serve the viewer SPA when a build is present, falling back to
	// index.html for client-side routes.
	if opts.ClientDist != "" {
		if _, err := os.Stat(opts.ClientDist); err == nil {
			fileServer := http.FileServer(http.Dir(opts.ClientDist))
			s.router.Get("/*", func(w http.ResponseWriter, r *http.Request) {
				path := filepath.Join(opts.ClientDist, filepath.Clean("/"+r.URL.Path))
				if info, err := os.Stat(path); err == nil && !info.IsDir() {
					fileServer.ServeHTTP(w, r)
					return
				}
				http.ServeFile(w, r, filepath.Join(opts.ClientDist, "index.html"))
			})
		}
	}

	s.server = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the API server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// corsAllowAll allows every origin, header and method, and short-circuits
// OPTIONS so preflight never fails. The viewer may be served from a
// different origin than the API.
func corsAllowAll(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
		requested := r.Header.Get("Access-Control-Request-Headers")
		if requested == "" {
			requested = "*"
		}
		w.Header().Set("Access-Control-Allow-Headers", requested)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// limitBody caps request bodies at the configured size.
func (s *Server) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
		}
		next.ServeHTTP(w, r)
	})
}

// respondJSON writes a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
