package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/rest/logger"
	"github.com/go-pkgz/routegroup"

	"github.com/umputun/tenderscope/pkg/scheduler"
)

// Server exposes run status over HTTP for operators. It is read-only,
// the pipeline itself is driven by the scheduler, not by requests.
type Server struct {
	status  StatusProvider
	listen  string
	timeout time.Duration
	version string
	debug   bool

	lock       sync.Mutex
	httpServer *http.Server
	router     *routegroup.Bundle
}

// StatusProvider reports the outcome of the most recent run
type StatusProvider interface {
	LastStatus() *scheduler.RunStatus
}

// Config holds server configuration
type Config struct {
	Listen  string
	Timeout time.Duration
	Status  StatusProvider
	Version string
	Debug   bool
}

// New initializes a new server instance
func New(cfg Config) *Server {
	s := &Server{
		status:  cfg.Status,
		listen:  cfg.Listen,
		timeout: cfg.Timeout,
		version: cfg.Version,
		debug:   cfg.Debug,
		router:  routegroup.New(http.NewServeMux()),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// Run starts the HTTP server and handles graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	lgr.Printf("[INFO] starting status server on %s", s.listen)

	s.lock.Lock()
	s.httpServer = &http.Server{
		Addr:         s.listen,
		Handler:      s.router,
		ReadTimeout:  s.timeout,
		WriteTimeout: s.timeout,
	}
	s.lock.Unlock()

	go func() {
		<-ctx.Done()
		lgr.Printf("[INFO] shutting down status server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			lgr.Printf("[WARN] server shutdown error: %v", err)
		}
	}()

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}

	return nil
}

// setupMiddleware configures standard middleware for the server
func (s *Server) setupMiddleware() {
	s.router.Use(rest.AppInfo("tenderscope", "umputun", s.version))
	s.router.Use(rest.Ping)

	if s.debug {
		s.router.Use(logger.New(logger.Log(lgr.Default()), logger.Prefix("[DEBUG]")).Handler)
	}

	s.router.Use(rest.Recoverer(lgr.Default()))
	s.router.Use(rest.Throttle(100))
	s.router.Use(rest.SizeLimit(1024 * 1024)) // 1MB
}

// setupRoutes configures application routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("GET /status", s.statusHandler)
	s.router.HandleFunc("GET /digest", s.digestHandler)
}

// statusHandler returns service info and the last run outcome
func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"status":  "ok",
		"version": s.version,
		"time":    time.Now().UTC(),
	}
	if last := s.status.LastStatus(); last != nil {
		resp["last_run"] = last
	}
	renderJSON(w, r, http.StatusOK, resp)
}

// digestHandler returns the last run's digest as plain text
func (s *Server) digestHandler(w http.ResponseWriter, r *http.Request) {
	last := s.status.LastStatus()
	if last == nil {
		renderError(w, r, errors.New("no completed runs yet"), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(last.DigestText)); err != nil {
		lgr.Printf("[ERROR] can't write digest response: %v", err)
	}
}

// renderJSON sends JSON response
func renderJSON(w http.ResponseWriter, _ *http.Request, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			lgr.Printf("[ERROR] can't encode response to JSON: %v", err)
		}
	}
}

// renderError sends error response as JSON
func renderError(w http.ResponseWriter, r *http.Request, err error, code int) {
	errMsg := "unknown error"
	if err != nil {
		errMsg = err.Error()
	}
	renderJSON(w, r, code, map[string]string{"error": errMsg})
}
