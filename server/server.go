// Package server exposes the operational control surface: pipeline status,
// manual batch triggering, breaker resets and read access to briefs and logs.
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

	"github.com/briefwire/briefwire/pkg/domain"
	"github.com/briefwire/briefwire/pkg/scheduler"
)

// Server represents HTTP server instance
type Server struct {
	config    ConfigProvider
	scheduler Scheduler
	briefs    BriefStore
	sources   SourceStore
	logs      LogStore
	version   string
	debug     bool

	lock       sync.Mutex
	httpServer *http.Server
	router     *routegroup.Bundle
}

// Scheduler is the pipeline control the server needs
type Scheduler interface {
	RunBatch(ctx context.Context) *domain.ProcessingResult
	Status() scheduler.Status
	ResetBreaker(sourceID string)
	DailyLimits(ctx context.Context) (domain.DailyLimits, error)
}

// BriefStore provides read access to generated briefs
type BriefStore interface {
	GetBrief(ctx context.Context, id string) (*domain.Brief, error)
	ListBriefs(ctx context.Context, category domain.Category, limit int) ([]domain.Brief, error)
}

// SourceStore provides read access to configured sources
type SourceStore interface {
	GetSources(ctx context.Context, activeOnly bool) ([]domain.Source, error)
}

// LogStore provides read access to processing logs
type LogStore interface {
	Recent(ctx context.Context, n int) ([]domain.ProcessingLog, error)
}

// ConfigProvider provides server configuration
type ConfigProvider interface {
	GetServerConfig() (listen string, timeout time.Duration)
}

// New initializes a new server instance
func New(cfg ConfigProvider, sched Scheduler, briefs BriefStore, sources SourceStore, logs LogStore, version string, debug bool) *Server {
	s := &Server{
		config:    cfg,
		scheduler: sched,
		briefs:    briefs,
		sources:   sources,
		logs:      logs,
		version:   version,
		debug:     debug,
		router:    routegroup.New(http.NewServeMux()),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// Run starts the HTTP server and handles graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	listen, timeout := s.config.GetServerConfig()
	lgr.Printf("[INFO] starting server on %s", listen)

	s.lock.Lock()
	s.httpServer = &http.Server{
		Addr:         listen,
		Handler:      s.router,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	}
	s.lock.Unlock()

	go func() {
		<-ctx.Done()
		lgr.Printf("[INFO] shutting down server")
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
	s.router.Use(rest.AppInfo("briefwire", "briefwire", s.version))
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
	s.router.Mount("/api/v1").Route(func(r *routegroup.Bundle) {
		r.HandleFunc("GET /status", s.statusHandler)
		r.HandleFunc("GET /limits", s.limitsHandler)
		r.HandleFunc("POST /batch/trigger", s.triggerBatchHandler)
		r.HandleFunc("POST /sources/{id}/breaker/reset", s.resetBreakerHandler)
		r.HandleFunc("GET /sources", s.sourcesHandler)
		r.HandleFunc("GET /briefs", s.listBriefsHandler)
		r.HandleFunc("GET /briefs/{id}", s.getBriefHandler)
		r.HandleFunc("GET /logs", s.logsHandler)
	})
}

// RenderJSON sends JSON response
func RenderJSON(w http.ResponseWriter, _ *http.Request, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			lgr.Printf("[ERROR] can't encode response to JSON: %v", err)
		}
	}
}

// RenderError sends error response as JSON
func RenderError(w http.ResponseWriter, r *http.Request, err error, code int) {
	errMsg := "unknown error"
	if err != nil {
		errMsg = err.Error()
	}
	RenderJSON(w, r, code, map[string]string{"error": errMsg})
}
