// Package server exposes studylit over a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/julianstephens/studylit/internal/auth"
	"github.com/julianstephens/studylit/internal/coach"
	"github.com/julianstephens/studylit/internal/config"
	"github.com/julianstephens/studylit/internal/constants"
	"github.com/julianstephens/studylit/internal/lockfile"
	"github.com/julianstephens/studylit/internal/logger"
	"github.com/julianstephens/studylit/internal/ratelimit"
	"github.com/julianstephens/studylit/internal/report"
	"github.com/julianstephens/studylit/internal/storage"
)

// Deps are the services the API is built on. Coach may be nil when no LLM is
// configured; the AI endpoints then answer 503.
type Deps struct {
	Store   storage.Provider
	Auth    *auth.Service
	Coach   *coach.Coach
	Reports *report.Service
	Limiter ratelimit.Limiter
	Config  *config.Config
	Now     func() time.Time
}

type Server struct {
	store   storage.Provider
	auth    *auth.Service
	coach   *coach.Coach
	reports *report.Service
	limiter ratelimit.Limiter
	cfg     *config.Config
	now     func() time.Time
	engine  *gin.Engine
}

func New(d Deps) *Server {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Limiter == nil {
		d.Limiter = ratelimit.NewMemoryLimiter()
	}
	if !d.Config.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	registerValidators()

	s := &Server{
		store:   d.Store,
		auth:    d.Auth,
		coach:   d.Coach,
		reports: d.Reports,
		limiter: d.Limiter,
		cfg:     d.Config,
		now:     d.Now,
	}
	s.engine = gin.New()
	s.engine.Use(gin.Recovery(), requestLogger())
	s.routes()
	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on the configured address until ctx is cancelled, then drains
// in-flight requests. A SQLite-backed server holds the lockfile while running.
func (s *Server) Run(ctx context.Context) error {
	addr := s.cfg.Server.Addr
	if !s.cfg.IsPostgres() {
		path := lockfile.Path(s.cfg.ConfigDir)
		if err := lockfile.Acquire(path, addr); err != nil {
			return err
		}
		defer func() {
			if err := lockfile.Release(path); err != nil {
				logger.Warn("failed to release server lock", "err", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", addr, "driver", s.store.Driver())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ServerShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}
