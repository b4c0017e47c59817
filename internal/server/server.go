// Package server is the HTTP backend the browser front end talks to. It
// proxies OAuth code exchange and LinkedIn lookups, and runs publish batches.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/blacktop/postkit/internal/credstore"
	"github.com/blacktop/postkit/internal/logutil"
	"github.com/blacktop/postkit/internal/oauth"
	"github.com/blacktop/postkit/internal/publish"
	"github.com/blacktop/postkit/internal/publish/linkedin"
	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 10 * time.Second

// Deps are the collaborators the server routes to.
type Deps struct {
	Orchestrator *publish.Orchestrator
	Simulation   *publish.Orchestrator
	OAuth        *oauth.Exchanger
	LinkedIn     *linkedin.Client
	// Store receives tokens from the OAuth callback; nil disables saving.
	Store credstore.Writer
}

// Config holds listener settings.
type Config struct {
	Addr        string
	CORSOrigins []string
}

// Server wraps the gin engine.
type Server struct {
	cfg    Config
	deps   Deps
	engine *gin.Engine
}

// New builds the server and registers its routes.
func New(cfg Config, deps Deps) *Server {
	if deps.Simulation == nil {
		deps.Simulation = publish.NewSimulation()
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(), cors(cfg.CORSOrigins))

	s := &Server{cfg: cfg, deps: deps, engine: engine}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/healthz", s.health)

	api := s.engine.Group("/api")
	api.GET("/oauth/:platform", s.authorize)
	api.POST("/oauth/:platform/callback", s.callback)
	api.GET("/v2/organizationalEntityAcls", s.organizationACLs)
	api.POST("/publish", s.publish)
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logutil.Infof("backend listening on %s", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	logutil.Infof("shutting down backend")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
