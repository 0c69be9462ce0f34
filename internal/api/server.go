// Package api exposes the dashboard and operations HTTP surface.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SergeOin/titan/internal/ingest"
	"github.com/SergeOin/titan/internal/logger"
	"github.com/SergeOin/titan/internal/pacing"
	"github.com/SergeOin/titan/internal/ratelimit"
	"github.com/SergeOin/titan/internal/storage"
)

// Dependencies are the collaborators the handlers reach into.
type Dependencies struct {
	Controller *pacing.Controller
	Loop       *ingest.Loop
	Writer     *storage.Writer
	Store      *storage.SQLiteStore
	Risk       *ratelimit.RiskMonitor
}

// Server wraps the HTTP server and its routes.
type Server struct {
	http   *http.Server
	deps   Dependencies
	logger logger.Logger
}

// New builds the server with all routes registered.
func New(addr string, readTimeout, writeTimeout time.Duration, deps Dependencies, log logger.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(log))

	s := &Server{
		http: &http.Server{
			Addr:         addr,
			Handler:      engine,
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
		},
		deps:   deps,
		logger: log,
	}
	s.registerRoutes(engine)
	return s
}

func (s *Server) registerRoutes(engine *gin.Engine) {
	engine.GET("/health", s.handleHealth)

	v1 := engine.Group("/api/v1")
	{
		v1.GET("/posts", s.handleListPosts)
		v1.POST("/posts/:id/favorite", s.handleFavorite)
		v1.DELETE("/posts/:id", s.handleDelete)
		v1.POST("/posts/:id/restore", s.handleRestore)

		v1.POST("/scrape/trigger", s.handleTrigger)
		v1.POST("/pacing/tier", s.handlePinTier)
		v1.DELETE("/pacing/tier", s.handleUnpinTier)
	}
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http server listening", logger.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// requestLogger logs one line per request.
func requestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("http request",
			logger.String("method", c.Request.Method),
			logger.String("path", c.Request.URL.Path),
			logger.Int("status", c.Writer.Status()),
			logger.Duration("elapsed", time.Since(start)),
		)
	}
}
