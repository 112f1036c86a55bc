// Package server exposes card generation over HTTP.
package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ByLCY/namecard/card"
	"github.com/ByLCY/namecard/compose"
)

const defaultMaxUpload = 20 << 20

// Generator renders cards.
type Generator interface {
	Generate(ctx context.Context, req card.Request) (*card.Artifact, error)
}

// Catalog lists presets.
type Catalog interface {
	Names() []string
	Get(name string) (compose.TemplateConfig, error)
}

// Server holds the handler dependencies.
type Server struct {
	cards   Generator
	presets Catalog
	logger  *slog.Logger
	// MaxUpload caps uploaded template size in bytes.
	MaxUpload int64
}

// New creates a Server. A nil logger discards output.
func New(cards Generator, presets Catalog, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{cards: cards, presets: presets, logger: logger, MaxUpload: defaultMaxUpload}
}

// Engine returns a gin engine with recovery, request logging and all routes.
func (s *Server) Engine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())
	s.RegisterRoutes(r)
	return r
}

// RegisterRoutes mounts the API under /api.
func (s *Server) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api")
	{
		api.GET("/health", health)
		api.GET("/presets", s.listPresets)
		api.POST("/cards", s.createCard)
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("elapsed", time.Since(start)),
		)
	}
}
