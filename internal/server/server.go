// Package server serves the grouped indicator document and its dashboard
// projections over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"indicator-spec/internal"
	"indicator-spec/internal/dashboard"
	"indicator-spec/internal/logging"
	"indicator-spec/specs"
)

const shutdownTimeout = 10 * time.Second

// Options configures a Server.
type Options struct {
	// GeoJSON country boundaries for /map. Nil disables the map.
	GeoJSON []byte
	// MapKey is the feature property holding the country name.
	MapKey string
	Logger *zap.Logger
}

// Server is a read-only view over one document.
type Server struct {
	spec    specs.GroupedSpec
	doc     internal.Grouped
	geojson []byte
	mapKey  string
	logger  *zap.Logger
	router  *gin.Engine
}

// New validates the document and builds the router.
func New(doc specs.GroupedSpec, opts Options) (*Server, error) {
	grouped, err := internal.NewGrouped(doc)
	if err != nil {
		return nil, fmt.Errorf("invalid document: %w", err)
	}
	if opts.MapKey == "" {
		opts.MapKey = dashboard.DefaultMapKey
	}

	s := &Server{
		spec:    doc,
		doc:     grouped,
		geojson: opts.GeoJSON,
		mapKey:  opts.MapKey,
		logger:  logging.OrNop(opts.Logger),
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestID())
	router.Use(AccessLog(s.logger))
	router.Use(Metrics())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.GET("/periods", s.handlePeriods)
		api.GET("/metrics", s.handleMetrics)
		api.GET("/entities", s.handleEntities)
		api.GET("/data/:period", s.handleData)
		api.GET("/table", s.handleTable)
	}
	router.GET("/charts/:kind", s.handleChart)
	router.GET("/map/:period", s.handleMap)
	return router
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info("dashboard server listening", zap.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	s.logger.Info("dashboard server stopped")
	return nil
}
