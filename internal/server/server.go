package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"safespace/internal/classifier"
	"safespace/internal/extension"
	"safespace/internal/handler"
	"safespace/internal/middleware"
	"safespace/internal/repository"
	"safespace/internal/service"
	"safespace/internal/telemetry"
)

// Options carries the shared components the HTTP layer routes to.
type Options struct {
	DB              *sqlx.DB
	Classifier      *classifier.Classifier
	Analytics       service.AnalyticsService
	Resources       repository.ResourceRepository
	Bridge          *extension.Bridge
	Metrics         *telemetry.Metrics
	AllowedOrigins  string
	ShutdownTimeout time.Duration
	Logger          *zap.Logger
}

type Server struct {
	router *gin.Engine
	opts   Options
	log    *zap.Logger
}

func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(opts.Logger, opts.Metrics))
	router.Use(middleware.CORS(opts.AllowedOrigins))

	s := &Server{
		router: router,
		opts:   opts,
		log:    opts.Logger,
	}

	s.setupRoutes()

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	evidenceRepo := repository.NewEvidenceRepository(s.opts.DB, s.log)

	analyzeHandler := handler.NewAnalyzeHandler(s.opts.Classifier, s.opts.Analytics, s.opts.Metrics, s.log)
	evidenceHandler := handler.NewEvidenceHandler(evidenceRepo, s.opts.Metrics, s.log)
	analyticsHandler := handler.NewAnalyticsHandler(s.opts.Analytics, s.log)
	resourceHandler := handler.NewResourceHandler(s.opts.Resources, s.log)
	extensionHandler := handler.NewExtensionHandler(s.opts.Bridge, s.log)
	healthHandler := handler.NewHealthHandler(s.opts.DB, s.log)

	s.router.GET("/metrics", gin.WrapH(s.opts.Metrics.Handler()))

	api := s.router.Group("/api")
	{
		api.GET("/health", healthHandler.Health)

		api.POST("/analyze", analyzeHandler.Analyze)
		api.POST("/analyze/batch", analyzeHandler.AnalyzeBatch)

		api.POST("/evidence", evidenceHandler.CreateEvidence)
		api.GET("/evidence", evidenceHandler.ListEvidence)
		api.DELETE("/evidence", evidenceHandler.ClearEvidence)
		api.DELETE("/evidence/:id", evidenceHandler.DeleteEvidence)

		api.GET("/analytics", analyticsHandler.GetRange)
		api.GET("/analytics/weekly", analyticsHandler.GetWeekly)

		api.GET("/resources", resourceHandler.ListResources)
		api.POST("/resources", resourceHandler.CreateResource)

		api.POST("/extension/messages", extensionHandler.HandleMessage)
	}
}

// Run serves on port until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:              net.JoinHostPort("", port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
