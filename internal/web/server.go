package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kozaktomas/xiangxin/internal/ai"
	"github.com/kozaktomas/xiangxin/internal/capture"
	"github.com/kozaktomas/xiangxin/internal/config"
	"github.com/kozaktomas/xiangxin/internal/database"
	"github.com/kozaktomas/xiangxin/internal/logger"
	"github.com/kozaktomas/xiangxin/internal/session"
	"github.com/kozaktomas/xiangxin/internal/web/middleware"
)

// Dependencies are the collaborators the server hands to its handlers.
// Camera, Runs and DB may be nil.
type Dependencies struct {
	Analyzer ai.Analyzer
	Camera   capture.Camera
	Runs     database.RunReader
	DB       database.HealthChecker
}

// Server represents the web server
type Server struct {
	config         *config.Config
	deps           Dependencies
	router         *chi.Mux
	httpServer     *http.Server
	sessionManager *middleware.SessionManager
}

// NewServer creates a new web server
func NewServer(cfg *config.Config, deps Dependencies) *Server {
	r := chi.NewRouter()

	constraints := capture.DefaultConstraints()
	if cfg.Camera.Width > 0 && cfg.Camera.Height > 0 {
		constraints.Width = cfg.Camera.Width
		constraints.Height = cfg.Camera.Height
	}

	// Every visitor gets an independent state machine sharing the analyzer.
	sessionManager := middleware.NewSessionManager(cfg.Web.SessionSecret, func() *session.Session {
		return session.New(session.Options{
			Camera:      deps.Camera,
			Constraints: constraints,
			Analyzer:    deps.Analyzer,
			UploadLimit: cfg.Analysis.MaxUploadBytes,
			Timeout:     cfg.Analysis.Timeout,
		})
	})

	s := &Server{
		config:         cfg,
		deps:           deps,
		router:         r,
		sessionManager: sessionManager,
	}

	// Set up middleware stack
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger())
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.Web.AllowedOrigins))
	r.Use(middleware.SecurityHeaders())

	// Set up routes
	s.setupRoutes()

	// Create HTTP server
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // Long timeout for SSE and analysis
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	logger.WithField("addr", s.httpServer.Addr).Info("starting web server")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Logger.Info("shutting down web server")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}

	// Closing sessions releases cameras and aborts running analyses.
	s.sessionManager.Stop()
	return nil
}

// Router returns the chi router for testing
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Sessions returns the session manager for testing
func (s *Server) Sessions() *middleware.SessionManager {
	return s.sessionManager
}
