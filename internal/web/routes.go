package web

import (
	"io"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/xiangxin/internal/web/handlers"
	"github.com/kozaktomas/xiangxin/internal/web/middleware"
	"github.com/kozaktomas/xiangxin/internal/web/static"
)

func (s *Server) setupRoutes() {
	// Create handlers
	configHandler := handlers.NewConfigHandler(s.config)
	analyzeHandler := handlers.NewAnalyzeHandler(s.deps.Analyzer, s.config.Analysis.MaxUploadBytes)
	sessionHandler := handlers.NewSessionHandler(s.config.Analysis.MaxUploadBytes)
	statsHandler := handlers.NewStatsHandler(s.deps.Runs)
	healthHandler := handlers.NewHealthHandler(s.deps.DB)

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.Get)
		r.Get("/config", configHandler.Get)

		// Stateless analysis
		r.Post("/analyze", analyzeHandler.Analyze)

		// Run log
		r.Get("/runs", statsHandler.Recent)
		r.Get("/runs/stats", statsHandler.Get)

		// Capture session (cookie-bound)
		r.Route("/session", func(r chi.Router) {
			r.Use(middleware.WithSession(s.sessionManager))

			r.Get("/", sessionHandler.Get)
			r.Get("/preview", sessionHandler.Preview)
			r.Get("/events", sessionHandler.Events)
			r.Post("/capture/start", sessionHandler.StartCapture)
			r.Post("/capture", sessionHandler.Capture)
			r.Post("/upload", sessionHandler.Upload)
			r.Post("/cancel", sessionHandler.Cancel)
			r.Post("/reset", sessionHandler.Reset)
		})
	})

	// Serve static files for frontend (SPA)
	s.router.Get("/*", s.serveSPA)
}

// serveSPA serves the single-page application
func (s *Server) serveSPA(w http.ResponseWriter, r *http.Request) {
	fs := static.GetFileSystem()
	p := r.URL.Path
	if p == "/" {
		p = "/index.html"
	}

	// Try to open the file
	f, err := fs.Open(p)
	if err == nil {
		defer f.Close()

		stat, err := f.Stat()
		if err == nil && !stat.IsDir() {
			contentType := mime.TypeByExtension(path.Ext(p))
			if contentType == "" {
				contentType = "application/octet-stream"
			}
			w.Header().Set("Content-Type", contentType)

			// Add cache headers for static assets
			if strings.HasPrefix(p, "/assets/") {
				w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
			}

			w.WriteHeader(http.StatusOK)
			io.Copy(w, f)
			return
		}
	}

	// For SPA routing, serve index.html for non-asset paths
	if !strings.HasPrefix(p, "/assets/") {
		indexFile, err := fs.Open("/index.html")
		if err == nil {
			defer indexFile.Close()
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			io.Copy(w, indexFile)
			return
		}
	}

	http.NotFound(w, r)
}
