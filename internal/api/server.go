// Package api serves the review workflow over HTTP for the web UI.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"photodup/internal/dedup"
)

// Dependencies are the components the API exposes.
type Dependencies struct {
	Service        *dedup.Service
	Thumbnails     *dedup.ThumbnailCache
	Browser        *dedup.PathBrowser
	Logger         dedup.Logger
	AllowedOrigins []string
	// DefaultBackupRoot and DefaultSortedRoot fill a scan request that
	// omits them.
	DefaultBackupRoot string
	DefaultSortedRoot string
}

// Server routes API requests to the review service.
type Server struct {
	svc            *dedup.Service
	thumbs         *dedup.ThumbnailCache
	browser        *dedup.PathBrowser
	logger         dedup.Logger
	allowedOrigins []string
	backupRoot     string
	sortedRoot     string
}

func NewServer(deps Dependencies) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = dedup.NopLogger{}
	}
	return &Server{
		svc:            deps.Service,
		thumbs:         deps.Thumbnails,
		browser:        deps.Browser,
		logger:         logger,
		allowedOrigins: deps.AllowedOrigins,
		backupRoot:     deps.DefaultBackupRoot,
		sortedRoot:     deps.DefaultSortedRoot,
	}
}

// Handler returns the root HTTP handler with all routes mounted under /api.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	c := cors.New(cors.Options{
		AllowedOrigins:   s.allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})
	r.Use(c.Handler)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/scan", s.handleScan)
		r.Get("/sessions", s.handleListSessions)
		r.Post("/sessions/{sessionID}/undo", s.handleUndo)
		r.Get("/sessions/{sessionID}/stats", s.handleStats)
		r.Get("/entries", s.handleListEntries)
		r.Post("/entries/{entryID}/ignore", s.handleIgnore)
		r.Post("/entries/{entryID}/delete", s.handleDelete)
		r.Get("/thumbnail", s.handleThumbnail)
		r.Get("/paths/suggest", s.handleSuggestPaths)
		r.Get("/paths/validate", s.handleValidatePath)
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed", time.Since(start).Round(time.Millisecond),
		)
	})
}
