// Package server exposes the conversation flow over HTTP.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/spherical/cropcare/internal/conversation"
	"github.com/spherical/cropcare/internal/observability"
	"github.com/spherical/cropcare/internal/session"
)

// Config holds HTTP handler settings.
type Config struct {
	RequestTimeout time.Duration
	MaxUploadBytes int64
}

// DefaultConfig returns default handler settings.
func DefaultConfig() Config {
	return Config{
		RequestTimeout: 5 * time.Minute,
		MaxUploadBytes: 50 << 20,
	}
}

// Server serves the CropCare API.
type Server struct {
	flow   *conversation.Flow
	store  *session.Store
	logger *observability.Logger
	cfg    Config
}

// New creates a Server.
func New(flow *conversation.Flow, store *session.Store, logger *observability.Logger, cfg Config) *Server {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultConfig().RequestTimeout
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultConfig().MaxUploadBytes
	}
	if logger == nil {
		logger = observability.DefaultLogger()
	}
	return &Server{
		flow:   flow,
		store:  store,
		logger: logger.WithComponent("http"),
		cfg:    cfg,
	}
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(s.cfg.RequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "cropcare"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/languages", s.listLanguages)
		r.Post("/sessions", s.createSession)

		r.Route("/sessions/{sessionId}", func(r chi.Router) {
			r.Get("/", s.getSession)
			r.Delete("/", s.deleteSession)
			r.Put("/language", s.selectLanguage)
			r.Delete("/language", s.changeLanguage)
			r.Post("/upload", s.upload)
			r.Post("/document-chat", s.documentChat)
			r.Post("/general-chat", s.generalChat)
			r.Get("/summary/audio", s.summaryAudio)
		})
	})

	return r
}

// requestLogger logs one line per request through zerolog and carries the
// chi request ID into the context for downstream loggers.
func requestLogger(logger *observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx := observability.ContextWithRequestID(r.Context(), chimiddleware.GetReqID(r.Context()))
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			event := logger.WithContext(ctx).Info()
			if status >= http.StatusInternalServerError {
				event = logger.WithContext(ctx).Error()
			}
			event.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("elapsed", time.Since(start)).
				Msg("HTTP request")
		})
	}
}
