// Package server exposes the analysis service and the pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/spigell/resume-ranker/internal/analysis"
	"github.com/spigell/resume-ranker/internal/conversation"
	"github.com/spigell/resume-ranker/internal/logger"
	"github.com/spigell/resume-ranker/internal/pipeline"
)

const (
	defaultMaxUploadMB = 20
	shutdownTimeout    = 10 * time.Second
)

var validate = validator.New()

// Config holds the listener settings.
type Config struct {
	Listen      string   `mapstructure:"listen" validate:"required"`
	CORSOrigins []string `mapstructure:"cors-origins"`
	MaxUploadMB int64    `mapstructure:"max-upload-mb" validate:"gte=0"`
}

// Server serves the stateless analysis API and the stateful pipeline API of
// one process-wide orchestrator.
type Server struct {
	cfg      Config
	service  analysis.Service
	pipeline *pipeline.Orchestrator
	profiles []conversation.Profile
	logger   *zap.Logger

	mu      sync.Mutex
	session *conversation.Session
}

// New wires a server. A nil profile list selects the built-in profiles.
func New(cfg Config, service analysis.Service, orchestrator *pipeline.Orchestrator, profiles []conversation.Profile, log *zap.Logger) *Server {
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = defaultMaxUploadMB
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}
	return &Server{
		cfg:      cfg,
		service:  service,
		pipeline: orchestrator,
		profiles: profiles,
		logger:   logger.OrNop(log),
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.accessLog)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	r.Route(analysis.APIPrefix, func(r chi.Router) {
		r.Post(analysis.PathVerify, s.handleVerify)
		r.Post(analysis.PathJob, s.handleAnalyzeJob)
		r.Post(analysis.PathChat, s.handleChat)
		r.Post(analysis.PathParse, s.handleParseRequirements)
		r.Post(analysis.PathResumes, s.handleAnalyzeResumes)
		r.Post(analysis.PathExport, s.handleExport)
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/state", s.handleState)
		r.Post("/models", s.handleSelectModels)
		r.Post("/navigate", s.handleNavigate)
		r.Post("/analyze-job-description", s.handlePipelineJob)
		r.Get("/current-requirements", s.handleCurrentRequirements)
		r.Get("/requirements-text", s.handleRequirementsText)
		r.Post("/update-requirements", s.handleUpdateRequirements)
		r.Post("/skip-review", s.handleSkipReview)
		r.Post("/analyze-resumes", s.handlePipelineResumes)
		r.Get("/export-csv", s.handleExportCSV)
		r.Get("/export-xlsx", s.handleExportXLSX)

		r.Get("/job-description-chat", s.handleChatState)
		r.Post("/job-description-chat", s.handleChatSend)
		r.Delete("/job-description-chat", s.handleChatReset)
		r.Post("/job-description-chat/profile", s.handleChatProfile)
		r.Post("/job-description-chat/apply", s.handleChatApply)
	})

	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.cfg.Listen))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info("http server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		s.logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
