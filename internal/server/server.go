// Package server exposes analysis, suggestions, insights and history over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/KaramelBytes/dataqual-cli/internal/ai"
	"github.com/KaramelBytes/dataqual-cli/internal/analysis"
	"github.com/KaramelBytes/dataqual-cli/internal/history"
	"github.com/KaramelBytes/dataqual-cli/internal/ingest"
)

const (
	DefaultMaxUploadBytes = 50 << 20
	DefaultInsightsPerMin = 10
)

// Options wires the collaborators. Zero values get working defaults;
// a nil Insighter makes /api/insights answer 503.
type Options struct {
	Policy         analysis.Policy
	Ingest         ingest.Options
	History        history.Store
	Insighter      *ai.Insighter
	Logger         *logrus.Logger
	MaxUploadBytes int64
	CORSOrigins    []string
	InsightsPerMin int
	SampleRows     int
	DefaultTable   string
}

// Server holds the HTTP handlers and their dependencies.
type Server struct {
	opt     Options
	log     *logrus.Logger
	limiter *rate.Limiter
	router  chi.Router
}

// New builds a Server and its routes.
func New(opt Options) *Server {
	if opt.Logger == nil {
		opt.Logger = logrus.New()
	}
	if opt.History == nil {
		opt.History = history.NewMemoryStore()
	}
	if opt.MaxUploadBytes <= 0 {
		opt.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if opt.InsightsPerMin <= 0 {
		opt.InsightsPerMin = DefaultInsightsPerMin
	}
	if opt.SampleRows <= 0 {
		opt.SampleRows = ai.DefaultSampleRows
	}
	if opt.Ingest.SheetIndex == 0 && opt.Ingest.SheetName == "" {
		opt.Ingest.SheetIndex = 1
	}
	if len(opt.CORSOrigins) == 0 {
		opt.CORSOrigins = []string{"*"}
	}
	s := &Server{
		opt: opt,
		log: opt.Logger,
		// refills InsightsPerMin tokens per minute
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(opt.InsightsPerMin)), opt.InsightsPerMin),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opt.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/analyze", s.handleAnalyze)
		r.Post("/insights", s.handleInsights)
		r.Post("/suggestions", s.handleSuggestions)
		r.Get("/history", s.handleHistory)
		r.Delete("/history", s.handleClearHistory)
	})
	return r
}

// ServeHTTP makes Server an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("listening")
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}
