// Package web serves vCard to CSV conversion over HTTP.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/JonMunkholm/vcf2csv/internal/core"
	"github.com/JonMunkholm/vcf2csv/internal/web/middleware"
)

// Saver persists the records of a finished conversion.
// Satisfied by *store.Store.
type Saver interface {
	Save(ctx context.Context, runID uuid.UUID, records []*core.FlatRecord) (int64, error)
}

// Options configures a Server. Zero values fall back to defaults.
type Options struct {
	// Fields is the column selection when a request names none.
	Fields []core.Field

	// SkipCountry is cleared from output unless a request overrides it.
	SkipCountry string

	// MaxUploadSize caps the request body in bytes.
	MaxUploadSize int64

	// RequestTimeout bounds each request through chi's Timeout middleware.
	RequestTimeout time.Duration

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Limiter bounds concurrent conversions.
	Limiter *Limiter

	// Store receives converted records when set.
	Store Saver

	// Metrics collects Prometheus metrics; a private set is created when nil.
	Metrics *middleware.Metrics
}

const (
	defaultMaxUploadSize  = 10 << 20
	defaultRequestTimeout = 60 * time.Second
)

// Server is the HTTP server for conversions.
type Server struct {
	opts    Options
	limiter *Limiter
	metrics *middleware.Metrics
	router  *chi.Mux
	server  *http.Server
}

// NewServer creates a Server with its routes registered.
func NewServer(opts Options) *Server {
	if len(opts.Fields) == 0 {
		opts.Fields = core.DefaultFields
	}
	if opts.MaxUploadSize <= 0 {
		opts.MaxUploadSize = defaultMaxUploadSize
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	if opts.Limiter == nil {
		opts.Limiter = NewLimiter(DefaultMaxConcurrent, DefaultMaxWait)
	}
	if opts.Metrics == nil {
		opts.Metrics = middleware.NewMetrics("vcf2csv")
	}

	s := &Server{
		opts:    opts,
		limiter: opts.Limiter,
		metrics: opts.Metrics,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(chimw.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(s.metrics.Middleware)
	s.router.Use(chimw.Timeout(s.opts.RequestTimeout))
	s.router.Use(securityHeaders)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/fields", s.handleFields)
		r.Post("/convert", s.handleConvert)
	})
}

// Start begins listening on addr. It returns http.ErrServerClosed after Shutdown.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  s.opts.IdleTimeout,
	}

	slog.Info("starting server", "addr", addr)
	return s.server.ListenAndServe()
}

// Shutdown stops accepting requests and waits for running conversions.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	err := s.server.Shutdown(ctx)
	if drainErr := s.limiter.WaitForDrain(ctx); drainErr != nil {
		err = errors.Join(err, drainErr)
	}
	return err
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}
